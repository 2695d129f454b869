package main

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/DoyleJ11/lol-pick/internal/engine"
)

var errTooManyPlayers = fmt.Errorf("at most %d players", engine.Slots)

// parsePlayer reads "NAME" (every role) or "NAME=role,role" (only those).
func parsePlayer(arg string) (engine.Player, error) {
	name, roles, hasRoles := strings.Cut(arg, "=")
	name = strings.TrimSpace(name)
	if name == "" {
		return engine.Player{}, fmt.Errorf("player %q: empty name", arg)
	}
	if !hasRoles {
		return engine.Player{Name: name}, nil
	}

	var allowed []engine.Role
	for _, label := range strings.Split(roles, ",") {
		if strings.TrimSpace(label) == "" {
			continue
		}
		r, err := engine.ParseRole(label)
		if err != nil {
			return engine.Player{}, fmt.Errorf("player %s: %w", name, err)
		}
		allowed = append(allowed, r)
	}
	return engine.Player{Name: name, Roles: engine.Only(allowed...)}, nil
}

func parseRoster(args []string) ([]engine.Player, error) {
	if len(args) > engine.Slots {
		return nil, errTooManyPlayers
	}
	players := make([]engine.Player, 0, len(args))
	var errs error
	for _, a := range args {
		p, err := parsePlayer(a)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		players = append(players, p)
	}
	if errs != nil {
		return nil, errs
	}
	return players, nil
}
