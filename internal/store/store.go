// Package store persists rosters between rolls. Every implementation is keyed
// by a plain string, "players" by default.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/DoyleJ11/lol-pick/internal/engine"
)

const DefaultKey = "players"

var ErrInvalidKey = errors.New("invalid store key")

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9:_-]{0,127}$`)

// Store loads and saves rosters. Loading a key that was never saved returns
// an empty roster and no error.
type Store interface {
	Load(ctx context.Context, key string) ([]engine.Player, error)
	Save(ctx context.Context, key string, players []engine.Player) error
}

// Key is where the roster of a lobby lives.
func Key(code string) string {
	if code == "" {
		return DefaultKey
	}
	return DefaultKey + ":" + code
}

func checkKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

func encode(players []engine.Player) ([]byte, error) {
	if players == nil {
		players = []engine.Player{}
	}
	return json.Marshal(players)
}

func decode(data []byte) ([]engine.Player, error) {
	var players []engine.Player
	if err := json.Unmarshal(data, &players); err != nil {
		return nil, fmt.Errorf("decode roster: %w", err)
	}
	if players == nil {
		players = []engine.Player{}
	}
	return players, nil
}

func clone(players []engine.Player) []engine.Player {
	out := make([]engine.Player, len(players))
	for i, p := range players {
		out[i] = p.Clone()
	}
	return out
}
