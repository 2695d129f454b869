package engine

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"go.uber.org/multierr"
)

// ParseRole resolves a user supplied label (case-insensitive, common aliases
// like "bot" or "jg" included).
func ParseRole(s string) (Role, error) {
	if r, ok := roleAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// Index is the position of r in Roles, or -1.
func (r Role) Index() int {
	return slices.Index(roleOrder[:], r)
}

func (r Role) IsValid() bool {
	return r.Index() >= 0
}

// Allows is the single place the default-eligible policy lives: a missing
// map, a missing key or a null value all mean "eligible".
func (e Eligibility) Allows(r Role) bool {
	if e == nil {
		return true
	}
	v, ok := e[r]
	if !ok || v == nil {
		return true
	}
	return *v
}

// Only marks the given roles eligible and every other role ineligible.
func Only(roles ...Role) Eligibility {
	e := make(Eligibility, len(roleOrder))
	for _, r := range roleOrder {
		e[r] = boolPtr(slices.Contains(roles, r))
	}
	return e
}

// Except marks the given roles ineligible and leaves the rest to the default.
func Except(roles ...Role) Eligibility {
	e := make(Eligibility, len(roles))
	for _, r := range roles {
		e[r] = boolPtr(false)
	}
	return e
}

func (e Eligibility) Clone() Eligibility {
	if e == nil {
		return nil
	}
	out := make(Eligibility, len(e))
	for r, v := range e {
		if v == nil {
			out[r] = nil
			continue
		}
		out[r] = boolPtr(*v)
	}
	return out
}

func (p Player) Clone() Player {
	p.Roles = p.Roles.Clone()
	return p
}

func (p Player) HasPick() bool {
	return p.Pick != ""
}

// Holder returns the player picked for role.
func Holder(players []Player, role Role) (Player, bool) {
	for _, p := range players {
		if p.Pick == role {
			return p, true
		}
	}
	return Player{}, false
}

// Unfilled lists, in role order, the roles nobody holds.
func Unfilled(players []Player) []Role {
	var out []Role
	for _, r := range roleOrder {
		if _, ok := Holder(players, r); !ok {
			out = append(out, r)
		}
	}
	return out
}

// CheckRoster reports every problem in a roster handed in from outside:
// eligibility keys that are not roles, and picks that are not roles, that the
// player declined or that someone earlier in the roster already holds. Each
// problem wraps ErrInvalidRoster.
func CheckRoster(players []Player) error {
	var err error
	held := make(map[Role]string, len(roleOrder))
	for i, p := range players {
		for _, r := range slices.Sorted(maps.Keys(p.Roles)) {
			if !r.IsValid() {
				err = multierr.Append(err, fmt.Errorf("%w: player %d %q: eligibility for %w %q", ErrInvalidRoster, i, p.Name, ErrUnknownRole, r))
			}
		}
		if !p.HasPick() {
			continue
		}
		switch {
		case !p.Pick.IsValid():
			err = multierr.Append(err, fmt.Errorf("%w: player %d %q: pick is an %w %q", ErrInvalidRoster, i, p.Name, ErrUnknownRole, p.Pick))
		case !p.Roles.Allows(p.Pick):
			err = multierr.Append(err, fmt.Errorf("%w: player %d %q: picked %s but declined it", ErrInvalidRoster, i, p.Name, p.Pick))
		default:
			if holder, ok := held[p.Pick]; ok {
				err = multierr.Append(err, fmt.Errorf("%w: player %d %q: %s is already held by %q", ErrInvalidRoster, i, p.Name, p.Pick, holder))
				continue
			}
			held[p.Pick] = p.Name
		}
	}
	return err
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

func boolPtr(b bool) *bool { return &b }
