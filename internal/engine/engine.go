package engine

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
)

var ErrNilRand = errors.New("nil random source")
var ErrBadDraw = errors.New("random source returned an index out of range")
var ErrUnknownRole = errors.New("unknown role")
var ErrInvalidRoster = errors.New("invalid roster")

type Role string

const (
	RoleTop     Role = "top"
	RoleJungle  Role = "jungle"
	RoleMid     Role = "mid"
	RoleADC     Role = "adc"
	RoleSupport Role = "support"
)

// Eligibility says whether a player agrees to play a role. Values are
// pointers so that an explicit JSON null survives decoding.
type Eligibility map[Role]*bool

type Player struct {
	Name  string      `json:"name"`
	Roles Eligibility `json:"roles,omitempty"`
	Pick  Role        `json:"pick,omitempty"`
}

// Rand is the only source of randomness Roll uses. IntN must return a value
// in [0, n).
type Rand interface {
	IntN(n int) int
}

type EventType string

const (
	EvtRoleFilled   EventType = "RoleFilled"
	EvtRoleUnfilled EventType = "RoleUnfilled"
)

// Event records how one role was resolved. Slot is the index of the picked
// player in the roster, -1 when the role stayed empty.
type Event struct {
	Type EventType `json:"type"`
	Role Role      `json:"role"`
	Slot int       `json:"slot"`
	Name string    `json:"name,omitempty"`
}

// Rank orders remaining roles by how many unassigned players could still take
// them, scarcest first. Equal counts keep the Roles order.
func Rank(players []Player, remaining []Role) []Role {
	counts := make(map[Role]int, len(remaining))
	for _, r := range remaining {
		counts[r] = len(candidates(players, r))
	}

	ranked := slices.Clone(remaining)
	slices.SortStableFunc(ranked, func(a, b Role) int {
		if c := cmp.Compare(counts[a], counts[b]); c != 0 {
			return c
		}
		return cmp.Compare(a.Index(), b.Index())
	})
	return ranked
}

// Roll assigns roles to players. The input is never modified; the returned
// roster is a fresh copy with Pick set, and events list the roles in the
// order they were resolved.
func Roll(players []Player, rnd Rand) ([]Event, []Player, error) {
	if rnd == nil {
		return nil, nil, ErrNilRand
	}

	out := make([]Player, len(players))
	for i, p := range players {
		out[i] = p.Clone()
		out[i].Pick = ""
	}

	remaining := Roles()
	events := make([]Event, 0, len(remaining))

	for len(remaining) > 0 {
		// Ranking again every time: each pick changes the counts of the roles left.
		role := Rank(out, remaining)[0]

		agreed := candidates(out, role)
		if len(agreed) == 0 {
			events = append(events, Event{Type: EvtRoleUnfilled, Role: role, Slot: -1})
		} else {
			n := rnd.IntN(len(agreed))
			if n < 0 || n >= len(agreed) {
				return nil, nil, fmt.Errorf("%w: IntN(%d) = %d", ErrBadDraw, len(agreed), n)
			}
			slot := agreed[n]
			out[slot].Pick = role
			events = append(events, Event{Type: EvtRoleFilled, Role: role, Slot: slot, Name: out[slot].Name})
		}

		remaining = slices.DeleteFunc(remaining, func(r Role) bool { return r == role })
	}

	return events, out, nil
}

// candidates returns the roster indexes of players without a pick who agree
// to play role.
func candidates(players []Player, role Role) []int {
	var idx []int
	for i, p := range players {
		if !p.HasPick() && p.Roles.Allows(role) {
			idx = append(idx, i)
		}
	}
	return idx
}
