// Package export renders a rolled roster as the text block people paste in
// chat.
package export

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/DoyleJ11/lol-pick/internal/engine"
)

// Unfilled is printed for a role nobody holds.
const Unfilled = "n/a"

// Format writes one "role: name" line per role in role order, with role
// labels right-aligned on the longest one.
func Format(players []engine.Player) string {
	roles := engine.Roles()
	width := 0
	for _, r := range roles {
		width = max(width, runewidth.StringWidth(string(r)))
	}

	lines := make([]string, 0, len(roles))
	for _, r := range roles {
		name := Unfilled
		if p, ok := engine.Holder(players, r); ok && strings.TrimSpace(p.Name) != "" {
			name = p.Name
		}
		lines = append(lines, runewidth.FillLeft(string(r), width)+": "+name)
	}
	return strings.Join(lines, "\n")
}
