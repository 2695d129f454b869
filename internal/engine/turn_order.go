package engine

import "slices"

// roleOrder is the fixed role set. Its order is the tie-break order for Rank
// and the line order of the export block.
var roleOrder = [...]Role{
	RoleTop,
	RoleJungle,
	RoleMid,
	RoleADC,
	RoleSupport,
}

// Roles returns the role set in order. Callers get their own copy.
func Roles() []Role {
	return slices.Clone(roleOrder[:])
}

// Slots is how many players a lobby presents. Roll itself accepts any length.
const Slots = 5

var roleAliases = map[string]Role{
	"top":     RoleTop,
	"jungle":  RoleJungle,
	"jungler": RoleJungle,
	"jg":      RoleJungle,
	"mid":     RoleMid,
	"middle":  RoleMid,
	"adc":     RoleADC,
	"bot":     RoleADC,
	"bottom":  RoleADC,
	"support": RoleSupport,
	"supp":    RoleSupport,
	"sup":     RoleSupport,
}
