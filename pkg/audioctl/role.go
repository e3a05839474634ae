package audioctl

import (
	"fmt"
	"strings"
)

// Direction distinguishes playback (render) endpoints from recording (capture)
// endpoints. A device's direction is fixed at enumeration time.
type Direction int

const (
	Playback Direction = iota
	Recording
)

func (d Direction) String() string {
	if d == Recording {
		return "recording"
	}

	return "playback"
}

// RoleSet is a set of the three independent default-device slots the platform
// tracks per direction. Values combine with bitwise OR.
type RoleSet uint8

const (
	// RoleSystem is the console/system default slot
	RoleSystem RoleSet = 1 << iota

	// RoleMultimedia is the music/movies default slot
	RoleMultimedia

	// RoleCommunication is the voice chat/telephony default slot
	RoleCommunication
)

const (
	RoleNone RoleSet = 0
	RoleAll          = RoleSystem | RoleMultimedia | RoleCommunication
)

var roleNames = map[RoleSet]string{
	RoleSystem:        "system",
	RoleMultimedia:    "multimedia",
	RoleCommunication: "communication",
}

// Empty reports whether the set holds no roles
func (rs RoleSet) Empty() bool {
	return rs == RoleNone
}

// Has reports whether the intersection with other is non-empty,
// i.e. "holds at least one of", not "holds exactly"
func (rs RoleSet) Has(other RoleSet) bool {
	return rs&other != RoleNone
}

// Roles returns the single-role members of the set, always ordered
// system, multimedia, communication
func (rs RoleSet) Roles() []RoleSet {
	roles := make([]RoleSet, 0, 3)

	for _, role := range []RoleSet{RoleSystem, RoleMultimedia, RoleCommunication} {
		if rs.Has(role) {
			roles = append(roles, role)
		}
	}

	return roles
}

func (rs RoleSet) String() string {
	if rs.Empty() {
		return "none"
	}

	names := make([]string, 0, 3)
	for _, role := range rs.Roles() {
		names = append(names, roleNames[role])
	}

	return strings.Join(names, "|")
}

// ParseRoleSet parses a comma-separated list of role names, e.g.
// "system,multimedia". The words "all" and "none" are accepted as-is.
func ParseRoleSet(s string) (RoleSet, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "all":
		return RoleAll, nil
	case "none", "":
		return RoleNone, nil
	}

	result := RoleNone

	for _, name := range strings.Split(s, ",") {
		name = strings.ToLower(strings.TrimSpace(name))

		matched := false
		for role, roleName := range roleNames {
			if name == roleName {
				result |= role
				matched = true
				break
			}
		}

		if !matched {
			return RoleNone, fmt.Errorf("unknown role name: %q", name)
		}
	}

	return result, nil
}
