package audioctl

import (
	"fmt"
	"strings"
)

// Device is a single audio endpoint as seen at enumeration time. It is a
// snapshot: the platform's default slots can move to or away from it at any
// moment after construction, so role membership is never stored here and is
// always recomputed against the live defaults (see Directory.Roles).
type Device struct {
	ID           string
	FriendlyName string
	Direction    Direction
}

func (d Device) String() string {
	return fmt.Sprintf("<%s device: %s>", d.Direction, d.FriendlyName)
}

// EqualID reports whether two endpoint identities refer to the same endpoint.
// Identities are opaque tokens compared case-insensitively; an empty identity
// equals only another empty identity, never a concrete one.
func EqualID(a string, b string) bool {
	if a == "" || b == "" {
		return a == b
	}

	return strings.EqualFold(a, b)
}
