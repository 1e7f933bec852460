package chat

import (
	"errors"
	"fmt"
)

// ErrInvalidRole is returned for anything other than "A" or "B".
var ErrInvalidRole = errors.New("invalid role")

// Role identifies one of the two fixed chat participants.
type Role string

const (
	RoleA Role = "A"
	RoleB Role = "B"
)

// ParseRole accepts only "A" or "B".
func ParseRole(raw string) (Role, error) {
	role := Role(raw)
	if !role.Valid() {
		return "", fmt.Errorf("%w %q: expected A or B", ErrInvalidRole, raw)
	}
	return role, nil
}

// Valid reports whether the role is one of the two participants.
func (r Role) Valid() bool {
	return r == RoleA || r == RoleB
}

// Peer returns the other participant.
func (r Role) Peer() Role {
	if r == RoleA {
		return RoleB
	}
	return RoleA
}

func (r Role) String() string {
	return string(r)
}
