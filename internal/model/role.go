package model

import (
	"strings"

	"github.com/pkg/errors"
)

// Role is a member of the closed set of account roles.
type Role string

// Constants for Role
const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleUser      Role = "user"
)

// Roles lists every valid role.
var Roles = []Role{RoleAdmin, RoleModerator, RoleUser}

// NewRole creates a new `Role` from a string.
func NewRole(role string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(role))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleModerator:
		return RoleModerator, nil
	case RoleUser:
		return RoleUser, nil
	default:
		return "", errors.Errorf("invalid role %s", role)
	}
}

// Valid reports whether r is a member of the enumeration.
func (r Role) Valid() bool {
	_, err := NewRole(string(r))
	return err == nil && string(r) == strings.ToLower(string(r))
}

func (r Role) String() string {
	return string(r)
}

// RoleSet is an explicit allow-list of roles. Membership is exact, roles carry
// no implied rank.
type RoleSet map[Role]struct{}

// NewRoleSet creates a RoleSet from the passed roles.
func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// Has tests the existence of `role` in the set.
func (set RoleSet) Has(role Role) bool {
	_, ok := set[role]
	return ok
}

// Values returns the contents of the set in enumeration order.
func (set RoleSet) Values() []Role {
	values := make([]Role, 0, len(set))
	for _, r := range Roles {
		if set.Has(r) {
			values = append(values, r)
		}
	}
	return values
}
