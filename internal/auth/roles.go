package auth

import (
	"fmt"
	"strings"
)

// Role is the closed set of user roles. The zero value is not a valid role.
type Role string

const (
	RoleAdmin          Role = "admin"
	RoleFacilityAdmin  Role = "facility_admin"
	RoleFacilityEditor Role = "facility_editor"
	RoleFacilityViewer Role = "facility_viewer"
)

var roleRank = map[Role]int{
	RoleFacilityViewer: 1,
	RoleFacilityEditor: 2,
	RoleFacilityAdmin:  3,
	RoleAdmin:          4,
}

// ParseRole validates a stored or submitted role string.
func ParseRole(s string) (Role, error) {
	r := Role(strings.TrimSpace(s))
	if _, ok := roleRank[r]; !ok {
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, s)
	}
	return r, nil
}

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Rank orders roles from facility_viewer (1) to admin (4). Unknown roles rank 0.
func (r Role) Rank() int {
	return roleRank[r]
}

// AtLeast reports whether r ranks at or above other.
func (r Role) AtLeast(other Role) bool {
	return r.Valid() && r.Rank() >= other.Rank()
}

func (r Role) String() string { return string(r) }
