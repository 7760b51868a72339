package auth

import (
	"fmt"
	"strings"
)

// SystemFacilityID is the facility value stored on global admin users. It only
// appears at the persistence and session boundary; authorization code switches
// on the Actor type instead.
const SystemFacilityID = "system"

// Principal identifies the human behind an actor.
type Principal struct {
	UserID      string
	LoginID     string
	GoogleEmail string
}

// Actor is either a GlobalAdmin or a TenantActor.
type Actor interface {
	Who() Principal
	Role() Role
	sealed()
}

// GlobalAdmin is an admin-role user. It belongs to no facility.
type GlobalAdmin struct {
	Principal
}

func (a GlobalAdmin) Who() Principal { return a.Principal }
func (GlobalAdmin) Role() Role       { return RoleAdmin }
func (GlobalAdmin) sealed()          {}

// TenantActor is a user bound to exactly one facility.
type TenantActor struct {
	Principal
	FacilityID string
	TenantRole Role
}

func (a TenantActor) Who() Principal { return a.Principal }
func (a TenantActor) Role() Role     { return a.TenantRole }
func (TenantActor) sealed()          {}

// IsAdmin reports whether a is a GlobalAdmin.
func IsAdmin(a Actor) bool {
	_, ok := a.(GlobalAdmin)
	return ok
}

// FacilityOf returns the tenant facility of a, or "" for a global admin.
func FacilityOf(a Actor) string {
	if t, ok := a.(TenantActor); ok {
		return t.FacilityID
	}
	return ""
}

// NewActor builds the actor for a stored user. Admins become GlobalAdmin
// regardless of the facility column; every other role needs a real facility.
func NewActor(p Principal, role Role, facilityID string) (Actor, error) {
	if strings.TrimSpace(p.UserID) == "" {
		return nil, fmt.Errorf("%w: user id missing", ErrUnauthenticated)
	}
	switch role {
	case RoleAdmin:
		return GlobalAdmin{Principal: p}, nil
	case RoleFacilityAdmin, RoleFacilityEditor, RoleFacilityViewer:
		facilityID = strings.TrimSpace(facilityID)
		if facilityID == "" || facilityID == SystemFacilityID {
			return nil, fmt.Errorf("%w: %s without facility", ErrUnauthenticated, role)
		}
		return TenantActor{Principal: p, FacilityID: facilityID, TenantRole: role}, nil
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrUnauthenticated, role)
	}
}

// Require returns ErrUnauthenticated when no actor is present.
func Require(a Actor) error {
	if a == nil {
		return ErrUnauthenticated
	}
	return nil
}
