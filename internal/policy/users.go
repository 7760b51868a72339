package policy

import (
	"sheetshare.org/internal/auth"
	"sheetshare.org/internal/model"
)

// UserListScope resolves which users a may list. all is true when an admin
// lists every facility.
func (p Policy) UserListScope(a auth.Actor, requested string) (facilityID string, all bool, err error) {
	if err := auth.Require(a); err != nil {
		return "", false, err
	}
	switch actor := a.(type) {
	case auth.GlobalAdmin:
		return requested, requested == "", nil
	case auth.TenantActor:
		if actor.TenantRole != auth.RoleFacilityAdmin {
			return "", false, forbidden("user management requires facility_admin")
		}
		if requested != "" && requested != actor.FacilityID {
			return "", false, forbidden("users of another facility")
		}
		return actor.FacilityID, false, nil
	default:
		return "", false, auth.ErrUnauthenticated
	}
}

// UserCreateFacility returns the facility a new user with role belongs to.
// Admin users always live in the system facility.
func (p Policy) UserCreateFacility(a auth.Actor, role auth.Role, payloadFacility string) (string, error) {
	if err := auth.Require(a); err != nil {
		return "", err
	}
	if !role.Valid() {
		return "", invalid("unknown role %q", role)
	}
	switch actor := a.(type) {
	case auth.GlobalAdmin:
		if role == auth.RoleAdmin {
			return auth.SystemFacilityID, nil
		}
		if payloadFacility == "" || payloadFacility == auth.SystemFacilityID {
			return "", invalid("facility_id is required for role %s", role)
		}
		return payloadFacility, nil
	case auth.TenantActor:
		if actor.TenantRole != auth.RoleFacilityAdmin {
			return "", forbidden("user management requires facility_admin")
		}
		if role == auth.RoleAdmin {
			return "", forbidden("only administrators may grant the admin role")
		}
		if payloadFacility != "" && payloadFacility != actor.FacilityID {
			return "", forbidden("users of another facility")
		}
		return actor.FacilityID, nil
	default:
		return "", auth.ErrUnauthenticated
	}
}

// CanModifyUser guards user update and delete. newRole is the requested role,
// or "" when unchanged. The root admin can never be modified; other admin
// users only by the root admin.
func (p Policy) CanModifyUser(a auth.Actor, target model.User, newRole auth.Role) error {
	if err := auth.Require(a); err != nil {
		return err
	}
	if p.IsRootLogin(target.LoginID) {
		return forbidden("the root administrator cannot be modified")
	}
	switch actor := a.(type) {
	case auth.GlobalAdmin:
		if target.Role == auth.RoleAdmin && !p.isRootActor(a) {
			return forbidden("only the root administrator may modify administrators")
		}
		return nil
	case auth.TenantActor:
		if actor.TenantRole != auth.RoleFacilityAdmin {
			return forbidden("user management requires facility_admin")
		}
		if target.FacilityID != actor.FacilityID {
			return forbidden("users of another facility")
		}
		if target.Role == auth.RoleAdmin {
			return forbidden("only administrators may modify administrators")
		}
		if newRole == auth.RoleAdmin {
			return forbidden("only administrators may grant the admin role")
		}
		return nil
	default:
		return auth.ErrUnauthenticated
	}
}

// CanManageFacilities is admin-only.
func (p Policy) CanManageFacilities(a auth.Actor) error {
	if err := auth.Require(a); err != nil {
		return err
	}
	if !auth.IsAdmin(a) {
		return forbidden("facility management requires admin")
	}
	return nil
}
