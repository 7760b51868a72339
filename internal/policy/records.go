package policy

import (
	"sheetshare.org/internal/auth"
	"sheetshare.org/internal/model"
)

// RecordListScope resolves which facility's records a may list. Admins must
// name a facility; tenants always list their own and may not name another.
func (p Policy) RecordListScope(a auth.Actor, requested string) (string, error) {
	if err := auth.Require(a); err != nil {
		return "", err
	}
	switch actor := a.(type) {
	case auth.GlobalAdmin:
		if requested == "" {
			return "", invalid("facility_id is required")
		}
		return requested, nil
	case auth.TenantActor:
		if requested != "" && requested != actor.FacilityID {
			return "", forbidden("records of another facility")
		}
		return actor.FacilityID, nil
	default:
		return "", auth.ErrUnauthenticated
	}
}

// VisibleInListing drops admin_only records for non-admins.
func (p Policy) VisibleInListing(a auth.Actor, rec model.Record) bool {
	return p.CanReadRecord(a, rec) == nil
}

// CanReadRecord allows admins everything and tenants the non-admin_only
// records of their own facility.
func (p Policy) CanReadRecord(a auth.Actor, rec model.Record) error {
	if err := auth.Require(a); err != nil {
		return err
	}
	switch actor := a.(type) {
	case auth.GlobalAdmin:
		return nil
	case auth.TenantActor:
		if rec.FacilityID != actor.FacilityID {
			return forbidden("record belongs to another facility")
		}
		if rec.AccessLevel == model.AccessAdminOnly {
			return forbidden("record is restricted to administrators")
		}
		return nil
	default:
		return auth.ErrUnauthenticated
	}
}

// RecordCreateFacility returns the facility a new record is owned by. Tenants
// always create in their own facility; admins must name one. Viewers cannot
// create, and only admins may create admin_only records.
func (p Policy) RecordCreateFacility(a auth.Actor, payloadFacility string, level model.AccessLevel) (string, error) {
	if err := auth.Require(a); err != nil {
		return "", err
	}
	if level == model.AccessAdminOnly && !auth.IsAdmin(a) {
		return "", forbidden("only administrators may create admin_only records")
	}
	switch actor := a.(type) {
	case auth.GlobalAdmin:
		if payloadFacility == "" {
			return "", invalid("facility_id is required")
		}
		return payloadFacility, nil
	case auth.TenantActor:
		if actor.TenantRole == auth.RoleFacilityViewer {
			return "", forbidden("viewers cannot create records")
		}
		if payloadFacility != "" && payloadFacility != actor.FacilityID {
			return "", forbidden("records of another facility")
		}
		return actor.FacilityID, nil
	default:
		return "", auth.ErrUnauthenticated
	}
}

// CanUpdateRecord allows the record's creator or an admin. newLevel is the
// requested access level, or "" when unchanged.
func (p Policy) CanUpdateRecord(a auth.Actor, rec model.Record, newLevel model.AccessLevel) error {
	if err := auth.Require(a); err != nil {
		return err
	}
	if auth.IsAdmin(a) {
		return nil
	}
	actor, ok := a.(auth.TenantActor)
	if !ok {
		return auth.ErrUnauthenticated
	}
	if actor.TenantRole == auth.RoleFacilityViewer {
		return forbidden("viewers cannot edit records")
	}
	if rec.FacilityID != actor.FacilityID {
		return forbidden("record belongs to another facility")
	}
	if rec.AccessLevel == model.AccessAdminOnly || newLevel == model.AccessAdminOnly {
		return forbidden("only administrators may manage admin_only records")
	}
	if rec.CreatedBy != actor.UserID {
		return forbidden("only the creator or an administrator may edit this record")
	}
	return nil
}

// CanDeleteRecord: admins delete anything, facility admins anything in their
// facility (admin_only included), editors their own records, viewers nothing.
func (p Policy) CanDeleteRecord(a auth.Actor, rec model.Record) error {
	if err := auth.Require(a); err != nil {
		return err
	}
	if auth.IsAdmin(a) {
		return nil
	}
	actor, ok := a.(auth.TenantActor)
	if !ok {
		return auth.ErrUnauthenticated
	}
	if rec.FacilityID != actor.FacilityID {
		return forbidden("record belongs to another facility")
	}
	switch actor.TenantRole {
	case auth.RoleFacilityAdmin:
		return nil
	case auth.RoleFacilityEditor:
		if rec.AccessLevel == model.AccessAdminOnly {
			return forbidden("record is restricted to administrators")
		}
		if rec.CreatedBy == actor.UserID {
			return nil
		}
		return forbidden("editors may only delete their own records")
	default:
		return forbidden("viewers cannot delete records")
	}
}
