package service

import (
	"context"
	"errors"
	"fmt"

	"sheetshare.org/internal/audit"
	"sheetshare.org/internal/auth"
	"sheetshare.org/internal/model"
	"sheetshare.org/internal/policy"
	"sheetshare.org/internal/store"
)

// FacilityInput creates a facility.
type FacilityInput struct {
	Name         string
	ContactEmail string
}

// FacilityUpdate changes a facility. Nil fields are left as they are.
type FacilityUpdate struct {
	Name         *string
	ContactEmail *string
}

// Facilities manages tenants. Every operation is admin-only.
type Facilities struct {
	store  FacilityStore
	audit  Auditor
	policy policy.Policy
}

// NewFacilities wires the facility service.
func NewFacilities(st FacilityStore, aud Auditor, pol policy.Policy) (*Facilities, error) {
	if st == nil {
		return nil, errors.New("facility store is required")
	}
	return &Facilities{store: st, audit: orNop(aud), policy: pol}, nil
}

// List returns active facilities.
func (s *Facilities) List(ctx context.Context, a auth.Actor) ([]model.Facility, error) {
	if err := s.policy.CanManageFacilities(a); err != nil {
		return nil, err
	}
	return s.store.ListFacilities(ctx)
}

// Create adds an active facility.
func (s *Facilities) Create(ctx context.Context, a auth.Actor, in FacilityInput) (model.Facility, error) {
	if err := s.policy.CanManageFacilities(a); err != nil {
		return model.Facility{}, err
	}
	in.Name = trimmedValue(in.Name)
	if err := required("name", in.Name); err != nil {
		return model.Facility{}, err
	}
	f, err := s.store.CreateFacility(ctx, in.Name, trimmedValue(in.ContactEmail))
	if err != nil {
		return model.Facility{}, fmt.Errorf("create facility: %w", err)
	}
	s.audit.Record(ctx, audit.Event{
		Actor: a, FacilityID: f.FacilityID,
		Action: model.ActionFacilityCreate, TargetType: model.TargetFacility, TargetID: f.FacilityID,
		After: f,
	})
	return f, nil
}

// Update renames a facility or changes its contact email.
func (s *Facilities) Update(ctx context.Context, a auth.Actor, id string, in FacilityUpdate) (model.Facility, error) {
	if err := s.policy.CanManageFacilities(a); err != nil {
		return model.Facility{}, err
	}
	before, err := s.store.GetFacility(ctx, id)
	if err != nil {
		return model.Facility{}, err
	}
	patch := store.FacilityPatch{Name: trimmed(in.Name), ContactEmail: trimmed(in.ContactEmail)}
	if patch.Name != nil && *patch.Name == "" {
		return model.Facility{}, invalid("name cannot be empty")
	}
	after, err := s.store.UpdateFacility(ctx, id, patch)
	if err != nil {
		return model.Facility{}, fmt.Errorf("update facility: %w", err)
	}
	s.audit.Record(ctx, audit.Event{
		Actor: a, FacilityID: id,
		Action: model.ActionFacilityUpdate, TargetType: model.TargetFacility, TargetID: id,
		Before: before, After: after,
	})
	return after, nil
}

// Delete marks a facility inactive.
func (s *Facilities) Delete(ctx context.Context, a auth.Actor, id string) error {
	if err := s.policy.CanManageFacilities(a); err != nil {
		return err
	}
	before, err := s.store.GetFacility(ctx, id)
	if err != nil {
		return err
	}
	after, err := s.store.DeactivateFacility(ctx, id)
	if err != nil {
		return fmt.Errorf("delete facility: %w", err)
	}
	s.audit.Record(ctx, audit.Event{
		Actor: a, FacilityID: id,
		Action: model.ActionFacilityDelete, TargetType: model.TargetFacility, TargetID: id,
		Before: before, After: after,
	})
	return nil
}
