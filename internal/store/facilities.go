package store

import (
	"context"
	"fmt"
	"strings"

	"sheetshare.org/internal/auth"
	"sheetshare.org/internal/ids"
	"sheetshare.org/internal/model"
)

// FacilityPatch carries the mutable facility fields. Nil means unchanged.
type FacilityPatch struct {
	Name         *string
	ContactEmail *string
}

func facilityFromRow(r Row) model.Facility {
	return model.Facility{
		FacilityID:   r["facility_id"],
		Name:         r["name"],
		Status:       model.Status(strings.TrimSpace(r["status"])),
		ContactEmail: r["contact_email"],
		CreatedAt:    parseTime(r["created_at"]),
		UpdatedAt:    parseTime(r["updated_at"]),
	}
}

func facilityActive(r Row) bool {
	return model.Status(strings.TrimSpace(r["status"])) == model.StatusActive
}

// ListFacilities returns active facilities.
func (s *Store) ListFacilities(ctx context.Context) ([]model.Facility, error) {
	rows, err := s.facilities.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Facility, 0, len(rows))
	for _, r := range rows {
		if facilityActive(r) {
			out = append(out, facilityFromRow(r))
		}
	}
	return out, nil
}

// GetFacility returns an active facility.
func (s *Store) GetFacility(ctx context.Context, id string) (model.Facility, error) {
	r, ok, err := s.facilities.Find(ctx, "facility_id", id)
	if err != nil {
		return model.Facility{}, err
	}
	if !ok || !facilityActive(r) {
		return model.Facility{}, fmt.Errorf("%w: facility %s", auth.ErrNotFound, id)
	}
	return facilityFromRow(r), nil
}

// CreateFacility appends an active facility.
func (s *Store) CreateFacility(ctx context.Context, name, contactEmail string) (model.Facility, error) {
	now, ts := s.timestamp()
	f := model.Facility{
		FacilityID:   ids.NewUUID(),
		Name:         name,
		Status:       model.StatusActive,
		ContactEmail: contactEmail,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := s.facilities.Append(ctx, Row{
		"facility_id":   f.FacilityID,
		"name":          f.Name,
		"status":        string(f.Status),
		"contact_email": f.ContactEmail,
		"created_at":    ts,
		"updated_at":    ts,
	})
	if err != nil {
		return model.Facility{}, err
	}
	return f, nil
}

// UpdateFacility applies patch to an active facility.
func (s *Store) UpdateFacility(ctx context.Context, id string, patch FacilityPatch) (model.Facility, error) {
	if _, err := s.GetFacility(ctx, id); err != nil {
		return model.Facility{}, err
	}
	_, ts := s.timestamp()
	row := Row{"updated_at": ts}
	if patch.Name != nil {
		row["name"] = *patch.Name
	}
	if patch.ContactEmail != nil {
		row["contact_email"] = *patch.ContactEmail
	}
	merged, err := s.facilities.Put(ctx, "facility_id", id, row)
	if err != nil {
		return model.Facility{}, err
	}
	return facilityFromRow(merged), nil
}

// DeactivateFacility soft-deletes a facility.
func (s *Store) DeactivateFacility(ctx context.Context, id string) (model.Facility, error) {
	if _, err := s.GetFacility(ctx, id); err != nil {
		return model.Facility{}, err
	}
	_, ts := s.timestamp()
	merged, err := s.facilities.Put(ctx, "facility_id", id, Row{
		"status":     string(model.StatusInactive),
		"updated_at": ts,
	})
	if err != nil {
		return model.Facility{}, err
	}
	return facilityFromRow(merged), nil
}
