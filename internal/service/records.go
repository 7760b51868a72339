package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"sheetshare.org/internal/audit"
	"sheetshare.org/internal/auth"
	"sheetshare.org/internal/model"
	"sheetshare.org/internal/policy"
	"sheetshare.org/internal/store"
)

// RecordInput creates a record. FacilityID is only honoured for admins.
type RecordInput struct {
	FacilityID  string
	FileName    string
	FileCreator string
	Sharer      string
	FileURL     string
	AccessLevel string
}

// RecordUpdate changes a record's descriptive fields. There is deliberately no
// way to express a new id, owner, facility or creation time.
type RecordUpdate struct {
	FileName    *string
	FileCreator *string
	Sharer      *string
	FileURL     *string
	AccessLevel *string
}

// Records manages shared file records.
type Records struct {
	store       RecordStore
	facilities  FacilityStore
	permissions PermissionStore
	audit       Auditor
	policy      policy.Policy
	logger      *zap.Logger
}

// NewRecords wires the record service.
func NewRecords(st RecordStore, facilities FacilityStore, perms PermissionStore, aud Auditor, pol policy.Policy, logger *zap.Logger) (*Records, error) {
	if st == nil {
		return nil, errors.New("record store is required")
	}
	if facilities == nil {
		return nil, errors.New("facility store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Records{store: st, facilities: facilities, permissions: perms, audit: orNop(aud), policy: pol, logger: logger}, nil
}

// List returns the records of one facility that a may see, each marked with
// whether a has opened it before.
func (s *Records) List(ctx context.Context, a auth.Actor, facilityID string) ([]model.RecordView, error) {
	scope, err := s.policy.RecordListScope(a, strings.TrimSpace(facilityID))
	if err != nil {
		return nil, err
	}
	recs, err := s.store.ListRecords(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	accessed := map[string]struct{}{}
	if s.permissions != nil {
		ids, err := s.permissions.AccessedRecordIDs(ctx, a.Who().UserID)
		if err != nil {
			s.logger.Warn("load accessed records failed", zap.Error(err))
		} else {
			accessed = ids
		}
	}
	out := make([]model.RecordView, 0, len(recs))
	for _, r := range recs {
		if !s.policy.VisibleInListing(a, r) {
			continue
		}
		_, seen := accessed[r.RecordID]
		out = append(out, model.RecordView{Record: r, IsAccessed: seen})
	}
	return out, nil
}

// Get returns one record a may read.
func (s *Records) Get(ctx context.Context, a auth.Actor, id string) (model.Record, error) {
	if err := auth.Require(a); err != nil {
		return model.Record{}, err
	}
	rec, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return model.Record{}, err
	}
	if err := s.policy.CanReadRecord(a, rec); err != nil {
		return model.Record{}, err
	}
	return rec, nil
}

// Create adds a record owned by the actor's facility and the actor.
func (s *Records) Create(ctx context.Context, a auth.Actor, in RecordInput) (model.Record, error) {
	if err := auth.Require(a); err != nil {
		return model.Record{}, err
	}
	level, err := model.ParseAccessLevel(in.AccessLevel)
	if err != nil {
		return model.Record{}, err
	}
	facilityID, err := s.policy.RecordCreateFacility(a, strings.TrimSpace(in.FacilityID), level)
	if err != nil {
		return model.Record{}, err
	}
	in.FileName = strings.TrimSpace(in.FileName)
	if err := required("file_name", in.FileName); err != nil {
		return model.Record{}, err
	}
	if err := checkFileURL(in.FileURL); err != nil {
		return model.Record{}, err
	}
	if auth.IsAdmin(a) {
		if _, err := s.facilities.GetFacility(ctx, facilityID); err != nil {
			if errors.Is(err, auth.ErrNotFound) {
				return model.Record{}, invalid("unknown facility %s", facilityID)
			}
			return model.Record{}, err
		}
	}
	rec, err := s.store.CreateRecord(ctx, store.NewRecord{
		FacilityID:  facilityID,
		CreatedBy:   a.Who().UserID,
		FileName:    in.FileName,
		FileCreator: strings.TrimSpace(in.FileCreator),
		Sharer:      strings.TrimSpace(in.Sharer),
		FileURL:     strings.TrimSpace(in.FileURL),
		AccessLevel: level,
	})
	if err != nil {
		return model.Record{}, fmt.Errorf("create record: %w", err)
	}
	s.audit.Record(ctx, audit.Event{
		Actor: a, FacilityID: rec.FacilityID,
		Action: model.ActionRecordCreate, TargetType: model.TargetRecord, TargetID: rec.RecordID,
		After: rec,
	})
	return rec, nil
}

// Update changes a record's descriptive fields.
func (s *Records) Update(ctx context.Context, a auth.Actor, id string, in RecordUpdate) (model.Record, error) {
	if err := auth.Require(a); err != nil {
		return model.Record{}, err
	}
	before, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return model.Record{}, err
	}
	patch := store.RecordPatch{
		FileName:    trimmed(in.FileName),
		FileCreator: trimmed(in.FileCreator),
		Sharer:      trimmed(in.Sharer),
		FileURL:     trimmed(in.FileURL),
	}
	var newLevel model.AccessLevel
	if in.AccessLevel != nil {
		if newLevel, err = model.ParseAccessLevel(*in.AccessLevel); err != nil {
			return model.Record{}, err
		}
		patch.AccessLevel = &newLevel
	}
	if err := s.policy.CanUpdateRecord(a, before, newLevel); err != nil {
		return model.Record{}, err
	}
	if patch.FileName != nil && *patch.FileName == "" {
		return model.Record{}, invalid("file_name cannot be empty")
	}
	if patch.FileURL != nil {
		if err := checkFileURL(*patch.FileURL); err != nil {
			return model.Record{}, err
		}
	}
	after, err := s.store.UpdateRecord(ctx, id, patch)
	if err != nil {
		return model.Record{}, fmt.Errorf("update record: %w", err)
	}
	s.audit.Record(ctx, audit.Event{
		Actor: a, FacilityID: after.FacilityID,
		Action: model.ActionRecordUpdate, TargetType: model.TargetRecord, TargetID: id,
		Before: before, After: after,
	})
	return after, nil
}

// Delete soft-deletes a record.
func (s *Records) Delete(ctx context.Context, a auth.Actor, id string) error {
	if err := auth.Require(a); err != nil {
		return err
	}
	before, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return err
	}
	if err := s.policy.CanDeleteRecord(a, before); err != nil {
		return err
	}
	after, err := s.store.SoftDeleteRecord(ctx, id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	s.audit.Record(ctx, audit.Event{
		Actor: a, FacilityID: before.FacilityID,
		Action: model.ActionRecordDelete, TargetType: model.TargetRecord, TargetID: id,
		Before: before, After: after,
	})
	return nil
}
