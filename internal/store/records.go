package store

import (
	"context"
	"fmt"
	"strings"

	"sheetshare.org/internal/auth"
	"sheetshare.org/internal/ids"
	"sheetshare.org/internal/model"
)

// NewRecord is the input for CreateRecord. FacilityID and CreatedBy come from
// the acting user, never from a request payload.
type NewRecord struct {
	FacilityID  string
	CreatedBy   string
	FileName    string
	FileCreator string
	Sharer      string
	FileURL     string
	AccessLevel model.AccessLevel
}

// RecordPatch carries the only record fields an update may change. The
// identity and ownership columns have no counterpart here.
type RecordPatch struct {
	FileName    *string
	FileCreator *string
	Sharer      *string
	FileURL     *string
	AccessLevel *model.AccessLevel
}

func recordFromRow(r Row) model.Record {
	level := model.AccessLevel(strings.TrimSpace(r["access_level"]))
	if level == "" {
		level = model.AccessEditable
	}
	return model.Record{
		RecordID:    r["record_id"],
		FacilityID:  r["facility_id"],
		FileName:    r["file_name"],
		FileCreator: r["file_creator"],
		Sharer:      r["sharer"],
		FileURL:     r["file_url"],
		AccessLevel: level,
		CreatedAt:   parseTime(r["created_at"]),
		CreatedBy:   r["created_by"],
		UpdatedAt:   parseTime(r["updated_at"]),
		Deleted:     parseBool(r["deleted_flag"]),
	}
}

// ListRecords returns the live records of one facility.
func (s *Store) ListRecords(ctx context.Context, facilityID string) ([]model.Record, error) {
	rows, err := s.records.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Record, 0, len(rows))
	for _, r := range rows {
		if r["facility_id"] != facilityID || parseBool(r["deleted_flag"]) {
			continue
		}
		out = append(out, recordFromRow(r))
	}
	return out, nil
}

// GetRecord returns a live record.
func (s *Store) GetRecord(ctx context.Context, id string) (model.Record, error) {
	r, ok, err := s.records.Find(ctx, "record_id", id)
	if err != nil {
		return model.Record{}, err
	}
	if !ok || parseBool(r["deleted_flag"]) {
		return model.Record{}, fmt.Errorf("%w: record %s", auth.ErrNotFound, id)
	}
	return recordFromRow(r), nil
}

// CreateRecord appends a live record.
func (s *Store) CreateRecord(ctx context.Context, in NewRecord) (model.Record, error) {
	now, ts := s.timestamp()
	level := in.AccessLevel
	if level == "" {
		level = model.AccessEditable
	}
	rec := model.Record{
		RecordID:    ids.NewUUID(),
		FacilityID:  in.FacilityID,
		FileName:    in.FileName,
		FileCreator: in.FileCreator,
		Sharer:      in.Sharer,
		FileURL:     in.FileURL,
		AccessLevel: level,
		CreatedAt:   now,
		CreatedBy:   in.CreatedBy,
		UpdatedAt:   now,
	}
	err := s.records.Append(ctx, Row{
		"record_id":    rec.RecordID,
		"facility_id":  rec.FacilityID,
		"file_name":    rec.FileName,
		"file_creator": rec.FileCreator,
		"sharer":       rec.Sharer,
		"file_url":     rec.FileURL,
		"access_level": string(rec.AccessLevel),
		"created_at":   ts,
		"created_by":   rec.CreatedBy,
		"updated_at":   ts,
		"deleted_flag": formatBool(false),
	})
	if err != nil {
		return model.Record{}, err
	}
	return rec, nil
}

// UpdateRecord applies patch to a live record.
func (s *Store) UpdateRecord(ctx context.Context, id string, patch RecordPatch) (model.Record, error) {
	if _, err := s.GetRecord(ctx, id); err != nil {
		return model.Record{}, err
	}
	_, ts := s.timestamp()
	row := Row{"updated_at": ts}
	if patch.FileName != nil {
		row["file_name"] = *patch.FileName
	}
	if patch.FileCreator != nil {
		row["file_creator"] = *patch.FileCreator
	}
	if patch.Sharer != nil {
		row["sharer"] = *patch.Sharer
	}
	if patch.FileURL != nil {
		row["file_url"] = *patch.FileURL
	}
	if patch.AccessLevel != nil {
		row["access_level"] = string(*patch.AccessLevel)
	}
	merged, err := s.records.Put(ctx, "record_id", id, row)
	if err != nil {
		return model.Record{}, err
	}
	return recordFromRow(merged), nil
}

// SoftDeleteRecord sets deleted_flag on a live record.
func (s *Store) SoftDeleteRecord(ctx context.Context, id string) (model.Record, error) {
	if _, err := s.GetRecord(ctx, id); err != nil {
		return model.Record{}, err
	}
	_, ts := s.timestamp()
	merged, err := s.records.Put(ctx, "record_id", id, Row{
		"deleted_flag": formatBool(true),
		"updated_at":   ts,
	})
	if err != nil {
		return model.Record{}, err
	}
	return recordFromRow(merged), nil
}
