package store

import (
	"context"

	"sheetshare.org/internal/ids"
	"sheetshare.org/internal/model"
)

// TouchPermission finds the (user, record) permission row and refreshes its
// last_accessed_at, or appends one when none exists. Two concurrent first
// touches may both append; readers treat duplicates as one.
func (s *Store) TouchPermission(ctx context.Context, userID, recordID string) (model.UserPermission, error) {
	rows, err := s.permissions.All(ctx)
	if err != nil {
		return model.UserPermission{}, err
	}
	now, ts := s.timestamp()
	for _, r := range rows {
		if r["user_id"] != userID || r["record_id"] != recordID {
			continue
		}
		merged, err := s.permissions.Put(ctx, "permission_id", r["permission_id"], Row{"last_accessed_at": ts})
		if err != nil {
			return model.UserPermission{}, err
		}
		return permissionFromRow(merged), nil
	}
	p := model.UserPermission{
		PermissionID:   ids.NewUUID(),
		UserID:         userID,
		RecordID:       recordID,
		LastAccessedAt: now,
	}
	err = s.permissions.Append(ctx, Row{
		"permission_id":    p.PermissionID,
		"user_id":          p.UserID,
		"record_id":        p.RecordID,
		"last_accessed_at": ts,
	})
	if err != nil {
		return model.UserPermission{}, err
	}
	return p, nil
}

// AccessedRecordIDs returns the set of record ids userID has been granted.
func (s *Store) AccessedRecordIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	rows, err := s.permissions.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{})
	for _, r := range rows {
		if r["user_id"] == userID {
			out[r["record_id"]] = struct{}{}
		}
	}
	return out, nil
}

// Permissions returns every permission row of userID.
func (s *Store) Permissions(ctx context.Context, userID string) ([]model.UserPermission, error) {
	rows, err := s.permissions.All(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.UserPermission
	for _, r := range rows {
		if r["user_id"] == userID {
			out = append(out, permissionFromRow(r))
		}
	}
	return out, nil
}

func permissionFromRow(r Row) model.UserPermission {
	return model.UserPermission{
		PermissionID:   r["permission_id"],
		UserID:         r["user_id"],
		RecordID:       r["record_id"],
		LastAccessedAt: parseTime(r["last_accessed_at"]),
	}
}
