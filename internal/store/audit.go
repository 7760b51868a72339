package store

import (
	"context"
	"errors"

	"sheetshare.org/internal/auth"
	"sheetshare.org/internal/ids"
	"sheetshare.org/internal/model"
)

// AppendAuditLog appends an immutable audit row. Audit rows are never updated.
func (s *Store) AppendAuditLog(ctx context.Context, entry model.AuditLog) error {
	if entry.LogID == "" {
		entry.LogID = ids.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp, _ = s.timestamp()
	}
	return s.auditLogs.Append(ctx, Row{
		"log_id":      entry.LogID,
		"timestamp":   formatTime(entry.Timestamp),
		"user_id":     entry.UserID,
		"facility_id": entry.FacilityID,
		"action":      entry.Action,
		"target_type": entry.TargetType,
		"target_id":   entry.TargetID,
		"before_json": entry.BeforeJSON,
		"after_json":  entry.AfterJSON,
		"ip":          entry.IP,
		"user_agent":  entry.UserAgent,
	})
}

// AuditLogs returns every audit row in sheet order.
func (s *Store) AuditLogs(ctx context.Context) ([]model.AuditLog, error) {
	rows, err := s.auditLogs.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.AuditLog, len(rows))
	for i, r := range rows {
		out[i] = model.AuditLog{
			LogID:      r["log_id"],
			Timestamp:  parseTime(r["timestamp"]),
			UserID:     r["user_id"],
			FacilityID: r["facility_id"],
			Action:     r["action"],
			TargetType: r["target_type"],
			TargetID:   r["target_id"],
			BeforeJSON: r["before_json"],
			AfterJSON:  r["after_json"],
			IP:         r["ip"],
			UserAgent:  r["user_agent"],
		}
	}
	return out, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, auth.ErrNotFound)
}
