package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"sheetshare.org/internal/model"
)

const createAuditTable = `
CREATE TABLE IF NOT EXISTS audit_logs (
	log_id      TEXT PRIMARY KEY,
	ts          TIMESTAMPTZ NOT NULL,
	user_id     TEXT NOT NULL,
	facility_id TEXT NOT NULL,
	action      TEXT NOT NULL,
	target_type TEXT NOT NULL,
	target_id   TEXT NOT NULL,
	before_json JSONB,
	after_json  JSONB,
	ip          TEXT,
	user_agent  TEXT
);
CREATE INDEX IF NOT EXISTS idx_audit_logs_target ON audit_logs(target_type, target_id);
CREATE INDEX IF NOT EXISTS idx_audit_logs_facility_ts ON audit_logs(facility_id, ts DESC);
`

const insertAuditRow = `
INSERT INTO audit_logs (
	log_id, ts, user_id, facility_id, action, target_type, target_id,
	before_json, after_json, ip, user_agent
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (log_id) DO NOTHING`

// SQLSink mirrors audit entries into PostgreSQL. The sheet stays the system of
// record; this copy exists for querying.
type SQLSink struct {
	db *sql.DB
}

// NewSQLSink creates the audit table if needed.
func NewSQLSink(ctx context.Context, db *sql.DB) (*SQLSink, error) {
	if db == nil {
		return nil, errors.New("database connection is required")
	}
	if _, err := db.ExecContext(ctx, createAuditTable); err != nil {
		return nil, fmt.Errorf("ensure audit_logs table: %w", err)
	}
	return &SQLSink{db: db}, nil
}

func (*SQLSink) Name() string { return "postgres" }

func (s *SQLSink) Write(ctx context.Context, entry model.AuditLog) error {
	_, err := s.db.ExecContext(ctx, insertAuditRow,
		entry.LogID, entry.Timestamp, entry.UserID, entry.FacilityID, entry.Action,
		entry.TargetType, entry.TargetID,
		nullable(entry.BeforeJSON), nullable(entry.AfterJSON),
		entry.IP, entry.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
