package store

import (
	"strings"
	"time"
)

const timeLayout = time.RFC3339Nano

// Store implements typed CRUD for every entity over a Grid. Reads of
// facilities and users skip inactive rows; reads of records skip deleted ones.
type Store struct {
	facilities  *Table
	users       *Table
	records     *Table
	permissions *Table
	auditLogs   *Table
	now         func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New binds a Store to grid.
func New(grid Grid, opts ...Option) *Store {
	s := &Store{
		facilities:  NewTable(grid, SheetFacilities),
		users:       NewTable(grid, SheetUsers),
		records:     NewTable(grid, SheetRecords),
		permissions: NewTable(grid, SheetPermissions),
		auditLogs:   NewTable(grid, SheetAuditLogs),
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) timestamp() (time.Time, string) {
	now := s.now().UTC()
	return now, now.Format(timeLayout)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func parseBool(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), "true")
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
