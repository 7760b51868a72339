// Package migrate brings a spreadsheet up to the application's sheet layout and
// bootstraps the root administrator.
package migrate

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"sheetshare.org/internal/audit"
	"sheetshare.org/internal/auth"
	"sheetshare.org/internal/model"
	"sheetshare.org/internal/policy"
	"sheetshare.org/internal/store"
)

// Users is the store surface ResetRootAdmin needs.
type Users interface {
	GetUserByLoginID(ctx context.Context, loginID string) (model.User, error)
	CreateUser(ctx context.Context, in store.NewUser) (model.User, error)
	UpdateUser(ctx context.Context, id string, patch store.UserPatch) (model.User, error)
}

// Auditor records the admin bootstrap.
type Auditor interface {
	Record(ctx context.Context, ev audit.Event)
}

// Manager applies the sheet schema to a grid.
type Manager struct {
	grid   store.Grid
	schema []store.SheetSchema
	audit  Auditor
	logger *zap.Logger
}

// Option configures Manager.
type Option func(*Manager)

// WithSchema overrides the sheet layout, mainly for tests.
func WithSchema(schema []store.SheetSchema) Option {
	return func(m *Manager) {
		if len(schema) > 0 {
			m.schema = schema
		}
	}
}

// WithAuditor records INIT_ADMIN events.
func WithAuditor(a Auditor) Option {
	return func(m *Manager) { m.audit = a }
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager constructs a Manager.
func NewManager(grid store.Grid, opts ...Option) *Manager {
	m := &Manager{
		grid:   grid,
		schema: store.Schema(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Change describes what Up did to one sheet.
type Change struct {
	Sheet        string
	Created      bool
	AddedColumns []string
	Backfilled   int
}

// Up creates missing sheets, writes missing headers, appends missing columns
// and fills blank cells of defaulted columns. Running it twice is a no-op.
func (m *Manager) Up(ctx context.Context) ([]Change, error) {
	existing, err := m.grid.Sheets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sheets: %w", err)
	}
	var changes []Change
	for _, sh := range m.schema {
		ch, err := m.apply(ctx, sh, slices.Contains(existing, sh.Name))
		if err != nil {
			return changes, fmt.Errorf("migrate sheet %s: %w", sh.Name, err)
		}
		if ch.Created || len(ch.AddedColumns) > 0 || ch.Backfilled > 0 {
			m.logger.Info("sheet migrated",
				zap.String("sheet", ch.Sheet),
				zap.Bool("created", ch.Created),
				zap.Strings("added_columns", ch.AddedColumns),
				zap.Int("backfilled_rows", ch.Backfilled),
			)
			changes = append(changes, ch)
		}
	}
	return changes, nil
}

func (m *Manager) apply(ctx context.Context, sh store.SheetSchema, exists bool) (Change, error) {
	ch := Change{Sheet: sh.Name}
	if !exists {
		if err := m.grid.AddSheet(ctx, sh.Name); err != nil {
			return ch, err
		}
		ch.Created = true
	}
	rows, err := m.grid.Read(ctx, sh.Name)
	if err != nil {
		return ch, err
	}
	if len(rows) == 0 || isBlank(rows[0]) {
		if err := m.grid.WriteRow(ctx, sh.Name, 1, sh.Columns); err != nil {
			return ch, err
		}
		ch.AddedColumns = append([]string(nil), sh.Columns...)
		if len(rows) <= 1 {
			return ch, nil
		}
		rows[0] = append([]string(nil), sh.Columns...)
	}

	header := normalize(rows[0])
	for _, col := range sh.Columns {
		if !slices.Contains(header, col) {
			header = append(header, col)
			ch.AddedColumns = append(ch.AddedColumns, col)
		}
	}

	changed := len(ch.AddedColumns) > 0
	for i := 1; i < len(rows); i++ {
		if isBlank(rows[i]) {
			continue
		}
		row := rows[i]
		for len(row) < len(header) {
			row = append(row, "")
		}
		filled := false
		for j, col := range header {
			def, ok := sh.Defaults[col]
			if ok && strings.TrimSpace(row[j]) == "" {
				row[j] = def
				filled = true
			}
		}
		if filled {
			ch.Backfilled++
			changed = true
		}
		rows[i] = row
	}
	if !changed {
		return ch, nil
	}
	rows[0] = header
	return ch, m.grid.Replace(ctx, sh.Name, rows)
}

// SheetStatus reports how far a sheet is from the expected layout.
type SheetStatus struct {
	Name           string
	Exists         bool
	MissingColumns []string
	Rows           int
}

// OK reports whether the sheet needs no migration.
func (s SheetStatus) OK() bool { return s.Exists && len(s.MissingColumns) == 0 }

// Status compares every sheet with the schema without changing anything.
func (m *Manager) Status(ctx context.Context) ([]SheetStatus, error) {
	existing, err := m.grid.Sheets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sheets: %w", err)
	}
	out := make([]SheetStatus, 0, len(m.schema))
	for _, sh := range m.schema {
		st := SheetStatus{Name: sh.Name}
		if !slices.Contains(existing, sh.Name) {
			st.MissingColumns = append([]string(nil), sh.Columns...)
			out = append(out, st)
			continue
		}
		st.Exists = true
		rows, err := m.grid.Read(ctx, sh.Name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", sh.Name, err)
		}
		var header []string
		if len(rows) > 0 {
			header = normalize(rows[0])
			for _, r := range rows[1:] {
				if !isBlank(r) {
					st.Rows++
				}
			}
		}
		for _, col := range sh.Columns {
			if !slices.Contains(header, col) {
				st.MissingColumns = append(st.MissingColumns, col)
			}
		}
		out = append(out, st)
	}
	return out, nil
}

// AdminReset is the outcome of ResetRootAdmin. Password is only set when it
// was generated.
type AdminReset struct {
	UserID   string
	LoginID  string
	Password string
	Created  bool
}

// ResetRootAdmin creates the root administrator, or restores its role,
// facility and password if it exists. An empty password is replaced by a
// random one, returned in the result.
func (m *Manager) ResetRootAdmin(ctx context.Context, users Users, loginID, password string) (AdminReset, error) {
	loginID = strings.TrimSpace(loginID)
	if loginID == "" {
		loginID = policy.DefaultRootLoginID
	}
	res := AdminReset{LoginID: loginID}
	if password == "" {
		generated, err := randomPassword()
		if err != nil {
			return res, err
		}
		password = generated
		res.Password = generated
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return res, fmt.Errorf("hash password: %w", err)
	}

	var before, after model.User
	existing, err := users.GetUserByLoginID(ctx, loginID)
	switch {
	case err == nil:
		role, facility := auth.RoleAdmin, auth.SystemFacilityID
		before = existing
		after, err = users.UpdateUser(ctx, existing.UserID, store.UserPatch{
			Role:         &role,
			FacilityID:   &facility,
			PasswordHash: &hash,
		})
		if err != nil {
			return res, fmt.Errorf("reset admin: %w", err)
		}
	case errors.Is(err, auth.ErrNotFound):
		after, err = users.CreateUser(ctx, store.NewUser{
			FacilityID:   auth.SystemFacilityID,
			LoginID:      loginID,
			PasswordHash: hash,
			Role:         auth.RoleAdmin,
		})
		if err != nil {
			return res, fmt.Errorf("create admin: %w", err)
		}
		res.Created = true
	default:
		return res, fmt.Errorf("load admin: %w", err)
	}
	res.UserID = after.UserID

	if m.audit != nil {
		ev := audit.Event{
			Actor:      auth.GlobalAdmin{Principal: after.Principal()},
			FacilityID: auth.SystemFacilityID,
			Action:     model.ActionInitAdmin,
			TargetType: model.TargetUser,
			TargetID:   after.UserID,
			After:      after,
		}
		if !res.Created {
			ev.Before = before
		}
		m.audit.Record(ctx, ev)
	}
	m.logger.Info("root admin reset", zap.String("login_id", loginID), zap.Bool("created", res.Created))
	return res, nil
}

func randomPassword() (string, error) {
	buf := make([]byte, 18)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func normalize(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.TrimSpace(h)
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}

func isBlank(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
