package migrate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetshare.org/internal/audit"
	"sheetshare.org/internal/auth"
	"sheetshare.org/internal/model"
	"sheetshare.org/internal/policy"
	"sheetshare.org/internal/store"
)

type captureAuditor struct{ events []audit.Event }

func (c *captureAuditor) Record(_ context.Context, ev audit.Event) { c.events = append(c.events, ev) }

func TestUpCreatesEverySheet(t *testing.T) {
	ctx := context.Background()
	grid := store.NewMemoryGrid()
	m := NewManager(grid)

	changes, err := m.Up(ctx)
	require.NoError(t, err)
	require.Len(t, changes, len(store.Schema()))
	for _, ch := range changes {
		assert.True(t, ch.Created, ch.Sheet)
	}

	for _, sh := range store.Schema() {
		header, err := grid.Header(ctx, sh.Name)
		require.NoError(t, err)
		assert.Equal(t, sh.Columns, header)
	}

	changes, err = m.Up(ctx)
	require.NoError(t, err)
	assert.Empty(t, changes)

	status, err := m.Status(ctx)
	require.NoError(t, err)
	for _, st := range status {
		assert.True(t, st.OK(), st.Name)
	}
}

func TestUpAddsColumnsAndBackfills(t *testing.T) {
	ctx := context.Background()
	grid := store.NewSchemaMemoryGrid()
	require.NoError(t, grid.Replace(ctx, store.SheetRecords, [][]string{
		{"record_id", "facility_id", "file_name", "file_url", "deleted_flag"},
		{"r1", "f1", "plan", "https://example.com/d/1"},
		{"", "", "", ""},
		{"r2", "f1", "intake-roster", "https://example.com/d/2", "TRUE"},
	}))
	m := NewManager(grid)

	status, err := m.Status(ctx)
	require.NoError(t, err)
	for _, st := range status {
		if st.Name == store.SheetRecords {
			assert.False(t, st.OK())
			assert.Contains(t, st.MissingColumns, "access_level")
			assert.Equal(t, 2, st.Rows)
		}
	}

	changes, err := m.Up(ctx)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, store.SheetRecords, changes[0].Sheet)
	assert.Contains(t, changes[0].AddedColumns, "access_level")
	assert.Equal(t, 2, changes[0].Backfilled)

	rows, err := store.NewTable(grid, store.SheetRecords).All(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "editable", rows[0]["access_level"])
	assert.Equal(t, "false", rows[0]["deleted_flag"])
	assert.Equal(t, "TRUE", rows[1]["deleted_flag"])
	assert.Equal(t, "plan", rows[0]["file_name"])

	// The migrated sheet is readable through the store.
	rec, err := store.New(grid).GetRecord(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, model.AccessEditable, rec.AccessLevel)
	_, err = store.New(grid).GetRecord(ctx, "r2")
	require.ErrorIs(t, err, auth.ErrNotFound)
}

func TestResetRootAdmin(t *testing.T) {
	ctx := context.Background()
	grid := store.NewSchemaMemoryGrid()
	st := store.New(grid)
	aud := &captureAuditor{}
	m := NewManager(grid, WithAuditor(aud))

	res, err := m.ResetRootAdmin(ctx, st, "", "")
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, policy.DefaultRootLoginID, res.LoginID)
	require.NotEmpty(t, res.Password)

	u, err := st.GetUserByLoginID(ctx, policy.DefaultRootLoginID)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, u.Role)
	assert.Equal(t, auth.SystemFacilityID, u.FacilityID)
	require.NoError(t, auth.VerifyPassword(u.PasswordHash, res.Password))

	// Demote the admin, then reset with an explicit password.
	role, facility := auth.RoleFacilityViewer, "f1"
	_, err = st.UpdateUser(ctx, u.UserID, store.UserPatch{Role: &role, FacilityID: &facility})
	require.NoError(t, err)

	res, err = m.ResetRootAdmin(ctx, st, policy.DefaultRootLoginID, "new-password")
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Empty(t, res.Password)
	assert.Equal(t, u.UserID, res.UserID)

	u, err = st.GetUserByLoginID(ctx, policy.DefaultRootLoginID)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, u.Role)
	assert.Equal(t, auth.SystemFacilityID, u.FacilityID)
	require.NoError(t, auth.VerifyPassword(u.PasswordHash, "new-password"))

	require.Len(t, aud.events, 2)
	for _, ev := range aud.events {
		assert.Equal(t, model.ActionInitAdmin, ev.Action)
		assert.Equal(t, u.UserID, ev.TargetID)
	}
}
