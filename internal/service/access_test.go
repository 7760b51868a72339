package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"sheetshare.org/internal/auth"
	"sheetshare.org/internal/fileshare"
	"sheetshare.org/internal/model"
	"sheetshare.org/internal/store"
)

func TestGrantWritesPermissionAndRedirect(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	editor := e.seedUser(t, "north-editor", auth.RoleFacilityEditor, e.north.FacilityID, "ne@gmail.com")
	rec := e.seedRecord(t, editor, e.north.FacilityID, model.AccessEditable)

	g, err := e.access.Grant(ctx, editor, rec.RecordID)
	require.NoError(t, err)
	require.Equal(t, "file-editable", g.FileID)
	require.Equal(t, rec.FileURL, g.RedirectURL)
	require.Equal(t, fileshare.LevelWriter, g.Level)
	require.False(t, g.AlreadyGranted)
	require.Equal(t, []grantCall{{fileID: "file-editable", email: "ne@gmail.com", level: fileshare.LevelWriter}}, e.granter.calls)

	perms, err := e.store.Permissions(ctx, editor.Who().UserID)
	require.NoError(t, err)
	require.Len(t, perms, 1)

	// A second request converges on the same state.
	e.granter.err = fileshare.ErrAlreadyGranted
	g, err = e.access.Grant(ctx, editor, rec.RecordID)
	require.NoError(t, err)
	require.True(t, g.AlreadyGranted)
	perms, err = e.store.Permissions(ctx, editor.Who().UserID)
	require.NoError(t, err)
	require.Len(t, perms, 1)

	require.Empty(t, e.audit.actions())
}

func TestGrantLevels(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	editor := e.seedUser(t, "north-editor", auth.RoleFacilityEditor, e.north.FacilityID, "ne@gmail.com")
	viewer := e.seedUser(t, "north-viewer", auth.RoleFacilityViewer, e.north.FacilityID, "nv@gmail.com")
	editable := e.seedRecord(t, editor, e.north.FacilityID, model.AccessEditable)
	viewOnly := e.seedRecord(t, editor, e.north.FacilityID, model.AccessViewOnly)

	cases := []struct {
		actor auth.Actor
		rec   model.Record
		want  fileshare.Level
	}{
		{viewer, editable, fileshare.LevelReader},
		{editor, viewOnly, fileshare.LevelReader},
		{editor, editable, fileshare.LevelWriter},
		{e.root, viewOnly, fileshare.LevelWriter},
	}
	for _, tc := range cases {
		g, err := e.access.Grant(ctx, tc.actor, tc.rec.RecordID)
		require.NoError(t, err)
		require.Equal(t, tc.want, g.Level, tc.actor.Who().LoginID)
	}
}

func TestGrantPreconditionsSkipExternalCall(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	unlinked := e.seedUser(t, "north-editor", auth.RoleFacilityEditor, e.north.FacilityID, "")
	viewer := e.seedUser(t, "north-viewer", auth.RoleFacilityViewer, e.north.FacilityID, "nv@gmail.com")
	rec := e.seedRecord(t, unlinked, e.north.FacilityID, model.AccessEditable)
	adminOnly := e.seedRecord(t, e.root, e.north.FacilityID, model.AccessAdminOnly)
	badURL, err := e.store.CreateRecord(ctx, store.NewRecord{
		FacilityID: e.north.FacilityID, CreatedBy: unlinked.Who().UserID, FileName: "x", FileURL: "https://example.com/nothing",
	})
	require.NoError(t, err)

	_, err = e.access.Grant(ctx, nil, rec.RecordID)
	require.ErrorIs(t, err, auth.ErrUnauthenticated)

	_, err = e.access.Grant(ctx, unlinked, rec.RecordID)
	require.ErrorIs(t, err, ErrGoogleEmailNotLinked)

	_, err = e.access.Grant(ctx, viewer, "missing")
	require.ErrorIs(t, err, auth.ErrNotFound)

	_, err = e.access.Grant(ctx, viewer, adminOnly.RecordID)
	require.ErrorIs(t, err, auth.ErrForbidden)

	_, err = e.access.Grant(ctx, viewer, badURL.RecordID)
	require.ErrorIs(t, err, ErrInvalidFileURL)

	ghost := auth.TenantActor{Principal: auth.Principal{UserID: "gone"}, FacilityID: e.north.FacilityID, TenantRole: auth.RoleFacilityViewer}
	_, err = e.access.Grant(ctx, ghost, rec.RecordID)
	require.ErrorIs(t, err, auth.ErrUnauthenticated)

	require.Empty(t, e.granter.calls)
	perms, err := e.store.Permissions(ctx, viewer.Who().UserID)
	require.NoError(t, err)
	require.Empty(t, perms)
}

func TestGrantProviderFailure(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	editor := e.seedUser(t, "north-editor", auth.RoleFacilityEditor, e.north.FacilityID, "ne@gmail.com")
	rec := e.seedRecord(t, editor, e.north.FacilityID, model.AccessEditable)
	e.granter.err = errors.New("drive: 500 backend error")

	_, err := e.access.Grant(ctx, editor, rec.RecordID)
	require.ErrorIs(t, err, auth.ErrInternal)
	require.Contains(t, err.Error(), "failed to grant permission")

	perms, err := e.store.Permissions(ctx, editor.Who().UserID)
	require.NoError(t, err)
	require.Empty(t, perms)
}

func TestLocate(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	editor := e.seedUser(t, "north-editor", auth.RoleFacilityEditor, e.north.FacilityID, "")
	southViewer := e.seedUser(t, "south-viewer", auth.RoleFacilityViewer, e.south.FacilityID, "")
	rec := e.seedRecord(t, editor, e.north.FacilityID, model.AccessViewOnly)

	u, err := e.access.Locate(ctx, editor, rec.RecordID)
	require.NoError(t, err)
	require.Equal(t, rec.FileURL, u)

	_, err = e.access.Locate(ctx, southViewer, rec.RecordID)
	require.ErrorIs(t, err, auth.ErrForbidden)
	require.Empty(t, e.granter.calls)
}
