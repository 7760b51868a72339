package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetshare.org/internal/auth"
	"sheetshare.org/internal/fileshare"
	"sheetshare.org/internal/model"
)

var (
	pol = New("")

	root  = auth.GlobalAdmin{Principal: auth.Principal{UserID: "root", LoginID: DefaultRootLoginID}}
	admin = auth.GlobalAdmin{Principal: auth.Principal{UserID: "adm", LoginID: "ops"}}

	fAdminA  = tenant("fa-a", "A", auth.RoleFacilityAdmin)
	editorA  = tenant("ed-a", "A", auth.RoleFacilityEditor)
	editorA2 = tenant("ed-a2", "A", auth.RoleFacilityEditor)
	viewerA  = tenant("vw-a", "A", auth.RoleFacilityViewer)
	editorB  = tenant("ed-b", "B", auth.RoleFacilityEditor)
)

func tenant(id, facility string, role auth.Role) auth.TenantActor {
	return auth.TenantActor{Principal: auth.Principal{UserID: id, LoginID: id}, FacilityID: facility, TenantRole: role}
}

func record(facility, createdBy string, level model.AccessLevel) model.Record {
	return model.Record{RecordID: "r", FacilityID: facility, CreatedBy: createdBy, AccessLevel: level}
}

func TestRecordListScope(t *testing.T) {
	_, err := pol.RecordListScope(admin, "")
	require.ErrorIs(t, err, auth.ErrInvalidInput)

	got, err := pol.RecordListScope(admin, "B")
	require.NoError(t, err)
	assert.Equal(t, "B", got)

	got, err = pol.RecordListScope(viewerA, "")
	require.NoError(t, err)
	assert.Equal(t, "A", got)

	_, err = pol.RecordListScope(viewerA, "B")
	require.ErrorIs(t, err, auth.ErrForbidden)

	_, err = pol.RecordListScope(nil, "A")
	require.ErrorIs(t, err, auth.ErrUnauthenticated)
}

func TestTenantIsolationOnEveryRecordOperation(t *testing.T) {
	recB := record("B", "ed-b", model.AccessEditable)
	for _, a := range []auth.Actor{fAdminA, editorA, viewerA} {
		require.ErrorIs(t, pol.CanReadRecord(a, recB), auth.ErrForbidden)
		require.ErrorIs(t, pol.CanUpdateRecord(a, recB, ""), auth.ErrForbidden)
		require.ErrorIs(t, pol.CanDeleteRecord(a, recB), auth.ErrForbidden)
		assert.False(t, pol.VisibleInListing(a, recB))
	}
	_, err := pol.RecordCreateFacility(editorA, "B", model.AccessEditable)
	require.ErrorIs(t, err, auth.ErrForbidden)
}

func TestAdminOnlyInvisibleToNonAdmins(t *testing.T) {
	rec := record("A", "adm", model.AccessAdminOnly)
	for _, a := range []auth.Actor{fAdminA, editorA, viewerA} {
		assert.False(t, pol.VisibleInListing(a, rec))
		require.ErrorIs(t, pol.CanReadRecord(a, rec), auth.ErrForbidden)
	}
	assert.True(t, pol.VisibleInListing(admin, rec))
	require.NoError(t, pol.CanReadRecord(admin, rec))

	_, err := pol.RecordCreateFacility(fAdminA, "", model.AccessAdminOnly)
	require.ErrorIs(t, err, auth.ErrForbidden)
	own := record("A", "ed-a", model.AccessEditable)
	require.ErrorIs(t, pol.CanUpdateRecord(editorA, own, model.AccessAdminOnly), auth.ErrForbidden)
	require.NoError(t, pol.CanUpdateRecord(admin, own, model.AccessAdminOnly))
}

func TestRecordCreateFacility(t *testing.T) {
	got, err := pol.RecordCreateFacility(editorA, "", model.AccessEditable)
	require.NoError(t, err)
	assert.Equal(t, "A", got)

	got, err = pol.RecordCreateFacility(editorA, "A", model.AccessViewOnly)
	require.NoError(t, err)
	assert.Equal(t, "A", got)

	_, err = pol.RecordCreateFacility(viewerA, "", model.AccessEditable)
	require.ErrorIs(t, err, auth.ErrForbidden)

	_, err = pol.RecordCreateFacility(admin, "", model.AccessEditable)
	require.ErrorIs(t, err, auth.ErrInvalidInput)

	got, err = pol.RecordCreateFacility(admin, "B", model.AccessAdminOnly)
	require.NoError(t, err)
	assert.Equal(t, "B", got)
}

func TestCanUpdateRecordCreatorOrAdmin(t *testing.T) {
	rec := record("A", "ed-a", model.AccessEditable)
	require.NoError(t, pol.CanUpdateRecord(editorA, rec, ""))
	require.NoError(t, pol.CanUpdateRecord(admin, rec, ""))
	require.ErrorIs(t, pol.CanUpdateRecord(editorA2, rec, ""), auth.ErrForbidden)
	require.ErrorIs(t, pol.CanUpdateRecord(fAdminA, rec, ""), auth.ErrForbidden)
	require.ErrorIs(t, pol.CanUpdateRecord(viewerA, record("A", "vw-a", model.AccessEditable), ""), auth.ErrForbidden)
}

func TestCanDeleteRecordTiers(t *testing.T) {
	own := record("A", "ed-a", model.AccessEditable)
	require.NoError(t, pol.CanDeleteRecord(admin, own))
	require.NoError(t, pol.CanDeleteRecord(fAdminA, own))
	require.NoError(t, pol.CanDeleteRecord(editorA, own))
	require.ErrorIs(t, pol.CanDeleteRecord(editorA2, own), auth.ErrForbidden)
	require.ErrorIs(t, pol.CanDeleteRecord(viewerA, record("A", "vw-a", model.AccessEditable)), auth.ErrForbidden)
	require.ErrorIs(t, pol.CanDeleteRecord(editorB, own), auth.ErrForbidden)

	restricted := record("A", "root", model.AccessAdminOnly)
	require.NoError(t, pol.CanDeleteRecord(admin, restricted))
	require.NoError(t, pol.CanDeleteRecord(fAdminA, restricted))
	require.ErrorIs(t, pol.CanDeleteRecord(editorA, record("A", "ed-a", model.AccessAdminOnly)), auth.ErrForbidden)
	require.ErrorIs(t, pol.CanDeleteRecord(viewerA, restricted), auth.ErrForbidden)
	require.ErrorIs(t, pol.CanDeleteRecord(editorB, restricted), auth.ErrForbidden)
}

func TestGrantLevel(t *testing.T) {
	editable := record("A", "x", model.AccessEditable)
	viewOnly := record("A", "x", model.AccessViewOnly)

	assert.Equal(t, fileshare.LevelReader, pol.GrantLevel(viewerA, editable))
	assert.Equal(t, fileshare.LevelWriter, pol.GrantLevel(editorA, editable))
	assert.Equal(t, fileshare.LevelReader, pol.GrantLevel(editorA, viewOnly))
	assert.Equal(t, fileshare.LevelReader, pol.GrantLevel(fAdminA, viewOnly))
	assert.Equal(t, fileshare.LevelWriter, pol.GrantLevel(admin, viewOnly))
	assert.Equal(t, fileshare.LevelWriter, pol.GrantLevel(admin, record("A", "x", model.AccessAdminOnly)))
}

func TestUserListScope(t *testing.T) {
	_, all, err := pol.UserListScope(admin, "")
	require.NoError(t, err)
	assert.True(t, all)

	f, all, err := pol.UserListScope(admin, "B")
	require.NoError(t, err)
	assert.False(t, all)
	assert.Equal(t, "B", f)

	f, _, err = pol.UserListScope(fAdminA, "")
	require.NoError(t, err)
	assert.Equal(t, "A", f)

	_, _, err = pol.UserListScope(fAdminA, "B")
	require.ErrorIs(t, err, auth.ErrForbidden)
	_, _, err = pol.UserListScope(editorA, "")
	require.ErrorIs(t, err, auth.ErrForbidden)
}

func TestUserCreateFacility(t *testing.T) {
	f, err := pol.UserCreateFacility(admin, auth.RoleAdmin, "A")
	require.NoError(t, err)
	assert.Equal(t, auth.SystemFacilityID, f)

	_, err = pol.UserCreateFacility(admin, auth.RoleFacilityEditor, "")
	require.ErrorIs(t, err, auth.ErrInvalidInput)

	f, err = pol.UserCreateFacility(fAdminA, auth.RoleFacilityViewer, "")
	require.NoError(t, err)
	assert.Equal(t, "A", f)

	_, err = pol.UserCreateFacility(fAdminA, auth.RoleAdmin, "")
	require.ErrorIs(t, err, auth.ErrForbidden)
	_, err = pol.UserCreateFacility(fAdminA, auth.RoleFacilityViewer, "B")
	require.ErrorIs(t, err, auth.ErrForbidden)
	_, err = pol.UserCreateFacility(editorA, auth.RoleFacilityViewer, "")
	require.ErrorIs(t, err, auth.ErrForbidden)
	_, err = pol.UserCreateFacility(admin, auth.Role("owner"), "A")
	require.ErrorIs(t, err, auth.ErrInvalidInput)
}

func TestRootAdminIsUntouchable(t *testing.T) {
	rootUser := model.User{UserID: "root", LoginID: DefaultRootLoginID, Role: auth.RoleAdmin, FacilityID: auth.SystemFacilityID}
	for _, a := range []auth.Actor{root, admin, fAdminA, editorA} {
		require.ErrorIs(t, pol.CanModifyUser(a, rootUser, ""), auth.ErrForbidden)
	}
}

func TestAdminTargetsOnlyByRoot(t *testing.T) {
	other := model.User{UserID: "adm2", LoginID: "ops2", Role: auth.RoleAdmin, FacilityID: auth.SystemFacilityID}
	require.NoError(t, pol.CanModifyUser(root, other, ""))
	require.ErrorIs(t, pol.CanModifyUser(admin, other, ""), auth.ErrForbidden)
	require.ErrorIs(t, pol.CanModifyUser(fAdminA, other, ""), auth.ErrForbidden)
}

func TestFacilityAdminUserManagement(t *testing.T) {
	inA := model.User{UserID: "u", LoginID: "u", Role: auth.RoleFacilityEditor, FacilityID: "A"}
	inB := model.User{UserID: "v", LoginID: "v", Role: auth.RoleFacilityEditor, FacilityID: "B"}

	require.NoError(t, pol.CanModifyUser(fAdminA, inA, auth.RoleFacilityViewer))
	require.ErrorIs(t, pol.CanModifyUser(fAdminA, inA, auth.RoleAdmin), auth.ErrForbidden)
	require.ErrorIs(t, pol.CanModifyUser(fAdminA, inB, ""), auth.ErrForbidden)
	require.ErrorIs(t, pol.CanModifyUser(editorA, inA, ""), auth.ErrForbidden)
	require.NoError(t, pol.CanModifyUser(admin, inB, auth.RoleAdmin))
}

func TestCanManageFacilities(t *testing.T) {
	require.NoError(t, pol.CanManageFacilities(admin))
	require.ErrorIs(t, pol.CanManageFacilities(fAdminA), auth.ErrForbidden)
	require.ErrorIs(t, pol.CanManageFacilities(nil), auth.ErrUnauthenticated)
}

func TestCustomRootLogin(t *testing.T) {
	p := New("root-ops")
	assert.True(t, p.IsRootLogin("root-ops"))
	assert.False(t, p.IsRootLogin(DefaultRootLoginID))
	assert.False(t, p.IsRootLogin(""))
}
