package xlsx

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetshare.org/internal/model"
	"sheetshare.org/internal/store"
)

func TestWorkbookBacksStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "share.xlsx")

	g, err := Open(path)
	require.NoError(t, err)
	for _, sh := range store.Schema() {
		require.NoError(t, g.AddSheet(ctx, sh.Name))
		require.NoError(t, g.Replace(ctx, sh.Name, [][]string{sh.Columns}))
	}

	s := store.New(g)
	rec, err := s.CreateRecord(ctx, store.NewRecord{FacilityID: "f1", CreatedBy: "u1", FileName: "0012", FileURL: "https://drive.google.com/file/d/abc/view"})
	require.NoError(t, err)
	level := model.AccessViewOnly
	_, err = s.UpdateRecord(ctx, rec.RecordID, store.RecordPatch{AccessLevel: &level})
	require.NoError(t, err)
	require.NoError(t, g.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	got, err := store.New(reopened).GetRecord(ctx, rec.RecordID)
	require.NoError(t, err)
	assert.Equal(t, "0012", got.FileName, "cells are stored as text")
	assert.Equal(t, model.AccessViewOnly, got.AccessLevel)
	assert.False(t, got.Deleted)
}

func TestMissingSheet(t *testing.T) {
	g, err := Open(filepath.Join(t.TempDir(), "empty.xlsx"))
	require.NoError(t, err)
	_, err = g.Read(context.Background(), "records")
	require.ErrorIs(t, err, store.ErrSheetNotFound)
}
