package fileshare

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func TestExtractFileID(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"https://docs.google.com/spreadsheets/d/1AbC_x-9/edit#gid=0", "1AbC_x-9", true},
		{"https://drive.google.com/file/d/XYZ/view?usp=sharing", "XYZ", true},
		{"https://drive.google.com/open?id=QWE", "QWE", true},
		{"https://drive.google.com/file/d/PATH/view?id=QUERY", "QUERY", true},
		{"https://drive.google.com/drive/folders/abc", "", false},
		{"https://docs.google.com/spreadsheets/d/", "", false},
		{"not a url", "", false},
		{"://bad", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ExtractFileID(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func newDriveServer(t *testing.T, handler http.HandlerFunc) *GoogleDrive {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	d, err := NewGoogleDrive(context.Background(), option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return d
}

func TestGoogleDriveGrant(t *testing.T) {
	var got map[string]any
	var query string
	d := newDriveServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files/FILE/permissions", r.URL.Path)
		query = r.URL.RawQuery
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = io.WriteString(w, `{"id":"perm-1"}`)
	})

	require.NoError(t, d.Grant(context.Background(), "FILE", "bob@example.com", LevelReader))
	assert.Equal(t, "reader", got["role"])
	assert.Equal(t, "user", got["type"])
	assert.Equal(t, "bob@example.com", got["emailAddress"])
	assert.Contains(t, query, "sendNotificationEmail=false")
}

func TestGoogleDriveAlreadyGranted(t *testing.T) {
	d := newDriveServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, `{"error":{"code":409,"message":"Permission already exists","errors":[{"reason":"duplicate"}]}}`)
	})
	err := d.Grant(context.Background(), "FILE", "bob@example.com", LevelWriter)
	require.ErrorIs(t, err, ErrAlreadyGranted)
}

func TestGoogleDriveFailure(t *testing.T) {
	d := newDriveServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"error":{"code":403,"message":"The caller does not have permission","errors":[{"reason":"forbidden"}]}}`)
	})
	err := d.Grant(context.Background(), "FILE", "bob@example.com", LevelWriter)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAlreadyGranted)
	assert.Contains(t, err.Error(), "does not have permission")
}
