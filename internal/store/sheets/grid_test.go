package sheets

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"sheetshare.org/internal/store"
)

type fakeSheets struct {
	mu       sync.Mutex
	values   map[string][][]interface{}
	appended [][]interface{}
	updates  map[string][][]interface{}
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	const prefix = "/v4/spreadsheets/sheet-1/values/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.NotFound(w, r)
		return
	}
	rng := strings.TrimPrefix(r.URL.Path, prefix)
	switch {
	case r.Method == http.MethodGet:
		rows, ok := f.values[rng]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":{"code":400,"message":"Unable to parse range: `+rng+`","status":"INVALID_ARGUMENT"}}`)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"range": rng, "values": rows})
	case r.Method == http.MethodPost && strings.HasSuffix(rng, ":append"):
		var body struct {
			Values [][]interface{} `json:"values"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.appended = append(f.appended, body.Values...)
		_, _ = io.WriteString(w, `{}`)
	case r.Method == http.MethodPut:
		var body struct {
			Values [][]interface{} `json:"values"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.updates[rng] = body.Values
		_, _ = io.WriteString(w, `{}`)
	default:
		http.NotFound(w, r)
	}
}

func newFakeGrid(t *testing.T, f *fakeSheets) *Grid {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	g, err := New(context.Background(), "sheet-1",
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return g
}

func TestGridReadAndHeader(t *testing.T) {
	f := &fakeSheets{
		values: map[string][][]interface{}{
			"'users'":     {{"user_id", "login_id"}, {"u1", "alice"}, {"u2"}},
			"'users'!1:1": {{"user_id", "login_id"}},
		},
		updates: map[string][][]interface{}{},
	}
	g := newFakeGrid(t, f)

	rows, err := g.Read(context.Background(), "users")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"user_id", "login_id"}, {"u1", "alice"}, {"u2"}}, rows)

	header, err := g.Header(context.Background(), "users")
	require.NoError(t, err)
	assert.Equal(t, []string{"user_id", "login_id"}, header)

	_, err = g.Read(context.Background(), "missing")
	require.ErrorIs(t, err, store.ErrSheetNotFound)
}

func TestGridWrites(t *testing.T) {
	f := &fakeSheets{values: map[string][][]interface{}{}, updates: map[string][][]interface{}{}}
	g := newFakeGrid(t, f)

	require.NoError(t, g.AppendRow(context.Background(), "records", []string{"r1", "true"}))
	require.NoError(t, g.WriteRow(context.Background(), "records", 3, []string{"r2", "false"}))

	require.Len(t, f.appended, 1)
	assert.Equal(t, []interface{}{"r1", "true"}, f.appended[0])
	assert.Equal(t, [][]interface{}{{"r2", "false"}}, f.updates["'records'!A3"])
}
