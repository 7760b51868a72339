// Package fileshare grants people access to externally hosted files.
package fileshare

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

// Level is the permission granted on a file.
type Level string

const (
	LevelReader Level = "reader"
	LevelWriter Level = "writer"
)

// ErrAlreadyGranted is returned when the grantee already holds access. Callers
// treat it as success.
var ErrAlreadyGranted = errors.New("permission already granted")

// Granter gives an identity access to a file.
type Granter interface {
	Grant(ctx context.Context, fileID, email string, level Level) error
}

// GranterFunc adapts a function to Granter.
type GranterFunc func(ctx context.Context, fileID, email string, level Level) error

func (f GranterFunc) Grant(ctx context.Context, fileID, email string, level Level) error {
	return f(ctx, fileID, email, level)
}

// ExtractFileID pulls the file identifier out of a share URL. An "id" query
// parameter wins; otherwise the path segment following "d" is used, as in
// https://docs.google.com/spreadsheets/d/<id>/edit.
func ExtractFileID(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", false
	}
	if id := strings.TrimSpace(u.Query().Get("id")); id != "" {
		return id, true
	}
	parts := strings.Split(u.Path, "/")
	for i, p := range parts {
		if p == "d" && i+1 < len(parts) && parts[i+1] != "" {
			return parts[i+1], true
		}
	}
	return "", false
}
