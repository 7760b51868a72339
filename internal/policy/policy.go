// Package policy decides what an actor may do. Every function is pure: it
// looks only at the actor and the entities it is given, and returns nil or an
// error wrapping auth.ErrForbidden / auth.ErrInvalidInput.
package policy

import (
	"fmt"
	"strings"

	"sheetshare.org/internal/auth"
	"sheetshare.org/internal/fileshare"
	"sheetshare.org/internal/model"
)

// DefaultRootLoginID is the reserved login id of the root admin.
const DefaultRootLoginID = "admin-share-sheet"

// Policy carries the configuration authorization depends on.
type Policy struct {
	RootLoginID string
}

// New returns a policy; an empty rootLoginID falls back to DefaultRootLoginID.
func New(rootLoginID string) Policy {
	rootLoginID = strings.TrimSpace(rootLoginID)
	if rootLoginID == "" {
		rootLoginID = DefaultRootLoginID
	}
	return Policy{RootLoginID: rootLoginID}
}

// IsRootLogin reports whether loginID is the reserved root admin login.
func (p Policy) IsRootLogin(loginID string) bool {
	return loginID != "" && loginID == p.RootLoginID
}

func (p Policy) isRootActor(a auth.Actor) bool {
	return auth.IsAdmin(a) && p.IsRootLogin(a.Who().LoginID)
}

func forbidden(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{auth.ErrForbidden}, args...)...)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{auth.ErrInvalidInput}, args...)...)
}

// GrantLevel picks the file permission for a visible record: viewers always
// read; view_only records are read-only for everyone but admins.
func (p Policy) GrantLevel(a auth.Actor, rec model.Record) fileshare.Level {
	if a.Role() == auth.RoleFacilityViewer {
		return fileshare.LevelReader
	}
	if rec.AccessLevel == model.AccessViewOnly && !auth.IsAdmin(a) {
		return fileshare.LevelReader
	}
	return fileshare.LevelWriter
}
