// Package service implements the facility, user and record lifecycles and the
// file-access grant workflow on top of the store and policy packages.
package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"sheetshare.org/internal/audit"
	"sheetshare.org/internal/auth"
	"sheetshare.org/internal/model"
	"sheetshare.org/internal/store"
)

// Errors with a dedicated client-facing code.
var (
	ErrGoogleEmailNotLinked = fmt.Errorf("%w: google account email is not linked", auth.ErrInvalidInput)
	ErrInvalidFileURL       = fmt.Errorf("%w: record file url does not identify a file", auth.ErrInvalidInput)
)

// FacilityStore is the facility part of the data access layer.
type FacilityStore interface {
	ListFacilities(ctx context.Context) ([]model.Facility, error)
	GetFacility(ctx context.Context, id string) (model.Facility, error)
	CreateFacility(ctx context.Context, name, contactEmail string) (model.Facility, error)
	UpdateFacility(ctx context.Context, id string, patch store.FacilityPatch) (model.Facility, error)
	DeactivateFacility(ctx context.Context, id string) (model.Facility, error)
}

// UserStore is the user part of the data access layer.
type UserStore interface {
	ListUsers(ctx context.Context, facilityID string) ([]model.User, error)
	GetUser(ctx context.Context, id string) (model.User, error)
	GetUserByLoginID(ctx context.Context, loginID string) (model.User, error)
	CreateUser(ctx context.Context, in store.NewUser) (model.User, error)
	UpdateUser(ctx context.Context, id string, patch store.UserPatch) (model.User, error)
	DeactivateUser(ctx context.Context, id string) (model.User, error)
}

// RecordStore is the record part of the data access layer.
type RecordStore interface {
	ListRecords(ctx context.Context, facilityID string) ([]model.Record, error)
	GetRecord(ctx context.Context, id string) (model.Record, error)
	CreateRecord(ctx context.Context, in store.NewRecord) (model.Record, error)
	UpdateRecord(ctx context.Context, id string, patch store.RecordPatch) (model.Record, error)
	SoftDeleteRecord(ctx context.Context, id string) (model.Record, error)
}

// PermissionStore tracks which records a user has opened.
type PermissionStore interface {
	TouchPermission(ctx context.Context, userID, recordID string) (model.UserPermission, error)
	AccessedRecordIDs(ctx context.Context, userID string) (map[string]struct{}, error)
}

// Auditor records mutations. Implementations must not fail the caller.
type Auditor interface {
	Record(ctx context.Context, ev audit.Event)
}

type nopAuditor struct{}

func (nopAuditor) Record(context.Context, audit.Event) {}

func orNop(a Auditor) Auditor {
	if a == nil {
		return nopAuditor{}
	}
	return a
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{auth.ErrInvalidInput}, args...)...)
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid("%s is required", field)
	}
	return nil
}

// checkFileURL accepts absolute http(s) URLs only.
func checkFileURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return invalid("file_url must be an absolute http(s) URL")
	}
	return nil
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}

type clock func() time.Time

func defaultClock() time.Time { return time.Now().UTC() }

func trimmedValue(s string) string { return strings.TrimSpace(s) }
