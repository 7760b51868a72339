// Package model holds the persisted entities shared by the store, policy and
// service layers.
package model

import (
	"fmt"
	"strings"
	"time"

	"sheetshare.org/internal/auth"
)

// Status marks facilities and users as live or soft-deleted.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// AccessLevel controls who may see and how they may open a record's file.
type AccessLevel string

const (
	AccessEditable  AccessLevel = "editable"
	AccessViewOnly  AccessLevel = "view_only"
	AccessAdminOnly AccessLevel = "admin_only"
)

// ParseAccessLevel validates s. An empty string yields the default, editable.
func ParseAccessLevel(s string) (AccessLevel, error) {
	switch l := AccessLevel(strings.TrimSpace(s)); l {
	case "":
		return AccessEditable, nil
	case AccessEditable, AccessViewOnly, AccessAdminOnly:
		return l, nil
	default:
		return "", fmt.Errorf("%w: unknown access level %q", auth.ErrInvalidInput, s)
	}
}

// Facility is a tenant.
type Facility struct {
	FacilityID   string    `json:"facility_id"`
	Name         string    `json:"name"`
	Status       Status    `json:"status"`
	ContactEmail string    `json:"contact_email,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// User is an account. PasswordHash never leaves the server.
type User struct {
	UserID       string    `json:"user_id"`
	FacilityID   string    `json:"facility_id"`
	LoginID      string    `json:"login_id"`
	Email        string    `json:"email,omitempty"`
	GoogleEmail  string    `json:"google_email,omitempty"`
	PasswordHash string    `json:"-"`
	Role         auth.Role `json:"role"`
	Status       Status    `json:"status"`
	LastLoginAt  time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Principal returns the identity fields used to build an actor.
func (u User) Principal() auth.Principal {
	return auth.Principal{UserID: u.UserID, LoginID: u.LoginID, GoogleEmail: u.GoogleEmail}
}

// Record is a shared file reference owned by one facility.
type Record struct {
	RecordID    string      `json:"record_id"`
	FacilityID  string      `json:"facility_id"`
	FileName    string      `json:"file_name"`
	FileCreator string      `json:"file_creator"`
	Sharer      string      `json:"sharer"`
	FileURL     string      `json:"file_url"`
	AccessLevel AccessLevel `json:"access_level"`
	CreatedAt   time.Time   `json:"created_at"`
	CreatedBy   string      `json:"created_by"`
	UpdatedAt   time.Time   `json:"updated_at"`
	Deleted     bool        `json:"deleted_flag"`
}

// RecordView is a record as listed for one user.
type RecordView struct {
	Record
	IsAccessed bool `json:"is_accessed"`
}

// UserPermission notes that a user has been granted live access to a record.
type UserPermission struct {
	PermissionID   string    `json:"permission_id"`
	UserID         string    `json:"user_id"`
	RecordID       string    `json:"record_id"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
}

// Audit actions.
const (
	ActionFacilityCreate = "FACILITY_CREATE"
	ActionFacilityUpdate = "FACILITY_UPDATE"
	ActionFacilityDelete = "FACILITY_DELETE"
	ActionUserCreate     = "USER_CREATE"
	ActionUserUpdate     = "USER_UPDATE"
	ActionUserDelete     = "USER_DELETE"
	ActionRecordCreate   = "RECORD_CREATE"
	ActionRecordUpdate   = "RECORD_UPDATE"
	ActionRecordDelete   = "RECORD_DELETE"
	ActionInitAdmin      = "INIT_ADMIN"
)

// Audit target types.
const (
	TargetFacility = "facility"
	TargetUser     = "user"
	TargetRecord   = "record"
)

// AuditLog is an append-only audit row.
type AuditLog struct {
	LogID      string    `json:"log_id"`
	Timestamp  time.Time `json:"timestamp"`
	UserID     string    `json:"user_id"`
	FacilityID string    `json:"facility_id"`
	Action     string    `json:"action"`
	TargetType string    `json:"target_type"`
	TargetID   string    `json:"target_id"`
	BeforeJSON string    `json:"before_json,omitempty"`
	AfterJSON  string    `json:"after_json,omitempty"`
	IP         string    `json:"ip,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
}
