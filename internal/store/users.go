package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sheetshare.org/internal/auth"
	"sheetshare.org/internal/ids"
	"sheetshare.org/internal/model"
)

// NewUser is the input for CreateUser.
type NewUser struct {
	FacilityID   string
	LoginID      string
	Email        string
	GoogleEmail  string
	PasswordHash string
	Role         auth.Role
}

// UserPatch carries the mutable user fields. Nil means unchanged.
type UserPatch struct {
	FacilityID   *string
	Email        *string
	GoogleEmail  *string
	PasswordHash *string
	Role         *auth.Role
	LastLoginAt  *time.Time
}

func userFromRow(r Row) model.User {
	return model.User{
		UserID:       r["user_id"],
		FacilityID:   r["facility_id"],
		LoginID:      r["login_id"],
		Email:        r["email"],
		GoogleEmail:  r["google_email"],
		PasswordHash: r["password_hash"],
		Role:         auth.Role(strings.TrimSpace(r["role"])),
		Status:       model.Status(strings.TrimSpace(r["status"])),
		LastLoginAt:  parseTime(r["last_login_at"]),
		CreatedAt:    parseTime(r["created_at"]),
		UpdatedAt:    parseTime(r["updated_at"]),
	}
}

func userActive(r Row) bool {
	return model.Status(strings.TrimSpace(r["status"])) == model.StatusActive
}

// ListUsers returns active users, optionally limited to one facility.
func (s *Store) ListUsers(ctx context.Context, facilityID string) ([]model.User, error) {
	rows, err := s.users.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.User, 0, len(rows))
	for _, r := range rows {
		if !userActive(r) {
			continue
		}
		if facilityID != "" && r["facility_id"] != facilityID {
			continue
		}
		out = append(out, userFromRow(r))
	}
	return out, nil
}

// GetUser returns an active user.
func (s *Store) GetUser(ctx context.Context, id string) (model.User, error) {
	r, ok, err := s.users.Find(ctx, "user_id", id)
	if err != nil {
		return model.User{}, err
	}
	if !ok || !userActive(r) {
		return model.User{}, fmt.Errorf("%w: user %s", auth.ErrNotFound, id)
	}
	return userFromRow(r), nil
}

// GetUserByLoginID returns the active user holding loginID.
func (s *Store) GetUserByLoginID(ctx context.Context, loginID string) (model.User, error) {
	rows, err := s.users.All(ctx)
	if err != nil {
		return model.User{}, err
	}
	for _, r := range rows {
		if userActive(r) && r["login_id"] == loginID {
			return userFromRow(r), nil
		}
	}
	return model.User{}, fmt.Errorf("%w: login id %s", auth.ErrNotFound, loginID)
}

// CreateUser appends an active user. The login id must not be held by another
// active user.
func (s *Store) CreateUser(ctx context.Context, in NewUser) (model.User, error) {
	if _, err := s.GetUserByLoginID(ctx, in.LoginID); err == nil {
		return model.User{}, fmt.Errorf("%w: login id %q is already in use", auth.ErrConflict, in.LoginID)
	} else if !isNotFound(err) {
		return model.User{}, err
	}
	now, ts := s.timestamp()
	u := model.User{
		UserID:       ids.NewUUID(),
		FacilityID:   in.FacilityID,
		LoginID:      in.LoginID,
		Email:        in.Email,
		GoogleEmail:  in.GoogleEmail,
		PasswordHash: in.PasswordHash,
		Role:         in.Role,
		Status:       model.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := s.users.Append(ctx, Row{
		"user_id":       u.UserID,
		"facility_id":   u.FacilityID,
		"login_id":      u.LoginID,
		"email":         u.Email,
		"google_email":  u.GoogleEmail,
		"password_hash": u.PasswordHash,
		"role":          string(u.Role),
		"status":        string(u.Status),
		"last_login_at": "",
		"created_at":    ts,
		"updated_at":    ts,
	})
	if err != nil {
		return model.User{}, err
	}
	return u, nil
}

// UpdateUser applies patch to an active user.
func (s *Store) UpdateUser(ctx context.Context, id string, patch UserPatch) (model.User, error) {
	if _, err := s.GetUser(ctx, id); err != nil {
		return model.User{}, err
	}
	_, ts := s.timestamp()
	row := Row{"updated_at": ts}
	if patch.FacilityID != nil {
		row["facility_id"] = *patch.FacilityID
	}
	if patch.Email != nil {
		row["email"] = *patch.Email
	}
	if patch.GoogleEmail != nil {
		row["google_email"] = *patch.GoogleEmail
	}
	if patch.PasswordHash != nil {
		row["password_hash"] = *patch.PasswordHash
	}
	if patch.Role != nil {
		row["role"] = string(*patch.Role)
	}
	if patch.LastLoginAt != nil {
		row["last_login_at"] = formatTime(*patch.LastLoginAt)
	}
	merged, err := s.users.Put(ctx, "user_id", id, row)
	if err != nil {
		return model.User{}, err
	}
	return userFromRow(merged), nil
}

// DeactivateUser soft-deletes a user.
func (s *Store) DeactivateUser(ctx context.Context, id string) (model.User, error) {
	if _, err := s.GetUser(ctx, id); err != nil {
		return model.User{}, err
	}
	_, ts := s.timestamp()
	merged, err := s.users.Put(ctx, "user_id", id, Row{
		"status":     string(model.StatusInactive),
		"updated_at": ts,
	})
	if err != nil {
		return model.User{}, err
	}
	return userFromRow(merged), nil
}
