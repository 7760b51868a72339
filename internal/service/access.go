package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"sheetshare.org/internal/auth"
	"sheetshare.org/internal/fileshare"
	"sheetshare.org/internal/obs"
	"sheetshare.org/internal/policy"
)

// Grant is the outcome of a successful access request.
type Grant struct {
	RecordID       string          `json:"record_id"`
	FileID         string          `json:"file_id"`
	RedirectURL    string          `json:"redirect_url"`
	Level          fileshare.Level `json:"permission"`
	AlreadyGranted bool            `json:"already_granted"`
}

// Access runs the file-access grant workflow.
type Access struct {
	users       UserStore
	records     RecordStore
	permissions PermissionStore
	granter     fileshare.Granter
	policy      policy.Policy
	logger      *zap.Logger
}

// NewAccess wires the grant workflow.
func NewAccess(users UserStore, records RecordStore, perms PermissionStore, granter fileshare.Granter, pol policy.Policy, logger *zap.Logger) (*Access, error) {
	if users == nil || records == nil {
		return nil, errors.New("user and record stores are required")
	}
	if granter == nil {
		return nil, errors.New("file permission granter is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Access{users: users, records: records, permissions: perms, granter: granter, policy: pol, logger: logger}, nil
}

// Grant gives the actor's linked Google identity access to the record's file.
// Every check runs before the external call; an existing grant counts as
// success. Re-running it converges on the same state.
func (s *Access) Grant(ctx context.Context, a auth.Actor, recordID string) (Grant, error) {
	if err := auth.Require(a); err != nil {
		return Grant{}, err
	}
	user, err := s.users.GetUser(ctx, a.Who().UserID)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return Grant{}, auth.ErrUnauthenticated
		}
		return Grant{}, err
	}
	if user.GoogleEmail == "" {
		return Grant{}, ErrGoogleEmailNotLinked
	}

	rec, err := s.records.GetRecord(ctx, recordID)
	if err != nil {
		return Grant{}, err
	}
	if err := s.policy.CanReadRecord(a, rec); err != nil {
		return Grant{}, err
	}
	fileID, ok := fileshare.ExtractFileID(rec.FileURL)
	if !ok {
		return Grant{}, ErrInvalidFileURL
	}
	level := s.policy.GrantLevel(a, rec)

	g := Grant{RecordID: rec.RecordID, FileID: fileID, RedirectURL: rec.FileURL, Level: level}
	if err := s.granter.Grant(ctx, fileID, user.GoogleEmail, level); err != nil {
		if !errors.Is(err, fileshare.ErrAlreadyGranted) {
			obs.ObserveGrant("failed")
			s.logger.Error("file permission grant failed",
				zap.String("record_id", rec.RecordID),
				zap.String("file_id", fileID),
				zap.Error(err),
			)
			return Grant{}, fmt.Errorf("%w: failed to grant permission: %v", auth.ErrInternal, err)
		}
		g.AlreadyGranted = true
		obs.ObserveGrant("already_granted")
	} else {
		obs.ObserveGrant("granted")
	}

	if s.permissions != nil {
		if _, err := s.permissions.TouchPermission(ctx, user.UserID, rec.RecordID); err != nil {
			s.logger.Warn("permission row update failed",
				zap.String("user_id", user.UserID),
				zap.String("record_id", rec.RecordID),
				zap.Error(err),
			)
		}
	}
	return g, nil
}

// Locate returns the file URL of a record the actor may read.
func (s *Access) Locate(ctx context.Context, a auth.Actor, recordID string) (string, error) {
	if err := auth.Require(a); err != nil {
		return "", err
	}
	rec, err := s.records.GetRecord(ctx, recordID)
	if err != nil {
		return "", err
	}
	if err := s.policy.CanReadRecord(a, rec); err != nil {
		return "", err
	}
	if _, ok := fileshare.ExtractFileID(rec.FileURL); !ok {
		return "", ErrInvalidFileURL
	}
	return rec.FileURL, nil
}
