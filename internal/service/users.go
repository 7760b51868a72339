package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"sheetshare.org/internal/audit"
	"sheetshare.org/internal/auth"
	"sheetshare.org/internal/lockout"
	"sheetshare.org/internal/model"
	"sheetshare.org/internal/obs"
	"sheetshare.org/internal/policy"
	"sheetshare.org/internal/store"
)

// UserInput creates a user.
type UserInput struct {
	LoginID     string
	Password    string
	Email       string
	GoogleEmail string
	Role        string
	FacilityID  string
}

// UserUpdate changes a user. Nil fields are left as they are; the login id is
// immutable.
type UserUpdate struct {
	Email       *string
	GoogleEmail *string
	Password    *string
	Role        *string
	FacilityID  *string
}

// Users manages accounts and authenticates logins.
type Users struct {
	store      UserStore
	facilities FacilityStore
	audit      Auditor
	policy     policy.Policy
	limiter    lockout.Limiter
	logger     *zap.Logger
	now        clock
}

// UserOption configures Users.
type UserOption func(*Users)

// WithLimiter enables failed-login lockout.
func WithLimiter(l lockout.Limiter) UserOption {
	return func(s *Users) { s.limiter = l }
}

// WithUserLogger sets the logger for best-effort failures.
func WithUserLogger(l *zap.Logger) UserOption {
	return func(s *Users) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewUsers wires the user service. facilities validates facility ids named by
// admins.
func NewUsers(st UserStore, facilities FacilityStore, aud Auditor, pol policy.Policy, opts ...UserOption) (*Users, error) {
	if st == nil {
		return nil, errors.New("user store is required")
	}
	if facilities == nil {
		return nil, errors.New("facility store is required")
	}
	s := &Users{
		store:      st,
		facilities: facilities,
		audit:      orNop(aud),
		policy:     pol,
		logger:     zap.NewNop(),
		now:        defaultClock,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// List returns users visible to a.
func (s *Users) List(ctx context.Context, a auth.Actor, facilityID string) ([]model.User, error) {
	scope, all, err := s.policy.UserListScope(a, strings.TrimSpace(facilityID))
	if err != nil {
		return nil, err
	}
	if all {
		scope = ""
	}
	return s.store.ListUsers(ctx, scope)
}

// Create adds a user with a bcrypt-hashed password.
func (s *Users) Create(ctx context.Context, a auth.Actor, in UserInput) (model.User, error) {
	if err := auth.Require(a); err != nil {
		return model.User{}, err
	}
	in.LoginID = strings.TrimSpace(in.LoginID)
	if err := required("login_id", in.LoginID); err != nil {
		return model.User{}, err
	}
	if err := required("password", in.Password); err != nil {
		return model.User{}, err
	}
	role, err := auth.ParseRole(in.Role)
	if err != nil {
		return model.User{}, err
	}
	facilityID, err := s.policy.UserCreateFacility(a, role, strings.TrimSpace(in.FacilityID))
	if err != nil {
		return model.User{}, err
	}
	if err := s.checkFacility(ctx, facilityID); err != nil {
		return model.User{}, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}
	u, err := s.store.CreateUser(ctx, store.NewUser{
		FacilityID:   facilityID,
		LoginID:      in.LoginID,
		Email:        strings.TrimSpace(in.Email),
		GoogleEmail:  strings.TrimSpace(in.GoogleEmail),
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		return model.User{}, err
	}
	s.audit.Record(ctx, audit.Event{
		Actor: a, FacilityID: u.FacilityID,
		Action: model.ActionUserCreate, TargetType: model.TargetUser, TargetID: u.UserID,
		After: u,
	})
	return u, nil
}

// Update changes a user's contact fields, password, role or facility.
func (s *Users) Update(ctx context.Context, a auth.Actor, id string, in UserUpdate) (model.User, error) {
	if err := auth.Require(a); err != nil {
		return model.User{}, err
	}
	target, err := s.store.GetUser(ctx, id)
	if err != nil {
		return model.User{}, err
	}

	role := target.Role
	var newRole auth.Role
	if in.Role != nil {
		if newRole, err = auth.ParseRole(*in.Role); err != nil {
			return model.User{}, err
		}
		role = newRole
	}
	if err := s.policy.CanModifyUser(a, target, newRole); err != nil {
		return model.User{}, err
	}

	facilityID := target.FacilityID
	if in.FacilityID != nil {
		requested := strings.TrimSpace(*in.FacilityID)
		if !auth.IsAdmin(a) && requested != auth.FacilityOf(a) {
			return model.User{}, fmt.Errorf("%w: users of another facility", auth.ErrForbidden)
		}
		facilityID = requested
	}
	if role == auth.RoleAdmin {
		facilityID = auth.SystemFacilityID
	} else if facilityID == "" || facilityID == auth.SystemFacilityID {
		return model.User{}, invalid("facility_id is required for role %s", role)
	}
	if facilityID != target.FacilityID {
		if err := s.checkFacility(ctx, facilityID); err != nil {
			return model.User{}, err
		}
	}

	patch := store.UserPatch{
		Email:       trimmed(in.Email),
		GoogleEmail: trimmed(in.GoogleEmail),
	}
	if role != target.Role {
		patch.Role = &role
	}
	if facilityID != target.FacilityID {
		patch.FacilityID = &facilityID
	}
	if in.Password != nil {
		if *in.Password == "" {
			return model.User{}, invalid("password cannot be empty")
		}
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return model.User{}, fmt.Errorf("hash password: %w", err)
		}
		patch.PasswordHash = &hash
	}

	after, err := s.store.UpdateUser(ctx, id, patch)
	if err != nil {
		return model.User{}, fmt.Errorf("update user: %w", err)
	}
	s.audit.Record(ctx, audit.Event{
		Actor: a, FacilityID: after.FacilityID,
		Action: model.ActionUserUpdate, TargetType: model.TargetUser, TargetID: id,
		Before: target, After: after,
	})
	return after, nil
}

// Delete marks a user inactive.
func (s *Users) Delete(ctx context.Context, a auth.Actor, id string) error {
	if err := auth.Require(a); err != nil {
		return err
	}
	target, err := s.store.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if err := s.policy.CanModifyUser(a, target, ""); err != nil {
		return err
	}
	after, err := s.store.DeactivateUser(ctx, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	s.audit.Record(ctx, audit.Event{
		Actor: a, FacilityID: target.FacilityID,
		Action: model.ActionUserDelete, TargetType: model.TargetUser, TargetID: id,
		Before: target, After: after,
	})
	return nil
}

// Authenticate checks a login. Unknown login ids and wrong passwords both
// yield auth.ErrInvalidCredentials.
func (s *Users) Authenticate(ctx context.Context, loginID, password string) (model.User, error) {
	loginID = strings.TrimSpace(loginID)
	if loginID == "" || password == "" {
		return model.User{}, invalid("login_id and password are required")
	}
	key := strings.ToLower(loginID)
	if s.limiter != nil {
		locked, _, err := s.limiter.Locked(ctx, key)
		if err != nil {
			s.logger.Warn("lockout check failed", zap.Error(err))
		} else if locked {
			obs.ObserveLogin("locked")
			return model.User{}, auth.ErrTooManyAttempts
		}
	}

	u, err := s.store.GetUserByLoginID(ctx, loginID)
	if err != nil && !errors.Is(err, auth.ErrNotFound) {
		return model.User{}, fmt.Errorf("load user: %w", err)
	}
	if err == nil {
		if verr := auth.VerifyPassword(u.PasswordHash, password); verr != nil {
			err = verr
		} else if _, aerr := auth.NewActor(u.Principal(), u.Role, u.FacilityID); aerr != nil {
			s.logger.Warn("user row cannot form a session", zap.String("user_id", u.UserID), zap.Error(aerr))
			err = aerr
		} else if ferr := s.facilityLive(ctx, u); ferr != nil {
			if !errors.Is(ferr, auth.ErrUnauthenticated) {
				return model.User{}, ferr
			}
			err = ferr
		}
	}
	if err != nil {
		s.recordFailure(ctx, key)
		obs.ObserveLogin("invalid")
		return model.User{}, auth.ErrInvalidCredentials
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, key); err != nil {
			s.logger.Warn("lockout reset failed", zap.Error(err))
		}
	}
	now := s.now()
	if updated, err := s.store.UpdateUser(ctx, u.UserID, store.UserPatch{LastLoginAt: &now}); err != nil {
		s.logger.Warn("last login update failed", zap.String("user_id", u.UserID), zap.Error(err))
	} else {
		u = updated
	}
	obs.ObserveLogin("ok")
	return u, nil
}

func (s *Users) recordFailure(ctx context.Context, key string) {
	if s.limiter == nil {
		return
	}
	if _, err := s.limiter.Fail(ctx, key); err != nil {
		s.logger.Warn("lockout record failed", zap.Error(err))
	}
}

// LinkGoogleEmail sets the acting user's google_email, the identity file
// permissions are granted to.
func (s *Users) LinkGoogleEmail(ctx context.Context, a auth.Actor, email string) (model.User, error) {
	if err := auth.Require(a); err != nil {
		return model.User{}, err
	}
	email = strings.TrimSpace(email)
	if err := required("google_email", email); err != nil {
		return model.User{}, err
	}
	before, err := s.store.GetUser(ctx, a.Who().UserID)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return model.User{}, auth.ErrUnauthenticated
		}
		return model.User{}, err
	}
	after, err := s.store.UpdateUser(ctx, before.UserID, store.UserPatch{GoogleEmail: &email})
	if err != nil {
		return model.User{}, fmt.Errorf("link google email: %w", err)
	}
	s.audit.Record(ctx, audit.Event{
		Actor: a, FacilityID: after.FacilityID,
		Action: model.ActionUserUpdate, TargetType: model.TargetUser, TargetID: after.UserID,
		Before: before, After: after,
	})
	return after, nil
}

// Resolve reloads the session's user and returns the actor its stored row
// describes. A deleted user or a deactivated facility is ErrUnauthenticated;
// a role change takes effect immediately.
func (s *Users) Resolve(ctx context.Context, a auth.Actor) (auth.Actor, error) {
	if err := auth.Require(a); err != nil {
		return nil, err
	}
	u, err := s.store.GetUser(ctx, a.Who().UserID)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return nil, fmt.Errorf("%w: user no longer active", auth.ErrUnauthenticated)
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := s.facilityLive(ctx, u); err != nil {
		return nil, err
	}
	return auth.NewActor(u.Principal(), u.Role, u.FacilityID)
}

// facilityLive rejects users whose facility has been deactivated. Admins live
// in the system facility and always pass.
func (s *Users) facilityLive(ctx context.Context, u model.User) error {
	if u.Role == auth.RoleAdmin || u.FacilityID == auth.SystemFacilityID {
		return nil
	}
	if _, err := s.facilities.GetFacility(ctx, u.FacilityID); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return fmt.Errorf("%w: facility %s is inactive", auth.ErrUnauthenticated, u.FacilityID)
		}
		return fmt.Errorf("load facility: %w", err)
	}
	return nil
}

func (s *Users) checkFacility(ctx context.Context, facilityID string) error {
	if facilityID == auth.SystemFacilityID {
		return nil
	}
	if _, err := s.facilities.GetFacility(ctx, facilityID); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return invalid("unknown facility %s", facilityID)
		}
		return err
	}
	return nil
}
