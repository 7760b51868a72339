package httpapi

import (
	"net/http"

	"sheetshare.org/internal/auth"
	"sheetshare.org/internal/model"
)

type loginRequest struct {
	LoginID  string `json:"login_id" validate:"required,max=128"`
	Password string `json:"password" validate:"required,max=256"`
}

type googleEmailRequest struct {
	GoogleEmail string `json:"google_email" validate:"required,email"`
}

type sessionUser struct {
	UserID      string    `json:"user_id"`
	LoginID     string    `json:"login_id"`
	Role        auth.Role `json:"role"`
	FacilityID  string    `json:"facility_id"`
	GoogleEmail string    `json:"google_email,omitempty"`
}

func sessionFor(u model.User) auth.Session {
	return auth.Session{
		LoggedIn:    true,
		UserID:      u.UserID,
		FacilityID:  u.FacilityID,
		LoginID:     u.LoginID,
		GoogleEmail: u.GoogleEmail,
		Role:        u.Role,
	}
}

func userOf(s auth.Session) sessionUser {
	return sessionUser{
		UserID:      s.UserID,
		LoginID:     s.LoginID,
		Role:        s.Role,
		FacilityID:  s.FacilityID,
		GoogleEmail: s.GoogleEmail,
	}
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := bind(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	u, err := a.svc.Users.Authenticate(r.Context(), req.LoginID, req.Password)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	sess := sessionFor(u)
	if err := a.setSession(w, sess); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    userOf(sess),
	})
}

func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	a.clearSession(w)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	sess, ok := auth.SessionFromContext(r.Context())
	if !ok || !sess.LoggedIn {
		writeJSON(w, http.StatusOK, map[string]any{"isLoggedIn": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"isLoggedIn": true,
		"user":       userOf(sess),
	})
}

// linkGoogleEmail stores the caller's Google identity and re-issues the
// session so it carries the new address.
func (a *API) linkGoogleEmail(w http.ResponseWriter, r *http.Request) {
	var req googleEmailRequest
	if err := bind(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	u, err := a.svc.Users.LinkGoogleEmail(r.Context(), actorOf(r), req.GoogleEmail)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	sess := sessionFor(u)
	if err := a.setSession(w, sess); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    userOf(sess),
	})
}
