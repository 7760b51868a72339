package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"sheetshare.org/internal/service"
)

type createUserRequest struct {
	LoginID     string `json:"login_id" validate:"required,max=128"`
	Password    string `json:"password" validate:"required,max=256"`
	Email       string `json:"email" validate:"omitempty,email"`
	GoogleEmail string `json:"google_email" validate:"omitempty,email"`
	Role        string `json:"role" validate:"required,oneof=admin facility_admin facility_editor facility_viewer"`
	FacilityID  string `json:"facility_id"`
}

// updateUserRequest: login_id is accepted so clients can send the row back,
// but it never changes.
type updateUserRequest struct {
	LoginID     *string `json:"login_id"`
	Password    *string `json:"password" validate:"omitempty,max=256"`
	Email       *string `json:"email" validate:"omitempty,email"`
	GoogleEmail *string `json:"google_email" validate:"omitempty,email"`
	Role        *string `json:"role" validate:"omitempty,oneof=admin facility_admin facility_editor facility_viewer"`
	FacilityID  *string `json:"facility_id"`
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.svc.Users.List(r.Context(), actorOf(r), r.URL.Query().Get("facility_id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := bind(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	u, err := a.svc.Users.Create(r.Context(), actorOf(r), service.UserInput{
		LoginID:     req.LoginID,
		Password:    req.Password,
		Email:       req.Email,
		GoogleEmail: req.GoogleEmail,
		Role:        req.Role,
		FacilityID:  req.FacilityID,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (a *API) updateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := bind(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	u, err := a.svc.Users.Update(r.Context(), actorOf(r), chi.URLParam(r, "id"), service.UserUpdate{
		Email:       req.Email,
		GoogleEmail: req.GoogleEmail,
		Password:    req.Password,
		Role:        req.Role,
		FacilityID:  req.FacilityID,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *API) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.Users.Delete(r.Context(), actorOf(r), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
