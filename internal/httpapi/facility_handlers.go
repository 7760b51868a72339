package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"sheetshare.org/internal/service"
)

type createFacilityRequest struct {
	Name         string `json:"name" validate:"required,max=256"`
	ContactEmail string `json:"contact_email" validate:"omitempty,email"`
}

type updateFacilityRequest struct {
	Name         *string `json:"name" validate:"omitempty,max=256"`
	ContactEmail *string `json:"contact_email" validate:"omitempty,email"`
}

func (a *API) listFacilities(w http.ResponseWriter, r *http.Request) {
	list, err := a.svc.Facilities.List(r.Context(), actorOf(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) createFacility(w http.ResponseWriter, r *http.Request) {
	var req createFacilityRequest
	if err := bind(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	f, err := a.svc.Facilities.Create(r.Context(), actorOf(r), service.FacilityInput{
		Name:         req.Name,
		ContactEmail: req.ContactEmail,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (a *API) updateFacility(w http.ResponseWriter, r *http.Request) {
	var req updateFacilityRequest
	if err := bind(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	f, err := a.svc.Facilities.Update(r.Context(), actorOf(r), chi.URLParam(r, "id"), service.FacilityUpdate{
		Name:         req.Name,
		ContactEmail: req.ContactEmail,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (a *API) deleteFacility(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.Facilities.Delete(r.Context(), actorOf(r), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
