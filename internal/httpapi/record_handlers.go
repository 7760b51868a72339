package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sheetshare.org/internal/service"
)

type createRecordRequest struct {
	FacilityID  string `json:"facility_id"`
	FileName    string `json:"file_name" validate:"required,max=512"`
	FileCreator string `json:"file_creator" validate:"max=256"`
	Sharer      string `json:"sharer" validate:"max=256"`
	FileURL     string `json:"file_url" validate:"required,http_url"`
	AccessLevel string `json:"access_level" validate:"omitempty,oneof=editable view_only admin_only"`
}

// updateRecordRequest accepts the full record shape clients read back. The
// identity and ownership fields are decoded and dropped.
type updateRecordRequest struct {
	FileName    *string `json:"file_name" validate:"omitempty,max=512"`
	FileCreator *string `json:"file_creator" validate:"omitempty,max=256"`
	Sharer      *string `json:"sharer" validate:"omitempty,max=256"`
	FileURL     *string `json:"file_url" validate:"omitempty,http_url"`
	AccessLevel *string `json:"access_level" validate:"omitempty,oneof=editable view_only admin_only"`

	RecordID   json.RawMessage `json:"record_id"`
	FacilityID json.RawMessage `json:"facility_id"`
	CreatedAt  json.RawMessage `json:"created_at"`
	CreatedBy  json.RawMessage `json:"created_by"`
	UpdatedAt  json.RawMessage `json:"updated_at"`
	Deleted    json.RawMessage `json:"deleted_flag"`
	IsAccessed json.RawMessage `json:"is_accessed"`
}

func (a *API) listRecords(w http.ResponseWriter, r *http.Request) {
	recs, err := a.svc.Records.List(r.Context(), actorOf(r), r.URL.Query().Get("facility_id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (a *API) createRecord(w http.ResponseWriter, r *http.Request) {
	var req createRecordRequest
	if err := bind(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	rec, err := a.svc.Records.Create(r.Context(), actorOf(r), service.RecordInput{
		FacilityID:  req.FacilityID,
		FileName:    req.FileName,
		FileCreator: req.FileCreator,
		Sharer:      req.Sharer,
		FileURL:     req.FileURL,
		AccessLevel: req.AccessLevel,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (a *API) updateRecord(w http.ResponseWriter, r *http.Request) {
	var req updateRecordRequest
	if err := bind(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	rec, err := a.svc.Records.Update(r.Context(), actorOf(r), chi.URLParam(r, "id"), service.RecordUpdate{
		FileName:    req.FileName,
		FileCreator: req.FileCreator,
		Sharer:      req.Sharer,
		FileURL:     req.FileURL,
		AccessLevel: req.AccessLevel,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *API) deleteRecord(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.Records.Delete(r.Context(), actorOf(r), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
