package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// grantAccess shares the record's file with the caller's Google identity and
// tells the client where to go next.
func (a *API) grantAccess(w http.ResponseWriter, r *http.Request) {
	g, err := a.svc.Access.Grant(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	msg := "Granted"
	if g.AlreadyGranted {
		msg = "Already granted"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"message":         msg,
		"redirect_url":    g.RedirectURL,
		"permission":      g.Level,
		"already_granted": g.AlreadyGranted,
	})
}

func (a *API) openFile(w http.ResponseWriter, r *http.Request) {
	target, err := a.svc.Access.Locate(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}
