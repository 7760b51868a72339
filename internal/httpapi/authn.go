package httpapi

import (
	"errors"
	"net/http"
	"time"

	"sheetshare.org/internal/auth"
)

// SessionCookie is the name of the sealed session cookie.
const SessionCookie = "secure_sheet_share_session"

// withSession decodes the session cookie, if any, and attaches the session and
// actor. An unreadable or expired cookie leaves the request anonymous.
func (a *API) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(SessionCookie)
		if err != nil || c.Value == "" {
			next.ServeHTTP(w, r)
			return
		}
		sess, err := a.sessions.Decode(c.Value)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		actor, err := sess.Actor()
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := auth.ContextWithSession(r.Context(), sess)
		ctx = auth.ContextWithActor(ctx, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireActor rejects anonymous requests and replaces the session's actor
// with one rebuilt from the stored user, so deleted users and users of a
// deactivated facility lose access before their cookie expires.
func (a *API) requireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := auth.ActorFromContext(r.Context())
		if !ok {
			writeError(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}
		fresh, err := a.svc.Users.Resolve(r.Context(), actor)
		if err != nil {
			if errors.Is(err, auth.ErrUnauthenticated) {
				a.clearSession(w)
			}
			handleServiceError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.ContextWithActor(r.Context(), fresh)))
	})
}

func actorOf(r *http.Request) auth.Actor {
	a, _ := auth.ActorFromContext(r.Context())
	return a
}

func (a *API) setSession(w http.ResponseWriter, s auth.Session) error {
	value, expires, err := a.sessions.Encode(s)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
		HttpOnly: true,
		Secure:   a.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (a *API) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
