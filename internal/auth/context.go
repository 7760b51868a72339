package auth

import "context"

type actorContextKey struct{}
type sessionContextKey struct{}

// ContextWithActor attaches the authenticated actor to the context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	if actor == nil {
		return ctx
	}
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the authenticated actor from the context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return nil, false
	}
	v, ok := ctx.Value(actorContextKey{}).(Actor)
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// ContextWithSession stores the decoded session inside the context.
func ContextWithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// SessionFromContext returns the session if it was previously attached.
func SessionFromContext(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return Session{}, false
	}
	v, ok := ctx.Value(sessionContextKey{}).(Session)
	return v, ok
}

// UserIDFromContext returns the acting user id, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	a, ok := ActorFromContext(ctx)
	if !ok {
		return "", false
	}
	return a.Who().UserID, true
}
