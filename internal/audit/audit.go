// Package audit records one immutable entry per successful mutation. Recording
// is best-effort: sink failures are logged and counted, never returned.
package audit

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"sheetshare.org/internal/auth"
	"sheetshare.org/internal/ids"
	"sheetshare.org/internal/model"
	"sheetshare.org/internal/obs"
)

type ctxKey string

const metaKey ctxKey = "audit_request_meta"

// RequestMeta is the request context attached to audit entries.
type RequestMeta struct {
	RequestID string
	IP        string
	UserAgent string
}

// WithRequestMeta attaches request metadata to the context.
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	meta.RequestID = strings.TrimSpace(meta.RequestID)
	return context.WithValue(ctx, metaKey, meta)
}

// MetaFromContext returns request metadata, if any.
func MetaFromContext(ctx context.Context) (RequestMeta, bool) {
	if ctx == nil {
		return RequestMeta{}, false
	}
	m, ok := ctx.Value(metaKey).(RequestMeta)
	return m, ok
}

// Event describes a mutation. Before and After are JSON-encoded snapshots;
// model types keep secrets out of their JSON form.
type Event struct {
	Actor      auth.Actor
	FacilityID string
	Action     string
	TargetType string
	TargetID   string
	Before     any
	After      any
}

// Sink persists audit rows.
type Sink interface {
	Name() string
	Write(ctx context.Context, entry model.AuditLog) error
}

// Recorder fans an event out to every sink.
type Recorder struct {
	sinks  []Sink
	logger *zap.Logger
	now    func() time.Time
}

// NewRecorder builds a Recorder. A nil logger discards failure logs.
func NewRecorder(logger *zap.Logger, sinks ...Sink) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		sinks:  sinks,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Record writes ev to all sinks synchronously, continuing past failures.
func (r *Recorder) Record(ctx context.Context, ev Event) {
	if r == nil {
		return
	}
	entry := r.entry(ctx, ev)
	for _, s := range r.sinks {
		if err := s.Write(ctx, entry); err != nil {
			obs.ObserveAuditFailure(s.Name())
			r.logger.Warn("audit write failed",
				zap.String("sink", s.Name()),
				zap.String("action", entry.Action),
				zap.String("target_id", entry.TargetID),
				zap.Error(err),
			)
		}
	}
}

func (r *Recorder) entry(ctx context.Context, ev Event) model.AuditLog {
	entry := model.AuditLog{
		LogID:      ids.New(),
		Timestamp:  r.now(),
		FacilityID: ev.FacilityID,
		Action:     ev.Action,
		TargetType: ev.TargetType,
		TargetID:   ev.TargetID,
		BeforeJSON: snapshot(ev.Before),
		AfterJSON:  snapshot(ev.After),
		IP:         "unknown",
	}
	if ev.Actor != nil {
		entry.UserID = ev.Actor.Who().UserID
	}
	if meta, ok := MetaFromContext(ctx); ok {
		if meta.IP != "" {
			entry.IP = meta.IP
		}
		entry.UserAgent = meta.UserAgent
	}
	return entry
}

func snapshot(v any) string {
	if v == nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
