package audit

import (
	"context"

	"go.uber.org/zap"

	"sheetshare.org/internal/model"
)

// AuditAppender is the store operation SheetSink needs.
type AuditAppender interface {
	AppendAuditLog(ctx context.Context, entry model.AuditLog) error
}

// SheetSink appends entries to the audit_logs sheet.
type SheetSink struct {
	Store AuditAppender
}

func (SheetSink) Name() string { return "sheet" }

func (s SheetSink) Write(ctx context.Context, entry model.AuditLog) error {
	return s.Store.AppendAuditLog(ctx, entry)
}

// LogSink emits entries as structured log lines.
type LogSink struct {
	Logger *zap.Logger
}

func (LogSink) Name() string { return "log" }

func (s LogSink) Write(ctx context.Context, entry model.AuditLog) error {
	fields := []zap.Field{
		zap.String("type", "audit"),
		zap.String("log_id", entry.LogID),
		zap.String("action", entry.Action),
		zap.String("target_type", entry.TargetType),
		zap.String("target_id", entry.TargetID),
		zap.String("user_id", entry.UserID),
		zap.String("facility_id", entry.FacilityID),
		zap.String("ip", entry.IP),
	}
	if meta, ok := MetaFromContext(ctx); ok && meta.RequestID != "" {
		fields = append(fields, zap.String("request_id", meta.RequestID))
	}
	s.Logger.Info("audit", fields...)
	return nil
}
