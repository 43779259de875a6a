package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/redact"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// AuditService maintains the audit ledger.
type AuditService interface {
	// PurgeExpired deletes every entry older than the retention window
	// relative to now and returns how many were removed.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type auditServiceImpl struct {
	audit     store.AuditLogStore
	retention time.Duration
	logger    *slog.Logger
}

// NewAuditService creates an AuditService. A non-positive retention uses
// domain.DefaultAuditRetention.
func NewAuditService(audit store.AuditLogStore, retention time.Duration, logger *slog.Logger) (AuditService, error) {
	if audit == nil {
		return nil, &TaskServiceError{
			Operation: "create_service",
			Message:   "audit store cannot be nil",
		}
	}
	if retention <= 0 {
		retention = domain.DefaultAuditRetention
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &auditServiceImpl{
		audit:     audit,
		retention: retention,
		logger:    logger.With(slog.String("component", "audit_service")),
	}, nil
}

// PurgeExpired implements AuditService.
func (s *auditServiceImpl) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	cutoff := now.Add(-s.retention)

	removed, err := s.audit.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		log.Error("audit retention sweep failed",
			slog.String("error", redact.Error(err)),
			slog.Time("cutoff", cutoff))
		return 0, NewTaskServiceError("purge_audit_logs", "failed to delete expired entries", err)
	}

	log.Info("audit retention sweep completed",
		slog.Int64("removed", removed),
		slog.Time("cutoff", cutoff))
	return removed, nil
}
