package auditlog

import (
	"context"
	"time"

	"aanganwadi/pkg/models"

	"go.uber.org/zap"
)

// Persister stores audit entries; implemented by internal/auditlog.
type Persister interface {
	PersistLog(ctx context.Context, auditlog models.AuditLog, data any) error
}

type Auditable interface {
	CreateLogView() models.AuditLog
}

type Auditlog struct {
	r   Persister
	log *zap.Logger
}

func NewAuditLog(persister Persister, log *zap.Logger) *Auditlog {
	return &Auditlog{r: persister, log: log}
}

// Log records action against item. Failures are logged, never returned:
// the mutation being audited has already committed.
func (a *Auditlog) Log(ctx context.Context, actor models.Actor, action string, data any, item Auditable) {
	auditLog := item.CreateLogView()
	auditLog.Action = action
	auditLog.UserID = actor.UserRef()

	// detach from the request so a finished response does not cancel the write
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := a.r.PersistLog(ctx, auditLog, data); err != nil {
		a.log.Warn("Unable to create audit log entry",
			zap.String("resource_type", auditLog.ResourceType),
			zap.Int("resource_id", auditLog.ResourceID),
			zap.String("action", action),
			zap.Error(err),
		)
		return
	}

	a.log.Debug("Created audit log entry",
		zap.String("resource_type", auditLog.ResourceType),
		zap.Int("resource_id", auditLog.ResourceID),
		zap.String("action", action),
	)
}
