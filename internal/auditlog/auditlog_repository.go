package auditlog

import (
	"context"
	"encoding/json"
	"fmt"

	"aanganwadi/internal/repository"
	"aanganwadi/pkg/models"

	"github.com/doug-martin/goqu/v9"
)

type AuditLogRepository struct {
	repository *repository.Repository
}

func NewRepository(r *repository.Repository) *AuditLogRepository {
	return &AuditLogRepository{repository: r}
}

func (r *AuditLogRepository) PersistLog(ctx context.Context, auditlog models.AuditLog, auditLogData any) error {
	dataJSON, err := json.Marshal(auditLogData)
	if err != nil {
		return fmt.Errorf("failed to marshal audit log data: %w", err)
	}

	query := r.repository.GoquDBWrapper.Insert("audit_logs").
		Rows(goqu.Record{
			"resource_id":   auditlog.ResourceID,
			"resource_type": auditlog.ResourceType,
			"action":        auditlog.Action,
			"data":          dataJSON,
			"user_id":       auditlog.UserID,
		})

	if _, err = query.Executor().ExecContext(ctx); err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	return nil
}

func (r *AuditLogRepository) GetResourceLog(ctx context.Context, id int, resourceType string) ([]models.AuditLog, error) {
	query := r.repository.GoquDBWrapper.
		From(goqu.T("audit_logs").As("a")).
		Select(
			goqu.I("a.id").As("id"),
			goqu.I("a.resource_id").As("resource_id"),
			goqu.I("a.resource_type").As("resource_type"),
			goqu.I("a.action").As("action"),
			goqu.I("a.data").As("data"),
			goqu.I("a.created_at").As("created_at"),
			goqu.I("a.user_id").As("user_id"),
		).
		Where(goqu.Ex{
			"a.resource_id":   id,
			"a.resource_type": resourceType,
		}).
		Order(goqu.I("a.id").Desc())

	var auditLogs []models.AuditLog
	if err := query.Executor().ScanStructsContext(ctx, &auditLogs); err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}
	for i := range auditLogs {
		auditLogs[i].LoadFromDB()
	}

	return auditLogs, nil
}
