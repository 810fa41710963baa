package notifications

import (
	"context"
	"fmt"

	"aanganwadi/internal/repository"
	custom_error "aanganwadi/pkg/errors"
	"aanganwadi/pkg/models"

	"github.com/doug-martin/goqu/v9"
)

type Repository interface {
	Create(ctx context.Context, notifications []models.Notification) ([]models.Notification, error)
	ListForUser(ctx context.Context, userID int, unreadOnly bool) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID int) (*models.Notification, error)
	MarkAllRead(ctx context.Context, userID int) (int64, error)
}

type notificationRepositoryImpl struct {
	repository *repository.Repository
}

func NewRepository(r *repository.Repository) Repository {
	return &notificationRepositoryImpl{repository: r}
}

func (r *notificationRepositoryImpl) Create(ctx context.Context, notifications []models.Notification) ([]models.Notification, error) {
	if len(notifications) == 0 {
		return nil, nil
	}

	rows := make([]any, 0, len(notifications))
	for _, n := range notifications {
		rows = append(rows, goqu.Record{
			"user_id":    n.UserID,
			"title":      n.Title,
			"message":    n.Message,
			"type":       n.Type,
			"related_id": n.RelatedID,
		})
	}

	var created []models.Notification
	err := r.repository.GoquDBWrapper.Insert("notifications").
		Rows(rows...).
		Returning(goqu.Star()).
		Executor().
		ScanStructsContext(ctx, &created)
	if err != nil {
		return nil, fmt.Errorf("failed to insert notifications: %w", err)
	}
	return created, nil
}

func (r *notificationRepositoryImpl) ListForUser(ctx context.Context, userID int, unreadOnly bool) ([]models.Notification, error) {
	query := r.repository.GoquDBWrapper.From("notifications").
		Where(goqu.Ex{"user_id": userID}).
		Order(goqu.I("created_at").Desc(), goqu.I("id").Desc()).
		Limit(200)
	if unreadOnly {
		query = query.Where(goqu.Ex{"is_read": false})
	}

	notifications := []models.Notification{}
	if err := query.ScanStructsContext(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

func (r *notificationRepositoryImpl) MarkRead(ctx context.Context, id, userID int) (*models.Notification, error) {
	var n models.Notification
	found, err := r.repository.GoquDBWrapper.Update("notifications").
		Set(goqu.Record{"is_read": true}).
		Where(goqu.Ex{"id": id, "user_id": userID}).
		Returning(goqu.Star()).
		Executor().
		ScanStructContext(ctx, &n)
	if err != nil {
		return nil, fmt.Errorf("failed to mark notification read: %w", err)
	}
	if !found {
		return nil, custom_error.NotFound("notification", id)
	}
	return &n, nil
}

func (r *notificationRepositoryImpl) MarkAllRead(ctx context.Context, userID int) (int64, error) {
	result, err := r.repository.GoquDBWrapper.Update("notifications").
		Set(goqu.Record{"is_read": true}).
		Where(goqu.Ex{"user_id": userID, "is_read": false}).
		Executor().
		ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return result.RowsAffected()
}
