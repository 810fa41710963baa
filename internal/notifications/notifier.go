package notifications

import (
	"context"
	"fmt"
	"time"

	"aanganwadi/internal/allocation"
	"aanganwadi/pkg/models"
	"aanganwadi/pkg/roles"

	"go.uber.org/zap"
)

// RecipientDirectory resolves role-addressed notifications to users.
type RecipientDirectory interface {
	ListIDsByRole(ctx context.Context, role roles.Role) ([]int, error)
}

// Notifier persists notifications and pushes them to connected users.
// Nothing it does fails the operation that caused it.
type Notifier struct {
	repo      Repository
	pusher    Pusher
	directory RecipientDirectory
	log       *zap.Logger
	now       func() time.Time
}

func NewNotifier(repo Repository, pusher Pusher, directory RecipientDirectory, log *zap.Logger) *Notifier {
	return &Notifier{
		repo:      repo,
		pusher:    pusher,
		directory: directory,
		log:       log.Named("notifications"),
		now:       time.Now,
	}
}

// NotifyUsers stores one notification per recipient and pushes each of them.
func (n *Notifier) NotifyUsers(ctx context.Context, userIDs []int, title, message string, kind models.NotificationType, relatedID *int) {
	if len(userIDs) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	batch := make([]models.Notification, 0, len(userIDs))
	for _, id := range userIDs {
		batch = append(batch, models.Notification{
			UserID:    id,
			Title:     title,
			Message:   message,
			Type:      kind,
			RelatedID: relatedID,
		})
	}

	created, err := n.repo.Create(ctx, batch)
	if err != nil {
		n.log.Error("Failed to store notifications",
			zap.String("type", string(kind)),
			zap.Ints("user_ids", userIDs),
			zap.Error(err),
		)
		return
	}

	for _, notification := range created {
		if err := n.pusher.Push(ctx, newEvent(notification, n.now())); err != nil {
			n.log.Warn("Failed to push notification",
				zap.Int("user_id", notification.UserID),
				zap.Int("notification_id", notification.ID),
				zap.Error(err),
			)
		}
	}
}

func (n *Notifier) NotifyRole(ctx context.Context, role roles.Role, title, message string, kind models.NotificationType, relatedID *int) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	ids, err := n.directory.ListIDsByRole(ctx, role)
	if err != nil {
		n.log.Error("Failed to resolve notification recipients", zap.String("role", role.String()), zap.Error(err))
		return
	}
	n.NotifyUsers(ctx, ids, title, message, kind, relatedID)
}

func (n *Notifier) AppealSubmitted(ctx context.Context, appeal *models.Appeal, coordinator *models.User) {
	n.NotifyRole(ctx, roles.Admin,
		"New Appeal Submitted",
		fmt.Sprintf("%s has submitted a new appeal: %s", coordinator.Name, appeal.Title),
		models.NotificationAppeal,
		&appeal.ID,
	)
}

func (n *Notifier) AppealStatusChanged(ctx context.Context, appeal *models.Appeal) {
	n.NotifyUsers(ctx, []int{appeal.CoordinatorID},
		"Appeal Status Updated",
		fmt.Sprintf("Your appeal %q has been %s", appeal.Title, appeal.Status),
		models.NotificationAppealUpdate,
		&appeal.ID,
	)
}

func (n *Notifier) FulfillmentUpdated(ctx context.Context, appeal *models.Appeal) {
	n.NotifyUsers(ctx, []int{appeal.CoordinatorID},
		"Appeal Fulfillment Update",
		fmt.Sprintf("Fulfillment status for %q updated to %s", appeal.Title, appeal.FulfillmentStatus),
		models.NotificationFulfillmentUpdate,
		&appeal.ID,
	)
}

// AllocationCompleted tells the admins what a transition allocated and what
// stock was missing.
func (n *Notifier) AllocationCompleted(ctx context.Context, appeal *models.Appeal, report *allocation.Report) {
	allocated := report.Count(allocation.OutcomeAllocated)
	deficient := report.Count(allocation.OutcomeDeficient)
	failed := report.Count(allocation.OutcomeFailed)
	if allocated+deficient+failed == 0 {
		return
	}

	message := fmt.Sprintf("Appeal %s: %d item(s) allocated", appeal.AppealCode, allocated)
	if deficient > 0 {
		message += fmt.Sprintf(", %d short of stock", deficient)
	}
	if failed > 0 {
		message += fmt.Sprintf(", %d failed", failed)
	}

	n.NotifyRole(ctx, roles.Admin, "Inventory Allocated", message, models.NotificationAllocation, &appeal.ID)
}
