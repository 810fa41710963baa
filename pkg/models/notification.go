package models

import "time"

type NotificationType string

const (
	NotificationAppeal            NotificationType = "appeal"
	NotificationAppealUpdate      NotificationType = "appeal_update"
	NotificationFulfillmentUpdate NotificationType = "fulfillment_update"
	NotificationAllocation        NotificationType = "allocation"
)

type Notification struct {
	ID        int              `json:"id" db:"id"`
	UserID    int              `json:"userId" db:"user_id"`
	Title     string           `json:"title" db:"title"`
	Message   string           `json:"message" db:"message"`
	Type      NotificationType `json:"type" db:"type"`
	RelatedID *int             `json:"relatedId,omitempty" db:"related_id"`
	IsRead    bool             `json:"isRead" db:"is_read"`
	CreatedAt time.Time        `json:"createdAt" db:"created_at"`
}
