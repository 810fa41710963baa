package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type AppealStatus string

const (
	AppealPending           AppealStatus = "pending"
	AppealUnderReview       AppealStatus = "under_review"
	AppealApproved          AppealStatus = "approved"
	AppealPartiallyApproved AppealStatus = "partially_approved"
	AppealRejected          AppealStatus = "rejected"
	AppealFulfilled         AppealStatus = "fulfilled"
)

func (s AppealStatus) IsValid() bool {
	switch s {
	case AppealPending, AppealUnderReview, AppealApproved, AppealPartiallyApproved, AppealRejected, AppealFulfilled:
		return true
	default:
		return false
	}
}

// IsApproval reports whether entering this status allocates inventory.
func (s AppealStatus) IsApproval() bool {
	return s == AppealApproved || s == AppealPartiallyApproved
}

type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
	UrgencyUrgent Urgency = "urgent"
)

func (u Urgency) IsValid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyUrgent:
		return true
	default:
		return false
	}
}

type FulfillmentStatus string

const (
	FulfillmentNotStarted         FulfillmentStatus = "not_started"
	FulfillmentInProgress         FulfillmentStatus = "in_progress"
	FulfillmentCompleted          FulfillmentStatus = "completed"
	FulfillmentPartiallyCompleted FulfillmentStatus = "partially_completed"
)

func (f FulfillmentStatus) IsValid() bool {
	switch f {
	case FulfillmentNotStarted, FulfillmentInProgress, FulfillmentCompleted, FulfillmentPartiallyCompleted:
		return true
	default:
		return false
	}
}

type CurrentSituation struct {
	NumberOfChildren     int    `json:"numberOfChildren,omitempty"`
	CurrentStock         string `json:"currentStock,omitempty"`
	ImmediateNeed        string `json:"immediateNeed,omitempty"`
	ImpactIfNotFulfilled string `json:"impactIfNotFulfilled,omitempty"`
}

type CoordinatorFeedback struct {
	Rating       int        `json:"rating"`
	Comments     string     `json:"comments,omitempty"`
	ReceivedDate *time.Time `json:"receivedDate,omitempty"`
	FeedbackDate time.Time  `json:"feedbackDate"`
}

// StatusUpdate is one entry of the append-only status history.
type StatusUpdate struct {
	ID        int          `json:"id" db:"id"`
	AppealID  int          `json:"-" db:"appeal_id"`
	Status    AppealStatus `json:"status" db:"status"`
	Message   string       `json:"message" db:"message"`
	UpdatedBy *int         `json:"updatedBy,omitempty" db:"updated_by"`
	Timestamp time.Time    `json:"timestamp" db:"created_at"`
}

type Appeal struct {
	ID            int    `json:"id"`
	AppealCode    string `json:"appealId"`
	CoordinatorID int    `json:"coordinatorId"`
	CenterCode    string `json:"aanganwadiCode"`
	CenterName    string `json:"aanganwadiName"`

	Title            string            `json:"title"`
	Description      string            `json:"description"`
	Justification    string            `json:"justification"`
	Urgency          Urgency           `json:"urgency"`
	RequestedItems   LineItems         `json:"requestedItems"`
	CurrentSituation *CurrentSituation `json:"currentSituation,omitempty"`
	Tags             []string          `json:"tags,omitempty"`

	Status        AppealStatus   `json:"status"`
	StatusVersion int            `json:"statusVersion"`
	StatusUpdates []StatusUpdate `json:"statusUpdates"`

	ReviewedBy     *int       `json:"reviewedBy,omitempty"`
	ReviewDate     *time.Time `json:"reviewDate,omitempty"`
	ReviewComments string     `json:"reviewComments,omitempty"`

	ApprovedBy       *int       `json:"approvedBy,omitempty"`
	ApprovalDate     *time.Time `json:"approvalDate,omitempty"`
	ApprovalComments string     `json:"approvalComments,omitempty"`
	ApprovedItems    LineItems  `json:"approvedItems,omitempty"`

	FulfillmentStatus       FulfillmentStatus `json:"fulfillmentStatus"`
	FulfilledItems          FulfilledItems    `json:"fulfilledItems"`
	ExpectedFulfillmentDate *time.Time        `json:"expectedFulfillmentDate,omitempty"`
	ActualFulfillmentDate   *time.Time        `json:"actualFulfillmentDate,omitempty"`

	CoordinatorFeedback *CoordinatorFeedback `json:"coordinatorFeedback,omitempty"`

	IsArchived   bool       `json:"isArchived"`
	ArchivedDate *time.Time `json:"archivedDate,omitempty"`
	ArchivedBy   *int       `json:"archivedBy,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsNew reports whether the appeal has never been persisted.
func (a *Appeal) IsNew() bool {
	return a.ID == 0
}

// AllocationItems returns the approved items, or the requested items when
// nothing was approved explicitly.
func (a *Appeal) AllocationItems() []LineItem {
	if len(a.ApprovedItems) > 0 {
		return a.ApprovedItems
	}
	return a.RequestedItems
}

// StatusActor is the user a status change is attributed to.
func (a *Appeal) StatusActor() *int {
	if a.ReviewedBy != nil {
		return a.ReviewedBy
	}
	return a.ApprovedBy
}

// NewStatusUpdate builds the history entry for the current status.
func (a *Appeal) NewStatusUpdate(at time.Time) StatusUpdate {
	return StatusUpdate{
		AppealID:  a.ID,
		Status:    a.Status,
		Message:   fmt.Sprintf("Status changed to %s", a.Status),
		UpdatedBy: a.StatusActor(),
		Timestamp: at,
	}
}

func (a *Appeal) CreateLogView() AuditLog {
	return AuditLog{
		ResourceID:   a.ID,
		ResourceType: "appeal",
	}
}

// FlatAppealRecord mirrors the appeals table row.
type FlatAppealRecord struct {
	ID                      int            `db:"id"`
	AppealCode              string         `db:"appeal_code"`
	CoordinatorID           int            `db:"coordinator_id"`
	CenterCode              string         `db:"center_code"`
	CenterName              string         `db:"center_name"`
	Title                   string         `db:"title"`
	Description             string         `db:"description"`
	Justification           string         `db:"justification"`
	Urgency                 string         `db:"urgency"`
	RequestedItems          LineItems      `db:"requested_items"`
	CurrentSituation        []byte         `db:"current_situation"`
	Tags                    []byte         `db:"tags"`
	Status                  string         `db:"status"`
	StatusVersion           int            `db:"status_version"`
	ReviewedBy              *int           `db:"reviewed_by"`
	ReviewDate              *time.Time     `db:"review_date"`
	ReviewComments          string         `db:"review_comments"`
	ApprovedBy              *int           `db:"approved_by"`
	ApprovalDate            *time.Time     `db:"approval_date"`
	ApprovalComments        string         `db:"approval_comments"`
	ApprovedItems           LineItems      `db:"approved_items"`
	FulfillmentStatus       string         `db:"fulfillment_status"`
	FulfilledItems          FulfilledItems `db:"fulfilled_items"`
	ExpectedFulfillmentDate *time.Time     `db:"expected_fulfillment_date"`
	ActualFulfillmentDate   *time.Time     `db:"actual_fulfillment_date"`
	Feedback                []byte         `db:"coordinator_feedback"`
	IsArchived              bool           `db:"is_archived"`
	ArchivedDate            *time.Time     `db:"archived_date"`
	ArchivedBy              *int           `db:"archived_by"`
	CreatedAt               time.Time      `db:"created_at"`
	UpdatedAt               time.Time      `db:"updated_at"`
}

func (fa *FlatAppealRecord) TransformToAppeal() (*Appeal, error) {
	appeal := Appeal{
		ID:                      fa.ID,
		AppealCode:              fa.AppealCode,
		CoordinatorID:           fa.CoordinatorID,
		CenterCode:              fa.CenterCode,
		CenterName:              fa.CenterName,
		Title:                   fa.Title,
		Description:             fa.Description,
		Justification:           fa.Justification,
		Urgency:                 Urgency(fa.Urgency),
		RequestedItems:          fa.RequestedItems,
		Status:                  AppealStatus(fa.Status),
		StatusVersion:           fa.StatusVersion,
		ReviewedBy:              fa.ReviewedBy,
		ReviewDate:              fa.ReviewDate,
		ReviewComments:          fa.ReviewComments,
		ApprovedBy:              fa.ApprovedBy,
		ApprovalDate:            fa.ApprovalDate,
		ApprovalComments:        fa.ApprovalComments,
		ApprovedItems:           fa.ApprovedItems,
		FulfillmentStatus:       FulfillmentStatus(fa.FulfillmentStatus),
		FulfilledItems:          fa.FulfilledItems,
		ExpectedFulfillmentDate: fa.ExpectedFulfillmentDate,
		ActualFulfillmentDate:   fa.ActualFulfillmentDate,
		IsArchived:              fa.IsArchived,
		ArchivedDate:            fa.ArchivedDate,
		ArchivedBy:              fa.ArchivedBy,
		CreatedAt:               fa.CreatedAt,
		UpdatedAt:               fa.UpdatedAt,
	}

	if len(fa.CurrentSituation) > 0 {
		if err := json.Unmarshal(fa.CurrentSituation, &appeal.CurrentSituation); err != nil {
			return nil, fmt.Errorf("failed to unmarshal current situation: %w", err)
		}
	}
	if len(fa.Tags) > 0 {
		if err := json.Unmarshal(fa.Tags, &appeal.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}
	if len(fa.Feedback) > 0 {
		if err := json.Unmarshal(fa.Feedback, &appeal.CoordinatorFeedback); err != nil {
			return nil, fmt.Errorf("failed to unmarshal coordinator feedback: %w", err)
		}
	}
	if appeal.FulfilledItems == nil {
		appeal.FulfilledItems = FulfilledItems{}
	}

	return &appeal, nil
}

// AppealStats groups appeal counts for the admin dashboard.
type AppealStats struct {
	ByStatus  []CountBucket  `json:"statusStats"`
	ByUrgency []CountBucket  `json:"urgencyStats"`
	ByCenter  []CenterBucket `json:"aanganwadiStats"`
}

type CountBucket struct {
	Key   string `json:"_id" db:"key"`
	Count int    `json:"count" db:"count"`
}

type CenterBucket struct {
	CenterCode string `json:"_id" db:"center_code"`
	CenterName string `json:"aanganwadiName" db:"center_name"`
	Count      int    `json:"count" db:"count"`
}
