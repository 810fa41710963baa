package appeals

import (
	"fmt"
	"time"

	custom_error "aanganwadi/pkg/errors"
	"aanganwadi/pkg/models"
)

type SubmitAppealRequest struct {
	Title                   string                   `json:"title" validate:"required,max=255"`
	Description             string                   `json:"description"`
	Justification           string                   `json:"justification" validate:"required"`
	Urgency                 models.Urgency           `json:"urgency" validate:"omitempty,oneof=low medium high urgent"`
	RequestedItems          []models.LineItem        `json:"requestedItems" validate:"required,min=1"`
	CurrentSituation        *models.CurrentSituation `json:"currentSituation"`
	Tags                    []string                 `json:"tags" validate:"omitempty,dive,max=64"`
	ExpectedFulfillmentDate *time.Time               `json:"expectedFulfillmentDate"`
}

type SetStatusRequest struct {
	Status         models.AppealStatus `json:"status" validate:"required,oneof=pending under_review approved partially_approved rejected fulfilled"`
	ReviewComments string              `json:"reviewComments"`
	ApprovedItems  []models.LineItem   `json:"approvedItems"`
}

type FulfillmentRequest struct {
	FulfillmentStatus     models.FulfillmentStatus `json:"fulfillmentStatus" validate:"required,oneof=not_started in_progress completed partially_completed"`
	FulfilledItems        []models.FulfilledItem   `json:"fulfilledItems"`
	ActualFulfillmentDate *time.Time               `json:"actualFulfillmentDate"`
}

type FeedbackRequest struct {
	Rating       int        `json:"rating" validate:"required,min=1,max=5"`
	Comments     string     `json:"comments" validate:"max=2000"`
	ReceivedDate *time.Time `json:"receivedDate"`
}

type ListFilter struct {
	Status     string `form:"status"`
	Urgency    string `form:"urgency"`
	CenterCode string `form:"aanganwadiCode"`
	Archived   *bool  `form:"archived"`
}

// checkLineItems adds a field error for every line that is not a known item
// type or does not carry a positive amount or quantity.
func checkLineItems(field string, items []models.LineItem, errs *custom_error.ValidationError) {
	for i, item := range items {
		path := fmt.Sprintf("%s[%d]", field, i)
		if !item.ItemType.IsValid() {
			errs.Add(path+".itemType", "unknown item type")
			continue
		}
		if !item.Priority.IsValid() {
			errs.Add(path+".priority", "must be one of: low medium high")
		}
		switch item.Kind {
		case models.LineItemMoney:
			if !item.Allocatable() {
				errs.Add(path+".amount", "must be greater than 0")
			}
		case models.LineItemGoods:
			if item.Goods.ItemName == "" {
				errs.Add(path+".itemName", "is required")
			}
			if !item.Allocatable() {
				errs.Add(path+".quantity", "must be greater than 0")
			}
		}
	}
}
