package inventory

import (
	"time"

	"aanganwadi/pkg/models"

	"github.com/shopspring/decimal"
)

type CreateInventoryRequest struct {
	ItemType         models.ItemType  `json:"itemType" validate:"required,oneof=money clothes books toys food stationary medical_supplies"`
	TotalAmount      *decimal.Decimal `json:"totalAmount"`
	ItemName         string           `json:"itemName" validate:"max=255"`
	ItemDescription  string           `json:"itemDescription"`
	Category         string           `json:"category" validate:"max=64"`
	Size             string           `json:"size" validate:"max=32"`
	AgeGroup         string           `json:"ageGroup" validate:"max=32"`
	TotalQuantity    *int             `json:"totalQuantity" validate:"omitempty,gte=0"`
	Condition        string           `json:"condition" validate:"omitempty,oneof=new good fair poor"`
	SourceType       string           `json:"sourceType"`
	SourceDonationID *int             `json:"sourceDonationId"`
	Location         string           `json:"location" validate:"max=255"`
	ExpiryDate       *time.Time       `json:"expiryDate"`
	MinimumStock     *int             `json:"minimumStock" validate:"omitempty,gte=0"`
	Notes            string           `json:"notes"`
}

// UpdateInventoryRequest carries only the fields being changed. Allocated
// figures are changed through allocate and release, never here.
type UpdateInventoryRequest struct {
	TotalAmount     *decimal.Decimal `json:"totalAmount"`
	TotalQuantity   *int             `json:"totalQuantity" validate:"omitempty,gte=0"`
	ItemName        *string          `json:"itemName" validate:"omitempty,max=255"`
	ItemDescription *string          `json:"itemDescription"`
	Category        *string          `json:"category" validate:"omitempty,max=64"`
	Size            *string          `json:"size" validate:"omitempty,max=32"`
	AgeGroup        *string          `json:"ageGroup" validate:"omitempty,max=32"`
	Condition       *string          `json:"condition" validate:"omitempty,oneof=new good fair poor"`
	Location        *string          `json:"location" validate:"omitempty,max=255"`
	ExpiryDate      *time.Time       `json:"expiryDate"`
	MinimumStock    *int             `json:"minimumStock" validate:"omitempty,gte=0"`
	Notes           *string          `json:"notes"`
}

// AdjustRequest is the body of the direct allocate and release operations.
// Money records read Amount, every other kind reads Quantity.
type AdjustRequest struct {
	Amount   *decimal.Decimal `json:"amount"`
	Quantity *int             `json:"quantity" validate:"omitempty,gt=0"`
	AppealID *int             `json:"appealId"`
}

type ListFilter struct {
	ItemType string `form:"item_type"`
	Status   string `form:"status"`
	Category string `form:"category"`
	AgeGroup string `form:"age_group"`
}
