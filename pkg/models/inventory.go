package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type StockStatus string

const (
	StockAvailable  StockStatus = "available"
	StockLow        StockStatus = "low_stock"
	StockOutOfStock StockStatus = "out_of_stock"
	StockExpired    StockStatus = "expired"
)

func (s StockStatus) IsValid() bool {
	switch s {
	case StockAvailable, StockLow, StockOutOfStock, StockExpired:
		return true
	default:
		return false
	}
}

const DefaultMinimumStock = 5

type InventoryRecord struct {
	ID       int      `json:"id" db:"id"`
	ItemCode string   `json:"itemId" db:"item_code"`
	ItemType ItemType `json:"itemType" db:"item_type"`

	TotalAmount     decimal.Decimal `json:"totalAmount" db:"total_amount"`
	AllocatedAmount decimal.Decimal `json:"allocatedAmount" db:"allocated_amount"`
	AvailableAmount decimal.Decimal `json:"availableAmount" db:"available_amount"`

	ItemName        string `json:"itemName,omitempty" db:"item_name"`
	ItemDescription string `json:"itemDescription,omitempty" db:"item_description"`
	Category        string `json:"category,omitempty" db:"category"`
	Size            string `json:"size,omitempty" db:"size"`
	AgeGroup        string `json:"ageGroup,omitempty" db:"age_group"`

	TotalQuantity     int `json:"totalQuantity" db:"total_quantity"`
	AllocatedQuantity int `json:"allocatedQuantity" db:"allocated_quantity"`
	AvailableQuantity int `json:"availableQuantity" db:"available_quantity"`

	Condition        string     `json:"condition,omitempty" db:"condition"`
	SourceType       string     `json:"sourceType" db:"source_type"`
	SourceDonationID *int       `json:"sourceDonationId,omitempty" db:"source_donation_id"`
	Location         string     `json:"location" db:"location"`
	ExpiryDate       *time.Time `json:"expiryDate,omitempty" db:"expiry_date"`

	Status       StockStatus `json:"status" db:"status"`
	MinimumStock int         `json:"minimumStock" db:"minimum_stock"`

	LastUpdated time.Time `json:"lastUpdated" db:"last_updated"`
	UpdatedBy   *int      `json:"updatedBy,omitempty" db:"updated_by"`
	Notes       string    `json:"notes,omitempty" db:"notes"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// Recompute derives the available figures and the stock status from
// total and allocated. It runs right before every write.
func (r *InventoryRecord) Recompute(now time.Time) {
	if r.ItemType.IsMoney() {
		r.AvailableAmount = r.TotalAmount.Sub(r.AllocatedAmount)
	} else {
		r.AvailableQuantity = r.TotalQuantity - r.AllocatedQuantity
		switch {
		case r.AvailableQuantity == 0:
			r.Status = StockOutOfStock
		case r.AvailableQuantity <= r.MinimumStock:
			r.Status = StockLow
		default:
			r.Status = StockAvailable
		}
	}
	if r.Status == "" {
		r.Status = StockAvailable
	}
	r.LastUpdated = now
}

// Headroom is total minus allocated for the record's kind.
func (r *InventoryRecord) Headroom() decimal.Decimal {
	if r.ItemType.IsMoney() {
		return r.TotalAmount.Sub(r.AllocatedAmount)
	}
	return decimal.NewFromInt(int64(r.TotalQuantity - r.AllocatedQuantity))
}

// HasAllocation reports whether anything is still allocated from this record.
func (r *InventoryRecord) HasAllocation() bool {
	return r.AllocatedQuantity > 0 || r.AllocatedAmount.IsPositive()
}

// Increase adds delta to the allocated figure of the record's kind.
func (r *InventoryRecord) Increase(delta decimal.Decimal) {
	if r.ItemType.IsMoney() {
		r.AllocatedAmount = r.AllocatedAmount.Add(delta)
		return
	}
	r.AllocatedQuantity += int(delta.IntPart())
}

// Decrease subtracts delta from the allocated figure, never going below zero.
func (r *InventoryRecord) Decrease(delta decimal.Decimal) {
	if r.ItemType.IsMoney() {
		r.AllocatedAmount = decimal.Max(decimal.Zero, r.AllocatedAmount.Sub(delta))
		return
	}
	r.AllocatedQuantity = max(0, r.AllocatedQuantity-int(delta.IntPart()))
}

func (r *InventoryRecord) CreateLogView() AuditLog {
	return AuditLog{
		ResourceID:   r.ID,
		ResourceType: "inventory",
	}
}

type ItemTypeStats struct {
	ItemType          string          `json:"_id" db:"item_type"`
	TotalItems        int             `json:"totalItems" db:"total_items"`
	TotalQuantity     int             `json:"totalQuantity" db:"total_quantity"`
	AvailableQuantity int             `json:"availableQuantity" db:"available_quantity"`
	TotalAmount       decimal.Decimal `json:"totalAmount" db:"total_amount"`
	AvailableAmount   decimal.Decimal `json:"availableAmount" db:"available_amount"`
}

type InventoryStats struct {
	ByItemType []ItemTypeStats `json:"itemTypeStats"`
	ByStatus   []CountBucket   `json:"statusStats"`
}
