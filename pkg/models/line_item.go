package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type ItemType string

const (
	ItemMoney           ItemType = "money"
	ItemClothes         ItemType = "clothes"
	ItemBooks           ItemType = "books"
	ItemToys            ItemType = "toys"
	ItemFood            ItemType = "food"
	ItemStationary      ItemType = "stationary"
	ItemMedicalSupplies ItemType = "medical_supplies"
)

var ItemTypes = []ItemType{
	ItemMoney, ItemClothes, ItemBooks, ItemToys, ItemFood, ItemStationary, ItemMedicalSupplies,
}

func (t ItemType) IsValid() bool {
	for _, known := range ItemTypes {
		if t == known {
			return true
		}
	}
	return false
}

func (t ItemType) IsMoney() bool {
	return t == ItemMoney
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// LineItemKind is the discriminant of LineItem.
type LineItemKind string

const (
	LineItemMoney LineItemKind = "money"
	LineItemGoods LineItemKind = "goods"
)

type MoneyLine struct {
	Amount  decimal.Decimal
	Purpose string
}

type GoodsLine struct {
	ItemName      string
	Quantity      int
	Specification string
	Reason        string
}

// LineItem is one requested, approved or fulfilled entry of an appeal.
// Exactly one of Money or Goods is set, selected by Kind.
type LineItem struct {
	Kind     LineItemKind
	ItemType ItemType
	Priority Priority
	Notes    string
	Money    *MoneyLine
	Goods    *GoodsLine
}

func NewMoneyLine(amount decimal.Decimal, purpose string) LineItem {
	return LineItem{
		Kind:     LineItemMoney,
		ItemType: ItemMoney,
		Priority: PriorityMedium,
		Money:    &MoneyLine{Amount: amount, Purpose: purpose},
	}
}

func NewGoodsLine(itemType ItemType, itemName string, quantity int) LineItem {
	return LineItem{
		Kind:     LineItemGoods,
		ItemType: itemType,
		Priority: PriorityMedium,
		Goods:    &GoodsLine{ItemName: itemName, Quantity: quantity},
	}
}

// Allocatable reports whether the line carries a positive amount or quantity.
func (li LineItem) Allocatable() bool {
	switch li.Kind {
	case LineItemMoney:
		return li.Money != nil && li.Money.Amount.IsPositive()
	case LineItemGoods:
		return li.Goods != nil && li.Goods.Quantity > 0
	default:
		return false
	}
}

// Requested returns the amount or quantity as a decimal for logging and matching.
func (li LineItem) Requested() decimal.Decimal {
	switch {
	case li.Kind == LineItemMoney && li.Money != nil:
		return li.Money.Amount
	case li.Kind == LineItemGoods && li.Goods != nil:
		return decimal.NewFromInt(int64(li.Goods.Quantity))
	default:
		return decimal.Zero
	}
}

// lineItemWire is the flat document shape used on the API and in JSONB columns.
type lineItemWire struct {
	ItemType        ItemType         `json:"itemType"`
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	Purpose         string           `json:"purpose,omitempty"`
	ItemName        string           `json:"itemName,omitempty"`
	Quantity        *int             `json:"quantity,omitempty"`
	Specification   string           `json:"specification,omitempty"`
	Reason          string           `json:"reason,omitempty"`
	Priority        Priority         `json:"priority,omitempty"`
	Notes           string           `json:"notes,omitempty"`
	FulfillmentDate *time.Time       `json:"fulfillmentDate,omitempty"`
	TrackingNumber  string           `json:"trackingNumber,omitempty"`
}

func (li LineItem) toWire() lineItemWire {
	w := lineItemWire{
		ItemType: li.ItemType,
		Priority: li.Priority,
		Notes:    li.Notes,
	}
	if li.Money != nil {
		amount := li.Money.Amount
		w.Amount = &amount
		w.Purpose = li.Money.Purpose
	}
	if li.Goods != nil {
		quantity := li.Goods.Quantity
		w.ItemName = li.Goods.ItemName
		w.Quantity = &quantity
		w.Specification = li.Goods.Specification
		w.Reason = li.Goods.Reason
	}
	return w
}

// toLineItem picks the payload from the item type: money lines keep only the
// amount fields, every other type keeps only the goods fields.
func (w lineItemWire) toLineItem() LineItem {
	li := LineItem{
		ItemType: w.ItemType,
		Priority: w.Priority,
		Notes:    w.Notes,
	}
	if li.Priority == "" {
		li.Priority = PriorityMedium
	}

	if w.ItemType.IsMoney() {
		li.Kind = LineItemMoney
		li.Money = &MoneyLine{Purpose: w.Purpose}
		if w.Amount != nil {
			li.Money.Amount = *w.Amount
		}
		return li
	}

	li.Kind = LineItemGoods
	li.Goods = &GoodsLine{
		ItemName:      w.ItemName,
		Specification: w.Specification,
		Reason:        w.Reason,
	}
	if w.Quantity != nil {
		li.Goods.Quantity = *w.Quantity
	}
	return li
}

func (li LineItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(li.toWire())
}

func (li *LineItem) UnmarshalJSON(data []byte) error {
	var w lineItemWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*li = w.toLineItem()
	return nil
}

// FulfilledItem is a line item that has been handed over.
type FulfilledItem struct {
	LineItem
	FulfillmentDate *time.Time
	TrackingNumber  string
}

func (fi FulfilledItem) MarshalJSON() ([]byte, error) {
	w := fi.LineItem.toWire()
	w.FulfillmentDate = fi.FulfillmentDate
	w.TrackingNumber = fi.TrackingNumber
	return json.Marshal(w)
}

func (fi *FulfilledItem) UnmarshalJSON(data []byte) error {
	var w lineItemWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	fi.LineItem = w.toLineItem()
	fi.FulfillmentDate = w.FulfillmentDate
	fi.TrackingNumber = w.TrackingNumber
	return nil
}

// LineItems is stored as a JSONB array.
type LineItems []LineItem

func (l LineItems) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal([]LineItem(l))
}

func (l *LineItems) Scan(src any) error {
	return scanJSON(src, l)
}

type FulfilledItems []FulfilledItem

func (f FulfilledItems) Value() (driver.Value, error) {
	if f == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]FulfilledItem(f))
}

func (f *FulfilledItems) Scan(src any) error {
	return scanJSON(src, f)
}

func scanJSON(src any, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported JSON column type %T", src)
	}
}
