package allocation

import (
	"aanganwadi/pkg/models"

	"github.com/shopspring/decimal"
)

// Trigger names the path that asked for an allocation.
type Trigger string

const (
	TriggerSave    Trigger = "save"
	TriggerWatcher Trigger = "watcher"
)

type OutcomeKind string

const (
	OutcomeAllocated OutcomeKind = "allocated"
	// OutcomeDeficient means no record had enough headroom. It is a result,
	// not an error: the approval itself still stands.
	OutcomeDeficient OutcomeKind = "deficient"
	OutcomeSkipped   OutcomeKind = "skipped"
	OutcomeFailed    OutcomeKind = "failed"
)

// Outcome is what happened to one line item.
type Outcome struct {
	Kind          OutcomeKind     `json:"kind"`
	ItemType      models.ItemType `json:"itemType"`
	Requested     decimal.Decimal `json:"requested"`
	InventoryID   int             `json:"inventoryId,omitempty"`
	InventoryCode string          `json:"inventoryCode,omitempty"`
	Err           error           `json:"-"`
}

// Report collects the outcomes of one allocation batch, in line item order.
type Report struct {
	AppealID      int       `json:"appealId"`
	StatusVersion int       `json:"statusVersion"`
	Trigger       Trigger   `json:"trigger"`
	Outcomes      []Outcome `json:"outcomes"`
}

func (r *Report) Count(kind OutcomeKind) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Kind == kind {
			n++
		}
	}
	return n
}
