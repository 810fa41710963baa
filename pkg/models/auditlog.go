package models

import (
	"encoding/json"
	"time"
)

// AuditLog records one mutation of an inventory record or appeal.
type AuditLog struct {
	ID           int            `json:"id" db:"id"`
	ResourceID   int            `json:"resource_id" db:"resource_id"`
	ResourceType string         `json:"resource_type" db:"resource_type"`
	Action       string         `json:"action" db:"action"` // create, update, allocate, release, delete
	DataRaw      string         `json:"-" db:"data"`
	Data         map[string]any `json:"data" db:"-"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UserID       *int           `json:"user_id,omitempty" db:"user_id"`
}

func (a *AuditLog) LoadFromDB() {
	if a.DataRaw != "" {
		_ = json.Unmarshal([]byte(a.DataRaw), &a.Data)
	}
}
