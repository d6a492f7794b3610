package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"

	EntityCategory = "category"
	EntityExpense  = "expense"
)

// AuditRecord is one append-only audit log row.
type AuditRecord struct {
	ID           int       `json:"id"`
	Action       string    `json:"action"`
	EntityType   string    `json:"entity_type"`
	EntityID     int       `json:"entity_id"`
	Description  string    `json:"description"`
	PreviousData Snapshot  `json:"previous_data"`
	NewData      Snapshot  `json:"new_data"`
	UserID       int       `json:"user_id"`
	UserEmail    string    `json:"user_email,omitempty"`
	CompanyID    int       `json:"company_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuditEntry is what a store hands to the audit recorder. The payload is opaque to the
// recorder; EntityType tells readers how to interpret it.
type AuditEntry struct {
	Action      string
	EntityType  string
	EntityID    int
	Description string
	Previous    Snapshot
	New         Snapshot
}

// AuditFilter narrows an audit query. Zero values disable a filter.
type AuditFilter struct {
	EntityType string
	Action     string
	UserID     int
	Range      DateRange
	Search     string
}

// Snapshot is a serialized entity state stored as JSONB.
type Snapshot map[string]any

// Value implements driver.Valuer. A nil snapshot is stored as SQL NULL.
func (s Snapshot) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (s *Snapshot) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("snapshot: unsupported type %T", src)
	}
	m := Snapshot{}
	if err := json.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	*s = m
	return nil
}
