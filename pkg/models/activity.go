package models

import (
	"strings"
	"time"
)

type ActivityAction string

const (
	ActionImportRun    ActivityAction = "IMPORT_RUN"
	ActionEntryCreated ActivityAction = "ENTRY_CREATED"
	ActionEntryUpdated ActivityAction = "ENTRY_UPDATED"
	ActionEntryDeleted ActivityAction = "ENTRY_DELETED"
)

// ActivityLog is an append-only change record. Changes is a free-form
// before/after map serialized as JSON in storage.
type ActivityLog struct {
	ID        string         `json:"id"`
	Action    ActivityAction `json:"action"`
	EntryID   *string        `json:"entry_id,omitempty"`
	Message   string         `json:"message"`
	Changes   map[string]any `json:"changes,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// FieldChange is the value stored under a field name in ActivityLog.Changes.
type FieldChange struct {
	From any `json:"from"`
	To   any `json:"to"`
}

func normalizeUpper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
