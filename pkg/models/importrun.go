package models

import "time"

type ImportRunStatus string

const (
	RunSuccess ImportRunStatus = "SUCCESS"
	RunFailed  ImportRunStatus = "FAILED"
)

// ImportRun summarizes one invocation of the workbook import. Exactly one
// run record is written per invocation, success or failure.
type ImportRun struct {
	ID         string          `json:"id"`
	Filename   string          `json:"filename"`
	Status     ImportRunStatus `json:"status"`
	TotalRows  int             `json:"total_rows"`
	UniqueKeys int             `json:"unique_keys"`
	Duplicates int             `json:"duplicates"`
	Skipped    int             `json:"skipped"`
	Created    int             `json:"created"`
	Updated    int             `json:"updated"`
	DurationMs int64           `json:"duration_ms"`
	Error      *string         `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}
