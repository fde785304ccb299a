package logs

import (
	"fmt"
	"time"
)

// Severity is one of the fixed classification buckets.
type Severity string

const (
	SeverityInfo  Severity = "INFO"
	SeverityWarn  Severity = "WARN"
	SeverityError Severity = "ERROR"
	// SeverityNone marks lines that match no bucket.
	SeverityNone Severity = ""
)

// Entry is one log line.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Stream    string    `json:"stream,omitempty"`
	Severity  Severity  `json:"severity,omitempty"`
}

// Bundle is the set of log lines collected for a time window, ordered by
// timestamp.
type Bundle struct {
	LogGroup string         `json:"logGroup"`
	Start    time.Time      `json:"start"`
	End      time.Time      `json:"end"`
	Entries  []Entry        `json:"entries"`
	Counts   map[string]int `json:"counts"`
}

// Summary is the compact view of a bundle embedded in reports.
type Summary struct {
	LogGroup   string         `json:"logGroup"`
	TotalLines int            `json:"totalLines"`
	Counts     map[string]int `json:"counts"`
}

// Summary returns the bundle's totals.
func (b *Bundle) Summary() Summary {
	return Summary{LogGroup: b.LogGroup, TotalLines: len(b.Entries), Counts: b.Counts}
}

// ExtractionError means the log backend could not be queried. It never
// changes a test verdict; reports record it as LogExtractionFailed.
type ExtractionError struct {
	LogGroup string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("log extraction from %s failed: %v", e.LogGroup, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
