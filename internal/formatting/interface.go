// Package formatting renders ad hoc command output (single invocations and
// history listings) in console, JSON, YAML or table form.
package formatting

import (
	"fnprobe/internal/history"
	"fnprobe/internal/invoke"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatConsole OutputFormat = "console" // Simple console output
	FormatJSON    OutputFormat = "json"    // JSON output
	FormatYAML    OutputFormat = "yaml"    // YAML output
	FormatTable   OutputFormat = "table"   // Rich table output
)

// ParseFormat maps a flag value to an OutputFormat.
func ParseFormat(s string) (OutputFormat, bool) {
	switch OutputFormat(s) {
	case FormatConsole, FormatJSON, FormatYAML, FormatTable:
		return OutputFormat(s), true
	case "":
		return FormatConsole, true
	}
	return "", false
}

// Options configures the formatter behavior
type Options struct {
	Format OutputFormat
	Quiet  bool // Suppress decorative elements
}

// Formatter renders command results.
type Formatter interface {
	// FormatOutcome renders one invocation outcome.
	FormatOutcome(outcome invoke.Outcome) string
	// FormatHistory renders recorded phase runs, newest first.
	FormatHistory(runs []history.PhaseRun) string
	// FormatTests renders the entries of one phase run.
	FormatTests(tests []history.TestRun) string

	SetOptions(options Options)
	GetOptions() Options
}

// Factory creates formatters for different output formats
type Factory interface {
	CreateFormatter(options Options) Formatter
}

// NewFactory creates a new formatter factory
func NewFactory() Factory {
	return &factory{}
}

type factory struct{}

// CreateFormatter creates the appropriate formatter based on options
func (f *factory) CreateFormatter(options Options) Formatter {
	switch options.Format {
	case FormatJSON:
		return NewJSONFormatter(options)
	case FormatYAML:
		return NewYAMLFormatter(options)
	case FormatTable:
		return NewTableFormatter(options)
	case FormatConsole:
		fallthrough
	default:
		return NewConsoleFormatter(options)
	}
}

// base holds the options shared by every formatter.
type base struct {
	options Options
}

func (b *base) SetOptions(options Options) { b.options = options }
func (b *base) GetOptions() Options        { return b.options }
