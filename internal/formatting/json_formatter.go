package formatting

import (
	"fnprobe/internal/history"
	"fnprobe/internal/invoke"
)

// JSONFormatter provides JSON output formatting
type JSONFormatter struct {
	base
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(options Options) Formatter {
	return &JSONFormatter{base{options: options}}
}

func (f *JSONFormatter) FormatOutcome(outcome invoke.Outcome) string {
	return PrettyJSON(outcome)
}

func (f *JSONFormatter) FormatHistory(runs []history.PhaseRun) string {
	return PrettyJSON(runs)
}

func (f *JSONFormatter) FormatTests(tests []history.TestRun) string {
	return PrettyJSON(tests)
}
