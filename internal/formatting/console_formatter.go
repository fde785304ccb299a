package formatting

import (
	"fmt"
	"strings"

	"fnprobe/internal/history"
	"fnprobe/internal/invoke"
)

// ConsoleFormatter provides simple console output formatting
type ConsoleFormatter struct {
	base
}

// NewConsoleFormatter creates a new console formatter
func NewConsoleFormatter(options Options) Formatter {
	return &ConsoleFormatter{base{options: options}}
}

// FormatOutcome prints the status line followed by the response body.
func (f *ConsoleFormatter) FormatOutcome(outcome invoke.Outcome) string {
	var output []string
	if outcome.Failed() {
		output = append(output, fmt.Sprintf("%s %s after %dms: %s", symbol(false), outcome.ErrorKind, outcome.DurationMs, outcome.ErrorMessage))
		if outcome.ErrorType != "" {
			output = append(output, fmt.Sprintf("Error type: %s", outcome.ErrorType))
		}
	} else {
		output = append(output, fmt.Sprintf("%s status %d in %dms", symbol(true), outcome.StatusCode, outcome.DurationMs))
	}
	if outcome.ExecutedVersion != "" && !f.options.Quiet {
		output = append(output, fmt.Sprintf("Version: %s", outcome.ExecutedVersion))
	}
	if outcome.Analysis != nil && !f.options.Quiet {
		a := outcome.Analysis
		output = append(output, fmt.Sprintf("Analysis (%s): records=%d dataReturned=%t backendReached=%t",
			a.Confidence, a.RecordCount, a.DataReturned, a.BackendReached))
	}
	if outcome.Body != nil {
		output = append(output, PrettyJSON(outcome.Body))
	} else if outcome.RawBody != "" {
		output = append(output, outcome.RawBody)
	}
	return strings.Join(output, "\n")
}

// FormatHistory lists phase runs one per line.
func (f *ConsoleFormatter) FormatHistory(runs []history.PhaseRun) string {
	if len(runs) == 0 {
		return "No recorded runs."
	}
	var output []string
	if !f.options.Quiet {
		output = append(output, fmt.Sprintf("Recorded runs (%d):", len(runs)))
	}
	for _, r := range runs {
		output = append(output, fmt.Sprintf("  %s %-24s %-12s %d/%d passed  %s",
			symbol(r.Failed == 0), r.RunID, r.Phase, r.Passed, r.Total, r.GeneratedAt.Format("2006-01-02 15:04:05")))
	}
	return strings.Join(output, "\n")
}

// FormatTests lists test entries one per line.
func (f *ConsoleFormatter) FormatTests(tests []history.TestRun) string {
	if len(tests) == 0 {
		return "No recorded tests."
	}
	var output []string
	for _, t := range tests {
		line := fmt.Sprintf("  %s %-30s %dms", symbol(t.Passed), t.Name, t.DurationMs)
		if !t.Passed {
			line += fmt.Sprintf("  [%s] %s", t.FailureType, t.Reason)
		}
		output = append(output, line)
	}
	return strings.Join(output, "\n")
}

func symbol(passed bool) string {
	if passed {
		return "✅"
	}
	return "❌"
}
