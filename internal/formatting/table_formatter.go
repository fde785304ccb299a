package formatting

import (
	"fmt"

	"fnprobe/internal/history"
	"fnprobe/internal/invoke"
	textutil "fnprobe/pkg/strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// TableFormatter provides rich table output formatting
type TableFormatter struct {
	base
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(options Options) Formatter {
	return &TableFormatter{base{options: options}}
}

// FormatOutcome renders the outcome fields as key/value rows.
func (f *TableFormatter) FormatOutcome(outcome invoke.Outcome) string {
	t := f.createTable()
	t.AppendHeader(table.Row{text.FgHiCyan.Sprint("FIELD"), text.FgHiCyan.Sprint("VALUE")})

	result := text.FgGreen.Sprint("✅ success")
	if outcome.Failed() {
		result = text.FgRed.Sprint("❌ " + string(outcome.ErrorKind))
	}
	t.AppendRow(table.Row{"result", result})
	t.AppendRow(table.Row{"statusCode", outcome.StatusCode})
	t.AppendRow(table.Row{"duration", fmt.Sprintf("%dms", outcome.DurationMs)})
	if outcome.ErrorType != "" {
		t.AppendRow(table.Row{"errorType", outcome.ErrorType})
	}
	if outcome.ErrorMessage != "" {
		t.AppendRow(table.Row{"errorMessage", textutil.Truncate(outcome.ErrorMessage, textutil.BodyMaxLen)})
	}
	if outcome.Analysis != nil {
		t.AppendRow(table.Row{"confidence", outcome.Analysis.Confidence})
		t.AppendRow(table.Row{"recordCount", outcome.Analysis.RecordCount})
	}
	if body := outcome.BodyText(); body != "" {
		t.AppendRow(table.Row{"body", textutil.Truncate(body, textutil.BodyMaxLen)})
	}
	return t.Render()
}

// FormatHistory renders one row per phase run.
func (f *TableFormatter) FormatHistory(runs []history.PhaseRun) string {
	if len(runs) == 0 {
		return f.formatEmptyMessage("📋", "No recorded runs")
	}
	t := f.createTable()
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("RUN"),
		text.FgHiCyan.Sprint("PHASE"),
		text.FgHiCyan.Sprint("FUNCTION"),
		text.FgHiCyan.Sprint("RESULT"),
		text.FgHiCyan.Sprint("AVG"),
		text.FgHiCyan.Sprint("WHEN"),
	})
	for _, r := range runs {
		avg := "-"
		if r.AverageMs != nil {
			avg = fmt.Sprintf("%.1fms", *r.AverageMs)
		}
		t.AppendRow(table.Row{
			r.RunID,
			r.Phase,
			r.Function,
			f.resultCell(r.Failed == 0, fmt.Sprintf("%d/%d", r.Passed, r.Total)),
			avg,
			r.GeneratedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return t.Render()
}

// FormatTests renders one row per test entry.
func (f *TableFormatter) FormatTests(tests []history.TestRun) string {
	if len(tests) == 0 {
		return f.formatEmptyMessage("📋", "No recorded tests")
	}
	t := f.createTable()
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("TEST"),
		text.FgHiCyan.Sprint("KIND"),
		text.FgHiCyan.Sprint("RESULT"),
		text.FgHiCyan.Sprint("DURATION"),
		text.FgHiCyan.Sprint("REASON"),
	})
	for _, tr := range tests {
		t.AppendRow(table.Row{
			tr.Name,
			tr.Kind,
			f.resultCell(tr.Passed, ""),
			fmt.Sprintf("%dms", tr.DurationMs),
			textutil.Truncate(tr.Reason, textutil.ReasonMaxLen),
		})
	}
	return t.Render()
}

// createTable creates a new table with standard styling
func (f *TableFormatter) createTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	return t
}

func (f *TableFormatter) resultCell(passed bool, detail string) string {
	label := "✅ PASS"
	color := text.FgGreen
	if !passed {
		label = "❌ FAIL"
		color = text.FgRed
	}
	if detail != "" {
		label += " " + detail
	}
	return color.Sprint(label)
}

// formatEmptyMessage formats empty result messages
func (f *TableFormatter) formatEmptyMessage(icon, message string) string {
	return fmt.Sprintf("%s %s", text.FgYellow.Sprint(icon), text.FgYellow.Sprint(message))
}
