package report

import (
	"fmt"
	"io"

	textutil "fnprobe/pkg/strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RenderTable writes a console summary of the report to w.
func RenderTable(w io.Writer, r *PhaseReport) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(fmt.Sprintf("%s phase, run %s", r.Phase, r.RunID))

	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("TEST"),
		text.FgHiCyan.Sprint("KIND"),
		text.FgHiCyan.Sprint("RESULT"),
		text.FgHiCyan.Sprint("DURATION"),
		text.FgHiCyan.Sprint("REASON"),
	})
	for _, e := range r.Tests {
		t.AppendRow(table.Row{
			e.Name,
			e.Kind,
			resultCell(e.Passed),
			fmt.Sprintf("%dms", e.DurationMs),
			textutil.Truncate(e.Reason, textutil.ReasonMaxLen),
		})
	}
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d/%d", r.Totals.Passed, r.Totals.Total), "", ""})
	t.Render()

	if r.LogExtractionFailed != "" {
		fmt.Fprintf(w, "%s log extraction failed: %s\n", text.FgYellow.Sprint("⚠️"), r.LogExtractionFailed)
	}
	for _, o := range r.Orphans {
		fmt.Fprintf(w, "%s orphaned %s %s: %s\n", text.FgYellow.Sprint("⚠️"), o.Kind, o.ID, o.Error)
	}
}

func resultCell(passed bool) string {
	if passed {
		return text.FgGreen.Sprint("✅ PASS")
	}
	return text.FgRed.Sprint("❌ FAIL")
}
