package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"al.essio.dev/pkg/shellescape"
	"github.com/Masterminds/sprig/v3"
)

// HumanFileName is the readable report written per phase.
const HumanFileName = "report.md"

const humanTemplate = `# fnprobe {{ .Phase }} report

| | |
|---|---|
| Run | {{ .RunID }} |
{{- with .Function }}
| Function | {{ . }} |
{{- end }}
{{- with .Region }}
| Region | {{ . }} |
{{- end }}
{{- with .BuildID }}
| Build | {{ . }} |
{{- end }}
| Generated | {{ dateInZone "2006-01-02 15:04:05 MST" .Timestamp "UTC" }} |

**{{ .Totals.Passed }}/{{ .Totals.Total }} passed{{ if gt .Totals.Failed 0 }}, {{ .Totals.Failed }} failed{{ end }}**

## Results

| Test | Kind | Result | Duration | Reason |
|---|---|---|---|---|
{{- range .Tests }}
| {{ cell .Name }} | {{ .Kind }} | {{ if .Passed }}✅ PASS{{ else }}❌ FAIL{{ end }} | {{ .DurationMs }}ms | {{ .Reason | default "-" | cell }} |
{{- end }}
{{- $failures := failures . }}
{{- if $failures }}

## Failures
{{- range $failures }}

### {{ .Name }}

- Type: {{ .FailureType | default "unknown" }}
- Reason: {{ .Reason | default "-" }}
{{- range .Steps }}{{ if not .Passed }}
- Step {{ .Name }}: {{ .Reason }}
{{- end }}{{ end }}
{{- with reproduce . }}

Reproduce:

` + "```sh" + `
{{ . }}
` + "```" + `
{{- end }}
{{- end }}
{{- end }}
{{- with .Performance }}

## Performance

- Mode: {{ .Mode }} (concurrency {{ .Concurrency }})
- Iterations: {{ .Iterations }}
- Average: {{ printf "%.1f" .AverageMs }}ms (expected ≤ {{ .ExpectedResponseTimeMs }}ms)
- Min / p95 / Max: {{ .MinMs }}ms / {{ .P95Ms }}ms / {{ .MaxMs }}ms
{{- end }}
{{- if or .Logs .LogExtractionFailed }}

## Logs
{{- with .Logs }}

- Log group: {{ .LogGroup }}
- Lines: {{ .TotalLines }}
{{- range $severity, $n := .Counts }}
- {{ $severity }}: {{ $n }}
{{- end }}
{{- end }}
{{- with .LogExtractionFailed }}

Log extraction failed: {{ . }}
{{- end }}
{{- end }}
{{- with .Orphans }}

## Orphaned resources
{{ range . }}
- {{ .Kind }} {{ .ID }} (session {{ .SessionID }}): {{ .Error }}
{{- end }}
{{- end }}
`

// RenderHuman renders the readable report.
func RenderHuman(r *PhaseReport) ([]byte, error) {
	funcs := sprig.TxtFuncMap()
	funcs["failures"] = func(r *PhaseReport) []TestEntry { return r.Failures() }
	funcs["cell"] = tableCell
	funcs["reproduce"] = func(t TestEntry) string { return ReproduceCommand(r.Function, r.Region, t.Payload) }

	tmpl, err := template.New("report").Funcs(funcs).Parse(humanTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse report template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, r); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}
	return buf.Bytes(), nil
}

// tableCell keeps text inside one Markdown table cell: pipes are escaped
// and line breaks become <br>.
func tableCell(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "|", "\\|")
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	return strings.Join(lines, "<br>")
}

// WriteHumanReport writes report.md into dir and returns its path.
func WriteHumanReport(dir string, r *PhaseReport) (string, error) {
	data, err := RenderHuman(r)
	if err != nil {
		return "", err
	}
	return writeFile(dir, HumanFileName, data)
}

// ReproduceCommand returns an aws cli command that replays payload against
// function. It returns "" when there is nothing to replay.
func ReproduceCommand(function, region string, payload map[string]interface{}) string {
	if function == "" || payload == nil {
		return ""
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	args := []string{"aws", "lambda", "invoke",
		"--function-name", shellescape.Quote(function),
	}
	if region != "" {
		args = append(args, "--region", shellescape.Quote(region))
	}
	args = append(args,
		"--cli-binary-format", "raw-in-base64-out",
		"--payload", shellescape.Quote(string(body)),
		"out.json",
	)
	return strings.Join(args, " ")
}
