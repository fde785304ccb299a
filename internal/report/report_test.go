package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fnprobe/internal/invoke"
	"fnprobe/internal/logs"
	"fnprobe/internal/perf"
	"fnprobe/internal/resources"
	"fnprobe/internal/scenario"
	"fnprobe/internal/session"
	"fnprobe/internal/validate"
	"fnprobe/internal/workflow"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var generatedAt = time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

func testSession() *session.Session {
	return &session.Session{
		RunID:   "42-abc1234",
		BuildID: "42",
		Commit:  "abc1234def",
		Region:  "eu-west-1",
	}
}

func sampleReport() *PhaseReport {
	b := NewBuilder(testSession(), session.PhaseUnit, "orders-api")
	b.AddScenario("health-check",
		map[string]interface{}{"test": "health"},
		invoke.Outcome{Success: true, StatusCode: 200, DurationMs: 120},
		validate.Verdict{Passed: true},
		"",
	)
	b.AddScenario("create-order",
		map[string]interface{}{"action": "create", "id": "o-1"},
		invoke.Outcome{Success: true, StatusCode: 500, DurationMs: 340},
		validate.Verdict{
			Reason: "Status code mismatch: expected 200, got 500",
			Notes:  []string{"records check is heuristic only"},
		},
		"",
	)
	b.SetPerformance(perf.Metrics{
		Iterations:             5,
		Concurrency:            1,
		Mode:                   perf.ModeIsolated,
		AverageMs:              85,
		MinMs:                  80,
		MaxMs:                  95,
		P95Ms:                  95,
		ExpectedResponseTimeMs: 500,
		Passed:                 true,
	})
	return b.Build(generatedAt)
}

func TestBuilderTotals(t *testing.T) {
	r := sampleReport()

	assert.Equal(t, Totals{Total: 3, Passed: 2, Failed: 1}, r.Totals)
	assert.False(t, r.Passed())
	require.Len(t, r.Failures(), 1)
	assert.Equal(t, "create-order", r.Failures()[0].Name)
	assert.Equal(t, FailureValidation, r.Failures()[0].FailureType)
	assert.Equal(t, "42-abc1234", r.RunID)
	assert.Equal(t, generatedAt, r.Timestamp)
}

func TestBuilderFailureTypeUsesErrorKind(t *testing.T) {
	b := NewBuilder(testSession(), session.PhaseUnit, "orders-api")
	b.AddScenario("slow",
		nil,
		invoke.Outcome{ErrorKind: invoke.ErrorKindTimeout, ErrorMessage: "deadline exceeded"},
		validate.Check(invoke.Outcome{ErrorKind: invoke.ErrorKindTimeout, ErrorMessage: "deadline exceeded"}, &scenario.Expectation{}),
		"",
	)
	r := b.Build(generatedAt)

	require.Len(t, r.Tests, 1)
	assert.False(t, r.Tests[0].Passed)
	assert.Equal(t, "Timeout", r.Tests[0].FailureType)
}

func TestBuilderWorkflows(t *testing.T) {
	b := NewBuilder(testSession(), session.PhaseIntegration, "orders-api")
	b.AddWorkflow(workflow.Execution{
		ExecutionID: "exec-1",
		Workflow:    "order-flow",
		State:       workflow.StateFailed,
		DurationMs:  1500,
		Steps: []workflow.StepResult{
			{Name: "submit", Type: scenario.StepInvoke, Passed: true, DurationMs: 400},
			{Name: "pause", Type: scenario.StepWait, Passed: true, DurationMs: 1000},
			{Name: "fetch", Type: scenario.StepInvoke, Reason: "Response body does not contain \"o-1\"", DurationMs: 100,
				Outcome: &invoke.Outcome{Success: true, StatusCode: 200}},
		},
	})
	b.AddWorkflow(workflow.Execution{
		ExecutionID: "exec-2",
		Workflow:    "upload-flow",
		State:       workflow.StateFailed,
		Error:       "ProvisionError: bucket uploads: access denied",
	})
	r := b.Build(generatedAt)

	require.Len(t, r.Tests, 2)
	assert.Equal(t, FailureValidation, r.Tests[0].FailureType)
	assert.Equal(t, "fetch: Response body does not contain \"o-1\"", r.Tests[0].Reason)
	assert.Len(t, r.Tests[0].Steps, 3)
	assert.Equal(t, FailureProvision, r.Tests[1].FailureType)
	assert.Equal(t, Totals{Total: 2, Failed: 2}, r.Totals)
}

func TestMarshalCIGolden(t *testing.T) {
	data, err := MarshalCI(sampleReport())
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "unit_junit", data)
}

func TestReportsAreIdempotent(t *testing.T) {
	first := sampleReport()
	second := sampleReport()
	second.Timestamp = generatedAt.Add(time.Hour)

	ciA, err := MarshalCI(first)
	require.NoError(t, err)
	ciB, err := MarshalCI(second)
	require.NoError(t, err)
	assert.Equal(t, ciA, ciB)

	machineA, err := MarshalMachine(first)
	require.NoError(t, err)
	machineB, err := MarshalMachine(second)
	require.NoError(t, err)
	assert.Equal(t, withoutTimestamp(t, machineA), withoutTimestamp(t, machineB))

	again, err := MarshalMachine(first)
	require.NoError(t, err)
	assert.Equal(t, machineA, again)
}

func withoutTimestamp(t *testing.T, data []byte) map[string]interface{} {
	t.Helper()
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Contains(t, doc, "timestamp")
	delete(doc, "timestamp")
	return doc
}

func TestWriteReports(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "unit")
	r := sampleReport()
	r.Logs = &logs.Summary{LogGroup: "/aws/lambda/orders-api", TotalLines: 4, Counts: map[string]int{"ERROR": 1, "INFO": 3, "WARN": 0}}
	r.Orphans = []resources.Orphan{{Kind: resources.KindBucket, ID: "fnprobe-42-uploads", SessionID: "42-abc1234", Error: "bucket not empty"}}

	machine, err := WriteMachineReport(dir, r)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "summary.json"), machine)

	ci, err := WriteCIReport(dir, r)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "junit-results.xml"), ci)

	human, err := WriteHumanReport(dir, r)
	require.NoError(t, err)

	var summary PhaseReport
	data, err := os.ReadFile(machine)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.Equal(t, r.Totals, summary.Totals)
	require.NotNil(t, summary.Performance)
	assert.Equal(t, perf.ModeIsolated, summary.Performance.Mode)
	assert.Equal(t, 1, summary.Logs.Counts["ERROR"])
	require.Len(t, summary.Orphans, 1)

	md, err := os.ReadFile(human)
	require.NoError(t, err)
	text := string(md)
	assert.Contains(t, text, "# fnprobe unit report")
	assert.Contains(t, text, "| Generated | 2024-03-09 14:05:07 UTC |")
	assert.Contains(t, text, "**2/3 passed, 1 failed**")
	assert.Contains(t, text, "| create-order | scenario | ❌ FAIL | 340ms | Status code mismatch: expected 200, got 500 |")
	assert.Contains(t, text, "### create-order")
	assert.Contains(t, text, `aws lambda invoke --function-name orders-api --region eu-west-1 --cli-binary-format raw-in-base64-out --payload '{"action":"create","id":"o-1"}' out.json`)
	assert.Contains(t, text, "- Mode: isolated (concurrency 1)")
	assert.Contains(t, text, "- ERROR: 1")
	assert.Contains(t, text, "fnprobe-42-uploads")
	assert.NotContains(t, text, "### health-check")
}

func TestHumanReportLogExtractionFailed(t *testing.T) {
	r := sampleReport()
	r.LogExtractionFailed = "log extraction from /aws/lambda/orders-api failed: throttled"

	md, err := RenderHuman(r)
	require.NoError(t, err)
	assert.Contains(t, string(md), "Log extraction failed: log extraction from /aws/lambda/orders-api failed: throttled")
}

func TestHumanReportKeepsMultiLineReasonInOneRow(t *testing.T) {
	b := NewBuilder(testSession(), session.PhaseUnit, "orders-api")
	b.AddScenario("crash",
		map[string]interface{}{"action": "crash"},
		invoke.Outcome{StatusCode: 200, ErrorKind: invoke.ErrorKindInvocation, ErrorMessage: "boom", DurationMs: 5},
		validate.Verdict{Reason: "InvocationError: boom\nat handler (index.js:3)\r\nat a|b\n"},
		"",
	)
	md, err := RenderHuman(b.Build(generatedAt))
	require.NoError(t, err)

	assert.Contains(t, string(md),
		"| crash | scenario | ❌ FAIL | 5ms | InvocationError: boom<br>at handler (index.js:3)<br>at a\\|b |\n")
}

func TestTableCell(t *testing.T) {
	assert.Equal(t, "a<br>b<br>c", tableCell("a\nb\r\nc"))
	assert.Equal(t, `x \| y`, tableCell("x | y"))
	assert.Equal(t, "one line", tableCell("one line"))
}

func TestReproduceCommand(t *testing.T) {
	tests := []struct {
		name     string
		function string
		payload  map[string]interface{}
		want     string
	}{
		{
			name:     "quotes payload",
			function: "orders-api",
			payload:  map[string]interface{}{"q": "it's"},
			want:     `aws lambda invoke --function-name orders-api --cli-binary-format raw-in-base64-out --payload '{"q":"it'"'"'s"}' out.json`,
		},
		{
			name:     "no payload",
			function: "orders-api",
			want:     "",
		},
		{
			name:    "no function",
			payload: map[string]interface{}{},
			want:    "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReproduceCommand(tt.function, "", tt.payload))
		})
	}
}

func TestWriteOutcomeArtifact(t *testing.T) {
	dir := t.TempDir()
	outcome := invoke.Outcome{
		Success:    true,
		StatusCode: 200,
		DurationMs: 42,
		Body:       map[string]interface{}{"ok": true},
		Analysis:   &invoke.Analysis{Confidence: invoke.ConfidenceHeuristic, LooksSuccessful: true},
	}

	path, err := WriteOutcomeArtifact(dir, "create order/v2", "42-abc1234", map[string]interface{}{"a": 1}, outcome)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "create_order_v2-42-abc1234.json"), path)

	var doc map[string]interface{}
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "create order/v2", doc["scenario"])
	analysis := doc["outcome"].(map[string]interface{})["analysis"].(map[string]interface{})
	assert.Equal(t, true, analysis["looksSuccessful"])
}
