package harness

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"fnprobe/internal/clock"
	"fnprobe/internal/config"
	"fnprobe/internal/invoke"
	"fnprobe/internal/logs"
	"fnprobe/internal/perf"
	"fnprobe/internal/report"
	"fnprobe/internal/resources"
	"fnprobe/internal/scenario"
	"fnprobe/internal/session"
	"fnprobe/internal/target"
	"fnprobe/internal/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

type fakeInvoker struct {
	mu         sync.Mutex
	payloads   []map[string]interface{}
	invokeFunc func(payload map[string]interface{}) invoke.Outcome
}

func (f *fakeInvoker) Invoke(_ context.Context, _ *target.FunctionTarget, payload interface{}) invoke.Outcome {
	p, _ := payload.(map[string]interface{})
	f.mu.Lock()
	f.payloads = append(f.payloads, p)
	f.mu.Unlock()
	if f.invokeFunc != nil {
		return f.invokeFunc(p)
	}
	return invoke.Outcome{Success: true, StatusCode: 200, DurationMs: 10}
}

type fakeLogSource struct {
	bundle *logs.Bundle
	err    error
}

func (f *fakeLogSource) QueryWindow(_ context.Context, t *target.FunctionTarget, _, _ time.Time) (*logs.Bundle, error) {
	if f.err != nil {
		return nil, &logs.ExtractionError{LogGroup: t.LogGroup(), Err: f.err}
	}
	return f.bundle, nil
}

type fakeProvider struct {
	ids     map[string]string
	err     error
	orphans []resources.Orphan
}

func (f *fakeProvider) WithResources(_ context.Context, _ []resources.Spec, fn func(ids map[string]string) error) ([]resources.Orphan, error) {
	if f.err != nil {
		return f.orphans, f.err
	}
	return f.orphans, fn(f.ids)
}

type fakeRecorder struct {
	recorded []*report.PhaseReport
}

func (f *fakeRecorder) Record(_ context.Context, r *report.PhaseReport) error {
	f.recorded = append(f.recorded, r)
	return nil
}

func testTarget() *target.FunctionTarget {
	return &target.FunctionTarget{Name: "orders-api", Runtime: "python3.12", MemoryMB: 256, TimeoutSeconds: 30}
}

func newTestRunner(t *testing.T, invoker Invoker, opts ...Option) (*Runner, *session.Session) {
	t.Helper()
	clk := clock.NewMockClock(start)
	s := &session.Session{
		RunID:      "42-abc1234",
		BuildID:    "42",
		Region:     "eu-west-1",
		ResultsDir: t.TempDir(),
		StartTime:  start,
	}
	templates := template.New(clk, &template.SequenceGenerator{Prefix: "id"}, s.RunID, s.BuildID)
	opts = append([]Option{WithClock(clk)}, opts...)
	return NewRunner(s, testTarget(), invoker, templates, opts...), s
}

func TestRunUnit(t *testing.T) {
	invoker := &fakeInvoker{invokeFunc: func(p map[string]interface{}) invoke.Outcome {
		if p["action"] == "break" {
			return invoke.Outcome{ErrorKind: invoke.ErrorKindInvocation, ErrorMessage: "Unhandled: boom", DurationMs: 15}
		}
		return invoke.Outcome{Success: true, StatusCode: 200, DurationMs: 20, Body: map[string]interface{}{"status": "ok"}}
	}}
	r, s := newTestRunner(t, invoker, WithScenarios([]scenario.Scenario{
		{Name: "health-check", Event: map[string]interface{}{"test": "health", "run": "${run_id}"},
			Expected: &scenario.Expectation{StatusCode: scenario.IntPtr(200)}},
		{Name: "broken", Event: map[string]interface{}{"action": "break"},
			Expected: &scenario.Expectation{StatusCode: scenario.IntPtr(200)}},
	}))

	rep, err := r.RunUnit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, report.Totals{Total: 2, Passed: 1, Failed: 1}, rep.Totals)
	assert.Equal(t, "InvocationError", rep.Tests[1].FailureType)
	assert.Equal(t, "42-abc1234", invoker.payloads[0]["run"])
	require.NotNil(t, rep.Tests[0].Payload)
	assert.Equal(t, "42-abc1234", rep.Tests[0].Payload["run"])

	dir := filepath.Join(s.ResultsDir, "unit")
	for _, name := range []string{"summary.json", "junit-results.xml", "report.md", "health-check-42-abc1234.json", "broken-42-abc1234.json"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	assert.Equal(t, filepath.Join(dir, "health-check-42-abc1234.json"), rep.Tests[0].Artifact)
	assert.NoFileExists(t, filepath.Join(dir, logs.TextFileName))
}

func TestRunUnitTemplateError(t *testing.T) {
	invoker := &fakeInvoker{}
	r, _ := newTestRunner(t, invoker, WithScenarios([]scenario.Scenario{
		{Name: "bad-token", Event: map[string]interface{}{"x": "${nope}"}},
	}))

	rep, err := r.RunUnit(context.Background())
	require.NoError(t, err)

	require.Len(t, rep.Tests, 1)
	assert.False(t, rep.Tests[0].Passed)
	assert.Contains(t, rep.Tests[0].Reason, "Template error")
	assert.Empty(t, invoker.payloads)
}

func TestRunUnitPerformance(t *testing.T) {
	invoker := &fakeInvoker{}
	r, _ := newTestRunner(t, invoker, WithPerformance(perf.Config{
		Iterations:             4,
		Concurrency:            2,
		ExpectedResponseTimeMs: 100,
		Payload:                map[string]interface{}{"test": "perf"},
	}))

	rep, err := r.RunUnit(context.Background())
	require.NoError(t, err)

	require.NotNil(t, rep.Performance)
	assert.Equal(t, perf.ModeUnderLoad, rep.Performance.Mode)
	assert.True(t, rep.Performance.Passed)
	assert.Len(t, invoker.payloads, 4)
	require.Len(t, rep.Tests, 1)
	assert.Equal(t, report.KindPerformance, rep.Tests[0].Kind)
}

func TestLogExtractionFailureIsNonFatal(t *testing.T) {
	r, _ := newTestRunner(t, &fakeInvoker{},
		WithScenarios([]scenario.Scenario{{Name: "health-check", Event: map[string]interface{}{}}}),
		WithLogs(&fakeLogSource{err: errors.New("throttled")}, 10*time.Minute),
	)

	rep, err := r.RunUnit(context.Background())
	require.NoError(t, err)

	assert.True(t, rep.Passed())
	assert.Contains(t, rep.LogExtractionFailed, "throttled")
	assert.Nil(t, rep.Logs)
}

func TestLogsFromBackend(t *testing.T) {
	bundle := logs.BundleFromText("/aws/lambda/orders-api", "START RequestId: 1\nERROR boom\nEND RequestId: 1")
	r, s := newTestRunner(t, &fakeInvoker{},
		WithScenarios([]scenario.Scenario{{Name: "health-check", Event: map[string]interface{}{}}}),
		WithLogs(&fakeLogSource{bundle: bundle}, 10*time.Minute),
	)

	rep, err := r.RunUnit(context.Background())
	require.NoError(t, err)

	require.NotNil(t, rep.Logs)
	assert.Equal(t, 3, rep.Logs.TotalLines)
	assert.Equal(t, 1, rep.Logs.Counts["ERROR"])
	assert.FileExists(t, filepath.Join(s.ResultsDir, "unit", logs.TextFileName))
	assert.FileExists(t, filepath.Join(s.ResultsDir, "unit", logs.JSONFileName))
}

func TestInlineLogTails(t *testing.T) {
	tail := base64.StdEncoding.EncodeToString([]byte("START RequestId: 1\nWARN slow query\nEND RequestId: 1\n"))
	invoker := &fakeInvoker{invokeFunc: func(map[string]interface{}) invoke.Outcome {
		return invoke.Outcome{Success: true, StatusCode: 200, LogTail: tail}
	}}
	r, _ := newTestRunner(t, invoker,
		WithScenarios([]scenario.Scenario{{Name: "health-check", Event: map[string]interface{}{}}}),
		WithLogs(nil, 0),
	)

	rep, err := r.RunUnit(context.Background())
	require.NoError(t, err)

	require.NotNil(t, rep.Logs)
	assert.Equal(t, "/aws/lambda/orders-api", rep.Logs.LogGroup)
	assert.Equal(t, 1, rep.Logs.Counts["WARN"])
}

func orderFlow() scenario.Workflow {
	return scenario.Workflow{
		Name: "order-flow",
		Steps: []scenario.Step{
			{Name: "submit", Type: scenario.StepInvoke,
				Payload: map[string]interface{}{"bucket": "${resource:uploads}", "id": "${uuid}"},
				Expect:  &scenario.Expectation{StatusCode: scenario.IntPtr(200)}},
			{Name: "pause", Type: scenario.StepWait, Seconds: 2},
			{Name: "fetch", Type: scenario.StepInvoke, Payload: map[string]interface{}{"id": "${uuid}"}},
		},
	}
}

func TestRunIntegrationWithResources(t *testing.T) {
	invoker := &fakeInvoker{}
	provider := &fakeProvider{
		ids:     map[string]string{"uploads": "fnprobe-42-abc1234-uploads"},
		orphans: []resources.Orphan{{Kind: resources.KindBucket, ID: "fnprobe-42-abc1234-uploads", SessionID: "42-abc1234", Error: "TeardownError: denied"}},
	}
	rec := &fakeRecorder{}
	r, _ := newTestRunner(t, invoker,
		WithWorkflows([]scenario.Workflow{orderFlow()}),
		WithResources(provider, []resources.Spec{{Name: "uploads", Kind: resources.KindBucket}}),
		WithRecorder(rec),
	)

	rep, err := r.RunIntegration(context.Background())
	require.NoError(t, err)

	assert.True(t, rep.Passed())
	require.Len(t, rep.Tests, 1)
	assert.Len(t, rep.Tests[0].Steps, 3)
	require.Len(t, invoker.payloads, 2)
	assert.Equal(t, "fnprobe-42-abc1234-uploads", invoker.payloads[0]["bucket"])
	assert.Equal(t, invoker.payloads[0]["id"], invoker.payloads[1]["id"])
	require.Len(t, rep.Orphans, 1)
	require.Len(t, rec.recorded, 1)
	assert.Equal(t, session.PhaseIntegration, rec.recorded[0].Phase)
}

func TestRunIntegrationProvisionFailure(t *testing.T) {
	invoker := &fakeInvoker{}
	provider := &fakeProvider{err: &resources.ProvisionError{Spec: "uploads", Err: errors.New("access denied")}}
	r, _ := newTestRunner(t, invoker,
		WithWorkflows([]scenario.Workflow{orderFlow(), {Name: "second", Steps: []scenario.Step{{Name: "a", Type: scenario.StepInvoke}}}}),
		WithResources(provider, []resources.Spec{{Name: "uploads", Kind: resources.KindBucket}}),
	)

	rep, err := r.RunIntegration(context.Background())
	require.NoError(t, err)

	assert.Equal(t, report.Totals{Total: 2, Failed: 2}, rep.Totals)
	for _, e := range rep.Tests {
		assert.Equal(t, report.FailureProvision, e.FailureType)
		assert.Contains(t, e.Reason, "access denied")
	}
	assert.Empty(t, invoker.payloads)
}

func TestRunPhases(t *testing.T) {
	var out bytes.Buffer
	r, s := newTestRunner(t, &fakeInvoker{},
		WithScenarios([]scenario.Scenario{{Name: "health-check", Event: map[string]interface{}{}}}),
		WithWorkflows([]scenario.Workflow{orderFlow()}),
		WithReporter(NewConsoleReporter(&out, true, false)),
	)

	reports, err := r.Run(context.Background(), []string{session.PhaseUnit, session.PhaseIntegration})
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, session.PhaseUnit, reports[0].Phase)
	assert.Equal(t, session.PhaseIntegration, reports[1].Phase)
	assert.DirExists(t, filepath.Join(s.ResultsDir, "integration"))

	console := out.String()
	assert.Contains(t, console, "🧪 fnprobe run 42-abc1234")
	assert.Contains(t, console, "✅ health-check")
	assert.Contains(t, console, "🎉 All unit tests passed!")

	_, err = r.Run(context.Background(), []string{"smoke"})
	assert.Error(t, err)
}

func TestRunReportsTimeout(t *testing.T) {
	r, _ := newTestRunner(t, &fakeInvoker{},
		WithScenarios([]scenario.Scenario{{Name: "health-check", Event: map[string]interface{}{}}}),
	)
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	reports, err := r.Run(ctx, []string{session.PhaseUnit, session.PhaseIntegration})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, reports, 1)
}

func TestConfigConversions(t *testing.T) {
	specs := ResourceSpecs([]config.ResourceSpecConfig{
		{Name: "uploads", Kind: "bucket"},
		{Name: "seed", Kind: "object", Bucket: "uploads", Key: "seed.json", Content: "{}"},
	})
	require.Len(t, specs, 2)
	assert.Equal(t, resources.KindBucket, specs[0].Kind)
	assert.Equal(t, resources.Spec{Name: "seed", Kind: resources.KindObject, Bucket: "uploads", Key: "seed.json", Content: "{}"}, specs[1])

	pc := PerformanceConfig(config.PerformanceConfig{Enabled: true, Iterations: 10, Concurrency: 1, ExpectedResponseTimeMs: 500})
	assert.Equal(t, perf.Config{Iterations: 10, Concurrency: 1, ExpectedResponseTimeMs: 500}, pc)
}
