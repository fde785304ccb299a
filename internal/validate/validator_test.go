package validate

import (
	"strconv"
	"testing"

	"fnprobe/internal/invoke"
	"fnprobe/internal/scenario"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okOutcome(status int, body interface{}, raw string) invoke.Outcome {
	return invoke.Outcome{Success: true, StatusCode: status, Body: body, RawBody: raw}
}

func int64Ptr(v int64) *int64 { return &v }

func TestValidate_HealthCheckPasses(t *testing.T) {
	out := okOutcome(200, map[string]interface{}{"statusCode": 200.0, "body": "healthy"}, `{"statusCode":200,"body":"healthy"}`)
	passed, reason := Validate(out, &scenario.Expectation{StatusCode: scenario.IntPtr(200)})
	assert.True(t, passed)
	assert.Empty(t, reason)
}

func TestValidate_StatusMismatch(t *testing.T) {
	out := okOutcome(200, map[string]interface{}{"statusCode": 200.0}, `{"statusCode":200}`)
	passed, reason := Validate(out, &scenario.Expectation{
		StatusCode:   scenario.IntPtr(400),
		BodyContains: []string{"error"},
	})
	assert.False(t, passed)
	assert.Contains(t, reason, "Status code mismatch: expected 400, got 200")
}

func TestValidate_StatusMismatchAlwaysNamesBothValues(t *testing.T) {
	for _, pair := range [][2]int{{200, 500}, {404, 200}, {201, 202}} {
		out := okOutcome(pair[1], nil, "")
		passed, reason := Validate(out, &scenario.Expectation{StatusCode: scenario.IntPtr(pair[0])})
		assert.False(t, passed)
		assert.Contains(t, reason, "expected "+strconv.Itoa(pair[0]))
		assert.Contains(t, reason, "got "+strconv.Itoa(pair[1]))
	}
}

func TestValidate_NilExpectation(t *testing.T) {
	passed, _ := Validate(okOutcome(500, nil, "oops"), nil)
	assert.True(t, passed, "absent expectation only requires the call to succeed")

	passed, reason := Validate(invoke.Outcome{ErrorKind: invoke.ErrorKindTimeout, ErrorMessage: "deadline"}, nil)
	assert.False(t, passed)
	assert.Equal(t, "Timeout: deadline", reason)
}

func TestValidate_UnexpectedErrorKind(t *testing.T) {
	out := invoke.Outcome{StatusCode: 200, ErrorKind: invoke.ErrorKindInvocation, ErrorMessage: "boom"}
	passed, reason := Validate(out, &scenario.Expectation{StatusCode: scenario.IntPtr(200)})
	assert.False(t, passed)
	assert.Equal(t, "InvocationError: boom", reason)
}

func TestValidate_StatusMismatchReportedBeforeErrorKind(t *testing.T) {
	out := invoke.Outcome{StatusCode: 200, ErrorKind: invoke.ErrorKindInvocation, ErrorMessage: "boom"}
	passed, reason := Validate(out, &scenario.Expectation{StatusCode: scenario.IntPtr(400)})
	assert.False(t, passed)
	assert.Contains(t, reason, "expected 400, got 200")

	passed, reason = Validate(out, &scenario.Expectation{BodyContains: []string{"created"}})
	assert.False(t, passed)
	assert.Contains(t, reason, `"created"`)
}

func TestValidate_Body(t *testing.T) {
	out := okOutcome(200, nil, `{"message":"user created","id":"abc"}`)

	passed, _ := Validate(out, &scenario.Expectation{BodyContains: []string{"created", "abc"}})
	assert.True(t, passed)

	passed, reason := Validate(out, &scenario.Expectation{BodyContains: []string{"created", "xyz"}})
	assert.False(t, passed)
	assert.Contains(t, reason, `"xyz"`)

	passed, reason = Validate(out, &scenario.Expectation{BodyNotContains: []string{"created"}})
	assert.False(t, passed)
	assert.Contains(t, reason, "unexpectedly contains")
}

func TestValidate_ErrorType(t *testing.T) {
	fnErr := invoke.Outcome{
		StatusCode:   200,
		ErrorKind:    invoke.ErrorKindInvocation,
		ErrorType:    "ValidationError",
		ErrorMessage: "id is required",
	}

	passed, _ := Validate(fnErr, &scenario.Expectation{ErrorType: "InvocationError"})
	assert.True(t, passed, "matches the error kind")

	passed, _ = Validate(fnErr, &scenario.Expectation{ErrorType: "ValidationError"})
	assert.True(t, passed, "matches the function-reported type")

	passed, reason := Validate(fnErr, &scenario.Expectation{ErrorType: "Timeout"})
	assert.False(t, passed)
	assert.Equal(t, "Error type mismatch: expected Timeout, got InvocationError (ValidationError)", reason)

	passed, reason = Validate(okOutcome(200, nil, "{}"), &scenario.Expectation{ErrorType: "ClientError"})
	assert.False(t, passed)
	assert.Contains(t, reason, "got none")
}

func TestValidate_OrderShortCircuits(t *testing.T) {
	out := okOutcome(500, nil, "nothing here")
	_, reason := Validate(out, &scenario.Expectation{
		StatusCode:   scenario.IntPtr(200),
		BodyContains: []string{"missing"},
	})
	assert.Contains(t, reason, "Status code mismatch", "status is checked before body")
}

func TestCheck_DomainFlagsWithContract(t *testing.T) {
	contract := &invoke.Contract{Kind: invoke.ContractSuccess, Data: []interface{}{1.0, 2.0, 3.0}}
	out := okOutcome(200, nil, `{"kind":"Success"}`)
	out.Contract = contract

	v := Check(out, &scenario.Expectation{RequiresDBConnection: true, MinRecords: scenario.IntPtr(3)})
	assert.True(t, v.Passed)
	assert.Empty(t, v.Notes)

	v = Check(out, &scenario.Expectation{MinRecords: scenario.IntPtr(5)})
	assert.False(t, v.Passed)
	assert.Contains(t, v.Reason, "at least 5 records, got 3")

	out.Contract = &invoke.Contract{Kind: invoke.ContractTransportError}
	v = Check(out, &scenario.Expectation{RequiresDBConnection: true})
	assert.False(t, v.Passed)
	assert.Contains(t, v.Reason, "contract")

	out.Contract = &invoke.Contract{Kind: invoke.ContractDomainError}
	v = Check(out, &scenario.Expectation{RequiresDBConnection: true})
	assert.True(t, v.Passed, "a domain error still reached the store")
}

func TestCheck_HeuristicIsAdvisoryUnlessAllowed(t *testing.T) {
	out := okOutcome(200, map[string]interface{}{"message": "Unable to connect"}, `{"message":"Unable to connect"}`)

	v := Check(out, &scenario.Expectation{RequiresDBConnection: true, MinRecords: scenario.IntPtr(1)})
	assert.True(t, v.Passed, "heuristics alone never fail a scenario")
	require.Len(t, v.Notes, 2)
	assert.Contains(t, v.Notes[0], "advisory")

	v = Check(out, &scenario.Expectation{RequiresDBConnection: true, AllowHeuristics: true})
	assert.False(t, v.Passed)
	assert.Contains(t, v.Reason, "heuristic")
}

func TestCheck_MaxDuration(t *testing.T) {
	out := okOutcome(200, nil, "{}")
	out.DurationMs = 250

	assert.True(t, Check(out, &scenario.Expectation{MaxDurationMs: int64Ptr(300)}).Passed)

	v := Check(out, &scenario.Expectation{MaxDurationMs: int64Ptr(100)})
	assert.False(t, v.Passed)
	assert.Equal(t, "Duration 250ms exceeds limit of 100ms", v.Reason)
}

func TestCheck_Expr(t *testing.T) {
	out := okOutcome(200, map[string]interface{}{"count": 3.0, "status": "ok"}, `{"count":3,"status":"ok"}`)

	assert.True(t, Check(out, &scenario.Expectation{Expr: `statusCode == 200 && body.status == "ok"`}).Passed)
	assert.True(t, Check(out, &scenario.Expectation{Expr: `body.count > 2`}).Passed)

	v := Check(out, &scenario.Expectation{Expr: `body.count > 5`})
	assert.False(t, v.Passed)
	assert.Contains(t, v.Reason, "evaluated to false")

	v = Check(out, &scenario.Expectation{Expr: `statusCode +`})
	assert.False(t, v.Passed)
	assert.Contains(t, v.Reason, "Expression error")

	v = Check(out, &scenario.Expectation{Expr: `statusCode`})
	assert.False(t, v.Passed, "non-boolean expressions are rejected")
}
