package validate

import (
	"fmt"
	"strings"

	"fnprobe/internal/invoke"
	"fnprobe/internal/scenario"

	"github.com/expr-lang/expr"
)

// Verdict is the result of checking one outcome against one expectation.
type Verdict struct {
	Passed bool
	// Reason explains the first failed check; empty on a pass.
	Reason string
	// Notes are advisory observations that did not affect the verdict,
	// such as heuristic signals the expectation did not opt into.
	Notes []string
}

// Validate applies expectation to outcome and reports pass/fail with a reason.
func Validate(outcome invoke.Outcome, expectation *scenario.Expectation) (bool, string) {
	v := Check(outcome, expectation)
	return v.Passed, v.Reason
}

// Check evaluates the expectation in a fixed order and stops at the first
// failing check:
//
//  1. status code
//  2. required and forbidden body substrings
//  3. expected error type, or else an unexpected error kind
//  4. domain flags (data store reached, minimum records)
//  5. duration ceiling and boolean expression
//
// A nil expectation passes iff the call succeeded.
func Check(outcome invoke.Outcome, expectation *scenario.Expectation) Verdict {
	if expectation == nil {
		if outcome.Failed() {
			return fail(errorReason(outcome))
		}
		return Verdict{Passed: true}
	}

	if expectation.StatusCode != nil && *expectation.StatusCode != outcome.StatusCode {
		return fail(fmt.Sprintf("Status code mismatch: expected %d, got %d", *expectation.StatusCode, outcome.StatusCode))
	}

	body := outcome.BodyText()
	for _, want := range expectation.BodyContains {
		if !strings.Contains(body, want) {
			return fail(fmt.Sprintf("Response body does not contain %q", want))
		}
	}
	for _, unwanted := range expectation.BodyNotContains {
		if strings.Contains(body, unwanted) {
			return fail(fmt.Sprintf("Response body unexpectedly contains %q", unwanted))
		}
	}

	if expectation.ErrorType != "" {
		if expectation.ErrorType != string(outcome.ErrorKind) && expectation.ErrorType != outcome.ErrorType {
			return fail(fmt.Sprintf("Error type mismatch: expected %s, got %s", expectation.ErrorType, describeError(outcome)))
		}
	} else if outcome.Failed() {
		return fail(errorReason(outcome))
	}

	var notes []string
	if expectation.RequiresDBConnection || expectation.MinRecords != nil {
		analysis := analysisOf(outcome)
		reason, domainNotes := checkDomain(analysis, expectation)
		notes = append(notes, domainNotes...)
		if reason != "" {
			v := fail(reason)
			v.Notes = notes
			return v
		}
	}

	if expectation.MaxDurationMs != nil && outcome.DurationMs > *expectation.MaxDurationMs {
		v := fail(fmt.Sprintf("Duration %dms exceeds limit of %dms", outcome.DurationMs, *expectation.MaxDurationMs))
		v.Notes = notes
		return v
	}

	if expectation.Expr != "" {
		ok, err := EvalExpr(expectation.Expr, outcome)
		if err != nil {
			v := fail(fmt.Sprintf("Expression error: %v", err))
			v.Notes = notes
			return v
		}
		if !ok {
			v := fail(fmt.Sprintf("Expression %q evaluated to false", expectation.Expr))
			v.Notes = notes
			return v
		}
	}

	return Verdict{Passed: true, Notes: notes}
}

// checkDomain evaluates requiresDbConnection and minRecords. With the tagged
// contract the result is authoritative. Heuristic signals decide only when
// the expectation allows it; otherwise disagreement is reported as a note.
func checkDomain(a invoke.Analysis, expectation *scenario.Expectation) (string, []string) {
	decisive := a.Confidence == invoke.ConfidenceContract || expectation.AllowHeuristics
	var notes []string

	if expectation.RequiresDBConnection {
		if !a.BackendReached {
			msg := fmt.Sprintf("Data store connection not confirmed (%s)", a.Confidence)
			if decisive {
				return msg, notes
			}
			notes = append(notes, msg+"; advisory only")
		}
	}

	if expectation.MinRecords != nil && a.RecordCount < *expectation.MinRecords {
		msg := fmt.Sprintf("Expected at least %d records, got %d (%s)", *expectation.MinRecords, a.RecordCount, a.Confidence)
		if decisive {
			return msg, notes
		}
		notes = append(notes, msg+"; advisory only")
	}

	return "", notes
}

// EvalExpr evaluates a boolean expression over the outcome. The environment
// exposes statusCode, durationMs, success, body, rawBody, errorKind,
// errorType, errorMessage, recordCount, dataReturned and contractKind.
func EvalExpr(code string, outcome invoke.Outcome) (bool, error) {
	env := exprEnv(outcome)
	program, err := expr.Compile(code, expr.Env(env), expr.AsBool())
	if err != nil {
		return false, fmt.Errorf("compile %q: %w", code, err)
	}
	output, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("eval %q: %w", code, err)
	}
	result, ok := output.(bool)
	if !ok {
		return false, fmt.Errorf("%q did not return bool (got %T)", code, output)
	}
	return result, nil
}

func exprEnv(outcome invoke.Outcome) map[string]interface{} {
	a := analysisOf(outcome)
	contractKind := ""
	if outcome.Contract != nil {
		contractKind = string(outcome.Contract.Kind)
	}
	return map[string]interface{}{
		"statusCode":   outcome.StatusCode,
		"durationMs":   outcome.DurationMs,
		"success":      outcome.Success,
		"body":         outcome.Body,
		"rawBody":      outcome.RawBody,
		"errorKind":    string(outcome.ErrorKind),
		"errorType":    outcome.ErrorType,
		"errorMessage": outcome.ErrorMessage,
		"recordCount":  a.RecordCount,
		"dataReturned": a.DataReturned,
		"contractKind": contractKind,
	}
}

func analysisOf(outcome invoke.Outcome) invoke.Analysis {
	if outcome.Analysis != nil {
		return *outcome.Analysis
	}
	return Analyze(outcome)
}

func errorReason(outcome invoke.Outcome) string {
	return fmt.Sprintf("%s: %s", outcome.ErrorKind, outcome.ErrorMessage)
}

func describeError(outcome invoke.Outcome) string {
	switch {
	case outcome.ErrorType != "" && outcome.ErrorKind != invoke.ErrorKindNone:
		return fmt.Sprintf("%s (%s)", outcome.ErrorKind, outcome.ErrorType)
	case outcome.ErrorKind != invoke.ErrorKindNone:
		return string(outcome.ErrorKind)
	case outcome.ErrorType != "":
		return outcome.ErrorType
	default:
		return "none"
	}
}

func fail(reason string) Verdict {
	return Verdict{Passed: false, Reason: reason}
}
