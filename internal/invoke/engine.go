package invoke

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"fnprobe/internal/clock"
	"fnprobe/internal/target"
	"fnprobe/pkg/logging"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
)

// Invoker is the subset of the Lambda client used by the engine.
type Invoker interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// Engine performs synchronous invocations of the target function.
type Engine struct {
	client Invoker
	clock  clock.Clock
}

// NewEngine creates an engine. A nil clock means the system clock.
func NewEngine(client Invoker, clk clock.Clock) *Engine {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Engine{client: client, clock: clk}
}

// Invoke calls the function once with payload and returns the outcome. It
// never returns an error and never panics: every failure is recorded in the
// outcome's ErrorKind.
func (e *Engine) Invoke(ctx context.Context, t *target.FunctionTarget, payload interface{}) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Invoker", fmt.Errorf("%v", r), "Recovered panic while invoking %s", targetName(t))
			outcome = Outcome{
				ErrorKind:    ErrorKindInvocation,
				ErrorMessage: fmt.Sprintf("panic during invocation: %v", r),
				StartedAt:    outcome.StartedAt,
				DurationMs:   outcome.DurationMs,
			}
		}
	}()

	data, err := json.Marshal(payload)
	if err != nil {
		return Outcome{
			ErrorKind:    ErrorKindClient,
			ErrorMessage: fmt.Sprintf("payload is not serializable: %v", err),
			StartedAt:    e.clock.Now(),
		}
	}

	start := e.clock.Now()
	outcome.StartedAt = start
	out, err := e.client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(t.Identifier()),
		InvocationType: types.InvocationTypeRequestResponse,
		LogType:        types.LogTypeTail,
		Payload:        data,
	})
	outcome.DurationMs = elapsedMs(start, e.clock.Now())

	if err != nil {
		outcome.ErrorKind, outcome.ErrorMessage = classifyError(err)
		logging.Debug("Invoker", "Invocation of %s failed after %dms: %s", targetName(t), outcome.DurationMs, outcome.ErrorMessage)
		return outcome
	}

	fillFromOutput(&outcome, out)
	logging.Debug("Invoker", "Invoked %s: status %d in %dms", targetName(t), outcome.StatusCode, outcome.DurationMs)
	return outcome
}

func fillFromOutput(outcome *Outcome, out *lambda.InvokeOutput) {
	outcome.StatusCode = int(out.StatusCode)
	outcome.RawBody = string(out.Payload)
	outcome.LogTail = aws.ToString(out.LogResult)
	outcome.ExecutedVersion = aws.ToString(out.ExecutedVersion)

	// A body that is not JSON is kept as text; that alone is not an error.
	var body interface{}
	if len(out.Payload) > 0 && json.Unmarshal(out.Payload, &body) == nil {
		outcome.Body = body
	}

	if obj, ok := outcome.Body.(map[string]interface{}); ok {
		if code, ok := statusFromBody(obj); ok {
			outcome.StatusCode = code
		}
		outcome.Contract = DecodeContract(obj)
	}

	if out.FunctionError != nil {
		outcome.FunctionError = aws.ToString(out.FunctionError)
		if obj, ok := outcome.Body.(map[string]interface{}); ok {
			outcome.ErrorType, _ = obj["errorType"].(string)
			outcome.ErrorMessage, _ = obj["errorMessage"].(string)
		}
		if outcome.ErrorMessage == "" {
			outcome.ErrorMessage = outcome.FunctionError
		}
		outcome.ErrorKind = classifyFunctionError(outcome.ErrorType, outcome.ErrorMessage)
		return
	}

	outcome.Success = true
}

// statusFromBody reads an integral "statusCode" field, the convention of
// functions fronted by an HTTP gateway.
func statusFromBody(obj map[string]interface{}) (int, bool) {
	n, ok := obj["statusCode"].(float64)
	if !ok || n != math.Trunc(n) {
		return 0, false
	}
	return int(n), true
}

// DecodeContract extracts the tagged response contract from body, looking at
// the top level and inside a JSON-encoded "body" string. It returns nil when
// the body does not carry the contract.
func DecodeContract(obj map[string]interface{}) *Contract {
	if c := contractFrom(obj); c != nil {
		return c
	}
	if inner, ok := obj["body"].(string); ok {
		var nested map[string]interface{}
		if json.Unmarshal([]byte(inner), &nested) == nil {
			return contractFrom(nested)
		}
	}
	return nil
}

func contractFrom(obj map[string]interface{}) *Contract {
	kind, _ := obj["kind"].(string)
	switch ContractKind(kind) {
	case ContractSuccess, ContractDomainError, ContractTransportError:
		return &Contract{
			Kind:        ContractKind(kind),
			Data:        obj["data"],
			ErrorDetail: obj["errorDetail"],
		}
	}
	return nil
}

func elapsedMs(start, end time.Time) int64 {
	d := end.Sub(start)
	if d < 0 {
		return 0
	}
	return d.Milliseconds()
}

func targetName(t *target.FunctionTarget) string {
	if t == nil {
		return "<unresolved>"
	}
	return t.Name
}
