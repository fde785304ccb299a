package scenario

// Expectation is the declarative assertion attached to a scenario or step.
// Every field is optional; an absent expectation means "the call succeeded".
type Expectation struct {
	// StatusCode is compared with the outcome's derived status.
	StatusCode *int `json:"statusCode,omitempty"`
	// BodyContains lists substrings that must all appear in the response body.
	BodyContains []string `json:"bodyContains,omitempty"`
	// BodyNotContains lists substrings that must not appear in the response body.
	BodyNotContains []string `json:"bodyNotContains,omitempty"`
	// ErrorType is matched against the outcome's error kind or the
	// function-reported error type.
	ErrorType string `json:"errorType,omitempty"`
	// RequiresDBConnection asserts the backing data store was reached.
	RequiresDBConnection bool `json:"requiresDbConnection,omitempty"`
	// MinRecords asserts at least N records came back.
	MinRecords *int `json:"minRecords,omitempty"`
	// MaxDurationMs bounds the measured invocation duration.
	MaxDurationMs *int64 `json:"maxDurationMs,omitempty"`
	// Expr is a boolean expression over the outcome, e.g. `body.count > 2`.
	Expr string `json:"expr,omitempty"`
	// AllowHeuristics lets keyword heuristics decide domain checks when the
	// target does not emit the tagged response contract.
	AllowHeuristics bool `json:"allowHeuristics,omitempty"`
}

// Scenario is a single named unit test: one event, one expectation set.
type Scenario struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Event       map[string]interface{} `json:"event"`
	Expected    *Expectation           `json:"expected,omitempty"`
	Tags        []string               `json:"tags,omitempty"`
	Skip        bool                   `json:"skip,omitempty"`
}

// StepType is the kind of a workflow step.
type StepType string

const (
	// StepInvoke calls the target function.
	StepInvoke StepType = "invoke_lambda"
	// StepWait pauses the workflow.
	StepWait StepType = "wait"
)

// Step is one element of a workflow.
type Step struct {
	Name    string                 `json:"name"`
	Type    StepType               `json:"type" jsonschema:"enum=invoke_lambda,enum=wait"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	Expect  *Expectation           `json:"expect,omitempty"`
	Seconds int                    `json:"seconds,omitempty"`
}

// Workflow is a named ordered sequence of steps.
type Workflow struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Steps       []Step `json:"steps"`
}

// ScenarioFile is the on-disk document holding unit scenarios.
type ScenarioFile struct {
	Scenarios []Scenario `json:"scenarios"`
}

// WorkflowFile is the on-disk document holding integration workflows.
type WorkflowFile struct {
	Workflows []Workflow `json:"workflows"`
}

// IntPtr returns a pointer to v, for building expectations in code.
func IntPtr(v int) *int {
	return &v
}
