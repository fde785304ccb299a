package invoke

import (
	"encoding/json"
	"time"
)

// ErrorKind classifies a failed invocation. The set is closed; callers match
// on these values instead of inspecting error strings.
type ErrorKind string

const (
	// ErrorKindNone means the call and the function both succeeded.
	ErrorKindNone ErrorKind = ""
	// ErrorKindClient covers request-side failures: bad input, throttling,
	// missing permissions, network errors.
	ErrorKindClient ErrorKind = "ClientError"
	// ErrorKindInvocation covers failures inside the function or the service.
	ErrorKindInvocation ErrorKind = "InvocationError"
	// ErrorKindTimeout covers deadlines, both ours and the function's own.
	ErrorKindTimeout ErrorKind = "Timeout"
)

// ContractKind is the tag of the versioned response contract.
type ContractKind string

const (
	ContractSuccess        ContractKind = "Success"
	ContractDomainError    ContractKind = "DomainError"
	ContractTransportError ContractKind = "TransportError"
)

// Contract is the tagged result a target function may emit:
// {"kind": "Success"|"DomainError"|"TransportError", "data": ..., "errorDetail": ...}.
type Contract struct {
	Kind        ContractKind `json:"kind"`
	Data        interface{}  `json:"data,omitempty"`
	ErrorDetail interface{}  `json:"errorDetail,omitempty"`
}

// Confidence says where analysis flags came from.
type Confidence string

const (
	ConfidenceContract  Confidence = "contract"
	ConfidenceHeuristic Confidence = "heuristic"
)

// Analysis holds the signals derived from a response body.
type Analysis struct {
	DataReturned    bool `json:"dataReturned"`
	RecordCount     int  `json:"recordCount"`
	LooksSuccessful bool `json:"looksSuccessful"`
	LooksErroneous  bool `json:"looksErroneous"`
	// BackendReached says the function got as far as its data store.
	BackendReached bool       `json:"backendReached"`
	Confidence     Confidence `json:"confidence"`
}

// Outcome is the structured result of exactly one invocation attempt.
type Outcome struct {
	Success    bool      `json:"success"`
	StatusCode int       `json:"statusCode"`
	DurationMs int64     `json:"durationMs"`
	StartedAt  time.Time `json:"startedAt"`

	// Body is the parsed response, nil when the payload was not JSON.
	Body interface{} `json:"body,omitempty"`
	// RawBody is the response text as received.
	RawBody string `json:"rawBody,omitempty"`

	ErrorKind     ErrorKind `json:"errorKind,omitempty"`
	ErrorType     string    `json:"errorType,omitempty"`
	ErrorMessage  string    `json:"errorMessage,omitempty"`
	FunctionError string    `json:"functionError,omitempty"`

	// LogTail is the base64 log excerpt returned inline by the service.
	LogTail         string `json:"logTail,omitempty"`
	ExecutedVersion string `json:"executedVersion,omitempty"`

	Contract *Contract `json:"contract,omitempty"`
	Analysis *Analysis `json:"analysis,omitempty"`
}

// Failed reports whether the outcome carries an error kind.
func (o Outcome) Failed() bool {
	return o.ErrorKind != ErrorKindNone
}

// BodyText returns the body as text, preferring the raw response.
func (o Outcome) BodyText() string {
	if o.RawBody != "" {
		return o.RawBody
	}
	if o.Body == nil {
		return ""
	}
	data, err := json.Marshal(o.Body)
	if err != nil {
		return ""
	}
	return string(data)
}

// Duration returns DurationMs as a time.Duration.
func (o Outcome) Duration() time.Duration {
	return time.Duration(o.DurationMs) * time.Millisecond
}
