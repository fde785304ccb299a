package target

import (
	"fmt"
	"time"
)

// FunctionTarget is the resolved identity of the function under test.
// It is produced once per session and read-only afterwards.
type FunctionTarget struct {
	Name           string    `json:"name"`
	ARN            string    `json:"arn,omitempty"`
	Runtime        string    `json:"runtime,omitempty"`
	MemoryMB       int32     `json:"memoryMb,omitempty"`
	TimeoutSeconds int32     `json:"timeoutSeconds,omitempty"`
	LastModified   time.Time `json:"lastModified,omitempty"`
	Version        string    `json:"version,omitempty"`
}

// Identifier returns the value to pass as FunctionName in API calls.
func (t FunctionTarget) Identifier() string {
	if t.ARN != "" {
		return t.ARN
	}
	return t.Name
}

// LogGroup is the default CloudWatch log group of the function.
func (t FunctionTarget) LogGroup() string {
	return "/aws/lambda/" + t.Name
}

// NotFoundError is returned when no deployed function matches the selector.
type NotFoundError struct {
	Selector   string
	Explicit   bool
	Candidates int
	Err        error
}

func (e *NotFoundError) Error() string {
	if e.Explicit {
		return fmt.Sprintf("target function %q not found", e.Selector)
	}
	return fmt.Sprintf("no function matching %q among %d deployed functions", e.Selector, e.Candidates)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// AccessError is returned when a function was found but its metadata could
// not be read, typically because of missing permissions.
type AccessError struct {
	Function string
	Err      error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("cannot read configuration of function %q: %v", e.Function, e.Err)
}

func (e *AccessError) Unwrap() error { return e.Err }
