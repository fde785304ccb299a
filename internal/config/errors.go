package config

import (
	"fmt"
	"strings"
)

// ConfigError reports a malformed harness configuration or test definition.
// It is fatal: no invocation is attempted once one is raised.
type ConfigError struct {
	// FilePath is the offending file, if any.
	FilePath string `json:"filePath,omitempty"`
	// Field locates the problem inside the document (e.g. "scenarios/0/name").
	Field string `json:"field,omitempty"`
	// Message is the human-readable description.
	Message string `json:"message"`
	// Suggestions are actionable hints shown by DetailedError.
	Suggestions []string `json:"suggestions,omitempty"`

	Err error `json:"-"`
}

// Error implements the error interface
func (ce *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("configuration error")
	if ce.FilePath != "" {
		fmt.Fprintf(&b, " in %s", ce.FilePath)
	}
	if ce.Field != "" {
		fmt.Fprintf(&b, " at %s", ce.Field)
	}
	b.WriteString(": ")
	b.WriteString(ce.Message)
	if ce.Err != nil {
		fmt.Fprintf(&b, ": %v", ce.Err)
	}
	return b.String()
}

// Unwrap returns the underlying parse or IO error.
func (ce *ConfigError) Unwrap() error {
	return ce.Err
}

// DetailedError returns a multi-line message including suggestions.
func (ce *ConfigError) DetailedError() string {
	parts := []string{ce.Error()}
	if len(ce.Suggestions) > 0 {
		parts = append(parts, "  Suggestions:")
		for _, suggestion := range ce.Suggestions {
			parts = append(parts, fmt.Sprintf("    - %s", suggestion))
		}
	}
	return strings.Join(parts, "\n")
}

// NewConfigError creates a ConfigError for the given file.
func NewConfigError(filePath, message string, err error) *ConfigError {
	return &ConfigError{
		FilePath: filePath,
		Message:  message,
		Err:      err,
	}
}
