package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// Validate checks a fully merged configuration.
func Validate(config HarnessConfig) error {
	var errs ValidationErrors

	if strings.TrimSpace(config.Region) == "" {
		errs.Add("region", "is required")
	}
	if strings.TrimSpace(config.ResultsDir) == "" {
		errs.Add("resultsDir", "is required")
	}
	if config.Target.Function == "" && config.Target.Pattern == "" {
		errs.Add("target", fmt.Sprintf("either function or pattern must be set (env %s or %s)", EnvTargetFunction, EnvFunctionPattern))
	}
	if config.Timeout <= 0 {
		errs.Add("timeout", "must be positive", config.Timeout)
	}

	perf := config.Performance
	if perf.Enabled {
		if perf.Iterations < 1 {
			errs.Add("performance.iterations", "must be at least 1", perf.Iterations)
		}
		if perf.Concurrency < 1 || perf.Concurrency > 50 {
			errs.Add("performance.concurrency", "must be between 1 and 50", perf.Concurrency)
		}
		if perf.ExpectedResponseTimeMs <= 0 {
			errs.Add("performance.expectedResponseTimeMs", "must be positive", perf.ExpectedResponseTimeMs)
		}
	}

	if config.Logs.Enabled && config.Logs.LookbackMinutes < 1 {
		errs.Add("logs.lookbackMinutes", "must be at least 1", config.Logs.LookbackMinutes)
	}

	if config.Resources.Enabled {
		seen := make(map[string]string)
		for i, spec := range config.Resources.Specs {
			field := fmt.Sprintf("resources.specs[%d]", i)
			if spec.Name == "" {
				errs.Add(field+".name", "is required")
			} else if _, dup := seen[spec.Name]; dup {
				errs.Add(field+".name", "is duplicated", spec.Name)
			}
			switch spec.Kind {
			case "bucket":
			case "object":
				if spec.Key == "" {
					errs.Add(field+".key", "is required for objects")
				}
				if seen[spec.Bucket] != "bucket" {
					errs.Add(field+".bucket", "must reference a bucket declared earlier", spec.Bucket)
				}
			default:
				errs.Add(field+".kind", "must be one of: bucket, object", spec.Kind)
			}
			seen[spec.Name] = spec.Kind
		}
	}

	if errs.HasErrors() {
		return &ConfigError{
			Message:     "invalid harness configuration",
			Err:         errs,
			Suggestions: []string{"check the harness YAML file and the environment overrides"},
		}
	}
	return nil
}
