package config

import "time"

// HarnessConfig is the top-level configuration of a harness run. It is read
// from an optional YAML file and then overridden by environment variables and
// command line flags, in that order.
type HarnessConfig struct {
	// Region is the AWS region hosting the function under test.
	Region string `yaml:"region"`
	// BuildID identifies the CI build; combined with Commit it forms the run id.
	BuildID string `yaml:"buildId,omitempty"`
	// Commit is the source revision under test.
	Commit string `yaml:"commit,omitempty"`
	// ResultsDir is the root directory for all report artifacts.
	ResultsDir string `yaml:"resultsDir"`
	// Target selects the function under test.
	Target TargetConfig `yaml:"target"`
	// ScenariosPath points to the unit scenario document.
	ScenariosPath string `yaml:"scenariosPath"`
	// WorkflowsPath points to the integration workflow document.
	WorkflowsPath string `yaml:"workflowsPath"`
	// Timeout is the overall session ceiling.
	Timeout time.Duration `yaml:"timeout"`

	Performance PerformanceConfig `yaml:"performance"`
	Logs        LogsConfig        `yaml:"logs"`
	Resources   ResourcesConfig   `yaml:"resources"`
	History     HistoryConfig     `yaml:"history"`
}

// TargetConfig selects the function by explicit identifier or by name pattern.
// Function wins when both are set.
type TargetConfig struct {
	Function string `yaml:"function,omitempty"`
	Pattern  string `yaml:"pattern,omitempty"`
}

// Selector returns the identifier handed to the resolver and whether it is explicit.
func (t TargetConfig) Selector() (string, bool) {
	if t.Function != "" {
		return t.Function, true
	}
	return t.Pattern, false
}

// PerformanceConfig drives the repeated-invocation latency run of the unit phase.
type PerformanceConfig struct {
	Enabled bool `yaml:"enabled"`
	// Iterations is the number of invocations.
	Iterations int `yaml:"iterations"`
	// Concurrency bounds the worker pool. 1 measures isolated latency.
	Concurrency int `yaml:"concurrency"`
	// ExpectedResponseTimeMs is the ceiling for the average latency.
	ExpectedResponseTimeMs int64 `yaml:"expectedResponseTimeMs"`
	// Payload is the event sent on every iteration.
	Payload map[string]interface{} `yaml:"payload,omitempty"`
}

// LogsConfig controls CloudWatch log extraction after a phase.
type LogsConfig struct {
	Enabled         bool `yaml:"enabled"`
	LookbackMinutes int  `yaml:"lookbackMinutes"`
	// LogGroup overrides the default /aws/lambda/<function> group.
	LogGroup string `yaml:"logGroup,omitempty"`
}

// ResourcesConfig lists the ephemeral resources provisioned before integration workflows.
type ResourcesConfig struct {
	Enabled      bool                 `yaml:"enabled"`
	BucketPrefix string               `yaml:"bucketPrefix"`
	Specs        []ResourceSpecConfig `yaml:"specs,omitempty"`
}

// ResourceSpecConfig declares one ephemeral resource.
type ResourceSpecConfig struct {
	// Name is the logical name, referenced from payloads as ${resource:<name>}.
	Name string `yaml:"name"`
	// Kind is "bucket" or "object".
	Kind string `yaml:"kind"`
	// Bucket is the logical name of the bucket an object is placed in.
	Bucket string `yaml:"bucket,omitempty"`
	// Key and Content describe an object.
	Key     string `yaml:"key,omitempty"`
	Content string `yaml:"content,omitempty"`
}

// HistoryConfig controls the sqlite run history.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}
