package config

import "time"

const (
	DefaultRegion          = "us-east-1"
	DefaultResultsDir      = "test-results"
	DefaultScenariosPath   = "tests/scenarios.json"
	DefaultWorkflowsPath   = "tests/workflows.json"
	DefaultTimeout         = 15 * time.Minute
	DefaultBucketPrefix    = "fnprobe"
	DefaultLookbackMinutes = 10
)

// GetDefaultConfig returns the configuration used when no file is present.
func GetDefaultConfig() HarnessConfig {
	return HarnessConfig{
		Region:        DefaultRegion,
		ResultsDir:    DefaultResultsDir,
		ScenariosPath: DefaultScenariosPath,
		WorkflowsPath: DefaultWorkflowsPath,
		Timeout:       DefaultTimeout,
		Performance: PerformanceConfig{
			Enabled:                false,
			Iterations:             5,
			Concurrency:            1,
			ExpectedResponseTimeMs: 1000,
			Payload:                map[string]interface{}{"test": "performance"},
		},
		Logs: LogsConfig{
			Enabled:         true,
			LookbackMinutes: DefaultLookbackMinutes,
		},
		Resources: ResourcesConfig{
			Enabled:      false,
			BucketPrefix: DefaultBucketPrefix,
		},
		History: HistoryConfig{
			Enabled: true,
		},
	}
}
