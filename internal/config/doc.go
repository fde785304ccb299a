// Package config loads the harness settings: target selection, region,
// results directory, performance, log extraction, ephemeral resources and
// history.
//
// Settings come from three layers, later layers winning:
//
//  1. GetDefaultConfig
//  2. an optional YAML file (LoadConfig)
//  3. environment variables (ApplyEnv): AWS_REGION, BUILD_ID or BUILD_NUMBER,
//     GIT_COMMIT, RESULTS_DIR, TARGET_FUNCTION, FUNCTION_PATTERN
//
// Command line flags are applied by the cmd package on top of the result.
// Any problem is reported as a *ConfigError, which aborts the run before a
// single invocation is made.
package config
