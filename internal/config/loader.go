package config

import (
	"errors"
	"os"
	"strings"

	"fnprobe/pkg/logging"

	"gopkg.in/yaml.v3"
)

// Environment variables consulted by ApplyEnv.
const (
	EnvRegion          = "AWS_REGION"
	EnvBuildID         = "BUILD_ID"
	EnvBuildNumber     = "BUILD_NUMBER"
	EnvCommit          = "GIT_COMMIT"
	EnvResultsDir      = "RESULTS_DIR"
	EnvTargetFunction  = "TARGET_FUNCTION"
	EnvFunctionPattern = "FUNCTION_PATTERN"
)

// LoadConfig reads the harness configuration from path, applies environment
// overrides and validates the result.
func LoadConfig(path string) (HarnessConfig, error) {
	config, err := LoadUnvalidated(path)
	if err != nil {
		return HarnessConfig{}, err
	}
	if err := Validate(config); err != nil {
		return HarnessConfig{}, err
	}
	return config, nil
}

// LoadUnvalidated reads the harness configuration from path, starting from
// the defaults, and applies environment overrides. A missing file is not an
// error; a malformed one is a ConfigError. Callers that layer flags on top
// validate afterwards.
func LoadUnvalidated(path string) (HarnessConfig, error) {
	config := GetDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			logging.Info("ConfigLoader", "No harness config found at %s, using defaults", path)
		case err != nil:
			return HarnessConfig{}, NewConfigError(path, "cannot read harness config", err)
		default:
			if err := yaml.Unmarshal(data, &config); err != nil {
				return HarnessConfig{}, NewConfigError(path, "harness config is not valid YAML", err)
			}
			logging.Info("ConfigLoader", "Loaded harness configuration from %s", path)
		}
	}

	ApplyEnv(&config, os.LookupEnv)
	return config, nil
}

// ApplyEnv overlays environment values onto config. lookup is usually os.LookupEnv.
func ApplyEnv(config *HarnessConfig, lookup func(string) (string, bool)) {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(EnvRegion); ok {
		config.Region = v
	}
	if v, ok := get(EnvBuildID); ok {
		config.BuildID = v
	} else if v, ok := get(EnvBuildNumber); ok {
		config.BuildID = v
	}
	if v, ok := get(EnvCommit); ok {
		config.Commit = v
	}
	if v, ok := get(EnvResultsDir); ok {
		config.ResultsDir = v
	}
	if v, ok := get(EnvTargetFunction); ok {
		config.Target.Function = v
	}
	if v, ok := get(EnvFunctionPattern); ok {
		config.Target.Pattern = v
	}
}
