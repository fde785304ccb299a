package scenario

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fnprobe/internal/config"
	"fnprobe/pkg/logging"

	"sigs.k8s.io/yaml"
)

// LoadScenarios reads the unit scenario document at path. When the file does
// not exist a default health-check document is written there and returned, so
// later runs are reproducible. Any parse or schema problem is a
// *config.ConfigError.
func LoadScenarios(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		file := DefaultScenarioFile()
		if err := persist(path, file); err != nil {
			return nil, err
		}
		logging.Info("ScenarioLoader", "No scenario file at %s, wrote default with %d scenario(s)", path, len(file.Scenarios))
		return file.Scenarios, nil
	}
	if err != nil {
		return nil, config.NewConfigError(path, "cannot read scenario file", err)
	}

	schema, err := GenerateScenarioSchema()
	if err != nil {
		return nil, config.NewConfigError(path, "cannot build scenario schema", err)
	}

	var file ScenarioFile
	if err := decode(path, data, schema, "scenarios.json", &file); err != nil {
		return nil, err
	}
	if err := validateScenarios(path, file.Scenarios); err != nil {
		return nil, err
	}

	logging.Debug("ScenarioLoader", "Loaded %d scenario(s) from %s", len(file.Scenarios), path)
	return file.Scenarios, nil
}

// LoadWorkflows reads the integration workflow document at path, with the
// same default-and-persist behavior as LoadScenarios.
func LoadWorkflows(path string) ([]Workflow, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		file := DefaultWorkflowFile()
		if err := persist(path, file); err != nil {
			return nil, err
		}
		logging.Info("ScenarioLoader", "No workflow file at %s, wrote default with %d workflow(s)", path, len(file.Workflows))
		return file.Workflows, nil
	}
	if err != nil {
		return nil, config.NewConfigError(path, "cannot read workflow file", err)
	}

	schema, err := GenerateWorkflowSchema()
	if err != nil {
		return nil, config.NewConfigError(path, "cannot build workflow schema", err)
	}

	var file WorkflowFile
	if err := decode(path, data, schema, "workflows.json", &file); err != nil {
		return nil, err
	}
	if err := validateWorkflows(path, file.Workflows); err != nil {
		return nil, err
	}

	logging.Debug("ScenarioLoader", "Loaded %d workflow(s) from %s", len(file.Workflows), path)
	return file.Workflows, nil
}

// decode turns data (JSON, or YAML for .yaml/.yml files) into out after
// checking it against schema.
func decode(path string, data []byte, schema []byte, resource string, out interface{}) error {
	if isYAMLFile(path) {
		converted, err := yaml.YAMLToJSON(data)
		if err != nil {
			return config.NewConfigError(path, "document is not valid YAML", err)
		}
		data = converted
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return config.NewConfigError(path, "document is not valid JSON", err)
	}

	violations, err := validateAgainst(schema, resource, doc)
	if err != nil {
		return config.NewConfigError(path, "schema validation could not run", err)
	}
	if len(violations) > 0 {
		first := violations[0]
		cfgErr := &config.ConfigError{
			FilePath: path,
			Field:    first.Path,
			Message:  first.Message,
		}
		for _, v := range violations[1:] {
			cfgErr.Suggestions = append(cfgErr.Suggestions, fmt.Sprintf("%s: %s", v.Path, v.Message))
		}
		return cfgErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return config.NewConfigError(path, "document does not match the expected schema", err)
	}
	return nil
}

func validateScenarios(path string, scenarios []Scenario) error {
	if len(scenarios) == 0 {
		return &config.ConfigError{FilePath: path, Field: "scenarios", Message: "at least one scenario is required"}
	}
	seen := make(map[string]bool, len(scenarios))
	for i, s := range scenarios {
		field := fmt.Sprintf("scenarios[%d]", i)
		if strings.TrimSpace(s.Name) == "" {
			return &config.ConfigError{FilePath: path, Field: field + ".name", Message: "scenario name is required"}
		}
		if seen[s.Name] {
			return &config.ConfigError{FilePath: path, Field: field + ".name", Message: fmt.Sprintf("duplicate scenario name %q", s.Name)}
		}
		seen[s.Name] = true
	}
	return nil
}

func validateWorkflows(path string, workflows []Workflow) error {
	if len(workflows) == 0 {
		return &config.ConfigError{FilePath: path, Field: "workflows", Message: "at least one workflow is required"}
	}
	seen := make(map[string]bool, len(workflows))
	for i, wf := range workflows {
		field := fmt.Sprintf("workflows[%d]", i)
		if strings.TrimSpace(wf.Name) == "" {
			return &config.ConfigError{FilePath: path, Field: field + ".name", Message: "workflow name is required"}
		}
		if seen[wf.Name] {
			return &config.ConfigError{FilePath: path, Field: field + ".name", Message: fmt.Sprintf("duplicate workflow name %q", wf.Name)}
		}
		seen[wf.Name] = true

		if len(wf.Steps) == 0 {
			return &config.ConfigError{FilePath: path, Field: field + ".steps", Message: "workflow must have at least one step"}
		}
		for j, step := range wf.Steps {
			stepField := fmt.Sprintf("%s.steps[%d]", field, j)
			if strings.TrimSpace(step.Name) == "" {
				return &config.ConfigError{FilePath: path, Field: stepField + ".name", Message: "step name is required"}
			}
			switch step.Type {
			case StepInvoke:
				if step.Payload == nil {
					workflows[i].Steps[j].Payload = map[string]interface{}{}
				}
			case StepWait:
				if step.Seconds <= 0 {
					return &config.ConfigError{FilePath: path, Field: stepField + ".seconds", Message: "wait step needs a positive number of seconds"}
				}
			default:
				return &config.ConfigError{FilePath: path, Field: stepField + ".type", Message: fmt.Sprintf("unknown step type %q", step.Type)}
			}
		}
	}
	return nil
}

func persist(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return config.NewConfigError(path, "cannot encode default document", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return config.NewConfigError(path, "cannot create directory for default document", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return config.NewConfigError(path, "cannot write default document", err)
	}
	return nil
}

// isYAMLFile checks if a file has a YAML extension
func isYAMLFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// FilterScenarios keeps scenarios matching name (when set) and tag (when set),
// dropping skipped ones.
func FilterScenarios(scenarios []Scenario, name, tag string) []Scenario {
	var filtered []Scenario
	for _, s := range scenarios {
		if s.Skip {
			logging.Debug("ScenarioLoader", "Skipping scenario %s", s.Name)
			continue
		}
		if name != "" && s.Name != name {
			continue
		}
		if tag != "" && !hasTag(s.Tags, tag) {
			continue
		}
		filtered = append(filtered, s)
	}
	return filtered
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
