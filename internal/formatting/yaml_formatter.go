package formatting

import (
	"encoding/json"
	"fmt"

	"fnprobe/internal/history"
	"fnprobe/internal/invoke"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter provides YAML output formatting
type YAMLFormatter struct {
	base
}

// NewYAMLFormatter creates a new YAML formatter
func NewYAMLFormatter(options Options) Formatter {
	return &YAMLFormatter{base{options: options}}
}

func (f *YAMLFormatter) FormatOutcome(outcome invoke.Outcome) string {
	return toYAML(outcome)
}

func (f *YAMLFormatter) FormatHistory(runs []history.PhaseRun) string {
	return toYAML(runs)
}

func (f *YAMLFormatter) FormatTests(tests []history.TestRun) string {
	return toYAML(tests)
}

// toYAML goes through JSON first so field names follow the json tags.
func toYAML(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	var generic interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return string(data)
	}
	out, err := yaml.Marshal(generic)
	if err != nil {
		return string(data)
	}
	return string(out)
}
