package scenario

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

const (
	scenarioSchemaID = "https://fnprobe.dev/schemas/scenarios-v1.json"
	workflowSchemaID = "https://fnprobe.dev/schemas/workflows-v1.json"
)

// SchemaViolation is one leaf error of JSON Schema validation.
type SchemaViolation struct {
	Path    string
	Message string
}

// GenerateScenarioSchema produces the JSON Schema of scenario documents.
func GenerateScenarioSchema() ([]byte, error) {
	return generateSchema(&ScenarioFile{}, scenarioSchemaID, "fnprobe scenarios", "Unit test scenarios for a deployed function")
}

// GenerateWorkflowSchema produces the JSON Schema of workflow documents.
func GenerateWorkflowSchema() ([]byte, error) {
	return generateSchema(&WorkflowFile{}, workflowSchemaID, "fnprobe workflows", "Integration workflows for a deployed function")
}

func generateSchema(v interface{}, id, title, description string) ([]byte, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = false

	s := r.Reflect(v)
	s.ID = jsonschema.ID(id)
	s.Title = title
	s.Description = description

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return data, nil
}

// validateAgainst validates a decoded JSON document with the given schema.
func validateAgainst(schemaJSON []byte, resource string, doc interface{}) ([]SchemaViolation, error) {
	var schemaDoc interface{}
	if err := json.Unmarshal(schemaJSON, &schemaDoc); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	c := sjsonschema.NewCompiler()
	if err := c.AddResource(resource, schemaDoc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	sch, err := c.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	if err := sch.Validate(doc); err != nil {
		ve, ok := err.(*sjsonschema.ValidationError)
		if !ok {
			return []SchemaViolation{{Message: err.Error()}}, nil
		}
		var out []SchemaViolation
		for _, cause := range flattenValidationErrors(ve) {
			out = append(out, SchemaViolation{
				Path:    "/" + strings.Join(cause.InstanceLocation, "/"),
				Message: fmt.Sprintf("%v", cause.ErrorKind),
			})
		}
		return out, nil
	}
	return nil, nil
}

// flattenValidationErrors recursively collects all leaf validation errors.
func flattenValidationErrors(ve *sjsonschema.ValidationError) []*sjsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*sjsonschema.ValidationError{ve}
	}
	var flat []*sjsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flattenValidationErrors(cause)...)
	}
	return flat
}
