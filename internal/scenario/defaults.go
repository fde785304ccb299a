package scenario

// DefaultScenarioFile is the document synthesized when no scenario file exists:
// a single health check expecting HTTP 200.
func DefaultScenarioFile() ScenarioFile {
	return ScenarioFile{
		Scenarios: []Scenario{
			{
				Name:        "health-check",
				Description: "Function answers a health probe",
				Event:       map[string]interface{}{"test": "health"},
				Expected:    &Expectation{StatusCode: IntPtr(200)},
			},
		},
	}
}

// DefaultWorkflowFile is the document synthesized when no workflow file exists:
// one workflow with a single invocation.
func DefaultWorkflowFile() WorkflowFile {
	return WorkflowFile{
		Workflows: []Workflow{
			{
				Name:        "smoke",
				Description: "Single invocation smoke test",
				Steps: []Step{
					{
						Name:    "invoke",
						Type:    StepInvoke,
						Payload: map[string]interface{}{"test": "health", "runId": "${run_id}"},
						Expect:  &Expectation{StatusCode: IntPtr(200)},
					},
				},
			},
		},
	}
}
