package report

import (
	"encoding/json"
	"fmt"
	"regexp"

	"fnprobe/internal/invoke"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// outcomeArtifact is the debugging record kept for each scenario.
type outcomeArtifact struct {
	Scenario string                 `json:"scenario"`
	RunID    string                 `json:"runId"`
	Payload  map[string]interface{} `json:"payload,omitempty"`
	Outcome  invoke.Outcome         `json:"outcome"`
}

// ArtifactName returns the file name used for a scenario outcome.
func ArtifactName(name, runID string) string {
	return fmt.Sprintf("%s-%s.json", unsafeFileChars.ReplaceAllString(name, "_"), runID)
}

// WriteOutcomeArtifact writes one raw outcome, analysis included, as
// <name>-<runId>.json and returns its path.
func WriteOutcomeArtifact(dir, name, runID string, payload map[string]interface{}, outcome invoke.Outcome) (string, error) {
	data, err := json.MarshalIndent(outcomeArtifact{
		Scenario: name,
		RunID:    runID,
		Payload:  payload,
		Outcome:  outcome,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode outcome of %s: %w", name, err)
	}
	return writeFile(dir, ArtifactName(name, runID), append(data, '\n'))
}
