package logs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// TextFileName is the line-oriented rendering of a bundle.
	TextFileName = "cloudwatch_logs.txt"
	// JSONFileName is the structured rendering of a bundle.
	JSONFileName = "cloudwatch_logs.json"
)

// WriteBundle persists bundle under dir in both renderings and returns the
// two paths.
func WriteBundle(dir string, bundle *Bundle) (string, string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create log directory: %w", err)
	}

	textPath := filepath.Join(dir, TextFileName)
	if err := os.WriteFile(textPath, []byte(RenderText(bundle)), 0644); err != nil {
		return "", "", fmt.Errorf("failed to write %s: %w", TextFileName, err)
	}

	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("failed to encode log bundle: %w", err)
	}
	jsonPath := filepath.Join(dir, JSONFileName)
	if err := os.WriteFile(jsonPath, append(data, '\n'), 0644); err != nil {
		return "", "", fmt.Errorf("failed to write %s: %w", JSONFileName, err)
	}

	return textPath, jsonPath, nil
}

// RenderText renders one line per entry, prefixed by its timestamp when known.
func RenderText(bundle *Bundle) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", bundle.LogGroup)
	if !bundle.Start.IsZero() {
		fmt.Fprintf(&b, "# window %s .. %s\n", bundle.Start.Format("2006-01-02T15:04:05Z"), bundle.End.Format("2006-01-02T15:04:05Z"))
	}
	for _, e := range bundle.Entries {
		if !e.Timestamp.IsZero() {
			b.WriteString(e.Timestamp.Format("2006-01-02T15:04:05.000Z"))
			b.WriteString(" ")
		}
		b.WriteString(e.Message)
		b.WriteString("\n")
	}
	return b.String()
}
