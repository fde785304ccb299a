package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// MachineFileName is the structured summary written per phase.
const MachineFileName = "summary.json"

// MarshalMachine encodes the report as indented JSON. Output depends only on
// the report value, so two identical reports encode identically.
func MarshalMachine(r *PhaseReport) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode summary: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteMachineReport writes summary.json into dir and returns its path.
func WriteMachineReport(dir string, r *PhaseReport) (string, error) {
	data, err := MarshalMachine(r)
	if err != nil {
		return "", err
	}
	return writeFile(dir, MachineFileName, data)
}

func writeFile(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
