package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"fnprobe/internal/config"
	"fnprobe/internal/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCommand_WritesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeHarnessConfig(t, dir)

	out, err := executeCommand(t, "validate", "--config", cfgPath)
	require.NoError(t, err)

	assert.Contains(t, out, "✅ "+filepath.Join(dir, "scenarios.json"))
	assert.Contains(t, out, "✅ "+filepath.Join(dir, "workflows.json"))
	assert.FileExists(t, filepath.Join(dir, "scenarios.json"))
	assert.FileExists(t, filepath.Join(dir, "workflows.json"))
}

func TestValidateCommand_RejectsBrokenScenarios(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeHarnessConfig(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scenarios.json"), []byte(`{"scenarios": [{"event": {}}]}`), 0644))

	_, err := executeCommand(t, "validate", "--config", cfgPath)
	require.Error(t, err)
	assert.Equal(t, ExitCodeConfigError, getExitCode(err))
}

func TestSchemaCommand(t *testing.T) {
	for _, kind := range []string{"scenarios", "workflows"} {
		t.Run(kind, func(t *testing.T) {
			out, err := executeCommand(t, "schema", kind)
			require.NoError(t, err)

			var doc map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(out), &doc))
			assert.Contains(t, doc, "$schema")
		})
	}

	_, err := executeCommand(t, "schema", "resources")
	var cfgErr *config.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestRunCommand_UnknownPhase(t *testing.T) {
	_, err := executeCommand(t, "run", "smoke")
	require.Error(t, err)
	assert.Equal(t, ExitCodeConfigError, getExitCode(err))
}

func TestReportCommand_Raw(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeHarnessConfig(t, dir)
	phaseDir := filepath.Join(dir, "results", "unit")
	require.NoError(t, os.MkdirAll(phaseDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(phaseDir, report.HumanFileName), []byte("# Unit results\n"), 0644))

	out, err := executeCommand(t, "report", "unit", "--raw", "--config", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "# Unit results\n", out)

	out, err = executeCommand(t, "report", "unit", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Unit results")
}

func TestHistoryCommand_NoDatabase(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeHarnessConfig(t, dir)

	_, err := executeCommand(t, "history", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no history at")
}

func TestHistoryCommand_RunRequiresPhase(t *testing.T) {
	_, err := executeCommand(t, "history", "--run", "42")
	assert.Equal(t, ExitCodeConfigError, getExitCode(err))
}

func TestReadEvent(t *testing.T) {
	event, err := readEvent("", "")
	require.NoError(t, err)
	assert.Empty(t, event)

	event, err = readEvent(`{"action":"ping"}`, "")
	require.NoError(t, err)
	assert.Equal(t, "ping", event["action"])

	path := filepath.Join(t.TempDir(), "event.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"id": 7}`), 0644))
	event, err = readEvent("", path)
	require.NoError(t, err)
	assert.Equal(t, float64(7), event["id"])

	_, err = readEvent(`[1,2]`, "")
	var cfgErr *config.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}
