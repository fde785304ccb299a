package session

import (
	"os"
	"path/filepath"
	"time"

	"fnprobe/internal/config"
)

// Phase names accepted by the run command.
const (
	PhaseUnit        = "unit"
	PhaseIntegration = "integration"
	PhaseAll         = "all"
)

// runIDLayout is used when no build id is available.
const runIDLayout = "20060102-150405"

// Session identifies one end-to-end execution of the harness.
type Session struct {
	RunID      string    `json:"runId"`
	BuildID    string    `json:"buildId,omitempty"`
	Commit     string    `json:"commit,omitempty"`
	Region     string    `json:"region"`
	ResultsDir string    `json:"resultsDir"`
	StartTime  time.Time `json:"startTime"`
}

// New starts a session from the harness configuration.
func New(cfg config.HarnessConfig, now time.Time) *Session {
	return &Session{
		RunID:      RunID(cfg.BuildID, cfg.Commit, now),
		BuildID:    cfg.BuildID,
		Commit:     cfg.Commit,
		Region:     cfg.Region,
		ResultsDir: cfg.ResultsDir,
		StartTime:  now.UTC(),
	}
}

// RunID derives the run id: "<build>-<short commit>" when both are known,
// the build id alone when only it is, otherwise the start time.
func RunID(buildID, commit string, start time.Time) string {
	switch {
	case buildID != "" && commit != "":
		return buildID + "-" + shortCommit(commit)
	case buildID != "":
		return buildID
	default:
		return start.UTC().Format(runIDLayout)
	}
}

func shortCommit(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}
	return commit
}

// PhaseDir returns (and creates) the artifact directory of a phase.
func (s *Session) PhaseDir(phase string) (string, error) {
	dir := filepath.Join(s.ResultsDir, phase)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// Phases expands a phase argument into the phases to run, in order.
func Phases(arg string) ([]string, bool) {
	switch arg {
	case PhaseUnit:
		return []string{PhaseUnit}, true
	case PhaseIntegration:
		return []string{PhaseIntegration}, true
	case PhaseAll:
		return []string{PhaseUnit, PhaseIntegration}, true
	default:
		return nil, false
	}
}
