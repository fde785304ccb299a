package cmd

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"fnprobe/internal/awsclient"
	"fnprobe/internal/clock"
	"fnprobe/internal/config"
	"fnprobe/internal/history"
	"fnprobe/internal/invoke"
	"fnprobe/internal/session"
	"fnprobe/internal/target"
	"fnprobe/internal/template"
	"fnprobe/pkg/logging"

	"github.com/chzyer/readline"
)

// loadConfig merges the harness file, the environment and the command line
// flags (in that order of precedence, flags last) and validates the result.
func loadConfig() (config.HarnessConfig, error) {
	cfg, err := config.LoadUnvalidated(configPath)
	if err != nil {
		return config.HarnessConfig{}, err
	}
	applyFlags(&cfg)
	if err := config.Validate(cfg); err != nil {
		return config.HarnessConfig{}, err
	}
	return cfg, nil
}

// loadSettings is loadConfig for commands that never resolve a function.
func loadSettings() (config.HarnessConfig, error) {
	cfg, err := config.LoadUnvalidated(configPath)
	if err != nil {
		return config.HarnessConfig{}, err
	}
	applyFlags(&cfg)
	check := cfg
	if check.Target.Function == "" && check.Target.Pattern == "" {
		check.Target.Pattern = "*"
	}
	if err := config.Validate(check); err != nil {
		return config.HarnessConfig{}, err
	}
	return cfg, nil
}

func applyFlags(cfg *config.HarnessConfig) {
	if flagRegion != "" {
		cfg.Region = flagRegion
	}
	if flagFunction != "" {
		cfg.Target.Function = flagFunction
	}
	if flagPattern != "" {
		cfg.Target.Pattern = flagPattern
	}
	if flagResultsDir != "" {
		cfg.ResultsDir = flagResultsDir
	}
	if flagBuildID != "" {
		cfg.BuildID = flagBuildID
	}
	if flagCommit != "" {
		cfg.Commit = flagCommit
	}
}

// environment is everything a command needs to talk to the target.
type environment struct {
	cfg       config.HarnessConfig
	clock     clock.Clock
	session   *session.Session
	clients   *awsclient.Clients
	resolver  *target.Resolver
	target    *target.FunctionTarget
	templates *template.Engine
	engine    *invoke.Engine
}

// connect builds the AWS clients and starts a session without resolving
// the target.
func connect(ctx context.Context, cfg config.HarnessConfig) (*environment, error) {
	clients, err := awsclient.Load(ctx, cfg.Region)
	if err != nil {
		return nil, err
	}
	clk := clock.RealClock{}
	s := session.New(cfg, clk.Now())
	return &environment{
		cfg:       cfg,
		clock:     clk,
		session:   s,
		clients:   clients,
		resolver:  target.NewResolver(clients.Lambda),
		templates: template.New(clk, template.UUIDGenerator{}, s.RunID, s.BuildID),
		engine:    invoke.NewEngine(clients.Lambda, clk),
	}, nil
}

// prepare connects and resolves the function under test.
func prepare(ctx context.Context, cfg config.HarnessConfig) (*environment, error) {
	env, err := connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	selector, explicit := cfg.Target.Selector()
	t, err := env.resolver.Resolve(ctx, selector, explicit)
	if err != nil {
		return nil, err
	}
	env.target = t
	if !env.resolver.VerifyAccess(ctx, t) {
		logging.Warn("Setup", "Could not read the configuration of %s; continuing with the resolved identifier", t.Name)
	}
	logging.Info("Setup", "Session %s targets %s (%s)", env.session.RunID, t.Name, t.Identifier())
	return env, nil
}

// openHistory opens the history store, or returns nil when it is disabled
// or cannot be opened.
func openHistory(cfg config.HarnessConfig) *history.Store {
	if !cfg.History.Enabled {
		return nil
	}
	path := historyPath(cfg)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		logging.Warn("Setup", "History disabled: %v", err)
		return nil
	}
	store, err := history.Open(path)
	if err != nil {
		logging.Warn("Setup", "History disabled: %v", err)
		return nil
	}
	return store
}

func historyPath(cfg config.HarnessConfig) string {
	if cfg.History.Path != "" {
		return cfg.History.Path
	}
	return filepath.Join(cfg.ResultsDir, history.FileName)
}

func lookback(cfg config.HarnessConfig) time.Duration {
	return time.Duration(cfg.Logs.LookbackMinutes) * time.Minute
}

func isTerminal() bool {
	return readline.IsTerminal(int(os.Stdout.Fd()))
}
