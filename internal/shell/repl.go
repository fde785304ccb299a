// Package shell is an interactive prompt for sending events to the target
// function and running single scenarios by name.
package shell

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"fnprobe/internal/formatting"
	"fnprobe/internal/invoke"
	"fnprobe/internal/scenario"
	"fnprobe/internal/target"
	"fnprobe/internal/template"
	"fnprobe/internal/validate"
	"fnprobe/pkg/logging"

	"github.com/chzyer/readline"
)

// commandTimeout bounds a single command, independent of the session.
const commandTimeout = 5 * time.Minute

var errExit = errors.New("exit")

// Invoker performs one invocation; *invoke.Engine satisfies it.
type Invoker interface {
	Invoke(ctx context.Context, t *target.FunctionTarget, payload interface{}) invoke.Outcome
}

// REPL reads JSON events or commands and prints the outcome of each.
type REPL struct {
	invoker   Invoker
	target    *target.FunctionTarget
	templates *template.Engine
	scenarios map[string]scenario.Scenario
	factory   formatting.Factory
	formatter formatting.Formatter
	out       io.Writer
}

// New creates a REPL for t. scenarios may be empty.
func New(invoker Invoker, t *target.FunctionTarget, templates *template.Engine, scenarios []scenario.Scenario, out io.Writer) *REPL {
	if out == nil {
		out = os.Stdout
	}
	byName := make(map[string]scenario.Scenario, len(scenarios))
	for _, sc := range scenarios {
		byName[sc.Name] = sc
	}
	factory := formatting.NewFactory()
	return &REPL{
		invoker:   invoker,
		target:    t,
		templates: templates,
		scenarios: byName,
		factory:   factory,
		formatter: factory.CreateFormatter(formatting.Options{Format: formatting.FormatConsole}),
		out:       out,
	}
}

// Run enters the read loop until EOF, "exit", or ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            fmt.Sprintf("fnprobe(%s)> ", r.target.Name),
		HistoryFile:       filepath.Join(os.TempDir(), ".fnprobe_history"),
		AutoComplete:      r.completer(),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline instance: %w", err)
	}
	defer rl.Close()

	fmt.Fprintf(r.out, "Connected to %s. Type 'help' for available commands.\n", r.target.Identifier())
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		} else if err == io.EOF {
			fmt.Fprintln(r.out, "Goodbye!")
			return nil
		} else if err != nil {
			return fmt.Errorf("readline error: %w", err)
		}

		if err := r.Execute(ctx, line); err != nil {
			if errors.Is(err, errExit) {
				fmt.Fprintln(r.out, "Goodbye!")
				return nil
			}
			fmt.Fprintf(r.out, "Error: %v\n", err)
		}
	}
}

// Execute runs one input line. A line starting with '{' is an event.
func (r *REPL) Execute(ctx context.Context, line string) error {
	input := strings.TrimSpace(line)
	if input == "" {
		return nil
	}
	if strings.HasPrefix(input, "{") {
		return r.sendEvent(ctx, input)
	}

	parts := strings.Fields(input)
	args := parts[1:]
	switch strings.ToLower(parts[0]) {
	case "help", "?":
		r.printHelp()
		return nil
	case "exit", "quit":
		return errExit
	case "list":
		r.listScenarios()
		return nil
	case "run":
		if len(args) != 1 {
			return fmt.Errorf("usage: run <scenario>")
		}
		return r.runScenario(ctx, args[0])
	case "format":
		if len(args) != 1 {
			return fmt.Errorf("usage: format <console|json|yaml|table>")
		}
		format, ok := formatting.ParseFormat(args[0])
		if !ok {
			return fmt.Errorf("unknown format %q", args[0])
		}
		r.formatter = r.factory.CreateFormatter(formatting.Options{Format: format})
		fmt.Fprintf(r.out, "Output format: %s\n", format)
		return nil
	}
	return fmt.Errorf("unknown command: %s. Type 'help' for available commands", parts[0])
}

func (r *REPL) sendEvent(ctx context.Context, input string) error {
	var event map[string]interface{}
	if err := json.Unmarshal([]byte(input), &event); err != nil {
		return fmt.Errorf("event is not a JSON object: %w", err)
	}
	payload, err := r.templates.NewScope().Expand(event)
	if err != nil {
		return err
	}
	outcome := r.invoke(ctx, payload)
	fmt.Fprintln(r.out, r.formatter.FormatOutcome(outcome))
	return nil
}

func (r *REPL) runScenario(ctx context.Context, name string) error {
	sc, ok := r.scenarios[name]
	if !ok {
		return fmt.Errorf("unknown scenario %q", name)
	}
	payload, err := r.templates.NewScope().Expand(sc.Event)
	if err != nil {
		return err
	}
	outcome := r.invoke(ctx, payload)
	verdict := validate.Check(outcome, sc.Expected)

	fmt.Fprintln(r.out, r.formatter.FormatOutcome(outcome))
	if verdict.Passed {
		fmt.Fprintf(r.out, "✅ %s passed\n", sc.Name)
	} else {
		fmt.Fprintf(r.out, "❌ %s failed: %s\n", sc.Name, verdict.Reason)
	}
	for _, note := range verdict.Notes {
		fmt.Fprintf(r.out, "ℹ️  %s\n", note)
	}
	return nil
}

func (r *REPL) invoke(ctx context.Context, payload map[string]interface{}) invoke.Outcome {
	cmdCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	logging.Debug("Shell", "Invoking %s", r.target.Name)
	outcome := r.invoker.Invoke(cmdCtx, r.target, payload)
	analysis := validate.Analyze(outcome)
	outcome.Analysis = &analysis
	return outcome
}

func (r *REPL) scenarioNames() []string {
	names := make([]string, 0, len(r.scenarios))
	for name := range r.scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *REPL) listScenarios() {
	names := r.scenarioNames()
	if len(names) == 0 {
		fmt.Fprintln(r.out, "No scenarios loaded.")
		return
	}
	fmt.Fprintf(r.out, "Scenarios (%d):\n", len(names))
	for i, name := range names {
		fmt.Fprintf(r.out, "  %d. %s\n", i+1, name)
	}
}

func (r *REPL) printHelp() {
	fmt.Fprintln(r.out, `Commands:
  {"key": "value"}   send a JSON event (placeholders like ${uuid} are expanded)
  run <scenario>     send a scenario event and check its expectation
  list               list loaded scenarios
  format <name>      switch output: console, json, yaml, table
  help               show this help
  exit               leave the shell`)
}

func (r *REPL) completer() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("run", readline.PcItemDynamic(func(string) []string { return r.scenarioNames() })),
		readline.PcItem("list"),
		readline.PcItem("format",
			readline.PcItem(string(formatting.FormatConsole)),
			readline.PcItem(string(formatting.FormatJSON)),
			readline.PcItem(string(formatting.FormatYAML)),
			readline.PcItem(string(formatting.FormatTable)),
		),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)
}
