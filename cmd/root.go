package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"fnprobe/internal/config"
	"fnprobe/internal/target"
	"fnprobe/pkg/logging"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess means every executed test passed.
	ExitCodeSuccess = 0
	// ExitCodeError covers test failures and general errors.
	ExitCodeError = 1
	// ExitCodeConfigError means a malformed harness file or test definition.
	ExitCodeConfigError = 2
	// ExitCodeTargetError means the function could not be resolved or read.
	ExitCodeTargetError = 3
)

// TestsFailedError is returned when a run completed with failing tests.
type TestsFailedError struct {
	Failed []string
}

func (e *TestsFailedError) Error() string {
	return fmt.Sprintf("%d test(s) failed: %s", len(e.Failed), strings.Join(e.Failed, ", "))
}

var (
	configPath string
	debug      bool
	logLevel   string
	logFormat  string

	// flag overrides, applied over the harness file and environment
	flagRegion     string
	flagFunction   string
	flagPattern    string
	flagResultsDir string
	flagBuildID    string
	flagCommit     string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "fnprobe",
	Short: "End-to-end test harness for deployed Lambda functions",
	Long: `fnprobe locates a deployed AWS Lambda function, invokes it with the
events described in scenario and workflow files, validates the responses,
collects its CloudWatch logs, measures latency, and writes JUnit, JSON and
Markdown reports for CI.

Integration workflows can run against short-lived S3 resources that fnprobe
provisions and tears down around the run.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logging.ParseLevel(logLevel)
		if debug {
			level = logging.LevelDebug
		}
		logging.Init(level, logging.Format(logFormat), os.Stderr)
	},
}

// SetVersion sets the version for the root command.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute runs the root command and exits with the code matching the error.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "fnprobe version %s\n" .Version}}`)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error: "+describeError(err))
		os.Exit(getExitCode(err))
	}
}

// getExitCode maps an error to a process exit code.
func getExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}

	var cfgErr *config.ConfigError
	if errors.As(err, &cfgErr) {
		return ExitCodeConfigError
	}

	var notFound *target.NotFoundError
	if errors.As(err, &notFound) {
		return ExitCodeTargetError
	}

	var accessErr *target.AccessError
	if errors.As(err, &accessErr) {
		return ExitCodeTargetError
	}

	return ExitCodeError
}

func describeError(err error) string {
	var cfgErr *config.ConfigError
	if errors.As(err, &cfgErr) {
		return cfgErr.DetailedError()
	}
	return err.Error()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "fnprobe.yaml", "Harness configuration file")
	pf.BoolVar(&debug, "debug", false, "Enable debug logging")
	pf.StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	pf.StringVar(&logFormat, "log-format", string(logging.FormatText), "Log format: text or json")
	pf.StringVar(&flagRegion, "region", "", "AWS region (overrides config and AWS_REGION)")
	pf.StringVar(&flagFunction, "function", "", "Function name or ARN under test")
	pf.StringVar(&flagPattern, "pattern", "", "Name pattern used to discover the function")
	pf.StringVar(&flagResultsDir, "results-dir", "", "Root directory for reports")
	pf.StringVar(&flagBuildID, "build-id", "", "CI build identifier used in the run id")
	pf.StringVar(&flagCommit, "commit", "", "Source revision under test")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newInvokeCmd())
	rootCmd.AddCommand(newShellCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newSchemaCmd())
	rootCmd.AddCommand(newSweepCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}
