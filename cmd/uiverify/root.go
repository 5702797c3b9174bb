package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"uiverify/internal/config"
	"uiverify/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

// errFailed is returned when at least one scenario failed; the summary has
// already been printed.
var errFailed = errors.New("one or more scenarios failed")

var rootFlags struct {
	logLevel  string
	logFormat string
	envFile   string
}

// cfg is the environment-derived configuration, resolved before any
// subcommand runs.
var cfg = config.Default()

var rootCmd = &cobra.Command{
	Use:   "uiverify",
	Short: "Visual verification harness for the notes web app",
	Long: `uiverify drives the notes app in a headless browser into specific UI states,
checks them with DOM assertions and captures screenshots for review.

Each scenario declares which steps are injected (DOM state forced because the
real path needs auth, network or module-private code) and which are driven
through the app, and the run summary reports both.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.logLevel, "log-level", "info", "Log level: debug, info, warn, error (env "+config.EnvLogLevel+")")
	pf.StringVar(&rootFlags.logFormat, "log-format", "text", "Log format: text or json (env "+config.EnvLogFormat+")")
	pf.StringVar(&rootFlags.envFile, "env-file", "", "Load environment from this file (default .env when present)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(selectorsCmd)
	rootCmd.Version = version
}

func setup(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(rootFlags.envFile)
	if err != nil {
		return err
	}
	cfg = c

	flags := cmd.Flags()
	if !flags.Changed("log-level") {
		rootFlags.logLevel = cfg.LogLevel
	}
	if !flags.Changed("log-format") {
		rootFlags.logFormat = cfg.LogFormat
	}
	return logging.Setup(rootFlags.logLevel, rootFlags.logFormat, cmd.ErrOrStderr())
}

// defaultFrom sets dst from the configuration unless the flag was given.
func defaultFrom[T any](flags *pflag.FlagSet, name string, dst *T, v T) {
	if !flags.Changed(name) {
		*dst = v
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
