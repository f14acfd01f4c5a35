// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"firestige.xyz/spamprint/internal/config"
	"firestige.xyz/spamprint/internal/log"
	"firestige.xyz/spamprint/internal/metrics"
	"firestige.xyz/spamprint/internal/runner"
)

// ErrUnsuccessful makes the process exit with status 1 without printing
// anything more: the command already reported why.
var ErrUnsuccessful = errors.New("command unsuccessful")

var (
	// Global flags
	homedir      string
	configFile   string
	debug        bool
	outputFormat string
	timeout      time.Duration
)

// app is the state shared by all commands, built before any of them runs.
var app struct {
	cfg     *config.Config
	logger  log.Logger
	metrics *metrics.Metrics
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "spamprint",
	Short: "spamprint - collaborative spam fingerprint client",
	Long: `spamprint computes a fuzzy fingerprint of a message body and checks,
reports or whitelists it against a network of fingerprint servers.

The message (or an mbox archive with --mbox) is read from standard input.

Examples:
  spamprint check < message.eml          # exit 0 when servers know it as spam
  spamprint report --mbox < spam.mbox    # report every message of an archive
  spamprint digest < message.eml         # print the fingerprint only
  spamprint -d ping                      # ping all servers with packet dumps`,
	Version:           "0.1.0",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute runs the command line and exits non-zero on failure.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	flushMetrics()
	if cerr := log.Close(); cerr != nil {
		fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", cerr)
	}
	if errors.Is(err, ErrUnsuccessful) {
		os.Exit(1)
	}
	if err != nil {
		exitWithError(rootCmd.Name(), err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&homedir, "homedir", "",
		"home directory (default $SPAMPRINT_HOME or ~/.spamprint)")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path (default <homedir>/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false,
		"log debug output, including packet dumps")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "o", "",
		"output format: text, json or yaml (default from config)")
	rootCmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", 0,
		"reply timeout per server (default from config)")
}

// setup loads configuration and builds the logger and metrics.
func setup(cmd *cobra.Command, args []string) error {
	home, err := config.ResolveHomedir(homedir)
	if err != nil {
		return err
	}
	if err := config.EnsureHomedir(home); err != nil {
		return err
	}

	cfg, err := config.Load(home, configFile)
	if err != nil {
		return err
	}
	if debug {
		cfg.Log.Level = "debug"
	}
	if outputFormat != "" {
		cfg.Output.Format = outputFormat
	}
	if cfg.Output.Format, err = runner.ParseFormat(cfg.Output.Format); err != nil {
		return err
	}
	if timeout > 0 {
		cfg.Client.Timeout = timeout
	}

	logger, err := log.Init(&cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	app.cfg = cfg
	app.logger = logger
	app.metrics = metrics.New()
	return nil
}

func flushMetrics() {
	if app.cfg == nil {
		return
	}
	if err := app.metrics.WriteTextfile(app.cfg.Path(app.cfg.Metrics.Textfile)); err != nil {
		app.logger.Warnf("%v", err)
	}
}

// exitWithError prints error message and exits with code 1
func exitWithError(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}
