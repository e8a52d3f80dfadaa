// Package cli provides the command-line interface for bookscout.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/nicholas-gates/bookscout/internal/agent"
	"github.com/nicholas-gates/bookscout/internal/config"
	"github.com/nicholas-gates/bookscout/internal/llm"
	"github.com/nicholas-gates/bookscout/internal/logging"
	"github.com/nicholas-gates/bookscout/internal/metrics"
	"github.com/nicholas-gates/bookscout/internal/trace"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "0.1.0"

var verbose bool

// rootCmd starts the interactive recommendation session directly; there are
// no subcommands besides cobra's built-in version and help.
var rootCmd = &cobra.Command{
	Use:   "bookscout",
	Short: "LLM-backed book and cross-domain media recommendations",
	Long: `Bookscout is an interactive book recommender. Describe what you feel
like reading and it asks an LLM backend for 3-5 matching books; pick one and
it finds a thematically related movie, game and song.

Responses are saved as timestamped JSON files in the working directory and
every operation is logged to a rotating app.log.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSession,
}

func runSession(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if verbose {
		cfg.LogLevel = slog.LevelDebug
	}

	logger := logging.New(cfg.LogFile, cfg.LogLevel)
	defer logger.Close()

	// Missing credentials are fatal before the loop starts.
	if _, err := cfg.APIKey(); err != nil {
		return fmt.Errorf("credentials: %w", err)
	}

	model, err := llm.NewModel(cfg)
	if err != nil {
		return fmt.Errorf("init model: %w", err)
	}

	// Tracing is optional; a missing key simply disables it.
	var traceClient *trace.Client
	if cfg.TraceAPIKey != "" {
		traceClient, err = trace.NewClient(cfg.TraceEndpoint, cfg.TraceAPIKey)
		if err != nil {
			logger.Error("tracing disabled", map[string]any{"error": err.Error()})
			traceClient = nil
		}
	}
	tracker := trace.NewTracker(traceClient, logger, cfg.TraceProject, cfg.Environment)

	stats := metrics.NewCollector()
	books := agent.NewBookAgent(model, tracker, logger, stats)
	media := agent.NewMediaAgent(model, tracker, logger, stats)

	session := NewSession(books, media, tracker, logger, stats, cfg.OutputDir, os.Stdin, os.Stdout)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	return session.Run(ctx)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
}
