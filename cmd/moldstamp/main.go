// Command moldstamp renders injection-mold date stamps, builds and inflates
// fine-tuning datasets, and evaluates prompts against a vision model.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bbiangul/moldstamp"
)

var (
	// Global flags
	configPath string
	logLevel   string
	logFormat  string
	seed       uint64

	// cfg is loaded once in PersistentPreRunE.
	cfg moldstamp.Config
)

var rootCmd = &cobra.Command{
	Use:   "moldstamp",
	Short: "Synthetic injection-mold date stamps and vision prompt evaluation",
	Long: `moldstamp draws circular injection-mold date stamps (a month dial with an
arrow and two year digits), turns them into a labeled fine-tuning dataset,
inflates the dataset with rotated copies and scores candidate prompts
against a hosted vision model.

Configuration comes from an optional YAML file (--config), then MOLDSTAMP_*
environment variables, then command flags.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = moldstamp.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if cmd.Flags().Changed("log-format") {
			cfg.LogFormat = logFormat
		}
		if cmd.Flags().Changed("seed") {
			cfg.Seed = seed
		}
		setupLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")
	rootCmd.PersistentFlags().Uint64Var(&seed, "seed", 0, "Random seed (0 = random)")

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(inflateCmd)
	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogHandler returns a text or JSON slog handler writing to w.
func newLogHandler(w io.Writer, level, format string) slog.Handler {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// setupLogger installs the default logger.
func setupLogger(w io.Writer, level, format string) {
	slog.SetDefault(slog.New(newLogHandler(w, level, format)))
}

