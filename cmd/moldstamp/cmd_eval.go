package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/bbiangul/moldstamp"
	"github.com/bbiangul/moldstamp/eval"
	"github.com/bbiangul/moldstamp/store"
)

var (
	evalWorkbook    string
	evalDataset     string
	evalProvider    string
	evalModel       string
	evalEndpoint    string
	evalDeployment  string
	evalAPIKey      string
	evalDelay       time.Duration
	evalMaxTokens   int
	evalNoWriteBack bool
	evalRunDir      string
)

// evalCmd scores every prompt of a workbook against the test dataset.
var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate candidate prompts against a vision model",
	Long: `Reads prompts from the "Prompts - Input Data" sheet of --workbook (columns
ID and Prompt) and test cases from a JSONL dataset, sends every prompt with
every test image, extracts the final answer from each reply and scores it
against the expected label. Results are written to the
"Prompts - Result Data" sheet, a run directory (report.json, metadata.json,
eval.log) and the run history database.

Example:
  moldstamp eval --workbook prompts_and_results.xlsx \
    --dataset inflated_dataset/inflated_dataset.jsonl --provider azure`,
	RunE: runEval,
}

func init() {
	f := evalCmd.Flags()
	f.StringVar(&evalWorkbook, "workbook", "", "Excel workbook with the prompt sheet")
	f.StringVar(&evalDataset, "dataset", "", "Test dataset (default: inflated dataset if present)")
	f.StringVar(&evalProvider, "provider", "", "LLM provider: azure, openai, openrouter, gemini, ollama, custom")
	f.StringVar(&evalModel, "model", "", "Model name")
	f.StringVar(&evalEndpoint, "endpoint", "", "Provider base URL (Azure resource endpoint for azure)")
	f.StringVar(&evalDeployment, "deployment", "", "Azure OpenAI deployment name")
	f.StringVar(&evalAPIKey, "api-key", "", "API key (or OPENAI_API_KEY / MOLDSTAMP_LLM_API_KEY)")
	f.DurationVar(&evalDelay, "delay", eval.DefaultDelay, "Pause between requests")
	f.IntVar(&evalMaxTokens, "max-tokens", eval.DefaultMaxTokens, "Completion token budget per request")
	f.BoolVar(&evalNoWriteBack, "no-write-back", false, "Do not write the result sheet into the workbook")
	f.StringVar(&evalRunDir, "run-dir", "", "Run artifact directory (default evals/runs/<timestamp>)")
}

func applyEvalFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	if f.Changed("workbook") {
		cfg.Eval.Workbook = evalWorkbook
	}
	if f.Changed("dataset") {
		cfg.Eval.Dataset = evalDataset
	}
	if f.Changed("provider") {
		cfg.LLM.Provider = evalProvider
	}
	if f.Changed("model") {
		cfg.LLM.Model = evalModel
	}
	if f.Changed("endpoint") {
		cfg.LLM.BaseURL = evalEndpoint
	}
	if f.Changed("deployment") {
		cfg.LLM.Deployment = evalDeployment
	}
	if f.Changed("api-key") {
		cfg.LLM.APIKey = evalAPIKey
	}
	if f.Changed("delay") {
		cfg.Eval.Delay = evalDelay
	}
	if f.Changed("max-tokens") {
		cfg.Eval.MaxTokens = evalMaxTokens
	}
	if f.Changed("no-write-back") {
		cfg.Eval.SkipWriteBack = evalNoWriteBack
	}
}

func runEval(cmd *cobra.Command, args []string) error {
	applyEvalFlags(cmd)
	if err := cfg.Validate(); err != nil {
		return err
	}

	// --- Run artifact directory ---
	runDir := evalRunDir
	if runDir == "" {
		runDir = filepath.Join("evals", "runs", time.Now().Format("2006-01-02_15-04-05"))
	}
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return fmt.Errorf("creating run directory: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Run directory: %s\n", runDir)

	// Setup log tee: write to both stderr and eval.log
	logFile, err := setupLogTee(runDir, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer logFile.Close()

	datasetPath := cfg.EvalDataset()
	meta := map[string]any{
		"git_commit":   gitCommit(),
		"go_version":   runtime.Version(),
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"provider":     cfg.LLM.Provider,
		"model":        cfg.LLM.Model,
		"deployment":   cfg.LLM.Deployment,
		"workbook":     cfg.Eval.Workbook,
		"dataset":      datasetPath,
		"max_tokens":   cfg.Eval.MaxTokens,
		"delay_ms":     cfg.Eval.Delay.Milliseconds(),
		"write_back":   !cfg.Eval.SkipWriteBack,
		"result_sheet": cfg.Eval.ResultSheet,
	}
	if err := writeJSONFile(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return err
	}

	report, runErr := moldstamp.Evaluate(cmd.Context(), cfg, nil)
	if report == nil {
		return runErr
	}

	if err := writeJSONFile(filepath.Join(runDir, "report.json"), report); err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), eval.FormatReport(report))

	if cfg.DBPath != "" {
		s, err := store.New(cfg.DBPath)
		if err != nil {
			slog.Warn("history unavailable", "db", cfg.DBPath, "error", err)
		} else {
			defer s.Close()
			if err := moldstamp.SaveHistory(cmd.Context(), s, report, cfg.Eval.Workbook, datasetPath); err != nil {
				slog.Warn("saving run history", "error", err)
			}
		}
	}
	return runErr
}

// setupLogTee configures slog to write to both stderr and eval.log in the run dir.
func setupLogTee(runDir, level, format string) (*os.File, error) {
	f, err := os.Create(filepath.Join(runDir, "eval.log"))
	if err != nil {
		return nil, fmt.Errorf("creating log file: %w", err)
	}
	setupLogger(io.MultiWriter(os.Stderr, f), level, format)
	return f, nil
}

// gitCommit returns the current git HEAD short hash, or "unknown".
func gitCommit() string {
	out, err := exec.Command("git", "rev-parse", "--short", "HEAD").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}

// writeJSONFile marshals v to indented JSON and writes it to path.
func writeJSONFile(path string, v any) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
