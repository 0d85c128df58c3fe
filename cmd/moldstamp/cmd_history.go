package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bbiangul/moldstamp"
	"github.com/bbiangul/moldstamp/store"
)

var (
	historyLimit int
	historyRun   string
)

// historyCmd lists stored evaluation runs and per-prompt precision.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show evaluation run history and per-prompt average precision",
	Long: `Lists the most recent evaluation runs and dataset builds recorded in the
history database, followed by each prompt's average precision across all
runs. With --run, prints the per-case results of one run instead.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Number of runs and builds to list (0 = all)")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "Show the results of one run ID")
}

func runHistory(cmd *cobra.Command, args []string) error {
	if cfg.DBPath == "" {
		return fmt.Errorf("%w: db_path is not set", moldstamp.ErrInvalidConfig)
	}
	s, err := store.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if historyRun != "" {
		results, err := s.RunResults(ctx, historyRun)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			return fmt.Errorf("no results for run %s", historyRun)
		}
		printResults(out, results)
		return nil
	}

	runs, err := s.ListRuns(ctx, historyLimit)
	if err != nil {
		return err
	}
	builds, err := s.ListBuilds(ctx, historyLimit)
	if err != nil {
		return err
	}
	summaries, err := s.PromptSummaries(ctx)
	if err != nil {
		return err
	}
	printHistory(out, runs, builds, summaries)
	return nil
}

func printHistory(w io.Writer, runs []store.Run, builds []store.Build, summaries []store.PromptSummary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "RUN\tSTARTED\tMODEL\tPROMPTS\tCASES\tERRORS\tTOKENS\tTIME")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%dms\n",
			r.RunID, r.StartedAt, r.Model, r.Prompts, r.Cases, r.Errors, r.TotalTokens, r.RunTimeMs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(tw, "(no runs)")
	}

	fmt.Fprintln(tw, "\nBUILD\tKIND\tOUTPUT\tRECORDS\tVARIANTS\tMISSING\tCREATED")
	for _, b := range builds {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\t%s\n",
			b.ID, b.Kind, b.Output, b.Records, b.Variants, b.Missing, b.CreatedAt)
	}

	fmt.Fprintln(tw, "\nPROMPT\tRUNS\tRESULTS\tAVG PRECISION\tEXACT\tLAST RUN")
	for _, p := range summaries {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.3f\t%d\t%s\n",
			p.PromptID, p.Runs, p.Results, p.AvgPrecision, p.Exact, p.LastRun)
	}
	tw.Flush()
}

func printResults(w io.Writer, results []store.Result) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PROMPT\tCASE\tEXPECTED\tEXTRACTED\tPRECISION\tERROR")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%.1f\t%s\n",
			r.PromptID, r.CaseIndex, r.Expected, truncate(r.Extracted, 40), r.Precision, r.Error)
	}
	tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
