package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/bbiangul/moldstamp"
	"github.com/bbiangul/moldstamp/store"
)

var (
	genFrom    int
	genTo      int
	genImages  string
	genDataset string
	genBaseURL string
	genPrefix  string
)

// generateCmd renders the year x month grid and writes the dataset.
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Render the year x month grid and write a shuffled JSONL dataset",
	Long: `Renders one image per month for every year in --from..--to and writes
one two-turn conversation per image: the task prompt with the image
reference, then the "MM/YYYY" answer.

With --base-url, image references are hosted URLs of the form
<base-url>/<prefix>/<file><suffix>; otherwise they are local paths.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().IntVar(&genFrom, "from", 0, "First year (default from config)")
	generateCmd.Flags().IntVar(&genTo, "to", 0, "Last year, inclusive (default from config)")
	generateCmd.Flags().StringVar(&genImages, "images", "", "Image output directory")
	generateCmd.Flags().StringVar(&genDataset, "dataset", "", "Dataset JSONL path")
	generateCmd.Flags().StringVar(&genBaseURL, "base-url", "", "Base URL for hosted image references")
	generateCmd.Flags().StringVar(&genPrefix, "prefix", "", "Path between base URL and file name (default: image directory)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	if f.Changed("from") {
		cfg.Years.From = genFrom
	}
	if f.Changed("to") {
		cfg.Years.To = genTo
	}
	if f.Changed("images") {
		cfg.ImageDir = genImages
	}
	if f.Changed("dataset") {
		cfg.DatasetPath = genDataset
	}
	if f.Changed("base-url") {
		cfg.ImageRef.BaseURL = genBaseURL
	}
	if f.Changed("prefix") {
		cfg.ImageRef.Prefix = genPrefix
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	res, err := moldstamp.Generate(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Generated %d records\n  images:  %s\n  dataset: %s\n",
		res.Records, res.ImageDir, res.Dataset)

	recordBuild(cmd.Context(), store.Build{Kind: "generate", Output: res.Dataset, Records: res.Records})
	return nil
}

// recordBuild logs a build in the run history when one is configured.
// History is best effort; failures are logged and ignored.
func recordBuild(ctx context.Context, b store.Build) {
	if cfg.DBPath == "" {
		return
	}
	s, err := store.New(cfg.DBPath)
	if err != nil {
		slog.Warn("history unavailable", "db", cfg.DBPath, "error", err)
		return
	}
	defer s.Close()
	if _, err := s.RecordBuild(ctx, b); err != nil {
		slog.Warn("recording build", "kind", b.Kind, "error", err)
	}
}
