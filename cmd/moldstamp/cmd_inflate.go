package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bbiangul/moldstamp"
	"github.com/bbiangul/moldstamp/store"
)

var (
	inflDataset string
	inflImages  string
	inflOutput  string
	inflAngles  []int
)

// inflateCmd adds rotated copies of every dataset image.
var inflateCmd = &cobra.Command{
	Use:   "inflate",
	Short: "Add 90/180/270 degree rotated variants of every dataset image",
	Long: `Reads a JSONL dataset, finds each referenced image under --images and
writes one rotated copy per angle to <output>/<deg>_degrees/. The output
dataset <output>/inflated_dataset.jsonl holds every original record
followed by its rotated variants. Malformed lines are skipped; records
whose image cannot be found are kept without variants.`,
	RunE: runInflate,
}

func init() {
	inflateCmd.Flags().StringVar(&inflDataset, "dataset", "", "Input dataset (default: generated dataset)")
	inflateCmd.Flags().StringVar(&inflImages, "images", "", "Directory searched for original images")
	inflateCmd.Flags().StringVar(&inflOutput, "output", "", "Output directory for rotated images and the new dataset")
	inflateCmd.Flags().IntSliceVar(&inflAngles, "angles", nil, "Rotation angles in degrees (default 90,180,270)")
}

func runInflate(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	if f.Changed("dataset") {
		cfg.Inflate.Dataset = inflDataset
	}
	if f.Changed("images") {
		cfg.Inflate.ImagesDir = inflImages
	}
	if f.Changed("output") {
		cfg.Inflate.OutputDir = inflOutput
	}
	if f.Changed("angles") {
		cfg.Inflate.Angles = inflAngles
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	sum, err := moldstamp.Inflate(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Records:   %d (%d malformed lines skipped)\n", sum.Records, sum.Malformed)
	fmt.Fprintf(out, "Images:    %d found, %d missing, %d failed\n", sum.Images, sum.Missing, sum.Failed)
	fmt.Fprintf(out, "Variants:  %d\n", sum.Variants)
	fmt.Fprintf(out, "Dataset:   %s (%d lines)\n", sum.Output, sum.Lines())

	recordBuild(cmd.Context(), store.Build{
		Kind:     "inflate",
		Source:   cfg.InflateDataset(),
		Output:   sum.Output,
		Records:  sum.Records,
		Variants: sum.Variants,
		Missing:  sum.Missing,
	})
	return nil
}
