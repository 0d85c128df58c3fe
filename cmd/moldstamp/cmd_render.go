package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"github.com/bbiangul/moldstamp"
)

var (
	renderYear  int
	renderMonth int
	renderAngle float64
	renderOut   string
)

// renderCmd draws a single dial.
var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a single date stamp image",
	Long: `Renders one dial for --year and --month. Without --angle the final
rotation is drawn at random.

Example:
  moldstamp render --year 2021 --month 2 --angle 0 --out feb21.png`,
	RunE: runRender,
}

func init() {
	renderCmd.Flags().IntVar(&renderYear, "year", 2021, "Year to encode")
	renderCmd.Flags().IntVar(&renderMonth, "month", 1, "Month to point the arrow at (1-12)")
	renderCmd.Flags().Float64Var(&renderAngle, "angle", 0, "Fixed rotation in degrees counter-clockwise")
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "dial.png", "Output image path")
}

func runRender(cmd *cobra.Command, args []string) error {
	var opts []moldstamp.RenderOption
	if cmd.Flags().Changed("angle") {
		opts = append(opts, moldstamp.WithAngle(renderAngle))
	}
	img, err := moldstamp.RenderOne(cfg, renderYear, renderMonth, opts...)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(renderOut); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := imaging.Save(img, renderOut); err != nil {
		return fmt.Errorf("saving %s: %w", renderOut, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s  %02d/%d\n", renderOut, renderMonth, renderYear)
	return nil
}
