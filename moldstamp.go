// Package moldstamp generates labeled images of circular injection-mold
// date stamps, builds and inflates fine-tuning datasets from them, and
// scores candidate prompts against a hosted vision model.
//
// The sub-packages can be used on their own; this package wires them from
// a single Config.
package moldstamp

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/bbiangul/moldstamp/dataset"
	"github.com/bbiangul/moldstamp/dial"
	"github.com/bbiangul/moldstamp/eval"
	"github.com/bbiangul/moldstamp/inflate"
	"github.com/bbiangul/moldstamp/llm"
	"github.com/bbiangul/moldstamp/store"
)

// GenerateResult reports the outcome of a dataset generation.
type GenerateResult struct {
	Records  int    `json:"records"`
	ImageDir string `json:"image_dir"`
	Dataset  string `json:"dataset"`
}

// RenderOption configures RenderOne.
type RenderOption func(*renderOptions)

type renderOptions struct {
	angle    float64
	hasAngle bool
}

// WithAngle fixes the final rotation instead of drawing it at random.
func WithAngle(deg float64) RenderOption {
	return func(o *renderOptions) {
		o.angle = deg
		o.hasAngle = true
	}
}

// newRand returns a source seeded from seed, or randomly when seed is zero.
func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed))
}

// NewRenderer builds a dial renderer from cfg. With a non-zero seed the
// rotation angles are reproducible.
func NewRenderer(cfg Config) (*dial.Renderer, error) {
	return dial.NewRenderer(cfg.Dial, dial.WithRand(newRand(cfg.Seed)))
}

// RenderOne renders a single dial for year and month.
func RenderOne(cfg Config, year, month int, opts ...RenderOption) (image.Image, error) {
	var o renderOptions
	for _, fn := range opts {
		fn(&o)
	}
	r, err := NewRenderer(cfg)
	if err != nil {
		return nil, err
	}
	if o.hasAngle {
		return r.RenderAt(year, month, o.angle)
	}
	return r.Render(year, month)
}

// Generate renders every month of cfg.Years into cfg.ImageDir and writes
// the shuffled dataset to cfg.DatasetPath.
func Generate(ctx context.Context, cfg Config) (*GenerateResult, error) {
	r, err := NewRenderer(cfg)
	if err != nil {
		return nil, err
	}

	// Separate streams keep file names independent of rotation draws.
	opts := []dataset.Option{
		dataset.WithImageRef(cfg.ImageRef),
		dataset.WithRand(newRand(cfg.Seed + 1)),
	}
	if cfg.Prompt != "" {
		opts = append(opts, dataset.WithPrompt(cfg.Prompt))
	}
	b := dataset.NewBuilder(r, cfg.ImageDir, opts...)

	start := time.Now()
	records, err := b.Build(ctx, cfg.Years)
	if err != nil {
		return nil, err
	}
	if err := dataset.Write(cfg.DatasetPath, records, newRand(cfg.Seed+2)); err != nil {
		return nil, err
	}

	slog.Info("dataset generated",
		"records", len(records),
		"images", cfg.ImageDir,
		"dataset", cfg.DatasetPath,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return &GenerateResult{Records: len(records), ImageDir: cfg.ImageDir, Dataset: cfg.DatasetPath}, nil
}

// Inflate adds the rotated variants of every dataset image.
func Inflate(ctx context.Context, cfg Config) (*inflate.Summary, error) {
	var opts []inflate.Option
	if len(cfg.Inflate.Angles) > 0 {
		opts = append(opts, inflate.WithAngles(cfg.Inflate.Angles...))
	}
	return inflate.New(opts...).Inflate(ctx, cfg.InflateDataset(), cfg.InflateImages(), cfg.Inflate.OutputDir)
}

// NewVisionProvider builds the provider named in cfg.LLM.
func NewVisionProvider(cfg Config) (llm.VisionProvider, error) {
	p, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVisionUnavailable, err)
	}
	return p, nil
}

// Evaluate sends every prompt of the workbook's input sheet with every
// test case of the evaluation dataset and writes the result sheet back
// unless cfg.Eval.SkipWriteBack is set. A nil provider is built from
// cfg.LLM. When ctx is cancelled mid-run the partial report is still
// written and returned together with ctx's error.
func Evaluate(ctx context.Context, cfg Config, provider llm.VisionProvider) (*eval.Report, error) {
	prompts, err := eval.LoadPrompts(cfg.Eval.Workbook, cfg.Eval.InputSheet)
	if err != nil {
		return nil, err
	}
	if len(prompts) == 0 {
		return nil, fmt.Errorf("%w: sheet %q of %s", ErrNoPrompts, cfg.Eval.InputSheet, cfg.Eval.Workbook)
	}

	datasetPath := cfg.EvalDataset()
	cases, err := eval.LoadCases(datasetPath)
	if err != nil {
		return nil, err
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoTestCases, datasetPath)
	}

	if provider == nil {
		if provider, err = NewVisionProvider(cfg); err != nil {
			return nil, err
		}
	}

	slog.Info("starting evaluation",
		"prompts", len(prompts),
		"cases", len(cases),
		"dataset", datasetPath,
		"model", cfg.LLM.Model,
	)

	ev := eval.NewEvaluator(provider,
		eval.WithModel(cfg.LLM.Model),
		eval.WithMaxTokens(cfg.Eval.MaxTokens),
		eval.WithDelay(cfg.Eval.Delay),
	)
	report, runErr := ev.Run(ctx, prompts, cases)
	if report == nil {
		return nil, runErr
	}

	if !cfg.Eval.SkipWriteBack {
		if err := eval.WriteWorkbook(cfg.Eval.Workbook, cfg.Eval.ResultSheet, report); err != nil {
			return report, errors.Join(runErr, fmt.Errorf("writing results: %w", err))
		}
		slog.Info("results written", "workbook", cfg.Eval.Workbook, "sheet", cfg.Eval.ResultSheet)
	}
	return report, runErr
}

// HistoryRecord flattens a report into run history rows.
func HistoryRecord(r *eval.Report, workbook, datasetPath string) (store.Run, []store.Result) {
	run := store.Run{
		RunID:            r.RunID,
		Model:            r.Model,
		Workbook:         workbook,
		Dataset:          datasetPath,
		Prompts:          len(r.Prompts),
		Cases:            len(r.Cases),
		Errors:           r.Errors,
		PromptTokens:     r.TokenUsage.PromptTokens,
		CompletionTokens: r.TokenUsage.CompletionTokens,
		TotalTokens:      r.TokenUsage.TotalTokens,
		StartedAt:        r.StartedAt.UTC().Format(time.RFC3339),
		RunTimeMs:        r.RunTime.Milliseconds(),
	}

	var results []store.Result
	for _, pr := range r.Prompts {
		for _, cr := range pr.Results {
			results = append(results, store.Result{
				PromptID:      pr.ID,
				CaseIndex:     cr.Index,
				ImageURL:      cr.ImageURL,
				Expected:      cr.Expected,
				Response:      cr.Response,
				Extracted:     cr.Extracted,
				Pattern:       cr.Pattern,
				LowConfidence: cr.LowConfidence,
				Precision:     cr.Precision,
				Error:         cr.Error,
				TotalTokens:   cr.TotalTokens,
			})
		}
	}
	return run, results
}

// SaveHistory stores r in the run history.
func SaveHistory(ctx context.Context, s *store.Store, r *eval.Report, workbook, datasetPath string) error {
	run, results := HistoryRecord(r, workbook, datasetPath)
	if _, err := s.SaveRun(ctx, run, results); err != nil {
		return fmt.Errorf("saving run %s: %w", r.RunID, err)
	}
	return nil
}
