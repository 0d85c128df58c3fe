// Package eval scores candidate prompts against a vision model: every
// prompt is sent with every test image, the answer is extracted from the
// reply and compared with the expected label.
package eval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bbiangul/moldstamp/llm"
	"github.com/google/uuid"
)

// Request defaults.
const (
	DefaultMaxTokens = 1000
	DefaultDelay     = time.Second
)

// Evaluator runs prompt × case grids against a vision provider. Requests are
// sent one at a time with a fixed delay between them.
type Evaluator struct {
	provider  llm.VisionProvider
	model     string
	maxTokens int
	delay     time.Duration
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithModel sets the model name sent with each request. Empty leaves the
// provider's configured model.
func WithModel(model string) Option {
	return func(e *Evaluator) { e.model = model }
}

// WithMaxTokens sets the completion budget per request.
func WithMaxTokens(n int) Option {
	return func(e *Evaluator) { e.maxTokens = n }
}

// WithDelay sets the pause between consecutive requests.
func WithDelay(d time.Duration) Option {
	return func(e *Evaluator) { e.delay = d }
}

// NewEvaluator creates a new evaluator.
func NewEvaluator(provider llm.VisionProvider, opts ...Option) *Evaluator {
	e := &Evaluator{provider: provider, maxTokens: DefaultMaxTokens, delay: DefaultDelay}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Run sends every prompt with every case. A failed request is recorded as
// an "Error: ..." response and the run continues. Cancelling ctx stops the
// run between requests; the partial report is returned with ctx's error.
func (e *Evaluator) Run(ctx context.Context, prompts []Prompt, cases []Case) (*Report, error) {
	start := time.Now()
	report := &Report{
		RunID:      uuid.NewString(),
		Model:      e.model,
		StartedAt:  start,
		TotalTests: len(prompts) * len(cases),
		Cases:      cases,
	}
	defer func() { report.RunTime = time.Since(start) }()

	sent := 0
	for _, p := range prompts {
		pr := PromptResult{ID: p.ID, Prompt: p.Text}
		slog.Info("eval: processing prompt", "id", p.ID, "cases", len(cases))

		for i, c := range cases {
			if sent > 0 && e.delay > 0 {
				if err := sleep(ctx, e.delay); err != nil {
					report.add(pr)
					return report, err
				}
			}
			if err := ctx.Err(); err != nil {
				report.add(pr)
				return report, err
			}

			res := e.runCase(ctx, p, c, i+1)
			sent++
			pr.Results = append(pr.Results, res)

			slog.Info("eval: case complete",
				"prompt", p.ID,
				"progress", fmt.Sprintf("%d/%d", i+1, len(cases)),
				"extracted", truncate(res.Extracted, 60),
				"expected", c.Expected,
				"precision", res.Precision,
				"elapsed_ms", res.ElapsedMs,
			)
		}
		report.add(pr)
	}
	return report, nil
}

func (e *Evaluator) runCase(ctx context.Context, p Prompt, c Case, index int) CaseResult {
	start := time.Now()
	res := CaseResult{Index: index, ImageURL: c.ImageURL, Expected: c.Expected}

	resp, err := e.provider.ChatWithImages(ctx, llm.VisionChatRequest{
		Model:     e.model,
		Messages:  []llm.VisionMessage{llm.UserMessage(p.Text, c.ImageURL)},
		MaxTokens: e.maxTokens,
	})
	if err != nil {
		slog.Warn("eval: request failed", "prompt", p.ID, "case", index, "error", err)
		res.Error = err.Error()
		res.Response = "Error: " + err.Error()
	} else {
		res.Response = resp.Content
		res.PromptTokens = resp.PromptTokens
		res.CompletionTokens = resp.CompletionTokens
		res.TotalTokens = resp.TotalTokens
	}

	x := Extract(res.Response)
	res.Extracted = x.Answer
	res.Pattern = x.Pattern
	res.LowConfidence = x.LowConfidence
	res.Precision = Precision(res.Extracted, c.Expected)
	res.ElapsedMs = time.Since(start).Milliseconds()
	return res
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
