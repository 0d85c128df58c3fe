package eval

import (
	"fmt"
	"strings"
	"time"
)

// Report holds the results of an evaluation run.
type Report struct {
	RunID      string         `json:"run_id"`
	Model      string         `json:"model,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	RunTime    time.Duration  `json:"run_time"`
	TotalTests int            `json:"total_tests"`
	Completed  int            `json:"completed"`
	Errors     int            `json:"errors"`
	Cases      []Case         `json:"cases"`
	Prompts    []PromptResult `json:"prompts"`
	TokenUsage TokenUsage     `json:"token_usage"`
}

// TokenUsage aggregates LLM token consumption across an evaluation run.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// PromptResult holds one prompt's results in case order.
type PromptResult struct {
	ID      string       `json:"id"`
	Prompt  string       `json:"prompt"`
	Results []CaseResult `json:"results"`

	// AvgPrecision averages over requests that did not fail; failed
	// requests would otherwise count as wrong answers.
	AvgPrecision float64 `json:"avg_precision"`
	Exact        int     `json:"exact"`   // results scored 1.0
	Partial      int     `json:"partial"` // results scored 0.5
	Errors       int     `json:"errors"`
}

// CaseResult is the outcome of one prompt × case request.
type CaseResult struct {
	Index            int     `json:"index"` // 1-based case number
	ImageURL         string  `json:"image_url"`
	Expected         string  `json:"expected"`
	Response         string  `json:"response"`
	Extracted        string  `json:"extracted"`
	Pattern          int     `json:"pattern"`
	LowConfidence    bool    `json:"low_confidence,omitempty"`
	Precision        float64 `json:"precision"`
	Error            string  `json:"error,omitempty"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	ElapsedMs        int64   `json:"elapsed_ms"`
}

// add finalizes pr's aggregates and appends it to the report.
func (r *Report) add(pr PromptResult) {
	var sum float64
	scored := 0
	for _, res := range pr.Results {
		r.Completed++
		r.TokenUsage.PromptTokens += res.PromptTokens
		r.TokenUsage.CompletionTokens += res.CompletionTokens
		r.TokenUsage.TotalTokens += res.TotalTokens
		if res.Error != "" {
			pr.Errors++
			r.Errors++
			continue
		}
		scored++
		sum += res.Precision
		switch res.Precision {
		case 1:
			pr.Exact++
		case 0.5:
			pr.Partial++
		}
	}
	if scored > 0 {
		pr.AvgPrecision = sum / float64(scored)
	}
	r.Prompts = append(r.Prompts, pr)
}

// Best returns the prompt with the highest average precision, or nil.
func (r *Report) Best() *PromptResult {
	var best *PromptResult
	for i := range r.Prompts {
		if best == nil || r.Prompts[i].AvgPrecision > best.AvgPrecision {
			best = &r.Prompts[i]
		}
	}
	return best
}

// FormatReport produces a human-readable report string.
func FormatReport(r *Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== Prompt Evaluation: %s ===\n", r.RunID)
	if r.Model != "" {
		fmt.Fprintf(&b, "Model: %s\n", r.Model)
	}
	fmt.Fprintf(&b, "Prompts: %d | Cases: %d | Requests: %d/%d | Errors: %d\n",
		len(r.Prompts), len(r.Cases), r.Completed, r.TotalTests, r.Errors)
	fmt.Fprintf(&b, "Run time: %s\n\n", r.RunTime.Round(time.Millisecond))

	fmt.Fprintf(&b, "Token Usage:\n")
	fmt.Fprintf(&b, "  Prompt:     %d\n", r.TokenUsage.PromptTokens)
	fmt.Fprintf(&b, "  Completion: %d\n", r.TokenUsage.CompletionTokens)
	fmt.Fprintf(&b, "  Total:      %d\n\n", r.TokenUsage.TotalTokens)

	if len(r.Prompts) > 0 {
		fmt.Fprintf(&b, "Per-Prompt Precision:\n")
		for _, p := range r.Prompts {
			fmt.Fprintf(&b, "  [%s] avg=%.3f exact=%d partial=%d errors=%d of %d\n",
				p.ID, p.AvgPrecision, p.Exact, p.Partial, p.Errors, len(p.Results))
		}
		if best := r.Best(); best != nil {
			fmt.Fprintf(&b, "\nBest prompt: %s (%.3f)\n", best.ID, best.AvgPrecision)
		}
	}
	return b.String()
}
