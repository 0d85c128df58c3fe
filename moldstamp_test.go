package moldstamp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bbiangul/moldstamp/dataset"
	"github.com/bbiangul/moldstamp/eval"
	"github.com/bbiangul/moldstamp/llm"
	"github.com/xuri/excelize/v2"
)

// testConfig renders small, fast dials into a temp directory.
func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Seed = 5
	cfg.Dial.Supersample = 1
	cfg.Years.From, cfg.Years.To = 2021, 2021
	cfg.ImageDir = filepath.Join(dir, "images")
	cfg.DatasetPath = filepath.Join(dir, "dataset.jsonl")
	cfg.Inflate.OutputDir = filepath.Join(dir, "inflated")
	cfg.Eval.Workbook = filepath.Join(dir, "prompts.xlsx")
	cfg.Eval.Delay = 0
	cfg.DBPath = ""
	return cfg
}

// answerVision answers every request with the expected label of the image,
// looked up from the generated dataset.
type answerVision struct {
	mu      sync.Mutex
	answers map[string]string
	calls   int
}

func (a *answerVision) ChatWithImages(ctx context.Context, req llm.VisionChatRequest) (*llm.ChatResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	url := req.Messages[0].Content[1].ImageURL.URL
	return &llm.ChatResponse{Content: "Final Answer: " + a.answers[url], TotalTokens: 5}, nil
}

func writePrompts(t *testing.T, path string, prompts ...string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", eval.InputSheet); err != nil {
		t.Fatal(err)
	}
	rows := [][]any{{"ID", "Prompt"}}
	for i, p := range prompts {
		rows = append(rows, []any{i + 1, p})
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(eval.InputSheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
}

func TestRenderOne(t *testing.T) {
	cfg := testConfig(t)
	a, err := RenderOne(cfg, 2021, 2, WithAngle(30))
	if err != nil {
		t.Fatalf("RenderOne: %v", err)
	}
	if b := a.Bounds(); b.Dx() != 300 || b.Dy() != 300 {
		t.Errorf("bounds = %v", b)
	}
	if _, err := RenderOne(cfg, 2021, 0); err == nil {
		t.Error("expected error for month 0")
	}
}

func TestPipeline(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	gen, err := Generate(ctx, cfg)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if gen.Records != 12 {
		t.Fatalf("generated %d records, want 12", gen.Records)
	}
	records, err := dataset.Read(cfg.DatasetPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 12 {
		t.Fatalf("dataset holds %d records, want 12", len(records))
	}
	answers := make(map[string]string)
	for _, rec := range records {
		if _, err := os.Stat(rec.ImageURL()); err != nil {
			t.Errorf("image %s: %v", rec.ImageURL(), err)
		}
		answers[rec.ImageURL()] = rec.Answer()
	}

	sum, err := Inflate(ctx, cfg)
	if err != nil {
		t.Fatalf("Inflate: %v", err)
	}
	if sum.Records != 12 || sum.Variants != 36 || sum.Missing != 0 {
		t.Fatalf("inflate summary = %+v", sum)
	}
	if sum.Output != cfg.InflatedPath() {
		t.Errorf("inflated output = %q, want %q", sum.Output, cfg.InflatedPath())
	}

	// The evaluator picks up the inflated dataset; answer every variant.
	inflated, err := dataset.Read(cfg.InflatedPath())
	if err != nil {
		t.Fatal(err)
	}
	for _, rec := range inflated {
		answers[rec.ImageURL()] = rec.Answer()
	}

	writePrompts(t, cfg.Eval.Workbook, "Read the stamp.")
	fv := &answerVision{answers: answers}
	report, err := Evaluate(ctx, cfg, fv)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if fv.calls != 48 || report.TotalTests != 48 || report.Completed != 48 {
		t.Fatalf("calls %d total %d completed %d, want 48", fv.calls, report.TotalTests, report.Completed)
	}
	if best := report.Best(); best == nil || best.AvgPrecision != 1 {
		t.Errorf("best prompt = %+v, want precision 1", best)
	}

	f, err := excelize.OpenFile(cfg.Eval.Workbook)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows(eval.ResultSheet)
	if err != nil {
		t.Fatalf("result sheet: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("result sheet has %d rows, want header + 1", len(rows))
	}
}

func TestGenerateReproducible(t *testing.T) {
	a := testConfig(t)
	b := testConfig(t)
	b.ImageDir = a.ImageDir + "-b"
	b.DatasetPath = a.DatasetPath + ".b"

	if _, err := Generate(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	if _, err := Generate(context.Background(), b); err != nil {
		t.Fatal(err)
	}

	names := func(path string) []string {
		recs, err := dataset.Read(path)
		if err != nil {
			t.Fatal(err)
		}
		var out []string
		for _, r := range recs {
			out = append(out, filepath.Base(r.ImageURL())+"="+r.Answer())
		}
		return out
	}
	if got, want := strings.Join(names(b.DatasetPath), ","), strings.Join(names(a.DatasetPath), ","); got != want {
		t.Errorf("equal seeds produced different datasets:\n%s\n%s", got, want)
	}
}

func TestEvaluateNoPrompts(t *testing.T) {
	cfg := testConfig(t)
	writePrompts(t, cfg.Eval.Workbook)
	if _, err := Evaluate(context.Background(), cfg, &answerVision{}); !errors.Is(err, ErrNoPrompts) {
		t.Fatalf("error = %v, want ErrNoPrompts", err)
	}
}

func TestEvaluateNoCases(t *testing.T) {
	cfg := testConfig(t)
	writePrompts(t, cfg.Eval.Workbook, "p")
	if err := os.WriteFile(cfg.DatasetPath, []byte("not json\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Evaluate(context.Background(), cfg, &answerVision{}); !errors.Is(err, ErrNoTestCases) {
		t.Fatalf("error = %v, want ErrNoTestCases", err)
	}
}

func TestEvaluateVisionUnavailable(t *testing.T) {
	cfg := testConfig(t)
	writePrompts(t, cfg.Eval.Workbook, "p")
	if err := dataset.Write(cfg.DatasetPath, []dataset.Record{dataset.NewRecord("p", "a.png", "01/2021")}, nil); err != nil {
		t.Fatal(err)
	}
	cfg.LLM.Provider = "carrier-pigeon"
	if _, err := Evaluate(context.Background(), cfg, nil); !errors.Is(err, ErrVisionUnavailable) {
		t.Fatalf("error = %v, want ErrVisionUnavailable", err)
	}
}

func TestHistoryRecord(t *testing.T) {
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r := &eval.Report{
		RunID:      "run-1",
		Model:      "gpt-4o",
		StartedAt:  started,
		RunTime:    1500 * time.Millisecond,
		Errors:     1,
		Cases:      []eval.Case{{ImageURL: "a.png", Expected: "01/2021"}},
		TokenUsage: eval.TokenUsage{TotalTokens: 20},
		Prompts: []eval.PromptResult{
			{ID: "1", Results: []eval.CaseResult{{Index: 1, ImageURL: "a.png", Expected: "01/2021", Extracted: "01/2021", Precision: 1, TotalTokens: 20}}},
			{ID: "2", Results: []eval.CaseResult{{Index: 1, ImageURL: "a.png", Expected: "01/2021", Response: "Error: boom", Error: "boom"}}},
		},
	}
	run, results := HistoryRecord(r, "book.xlsx", "d.jsonl")
	if run.RunID != "run-1" || run.Prompts != 2 || run.Cases != 1 || run.Errors != 1 {
		t.Errorf("run = %+v", run)
	}
	if run.StartedAt != "2024-05-01T12:00:00Z" || run.RunTimeMs != 1500 || run.TotalTokens != 20 {
		t.Errorf("run timing/tokens = %+v", run)
	}
	if len(results) != 2 || results[0].PromptID != "1" || results[1].Error != "boom" {
		t.Errorf("results = %+v", results)
	}
}
