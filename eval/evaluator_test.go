package eval

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bbiangul/moldstamp/dataset"
	"github.com/bbiangul/moldstamp/llm"
	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"
)

// fakeVision answers from a table keyed by image URL and records requests.
type fakeVision struct {
	answers  map[string]string
	fail     map[string]bool
	requests []llm.VisionChatRequest
}

func (f *fakeVision) ChatWithImages(ctx context.Context, req llm.VisionChatRequest) (*llm.ChatResponse, error) {
	f.requests = append(f.requests, req)
	url := req.Messages[0].Content[1].ImageURL.URL
	if f.fail[url] {
		return nil, errors.New("LLM API error 500: upstream")
	}
	return &llm.ChatResponse{Content: f.answers[url], PromptTokens: 10, CompletionTokens: 2, TotalTokens: 12}, nil
}

func TestCasesFromRecords(t *testing.T) {
	records := []dataset.Record{
		dataset.NewRecord("p", "a.png", "02/2021"),
		dataset.NewRecord("p", "", "03/2021"),
		{Messages: []dataset.Message{{Role: dataset.RoleUser, Content: dataset.PartsContent(llm.ImagePart("b.png"))}}},
		dataset.NewRecord("p", "c.png", "Final Answer: April 2022 (2022-04)"),
	}
	want := []Case{
		{ImageURL: "a.png", Expected: "02/2021"},
		{ImageURL: "c.png", Expected: "Final Answer: April 2022 (2022-04)"},
	}
	if diff := cmp.Diff(want, CasesFromRecords(records)); diff != "" {
		t.Errorf("cases mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadCases(t *testing.T) {
	path := filepath.Join(t.TempDir(), "d.jsonl")
	if err := dataset.Write(path, []dataset.Record{dataset.NewRecord("p", "a.png", "02/2021")}, nil); err != nil {
		t.Fatal(err)
	}
	cases, err := LoadCases(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cases) != 1 || cases[0].Expected != "02/2021" {
		t.Errorf("cases = %+v", cases)
	}
}

func TestEvaluatorRun(t *testing.T) {
	fv := &fakeVision{
		answers: map[string]string{
			"a.png": "**Final Answer: February 2021 (2021-02)**",
			"b.png": "Final Answer: 2020-03",
		},
		fail: map[string]bool{"c.png": true},
	}
	cases := []Case{
		{ImageURL: "a.png", Expected: "2021-02"},
		{ImageURL: "b.png", Expected: "2021-03"},
		{ImageURL: "c.png", Expected: "04/2021"},
	}
	prompts := []Prompt{{ID: "1", Text: "first"}, {ID: "2", Text: "second"}}

	e := NewEvaluator(fv, WithModel("gpt-4-vision-preview"), WithDelay(0))
	r, err := e.Run(context.Background(), prompts, cases)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(fv.requests) != 6 {
		t.Fatalf("requests = %d, want 6", len(fv.requests))
	}
	req := fv.requests[0]
	if req.Model != "gpt-4-vision-preview" || req.MaxTokens != DefaultMaxTokens {
		t.Errorf("request model/max_tokens = %q/%d", req.Model, req.MaxTokens)
	}
	wantMsg := []llm.VisionMessage{llm.UserMessage("first", "a.png")}
	if diff := cmp.Diff(wantMsg, req.Messages); diff != "" {
		t.Errorf("request messages (-want +got):\n%s", diff)
	}

	if r.RunID == "" || r.TotalTests != 6 || r.Completed != 6 || r.Errors != 2 {
		t.Errorf("report totals = %+v", r)
	}
	if r.TokenUsage.TotalTokens != 4*12 {
		t.Errorf("total tokens = %d, want 48", r.TokenUsage.TotalTokens)
	}

	p := r.Prompts[0]
	if len(p.Results) != 3 {
		t.Fatalf("results = %d", len(p.Results))
	}
	if got := p.Results[0]; got.Precision != 1 || got.Pattern != 1 {
		t.Errorf("case 1 = %+v", got)
	}
	if got := p.Results[1]; got.Extracted != "2020-03" || got.Precision != 0.5 {
		t.Errorf("case 2 = %+v", got)
	}
	failed := p.Results[2]
	if !strings.HasPrefix(failed.Response, "Error: ") || failed.Error == "" || failed.Precision != 0 {
		t.Errorf("failed case = %+v", failed)
	}
	if p.AvgPrecision != 0.75 || p.Exact != 1 || p.Partial != 1 || p.Errors != 1 {
		t.Errorf("prompt aggregates = avg %v exact %d partial %d errors %d", p.AvgPrecision, p.Exact, p.Partial, p.Errors)
	}

	out := FormatReport(r)
	for _, want := range []string{"Model: gpt-4-vision-preview", "[1] avg=0.750", "Requests: 6/6", "Best prompt: 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("FormatReport missing %q:\n%s", want, out)
		}
	}
}

func TestEvaluatorDelayAndCancel(t *testing.T) {
	fv := &fakeVision{answers: map[string]string{}}
	cases := []Case{{ImageURL: "a.png", Expected: "01/2020"}, {ImageURL: "b.png", Expected: "02/2020"}}
	e := NewEvaluator(fv, WithDelay(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	r, err := e.Run(ctx, []Prompt{{ID: "1", Text: "p"}}, cases)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want deadline exceeded", err)
	}
	if len(fv.requests) != 1 {
		t.Errorf("requests = %d, want 1 before the delay", len(fv.requests))
	}
	if r == nil || r.Completed != 1 || len(r.Prompts) != 1 {
		t.Errorf("partial report = %+v", r)
	}
}

func writePromptBook(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", InputSheet); err != nil {
		t.Fatal(err)
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(InputSheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	path := filepath.Join(t.TempDir(), "prompts.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadPrompts(t *testing.T) {
	path := writePromptBook(t, [][]any{
		{"Notes", "Prompt", "ID"},
		{"x", "Read the stamp.", 1},
		{"y", "", 2},
		{"z", "Second prompt", "B"},
	})
	got, err := LoadPrompts(path, InputSheet)
	if err != nil {
		t.Fatalf("LoadPrompts: %v", err)
	}
	want := []Prompt{{ID: "1", Text: "Read the stamp."}, {ID: "B", Text: "Second prompt"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("prompts mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadPromptsMissingColumn(t *testing.T) {
	path := writePromptBook(t, [][]any{{"Name", "Prompt"}, {"a", "b"}})
	if _, err := LoadPrompts(path, InputSheet); !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("error = %v, want ErrMissingColumn", err)
	}
	if _, err := LoadPrompts(path, "No Such Sheet"); err == nil {
		t.Fatal("expected error for missing sheet")
	}
}

func TestWriteWorkbook(t *testing.T) {
	path := writePromptBook(t, [][]any{{"ID", "Prompt"}, {1, "first"}, {2, "second"}})

	// A stale result sheet is replaced, not appended to.
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	f.NewSheet(ResultSheet)
	f.SetCellValue(ResultSheet, "Z9", "stale")
	if err := f.Save(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	r := &Report{
		Cases: []Case{{ImageURL: "a"}, {ImageURL: "b"}},
		Prompts: []PromptResult{
			{ID: "1", Results: []CaseResult{{Index: 1, Extracted: "02/2021", Precision: 1}, {Index: 2, Extracted: "x", Precision: 0}}},
			{ID: "2", Results: []CaseResult{{Index: 1, Extracted: "03/2021", Precision: 0.5}}},
		},
	}
	if err := WriteWorkbook(path, ResultSheet, r); err != nil {
		t.Fatalf("WriteWorkbook: %v", err)
	}

	f, err = excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows(ResultSheet)
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{
		{"ID", "Result_1", "Precision_1", "Result_2", "Precision_2"},
		{"1", "02/2021", "1", "x", "0"},
		{"2", "03/2021", "0.5"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("result sheet mismatch (-want +got):\n%s", diff)
	}

	// The input sheet survives.
	prompts, err := LoadPrompts(path, InputSheet)
	if err != nil || len(prompts) != 2 {
		t.Errorf("input sheet after write: %v, %v", prompts, err)
	}
}
