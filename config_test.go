package moldstamp

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bbiangul/moldstamp/dial"
	"github.com/google/go-cmp/cmp"
)

// clearLegacyEnv blanks the un-prefixed credentials so the host
// environment cannot leak into a test.
func clearLegacyEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"OPENAI_API_KEY", "AZURE_OPENAI_ENDPOINT", "AZURE_OPENAI_DEPLOYMENT_NAME"} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Years.From != 2020 || cfg.Years.To != 2024 {
		t.Errorf("years = %+v, want 2020..2024", cfg.Years)
	}
	if diff := cmp.Diff([]int{90, 180, 270}, cfg.Inflate.Angles); diff != "" {
		t.Errorf("angles (-want +got):\n%s", diff)
	}
	if cfg.ImageRef.Suffix != "?raw=true" {
		t.Errorf("image suffix = %q", cfg.ImageRef.Suffix)
	}
}

func TestLoadConfigYAML(t *testing.T) {
	clearLegacyEnv(t)
	path := filepath.Join(t.TempDir(), "moldstamp.yaml")
	data := `
seed: 42
years:
  from: 2021
  to: 2022
image_ref:
  base_url: https://github.com/acme/stamps/blob/main
dial:
  image_size: 256
  arrow_color: "#ff0000"
llm:
  provider: openai
  model: gpt-4o-mini
eval:
  delay: 250ms
  max_tokens: 300
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Seed != 42 || cfg.Years.From != 2021 || cfg.Years.To != 2022 {
		t.Errorf("seed/years = %d %+v", cfg.Seed, cfg.Years)
	}
	if cfg.Dial.ImageSize != 256 {
		t.Errorf("image size = %d, want 256", cfg.Dial.ImageSize)
	}
	if cfg.Dial.ArrowColor != (dial.Color{R: 255, A: 255}) {
		t.Errorf("arrow color = %+v", cfg.Dial.ArrowColor)
	}
	// Untouched fields keep their defaults.
	if cfg.Dial.CircleRadius != 55 || cfg.ImageRef.Suffix != "?raw=true" {
		t.Errorf("defaults lost: radius %v suffix %q", cfg.Dial.CircleRadius, cfg.ImageRef.Suffix)
	}
	if cfg.LLM.Provider != "openai" || cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("llm = %+v", cfg.LLM)
	}
	if cfg.Eval.Delay != 250*time.Millisecond || cfg.Eval.MaxTokens != 300 {
		t.Errorf("eval = %+v", cfg.Eval)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	clearLegacyEnv(t)
	t.Setenv("MOLDSTAMP_SEED", "7")
	t.Setenv("MOLDSTAMP_YEARS_FROM", "2023")
	t.Setenv("MOLDSTAMP_YEARS_TO", "2023")
	t.Setenv("MOLDSTAMP_IMAGE_BASE_URL", "https://example.com/raw")
	t.Setenv("MOLDSTAMP_INFLATE_ANGLES", "90,270")
	t.Setenv("MOLDSTAMP_LLM_MODEL", "gpt-4.1")
	t.Setenv("MOLDSTAMP_EVAL_DELAY", "2s")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Seed != 7 || cfg.Years.From != 2023 || cfg.Years.To != 2023 {
		t.Errorf("seed/years = %d %+v", cfg.Seed, cfg.Years)
	}
	if cfg.ImageRef.BaseURL != "https://example.com/raw" {
		t.Errorf("base url = %q", cfg.ImageRef.BaseURL)
	}
	if diff := cmp.Diff([]int{90, 270}, cfg.Inflate.Angles); diff != "" {
		t.Errorf("angles (-want +got):\n%s", diff)
	}
	if cfg.LLM.Model != "gpt-4.1" || cfg.Eval.Delay != 2*time.Second {
		t.Errorf("llm model %q delay %v", cfg.LLM.Model, cfg.Eval.Delay)
	}
}

func TestLegacyEnvFillsCredentials(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "legacy-key")
	t.Setenv("AZURE_OPENAI_ENDPOINT", "https://acme.openai.azure.com")
	t.Setenv("AZURE_OPENAI_DEPLOYMENT_NAME", "vision")
	t.Setenv("MOLDSTAMP_LLM_API_KEY", "explicit-key")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LLM.APIKey != "explicit-key" {
		t.Errorf("api key = %q, want prefixed variable to win", cfg.LLM.APIKey)
	}
	if cfg.LLM.BaseURL != "https://acme.openai.azure.com" || cfg.LLM.Deployment != "vision" {
		t.Errorf("azure settings = %q %q", cfg.LLM.BaseURL, cfg.LLM.Deployment)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"dial geometry", func(c *Config) { c.Dial.ImageSize = 0 }},
		{"inverted years", func(c *Config) { c.Years.From, c.Years.To = 2025, 2020 }},
		{"no image dir", func(c *Config) { c.ImageDir = "" }},
		{"full turn angle", func(c *Config) { c.Inflate.Angles = []int{90, 360} }},
		{"zero max tokens", func(c *Config) { c.Eval.MaxTokens = 0 }},
		{"negative delay", func(c *Config) { c.Eval.Delay = -time.Second }},
		{"log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"log format", func(c *Config) { c.LogFormat = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestLoadConfigBadYAML(t *testing.T) {
	clearLegacyEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("years: [1, 2"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("error = %v, want ErrInvalidConfig", err)
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEvalDatasetPrefersInflated(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.DatasetPath = filepath.Join(dir, "dataset.jsonl")
	cfg.Inflate.OutputDir = filepath.Join(dir, "inflated")

	if got := cfg.EvalDataset(); got != cfg.DatasetPath {
		t.Errorf("EvalDataset() = %q, want base dataset", got)
	}
	if err := os.MkdirAll(cfg.Inflate.OutputDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cfg.InflatedPath(), nil, 0644); err != nil {
		t.Fatal(err)
	}
	if got := cfg.EvalDataset(); got != cfg.InflatedPath() {
		t.Errorf("EvalDataset() = %q, want inflated dataset", got)
	}
	cfg.Eval.Dataset = "explicit.jsonl"
	if got := cfg.EvalDataset(); got != "explicit.jsonl" {
		t.Errorf("EvalDataset() = %q, want explicit", got)
	}
}
