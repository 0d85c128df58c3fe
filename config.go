package moldstamp

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/bbiangul/moldstamp/dataset"
	"github.com/bbiangul/moldstamp/dial"
	"github.com/bbiangul/moldstamp/eval"
	"github.com/bbiangul/moldstamp/inflate"
	"github.com/bbiangul/moldstamp/llm"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "MOLDSTAMP_"

// Config holds all configuration for the generator, inflator and evaluator.
type Config struct {
	// Dial geometry and colors.
	Dial dial.Options `yaml:"dial"`

	// Seed fixes every random choice (rotation angles, file names, shuffle).
	// Zero seeds randomly.
	Seed uint64 `yaml:"seed" env:"SEED"`

	// Dataset generation
	Years       dataset.YearRange `yaml:"years" envPrefix:"YEARS_"`
	ImageDir    string            `yaml:"image_dir" env:"IMAGE_DIR"`
	DatasetPath string            `yaml:"dataset_path" env:"DATASET_PATH"`
	ImageRef    dataset.ImageRef  `yaml:"image_ref" envPrefix:"IMAGE_"`
	Prompt      string            `yaml:"prompt,omitempty"` // empty = dataset.TaskPrompt

	Inflate InflateConfig `yaml:"inflate" envPrefix:"INFLATE_"`
	Eval    EvalConfig    `yaml:"eval" envPrefix:"EVAL_"`
	LLM     llm.Config    `yaml:"llm" envPrefix:"LLM_"`

	// DBPath is the SQLite run history. Empty disables history.
	DBPath string `yaml:"db_path" env:"DB_PATH"`

	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL"`   // debug, info, warn, error
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT"` // text, json
}

// InflateConfig configures the rotation inflator.
type InflateConfig struct {
	// Dataset defaults to Config.DatasetPath.
	Dataset   string `yaml:"dataset" env:"DATASET"`
	ImagesDir string `yaml:"images_dir" env:"IMAGES_DIR"` // defaults to Config.ImageDir
	OutputDir string `yaml:"output_dir" env:"OUTPUT_DIR"`
	Angles    []int  `yaml:"angles" env:"ANGLES" envSeparator:","`
}

// EvalConfig configures the prompt evaluator.
type EvalConfig struct {
	Workbook    string `yaml:"workbook" env:"WORKBOOK"`
	InputSheet  string `yaml:"input_sheet" env:"INPUT_SHEET"`
	ResultSheet string `yaml:"result_sheet" env:"RESULT_SHEET"`

	// Dataset defaults to the inflated dataset when it exists, otherwise
	// Config.DatasetPath.
	Dataset string `yaml:"dataset" env:"DATASET"`

	MaxTokens int           `yaml:"max_tokens" env:"MAX_TOKENS"`
	Delay     time.Duration `yaml:"delay" env:"DELAY"`

	// SkipWriteBack leaves the workbook untouched.
	SkipWriteBack bool `yaml:"skip_write_back" env:"SKIP_WRITE_BACK"`
}

// legacyEnv holds the un-prefixed variables read by the original tooling.
type legacyEnv struct {
	APIKey     string `env:"OPENAI_API_KEY"`
	Endpoint   string `env:"AZURE_OPENAI_ENDPOINT"`
	Deployment string `env:"AZURE_OPENAI_DEPLOYMENT_NAME"`
}

// DefaultConfig returns a Config that reproduces the reference dataset:
// years 2020-2024, images hosted under the repository blob URL layout and
// evaluation against an Azure OpenAI deployment.
func DefaultConfig() Config {
	return Config{
		Dial:        dial.DefaultOptions(),
		Years:       dataset.YearRange{From: 2020, To: 2024},
		ImageDir:    filepath.Join("IM_data_generation", "images"),
		DatasetPath: filepath.Join("IM_data_generation", "dataset.jsonl"),
		ImageRef:    dataset.ImageRef{Suffix: dataset.DefaultURLSuffix},
		Inflate: InflateConfig{
			OutputDir: "inflated_dataset",
			Angles:    append([]int(nil), inflate.DefaultAngles...),
		},
		Eval: EvalConfig{
			Workbook:    "prompts_and_results.xlsx",
			InputSheet:  eval.InputSheet,
			ResultSheet: eval.ResultSheet,
			MaxTokens:   eval.DefaultMaxTokens,
			Delay:       eval.DefaultDelay,
		},
		LLM: llm.Config{
			Provider:   "azure",
			Model:      "gpt-4o",
			APIVersion: llm.DefaultAzureAPIVersion,
			Timeout:    2 * time.Minute,
		},
		DBPath:    filepath.Join("IM_data_generation", "history.db"),
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// LoadConfig starts from DefaultConfig, applies the YAML file at path (if
// path is non-empty) and then environment overrides, and validates the
// result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, path, err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overlays MOLDSTAMP_* variables, then fills the LLM credentials
// from OPENAI_API_KEY, AZURE_OPENAI_ENDPOINT and
// AZURE_OPENAI_DEPLOYMENT_NAME where they are still unset.
func (c *Config) ApplyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("%w: parse env: %v", ErrInvalidConfig, err)
	}

	var legacy legacyEnv
	if err := env.Parse(&legacy); err != nil {
		return fmt.Errorf("%w: parse env: %v", ErrInvalidConfig, err)
	}
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = legacy.APIKey
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = legacy.Endpoint
	}
	if c.LLM.Deployment == "" {
		c.LLM.Deployment = legacy.Deployment
	}
	return nil
}

// Validate checks the values every pipeline depends on. Provider
// credentials are checked when the provider is built.
func (c Config) Validate() error {
	if err := c.Dial.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.Years.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.ImageDir == "" || c.DatasetPath == "" {
		return fmt.Errorf("%w: image_dir and dataset_path are required", ErrInvalidConfig)
	}
	for _, a := range c.Inflate.Angles {
		if a <= 0 || a >= 360 {
			return fmt.Errorf("%w: inflate angle %d outside (0, 360)", ErrInvalidConfig, a)
		}
	}
	if c.Eval.MaxTokens <= 0 {
		return fmt.Errorf("%w: eval max_tokens must be positive", ErrInvalidConfig)
	}
	if c.Eval.Delay < 0 {
		return fmt.Errorf("%w: eval delay must not be negative", ErrInvalidConfig)
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.LogLevel)
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}

// InflateDataset returns the dataset the inflator reads.
func (c Config) InflateDataset() string {
	if c.Inflate.Dataset != "" {
		return c.Inflate.Dataset
	}
	return c.DatasetPath
}

// InflateImages returns the directory searched for original images.
func (c Config) InflateImages() string {
	if c.Inflate.ImagesDir != "" {
		return c.Inflate.ImagesDir
	}
	return c.ImageDir
}

// InflatedPath is where the inflator writes its dataset.
func (c Config) InflatedPath() string {
	return filepath.Join(c.Inflate.OutputDir, inflate.OutputName)
}

// EvalDataset returns the dataset the evaluator reads.
func (c Config) EvalDataset() string {
	if c.Eval.Dataset != "" {
		return c.Eval.Dataset
	}
	if _, err := os.Stat(c.InflatedPath()); err == nil {
		return c.InflatedPath()
	}
	return c.DatasetPath
}
