package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/bbiangul/moldstamp/dial"
)

const (
	// FilePrefix starts every generated image name.
	FilePrefix = "injection_mold_date_"

	// DefaultURLSuffix is appended to hosted image references so a
	// repository blob URL serves the raw file.
	DefaultURLSuffix = "?raw=true"

	minSuffix = 100000
	maxSuffix = 999999
)

// ErrInvalidRange is returned for an empty or inverted year range.
var ErrInvalidRange = errors.New("dataset: invalid year range")

// Renderer renders one dial to a file.
type Renderer interface {
	RenderFile(year, month int, path string) error
}

// YearRange is an inclusive range of years.
type YearRange struct {
	From int `yaml:"from" env:"FROM"`
	To   int `yaml:"to" env:"TO"`
}

// Validate reports an inverted range. Any year is allowed.
func (r YearRange) Validate() error {
	if r.To < r.From {
		return fmt.Errorf("%w: %d..%d", ErrInvalidRange, r.From, r.To)
	}
	return nil
}

// Len returns the number of years in the range.
func (r YearRange) Len() int { return r.To - r.From + 1 }

// ImageRef turns a generated file name into the reference stored in the
// dataset. With an empty BaseURL it yields the local path.
type ImageRef struct {
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// Prefix is the path between BaseURL and the file name. Empty means the
	// image directory as given to the builder.
	Prefix string `yaml:"prefix" env:"PREFIX"`
	Suffix string `yaml:"suffix" env:"SUFFIX"`
}

// Resolve returns the reference for file stored in dir.
func (r ImageRef) Resolve(dir, file string) string {
	if r.BaseURL == "" {
		return filepath.Join(dir, file)
	}
	prefix := r.Prefix
	if prefix == "" {
		prefix = strings.TrimPrefix(filepath.ToSlash(filepath.Clean(dir)), "./")
		if prefix == "." {
			prefix = ""
		}
	}
	var b strings.Builder
	b.WriteString(strings.TrimRight(r.BaseURL, "/"))
	if prefix = strings.Trim(prefix, "/"); prefix != "" {
		b.WriteString("/" + prefix)
	}
	b.WriteString("/" + file + r.Suffix)
	return b.String()
}

// Builder renders the (year, month) grid and assembles dataset records.
type Builder struct {
	renderer Renderer
	imageDir string
	ref      ImageRef
	prompt   string
	rng      *rand.Rand
}

// Option configures a Builder.
type Option func(*Builder)

// WithImageRef sets how image references are formed.
func WithImageRef(ref ImageRef) Option {
	return func(b *Builder) { b.ref = ref }
}

// WithPrompt replaces TaskPrompt.
func WithPrompt(prompt string) Option {
	return func(b *Builder) { b.prompt = prompt }
}

// WithRand sets the source of file name suffixes.
func WithRand(rng *rand.Rand) Option {
	return func(b *Builder) { b.rng = rng }
}

// NewBuilder returns a builder writing images into imageDir.
func NewBuilder(r Renderer, imageDir string, opts ...Option) *Builder {
	b := &Builder{
		renderer: r,
		imageDir: imageDir,
		ref:      ImageRef{Suffix: DefaultURLSuffix},
		prompt:   TaskPrompt,
	}
	for _, o := range opts {
		o(b)
	}
	if b.rng == nil {
		b.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return b
}

// Build renders one image per month of every year in years and returns the
// records in generation order, years ascending then months 1..12.
func (b *Builder) Build(ctx context.Context, years YearRange) ([]Record, error) {
	if err := years.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(b.imageDir, 0755); err != nil {
		return nil, fmt.Errorf("creating image directory: %w", err)
	}

	used := make(map[int]bool, years.Len()*dial.Months)
	records := make([]Record, 0, years.Len()*dial.Months)
	for year := years.From; year <= years.To; year++ {
		for month := 1; month <= dial.Months; month++ {
			if err := ctx.Err(); err != nil {
				return records, err
			}
			name := b.fileName(used)
			path := filepath.Join(b.imageDir, name)
			if err := b.renderer.RenderFile(year, month, path); err != nil {
				return records, fmt.Errorf("rendering %d-%02d: %w", year, month, err)
			}
			records = append(records, NewRecord(b.prompt, b.ref.Resolve(b.imageDir, name), FormatAnswer(year, month)))
		}
		slog.Info("dataset: year rendered", "year", year, "records", len(records))
	}
	return records, nil
}

func (b *Builder) fileName(used map[int]bool) string {
	for {
		n := minSuffix + b.rng.IntN(maxSuffix-minSuffix+1)
		if !used[n] {
			used[n] = true
			return fmt.Sprintf("%s%d.png", FilePrefix, n)
		}
	}
}
