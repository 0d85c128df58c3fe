// Package inflate augments a dataset with rotated copies of its images.
// Labels are left unchanged: the dial's month is read from the arrow, not
// from the image orientation.
package inflate

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bbiangul/moldstamp/dataset"
	"github.com/bbiangul/moldstamp/llm"
	"github.com/bytedance/sonic"
	"github.com/disintegration/imaging"
)

// OutputName is the inflated dataset file written into the output directory.
const OutputName = "inflated_dataset.jsonl"

// DefaultAngles are the counter-clockwise rotations applied to every image.
var DefaultAngles = []int{90, 180, 270}

// Summary counts what one inflation run did.
type Summary struct {
	Records   int    `json:"records"`   // valid JSON input lines, all kept
	Malformed int    `json:"malformed"` // skipped input lines
	Foreign   int    `json:"foreign"`   // kept lines not shaped like a record
	Images    int    `json:"images"`    // image parts located on disk
	Missing   int    `json:"missing"`   // image parts with no matching file
	Variants  int    `json:"variants"`  // rotated records appended
	Failed    int    `json:"failed"`    // rotations that could not be read or saved
	Output    string `json:"output"`
}

// Lines returns the number of lines in the output dataset.
func (s *Summary) Lines() int { return s.Records + s.Variants }

// Inflator writes rotated image copies and the augmented dataset.
type Inflator struct {
	angles []int
}

// Option configures an Inflator.
type Option func(*Inflator)

// WithAngles replaces DefaultAngles.
func WithAngles(angles ...int) Option {
	return func(in *Inflator) { in.angles = angles }
}

// New returns an Inflator.
func New(opts ...Option) *Inflator {
	in := &Inflator{angles: DefaultAngles}
	for _, o := range opts {
		o(in)
	}
	return in
}

// Inflate reads datasetPath, locates each record's images under imagesDir
// and writes one rotated copy per angle to <outputDir>/<deg>_degrees. The
// output dataset holds every valid JSON input line verbatim, each record
// followed by its rotated variants.
func (in *Inflator) Inflate(ctx context.Context, datasetPath, imagesDir, outputDir string) (*Summary, error) {
	ix, err := BuildIndex(imagesDir)
	if err != nil {
		return nil, fmt.Errorf("indexing images: %w", err)
	}
	for _, deg := range in.angles {
		if err := os.MkdirAll(angleDir(outputDir, deg), 0755); err != nil {
			return nil, fmt.Errorf("creating rotation directory: %w", err)
		}
	}

	f, err := os.Open(datasetPath)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	var inputs []dataset.Line
	malformed, err := dataset.ScanJSON(f, func(l dataset.Line) error {
		inputs = append(inputs, l)
		return nil
	})
	f.Close()
	if err != nil {
		return nil, err
	}

	sum := &Summary{Malformed: malformed, Output: filepath.Join(outputDir, OutputName)}
	var out [][]byte
	for _, l := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sum.Records++
		out = append(out, l.Raw)
		if l.DecodeErr != nil {
			slog.Debug("inflate: keeping line without variants", "line", l.Number, "error", l.DecodeErr)
			sum.Foreign++
			continue
		}
		variants, err := in.inflateRecord(l.Record, ix, outputDir, sum)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", l.Number, err)
		}
		out = append(out, variants...)
	}

	if err := writeLines(sum.Output, out); err != nil {
		return nil, err
	}
	slog.Info("inflate: dataset written",
		"output", sum.Output,
		"records", sum.Records,
		"variants", sum.Variants,
		"missing", sum.Missing,
	)
	return sum, nil
}

// inflateRecord returns the encoded rotated variants of rec. Only the first
// message is inspected, and every image part in it yields one variant per
// angle.
func (in *Inflator) inflateRecord(rec dataset.Record, ix *Index, outputDir string, sum *Summary) ([][]byte, error) {
	if len(rec.Messages) == 0 || !rec.Messages[0].Content.IsParts() {
		return nil, nil
	}
	var lines [][]byte
	for i, part := range rec.Messages[0].Content.Parts {
		if part.Type != llm.PartImage || part.ImageURL == nil {
			continue
		}
		ref := part.ImageURL.URL
		path, ok := ix.Find(ImageFilename(ref))
		if !ok {
			slog.Debug("inflate: image not found", "url", ref)
			sum.Missing++
			continue
		}
		sum.Images++

		img, err := imaging.Open(path)
		if err != nil {
			slog.Warn("inflate: cannot open image", "path", path, "error", err)
			sum.Failed += len(in.angles)
			continue
		}
		for _, deg := range in.angles {
			name, err := saveRotated(img, path, outputDir, deg)
			if err != nil {
				slog.Warn("inflate: cannot save rotation", "path", path, "degrees", deg, "error", err)
				sum.Failed++
				continue
			}
			variant := rec.Clone()
			variant.Messages[0].Content.Parts[i].ImageURL.URL = RotatedURL(ref, deg, name)
			data, err := sonic.Marshal(variant)
			if err != nil {
				return nil, fmt.Errorf("encoding variant: %w", err)
			}
			lines = append(lines, data)
			sum.Variants++
		}
	}
	return lines, nil
}

func angleDir(outputDir string, deg int) string {
	return filepath.Join(outputDir, strconv.Itoa(deg)+"_degrees")
}

// RotatedName returns the file name of the deg rotation of name:
// "<stem>_<deg><ext>".
func RotatedName(name string, deg int) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + "_" + strconv.Itoa(deg) + ext
}

func saveRotated(img image.Image, path, outputDir string, deg int) (string, error) {
	name := RotatedName(filepath.Base(path), deg)
	if err := imaging.Save(rotate(img, deg), filepath.Join(angleDir(outputDir, deg), name)); err != nil {
		return "", err
	}
	return name, nil
}

// rotate turns img counter-clockwise by deg degrees, expanding the canvas so
// nothing is cropped.
func rotate(img image.Image, deg int) image.Image {
	switch ((deg % 360) + 360) % 360 {
	case 0:
		return imaging.Clone(img)
	case 90:
		return imaging.Rotate90(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate270(img)
	default:
		return imaging.Rotate(img, float64(deg), color.Transparent)
	}
}

// ImageFilename returns the last path segment of an image reference with
// any query removed.
func ImageFilename(ref string) string {
	ref, _, _ = strings.Cut(ref, "?")
	return ref[strings.LastIndexAny(ref, `/\`)+1:]
}

// RotatedURL rewrites ref to point at the rotated copy named name in the
// <deg>_degrees directory next to the original, keeping ref's query.
func RotatedURL(ref string, deg int, name string) string {
	base, query, hasQuery := strings.Cut(ref, "?")
	seg := strconv.Itoa(deg) + "_degrees/" + name
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		seg = base[:i+1] + seg
	}
	if hasQuery {
		seg += "?" + query
	}
	return seg
}

func writeLines(path string, lines [][]byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating inflated dataset: %w", err)
	}
	w := bufio.NewWriter(f)
	for _, l := range lines {
		w.Write(l)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("writing inflated dataset: %w", err)
	}
	return f.Close()
}
