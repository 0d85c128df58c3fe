package dial

import (
	"fmt"
	"image"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// Renderer draws injection-mold date stamps. Every step is deterministic
// except the final whole-image rotation, whose angle comes from the
// injected random source. A Renderer is not safe for concurrent use.
type Renderer struct {
	opts  Options
	fonts FontProvider
	rng   *rand.Rand
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithRand sets the source of the final rotation angle.
func WithRand(rng *rand.Rand) RendererOption {
	return func(r *Renderer) { r.rng = rng }
}

// WithFonts overrides the font provider resolved from Options.FontPath.
func WithFonts(fp FontProvider) RendererOption {
	return func(r *Renderer) { r.fonts = fp }
}

// NewRenderer validates opts and returns a renderer. Without WithRand the
// rotation source is seeded randomly.
func NewRenderer(opts Options, options ...RendererOption) (*Renderer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	r := &Renderer{opts: opts}
	for _, o := range options {
		o(r)
	}
	if r.fonts == nil {
		r.fonts = ResolveFonts(opts.FontPath)
	}
	if r.rng == nil {
		r.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return r, nil
}

// Options returns the renderer's geometry.
func (r *Renderer) Options() Options { return r.opts }

// Fonts returns the active font provider.
func (r *Renderer) Fonts() FontProvider { return r.fonts }

// Layout computes the deterministic geometry for year and month.
func (r *Renderer) Layout(year, month int) (Geometry, error) {
	return Layout(r.opts, year, month)
}

// NextAngle draws a rotation angle uniformly from [0, 360).
func (r *Renderer) NextAngle() float64 {
	return r.rng.Float64() * 360
}

// Render draws the dial for year and month with a random final rotation.
func (r *Renderer) Render(year, month int) (image.Image, error) {
	return r.RenderAt(year, month, r.NextAngle())
}

// RenderAt draws the dial with the final rotation fixed to angle degrees
// counter-clockwise. The output is identical for identical inputs. A NaN
// or infinite angle is rejected with ErrInvalidOptions.
func (r *Renderer) RenderAt(year, month int, angle float64) (image.Image, error) {
	if math.IsNaN(angle) || math.IsInf(angle, 0) {
		return nil, fmt.Errorf("%w: angle %v is not finite", ErrInvalidOptions, angle)
	}
	g, err := r.Layout(year, month)
	if err != nil {
		return nil, err
	}
	canvas := r.drawFace(g)

	rotated := imaging.Rotate(canvas, angle, r.opts.Background)
	cropped := imaging.CropCenter(rotated, g.CanvasSize, g.CanvasSize)

	out := image.NewRGBA(image.Rect(0, 0, r.opts.ImageSize, r.opts.ImageSize))
	draw.CatmullRom.Scale(out, out.Bounds(), cropped, cropped.Bounds(), draw.Src, nil)
	return out, nil
}

// drawFace paints circles, month labels, arrow and year digits on the
// supersampled canvas, before any rotation.
func (r *Renderer) drawFace(g Geometry) *image.RGBA {
	size := g.CanvasSize
	canvas := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(r.opts.Background), image.Point{}, draw.Src)

	p := newPainter(canvas)
	p.ring(g.Center, g.OuterRadius, g.CircleStroke, r.opts.TextColor)
	p.ring(g.Center, g.InnerRadius, g.CircleStroke, r.opts.TextColor)

	monthFace := r.fonts.Face(g.MonthFontSize)
	for _, label := range g.Labels {
		drawGlyph(canvas, label, monthFace, g.GlyphPad, r.opts.TextColor)
	}

	p.outline(g.Body[:], g.ArrowStroke, r.opts.ArrowColor)
	p.outline(g.Head[:], g.ArrowStroke, r.opts.ArrowColor)

	yearFace := r.fonts.Face(g.YearFontSize)
	for _, digit := range g.Digits {
		drawGlyph(canvas, digit, yearFace, g.GlyphPad, r.opts.TextColor)
	}
	return canvas
}

// RenderFile renders with a random rotation and saves the image to path;
// the format follows the file extension.
func (r *Renderer) RenderFile(year, month int, path string) error {
	img, err := r.Render(year, month)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating image directory: %w", err)
		}
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

// Encode writes img as PNG.
func Encode(w io.Writer, img image.Image) error {
	return imaging.Encode(w, img, imaging.PNG)
}
