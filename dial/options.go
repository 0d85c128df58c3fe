package dial

import (
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"
)

var (
	// ErrInvalidMonth is returned when the target month is outside 1..12.
	ErrInvalidMonth = errors.New("dial: month out of range")

	// ErrInvalidOptions is returned for geometry that cannot produce a dial.
	ErrInvalidOptions = errors.New("dial: invalid options")
)

// Options holds every geometric and color parameter of the dial face.
// Lengths are in output pixels; the renderer scales them by Supersample.
type Options struct {
	ImageSize    int          `json:"image_size" yaml:"image_size"`
	CircleRadius float64      `json:"circle_radius" yaml:"circle_radius"`
	Center       *image.Point `json:"center,omitempty" yaml:"center,omitempty"` // nil = canvas centre

	ArrowColor Color `json:"arrow_color" yaml:"arrow_color"`
	TextColor  Color `json:"text_color" yaml:"text_color"`
	Background Color `json:"background" yaml:"background"`

	FontSize      float64 `json:"font_size" yaml:"font_size"`
	YearFontScale float64 `json:"year_font_scale" yaml:"year_font_scale"`
	FontPath      string  `json:"font_path,omitempty" yaml:"font_path,omitempty"` // empty = built-in face

	LineOffset      float64 `json:"line_offset" yaml:"line_offset"`
	DigitOffset     float64 `json:"digit_offset" yaml:"digit_offset"`
	ArrowWidth      float64 `json:"arrow_width" yaml:"arrow_width"`
	ArrowMargin     float64 `json:"arrow_margin" yaml:"arrow_margin"`
	ArrowHeadLength float64 `json:"arrow_head_length" yaml:"arrow_head_length"`

	// Supersample is the internal render scale, downsampled once at the end.
	Supersample int `json:"supersample" yaml:"supersample"`
}

// DefaultOptions returns the reference date-stamp geometry.
func DefaultOptions() Options {
	return Options{
		ImageSize:       300,
		CircleRadius:    55,
		ArrowColor:      Color{A: 255},
		TextColor:       Color{A: 255},
		Background:      Color{R: 255, G: 255, B: 255, A: 255},
		FontSize:        20,
		YearFontScale:   1.5,
		LineOffset:      12,
		DigitOffset:     20,
		ArrowWidth:      10,
		ArrowMargin:     5,
		ArrowHeadLength: 15,
		Supersample:     4,
	}
}

// Validate reports geometry that would produce a malformed dial.
func (o Options) Validate() error {
	switch {
	case o.ImageSize <= 0:
		return fmt.Errorf("%w: image_size must be positive, got %d", ErrInvalidOptions, o.ImageSize)
	case o.Supersample <= 0:
		return fmt.Errorf("%w: supersample must be positive, got %d", ErrInvalidOptions, o.Supersample)
	case o.CircleRadius <= 0:
		return fmt.Errorf("%w: circle_radius must be positive", ErrInvalidOptions)
	case o.LineOffset < 0 || o.LineOffset >= o.CircleRadius:
		return fmt.Errorf("%w: line_offset must be in [0, circle_radius)", ErrInvalidOptions)
	case o.FontSize <= 0 || o.YearFontScale <= 0:
		return fmt.Errorf("%w: font sizes must be positive", ErrInvalidOptions)
	case o.ArrowWidth <= 0 || o.ArrowHeadLength < 0 || o.ArrowMargin < 0:
		return fmt.Errorf("%w: arrow geometry must be non-negative with positive width", ErrInvalidOptions)
	}
	if 2*(o.CircleRadius-o.LineOffset-o.ArrowMargin) <= o.ArrowHeadLength {
		return fmt.Errorf("%w: arrow head does not fit inside the inner circle", ErrInvalidOptions)
	}
	return nil
}

// Color is an opaque-or-translucent RGBA color that decodes from "#rrggbb"
// or "#rrggbbaa" text in config files and environment variables.
type Color color.RGBA

// RGBA implements color.Color.
func (c Color) RGBA() (r, g, b, a uint32) {
	return color.RGBA(c).RGBA()
}

// MarshalText encodes the color as "#rrggbb", adding alpha when not opaque.
func (c Color) MarshalText() ([]byte, error) {
	if c.A == 255 {
		return []byte(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)), nil
	}
	return []byte(fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)), nil
}

// UnmarshalText parses "#rrggbb" or "#rrggbbaa"; the leading '#' is optional.
func (c *Color) UnmarshalText(text []byte) error {
	s := strings.TrimPrefix(strings.TrimSpace(string(text)), "#")
	if len(s) != 6 && len(s) != 8 {
		return fmt.Errorf("dial: invalid color %q", string(text))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("dial: invalid color %q: %w", string(text), err)
	}
	*c = Color{R: b[0], G: b[1], B: b[2], A: 255}
	if len(b) == 4 {
		c.A = b[3]
	}
	return nil
}
