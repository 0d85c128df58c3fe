package dial

import (
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// FontProvider hands out glyph faces (metrics + rasterization) by size.
// Face never fails: a provider always has a built-in face to fall back on,
// so a missing font changes glyph metrics but never aborts a render.
type FontProvider interface {
	Face(size float64) font.Face
	Name() string
}

// OpenTypeFonts serves faces from a parsed OpenType/TrueType font.
// Faces are cached per size; the provider is not safe for concurrent use.
type OpenTypeFonts struct {
	name  string
	font  *opentype.Font
	faces map[float64]font.Face
}

// ParseFonts parses TTF/OTF bytes into a provider.
func ParseFonts(name string, data []byte) (*OpenTypeFonts, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing font %s: %w", name, err)
	}
	return &OpenTypeFonts{name: name, font: f, faces: make(map[float64]font.Face)}, nil
}

// Name returns the font's source name.
func (p *OpenTypeFonts) Name() string { return p.name }

// Face returns a face at size points (72 DPI, so points equal pixels).
func (p *OpenTypeFonts) Face(size float64) font.Face {
	if face, ok := p.faces[size]; ok {
		return face
	}
	face, err := opentype.NewFace(p.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone, // supersampled, no hinting
	})
	if err != nil {
		slog.Warn("dial: font face unavailable, using basic face", "font", p.name, "size", size, "error", err)
		return basicfont.Face7x13
	}
	p.faces[size] = face
	return face
}

// basicFonts is the last-resort provider: a fixed 7x13 bitmap face that
// ignores the requested size.
type basicFonts struct{}

func (basicFonts) Face(float64) font.Face { return basicfont.Face7x13 }
func (basicFonts) Name() string { return "basic7x13" }

// DefaultFonts returns the embedded Go Regular provider.
func DefaultFonts() FontProvider {
	p, err := ParseFonts("goregular", goregular.TTF)
	if err != nil {
		slog.Warn("dial: embedded font unavailable, using basic face", "error", err)
		return basicFonts{}
	}
	return p
}

// ResolveFonts loads the font at path, falling back to DefaultFonts when
// path is empty, unreadable, or not a valid font.
func ResolveFonts(path string) FontProvider {
	if path == "" {
		return DefaultFonts()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("dial: font not found, using built-in face", "path", path, "error", err)
		return DefaultFonts()
	}
	p, err := ParseFonts(path, data)
	if err != nil {
		slog.Warn("dial: font unreadable, using built-in face", "path", path, "error", err)
		return DefaultFonts()
	}
	return p
}
