package dial

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// painter draws anti-aliased shapes on one canvas, reusing a single
// rasterizer. Coverage accumulates as |winding| clamped to 1, so a hole is
// cut by adding the inner contour with the opposite orientation.
type painter struct {
	dst *image.RGBA
	z   *vector.Rasterizer
}

func newPainter(dst *image.RGBA) *painter {
	b := dst.Bounds()
	return &painter{dst: dst, z: vector.NewRasterizer(b.Dx(), b.Dy())}
}

func (p *painter) begin() {
	b := p.dst.Bounds()
	p.z.Reset(b.Dx(), b.Dy())
}

func (p *painter) fill(c color.Color) {
	p.z.Draw(p.dst, p.dst.Bounds(), image.NewUniform(c), image.Point{})
}

func (p *painter) path(pts []Point) {
	if len(pts) < 3 {
		return
	}
	p.z.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	for _, pt := range pts[1:] {
		p.z.LineTo(float32(pt.X), float32(pt.Y))
	}
	p.z.ClosePath()
}

// ring paints a circle outline of the given width, drawn inward from r.
func (p *painter) ring(center Point, r, width float64, c color.Color) {
	p.begin()
	p.path(circlePath(center, r, false))
	if inner := r - width; inner > 0 {
		p.path(circlePath(center, inner, true))
	}
	p.fill(c)
}

// outline paints the border of a convex polygon, width pixels wide, drawn
// inward from its edges. A polygon too thin for the inset is filled solid.
func (p *painter) outline(pts []Point, width float64, c color.Color) {
	p.begin()
	p.path(pts)
	if inner, ok := insetPolygon(pts, width); ok {
		p.path(reversed(inner))
	}
	p.fill(c)
}

func circlePath(center Point, r float64, clockwise bool) []Point {
	n := int(2 * math.Pi * r / 4)
	if n < 64 {
		n = 64
	}
	pts := make([]Point, n)
	for i := range pts {
		theta := 2 * math.Pi * float64(i) / float64(n)
		if clockwise {
			theta = -theta
		}
		pts[i] = Point{center.X + r*math.Cos(theta), center.Y + r*math.Sin(theta)}
	}
	return pts
}

func signedArea(pts []Point) float64 {
	var a float64
	for i := range pts {
		a += pts[i].cross(pts[(i+1)%len(pts)])
	}
	return a / 2
}

func reversed(pts []Point) []Point {
	out := make([]Point, len(pts))
	for i, pt := range pts {
		out[len(pts)-1-i] = pt
	}
	return out
}

// insetPolygon offsets every edge of a convex polygon inward by d and
// intersects neighbouring offset edges. ok is false when the inset
// collapses or inverts.
func insetPolygon(pts []Point, d float64) ([]Point, bool) {
	n := len(pts)
	area := signedArea(pts)
	if n < 3 || area == 0 || d <= 0 {
		return nil, false
	}
	sign := 1.0
	if area < 0 {
		sign = -1
	}

	type line struct{ p, dir Point }
	lines := make([]line, n)
	for i := range pts {
		dir := pts[(i+1)%n].sub(pts[i])
		l := dir.length()
		if l == 0 {
			return nil, false
		}
		normal := dir.perp().mul(sign / l)
		lines[i] = line{p: pts[i].add(normal.mul(d)), dir: dir}
	}

	inner := make([]Point, n)
	for i := range lines {
		a, b := lines[(i+n-1)%n], lines[i]
		den := a.dir.cross(b.dir)
		if math.Abs(den) < 1e-9 {
			inner[i] = b.p
			continue
		}
		t := b.p.sub(a.p).cross(b.dir) / den
		inner[i] = a.p.add(a.dir.mul(t))
	}

	innerArea := signedArea(inner)
	if innerArea*area <= 0 || math.Abs(innerArea) >= math.Abs(area) {
		return nil, false
	}
	return inner, true
}

// drawGlyph renders text into a padded transparent tile, rotates the tile
// counter-clockwise by g.Rotation degrees with canvas expansion, and
// composites it centred on g.At.
func drawGlyph(dst *image.RGBA, g Glyph, face font.Face, pad int, c color.Color) {
	bounds, _ := font.BoundString(face, g.Text)
	w := (bounds.Max.X - bounds.Min.X).Ceil()
	h := (bounds.Max.Y - bounds.Min.Y).Ceil()
	if w <= 0 || h <= 0 {
		return
	}

	tile := image.NewRGBA(image.Rect(0, 0, w+pad, h+pad))
	d := &font.Drawer{
		Dst:  tile,
		Src:  image.NewUniform(c),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(pad/2) - bounds.Min.X,
			Y: fixed.I(pad/2) - bounds.Min.Y,
		},
	}
	d.DrawString(g.Text)

	rotated := imaging.Rotate(tile, g.Rotation, color.Transparent)
	rb := rotated.Bounds()
	x0 := int(g.At.X - float64(rb.Dx())/2)
	y0 := int(g.At.Y - float64(rb.Dy())/2)
	draw.Draw(dst, image.Rect(x0, y0, x0+rb.Dx(), y0+rb.Dy()), rotated, rb.Min, draw.Over)
}
