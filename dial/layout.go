package dial

import (
	"fmt"
	"math"
	"strconv"
)

// Months is the number of labels around the dial.
const Months = 12

const (
	circleLineWidth = 2  // circle outline width, unscaled
	labelGap        = 2  // month labels sit this far outside the base radius
	glyphPad        = 10 // transparent padding around each glyph tile
)

// Point is a position in supersampled canvas coordinates (y grows down).
type Point struct {
	X, Y float64
}

func (p Point) add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }
func (p Point) mul(k float64) Point { return Point{p.X * k, p.Y * k} }
func (p Point) cross(q Point) float64 { return p.X*q.Y - p.Y*q.X }
func (p Point) length() float64 { return math.Hypot(p.X, p.Y) }
func (p Point) perp() Point { return Point{-p.Y, p.X} }
func (p Point) String() string { return fmt.Sprintf("(%.3f, %.3f)", p.X, p.Y) }

// Glyph is a piece of text centred at At and rotated counter-clockwise by
// Rotation degrees.
type Glyph struct {
	Text     string
	At       Point
	Rotation float64
}

// Geometry is the fully deterministic layout of one dial on the
// supersampled canvas. Everything except the final whole-image rotation is
// captured here.
type Geometry struct {
	Scale      int
	CanvasSize int
	Center     Point

	BaseRadius   float64
	OuterRadius  float64
	InnerRadius  float64
	CircleStroke float64

	MonthFontSize float64
	YearFontSize  float64
	GlyphPad      int
	Labels        [Months]Glyph

	Month   int
	Bearing float64 // degrees
	Axis    Point   // unit vector along the arrow, toward the tip
	Normal  Point   // unit vector perpendicular to Axis

	ArrowStart  Point
	ArrowTip    Point
	BodyEnd     Point
	Body        [4]Point
	Head        [3]Point
	ArrowStroke float64

	// Digits holds the decade-position digit first, then the unit digit,
	// placed at bearing+90° and bearing-90° respectively.
	Digits [2]Glyph
}

// Bearing returns the dial bearing of month m in degrees, counter-clockwise
// from the positive x axis: month 1 at 90° (12 o'clock), then clockwise in
// 30° steps.
func Bearing(m int) float64 {
	return 90 - float64(m-1)*360/Months
}

// YearDigits returns the two digits of year mod 100, zero padded.
func YearDigits(year int) (string, string) {
	yy := year % 100
	if yy < 0 {
		yy += 100
	}
	s := fmt.Sprintf("%02d", yy)
	return s[:1], s[1:]
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }

// Layout computes the dial geometry for year and month.
func Layout(opts Options, year, month int) (Geometry, error) {
	if month < 1 || month > Months {
		return Geometry{}, fmt.Errorf("%w: %d", ErrInvalidMonth, month)
	}
	if err := opts.Validate(); err != nil {
		return Geometry{}, err
	}

	s := float64(opts.Supersample)
	g := Geometry{
		Scale:         opts.Supersample,
		CanvasSize:    opts.ImageSize * opts.Supersample,
		MonthFontSize: opts.FontSize * s,
		YearFontSize:  math.Trunc(opts.FontSize * opts.YearFontScale * s),
		GlyphPad:      glyphPad * opts.Supersample,
		Month:         month,
	}

	if opts.Center == nil {
		half := float64(g.CanvasSize / 2)
		g.Center = Point{half, half}
	} else {
		g.Center = Point{float64(opts.Center.X) * s, float64(opts.Center.Y) * s}
	}
	c := g.Center

	g.BaseRadius = opts.CircleRadius * s
	g.OuterRadius = g.BaseRadius + opts.LineOffset*s
	g.InnerRadius = g.BaseRadius - opts.LineOffset*s
	g.CircleStroke = circleLineWidth * s

	labelRadius := g.BaseRadius + labelGap*s
	for m := 1; m <= Months; m++ {
		theta := radians(Bearing(m))
		at := Point{c.X + labelRadius*math.Cos(theta), c.Y - labelRadius*math.Sin(theta)}
		inward := degrees(math.Atan2(c.Y-at.Y, c.X-at.X))
		g.Labels[m-1] = Glyph{Text: strconv.Itoa(m), At: at, Rotation: -inward - 270}
	}

	g.Bearing = Bearing(month)
	theta := radians(g.Bearing)
	g.Axis = Point{math.Cos(theta), -math.Sin(theta)}
	g.Normal = Point{math.Sin(theta), math.Cos(theta)}

	effective := g.InnerRadius - opts.ArrowMargin*s
	g.ArrowStart = c.sub(g.Axis.mul(effective))
	g.ArrowTip = c.add(g.Axis.mul(effective))
	g.BodyEnd = g.ArrowTip.sub(g.Axis.mul(opts.ArrowHeadLength * s))

	halfWidth := opts.ArrowWidth * s / 2
	g.Body = [4]Point{
		g.ArrowStart.add(g.Normal.mul(halfWidth)),
		g.ArrowStart.sub(g.Normal.mul(halfWidth)),
		g.BodyEnd.sub(g.Normal.mul(halfWidth)),
		g.BodyEnd.add(g.Normal.mul(halfWidth)),
	}
	headHalf := opts.ArrowWidth * s
	g.Head = [3]Point{
		g.ArrowTip,
		g.BodyEnd.add(g.Normal.mul(headHalf)),
		g.BodyEnd.sub(g.Normal.mul(headHalf)),
	}
	g.ArrowStroke = math.Trunc(opts.ArrowWidth * s / 4)

	offset := opts.DigitOffset * s
	left := Point{c.X + offset*math.Cos(theta+math.Pi/2), c.Y - offset*math.Sin(theta+math.Pi/2)}
	right := Point{c.X + offset*math.Cos(theta-math.Pi/2), c.Y - offset*math.Sin(theta-math.Pi/2)}
	decade, unit := YearDigits(year)
	g.Digits = [2]Glyph{
		{Text: decade, At: left, Rotation: g.Bearing - 90},
		{Text: unit, At: right, Rotation: g.Bearing - 90},
	}

	return g, nil
}
