package dial

import (
	"errors"
	"image"
	"math"
	"strconv"
	"testing"
)

const eps = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestBearing(t *testing.T) {
	for m := 1; m <= Months; m++ {
		want := 90 - float64(m-1)*30
		if got := Bearing(m); got != want {
			t.Errorf("Bearing(%d) = %v, want %v", m, got, want)
		}
	}
	if span := Bearing(1) - Bearing(Months) + 30; span != 360 {
		t.Errorf("12 bearings span %v degrees, want 360", span)
	}
	for m := 2; m <= Months; m++ {
		if d := Bearing(m-1) - Bearing(m); d != 30 {
			t.Errorf("spacing between month %d and %d = %v, want 30", m-1, m, d)
		}
	}
}

func TestYearDigits(t *testing.T) {
	tests := []struct {
		year        int
		decade, one string
	}{
		{2021, "2", "1"},
		{2000, "0", "0"},
		{1999, "9", "9"},
		{2105, "0", "5"},
		{7, "0", "7"},
	}
	for _, tt := range tests {
		d, u := YearDigits(tt.year)
		if d != tt.decade || u != tt.one {
			t.Errorf("YearDigits(%d) = %q,%q, want %q,%q", tt.year, d, u, tt.decade, tt.one)
		}
	}
}

func TestLayoutInvalidMonth(t *testing.T) {
	for _, m := range []int{0, 13, -1} {
		_, err := Layout(DefaultOptions(), 2021, m)
		if !errors.Is(err, ErrInvalidMonth) {
			t.Errorf("Layout(month=%d) error = %v, want ErrInvalidMonth", m, err)
		}
	}
}

func TestLayoutInvalidOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.LineOffset = opts.CircleRadius
	if _, err := Layout(opts, 2021, 1); !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("error = %v, want ErrInvalidOptions", err)
	}
}

func TestLayoutCircles(t *testing.T) {
	g, err := Layout(DefaultOptions(), 2021, 2)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if g.CanvasSize != 1200 || g.Scale != 4 {
		t.Fatalf("canvas = %d at %dx, want 1200 at 4x", g.CanvasSize, g.Scale)
	}
	if g.Center != (Point{600, 600}) {
		t.Errorf("center = %v, want (600, 600)", g.Center)
	}
	if g.OuterRadius != 268 || g.InnerRadius != 172 {
		t.Errorf("radii = %v/%v, want 268/172", g.OuterRadius, g.InnerRadius)
	}
	if g.YearFontSize != 120 || g.MonthFontSize != 80 {
		t.Errorf("font sizes = %v/%v, want 80/120", g.MonthFontSize, g.YearFontSize)
	}
}

func TestLayoutLabels(t *testing.T) {
	g, err := Layout(DefaultOptions(), 2021, 1)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	labelRadius := g.BaseRadius + labelGap*float64(g.Scale)
	for i, label := range g.Labels {
		m := i + 1
		if label.Text != strconv.Itoa(m) {
			t.Errorf("label %d text = %q", m, label.Text)
		}
		if r := label.At.sub(g.Center).length(); !near(r, labelRadius) {
			t.Errorf("label %d radius = %v, want %v", m, r, labelRadius)
		}
		theta := radians(Bearing(m))
		want := Point{g.Center.X + labelRadius*math.Cos(theta), g.Center.Y - labelRadius*math.Sin(theta)}
		if !near(label.At.X, want.X) || !near(label.At.Y, want.Y) {
			t.Errorf("label %d at %v, want %v", m, label.At, want)
		}
	}

	// Month 1 sits at 12 o'clock with its glyph upright.
	top := g.Labels[0]
	if !near(top.At.X, g.Center.X) || top.At.Y >= g.Center.Y {
		t.Errorf("month 1 at %v, want straight above centre", top.At)
	}
	if d := math.Mod(math.Abs(top.Rotation), 360); !near(math.Min(d, 360-d), 0) {
		t.Errorf("month 1 rotation = %v, want upright", top.Rotation)
	}
	// Month 4 sits at 3 o'clock.
	if three := g.Labels[3]; !near(three.At.Y, g.Center.Y) || three.At.X <= g.Center.X {
		t.Errorf("month 4 at %v, want straight right of centre", three.At)
	}
}

func TestLayoutArrow(t *testing.T) {
	opts := DefaultOptions()
	for m := 1; m <= Months; m++ {
		g, err := Layout(opts, 2021, m)
		if err != nil {
			t.Fatalf("Layout(%d): %v", m, err)
		}
		if g.Bearing != Bearing(m) {
			t.Errorf("month %d bearing = %v", m, g.Bearing)
		}
		if !near(g.Axis.length(), 1) || !near(g.Normal.length(), 1) {
			t.Errorf("month %d axis/normal not unit", m)
		}
		if d := g.Axis.X*g.Normal.X + g.Axis.Y*g.Normal.Y; math.Abs(d) > eps {
			t.Errorf("month %d axis not perpendicular to normal (dot %v)", m, d)
		}

		effective := g.InnerRadius - opts.ArrowMargin*float64(g.Scale)
		if r := g.ArrowTip.sub(g.Center).length(); !near(r, effective) {
			t.Errorf("month %d tip radius = %v, want %v", m, r, effective)
		}
		if r := g.ArrowStart.sub(g.Center).length(); !near(r, effective) {
			t.Errorf("month %d start radius = %v, want %v", m, r, effective)
		}

		// The tip points toward the month's label.
		label := g.Labels[m-1].At.sub(g.Center)
		toTip := g.ArrowTip.sub(g.Center)
		if cos := (label.X*toTip.X + label.Y*toTip.Y) / (label.length() * toTip.length()); !near(cos, 1) {
			t.Errorf("month %d arrow not aligned with label (cos %v)", m, cos)
		}

		head := opts.ArrowHeadLength * float64(g.Scale)
		if l := g.ArrowTip.sub(g.BodyEnd).length(); !near(l, head) {
			t.Errorf("month %d head length = %v, want %v", m, l, head)
		}
		bodyWidth := g.Body[0].sub(g.Body[1]).length()
		headWidth := g.Head[1].sub(g.Head[2]).length()
		if !near(headWidth, 2*bodyWidth) {
			t.Errorf("month %d head width %v, want twice body width %v", m, headWidth, bodyWidth)
		}
		if g.ArrowStroke != 10 {
			t.Errorf("arrow stroke = %v, want 10", g.ArrowStroke)
		}
	}
}

func TestLayoutDigits(t *testing.T) {
	opts := DefaultOptions()
	g, err := Layout(opts, 2021, 4) // bearing 0°, arrow points right
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if g.Digits[0].Text != "2" || g.Digits[1].Text != "1" {
		t.Fatalf("digits = %q %q, want 2 1", g.Digits[0].Text, g.Digits[1].Text)
	}
	offset := opts.DigitOffset * float64(g.Scale)
	// bearing+90 is straight up on screen, bearing-90 straight down.
	if !near(g.Digits[0].At.X, g.Center.X) || !near(g.Digits[0].At.Y, g.Center.Y-offset) {
		t.Errorf("decade digit at %v", g.Digits[0].At)
	}
	if !near(g.Digits[1].At.X, g.Center.X) || !near(g.Digits[1].At.Y, g.Center.Y+offset) {
		t.Errorf("unit digit at %v", g.Digits[1].At)
	}
	for _, d := range g.Digits {
		if d.Rotation != -90 {
			t.Errorf("digit rotation = %v, want -90", d.Rotation)
		}
	}
}

func TestLayoutCustomCenter(t *testing.T) {
	opts := DefaultOptions()
	opts.Center = &image.Point{X: 100, Y: 120}
	g, err := Layout(opts, 2021, 1)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if g.Center != (Point{400, 480}) {
		t.Errorf("center = %v, want (400, 480)", g.Center)
	}
}

func TestLayoutDeterministic(t *testing.T) {
	a, err := Layout(DefaultOptions(), 2023, 7)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Layout(DefaultOptions(), 2023, 7)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("Layout not deterministic for identical inputs")
	}
}
