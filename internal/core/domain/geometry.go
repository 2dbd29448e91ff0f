package domain

import (
	"fmt"
	"math"
	"sort"
)

type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

func checkPoints(points []Point) error {
	for i, p := range points {
		if !finite(p.X) || !finite(p.Y) {
			return fmt.Errorf("point %d has non-finite coordinates", i)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

type BBox struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	W float64 `json:"w" yaml:"w"`
	H float64 `json:"h" yaml:"h"`
}

func (b BBox) Check() error {
	if !finite(b.X) || !finite(b.Y) || !finite(b.W) || !finite(b.H) {
		return fmt.Errorf("bbox has non-finite values")
	}
	if b.W < 0 || b.H < 0 {
		return fmt.Errorf("bbox has negative size %gx%g", b.W, b.H)
	}
	return nil
}

func (b BBox) Area() float64 { return b.W * b.H }

// IoU is the area overlap ratio of two axis-aligned boxes.
func (b BBox) IoU(other BBox) float64 {
	ix := math.Min(b.X+b.W, other.X+other.W) - math.Max(b.X, other.X)
	iy := math.Min(b.Y+b.H, other.Y+other.H) - math.Max(b.Y, other.Y)
	if ix <= 0 || iy <= 0 {
		return 0
	}
	inter := ix * iy
	union := b.Area() + other.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Bounds returns the tightest box enclosing points; zero box for no points.
func Bounds(points []Point) BBox {
	if len(points) == 0 {
		return BBox{}
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return BBox{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// PolygonArea uses the shoelace formula; orientation is ignored.
func PolygonArea(points []Point) float64 {
	if len(points) < 3 {
		return 0
	}
	var sum float64
	for i := range points {
		j := (i + 1) % len(points)
		sum += points[i].X*points[j].Y - points[j].X*points[i].Y
	}
	return math.Abs(sum) / 2
}

// Mask is a row-major run-length encoded binary region placed at (X, Y).
// Counts alternate background and foreground runs, starting with background.
type Mask struct {
	X      int   `json:"x,omitempty" yaml:"x,omitempty"`
	Y      int   `json:"y,omitempty" yaml:"y,omitempty"`
	Width  int   `json:"width" yaml:"width"`
	Height int   `json:"height" yaml:"height"`
	Counts []int `json:"counts" yaml:"counts"`
}

func (m Mask) Check() error {
	if m.Width <= 0 || m.Height <= 0 {
		return fmt.Errorf("mask has invalid size %dx%d", m.Width, m.Height)
	}
	total := 0
	for i, c := range m.Counts {
		if c < 0 {
			return fmt.Errorf("mask run %d is negative", i)
		}
		total += c
	}
	if total != m.Width*m.Height {
		return fmt.Errorf("mask runs cover %d pixels, expected %d", total, m.Width*m.Height)
	}
	return nil
}

// Area is the number of foreground pixels.
func (m Mask) Area() int {
	total := 0
	for i := 1; i < len(m.Counts); i += 2 {
		total += m.Counts[i]
	}
	return total
}

// Shape is a planar region sampled along horizontal lines. Polygons and masks
// share it so that either can be scored against the other.
type Shape interface {
	Bounds() BBox
	Area() float64
	// intervals appends the sorted x-intervals covered at height y.
	intervals(dst []Interval, y float64) []Interval
}

// Interval is a closed-open range [X0, X1) on one horizontal line.
type Interval struct {
	X0, X1 float64
}

type polygonShape struct {
	points []Point
	bounds BBox
	area   float64
}

// NewPolygonShape fills points with the even-odd rule.
func NewPolygonShape(points []Point) Shape {
	return &polygonShape{points: points, bounds: Bounds(points), area: PolygonArea(points)}
}

func (p *polygonShape) Bounds() BBox  { return p.bounds }
func (p *polygonShape) Area() float64 { return p.area }

func (p *polygonShape) intervals(dst []Interval, y float64) []Interval {
	xs := make([]float64, 0, 4)
	for i := range p.points {
		a, b := p.points[i], p.points[(i+1)%len(p.points)]
		if (a.Y <= y) == (b.Y <= y) {
			continue
		}
		xs = append(xs, a.X+(y-a.Y)*(b.X-a.X)/(b.Y-a.Y))
	}
	sort.Float64s(xs)
	for k := 0; k+1 < len(xs); k += 2 {
		if xs[k+1] > xs[k] {
			dst = append(dst, Interval{X0: xs[k], X1: xs[k+1]})
		}
	}
	return dst
}

type maskShape struct {
	mask Mask
	// runs holds foreground runs as [start, end) offsets in row-major order.
	runs [][2]int
	area int
}

func NewMaskShape(m Mask) Shape {
	s := &maskShape{mask: m}
	pos := 0
	for i, run := range m.Counts {
		if i%2 == 1 && run > 0 {
			s.runs = append(s.runs, [2]int{pos, pos + run})
			s.area += run
		}
		pos += run
	}
	return s
}

func (s *maskShape) Bounds() BBox {
	return BBox{X: float64(s.mask.X), Y: float64(s.mask.Y), W: float64(s.mask.Width), H: float64(s.mask.Height)}
}

func (s *maskShape) Area() float64 { return float64(s.area) }

func (s *maskShape) intervals(dst []Interval, y float64) []Interval {
	row := int(math.Floor(y)) - s.mask.Y
	if row < 0 || row >= s.mask.Height {
		return dst
	}
	lo, hi := row*s.mask.Width, (row+1)*s.mask.Width
	first := sort.Search(len(s.runs), func(i int) bool { return s.runs[i][1] > lo })
	for _, run := range s.runs[first:] {
		if run[0] >= hi {
			break
		}
		x0 := max(run[0], lo) - lo + s.mask.X
		x1 := min(run[1], hi) - lo + s.mask.X
		dst = append(dst, Interval{X0: float64(x0), X1: float64(x1)})
	}
	return dst
}

const (
	// minShapeSamples keeps sub-pixel shapes from vanishing between samples.
	minShapeSamples = 32
	// maxShapeSamples bounds the work per pair regardless of shape height.
	maxShapeSamples = 4096
)

// ShapeIoU is the area overlap ratio of two shapes. Areas are exact; the
// intersection is integrated with the midpoint rule over the rows both
// shapes cover, which is exact for masks and for polygon edges between
// samples.
func ShapeIoU(a, b Shape) float64 {
	areaA, areaB := a.Area(), b.Area()
	if areaA <= 0 || areaB <= 0 {
		return 0
	}
	ab, bb := a.Bounds(), b.Bounds()
	if math.Min(ab.X+ab.W, bb.X+bb.W) <= math.Max(ab.X, bb.X) {
		return 0
	}
	y0 := math.Max(ab.Y, bb.Y)
	y1 := math.Min(ab.Y+ab.H, bb.Y+bb.H)
	if y1 <= y0 {
		return 0
	}

	h := y1 - y0
	n := maxShapeSamples
	if h < maxShapeSamples {
		// A whole number of samples per row keeps mask rows exact.
		rows := int(math.Ceil(h))
		n = min(rows*max(1, (minShapeSamples+rows-1)/rows), maxShapeSamples)
	}
	step := h / float64(n)

	var bufA, bufB []Interval
	var covered float64
	for k := range n {
		y := y0 + (float64(k)+0.5)*step
		bufA = a.intervals(bufA[:0], y)
		if len(bufA) == 0 {
			continue
		}
		bufB = b.intervals(bufB[:0], y)
		covered += overlapLength(bufA, bufB)
	}

	inter := math.Min(covered*step, math.Min(areaA, areaB))
	union := areaA + areaB - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func overlapLength(a, b []Interval) float64 {
	var total float64
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		lo := math.Max(a[i].X0, b[j].X0)
		hi := math.Min(a[i].X1, b[j].X1)
		if hi > lo {
			total += hi - lo
		}
		if a[i].X1 < b[j].X1 {
			i++
		} else {
			j++
		}
	}
	return total
}
