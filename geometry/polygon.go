// Package geometry implements the planar polygon predicates used to match
// detection bounding boxes against user-drawn zones.
//
// Zones are simple polygons (convex or concave, no self-intersection) drawn
// by users, so every predicate here works on arbitrary simple rings rather
// than assuming convexity. All predicates treat boundary contact as inside.
package geometry

import (
	"fmt"
	"math"
	"strings"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// ErrInvalidGeometry is returned when a vertex list cannot form a usable
// polygon. Callers generally treat such zones as inactive rather than
// failing the surrounding operation.
var ErrInvalidGeometry = errors.New("invalid geometry")

const eps = 1e-9

// Polygon is an immutable simple polygon. The vertex ring is stored open
// (the closing edge back to the first vertex is implicit).
type Polygon struct {
	verts []r2.Point
}

// NewPolygon builds a polygon from an ordered vertex ring. A closed ring
// (last vertex repeating the first) is accepted and normalized to open form.
// Returns an error wrapping ErrInvalidGeometry when the ring has fewer than
// three distinct vertices or encloses no area.
func NewPolygon(verts []r2.Point) (*Polygon, error) {
	vs := make([]r2.Point, len(verts))
	copy(vs, verts)
	if n := len(vs); n > 1 && vs[0] == vs[n-1] {
		vs = vs[:n-1]
	}
	if n := countDistinct(vs); n < 3 {
		return nil, errors.Wrapf(ErrInvalidGeometry, "need at least 3 distinct vertices, got %d", n)
	}
	p := &Polygon{verts: vs}
	if p.Area() < eps {
		return nil, errors.Wrap(ErrInvalidGeometry, "polygon encloses no area")
	}
	return p, nil
}

// NewBox builds an axis-aligned rectangle with its top-left corner at (x, y).
// Returns an error wrapping ErrInvalidGeometry for non-positive dimensions.
func NewBox(x, y, width, height float64) (*Polygon, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Wrapf(ErrInvalidGeometry, "box dimensions must be positive, got %.4fx%.4f", width, height)
	}
	return &Polygon{verts: []r2.Point{
		{X: x, Y: y},
		{X: x + width, Y: y},
		{X: x + width, Y: y + height},
		{X: x, Y: y + height},
	}}, nil
}

// Vertices returns a copy of the open vertex ring.
func (p *Polygon) Vertices() []r2.Point {
	out := make([]r2.Point, len(p.verts))
	copy(out, p.verts)
	return out
}

// Area returns the enclosed area via the shoelace formula.
func (p *Polygon) Area() float64 {
	var sum float64
	for i, a := range p.verts {
		b := p.verts[(i+1)%len(p.verts)]
		sum += a.X*b.Y - b.X*a.Y
	}
	return math.Abs(sum) / 2
}

// Bounds returns the axis-aligned bounding rectangle of the polygon.
func (p *Polygon) Bounds() (min, max r2.Point) {
	min = r2.Point{X: math.Inf(1), Y: math.Inf(1)}
	max = r2.Point{X: math.Inf(-1), Y: math.Inf(-1)}
	for _, v := range p.verts {
		min.X = math.Min(min.X, v.X)
		min.Y = math.Min(min.Y, v.Y)
		max.X = math.Max(max.X, v.X)
		max.Y = math.Max(max.Y, v.Y)
	}
	return min, max
}

// Scale returns a new polygon with every vertex multiplied by (sx, sy).
// It is the normalized-to-pixel mapping: zones are stored in [0, 1]
// coordinates and scaled by the frame dimensions before matching.
func (p *Polygon) Scale(sx, sy float64) *Polygon {
	out := make([]r2.Point, len(p.verts))
	for i, v := range p.verts {
		out[i] = r2.Point{X: v.X * sx, Y: v.Y * sy}
	}
	return &Polygon{verts: out}
}

// ContainsPoint reports whether pt lies inside the polygon. Points on the
// boundary count as inside.
func (p *Polygon) ContainsPoint(pt r2.Point) bool {
	for i, a := range p.verts {
		b := p.verts[(i+1)%len(p.verts)]
		if onSegment(a, b, pt) {
			return true
		}
	}
	// Even-odd ray cast toward +X.
	inside := false
	for i, a := range p.verts {
		b := p.verts[(i+1)%len(p.verts)]
		if (a.Y > pt.Y) != (b.Y > pt.Y) {
			x := a.X + (pt.Y-a.Y)/(b.Y-a.Y)*(b.X-a.X)
			if pt.X < x {
				inside = !inside
			}
		}
	}
	return inside
}

// Intersects reports whether the two polygons share at least one point.
// Boundary contact counts as an intersection.
func (p *Polygon) Intersects(other *Polygon) bool {
	pMin, pMax := p.Bounds()
	oMin, oMax := other.Bounds()
	if pMax.X < oMin.X || oMax.X < pMin.X || pMax.Y < oMin.Y || oMax.Y < pMin.Y {
		return false
	}
	for i, a1 := range p.verts {
		a2 := p.verts[(i+1)%len(p.verts)]
		for j, b1 := range other.verts {
			b2 := other.verts[(j+1)%len(other.verts)]
			if segmentsIntersect(a1, a2, b1, b2) {
				return true
			}
		}
	}
	// No edge contact: one polygon may still sit entirely inside the other.
	return p.ContainsPoint(other.verts[0]) || other.ContainsPoint(p.verts[0])
}

// Contains reports whether other lies entirely within the polygon. Edges of
// other may touch the boundary, but no edge may cross it.
func (p *Polygon) Contains(other *Polygon) bool {
	for _, v := range other.verts {
		if !p.ContainsPoint(v) {
			return false
		}
	}
	for i, a1 := range p.verts {
		a2 := p.verts[(i+1)%len(p.verts)]
		for j, b1 := range other.verts {
			b2 := other.verts[(j+1)%len(other.verts)]
			if segmentsCross(a1, a2, b1, b2) {
				return false
			}
		}
	}
	return true
}

// String renders the vertex ring for logs and error messages.
func (p *Polygon) String() string {
	parts := make([]string, len(p.verts))
	for i, v := range p.verts {
		parts[i] = fmt.Sprintf("(%.2f,%.2f)", v.X, v.Y)
	}
	return "polygon[" + strings.Join(parts, " ") + "]"
}

func countDistinct(verts []r2.Point) int {
	seen := make(map[r2.Point]struct{}, len(verts))
	for _, v := range verts {
		seen[v] = struct{}{}
	}
	return len(seen)
}

// orientation returns +1 when a->b->c turns counterclockwise, -1 when
// clockwise, and 0 when the points are collinear within tolerance.
func orientation(a, b, c r2.Point) int {
	cross := (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
	switch {
	case cross > eps:
		return 1
	case cross < -eps:
		return -1
	default:
		return 0
	}
}

// onSegment reports whether p lies on the closed segment ab.
func onSegment(a, b, p r2.Point) bool {
	if orientation(a, b, p) != 0 {
		return false
	}
	return p.X >= math.Min(a.X, b.X)-eps && p.X <= math.Max(a.X, b.X)+eps &&
		p.Y >= math.Min(a.Y, b.Y)-eps && p.Y <= math.Max(a.Y, b.Y)+eps
}

// segmentsIntersect reports whether the closed segments a1a2 and b1b2 share
// any point, including endpoint contact and collinear overlap.
func segmentsIntersect(a1, a2, b1, b2 r2.Point) bool {
	o1 := orientation(a1, a2, b1)
	o2 := orientation(a1, a2, b2)
	o3 := orientation(b1, b2, a1)
	o4 := orientation(b1, b2, a2)
	if o1 != o2 && o3 != o4 {
		return true
	}
	return (o1 == 0 && onSegment(a1, a2, b1)) ||
		(o2 == 0 && onSegment(a1, a2, b2)) ||
		(o3 == 0 && onSegment(b1, b2, a1)) ||
		(o4 == 0 && onSegment(b1, b2, a2))
}

// segmentsCross reports a proper crossing: the segments intersect at a
// single interior point of both. Touching at an endpoint or running
// collinearly does not count.
func segmentsCross(a1, a2, b1, b2 r2.Point) bool {
	o1 := orientation(a1, a2, b1)
	o2 := orientation(a1, a2, b2)
	o3 := orientation(b1, b2, a1)
	o4 := orientation(b1, b2, a2)
	return o1 != 0 && o2 != 0 && o3 != 0 && o4 != 0 && o1 != o2 && o3 != o4
}
