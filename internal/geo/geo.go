// Package geo provides the overlay's coordinate parsing, distance math, and
// conversions to simplefeatures geometries for persistence.
//
// All coordinates are in the overlay's local pixel space (relative to the
// video frame's rendered rectangle). Geometry columns are stored in WKB via
// simplefeatures so SQLite backends without spatial awareness can still scan
// them during migrations.
package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/creaselab/overlay/pkg/core"
)

// ErrInvalidCoordinates is returned when a position string cannot be parsed.
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// Point2DFromString parses an "x,y" string (optionally bracketed as "[x,y]")
// into a core.Point2D.
func Point2DFromString(coords string) (core.Point2D, error) {
	coords = strings.TrimSpace(coords)
	if len(coords) >= 2 && coords[0] == '[' && coords[len(coords)-1] == ']' {
		coords = coords[1 : len(coords)-1]
	}
	parts := strings.Split(coords, ",")
	if len(parts) != 2 {
		return core.Point2D{}, ErrInvalidCoordinates
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return core.Point2D{}, ErrInvalidCoordinates
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return core.Point2D{}, ErrInvalidCoordinates
	}
	return core.Point2D{X: x, Y: y}, nil
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b core.Point2D) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// HitPoint reports whether pos lies strictly within radius of p.
func HitPoint(pos, p core.Point2D, radius float64) bool {
	return Distance(pos, p) < radius
}

// HitAnyVertex reports whether pos lies strictly within radius of any vertex
// in the polyline. This is the reference hit-test for lines: vertex proximity,
// not true segment distance.
func HitAnyVertex(pos core.Point2D, points []core.Point2D, radius float64) bool {
	for _, p := range points {
		if Distance(pos, p) < radius {
			return true
		}
	}
	return false
}

// SegmentDistance returns the distance from p to the segment ab.
func SegmentDistance(p, a, b core.Point2D) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return Distance(p, a)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return Distance(p, core.Point2D{X: a.X + t*dx, Y: a.Y + t*dy})
}

// HitPolyline reports whether pos lies strictly within radius of the
// polyline. With segment=false it matches vertices only (reference
// behavior); with segment=true it uses true point-to-segment distance.
func HitPolyline(pos core.Point2D, points []core.Point2D, radius float64, segment bool) bool {
	if !segment {
		return HitAnyVertex(pos, points, radius)
	}
	if len(points) == 1 {
		return HitPoint(pos, points[0], radius)
	}
	for i := 0; i < len(points)-1; i++ {
		if SegmentDistance(pos, points[i], points[i+1]) < radius {
			return true
		}
	}
	return false
}

// PointToGeom converts a core point to a simplefeatures XY point. Only
// non-finite coordinates fail validation; those yield an empty point.
func PointToGeom(p core.Point2D) geom.Point {
	pt, err := geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: p.X, Y: p.Y},
		Type: geom.DimXY,
	})
	if err != nil {
		return geom.Point{}
	}
	return pt
}

// PointFromGeom converts a simplefeatures point back to a core point.
// An empty geometry yields the zero point.
func PointFromGeom(p geom.Point) core.Point2D {
	xy, ok := p.XY()
	if !ok {
		return core.Point2D{}
	}
	return core.Point2D{X: xy.X, Y: xy.Y}
}

// PolylineToGeom converts a point sequence to a simplefeatures LineString.
func PolylineToGeom(points []core.Point2D) (geom.LineString, error) {
	if len(points) < 2 {
		return geom.LineString{}, ErrInvalidCoordinates
	}
	coords := make([]float64, 0, len(points)*2)
	for _, p := range points {
		coords = append(coords, p.X, p.Y)
	}
	seq := geom.NewSequence(coords, geom.DimXY)
	ls, err := geom.NewLineString(seq)
	if err != nil {
		return geom.LineString{}, ErrInvalidCoordinates
	}
	return ls, nil
}

// PolylineFromGeom converts a LineString back to a point sequence.
func PolylineFromGeom(ls geom.LineString) []core.Point2D {
	seq := ls.Coordinates()
	n := seq.Length()
	if n == 0 {
		return nil
	}
	points := make([]core.Point2D, 0, n)
	for i := 0; i < n; i++ {
		xy := seq.GetXY(i)
		points = append(points, core.Point2D{X: xy.X, Y: xy.Y})
	}
	return points
}
