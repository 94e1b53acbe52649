package domain

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// Plain signed decimals only; exponents, hex floats, and stray whitespace all
// fail the same way a wrong token count does.
var boundsToken = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// boundsErrMsg matches the upstream service verbatim; every bounds failure
// surfaces the same message regardless of which check tripped.
const boundsErrMsg = "Bounds should be longitudes/latitudes in west,south,east,north order"

// SpatialRegion is a validated bounding-box filter: one axis-aligned
// rectangle, or two when the request crosses the antimeridian. The filter
// region is the union of the rectangles.
type SpatialRegion struct {
	Boxes []orb.Bound
}

// Contains reports whether p falls inside any rectangle of the region.
func (r SpatialRegion) Contains(p orb.Point) bool {
	for _, b := range r.Boxes {
		if b.Contains(p) {
			return true
		}
	}
	return false
}

// Polygons returns the region rectangles as closed GeoJSON-style polygons,
// wound counter-clockwise.
func (r SpatialRegion) Polygons() []orb.Polygon {
	polys := make([]orb.Polygon, 0, len(r.Boxes))
	for _, b := range r.Boxes {
		polys = append(polys, orb.Polygon{orb.Ring{
			{b.Min[0], b.Min[1]},
			{b.Max[0], b.Min[1]},
			{b.Max[0], b.Max[1]},
			{b.Min[0], b.Max[1]},
			{b.Min[0], b.Min[1]},
		}})
	}
	return polys
}

// ParseBounds validates a "west,south,east,north" string of signed decimals
// and returns the resulting region. An empty string means no spatial filter
// and yields (nil, nil). When west > east the box wraps the antimeridian and
// splits into two rectangles meeting at ±180.
func ParseBounds(s string) (*SpatialRegion, error) {
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, NewValidationError(boundsErrMsg)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		if !boundsToken.MatchString(p) {
			return nil, NewValidationError(boundsErrMsg)
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, NewValidationError(boundsErrMsg)
		}
		vals[i] = v
	}

	w, s2, e, n := vals[0], vals[1], vals[2], vals[3]
	if w < -180 || w > 180 || e < -180 || e > 180 {
		return nil, NewValidationError(boundsErrMsg)
	}
	if s2 < -90 || s2 > 90 || n < -90 || n > 90 || s2 > n {
		return nil, NewValidationError(boundsErrMsg)
	}

	if w > e {
		return &SpatialRegion{Boxes: []orb.Bound{
			{Min: orb.Point{w, s2}, Max: orb.Point{180, n}},
			{Min: orb.Point{-180, s2}, Max: orb.Point{e, n}},
		}}, nil
	}
	return &SpatialRegion{Boxes: []orb.Bound{
		{Min: orb.Point{w, s2}, Max: orb.Point{e, n}},
	}}, nil
}
