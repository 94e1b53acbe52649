package service

import (
	"iter"
	"regexp"
	"sort"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/kiwiprop/transfer-system/internal/core/domain"
)

// Feed property keys on each changeset feature.
const (
	propChange  = "__change__"
	propTitleNo = "title_no"
	propOwners  = "owners"

	changeInsert = "INSERT"
	changeDelete = "DELETE"
)

// Owner classification patterns, case-insensitive whole-word. Checked in
// priority order: government wins over company, company over private.
// "Borough Council Incorporated" is government, not company.
var (
	ownerGovtRe    = regexp.MustCompile(`(?i)\b(Her Majesty The Queen|Council)\b`)
	ownerCompanyRe = regexp.MustCompile(`(?i)\b(Limited|Incorporated)\b`)
)

// ClassifyOwner derives the ownership class from the free-text owners field.
// Pure function; the result is stored once and never re-derived.
func ClassifyOwner(owners string) domain.OwnerType {
	switch {
	case ownerGovtRe.MatchString(owners):
		return domain.OwnerGovernment
	case ownerCompanyRe.MatchString(owners):
		return domain.OwnerCompany
	default:
		return domain.OwnerPrivate
	}
}

// ClassifyFeature maps one raw changeset feature to a TransferRecord tagged
// with its week anchor, or ok=false when the feature carries no independent
// information (DELETE changes, geometry-less features).
func ClassifyFeature(f *geojson.Feature, weekStart time.Time) (domain.TransferRecord, bool) {
	change := f.Properties.MustString(propChange, "")

	// Title splits and merges surface redundantly as INSERTs, so DELETEs
	// are skipped outright.
	if change == changeDelete {
		return domain.TransferRecord{}, false
	}
	if f.Geometry == nil {
		return domain.TransferRecord{}, false
	}

	action := domain.ActionExisting
	if change == changeInsert {
		action = domain.ActionNew
	}

	owners := f.Properties.MustString(propOwners, "")
	return domain.TransferRecord{
		TitleNo:   f.Properties.MustString(propTitleNo, ""),
		Location:  RepresentativePoint(f.Geometry),
		Action:    action,
		Owners:    owners,
		OwnerType: ClassifyOwner(owners),
		WeekStart: weekStart,
	}, true
}

// ClassifyAll lazily yields the records for one week's feature list. The
// sequence is finite and restartable; every range loop re-walks the features
// from the start with no shared iteration state.
func ClassifyAll(features []*geojson.Feature, weekStart time.Time) iter.Seq[domain.TransferRecord] {
	return func(yield func(domain.TransferRecord) bool) {
		for _, f := range features {
			rec, ok := ClassifyFeature(f, weekStart)
			if !ok {
				continue
			}
			if !yield(rec) {
				return
			}
		}
	}
}

// RepresentativePoint returns a point guaranteed to lie inside the geometry.
// For concave parcels the centroid can fall outside the boundary, which would
// file the transfer in the wrong place, so the centroid is only used when it
// is actually interior.
func RepresentativePoint(g orb.Geometry) orb.Point {
	switch geom := g.(type) {
	case orb.Point:
		return geom
	case orb.MultiPoint:
		if len(geom) > 0 {
			return geom[0]
		}
	case orb.Polygon:
		return polygonInteriorPoint(geom)
	case orb.MultiPolygon:
		if len(geom) > 0 {
			return polygonInteriorPoint(largestPolygon(geom))
		}
	case orb.LineString:
		if len(geom) > 0 {
			return geom[len(geom)/2]
		}
	}
	return g.Bound().Center()
}

// largestPolygon picks the member with the greatest absolute area.
func largestPolygon(mp orb.MultiPolygon) orb.Polygon {
	best := mp[0]
	bestArea := 0.0
	for _, p := range mp {
		a := planar.Area(p)
		if a < 0 {
			a = -a
		}
		if a > bestArea {
			bestArea = a
			best = p
		}
	}
	return best
}

// polygonInteriorPoint returns the centroid when it is inside the polygon,
// otherwise the midpoint of the widest interior span on a horizontal scanline
// through the polygon's vertical center.
func polygonInteriorPoint(p orb.Polygon) orb.Point {
	if len(p) == 0 || len(p[0]) == 0 {
		return orb.Point{}
	}

	centroid, _ := planar.CentroidArea(p)
	if planar.PolygonContains(p, centroid) {
		return centroid
	}

	b := p.Bound()
	y := (b.Min[1] + b.Max[1]) / 2

	xs := scanlineCrossings(p, y)
	// A scanline through a vertex can produce an odd crossing count; nudge
	// off the vertex and retry.
	if len(xs)%2 != 0 {
		y += (b.Max[1] - b.Min[1]) * 1e-7
		xs = scanlineCrossings(p, y)
	}
	if len(xs) < 2 {
		return centroid
	}

	sort.Float64s(xs)
	bestMid, bestWidth := centroid[0], -1.0
	for i := 0; i+1 < len(xs); i += 2 {
		if w := xs[i+1] - xs[i]; w > bestWidth {
			bestWidth = w
			bestMid = (xs[i] + xs[i+1]) / 2
		}
	}
	return orb.Point{bestMid, y}
}

// scanlineCrossings collects the x coordinates where the horizontal line at y
// crosses the polygon's rings (outer ring and holes alike).
func scanlineCrossings(p orb.Polygon, y float64) []float64 {
	var xs []float64
	for _, ring := range p {
		for i := 0; i+1 < len(ring); i++ {
			a, b := ring[i], ring[i+1]
			if (a[1] <= y) == (b[1] <= y) {
				continue
			}
			x := a[0] + (y-a[1])*(b[0]-a[0])/(b[1]-a[1])
			xs = append(xs, x)
		}
	}
	return xs
}
