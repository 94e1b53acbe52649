package ports

import "context"

// QueryService serves the two read operations over the accumulated dataset.
// Both return the exact serialized response body (also the unit the response
// cache stores), so a cache hit is returned verbatim.
type QueryService interface {
	// WeekFeatures returns a GeoJSON FeatureCollection of transfers for the
	// ISO-8601 date, optionally filtered by a west,south,east,north bounds
	// string. Malformed input yields a *domain.ValidationError.
	WeekFeatures(ctx context.Context, date, bounds string) ([]byte, error)

	// WeeklyStats returns a JSON mapping from ISO date string to the number
	// of transfers in that week, optionally bounds-filtered.
	WeeklyStats(ctx context.Context, bounds string) ([]byte, error)
}
