package ports

import (
	"context"
	"time"

	"github.com/kiwiprop/transfer-system/internal/core/domain"
)

// TransferRepository is the narrow spatial-store interface the core depends
// on. Records are only ever inserted or deleted in whole-week batches; there
// is no update operation on purpose.
type TransferRepository interface {
	// InsertWeekBatch persists all records for one week as a single atomic
	// unit. On failure no record of the batch remains visible.
	InsertWeekBatch(ctx context.Context, weekStart time.Time, records []domain.TransferRecord) error

	// DeleteFrom removes every record whose week anchor is on or after
	// weekStart. Used to discard the tail before a resync recomputes it.
	DeleteFrom(ctx context.Context, weekStart time.Time) error

	// QueryByWeek returns up to limit records for the given week, optionally
	// filtered by geometric intersection with region (nil = no filter).
	QueryByWeek(ctx context.Context, weekStart time.Time, region *domain.SpatialRegion, limit int64) ([]domain.TransferRecord, error)

	// DistinctWeeks enumerates the week anchors present in the store, in
	// ascending order.
	DistinctWeeks(ctx context.Context) ([]time.Time, error)

	// CountByWeek counts records for one week, bounds-filtered when region
	// is non-nil.
	CountByWeek(ctx context.Context, weekStart time.Time, region *domain.SpatialRegion) (int64, error)

	// Maintain runs best-effort storage maintenance after a bulk reload.
	// Callers treat a failure as non-fatal.
	Maintain(ctx context.Context) error
}
