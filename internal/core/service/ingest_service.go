package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/kiwiprop/transfer-system/internal/api/metrics"
	"github.com/kiwiprop/transfer-system/internal/core/domain"
	"github.com/kiwiprop/transfer-system/internal/core/ports"
)

const defaultFetchTimeout = 2 * time.Minute

// IngestionCoordinator drives a full resync run: delete the tail from the
// anchor week, then fetch, classify, and commit one week at a time in
// calendar order. Weeks are strictly sequential; each week's resync
// correctness depends on the prior week's commit having landed.
type IngestionCoordinator struct {
	fetcher      ports.ChangesetFetcher
	repo         ports.TransferRepository
	cache        ports.ResponseCache
	fetchTimeout time.Duration
	now          func() time.Time
	log          zerolog.Logger
}

// NewIngestionCoordinator wires a coordinator. A non-positive fetchTimeout
// falls back to the default bound; no fetch may block indefinitely.
func NewIngestionCoordinator(
	fetcher ports.ChangesetFetcher,
	repo ports.TransferRepository,
	cache ports.ResponseCache,
	fetchTimeout time.Duration,
	log zerolog.Logger,
) *IngestionCoordinator {
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}
	return &IngestionCoordinator{
		fetcher:      fetcher,
		repo:         repo,
		cache:        cache,
		fetchTimeout: fetchTimeout,
		now:          time.Now,
		log:          log,
	}
}

// Run resyncs everything from the Saturday on/before start up to now.
//
// The run is idempotent: the tail from the anchor forward is deleted before
// being recomputed, so repeated runs against an unchanged feed converge to
// the same record set. A fetch or persistence failure aborts the run
// immediately; weeks committed before the failure stay committed and the
// response cache is left untouched (it is only cleared once the dataset has
// actually changed in full).
func (c *IngestionCoordinator) Run(ctx context.Context, start time.Time) error {
	anchor := domain.WeekAnchor(start)

	c.log.Info().
		Time("start", start).
		Time("anchor", anchor).
		Msg("ingestion run starting, discarding tail")

	if err := c.repo.DeleteFrom(ctx, anchor); err != nil {
		return fmt.Errorf("ingest: delete tail from %s: %w", anchor.Format("2006-01-02"), err)
	}

	windowStart := start.UTC()
	windowEnd := windowStart.AddDate(0, 0, 7)

	for windowEnd.Before(c.now().UTC()) {
		// Cancellation is only honored between weeks, never mid-commit.
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		weekStart := domain.WeekAnchor(windowStart)
		if err := c.ingestWeek(ctx, weekStart, windowStart, windowEnd); err != nil {
			return err
		}

		windowStart = windowStart.AddDate(0, 0, 7)
		windowEnd = windowStart.AddDate(0, 0, 7)
	}

	// Every cached response predates the reload and is stale now.
	c.cache.Clear(ctx)

	if err := c.repo.Maintain(ctx); err != nil {
		c.log.Warn().Err(err).Msg("storage maintenance failed, continuing")
	}

	c.log.Info().Msg("ingestion run complete")
	return nil
}

// ingestWeek fetches, classifies, and commits one week as a single atomic
// unit of persistence.
func (c *IngestionCoordinator) ingestWeek(ctx context.Context, weekStart, from, to time.Time) error {
	fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	features, err := c.fetcher.FetchWindow(fetchCtx, from, to)
	if err != nil {
		return fmt.Errorf("ingest: week %s: %w", weekStart.Format("2006-01-02"), err)
	}

	var records []domain.TransferRecord
	for rec := range ClassifyAll(features, weekStart) {
		records = append(records, rec)
	}

	if err := c.repo.InsertWeekBatch(ctx, weekStart, records); err != nil {
		return fmt.Errorf("ingest: commit week %s: %w", weekStart.Format("2006-01-02"), err)
	}

	metrics.IngestWeeksTotal.Inc()
	for _, rec := range records {
		metrics.IngestRecordsTotal.WithLabelValues(string(rec.OwnerType)).Inc()
	}

	c.log.Info().
		Time("week_start", weekStart).
		Int("features", len(features)).
		Int("records", len(records)).
		Msg("week committed")

	return nil
}
