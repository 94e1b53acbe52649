package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"

	"github.com/kiwiprop/transfer-system/internal/api/metrics"
	"github.com/kiwiprop/transfer-system/internal/core/domain"
	"github.com/kiwiprop/transfer-system/internal/core/ports"
)

// maxWeekFeatures bounds the response size of a by-week query. Fixed, no
// pagination.
const maxWeekFeatures = 2000

const dateLayout = "2006-01-02"

type queryService struct {
	repo  ports.TransferRepository
	cache ports.ResponseCache
	log   zerolog.Logger
}

// NewQueryService returns a QueryService backed by the given store and
// response cache. The query path is stateless and safe for any number of
// concurrent callers; duplicate cache fills on concurrent misses are
// idempotent and last-write-wins.
func NewQueryService(repo ports.TransferRepository, cache ports.ResponseCache, log zerolog.Logger) ports.QueryService {
	return &queryService{repo: repo, cache: cache, log: log}
}

// WeekFeatures serves GET /week/{date}[/{bounds}].
func (s *queryService) WeekFeatures(ctx context.Context, date, bounds string) ([]byte, error) {
	metrics.QueriesTotal.WithLabelValues("week").Inc()

	week, err := time.ParseInLocation(dateLayout, date, time.UTC)
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}
	region, err := domain.ParseBounds(bounds)
	if err != nil {
		return nil, err
	}

	key := ports.CacheKey("week", date, bounds)
	if body, ok := s.cache.Get(ctx, key); ok {
		metrics.CacheRequestsTotal.WithLabelValues("hit").Inc()
		return body, nil
	}
	metrics.CacheRequestsTotal.WithLabelValues("miss").Inc()

	records, err := s.repo.QueryByWeek(ctx, week, region, maxWeekFeatures)
	if err != nil {
		return nil, fmt.Errorf("query week %s: %w", date, err)
	}

	fc := geojson.NewFeatureCollection()
	for _, rec := range records {
		f := geojson.NewFeature(rec.Location)
		f.Properties = geojson.Properties{
			"action":     string(rec.Action),
			"owner_type": string(rec.OwnerType),
			"title_no":   rec.TitleNo,
		}
		fc.Append(f)
	}

	body, err := json.Marshal(fc)
	if err != nil {
		return nil, fmt.Errorf("query week %s: encode: %w", date, err)
	}

	s.cache.Put(ctx, key, body)
	return body, nil
}

// WeeklyStats serves GET /stats[/{bounds}].
func (s *queryService) WeeklyStats(ctx context.Context, bounds string) ([]byte, error) {
	metrics.QueriesTotal.WithLabelValues("stats").Inc()

	region, err := domain.ParseBounds(bounds)
	if err != nil {
		return nil, err
	}

	key := ports.CacheKey("stats", bounds)
	if body, ok := s.cache.Get(ctx, key); ok {
		metrics.CacheRequestsTotal.WithLabelValues("hit").Inc()
		return body, nil
	}
	metrics.CacheRequestsTotal.WithLabelValues("miss").Inc()

	weeks, err := s.repo.DistinctWeeks(ctx)
	if err != nil {
		return nil, fmt.Errorf("query stats: weeks: %w", err)
	}

	stats := make(map[string]int64, len(weeks))
	for _, week := range weeks {
		n, err := s.repo.CountByWeek(ctx, week, region)
		if err != nil {
			return nil, fmt.Errorf("query stats: count %s: %w", week.Format(dateLayout), err)
		}
		stats[week.Format(dateLayout)] = n
	}

	body, err := json.Marshal(stats)
	if err != nil {
		return nil, fmt.Errorf("query stats: encode: %w", err)
	}

	s.cache.Put(ctx, key, body)
	return body, nil
}
