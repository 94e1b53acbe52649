package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"

	"github.com/kiwiprop/transfer-system/internal/core/domain"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func record(titleNo string, lon, lat float64) domain.TransferRecord {
	return domain.TransferRecord{
		TitleNo:   titleNo,
		Location:  orb.Point{lon, lat},
		Action:    domain.ActionNew,
		Owners:    "John Smith",
		OwnerType: domain.OwnerPrivate,
	}
}

type featureCollection struct {
	Type     string `json:"type"`
	Features []struct {
		Geometry struct {
			Type        string     `json:"type"`
			Coordinates [2]float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties map[string]string `json:"properties"`
	} `json:"features"`
}

func decodeCollection(t *testing.T, body []byte) featureCollection {
	t.Helper()
	var fc featureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	return fc
}

// ---------------------------------------------------------------------------
// WeekFeatures tests
// ---------------------------------------------------------------------------

func TestWeekFeatures_InvalidDateRejectedBeforeStore(t *testing.T) {
	repo := newStubRepo()
	svc := NewQueryService(repo, newStubCache(), zerolog.Nop())

	_, err := svc.WeekFeatures(context.Background(), "17-05-2013", "")
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if repo.queried {
		t.Error("store must not be touched for an invalid date")
	}
}

func TestWeekFeatures_InvalidBoundsRejectedBeforeStore(t *testing.T) {
	repo := newStubRepo()
	svc := NewQueryService(repo, newStubCache(), zerolog.Nop())

	_, err := svc.WeekFeatures(context.Background(), "2013-01-05", "174,too,far,south")
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if repo.queried {
		t.Error("store must not be touched for invalid bounds")
	}
}

func TestWeekFeatures_BuildsFeatureCollection(t *testing.T) {
	repo := newStubRepo()
	repo.weeks["2013-01-05"] = []domain.TransferRecord{
		{TitleNo: "NA123/456", Location: orb.Point{174.76, -36.85}, Action: domain.ActionNew, OwnerType: domain.OwnerCompany},
		{TitleNo: "WN789/012", Location: orb.Point{174.78, -41.29}, Action: domain.ActionExisting, OwnerType: domain.OwnerGovernment},
	}
	svc := NewQueryService(repo, newStubCache(), zerolog.Nop())

	body, err := svc.WeekFeatures(context.Background(), "2013-01-05", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fc := decodeCollection(t, body)
	if fc.Type != "FeatureCollection" {
		t.Errorf("expected FeatureCollection, got %q", fc.Type)
	}
	if len(fc.Features) != 2 {
		t.Fatalf("expected 2 features, got %d", len(fc.Features))
	}
	first := fc.Features[0]
	if first.Geometry.Type != "Point" {
		t.Errorf("expected Point geometry, got %q", first.Geometry.Type)
	}
	want := map[string]string{"action": "new", "owner_type": "company", "title_no": "NA123/456"}
	for k, v := range want {
		if first.Properties[k] != v {
			t.Errorf("property %s: expected %q, got %q", k, v, first.Properties[k])
		}
	}
}

func TestWeekFeatures_BoundsFilterRectangle(t *testing.T) {
	repo := newStubRepo()
	repo.weeks["2013-01-05"] = []domain.TransferRecord{
		record("IN-1", 174.0, -36.0),
		record("IN-2", 175.9, -37.3),
		record("OUT-WEST", 173.0, -36.0),
		record("OUT-SOUTH", 174.5, -38.0),
	}
	svc := NewQueryService(repo, newStubCache(), zerolog.Nop())

	body, err := svc.WeekFeatures(context.Background(), "2013-01-05", "173.8,-37.4,176.0,-35.6")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fc := decodeCollection(t, body)
	if len(fc.Features) != 2 {
		t.Fatalf("expected 2 features inside the rectangle, got %d", len(fc.Features))
	}
	for _, f := range fc.Features {
		switch f.Properties["title_no"] {
		case "IN-1", "IN-2":
		default:
			t.Errorf("unexpected feature %q in filtered result", f.Properties["title_no"])
		}
	}
}

func TestWeekFeatures_AntimeridianBoundsMatchBothHalves(t *testing.T) {
	repo := newStubRepo()
	repo.weeks["2013-01-05"] = []domain.TransferRecord{
		record("EAST-SIDE", 179.5, 0.5),
		record("WEST-SIDE", -179.5, 0.5),
		record("OUTSIDE", 170.0, 0.5),
	}
	svc := NewQueryService(repo, newStubCache(), zerolog.Nop())

	body, err := svc.WeekFeatures(context.Background(), "2013-01-05", "179,0,-179,1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fc := decodeCollection(t, body)
	if len(fc.Features) != 2 {
		t.Fatalf("expected features from both sides of the antimeridian, got %d", len(fc.Features))
	}
}

func TestWeekFeatures_CapsResultSize(t *testing.T) {
	repo := newStubRepo()
	svc := NewQueryService(repo, newStubCache(), zerolog.Nop())

	if _, err := svc.WeekFeatures(context.Background(), "2013-01-05", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.lastLimit != 2000 {
		t.Errorf("expected limit 2000, got %d", repo.lastLimit)
	}
}

func TestWeekFeatures_CacheHitSkipsStore(t *testing.T) {
	repo := newStubRepo()
	repo.weeks["2013-01-05"] = []domain.TransferRecord{record("T-1", 174.0, -36.0)}
	respCache := newStubCache()
	svc := NewQueryService(repo, respCache, zerolog.Nop())

	first, err := svc.WeekFeatures(context.Background(), "2013-01-05", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Mutate the store; a cached response must be served verbatim anyway.
	repo.weeks["2013-01-05"] = append(repo.weeks["2013-01-05"], record("T-2", 174.1, -36.1))
	second, err := svc.WeekFeatures(context.Background(), "2013-01-05", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(first) != string(second) {
		t.Error("cache hit must return the stored body byte for byte")
	}
}

func TestWeekFeatures_DistinctBoundsUseDistinctCacheEntries(t *testing.T) {
	repo := newStubRepo()
	repo.weeks["2013-01-05"] = []domain.TransferRecord{record("T-1", 174.0, -36.0)}
	respCache := newStubCache()
	svc := NewQueryService(repo, respCache, zerolog.Nop())

	if _, err := svc.WeekFeatures(context.Background(), "2013-01-05", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.WeekFeatures(context.Background(), "2013-01-05", "173.8,-37.4,176.0,-35.6"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(respCache.entries) != 2 {
		t.Errorf("expected 2 cache entries, got %d", len(respCache.entries))
	}
}

func TestWeekFeatures_StoreErrorSurfaces(t *testing.T) {
	repo := newStubRepo()
	repo.queryErr = errors.New("store down")
	svc := NewQueryService(repo, newStubCache(), zerolog.Nop())

	if _, err := svc.WeekFeatures(context.Background(), "2013-01-05", ""); err == nil {
		t.Fatal("expected store error to surface")
	}
}

// ---------------------------------------------------------------------------
// WeeklyStats tests
// ---------------------------------------------------------------------------

func TestWeeklyStats_CountsPerWeek(t *testing.T) {
	repo := newStubRepo()
	repo.weeks["2013-01-05"] = []domain.TransferRecord{
		record("A", 174.0, -36.0),
		record("B", 174.1, -36.1),
		record("C", 174.2, -36.2),
	}
	repo.weeks["2013-01-12"] = []domain.TransferRecord{record("D", 174.0, -36.0)}
	svc := NewQueryService(repo, newStubCache(), zerolog.Nop())

	body, err := svc.WeeklyStats(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var stats map[string]int64
	if err := json.Unmarshal(body, &stats); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if stats["2013-01-05"] != 3 {
		t.Errorf("expected 3 for 2013-01-05, got %d", stats["2013-01-05"])
	}
	if stats["2013-01-12"] != 1 {
		t.Errorf("expected 1 for 2013-01-12, got %d", stats["2013-01-12"])
	}
}

func TestWeeklyStats_BoundsFilterCounts(t *testing.T) {
	repo := newStubRepo()
	repo.weeks["2013-01-05"] = []domain.TransferRecord{
		record("IN", 174.0, -36.0),
		record("OUT", 100.0, 40.0),
	}
	svc := NewQueryService(repo, newStubCache(), zerolog.Nop())

	body, err := svc.WeeklyStats(context.Background(), "173.8,-37.4,176.0,-35.6")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var stats map[string]int64
	if err := json.Unmarshal(body, &stats); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if stats["2013-01-05"] != 1 {
		t.Errorf("expected 1 record in bounds, got %d", stats["2013-01-05"])
	}
}

func TestWeeklyStats_InvalidBoundsRejected(t *testing.T) {
	svc := NewQueryService(newStubRepo(), newStubCache(), zerolog.Nop())

	_, err := svc.WeeklyStats(context.Background(), "1,2,3")
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestWeeklyStats_CachedAcrossStoreChanges(t *testing.T) {
	repo := newStubRepo()
	repo.weeks["2013-01-05"] = []domain.TransferRecord{record("A", 174.0, -36.0)}
	svc := NewQueryService(repo, newStubCache(), zerolog.Nop())

	first, err := svc.WeeklyStats(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	repo.weeks["2013-01-12"] = []domain.TransferRecord{record("B", 174.0, -36.0)}
	second, err := svc.WeeklyStats(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(first) != string(second) {
		t.Error("cached stats must be served verbatim until the cache is cleared")
	}
}
