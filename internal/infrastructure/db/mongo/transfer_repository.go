package mongo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/paulmach/orb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kiwiprop/transfer-system/internal/core/domain"
)

const collectionTransfers = "transfers"

// geoPoint is the GeoJSON shape Mongo's 2dsphere index expects.
type geoPoint struct {
	Type        string     `bson:"type"`
	Coordinates [2]float64 `bson:"coordinates"` // lon, lat
}

type transferDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	TitleNo   string             `bson:"title_no"`
	Location  geoPoint           `bson:"location"`
	Action    string             `bson:"action"`
	Owners    string             `bson:"owners"`
	OwnerType string             `bson:"owner_type"`
	WeekStart time.Time          `bson:"week_start"`
}

func toDoc(rec domain.TransferRecord) transferDoc {
	return transferDoc{
		TitleNo: rec.TitleNo,
		Location: geoPoint{
			Type:        "Point",
			Coordinates: [2]float64{rec.Location[0], rec.Location[1]},
		},
		Action:    string(rec.Action),
		Owners:    rec.Owners,
		OwnerType: string(rec.OwnerType),
		WeekStart: rec.WeekStart.UTC(),
	}
}

func fromDoc(d transferDoc) domain.TransferRecord {
	return domain.TransferRecord{
		ID:        d.ID.Hex(),
		TitleNo:   d.TitleNo,
		Location:  orb.Point{d.Location.Coordinates[0], d.Location.Coordinates[1]},
		Action:    domain.Action(d.Action),
		Owners:    d.Owners,
		OwnerType: domain.OwnerType(d.OwnerType),
		WeekStart: d.WeekStart.UTC(),
	}
}

// TransferRepository is the Mongo-backed spatial store for transfer records.
type TransferRepository struct {
	col *mongo.Collection
}

func NewTransferRepository(db *mongo.Database) *TransferRepository {
	return &TransferRepository{col: db.Collection(collectionTransfers)}
}

// InsertWeekBatch persists one week's records in a single ordered InsertMany.
// A standalone deployment has no multi-document transactions, so atomicity is
// approximated with a compensating delete: any partial batch left by a failed
// insert is removed before the error is returned, and the resync invariant
// restores consistency on the next run.
func (r *TransferRepository) InsertWeekBatch(ctx context.Context, weekStart time.Time, records []domain.TransferRecord) error {
	if len(records) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	docs := make([]interface{}, 0, len(records))
	for _, rec := range records {
		docs = append(docs, toDoc(rec))
	}

	if _, err := r.col.InsertMany(ctx, docs); err != nil {
		_, _ = r.col.DeleteMany(ctx, bson.M{"week_start": weekStart.UTC()})
		return fmt.Errorf("insert week batch: %w", err)
	}
	return nil
}

// DeleteFrom removes every record anchored on or after weekStart.
func (r *TransferRepository) DeleteFrom(ctx context.Context, weekStart time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.DeleteMany(ctx, bson.M{"week_start": bson.M{"$gte": weekStart.UTC()}})
	if err != nil {
		return fmt.Errorf("delete from %s: %w", weekStart.Format("2006-01-02"), err)
	}
	return nil
}

// QueryByWeek returns up to limit records for the week, geo-filtered when a
// region is given.
func (r *TransferRepository) QueryByWeek(ctx context.Context, weekStart time.Time, region *domain.SpatialRegion, limit int64) ([]domain.TransferRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := weekFilter(weekStart, region)

	cur, err := r.col.Find(ctx, filter, options.Find().SetLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query week: %w", err)
	}
	defer cur.Close(ctx)

	var records []domain.TransferRecord
	for cur.Next(ctx) {
		var d transferDoc
		if err := cur.Decode(&d); err != nil {
			return nil, fmt.Errorf("query week: decode: %w", err)
		}
		records = append(records, fromDoc(d))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("query week: cursor: %w", err)
	}
	return records, nil
}

// DistinctWeeks enumerates the week anchors present, ascending.
func (r *TransferRepository) DistinctWeeks(ctx context.Context) ([]time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	raw, err := r.col.Distinct(ctx, "week_start", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("distinct weeks: %w", err)
	}

	weeks := make([]time.Time, 0, len(raw))
	for _, v := range raw {
		switch t := v.(type) {
		case primitive.DateTime:
			weeks = append(weeks, t.Time().UTC())
		case time.Time:
			weeks = append(weeks, t.UTC())
		}
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].Before(weeks[j]) })
	return weeks, nil
}

// CountByWeek counts records for one week, geo-filtered when a region is given.
func (r *TransferRepository) CountByWeek(ctx context.Context, weekStart time.Time, region *domain.SpatialRegion) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, weekFilter(weekStart, region))
	if err != nil {
		return 0, fmt.Errorf("count week: %w", err)
	}
	return n, nil
}

// Maintain re-ensures indexes and compacts the collection after a bulk
// reload. Failures are returned for the caller to log; they never fail a run.
func (r *TransferRepository) Maintain(ctx context.Context) error {
	if err := r.EnsureIndexes(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	err := r.col.Database().RunCommand(ctx, bson.D{
		{Key: "compact", Value: collectionTransfers},
	}).Err()
	if err != nil {
		return fmt.Errorf("compact: %w", err)
	}
	return nil
}

// EnsureIndexes creates the indexes the read and write paths rely on,
// including the 2dsphere index that backs $geoWithin filtering.
func (r *TransferRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
		{Keys: bson.D{{Key: "week_start", Value: 1}}},
		{Keys: bson.D{{Key: "owner_type", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

// weekFilter builds the Mongo filter for one week plus an optional region.
// Two-rectangle regions (antimeridian crossings) become an $or of per-box
// $geoWithin clauses; their union is the filter area.
func weekFilter(weekStart time.Time, region *domain.SpatialRegion) bson.M {
	filter := bson.M{"week_start": weekStart.UTC()}
	if region == nil {
		return filter
	}

	boxes := make([]bson.M, 0, len(region.Boxes))
	for _, poly := range region.Polygons() {
		boxes = append(boxes, bson.M{"location": bson.M{"$geoWithin": bson.M{"$geometry": polygonBSON(poly)}}})
	}
	if len(boxes) == 1 {
		filter["location"] = boxes[0]["location"]
	} else {
		filter["$or"] = boxes
	}
	return filter
}

func polygonBSON(p orb.Polygon) bson.M {
	rings := make([][][2]float64, 0, len(p))
	for _, ring := range p {
		coords := make([][2]float64, 0, len(ring))
		for _, pt := range ring {
			coords = append(coords, [2]float64{pt[0], pt[1]})
		}
		rings = append(rings, coords)
	}
	return bson.M{"type": "Polygon", "coordinates": rings}
}
