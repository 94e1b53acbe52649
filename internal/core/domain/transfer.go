package domain

import (
	"time"

	"github.com/paulmach/orb"
)

// Action says whether the title was first seen in the week it was ingested.
type Action string

const (
	ActionNew      Action = "new"
	ActionExisting Action = "existing"
)

// OwnerType is the coarse ownership class derived from the owners text.
type OwnerType string

const (
	OwnerGovernment OwnerType = "govt"
	OwnerCompany    OwnerType = "company"
	OwnerPrivate    OwnerType = "private"
)

// TransferRecord is one classified property-title transfer event.
//
// Records are immutable once inserted: the store only ever inserts or deletes
// them in whole-week batches, so OwnerType is computed exactly once at
// classification time and never re-derived.
type TransferRecord struct {
	ID        string
	TitleNo   string
	Location  orb.Point // WGS84 lon/lat
	Action    Action
	Owners    string
	OwnerType OwnerType
	WeekStart time.Time // always a Saturday, UTC midnight
}

// WeekEnd returns the exclusive end of the record's ingestion week.
func (t TransferRecord) WeekEnd() time.Time {
	return t.WeekStart.AddDate(0, 0, 7)
}

// WeekAnchor returns the Saturday on or before t, truncated to UTC midnight.
// Weeks run Saturday to Saturday regardless of where the query window falls.
func WeekAnchor(t time.Time) time.Time {
	t = t.UTC()
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return d.AddDate(0, 0, -((int(d.Weekday()) + 1) % 7))
}
