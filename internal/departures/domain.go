// Package departures holds the aggregate rows published by the departures pipeline.
package departures

import (
	"time"

	"github.com/google/uuid"
)

// MonthlySeriesRow is one month of confirmed departures. Months are YYYY-MM and the
// published collection is sorted ascending.
type MonthlySeriesRow struct {
	Month string `json:"mes"`
	Count int    `json:"evasoes"`
}

// DestinationAggregateRow counts departures per destination body.
type DestinationAggregateRow struct {
	DestinationName string `json:"destino"`
	Total           int    `json:"total"`
}

// DepartureDetail is a single departure event backing an origin total.
type DepartureDetail struct {
	PersonName      string `json:"nome"`
	ActDate         string `json:"data"`
	DestinationName string `json:"destino,omitempty"`
	RoleTitle       string `json:"role,omitempty"`
	Reason          string `json:"motivo,omitempty"`
	DestinationRole string `json:"cargo_destino,omitempty"`
}

// OriginAggregateRow counts departures per originating court. Details is optional and
// may hold only a sample of the events behind Total.
type OriginAggregateRow struct {
	OriginName string            `json:"orgao"`
	Total      int               `json:"total"`
	Details    []DepartureDetail `json:"details,omitempty"`
}

// HasDetails reports whether the row carries drill-down records.
func (r OriginAggregateRow) HasDetails() bool {
	return len(r.Details) > 0
}

// Snapshot is the result of one load cycle. It is never mutated after construction.
type Snapshot struct {
	ID           uuid.UUID
	LoadedAt     time.Time
	Series       []MonthlySeriesRow
	Destinations []DestinationAggregateRow
	Origins      []OriginAggregateRow
}

// NewSnapshot stamps the three collections with a fresh identity.
func NewSnapshot(series []MonthlySeriesRow, destinations []DestinationAggregateRow, origins []OriginAggregateRow, loadedAt time.Time) *Snapshot {
	return &Snapshot{
		ID:           uuid.New(),
		LoadedAt:     loadedAt.UTC(),
		Series:       series,
		Destinations: destinations,
		Origins:      origins,
	}
}

// Empty reports whether the snapshot carries no series rows.
func (s *Snapshot) Empty() bool {
	return s == nil || len(s.Series) == 0
}
