package dashboard

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/observatorio-ti/observatorio/internal/departures"
)

// View is everything the dashboard shows for one snapshot. Views are shared between
// readers and must be treated as read-only.
type View struct {
	SnapshotID        uuid.UUID                     `json:"snapshot_id"`
	LoadedAt          time.Time                     `json:"loaded_at"`
	PeriodStart       string                        `json:"period_start"`
	PeriodEnd         string                        `json:"period_end"`
	PeriodTotal       int64                         `json:"period_total"`
	LatestValue       int                           `json:"latest_value"`
	Series            []departures.MonthlySeriesRow `json:"series"`
	OriginLabels      []string                      `json:"origin_labels"`
	DestinationLabels []string                      `json:"destination_labels"`
	DestinationBars   []Bar                         `json:"destination_bars"`
	OriginBars        []Bar                         `json:"origin_bars"`
}

// Deriver memoizes the view of the most recent snapshot. Deriving the same snapshot
// again returns the same *View.
type Deriver struct {
	topDestinations int

	mu     sync.Mutex
	last   *departures.Snapshot
	view   *View
	builds int
}

// NewDeriver builds a deriver truncating the destination ranking to topDestinations
// entries. Zero or negative disables the cutoff.
func NewDeriver(topDestinations int) *Deriver {
	return &Deriver{topDestinations: topDestinations}
}

// Derive returns the view for snap, recomputing only when snap differs from the last
// snapshot derived.
func (d *Deriver) Derive(snap *departures.Snapshot) *View {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.view != nil && d.last == snap {
		return d.view
	}
	d.view = build(snap, d.topDestinations)
	d.last = snap
	d.builds++
	return d.view
}

// Builds reports how many times a view was computed.
func (d *Deriver) Builds() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.builds
}

func build(snap *departures.Snapshot, topDestinations int) *View {
	if snap == nil {
		snap = &departures.Snapshot{}
	}
	start, end := PeriodBounds(snap.Series)
	return &View{
		SnapshotID:        snap.ID,
		LoadedAt:          snap.LoadedAt,
		PeriodStart:       start,
		PeriodEnd:         end,
		PeriodTotal:       PeriodTotal(snap.Series),
		LatestValue:       LatestValue(snap.Series),
		Series:            snap.Series,
		OriginLabels:      OriginLabels(snap.Origins),
		DestinationLabels: DestinationLabels(snap.Destinations),
		DestinationBars:   DestinationBars(snap.Destinations, topDestinations),
		OriginBars:        OriginBars(snap.Origins),
	}
}
