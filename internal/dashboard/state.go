package dashboard

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/observatorio-ti/observatorio/internal/departures"
)

// Filters are the dashboard filter controls. Origin and Destination are recorded but
// do not slice any aggregate: the published aggregates are not broken down by those
// dimensions.
type Filters struct {
	Start       string `json:"start" validate:"omitempty,datetime=2006-01"`
	End         string `json:"end" validate:"omitempty,datetime=2006-01"`
	Origin      string `json:"origin" validate:"max=200"`
	Destination string `json:"destination" validate:"max=200"`
}

// FilterRequest is a filter form as submitted, stamped with the snapshot the user was
// looking at when editing it.
type FilterRequest struct {
	Filters
	SnapshotID string `validate:"omitempty,uuid"`
}

// Status describes the load lifecycle.
type Status struct {
	Loaded     bool
	Err        error
	SnapshotID uuid.UUID
	LoadedAt   time.Time
}

// Observer is notified after a snapshot is applied, with the new view and the filters
// snapped to its extent.
type Observer func(view *View, filters Filters)

// State is the single derived-state node of the dashboard: it owns the current
// snapshot, its view and the filter bounds derived from it.
type State struct {
	deriver *Deriver

	mu        sync.RWMutex
	snapshot  *departures.Snapshot
	view      *View
	filters   Filters
	loaded    bool
	err       error
	observers []Observer
}

// NewState builds an empty state whose filters span the default period.
func NewState(deriver *Deriver) *State {
	if deriver == nil {
		deriver = NewDeriver(DefaultTopDestinations)
	}
	view := deriver.Derive(nil)
	return &State{
		deriver: deriver,
		view:    view,
		filters: Filters{Start: view.PeriodStart, End: view.PeriodEnd},
	}
}

// OnChange registers an observer for applied snapshots.
func (s *State) OnChange(fn Observer) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// Apply installs a freshly loaded snapshot. Whenever the snapshot changes the filter
// period is reset to the new data extent; origin and destination selections survive.
func (s *State) Apply(snap *departures.Snapshot) *View {
	view := s.deriver.Derive(snap)

	s.mu.Lock()
	if s.snapshot != snap || !s.loaded {
		s.filters.Start = view.PeriodStart
		s.filters.End = view.PeriodEnd
	}
	s.snapshot = snap
	s.view = view
	s.loaded = true
	s.err = nil
	filters := s.filters
	observers := append([]Observer(nil), s.observers...)
	s.mu.Unlock()

	for _, fn := range observers {
		fn(view, filters)
	}
	return view
}

// Fail records a failed load. A previously applied snapshot stays in place.
func (s *State) Fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Status reports whether data is available and the last load error, if any.
func (s *State) Status() Status {
	st, _ := s.Current()
	return st
}

// Current returns the load status together with the view it describes.
func (s *State) Current() (Status, *View) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statusLocked(), s.view
}

func (s *State) statusLocked() Status {
	st := Status{Loaded: s.loaded, Err: s.err}
	if s.snapshot != nil {
		st.SnapshotID = s.snapshot.ID
		st.LoadedAt = s.snapshot.LoadedAt
	}
	return st
}

// View returns the view of the current snapshot.
func (s *State) View() *View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// Snapshot returns the current snapshot, nil before the first successful load.
func (s *State) Snapshot() *departures.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Filters returns the filters as reset by the last applied snapshot.
func (s *State) Filters() Filters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters
}

// Resolve merges a submitted filter form with the current state. Period edits made
// against an older snapshot are discarded in favour of the current extent; edits made
// against the current snapshot are kept, clamped to the extent.
func (s *State) Resolve(req FilterRequest) Filters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolveLocked(req)
}

// CurrentResolved returns the status, the view and the resolved filters read under one
// lock, so the filters always belong to the returned view.
func (s *State) CurrentResolved(req FilterRequest) (Status, *View, Filters) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statusLocked(), s.view, s.resolveLocked(req)
}

func (s *State) resolveLocked(req FilterRequest) Filters {
	view := s.view
	out := s.filters
	out.Origin = req.Origin
	out.Destination = req.Destination
	if req.SnapshotID == "" || req.SnapshotID != view.SnapshotID.String() {
		return out
	}
	if req.Start != "" {
		out.Start = clampMonth(req.Start, view.PeriodStart, view.PeriodEnd)
	}
	if req.End != "" {
		out.End = clampMonth(req.End, view.PeriodStart, view.PeriodEnd)
	}
	if out.Start > out.End {
		out.Start, out.End = out.End, out.Start
	}
	return out
}

func clampMonth(month, lo, hi string) string {
	switch {
	case month < lo:
		return lo
	case month > hi:
		return hi
	default:
		return month
	}
}
