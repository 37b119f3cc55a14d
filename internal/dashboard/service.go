package dashboard

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/observatorio-ti/observatorio/internal/departures"
)

// Loader produces a complete snapshot or fails.
type Loader interface {
	LoadAll(ctx context.Context) (*departures.Snapshot, error)
}

// Service connects the loader to the dashboard state.
type Service struct {
	loader Loader
	state  *State
	logger *slog.Logger
	group  singleflight.Group
}

// NewService wires a loader with the state it feeds.
func NewService(loader Loader, state *State, logger *slog.Logger) *Service {
	if state == nil {
		state = NewState(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{loader: loader, state: state, logger: logger}
}

// State exposes the derived state.
func (s *Service) State() *State {
	return s.state
}

// Reload performs a full load and applies the result. Concurrent calls share a single
// load. On failure the previous snapshot stays in place and the error is recorded. A load
// abandoned because the initiating caller's context ended is not a dataset failure and
// leaves the status untouched.
func (s *Service) Reload(ctx context.Context) (*View, error) {
	resultCh := s.group.DoChan("reload", func() (interface{}, error) {
		snap, err := s.loader.LoadAll(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				s.logger.Warn("dataset reload abandoned", slog.Any("error", err))
				return nil, err
			}
			s.state.Fail(err)
			return nil, err
		}
		return s.state.Apply(snap), nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultCh:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*View), nil
	}
}

// ListenForRefresh reloads the dataset whenever the bus announces a refresh.
func (s *Service) ListenForRefresh(ctx context.Context, bus *RefreshBus) error {
	return bus.Subscribe(ctx, func(version int64) {
		logger := s.logger.With(slog.Int64("refresh_version", version))
		view, err := s.Reload(ctx)
		if err != nil {
			logger.Error("dataset refresh", slog.Any("error", err))
			return
		}
		logger.Info("dataset refreshed", slog.String("snapshot", view.SnapshotID.String()))
	})
}
