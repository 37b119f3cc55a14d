// Package dataset fetches the published departure aggregates.
package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/observatorio-ti/observatorio/internal/departures"
)

// Default locators, relative to the deployment base path.
const (
	ResourceSeries       = "data/series_mensal.json"
	ResourceDestinations = "data/top_destinos.json"
	ResourceOrigins      = "data/top_orgaos.json"
)

// Resources names the three aggregate documents.
type Resources struct {
	Series       string
	Destinations string
	Origins      string
}

// DefaultResources returns the locators the pipeline publishes.
func DefaultResources() Resources {
	return Resources{
		Series:       ResourceSeries,
		Destinations: ResourceDestinations,
		Origins:      ResourceOrigins,
	}
}

// Loader retrieves the three aggregates in one all-or-nothing cycle.
type Loader struct {
	base      *url.URL
	client    *http.Client
	resources Resources
	metrics   *Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Loader.
type Option func(*Loader)

// WithClient sets the HTTP client. The loader adds no timeout of its own.
func WithClient(client *http.Client) Option {
	return func(l *Loader) {
		if client != nil {
			l.client = client
		}
	}
}

// WithResources overrides the resource locators.
func WithResources(resources Resources) Option {
	return func(l *Loader) { l.resources = resources }
}

// WithMetrics attaches load metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(l *Loader) { l.metrics = metrics }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// WithClock overrides the clock used to stamp snapshots.
func WithClock(fn func() time.Time) Option {
	return func(l *Loader) {
		if fn != nil {
			l.now = fn
		}
	}
}

// NewLoader builds a loader resolving locators against baseURL, which may carry a
// sub-path such as https://example.org/observatorio/.
func NewLoader(baseURL string, opts ...Option) (*Loader, error) {
	base, err := parseBase(baseURL)
	if err != nil {
		return nil, err
	}
	l := &Loader{
		base:      base,
		client:    &http.Client{},
		resources: DefaultResources(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// ResolveBase joins a deployment origin and base path into the URL the loader resolves
// against.
func ResolveBase(origin, basePath string) (string, error) {
	origin = strings.TrimRight(strings.TrimSpace(origin), "/")
	if origin == "" {
		return "", errors.New("dataset: origin required")
	}
	basePath = "/" + strings.Trim(strings.TrimSpace(basePath), "/")
	if basePath != "/" {
		basePath += "/"
	}
	base, err := parseBase(origin + basePath)
	if err != nil {
		return "", err
	}
	return base.String(), nil
}

func parseBase(raw string) (*url.URL, error) {
	base, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("dataset: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("dataset: base url %q must be absolute", raw)
	}
	// A base without the trailing slash would drop its last segment on resolution.
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	return base, nil
}

// URL resolves a resource locator against the base.
func (l *Loader) URL(resource string) string {
	ref, err := url.Parse(strings.TrimLeft(resource, "/"))
	if err != nil {
		return l.base.String() + strings.TrimLeft(resource, "/")
	}
	return l.base.ResolveReference(ref).String()
}

// LoadAll dispatches the three requests concurrently and waits for all of them. Any
// failure fails the whole cycle and no partial snapshot is returned.
func (l *Loader) LoadAll(ctx context.Context) (*departures.Snapshot, error) {
	start := time.Now()

	var (
		series       []departures.MonthlySeriesRow
		destinations []departures.DestinationAggregateRow
		origins      []departures.OriginAggregateRow
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return l.fetchJSON(gctx, l.resources.Series, &series)
	})
	g.Go(func() error {
		return l.fetchJSON(gctx, l.resources.Destinations, &destinations)
	})
	g.Go(func() error {
		return l.fetchJSON(gctx, l.resources.Origins, &origins)
	})

	err := g.Wait()
	l.metrics.observe(err, time.Since(start))
	if err != nil {
		l.log().Error("dataset load failed", slog.String("resource", FailedResource(err)), slog.Any("error", err))
		return nil, err
	}

	snap := departures.NewSnapshot(series, destinations, origins, l.now())
	l.log().Info("dataset loaded",
		slog.String("snapshot", snap.ID.String()),
		slog.Int("months", len(series)),
		slog.Int("destinations", len(destinations)),
		slog.Int("origins", len(origins)),
		slog.Duration("duration", time.Since(start)),
	)
	return snap, nil
}

func (l *Loader) fetchJSON(ctx context.Context, resource string, dest any) error {
	target := l.URL(resource)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return &FetchError{Resource: resource, URL: target, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache, no-store")
	req.Header.Set("Pragma", "no-cache")

	resp, err := l.client.Do(req)
	if err != nil {
		return &FetchError{Resource: resource, URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &FetchError{Resource: resource, URL: target, StatusCode: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return &decodeError{resource: resource, err: err}
	}
	return nil
}

func (l *Loader) log() *slog.Logger {
	if l.logger != nil {
		return l.logger
	}
	return slog.Default()
}
