package app

import (
	"context"
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/observatorio-ti/observatorio/internal/dashboard"
	dashboardhttp "github.com/observatorio-ti/observatorio/internal/dashboard/http"
	"github.com/observatorio-ti/observatorio/internal/dashboard/svg"
	"github.com/observatorio-ti/observatorio/internal/dataset"
	"github.com/observatorio-ti/observatorio/internal/observability"
	"github.com/observatorio-ti/observatorio/internal/view"
	"github.com/observatorio-ti/observatorio/jobs"
)

type chartRenderer struct{}

func (chartRenderer) Line(width, height int, points []svg.Point, opts svg.LineOpts) (template.HTML, error) {
	return svg.Line(width, height, points, opts)
}

func (chartRenderer) HBars(width int, items []svg.BarItem, opts svg.BarOpts) (template.HTML, error) {
	return svg.HBars(width, items, opts)
}

func newRouterForTest(t *testing.T, basePath string, data fstest.MapFS) http.Handler {
	t.Helper()
	return newRouterForEnv(t, "test", basePath, data)
}

func newRouterForEnv(t *testing.T, env, basePath string, data fstest.MapFS) http.Handler {
	t.Helper()
	cfg := &Config{AppEnv: env, BasePath: NormalizeBasePath(basePath)}
	templates, err := view.NewEngine()
	require.NoError(t, err)

	state := dashboard.NewState(nil)
	handler := dashboardhttp.NewHandler(nil, state, templates, chartRenderer{}, chartRenderer{}).WithBasePath(cfg.BasePath)
	params := RouterParams{
		Config:           cfg,
		DashboardHandler: handler,
		JobHandler:       jobs.NewHandler(nil, nil),
		Metrics:          observability.NewMetrics(),
	}
	if data != nil {
		params.DataFS = data
	}
	return NewRouter(params)
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestRouterServesSampleDataUnderBasePath(t *testing.T) {
	router := newRouterForTest(t, "/observatorio/", nil)

	rr := get(t, router, "/observatorio/data/series_mensal.json")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
	assert.True(t, strings.HasPrefix(strings.TrimSpace(rr.Body.String()), "["))

	assert.Equal(t, http.StatusNotFound, get(t, router, "/data/series_mensal.json").Code)
}

func TestRouterRedirectsRootToBasePath(t *testing.T) {
	router := newRouterForTest(t, "/observatorio", nil)
	rr := get(t, router, "/")
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/observatorio/", rr.Header().Get("Location"))
}

func TestRouterStaticAndMetrics(t *testing.T) {
	router := newRouterForTest(t, "/", nil)

	rr := get(t, router, "/static/css/app.css")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "public, max-age=3600", rr.Header().Get("Cache-Control"))

	rr = get(t, router, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "observatorio_dataset_snapshot_timestamp_seconds")

	assert.Equal(t, http.StatusOK, get(t, router, "/jobs/health").Code)
}

func TestRouterSecurityHeaders(t *testing.T) {
	router := newRouterForTest(t, "/", nil)
	rr := get(t, router, "/healthz")
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, rr.Header().Get("Content-Security-Policy"), "default-src 'self'")
}

func aggregateFiles() fstest.MapFS {
	return fstest.MapFS{
		"series_mensal.json": {Data: []byte(`[{"mes":"2025-01","evasoes":4},{"mes":"2025-02","evasoes":6}]`)},
		"top_destinos.json":  {Data: []byte(`[{"destino":"Receita Federal","total":3}]`)},
		"top_orgaos.json":    {Data: []byte(`[{"orgao":"trt14","total":7}]`)},
	}
}

func TestLoaderReadsFilesServedByRouter(t *testing.T) {
	data := aggregateFiles()
	router := newRouterForTest(t, "/obs/", data)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	base, err := dataset.ResolveBase(srv.URL, "/obs/")
	require.NoError(t, err)
	loader, err := dataset.NewLoader(base, dataset.WithClient(srv.Client()))
	require.NoError(t, err)

	snap, err := loader.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Series, 2)
	assert.Equal(t, "trt14", snap.Origins[0].OriginName)
}

func TestProductionLoaderReadsFilesOverLoopback(t *testing.T) {
	router := newRouterForEnv(t, "production", "/obs/", aggregateFiles())
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	base, err := dataset.ResolveBase(srv.URL, "/obs/")
	require.NoError(t, err)
	loader, err := dataset.NewLoader(base, dataset.WithClient(srv.Client()))
	require.NoError(t, err)

	snap, err := loader.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Series, 2)

	resp, err := srv.Client().Get(srv.URL + "/obs/data/series_mensal.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

func TestProductionRedirectsPublicRequestsToHTTPS(t *testing.T) {
	router := newRouterForEnv(t, "production", "/obs/", aggregateFiles())

	for _, path := range []string{"/obs/healthz", "/obs/data/series_mensal.json"} {
		rr := get(t, router, path)
		assert.Equal(t, http.StatusMovedPermanently, rr.Code, path)
		assert.True(t, strings.HasPrefix(rr.Header().Get("Location"), "https://"), path)
		assert.NotContains(t, rr.Body.String(), http.StatusText(http.StatusInternalServerError), path)
	}
}

func TestIsLoopbackDataRequest(t *testing.T) {
	cases := []struct {
		name   string
		method string
		host   string
		remote string
		path   string
		want   bool
	}{
		{"ipv4 loopback", http.MethodGet, "127.0.0.1:8080", "127.0.0.1:51000", "/obs/data/top_orgaos.json", true},
		{"localhost head", http.MethodHead, "localhost:8080", "[::1]:51000", "/obs/data/top_orgaos.json", true},
		{"public host", http.MethodGet, "observatorio.example", "127.0.0.1:51000", "/obs/data/top_orgaos.json", false},
		{"remote client", http.MethodGet, "127.0.0.1:8080", "203.0.113.9:51000", "/obs/data/top_orgaos.json", false},
		{"outside data", http.MethodGet, "127.0.0.1:8080", "127.0.0.1:51000", "/obs/healthz", false},
		{"post", http.MethodPost, "127.0.0.1:8080", "127.0.0.1:51000", "/obs/data/top_orgaos.json", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(tc.method, tc.path, nil)
			r.Host = tc.host
			r.RemoteAddr = tc.remote
			assert.Equal(t, tc.want, isLoopbackDataRequest(r, "/obs/data/"))
		})
	}
}
