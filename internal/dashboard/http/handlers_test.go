package dashboardhttp

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/observatorio-ti/observatorio/internal/dashboard"
	"github.com/observatorio-ti/observatorio/internal/dashboard/svg"
	"github.com/observatorio-ti/observatorio/internal/departures"
	"github.com/observatorio-ti/observatorio/internal/view"
)

type lineAdapter func(width, height int, points []svg.Point, opts svg.LineOpts) (template.HTML, error)

type barAdapter func(width int, items []svg.BarItem, opts svg.BarOpts) (template.HTML, error)

func (a lineAdapter) Line(width, height int, points []svg.Point, opts svg.LineOpts) (template.HTML, error) {
	return a(width, height, points, opts)
}

func (a barAdapter) HBars(width int, items []svg.BarItem, opts svg.BarOpts) (template.HTML, error) {
	return a(width, items, opts)
}

func testSnapshot() *departures.Snapshot {
	return departures.NewSnapshot(
		[]departures.MonthlySeriesRow{{Month: "2025-01", Count: 3}, {Month: "2025-02", Count: 5}, {Month: "2025-03", Count: 4}},
		[]departures.DestinationAggregateRow{{DestinationName: "Banco Central", Total: 2}, {DestinationName: "Receita Federal", Total: 6}},
		[]departures.OriginAggregateRow{
			{OriginName: "trt14", Total: 4, Details: []departures.DepartureDetail{{PersonName: "Ana Souza", ActDate: "2025-02-11"}}},
			{OriginName: "tre_sp", Total: 8},
		},
		time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
	)
}

func newTestRouter(t *testing.T, state *dashboard.State) http.Handler {
	t.Helper()
	templates, err := view.NewEngine()
	if err != nil {
		t.Fatalf("parse templates: %v", err)
	}
	handler := NewHandler(nil, state, templates, lineAdapter(svg.Line), barAdapter(svg.HBars)).WithBasePath("/obs/")
	r := chi.NewRouter()
	r.Route("/obs", handler.MountRoutes)
	return r
}

func loadedState(t *testing.T) (*dashboard.State, *departures.Snapshot) {
	t.Helper()
	state := dashboard.NewState(nil)
	snap := testSnapshot()
	state.Apply(snap)
	return state, snap
}

func TestDashboardLoading(t *testing.T) {
	router := newTestRouter(t, dashboard.NewState(nil))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/obs/", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 while loading, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Carregando…") {
		t.Fatalf("expected loading state, got %s", rr.Body.String())
	}
}

func TestDashboardLoadError(t *testing.T) {
	state := dashboard.NewState(nil)
	state.Fail(errors.New("dataset: load data/top_orgaos.json (http://x/data/top_orgaos.json): status 404"))
	router := newTestRouter(t, state)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/obs/", nil))
	body := rr.Body.String()
	if !strings.Contains(body, "<strong>Erro:</strong>") || !strings.Contains(body, "top_orgaos.json") {
		t.Fatalf("expected error state naming the resource, got %s", body)
	}
}

func TestDashboardRendersCharts(t *testing.T) {
	state, _ := loadedState(t)
	router := newTestRouter(t, state)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/obs/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	for _, want := range []string{
		"chart-line",
		"1º TRE_SP",
		"1º Receita Federal",
		"Ana Souza - 11/02/2025",
		"ainda não funcional",
		`value="2025-01"`,
		`href="/obs/export/series.csv"`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in dashboard body", want)
		}
	}
}

func TestDashboardRejectsInvalidMonth(t *testing.T) {
	state, _ := loadedState(t)
	router := newTestRouter(t, state)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/obs/?start=2025-13", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestAPIReturnsResolvedFilters(t *testing.T) {
	state, snap := loadedState(t)
	router := newTestRouter(t, state)
	rr := httptest.NewRecorder()
	url := "/obs/api/dashboard?start=2025-02&end=2030-01&origin=trt14&snapshot=" + snap.ID.String()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, url, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var payload struct {
		Status  string            `json:"status"`
		Filters dashboard.Filters `json:"filters"`
		View    struct {
			PeriodTotal int64           `json:"period_total"`
			OriginBars  []dashboard.Bar `json:"origin_bars"`
		} `json:"view"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Status != "ready" {
		t.Fatalf("unexpected status %q", payload.Status)
	}
	if payload.Filters.Start != "2025-02" || payload.Filters.End != "2025-03" || payload.Filters.Origin != "trt14" {
		t.Fatalf("unexpected filters %+v", payload.Filters)
	}
	if payload.View.PeriodTotal != 12 {
		t.Fatalf("expected total 12, got %d", payload.View.PeriodTotal)
	}
	if len(payload.View.OriginBars) != 2 || payload.View.OriginBars[0].Label != "1º TRE_SP" {
		t.Fatalf("unexpected origin bars %+v", payload.View.OriginBars)
	}
}

func TestAPIStaleSnapshotResetsPeriod(t *testing.T) {
	state, _ := loadedState(t)
	router := newTestRouter(t, state)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/obs/api/dashboard?start=2025-02&end=2025-02&snapshot=0b1c8a54-7f1e-4c51-9a63-2a3d2f1b9e10", nil))
	var payload struct {
		Filters dashboard.Filters `json:"filters"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Filters.Start != "2025-01" || payload.Filters.End != "2025-03" {
		t.Fatalf("expected bounds of current snapshot, got %+v", payload.Filters)
	}
}

func TestAPIProblemWhileLoading(t *testing.T) {
	router := newTestRouter(t, dashboard.NewState(nil))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/obs/api/dashboard", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/problem+json") {
		t.Fatalf("expected problem details, got %q", ct)
	}
}

func TestAPIRejectsBadSnapshotToken(t *testing.T) {
	state, _ := loadedState(t)
	router := newTestRouter(t, state)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/obs/api/dashboard?snapshot=not-a-uuid", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestCSVExport(t *testing.T) {
	state, _ := loadedState(t)
	router := newTestRouter(t, state)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/obs/export/origins.csv", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/csv; charset=utf-8" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "evasao-ti-origins-20260201.csv") {
		t.Fatalf("unexpected disposition %q", cd)
	}
	records, err := csv.NewReader(strings.NewReader(rr.Body.String())).ReadAll()
	if err != nil {
		t.Fatalf("csv read error: %v", err)
	}
	if len(records) != 3 || records[1][1] != "tre_sp" {
		t.Fatalf("unexpected rows %v", records)
	}
}

func TestCSVUnknownKind(t *testing.T) {
	state, _ := loadedState(t)
	router := newTestRouter(t, state)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/obs/export/everything.csv", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestCSVExportIsRateLimited(t *testing.T) {
	state, _ := loadedState(t)
	router := newTestRouter(t, state)
	var last int
	for i := 0; i < 11; i++ {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/obs/export/summary.csv", nil))
		last = rr.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after the limit, got %d", last)
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, dashboard.NewState(nil))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/obs/healthz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before load, got %d", rr.Code)
	}

	state, snap := loadedState(t)
	router = newTestRouter(t, state)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/obs/healthz", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), snap.ID.String()) {
		t.Fatalf("unexpected health response %d %s", rr.Code, rr.Body.String())
	}
}
