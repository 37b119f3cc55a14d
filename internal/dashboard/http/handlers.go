package dashboardhttp

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/observatorio-ti/observatorio/internal/dashboard"
	"github.com/observatorio-ti/observatorio/internal/dashboard/export"
	"github.com/observatorio-ti/observatorio/internal/dashboard/svg"
	"github.com/observatorio-ti/observatorio/internal/dashboard/ui"
	"github.com/observatorio-ti/observatorio/internal/platform/httpx"
	"github.com/observatorio-ti/observatorio/internal/view"
)

const pageTitle = "Observatório · Evasão de TI"

// DashboardState is the read side of the dashboard state used by the handler.
type DashboardState interface {
	Current() (dashboard.Status, *dashboard.View)
	CurrentResolved(req dashboard.FilterRequest) (dashboard.Status, *dashboard.View, dashboard.Filters)
}

// Handler serves the departures dashboard page, its JSON view and CSV exports.
type Handler struct {
	logger    *slog.Logger
	state     DashboardState
	templates *view.Engine
	line      ui.LineRenderer
	bar       ui.BarRenderer
	validate  *validator.Validate
	basePath  string
	csvPool   sync.Pool
}

// NewHandler constructs the dashboard HTTP handler.
func NewHandler(logger *slog.Logger, state DashboardState, templates *view.Engine, line ui.LineRenderer, bar ui.BarRenderer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		logger:    logger,
		state:     state,
		templates: templates,
		line:      line,
		bar:       bar,
		validate:  validator.New(),
		basePath:  "/",
	}
	h.csvPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

// WithBasePath sets the deployment sub-path used to build links.
func (h *Handler) WithBasePath(basePath string) *Handler {
	if basePath != "" {
		h.basePath = basePath
	}
	return h
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseFilters(r)
	if err != nil {
		h.handleFilterError(w, err)
		return
	}

	status, current, filters := h.state.CurrentResolved(req)
	vm := ui.Build(status, current, filters)
	if vm.State == ui.StateReady {
		if err := h.renderCharts(&vm); err != nil {
			h.handleServerError(w, "render charts", err)
			return
		}
	}

	code := http.StatusOK
	if vm.State != ui.StateReady {
		code = http.StatusServiceUnavailable
	}
	data := view.TemplateData{
		Title:       pageTitle,
		BasePath:    h.basePath,
		CurrentPath: r.URL.Path,
		Data:        vm,
	}
	if err := h.templates.RenderStatus(w, code, "pages/dashboard.html", data); err != nil {
		h.handleServerError(w, "render template", err)
	}
}

type apiPayload struct {
	Status   string            `json:"status"`
	Error    string            `json:"error,omitempty"`
	LoadedAt time.Time         `json:"loaded_at"`
	Filters  dashboard.Filters `json:"filters"`
	View     *dashboard.View   `json:"view"`
}

func (h *Handler) handleAPI(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	status, current, filters := h.state.CurrentResolved(req)
	if !status.Loaded {
		respondNotLoaded(w, status)
		return
	}
	payload := apiPayload{
		Status:   ui.StateReady,
		LoadedAt: status.LoadedAt,
		Filters:  filters,
		View:     current,
	}
	if status.Err != nil {
		payload.Error = status.Err.Error()
	}
	httpx.JSON(w, http.StatusOK, payload)
}

func (h *Handler) handleCSV(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseFilters(r)
	if err != nil {
		h.handleFilterError(w, err)
		return
	}
	status, current, filters := h.state.CurrentResolved(req)
	if !status.Loaded {
		respondNotLoaded(w, status)
		return
	}
	kind := chi.URLParam(r, "kind")

	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()

	ok, err := export.Write(buf, kind, current, filters)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.handleServerError(w, "write csv", err)
		return
	}

	filename := fmt.Sprintf("evasao-ti-%s-%s.csv", kind, status.LoadedAt.Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream csv", err)
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, _ := h.state.Current()
	if !status.Loaded {
		respondNotLoaded(w, status)
		return
	}
	body := map[string]any{
		"status":    "ok",
		"snapshot":  status.SnapshotID.String(),
		"loaded_at": status.LoadedAt,
	}
	if status.Err != nil {
		body["last_error"] = status.Err.Error()
	}
	httpx.JSON(w, http.StatusOK, body)
}

func respondNotLoaded(w http.ResponseWriter, status dashboard.Status) {
	if status.Err != nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Dataset Unavailable", status.Err.Error())
		return
	}
	httpx.Problem(w, http.StatusServiceUnavailable, "Loading", "dataset not loaded yet")
}

func (h *Handler) parseFilters(r *http.Request) (dashboard.FilterRequest, error) {
	q := r.URL.Query()
	req := dashboard.FilterRequest{
		Filters: dashboard.Filters{
			Start:       strings.TrimSpace(q.Get("start")),
			End:         strings.TrimSpace(q.Get("end")),
			Origin:      strings.TrimSpace(q.Get("origin")),
			Destination: strings.TrimSpace(q.Get("destination")),
		},
		SnapshotID: strings.TrimSpace(q.Get("snapshot")),
	}
	if err := h.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return dashboard.FilterRequest{}, validationError{field: strings.ToLower(fieldErrs[0].Field())}
		}
		return dashboard.FilterRequest{}, err
	}
	return req, nil
}

func (h *Handler) renderCharts(vm *ui.DashboardViewModel) error {
	if h.line == nil || h.bar == nil {
		return fmt.Errorf("svg renderer missing")
	}
	line, err := h.line.Line(svg.DefaultWidth, svg.DefaultHeight, ui.ToLinePoints(vm.Series), svg.LineOpts{
		Title:       "Evolução mensal",
		Description: "Evasões confirmadas por mês",
		ShowDots:    true,
	})
	if err != nil && !errors.Is(err, svg.ErrNoData) {
		return err
	}
	vm.SeriesSVG = line

	dest, err := h.bar.HBars(svg.DefaultWidth, ui.ToBarItems(vm.Destinations), svg.BarOpts{
		Title:       "Top destinos (fora do Judiciário)",
		Description: "Destinos com mais evasões, em ordem decrescente",
	})
	if err != nil && !errors.Is(err, svg.ErrNoData) {
		return err
	}
	vm.DestSVG = dest

	origin, err := h.bar.HBars(svg.DefaultWidth, ui.ToBarItems(vm.Origins), svg.BarOpts{
		Title:       "Evasões (origem)",
		Description: "Órgãos de origem em ordem decrescente de evasões",
		Color:       "#b45309",
		LabelWidth:  160,
	})
	if err != nil && !errors.Is(err, svg.ErrNoData) {
		return err
	}
	vm.OriginSVG = origin
	return nil
}

func (h *Handler) handleFilterError(w http.ResponseWriter, err error) {
	var vErr validationError
	if errors.As(err, &vErr) {
		http.Error(w, "Parâmetro inválido: "+vErr.field, http.StatusBadRequest)
		return
	}
	h.handleServerError(w, "parse filters", err)
}

func (h *Handler) handleServerError(w http.ResponseWriter, context string, err error) {
	h.logError(context, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (h *Handler) logError(context string, err error) {
	h.logger.Error(context, slog.Any("error", err))
}

type validationError struct {
	field string
}

func (v validationError) Error() string {
	return fmt.Sprintf("invalid %s", v.field)
}
