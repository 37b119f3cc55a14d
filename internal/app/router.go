package app

import (
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	dashboardhttp "github.com/observatorio-ti/observatorio/internal/dashboard/http"
	"github.com/observatorio-ti/observatorio/internal/observability"
	"github.com/observatorio-ti/observatorio/jobs"
	"github.com/observatorio-ti/observatorio/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	DashboardHandler *dashboardhttp.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
	// DataFS overrides where the aggregate files are served from.
	DataFS fs.FS
}

// NewRouter constructs the chi.Router. Every route lives under the configured base path.
func NewRouter(params RouterParams) http.Handler {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := params.Config
	if cfg == nil {
		cfg = &Config{}
	}
	base := NormalizeBasePath(cfg.BasePath)

	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  logger,
		Config:  cfg,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	mount := func(sub chi.Router) {
		if params.DashboardHandler != nil {
			params.DashboardHandler.MountRoutes(sub)
		}
		if params.JobHandler != nil {
			sub.Route("/jobs", params.JobHandler.MountRoutes)
		}
		if params.Metrics != nil {
			sub.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
		}

		dataFS, err := resolveDataFS(params.DataFS, cfg.DataDir)
		if err != nil {
			logger.Error("create data filesystem", slog.Any("error", err))
		} else {
			fileServer := http.StripPrefix(base+"data/", http.FileServer(http.FS(dataFS)))
			sub.Handle("/data/*", noStoreHandler(fileServer))
		}

		staticFS, err := fs.Sub(web.Static, "static")
		if err != nil {
			logger.Error("create static sub filesystem", slog.Any("error", err))
		} else {
			fileServer := http.StripPrefix(base+"static/", http.FileServer(http.FS(staticFS)))
			sub.Handle("/static/*", staticCacheHandler(fileServer))
		}
	}

	if base == "/" {
		mount(r)
		return r
	}
	r.Route(strings.TrimSuffix(base, "/"), mount)
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, base, http.StatusFound)
	})
	return r
}

func resolveDataFS(override fs.FS, dir string) (fs.FS, error) {
	if override != nil {
		return override, nil
	}
	if dir != "" {
		return os.DirFS(dir), nil
	}
	return fs.Sub(web.SampleData, "data")
}

// noStoreHandler marks the aggregate files as uncacheable.
func noStoreHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// staticCacheHandler wraps a file server with Cache-Control headers.
// Static assets are cached for 1 hour in browser.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
