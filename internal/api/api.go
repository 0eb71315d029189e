package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"simustock/pkg/simustock"
)

// SessionHeader carries the caller's session id; a new search in the same
// session supersedes the previous one.
const SessionHeader = "X-Session-ID"

// Options configures the router. The zero value allows any origin and logs
// through the core's logger.
type Options struct {
	AllowedOrigins []string
	Logger         *slog.Logger
	// DataDir is reported by /api/storage.
	DataDir string
	// ExposeRawHistory honours include_raw on the history endpoint. Raw
	// upstream text is diagnostic and stays hidden unless an operator opts in.
	ExposeRawHistory bool
}

// NewRouter builds the HTTP API router.
func NewRouter(core *simustock.Core, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = core.Logger()
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Compress(5, "application/json"))
	// Handlers must see the logging writer so error detail reaches the log.
	r.Use(requestLoggingMiddleware(logger))
	r.Use(recoveryLoggingMiddleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", SessionHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	h := &handler{core: core, logger: logger, dataDir: opts.DataDir, exposeRaw: opts.ExposeRawHistory}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.health)
		r.Get("/presets", h.getPresets)
		r.Get("/locale", h.getLocale)
		r.Get("/storage", h.getStorageInfo)

		// Insights
		r.Post("/insights", h.searchInsight)
		r.Get("/insights/history", h.getInsightHistory)

		// Favorites
		r.Get("/favorites", h.getFavorites)
		r.Put("/favorites", h.setFavorites)
		r.Post("/favorites/{ticker}", h.addFavorite)
		r.Delete("/favorites/{ticker}", h.removeFavorite)

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeErrorResponse(w, r, h.locale(), simustock.NewError(simustock.ErrCodeNotFound, "route not found"))
		})
	})

	return r
}

type handler struct {
	core      *simustock.Core
	logger    *slog.Logger
	dataDir   string
	exposeRaw bool
}

func (h *handler) locale() *simustock.Locale {
	if h.core == nil {
		return simustock.DefaultLocale()
	}
	return h.core.Locale()
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
