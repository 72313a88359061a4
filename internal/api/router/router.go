package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/ezekaj/elo-deu/internal/http/middleware"
	"github.com/ezekaj/elo-deu/internal/tools"
	"github.com/ezekaj/elo-deu/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger         *logging.Logger
	ToolsHandler   *tools.Handler
	MetricsHandler http.Handler
}

// New creates the Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}
	if cfg.ToolsHandler != nil {
		r.Mount("/tools", cfg.ToolsHandler.Routes())
	}

	return r
}
