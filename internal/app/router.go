package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/labcas-project/labcas-gateway/internal/auth"
	"github.com/labcas-project/labcas-gateway/internal/download"
	"github.com/labcas-project/labcas-gateway/internal/listing"
	"github.com/labcas-project/labcas-gateway/internal/observability"
	"github.com/labcas-project/labcas-gateway/internal/query"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	AuthHandler     *auth.Handler
	QueryHandler    *query.Handler
	ListingHandler  *listing.Handler
	DownloadHandler *download.Handler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router for the data access API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/data-access-api", func(r chi.Router) {
		params.AuthHandler.MountRoutes(r)
		params.QueryHandler.MountRoutes(r)
		params.ListingHandler.MountRoutes(r)
		params.DownloadHandler.MountRoutes(r)
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
