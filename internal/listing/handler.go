package listing

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/labcas-project/labcas-gateway/internal/auth"
	"github.com/labcas-project/labcas-gateway/internal/platform/httpx"
)

// Handler exposes the newline-delimited list endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	resolver *auth.Resolver
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, resolver *auth.Resolver) *Handler {
	return &Handler{logger: logger, service: service, resolver: resolver}
}

// MountRoutes registers the list routes on the provided router. All
// three permit guest access; visibility is bounded by the access
// filter.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/collections/list", h.listWith(h.service.ListCollections))
	r.Get("/datasets/list", h.listWith(h.service.ListDatasets))
	r.Get("/files/list", h.listWith(h.service.ListFiles))
}

type listFunc func(ctx context.Context, sc *auth.Context, query string, filters []string, start, rows int) (string, error)

func (h *Handler) listWith(list listFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc := h.resolver.Resolve(r)
		params := r.URL.Query()

		query := params.Get("q")
		if query == "" {
			query = "*:*"
		}
		start := parseIntDefault(params.Get("start"), 0)
		rows := parseIntDefault(params.Get("rows"), 1)

		content, err := list(r.Context(), sc, query, params["fq"], start, rows)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		httpx.PlainText(w, http.StatusOK, content)
	}
}

func parseIntDefault(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
