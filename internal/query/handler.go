package query

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/labcas-project/labcas-gateway/internal/auth"
	"github.com/labcas-project/labcas-gateway/internal/catalog"
	"github.com/labcas-project/labcas-gateway/internal/platform/httpx"
)

// Handler exposes the pass-through select endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	resolver *auth.Resolver
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, resolver *auth.Resolver) *Handler {
	return &Handler{logger: logger, service: service, resolver: resolver}
}

// MountRoutes registers the select routes on the provided router.
// Collection and dataset metadata permit guest access; file metadata
// requires a logged-in user.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/collections/select", h.selectCore(catalog.CoreCollections))
	r.Get("/datasets/select", h.selectCore(catalog.CoreDatasets))
	r.Get("/files/select", h.selectFiles)
}

func (h *Handler) selectCore(core string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc := h.resolver.Resolve(r)
		result, err := h.service.Query(r.Context(), core, sc, r.URL.Query())
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, result)
	}
}

func (h *Handler) selectFiles(w http.ResponseWriter, r *http.Request) {
	sc, err := h.resolver.Require(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if sc.IsGuest() {
		httpx.RespondError(w, fmt.Errorf("%w: user login required to query file metadata", httpx.ErrUnauthorized))
		return
	}

	result, err := h.service.Query(r.Context(), catalog.CoreFiles, sc, r.URL.Query())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
