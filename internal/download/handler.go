package download

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/labcas-project/labcas-gateway/internal/auth"
	"github.com/labcas-project/labcas-gateway/internal/events"
	"github.com/labcas-project/labcas-gateway/internal/platform/httpx"
)

// streamChunkSize is the buffer size used when streaming local files.
const streamChunkSize = 8192

// Handler exposes the download endpoint.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	resolver   *auth.Resolver
	dispatcher *events.Dispatcher
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, resolver *auth.Resolver, dispatcher *events.Dispatcher) *Handler {
	return &Handler{logger: logger, service: service, resolver: resolver, dispatcher: dispatcher}
}

// MountRoutes registers the download route on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/download", h.handleDownload)
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	sc, err := h.resolver.Require(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	fileID := r.URL.Query().Get("id")
	if fileID == "" {
		httpx.RespondError(w, fmt.Errorf("%w: id is required", httpx.ErrValidation))
		return
	}
	suppressDisposition, _ := strconv.ParseBool(r.URL.Query().Get("suppressContentDisposition"))

	resolution, err := h.service.Resolve(r.Context(), sc, fileID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	h.dispatcher.Dispatch(events.DownloadResolved, map[string]any{
		"subject": sc.Subject,
		"id":      fileID,
	})

	if resolution.Mode == ModeRedirect {
		h.logger.Info("redirecting to object storage", slog.String("id", fileID))
		http.Redirect(w, r, resolution.URL, http.StatusTemporaryRedirect)
		return
	}

	h.stream(w, resolution, suppressDisposition)
}

func (h *Handler) stream(w http.ResponseWriter, res *Resolution, suppressDisposition bool) {
	f, err := os.Open(res.LocalPath)
	if err != nil {
		h.logger.Warn("open local file", slog.String("path", res.LocalPath), slog.Any("error", err))
		httpx.RespondError(w, fmt.Errorf("%w: file not found on server", httpx.ErrNotFound))
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", res.MediaType)
	w.Header().Set("Content-Length", strconv.FormatInt(res.Size, 10))
	if !suppressDisposition {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.FileName))
	}
	w.WriteHeader(http.StatusOK)

	buf := make([]byte, streamChunkSize)
	if _, err := io.CopyBuffer(w, f, buf); err != nil {
		// Headers are already out; nothing to do but log the broken pipe.
		h.logger.Warn("stream interrupted", slog.String("path", res.LocalPath), slog.Any("error", err))
	}
}
