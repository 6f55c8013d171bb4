package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/labcas-project/labcas-gateway/internal/directory"
	"github.com/labcas-project/labcas-gateway/internal/events"
	"github.com/labcas-project/labcas-gateway/internal/platform/httpx"
	"github.com/labcas-project/labcas-gateway/internal/session"
)

// Handler wires HTTP endpoints for token issuance and logout.
type Handler struct {
	logger     *slog.Logger
	directory  directory.Provider
	sessions   *session.Manager
	resolver   *Resolver
	dispatcher *events.Dispatcher
	validator  *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, dir directory.Provider, sessions *session.Manager, resolver *Resolver, dispatcher *events.Dispatcher) *Handler {
	return &Handler{
		logger:     logger,
		directory:  dir,
		sessions:   sessions,
		resolver:   resolver,
		dispatcher: dispatcher,
		validator:  validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/auth", h.handleAuth)
	r.Get("/logout", h.handleLogout)
}

type credentialForm struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

// handleAuth authenticates form or Basic credentials and returns a
// signed token as a text/plain body.
func (h *Handler) handleAuth(w http.ResponseWriter, r *http.Request) {
	form, err := h.extractCredentials(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	user, err := h.directory.Authenticate(r.Context(), form.Username, form.Password)
	if err != nil {
		h.logger.Error("directory authentication failed", slog.Any("error", err))
		httpx.RespondError(w, fmt.Errorf("%w: directory unavailable", httpx.ErrUpstream))
		return
	}
	if user == nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid username or password", httpx.ErrUnauthorized))
		return
	}

	token, err := h.sessions.Issue(r.Context(), user.DN, nil)
	if err != nil {
		h.logger.Error("issue token", slog.Any("error", err))
		httpx.RespondError(w, fmt.Errorf("%w: session store unavailable", httpx.ErrUpstream))
		return
	}

	h.logger.Info("issued token", slog.String("subject", user.DN))
	h.dispatcher.Dispatch(events.AuthIssued, map[string]any{"subject": user.DN})
	httpx.PlainText(w, http.StatusOK, token)
}

// handleLogout revokes the session named by the sessionID parameter.
// The caller must be authenticated; revocation itself is idempotent.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sc, err := h.resolver.Require(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	sessionID := r.URL.Query().Get("sessionID")
	if sessionID == "" {
		httpx.RespondError(w, fmt.Errorf("%w: sessionID is required", httpx.ErrValidation))
		return
	}

	if err := h.sessions.Revoke(r.Context(), sessionID); err != nil {
		h.logger.Error("revoke session", slog.Any("error", err))
		httpx.RespondError(w, fmt.Errorf("%w: session store unavailable", httpx.ErrUpstream))
		return
	}

	h.logger.Info("revoked session", slog.String("session", sessionID), slog.String("subject", sc.Subject))
	h.dispatcher.Dispatch(events.AuthRevoked, map[string]any{"subject": sc.Subject, "session": sessionID})
	httpx.JSON(w, http.StatusOK, map[string]string{
		"status":  "logged out",
		"message": "Session invalidated",
	})
}

func (h *Handler) extractCredentials(r *http.Request) (*credentialForm, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("%w: malformed form body", httpx.ErrValidation)
	}

	form := &credentialForm{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}
	if form.Username == "" || form.Password == "" {
		if encoded, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Basic "); ok {
			username, password, err := decodeBasic(encoded)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid authentication header", httpx.ErrUnauthorized)
			}
			form.Username, form.Password = username, password
		}
	}

	if err := h.validator.Struct(form); err != nil {
		return nil, fmt.Errorf("%w: authentication required", httpx.ErrUnauthorized)
	}
	return form, nil
}
