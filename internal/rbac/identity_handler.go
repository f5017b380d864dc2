package rbac

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-wms/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-wms/internal/shared"
)

// IdentityHandler reports who the current session belongs to.
type IdentityHandler struct {
	logger  *slog.Logger
	service *Service
}

// NewIdentityHandler builds an IdentityHandler.
func NewIdentityHandler(logger *slog.Logger, service *Service) *IdentityHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &IdentityHandler{logger: logger, service: service}
}

// MountRoutes registers identity routes.
func (h *IdentityHandler) MountRoutes(r chi.Router) {
	r.Get("/me", h.me)
}

func (h *IdentityHandler) me(w http.ResponseWriter, r *http.Request) {
	userID, ok := shared.UserIDFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	identity, err := h.service.Identify(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		h.logger.Error("identify user", slog.Int64("user_id", userID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, identity)
}
