package catalog

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shelfline/shelfline/internal/platform/httpx"
)

// Handler serves catalog lookups.
type Handler struct {
	logger  *slog.Logger
	service *Service
	devMode bool
}

// NewHandler constructs the catalog handler.
func NewHandler(logger *slog.Logger, service *Service, devMode bool) *Handler {
	return &Handler{logger: logger, service: service, devMode: devMode}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{barcode}", h.handleGet)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Get(r.Context(), chi.URLParam(r, "barcode"))
	if err != nil {
		h.logger.Error("catalog get failed", slog.Any("error", err))
		httpx.RespondError(w, err, h.devMode)
		return
	}
	httpx.OK(w, http.StatusOK, rec)
}
