package cogs

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shelfline/shelfline/internal/platform/httpx"
)

// Handler wires the read-only COGS endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	devMode bool
}

// NewHandler constructs the cogs handler.
func NewHandler(logger *slog.Logger, service *Service, devMode bool) *Handler {
	return &Handler{logger: logger, service: service, devMode: devMode}
}

// MountRoutes registers cogs routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/summary", h.handleSummary)
	r.Get("/monthly", h.handleMonthly)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.logger.Error("cogs summary failed", slog.Any("error", err))
		httpx.RespondError(w, err, h.devMode)
		return
	}
	httpx.OK(w, http.StatusOK, summary)
}

func (h *Handler) handleMonthly(w http.ResponseWriter, r *http.Request) {
	year := 0
	if s := r.URL.Query().Get("year"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil || parsed < 1900 || parsed > 9999 {
			httpx.Fail(w, http.StatusBadRequest, "invalid year")
			return
		}
		year = parsed
	}
	monthly, err := h.service.Monthly(r.Context(), year)
	if err != nil {
		h.logger.Error("cogs monthly failed", slog.Any("error", err))
		httpx.RespondError(w, err, h.devMode)
		return
	}
	httpx.OK(w, http.StatusOK, monthly)
}
