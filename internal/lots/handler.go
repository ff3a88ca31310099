package lots

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/shelfline/shelfline/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the lot manager.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	devMode  bool
}

// NewHandler constructs the lots handler.
func NewHandler(logger *slog.Logger, service *Service, devMode bool) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		devMode:  devMode,
	}
}

// MountRoutes registers lot routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Route("/{lotNumber}", func(r chi.Router) {
		r.Get("/", h.handleMembers)
		r.Delete("/", h.handleDissolve)
		r.Post("/remove", h.handleRemove)
	})
}

type createRequest struct {
	LotNumber int64   `json:"lotNumber" validate:"required,min=1"`
	ItemIDs   []int64 `json:"itemIds" validate:"required,min=1,dive,min=1"`
}

type removeRequest struct {
	ItemID int64 `json:"itemId" validate:"required,min=1"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if details := h.validationDetails(req); details != nil {
		httpx.FailValidation(w, details)
		return
	}
	members, err := h.service.Create(r.Context(), req.LotNumber, req.ItemIDs)
	if err != nil {
		h.respondError(w, r, "create lot", err)
		return
	}
	httpx.OK(w, http.StatusCreated, map[string]any{
		"lotNumber": req.LotNumber,
		"members":   members,
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	numbers, err := h.service.LotNumbers(r.Context())
	if err != nil {
		h.respondError(w, r, "list lots", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"lotNumbers": numbers})
}

func (h *Handler) handleMembers(w http.ResponseWriter, r *http.Request) {
	lot, ok := h.lotNumber(w, r)
	if !ok {
		return
	}
	members, err := h.service.Members(r.Context(), lot)
	if err != nil {
		h.respondError(w, r, "lot members", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{
		"lotNumber": lot,
		"members":   members,
	})
}

func (h *Handler) handleDissolve(w http.ResponseWriter, r *http.Request) {
	lot, ok := h.lotNumber(w, r)
	if !ok {
		return
	}
	released, err := h.service.Dissolve(r.Context(), lot)
	if err != nil {
		h.respondError(w, r, "dissolve lot", err)
		return
	}
	// Clients holding lot views should refetch.
	w.Header().Set("X-Lot-Stale", strconv.FormatInt(lot, 10))
	httpx.OK(w, http.StatusOK, map[string]any{
		"lotNumber": lot,
		"released":  released,
	})
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	lot, ok := h.lotNumber(w, r)
	if !ok {
		return
	}
	var req removeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if details := h.validationDetails(req); details != nil {
		httpx.FailValidation(w, details)
		return
	}
	result, err := h.service.RemoveMember(r.Context(), lot, req.ItemID)
	if err != nil {
		h.respondError(w, r, "remove lot member", err)
		return
	}
	if result.Empty {
		w.Header().Set("X-Lot-Stale", strconv.FormatInt(lot, 10))
	}
	httpx.OK(w, http.StatusOK, result)
}

func (h *Handler) lotNumber(w http.ResponseWriter, r *http.Request) (int64, bool) {
	lot, err := strconv.ParseInt(chi.URLParam(r, "lotNumber"), 10, 64)
	if err != nil || lot < 1 {
		httpx.Fail(w, http.StatusBadRequest, "invalid lot number")
		return 0, false
	}
	return lot, true
}

func (h *Handler) validationDetails(req any) []httpx.FieldError {
	err := h.validate.Struct(req)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []httpx.FieldError{{Field: "body", Reason: err.Error()}}
	}
	details := make([]httpx.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, httpx.FieldError{Field: fe.Field(), Reason: fe.Tag()})
	}
	return details
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Error(op+" failed", slog.Any("error", err), slog.String("path", r.URL.Path))
	httpx.RespondError(w, err, h.devMode)
}
