package items

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/shelfline/shelfline/internal/platform/httpx"
	"github.com/shelfline/shelfline/internal/shared"
)

// Handler wires HTTP endpoints for the lifecycle engine.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	devMode  bool
}

// NewHandler constructs the items handler.
func NewHandler(logger *slog.Logger, service *Service, devMode bool) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		devMode:  devMode,
	}
}

// MountRoutes registers item routes. The intake route is mounted separately
// at POST /intake by the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Patch("/bulk-location", h.handleBulkLocation)
	r.Post("/update-dates", h.handleBulkDates)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Patch("/", h.handlePatch)
		r.Delete("/", h.handleDelete)
		r.Put("/putaway", h.handlePutaway)
		r.Post("/list", h.handleListItem)
		r.Put("/status", h.handleChangeStatus)
		r.Get("/history", h.handleHistory)
		r.Get("/listings", h.handleListings)
	})
}

// HandleIntake serves POST /intake.
func (h *Handler) HandleIntake(w http.ResponseWriter, r *http.Request) {
	var req intakeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if details := h.validationDetails(req); details != nil {
		httpx.FailValidation(w, details)
		return
	}
	item, err := h.service.Intake(r.Context(), IntakeInput{
		Barcode:   req.Barcode,
		CostCents: req.Cost,
		Grade:     req.Grade,
		Notes:     req.Notes,
		Title:     req.Title,
		Author:    req.Author,
		Publisher: req.Publisher,
		PubYear:   req.PubYear,
		Binding:   req.Binding,
		ImageRef:  req.ImageRef,
		Tags:      req.Tags,
	})
	if err != nil {
		h.respondError(w, r, "intake", err)
		return
	}
	httpx.OK(w, http.StatusCreated, toItemResponse(item))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}
	item, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "get item", err)
		return
	}
	httpx.OK(w, http.StatusOK, toItemResponse(item))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		Barcode:        q.Get("barcode"),
		LocationPrefix: q.Get("location"),
	}
	if s := q.Get("status"); s != "" {
		status := Status(s)
		if !status.Valid() {
			httpx.Fail(w, http.StatusBadRequest, "unknown status "+s)
			return
		}
		filter.Status = status
	}
	if s := q.Get("lot"); s != "" {
		lot, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			httpx.Fail(w, http.StatusBadRequest, "invalid lot number")
			return
		}
		filter.LotNumber = lot
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PerPage, _ = strconv.Atoi(q.Get("perPage"))

	list, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, "list items", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{
		"items":      toItemResponses(list),
		"pagination": shared.NewPagination(filter.Page, filter.PerPage, total),
	})
}

func (h *Handler) handlePutaway(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}
	var req putawayRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if details := h.validationDetails(req); details != nil {
		httpx.FailValidation(w, details)
		return
	}
	item, err := h.service.Putaway(r.Context(), id, req.Location)
	if err != nil {
		h.respondError(w, r, "putaway", err)
		return
	}
	httpx.OK(w, http.StatusOK, toItemResponse(item))
}

func (h *Handler) handleListItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}
	var req listRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if details := h.validationDetails(req); details != nil {
		httpx.FailValidation(w, details)
		return
	}
	listing, err := h.service.ListItem(r.Context(), id, ListInput{
		Channel:    req.Channel,
		ExternalID: req.ExternalID,
		PriceCents: req.Price,
	})
	if err != nil {
		h.respondError(w, r, "list item", err)
		return
	}
	httpx.OK(w, http.StatusCreated, toListingResponse(listing))
}

func (h *Handler) handleChangeStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}
	var req changeStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if details := h.validationDetails(req); details != nil {
		httpx.FailValidation(w, details)
		return
	}
	item, err := h.service.ChangeStatus(r.Context(), id, ChangeStatusInput{
		To:      Status(req.ToStatus),
		Channel: req.Channel,
		Note:    req.Note,
		Force:   req.Force,
	})
	if err != nil {
		h.respondError(w, r, "change status", err)
		return
	}
	httpx.OK(w, http.StatusOK, toItemResponse(item))
}

func (h *Handler) handlePatch(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}
	var req patchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Location == nil && req.Status == nil && req.Grade == nil && req.Notes == nil {
		httpx.Fail(w, http.StatusBadRequest, "at least one of location/status/grade/notes required")
		return
	}
	input := PatchInput{
		Location: req.Location,
		Grade:    req.Grade,
		Notes:    req.Notes,
		Channel:  req.Channel,
	}
	if req.Status != nil {
		status := Status(*req.Status)
		input.Status = &status
	}
	affected, err := h.service.Patch(r.Context(), id, input)
	if err != nil {
		h.respondError(w, r, "patch item", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{
		"items":    toItemResponses(affected),
		"affected": len(affected),
	})
}

func (h *Handler) handleBulkLocation(w http.ResponseWriter, r *http.Request) {
	var req bulkLocationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if details := h.validationDetails(req); details != nil {
		httpx.FailValidation(w, details)
		return
	}
	affected, err := h.service.BulkLocation(r.Context(), req.ItemIDs, req.Location)
	if err != nil {
		h.respondError(w, r, "bulk location", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{
		"items":    toItemResponses(affected),
		"affected": len(affected),
	})
}

func (h *Handler) handleBulkDates(w http.ResponseWriter, r *http.Request) {
	var req bulkDatesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if details := h.validationDetails(req); details != nil {
		httpx.FailValidation(w, details)
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		httpx.FailValidation(w, []httpx.FieldError{{Field: "date", Reason: "must be YYYY-MM-DD"}})
		return
	}
	affected, err := h.service.BulkDates(r.Context(), req.ItemIDs, DateType(req.DateType), date)
	if err != nil {
		h.respondError(w, r, "bulk dates", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{
		"items":    toItemResponses(affected),
		"affected": len(affected),
	})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, r, "delete item", err)
		return
	}
	httpx.OKMessage(w, http.StatusOK, "item deleted")
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}
	history, err := h.service.History(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "item history", err)
		return
	}
	httpx.OK(w, http.StatusOK, toHistoryResponses(history))
}

func (h *Handler) handleListings(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}
	listings, err := h.service.Listings(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "item listings", err)
		return
	}
	httpx.OK(w, http.StatusOK, toListingResponses(listings))
}

func (h *Handler) itemID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		httpx.Fail(w, http.StatusBadRequest, "invalid item id")
		return 0, false
	}
	return id, true
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
