// internal/ledger/handler.go
package ledger

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"scantrack/pkg/httpx"
	"scantrack/pkg/logger"
)

const defaultLogLimit = 100

type Handler struct {
	service Service
	logg    *logger.Logger
}

func NewHandler(service Service, logg *logger.Logger) *Handler {
	return &Handler{service: service, logg: logg}
}

func (h *Handler) HandleForceCheckIn(w http.ResponseWriter, r *http.Request) {
	h.force(w, r, h.service.ForceCheckIn)
}

func (h *Handler) HandleForceCheckOut(w http.ResponseWriter, r *http.Request) {
	h.force(w, r, h.service.ForceCheckOut)
}

func (h *Handler) force(w http.ResponseWriter, r *http.Request, fn func(context.Context, string) (Result, error)) {
	res, err := fn(r.Context(), chi.URLParam(r, "barcode"))
	if err != nil {
		httpx.WriteError(r.Context(), h.logg, w, MapError(err))
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, res)
}

func (h *Handler) HandleCheckedOut(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.CheckedOutItems(r.Context())
	if err != nil {
		httpx.WriteError(r.Context(), h.logg, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) HandleLogs(w http.ResponseWriter, r *http.Request) {
	limit := defaultLogLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httpx.WriteError(r.Context(), h.logg, w, httpx.BadRequest("limit must be a non-negative integer", err))
			return
		}
		limit = n
	}

	events, err := h.service.RecentEvents(r.Context(), limit)
	if err != nil {
		httpx.WriteError(r.Context(), h.logg, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, events)
}

func (h *Handler) HandleAudit(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Audit(r.Context())
	if err != nil {
		httpx.WriteError(r.Context(), h.logg, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, report)
}

// MapError translates ledger errors into HTTP errors.
func MapError(err error) error {
	switch {
	case errors.Is(err, ErrUnknownDepartment):
		return httpx.Unprocessable("barcode does not match any department", err)
	case errors.Is(err, ErrEmptyBarcode):
		return httpx.BadRequest(err.Error(), err)
	}
	return err
}
