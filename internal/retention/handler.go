// internal/retention/handler.go
package retention

import (
	"context"
	"errors"
	"net/http"

	"scantrack/pkg/httpx"
	"scantrack/pkg/logger"
)

type Handler struct {
	service *Service
	days    int
	logg    *logger.Logger
}

func NewHandler(service *Service, days int, logg *logger.Logger) *Handler {
	if days <= 0 {
		days = DefaultDaysToKeep
	}
	return &Handler{service: service, days: days, logg: logg}
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		httpx.WriteError(r.Context(), h.logg, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"total_events": stats.TotalEvents,
		"oldest":       stats.Oldest,
		"newest":       stats.Newest,
		"days_to_keep": h.days,
	})
}

func (h *Handler) HandleArchive(w http.ResponseWriter, r *http.Request) {
	h.trim(w, r, h.service.Archive)
}

func (h *Handler) HandleCleanup(w http.ResponseWriter, r *http.Request) {
	h.trim(w, r, h.service.Cleanup)
}

func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.Clear(r.Context())
	if err != nil {
		httpx.WriteError(r.Context(), h.logg, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"deleted": n})
}

type trimRequest struct {
	DaysToKeep int `json:"days_to_keep" validate:"omitempty,min=1"`
}

func (h *Handler) trim(w http.ResponseWriter, r *http.Request, fn func(context.Context, int) (int64, error)) {
	var req trimRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSONBody(r, &req); err != nil {
			httpx.WriteError(r.Context(), h.logg, w, err)
			return
		}
	}
	days := req.DaysToKeep
	if days == 0 {
		days = h.days
	}

	n, err := fn(r.Context(), days)
	if err != nil {
		if errors.Is(err, ErrInvalidDays) {
			err = httpx.BadRequest(err.Error(), err)
		}
		httpx.WriteError(r.Context(), h.logg, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"deleted": n, "days_to_keep": days})
}
