// internal/overdue/handler.go
package overdue

import (
	"net/http"

	"scantrack/pkg/httpx"
	"scantrack/pkg/logger"
)

type Handler struct {
	monitor *Monitor
	logg    *logger.Logger
}

func NewHandler(monitor *Monitor, logg *logger.Logger) *Handler {
	return &Handler{monitor: monitor, logg: logg}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	items, hours, err := h.monitor.Check(r.Context())
	if err != nil {
		httpx.WriteError(r.Context(), h.logg, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"threshold_hours": hours,
		"count":           len(items),
		"items":           items,
	})
}

func (h *Handler) HandleDepartments(w http.ResponseWriter, r *http.Request) {
	stats, err := h.monitor.Departments(r.Context())
	if err != nil {
		httpx.WriteError(r.Context(), h.logg, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, stats)
}
