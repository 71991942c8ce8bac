// internal/session/handler.go
package session

import (
	"net/http"

	"scantrack/pkg/httpx"
)

type Handler struct {
	controller *Controller
}

func NewHandler(controller *Controller) *Handler {
	return &Handler{controller: controller}
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.controller.Snapshot())
}

func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	h.controller.StartManual(r.Context())
	httpx.WriteJSON(w, http.StatusOK, h.controller.Snapshot())
}

func (h *Handler) HandleStop(w http.ResponseWriter, r *http.Request) {
	h.controller.Stop(r.Context())
	httpx.WriteJSON(w, http.StatusOK, h.controller.Snapshot())
}
