// internal/serial/handler.go
package serial

import (
	"errors"
	"net/http"

	"scantrack/pkg/httpx"
	"scantrack/pkg/logger"
)

type Handler struct {
	reader *Reader
	logg   *logger.Logger
}

func NewHandler(reader *Reader, logg *logger.Logger) *Handler {
	return &Handler{reader: reader, logg: logg}
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.reader.Status())
}

func (h *Handler) HandlePorts(w http.ResponseWriter, r *http.Request) {
	ports, err := h.reader.Ports()
	if err != nil {
		httpx.WriteError(r.Context(), h.logg, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"ports": ports})
}

type openRequest struct {
	Port string `json:"port" validate:"required"`
	Baud int    `json:"baud" validate:"required,min=1"`
}

func (h *Handler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := httpx.DecodeJSONBody(r, &req); err != nil {
		httpx.WriteError(r.Context(), h.logg, w, err)
		return
	}

	status, err := h.reader.Open(r.Context(), req.Port, req.Baud)
	if err != nil {
		httpx.WriteError(r.Context(), h.logg, w, mapError(err))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, status)
}

func (h *Handler) HandleClose(w http.ResponseWriter, r *http.Request) {
	if err := h.reader.Close(); err != nil {
		h.logg.Error(r.Context(), "serial close reported an error", err)
	}
	httpx.WriteJSON(w, http.StatusOK, h.reader.Status())
}

func mapError(err error) error {
	if errors.Is(err, ErrInvalidPort) || errors.Is(err, ErrInvalidBaud) {
		return httpx.BadRequest(err.Error(), err)
	}
	return httpx.NewError(http.StatusBadGateway, "serial_open_failed", err.Error(), err)
}
