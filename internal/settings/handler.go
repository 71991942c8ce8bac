// internal/settings/handler.go
package settings

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"scantrack/pkg/httpx"
	"scantrack/pkg/logger"
)

type Handler struct {
	service Service
	logg    *logger.Logger
}

func NewHandler(service Service, logg *logger.Logger) *Handler {
	return &Handler{service: service, logg: logg}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.All(r.Context())
	if err != nil {
		httpx.WriteError(r.Context(), h.logg, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, all)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	value, err := h.service.Get(r.Context(), key)
	if err != nil {
		httpx.WriteError(r.Context(), h.logg, w, mapError(err))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, Setting{Key: key, Value: value})
}

func (h *Handler) HandlePut(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value *string `json:"value" validate:"required"`
	}
	if err := httpx.DecodeJSONBody(r, &req); err != nil {
		httpx.WriteError(r.Context(), h.logg, w, err)
		return
	}

	key := chi.URLParam(r, "key")
	if err := h.service.Set(r.Context(), key, *req.Value); err != nil {
		httpx.WriteError(r.Context(), h.logg, w, mapError(err))
		return
	}
	value, err := h.service.Get(r.Context(), key)
	if err != nil {
		httpx.WriteError(r.Context(), h.logg, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, Setting{Key: key, Value: value})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrUnknownSetting):
		return httpx.NotFound(err.Error(), err)
	case errors.Is(err, ErrInvalidValue):
		return httpx.BadRequest(err.Error(), err)
	}
	return err
}
