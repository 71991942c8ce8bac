// internal/admin/handler.go
package admin

import (
	"errors"
	"net/http"

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

// Require rejects requests without a valid PIN header once a PIN is configured.
func (h *Handler) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h.service.Verify(r.Context(), r.Header.Get(HeaderPIN)); err != nil {
			httpx.WriteError(r.Context(), h.logg, w, mapError(err))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	enabled, err := h.service.Enabled(r.Context())
	if err != nil {
		httpx.WriteError(r.Context(), h.logg, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"pin_enabled": enabled})
}

// HandleSetPIN is mounted behind Require so only the current admin can rotate the PIN.
func (h *Handler) HandleSetPIN(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PIN string `json:"pin" validate:"required,min=4"`
	}
	if err := httpx.DecodeJSONBody(r, &req); err != nil {
		httpx.WriteError(r.Context(), h.logg, w, err)
		return
	}
	if err := h.service.SetPIN(r.Context(), req.PIN); err != nil {
		httpx.WriteError(r.Context(), h.logg, w, mapError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidPIN):
		return httpx.NewError(http.StatusUnauthorized, "unauthorized", err.Error(), err)
	case errors.Is(err, ErrRateLimited):
		return httpx.NewError(http.StatusTooManyRequests, "rate_limited", err.Error(), err)
	case errors.Is(err, ErrPINTooShort):
		return httpx.BadRequest(err.Error(), err)
	}
	return err
}
