// internal/departments/handler.go
package departments

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
	mappings, err := h.service.List(r.Context())
	if err != nil {
		httpx.WriteError(r.Context(), h.logg, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, mappings)
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		httpx.WriteError(r.Context(), h.logg, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	barcode := chi.URLParam(r, "barcode")
	dept, ok, err := h.service.Resolve(r.Context(), barcode)
	if err != nil {
		httpx.WriteError(r.Context(), h.logg, w, err)
		return
	}
	if !ok {
		httpx.WriteError(r.Context(), h.logg, w, httpx.NotFound("no department for barcode", nil))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"barcode": barcode, "department": dept})
}

func (h *Handler) HandlePut(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Department string `json:"department" validate:"required"`
	}
	if err := httpx.DecodeJSONBody(r, &req); err != nil {
		httpx.WriteError(r.Context(), h.logg, w, err)
		return
	}

	m, err := h.service.Upsert(r.Context(), chi.URLParam(r, "prefix"), req.Department)
	if err != nil {
		if errors.Is(err, ErrInvalidMapping) {
			err = httpx.BadRequest(err.Error(), err)
		}
		httpx.WriteError(r.Context(), h.logg, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, m)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "prefix")); err != nil {
		if errors.Is(err, ErrMappingNotFound) {
			err = httpx.NotFound(err.Error(), err)
		}
		httpx.WriteError(r.Context(), h.logg, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
