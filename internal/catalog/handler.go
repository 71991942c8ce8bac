// internal/catalog/handler.go
package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"scantrack/pkg/httpx"
	"scantrack/pkg/logger"
)

// maxImportBytes bounds an uploaded name list.
const maxImportBytes = 4 << 20

type Handler struct {
	service Service
	logg    *logger.Logger
}

func NewHandler(service Service, logg *logger.Logger) *Handler {
	return &Handler{service: service, logg: logg}
}

func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httpx.WriteError(r.Context(), h.logg, w, httpx.BadRequest("limit must be a non-negative integer", err))
			return
		}
		limit = n
	}

	items, err := h.service.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		httpx.WriteError(r.Context(), h.logg, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	barcode := chi.URLParam(r, "barcode")
	item, err := h.service.Get(r.Context(), barcode)
	if err != nil {
		httpx.WriteError(r.Context(), h.logg, w, mapError(err))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"barcode":      item.Barcode,
		"name":         item.Name,
		"display_name": h.service.DisplayName(r.Context(), barcode),
		"updated_at":   item.UpdatedAt,
	})
}

func (h *Handler) HandlePut(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name" validate:"required,max=200"`
	}
	if err := httpx.DecodeJSONBody(r, &req); err != nil {
		httpx.WriteError(r.Context(), h.logg, w, err)
		return
	}

	item, err := h.service.Set(r.Context(), chi.URLParam(r, "barcode"), req.Name)
	if err != nil {
		httpx.WriteError(r.Context(), h.logg, w, mapError(err))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Remove(r.Context(), chi.URLParam(r, "barcode")); err != nil {
		httpx.WriteError(r.Context(), h.logg, w, mapError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleImport accepts a plain text body of "BARCODE name" lines.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Import(r.Context(), http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = httpx.NewError(http.StatusRequestEntityTooLarge, "payload_too_large", "import file too large", err)
		}
		httpx.WriteError(r.Context(), h.logg, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrItemNotFound):
		return httpx.NotFound("item not found", err)
	case errors.Is(err, ErrInvalidItem):
		return httpx.BadRequest(err.Error(), err)
	}
	return err
}
