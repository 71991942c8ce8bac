// internal/export/handler.go
package export

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"scantrack/pkg/httpx"
	"scantrack/pkg/logger"
)

type format struct {
	contentType string
	render      func(e *Exporter, ctx context.Context, w io.Writer, limit int) error
}

var formats = map[string]format{
	"logs.csv": {"text/csv; charset=utf-8", func(e *Exporter, ctx context.Context, w io.Writer, limit int) error {
		return e.LogsCSV(ctx, w, limit)
	}},
	"logs.json": {"application/json", func(e *Exporter, ctx context.Context, w io.Writer, limit int) error {
		return e.LogsJSON(ctx, w, limit)
	}},
	"checked-out.csv": {"text/csv; charset=utf-8", func(e *Exporter, ctx context.Context, w io.Writer, _ int) error {
		return e.CheckedOutCSV(ctx, w)
	}},
	"checked-out.xlsx": {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", func(e *Exporter, ctx context.Context, w io.Writer, _ int) error {
		return e.CheckedOutXLSX(ctx, w)
	}},
}

type Handler struct {
	exporter *Exporter
	logg     *logger.Logger
}

func NewHandler(exporter *Exporter, logg *logger.Logger) *Handler {
	return &Handler{exporter: exporter, logg: logg}
}

// HandleExport serves /export/{file}. The body is rendered fully before any header is sent
// so a failed export still yields a proper error response.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "file")
	f, ok := formats[name]
	if !ok {
		httpx.WriteError(r.Context(), h.logg, w, httpx.NotFound("unknown export "+name, nil))
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httpx.WriteError(r.Context(), h.logg, w, httpx.BadRequest("limit must be a non-negative integer", err))
			return
		}
		limit = n
	}

	var buf bytes.Buffer
	if err := f.render(h.exporter, r.Context(), &buf, limit); err != nil {
		httpx.WriteError(r.Context(), h.logg, w, err)
		return
	}
	w.Header().Set("Content-Type", f.contentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+name)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
