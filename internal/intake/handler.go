// internal/intake/handler.go
package intake

import (
	"net/http"

	"scantrack/internal/ledger"
	"scantrack/pkg/httpx"
	"scantrack/pkg/logger"
)

type Handler struct {
	dispatcher *Dispatcher
	logg       *logger.Logger
}

func NewHandler(dispatcher *Dispatcher, logg *logger.Logger) *Handler {
	return &Handler{dispatcher: dispatcher, logg: logg}
}

// HandleScan submits a barcode as if it had been scanned. The trigger token arms the
// session here too.
func (h *Handler) HandleScan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Barcode string `json:"barcode" validate:"required,max=256"`
	}
	if err := httpx.DecodeJSONBody(r, &req); err != nil {
		httpx.WriteError(r.Context(), h.logg, w, err)
		return
	}

	out, err := h.dispatcher.Accept(r.Context(), Token{Value: req.Barcode, Source: SourceAPI})
	if err != nil {
		httpx.WriteError(r.Context(), h.logg, w, ledger.MapError(err))
		return
	}

	status := http.StatusOK
	if out.Disposition == Recorded {
		status = http.StatusCreated
	}
	httpx.WriteJSON(w, status, scanResponse{
		Disposition: out.Disposition,
		Reason:      out.Reason,
		Result:      resultOrNil(out),
	})
}

type scanResponse struct {
	Disposition Disposition    `json:"disposition"`
	Reason      string         `json:"reason,omitempty"`
	Result      *ledger.Result `json:"result,omitempty"`
}

func resultOrNil(out Outcome) *ledger.Result {
	if out.Disposition != Recorded {
		return nil
	}
	res := out.Result
	return &res
}
