package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"scantrack/pkg/logger"
)

// Error carries an HTTP status and a stable code alongside the underlying error.
type Error struct {
	Status  int
	Code    string
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err with a status and code. Message is what the client sees.
func NewError(status int, code, message string, err error) *Error {
	return &Error{Status: status, Code: code, Message: message, Err: err}
}

func BadRequest(message string, err error) *Error {
	return NewError(http.StatusBadRequest, "validation_error", message, err)
}

func NotFound(message string, err error) *Error {
	return NewError(http.StatusNotFound, "not_found", message, err)
}

func Unprocessable(message string, err error) *Error {
	return NewError(http.StatusUnprocessableEntity, "unprocessable", message, err)
}

type errorBody struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// WriteJSON encodes payload with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
	}
}

// WriteError renders err as {"error":{"code","message"}}. Errors that are not *Error are
// reported as 500 without leaking their text.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	var typed *Error
	if !errors.As(err, &typed) {
		typed = NewError(http.StatusInternalServerError, "internal", "unexpected error", err)
	}

	if logg != nil {
		ctx = logg.WithFields(ctx, map[string]any{
			"status":     typed.Status,
			"error_code": typed.Code,
		})
		if typed.Status >= http.StatusInternalServerError {
			logg.Error(ctx, "request.error", err)
		} else {
			logg.Debug(ctx, "request.rejected")
		}
	}

	WriteJSON(w, typed.Status, errorBody{Error: apiError{
		Code:    typed.Code,
		Message: typed.Message,
		Details: typed.Details,
	}})
}
