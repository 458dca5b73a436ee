package handler

// RESPONSE ENVELOPE:
// Every endpoint — success or failure — answers with the same JSON shape:
//
//	{"code": 200, "message": "success", "data": {...}}
//	{"code": 404, "message": "post not found with id 7", "data": null}
//
// The envelope code MIRRORS the HTTP status code. That is deliberately
// redundant: browser fetch() users read one, curl users read the other, and
// a frontend can switch on body.code without ever touching response headers.
//
// WHY HELPERS?
// Without them every handler repeats the Content-Type / WriteHeader / Encode
// dance, and one forgotten WriteHeader ordering bug produces a 200 with an
// error body. Two helpers, one shape, no drift.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hzj/miniblog/internal/apperror"
)

// Result is the uniform response envelope.
type Result struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// writeJSON sends the envelope with the given HTTP status.
// Headers and status go out before the body; once Encode writes, they are
// locked in.
func writeJSON(w http.ResponseWriter, status int, result Result) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		// Headers are already sent, nothing left to do but log.
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeSuccess sends HTTP 200 with envelope code 200 and message "success".
// data may be nil; the envelope then carries "data": null.
func writeSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Result{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

// writeError maps a domain error onto the envelope.
//
// The service layer speaks apperror sentinels, not HTTP; this is the single
// place they become status codes. errors.Is walks the wrap chain, so a
// service error like fmt.Errorf("creating post: %w", ValidationFailed(...))
// still matches ErrValidation.
//
// Unknown errors collapse to a generic 500 — the raw message might carry
// SQL fragments or file paths and never belongs in a response body.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
		}

		writeJSON(w, status, Result{
			Code:    status,
			Message: appErr.Message,
			Data:    nil,
		})
		return
	}

	writeJSON(w, http.StatusInternalServerError, Result{
		Code:    http.StatusInternalServerError,
		Message: "an internal error occurred",
		Data:    nil,
	})
}
