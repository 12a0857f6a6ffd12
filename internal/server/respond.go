package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	tipster "github.com/winmix/tipsterhub/internal"
)

// Error types reported in the "type" member of error bodies.
const (
	errTypeInvalid  = "invalid_request_error"
	errTypeNotFound = "not_found_error"
	errTypeConflict = "conflict_error"
	errTypeAuth     = "authentication_error"
	errTypeUpstream = "upstream_error"
	errTypeInternal = "internal_error"
)

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func errorResponse(msg, typ string) apiError {
	var e apiError
	e.Error.Message = msg
	e.Error.Type = typ
	return e
}

// statusClientClosed is nginx's code for a client that hung up before the
// response was ready.
const statusClientClosed = 499

func errorStatus(err error) int {
	switch {
	case errors.Is(err, tipster.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, tipster.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, tipster.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, context.Canceled):
		return statusClientClosed
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, tipster.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status and writes a sanitized body. Validation
// messages are shown to the client; anything else is logged and replaced
// with a generic message so storage details never leak.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	switch status {
	case http.StatusBadRequest:
		writeJSON(w, status, errorResponse(err.Error(), errTypeInvalid))
	case http.StatusNotFound:
		writeJSON(w, status, errorResponse("not found", errTypeNotFound))
	case http.StatusConflict:
		writeJSON(w, status, errorResponse("conflict", errTypeConflict))
	case statusClientClosed:
		slog.LogAttrs(r.Context(), slog.LevelDebug, "client closed request",
			slog.String("path", r.URL.Path),
			slog.String("request_id", tipster.RequestIDFromContext(r.Context())),
		)
		w.WriteHeader(status)
	default:
		slog.LogAttrs(r.Context(), slog.LevelError, "request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
			slog.String("request_id", tipster.RequestIDFromContext(r.Context())),
		)
		typ, msg := errTypeInternal, "internal error"
		if status == http.StatusBadGateway || status == http.StatusGatewayTimeout {
			typ, msg = errTypeUpstream, "upstream query failed"
		}
		writeJSON(w, status, errorResponse(msg, typ))
	}
}

// jsonCT is a pre-allocated header value slice for direct map assignment.
var jsonCT = []string{"application/json"}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header()["Content-Type"] = jsonCT
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// maxBody is the maximum allowed request body size (1 MB).
const maxBody = 1 << 20

// decodeJSON limits body size, decodes JSON into v, and writes a 400 on error.
// Returns true if decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid request body", errTypeInvalid))
		return false
	}
	return true
}
