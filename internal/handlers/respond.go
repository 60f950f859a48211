// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the JSON HTTP handlers of the book catalog.
// Handlers are grouped by resource (categories, books) and receive the
// catalog service through an interface.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"bookcatalog/internal/store"
)

const (
	maxBodyBytes = 1 << 20

	defaultPageLimit = 10
	maxPageLimit     = 100
	defaultLogLimit  = 20

	// retryAfterSeconds is suggested to clients that hit a busy tree.
	retryAfterSeconds = "1"
)

// errorBody is the envelope of every failed response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

// statusFor maps a failure code to its HTTP status.
func statusFor(code string) int {
	switch code {
	case "not_found":
		return http.StatusNotFound
	case "not_empty", "invalid_state":
		return http.StatusConflict
	case "forbidden":
		return http.StatusForbidden
	case "cycle_rejected", "not_sibling":
		return http.StatusUnprocessableEntity
	case "invalid_argument":
		return http.StatusBadRequest
	case "busy":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError classifies err and writes the error envelope. Storage failures
// are logged here and reach the client without their cause.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := store.Code(err)
	status := statusFor(code)
	message := err.Error()

	switch code {
	case "busy":
		w.Header().Set("Retry-After", retryAfterSeconds)
	case "storage_failure":
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		message = "internal error"
	}
	writeJSON(w, status, errorBody{Error: code, Message: message})
}

// badRequest wraps a parse failure so it classifies as invalid_argument.
func badRequest(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), store.ErrInvalidArgument)
}

// pathID parses a UUID URL parameter.
func pathID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, badRequest("%s %q is not a valid id", name, raw)
	}
	return id, nil
}

// decodeBody reads a JSON request body into v. Unknown fields and trailing
// data are rejected.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return badRequest("request body exceeds %d bytes", tooLarge.Limit)
		}
		return badRequest("malformed JSON body: %v", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return badRequest("request body must hold a single JSON object")
	}
	return nil
}

// queryInt reads a non-negative integer query parameter, returning fallback
// when it is absent.
func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, badRequest("%s must be a non-negative integer, got %q", key, raw)
	}
	return n, nil
}

// queryLimit reads a page size in [1, maxPageLimit].
func queryLimit(r *http.Request, fallback int) (int, error) {
	n, err := queryInt(r, "limit", fallback)
	if err != nil {
		return 0, err
	}
	if n < 1 || n > maxPageLimit {
		return 0, badRequest("limit must be between 1 and %d, got %d", maxPageLimit, n)
	}
	return n, nil
}

// queryBool reads a boolean query parameter, false when absent.
func queryBool(r *http.Request, key string) (bool, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, badRequest("%s must be a boolean, got %q", key, raw)
	}
	return b, nil
}
