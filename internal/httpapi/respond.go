// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkyCast Contributors

package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/skycast/skycast/pkg/errutil"
)

// errorBody is the JSON error envelope.
type errorBody struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response. Encoding failures are logged; the
// status line has already been sent by then.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps a domain error to an HTTP status and JSON body.
// Internal details never leak: unknown errors log the cause and return
// a generic message.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := statusForCode(errutil.CodeOf(err))
	if status == http.StatusInternalServerError {
		errutil.LogError(logger, "request failed", err)
		writeJSON(w, status, errorBody{Error: "internal server error"})
		return
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// statusForCode maps oops error codes to HTTP statuses. Anything
// unrecognized is a 500.
func statusForCode(code string) int {
	switch code {
	case "AUTH_VALIDATION", "AUTH_INVALID_TOKEN", "AUTH_EMPTY_PASSWORD",
		"FAVORITE_VALIDATION", "WEATHER_RECORD_VALIDATION", "WEATHER_VALIDATION",
		"VALIDATION":
		return http.StatusBadRequest
	case "AUTH_INVALID_CREDENTIALS", "AUTH_ACCOUNT_LOCKED", "UNAUTHORIZED":
		return http.StatusUnauthorized
	case "AUTH_EMAIL_TAKEN":
		return http.StatusConflict
	case "USER_NOT_FOUND", "FAVORITE_NOT_FOUND", "WEATHER_RECORD_NOT_FOUND":
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
