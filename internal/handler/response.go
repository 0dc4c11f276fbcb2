package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxBodyBytes caps request bodies. Every write payload in the API is
// small; anything near this limit is malformed or hostile.
const maxBodyBytes = 1 << 20

// WriteJSON writes data as a JSON response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status line is already out; an encode failure here can only
	// be surfaced to the client as a truncated body.
	_ = json.NewEncoder(w).Encode(data)
}

// errorResponse is the error body shape shared by all endpoints.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a standard error response with a machine-readable
// error code and a human-readable message.
func WriteError(w http.ResponseWriter, status int, errorCode, message string) {
	WriteJSON(w, status, errorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// ParseJSON decodes the request body as JSON into v. Unknown fields,
// trailing data, empty bodies, and bodies over maxBodyBytes are all
// rejected. Content-Type validation happens in middleware before any
// handler calls this.
func ParseJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		switch {
		case errors.Is(err, io.EOF):
			return fmt.Errorf("request body must not be empty")
		case strings.Contains(err.Error(), "unknown field"):
			return fmt.Errorf("request body contains an %s", strings.TrimPrefix(err.Error(), "json: "))
		default:
			return fmt.Errorf("request body is not valid JSON")
		}
	}
	// A second document after the first means the client sent garbage.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("request body must contain a single JSON object")
	}
	return nil
}
