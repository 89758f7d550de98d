// Package api exposes the admission pipeline over HTTP.
//
// Transport-level failures respond with RFC 7807 problem details;
// batch-level policy failures respond with the flat
// {message, accepted, diagnostics} shape that pipeline clients consume.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// ProblemDetail implements RFC 7807 (Problem Details for HTTP APIs).
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func (p *ProblemDetail) Error() string {
	return fmt.Sprintf("%s: %s", p.Title, p.Detail)
}

// WriteError writes an RFC 7807 problem detail response.
func WriteError(w http.ResponseWriter, status int, title, detail string) {
	problem := &ProblemDetail{
		Type:   fmt.Sprintf("https://eventgate.opencode.dev/errors/%d", status),
		Title:  title,
		Status: status,
		Detail: detail,
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem)
}

// WriteBadRequest writes a 400 problem detail.
func WriteBadRequest(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusBadRequest, "Bad Request", detail)
}

// WriteMethodNotAllowed writes a 405 problem detail.
func WriteMethodNotAllowed(w http.ResponseWriter) {
	WriteError(w, http.StatusMethodNotAllowed, "Method Not Allowed", "The HTTP method is not supported for this endpoint")
}

// WritePayloadTooLarge writes a 413 problem detail naming the limit.
func WritePayloadTooLarge(w http.ResponseWriter, limit int64) {
	WriteError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large",
		fmt.Sprintf("Request body exceeds the %d-byte limit", limit))
}

// WriteTooManyRequests writes a 429 problem detail with Retry-After.
func WriteTooManyRequests(w http.ResponseWriter, retryAfterSecs int) {
	w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfterSecs))
	WriteError(w, http.StatusTooManyRequests, "Too Many Requests", "Rate limit exceeded. Retry after the specified interval.")
}

// WriteInternal writes a 500 problem detail. The cause is logged and
// never exposed to the client.
func WriteInternal(w http.ResponseWriter, err error) {
	slog.Error("internal server error", "error", err)
	WriteError(w, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred. Please try again later.")
}

// batchError is the domain-level 400 body for ingest/simulate batch
// failures.
type batchError struct {
	Message     string         `json:"message"`
	Accepted    int            `json:"accepted"`
	Diagnostics map[string]int `json:"diagnostics,omitempty"`
}

// writeBatchError writes the flat batch-rejection body.
func writeBatchError(w http.ResponseWriter, message string, diagnostics map[string]int) {
	writeJSON(w, http.StatusBadRequest, batchError{
		Message:     message,
		Diagnostics: diagnostics,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
