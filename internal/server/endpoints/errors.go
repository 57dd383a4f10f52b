package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/jackzampolin/docqa/internal/pipeline"
)

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// StatusFor maps a pipeline error kind to its HTTP status.
func StatusFor(kind pipeline.Kind) int {
	switch kind {
	case pipeline.UnreadableDocument:
		return http.StatusUnprocessableEntity
	case pipeline.NotFound:
		return http.StatusNotFound
	case pipeline.BackendUnavailable:
		return http.StatusServiceUnavailable
	case pipeline.UpstreamFailure:
		return http.StatusBadGateway
	case pipeline.Invalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writePipelineError writes err with the status of its kind.
func writePipelineError(w http.ResponseWriter, err error) {
	kind := pipeline.KindOf(err)
	writeJSON(w, StatusFor(kind), ErrorResponse{Error: err.Error(), Kind: kind.String()})
}

// writeKindError writes msg with an explicit kind.
func writeKindError(w http.ResponseWriter, kind pipeline.Kind, msg string) {
	writeJSON(w, StatusFor(kind), ErrorResponse{Error: msg, Kind: kind.String()})
}

