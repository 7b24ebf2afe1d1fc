// Package response standardizes the JSON envelope written by the job API.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/pb40development/ifc-normalizer/pkg/errors"
	"github.com/pb40development/ifc-normalizer/pkg/logging"
)

// Envelope is the uniform response body: exactly one of Data and Error is
// set.
type Envelope struct {
	Data  any       `json:"data,omitempty"`
	Error *APIError `json:"error,omitempty"`
}

// APIError is the error half of the envelope.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes returned by the job API.
const (
	CodeInvalidInput = "invalid_input"
	CodeNotFound     = "not_found"
	CodeNotReady     = "not_ready"
	CodeJobFailed    = "job_failed"
	CodeInternal     = "internal_error"
)

// JSON writes a success envelope with the given status.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, Envelope{Data: data})
}

// OK writes a 200 success envelope.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Accepted writes a 202 success envelope, used for job submission.
func Accepted(w http.ResponseWriter, data any) {
	JSON(w, http.StatusAccepted, data)
}

// NoContent writes an empty 204.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error writes an error envelope with the given status and code.
func Error(w http.ResponseWriter, status int, code, message string) {
	write(w, status, Envelope{Error: &APIError{Code: code, Message: message}})
}

// FromError maps a domain error onto the right status and code.
func FromError(w http.ResponseWriter, err error) {
	switch {
	case errors.IsNotFound(err):
		Error(w, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.IsNotReady(err):
		Error(w, http.StatusConflict, CodeNotReady, err.Error())
	case errors.IsValidationError(err):
		Error(w, http.StatusBadRequest, CodeInvalidInput, err.Error())
	default:
		var jobErr *errors.JobError
		if errors.As(err, &jobErr) {
			Error(w, http.StatusUnprocessableEntity, CodeJobFailed, err.Error())
			return
		}
		Error(w, http.StatusInternalServerError, CodeInternal, err.Error())
	}
}

func write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		logging.Default().Error().Err(err).Msg("Failed to encode response")
	}
}
