// Package handlers implements the job API endpoints.
package handlers

import (
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/pb40development/ifc-normalizer/internal/jobs"
	"github.com/pb40development/ifc-normalizer/internal/server/response"
	"github.com/pb40development/ifc-normalizer/pkg/errors"
)

// MaxUploadBytes caps accepted IFC uploads at 100 MiB.
const MaxUploadBytes = 100 << 20

// Handler serves the job API over a registry.
type Handler struct {
	registry *jobs.Registry
}

// New creates the handler set.
func New(registry *jobs.Registry) *Handler {
	return &Handler{registry: registry}
}

// Upload accepts a multipart upload under the "ifcFile" field, submits a
// job and returns its ID with 202.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		response.Error(w, http.StatusBadRequest, response.CodeInvalidInput, "expected multipart form with an ifcFile field")
		return
	}

	file, header, err := r.FormFile("ifcFile")
	if err != nil {
		response.Error(w, http.StatusBadRequest, response.CodeInvalidInput, "missing ifcFile field")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		response.Error(w, http.StatusBadRequest, response.CodeInvalidInput, "failed to read upload: "+err.Error())
		return
	}

	id, err := h.registry.Submit(r.Context(), filepath.Base(header.Filename), data)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Accepted(w, map[string]string{
		"jobId":     id,
		"statusUrl": "/status/" + id,
	})
}

// Status returns the job's lifecycle snapshot.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.registry.Status(r.PathValue("jobId"))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, status)
}

// DownloadIFC streams a completed job's normalized document.
func (h *Handler) DownloadIFC(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("jobId")
	result, err := h.registry.Result(id)
	if err != nil {
		response.FromError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/x-step")
	w.Header().Set("Content-Disposition", `attachment; filename="normalized_`+id+`.ifc"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Output)))
	_, _ = w.Write(result.Output)
}

// DownloadReport returns a completed job's change report as JSON.
func (h *Handler) DownloadReport(w http.ResponseWriter, r *http.Request) {
	result, err := h.registry.Result(r.PathValue("jobId"))
	if err != nil {
		response.FromError(w, err)
		return
	}
	if result.Report == nil {
		response.FromError(w, errors.ErrNotFound)
		return
	}
	response.OK(w, result.Report)
}

// Delete removes a job and its artifacts.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Delete(r.PathValue("jobId")); err != nil {
		response.FromError(w, err)
		return
	}
	response.NoContent(w)
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, map[string]any{
		"status": "ok",
		"jobs":   h.registry.Len(),
	})
}

// Ready reports readiness to accept uploads. The registry is in-memory,
// so readiness follows liveness.
func (h *Handler) Ready(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, map[string]string{"status": "ready"})
}
