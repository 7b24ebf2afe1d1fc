package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pb40development/ifc-normalizer/internal/engine"
	"github.com/pb40development/ifc-normalizer/internal/jobs"
	"github.com/pb40development/ifc-normalizer/internal/portal"
	"github.com/pb40development/ifc-normalizer/pkg/report"
)

const testModel = `ISO-10303-21;
HEADER;
FILE_DESCRIPTION((''),'2;1');
FILE_NAME('model.ifc','2024-01-01T00:00:00',(''),(''),'','','');
FILE_SCHEMA(('IFC4'));
ENDSEC;
DATA;
#1=IFCWALL('2O2Fr$t4X7Zf8NOew3FL9r',$,'Wall 1',$,$,$,$,$);
#2=IFCPROPERTYSINGLEVALUE('FireRating',$,IFCLABEL('F90'),$);
#3=IFCPROPERTYSET('1gBZ6hQrL5peCQ7msjJYnX',$,'Pset_WallCommon',$,(#2));
#4=IFCRELDEFINESBYPROPERTIES('0jf0kWdPz1fvHTOMdBQnQA',$,$,$,(#1),#3);
ENDSEC;
END-ISO-10303-21;
`

type stubResolver struct{}

func (stubResolver) ResolveProperty(_ context.Context, name string) (*portal.Definition, error) {
	return &portal.Definition{GUID: "guid-" + strings.ToLower(name), Name: name, DataType: "string"}, nil
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestServer(t *testing.T, process jobs.ProcessFunc) http.Handler {
	t.Helper()
	if process == nil {
		process = jobs.NewProcessor(engine.New(stubResolver{}))
	}
	registry := jobs.NewRegistry(process)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = registry.Shutdown(ctx)
	})
	return New(DefaultConfig(), registry).Handler()
}

func uploadModel(t *testing.T, handler http.Handler, model string) string {
	t.Helper()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("ifcFile", "model.ifc")
	require.NoError(t, err)
	_, err = part.Write([]byte(model))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var data struct {
		JobID string `json:"jobId"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.JobID)
	return data.JobID
}

func awaitCompleted(t *testing.T, handler http.Handler, jobID string) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status/"+jobID, nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var env envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		var status jobs.Status
		require.NoError(t, json.Unmarshal(env.Data, &status))

		switch status.State {
		case jobs.StateCompleted:
			return
		case jobs.StateFailed:
			t.Fatalf("job failed: %s", status.Error)
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job never completed")
}

func TestUploadProcessDownload(t *testing.T) {
	handler := newTestServer(t, nil)

	jobID := uploadModel(t, handler, testModel)
	awaitCompleted(t, handler, jobID)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/download/ifc/"+jobID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-step", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "ISO-10303-21")
	assert.Contains(t, rec.Body.String(), "IFCWALL")

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/download/report/"+jobID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var full report.Full
	require.NoError(t, json.Unmarshal(env.Data, &full))
	assert.Equal(t, 1, full.Analysis.Walls)
	assert.Equal(t, "model.ifc", full.Metadata.OriginalFile)
	assert.NotEmpty(t, full.Changes)
}

func TestUploadRejectsMissingField(t *testing.T) {
	handler := newTestServer(t, nil)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	require.NoError(t, form.WriteField("other", "value"))
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NotNil(t, env.Error)
	assert.Equal(t, "invalid_input", env.Error.Code)
}

func TestUploadRejectsNonIFC(t *testing.T) {
	handler := newTestServer(t, nil)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("ifcFile", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("definitely not a model"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusUnknownJob(t *testing.T) {
	handler := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status/no-such-job", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NotNil(t, env.Error)
	assert.Equal(t, "not_found", env.Error.Code)
}

func TestDownloadBeforeCompletion(t *testing.T) {
	release := make(chan struct{})
	slow := func(ctx context.Context, _ string, input []byte) ([]byte, *report.Full, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return input, &report.Full{}, nil
	}
	handler := newTestServer(t, slow)
	defer close(release)

	jobID := uploadModel(t, handler, testModel)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/download/ifc/"+jobID, nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NotNil(t, env.Error)
	assert.Equal(t, "not_ready", env.Error.Code)
}

func TestDeleteJob(t *testing.T) {
	handler := newTestServer(t, nil)

	jobID := uploadModel(t, handler, testModel)
	awaitCompleted(t, handler, jobID)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/jobs/"+jobID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status/"+jobID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	handler := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestCORSPreflight(t *testing.T) {
	handler := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/upload", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
