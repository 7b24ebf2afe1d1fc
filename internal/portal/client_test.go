package portal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pb40development/ifc-normalizer/pkg/errors"
)

func TestSearchProperties(t *testing.T) {
	var gotAuth, gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/merkmale/api/v1/public/property", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"guid":"abc-123","name":"FireRating"},{"guid":"","name":"ghost"}]`))
	}))
	defer server.Close()

	client := New(WithBaseURL(server.URL), WithToken("secret"))

	hits, err := client.SearchProperties(context.Background(), SearchQuery{SearchString: "FireRating"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "application/json", gotContentType)

	// Hits without a guid are dropped.
	require.Len(t, hits, 1)
	assert.Equal(t, "abc-123", hits[0].GUID)
	assert.Equal(t, "FireRating", hits[0].Name)
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "upstream down", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"guid":"abc-123","name":"FireRating","versionNumber":2,"dataType":"string"}`))
	}))
	defer server.Close()

	client := New(WithBaseURL(server.URL), WithRetries(2))

	def, err := client.PropertyByGUID(context.Background(), "abc-123")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "FireRating", def.Name)
	assert.Equal(t, 2, def.VersionNumber)
}

func TestRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "upstream down", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(WithBaseURL(server.URL), WithRetries(1))

	_, err := client.PropertyByGUID(context.Background(), "abc-123")
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.True(t, errors.IsPortalUnavailable(err))
}

func TestFailFastOnClientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "no such property", http.StatusNotFound)
	}))
	defer server.Close()

	client := New(WithBaseURL(server.URL), WithRetries(3))

	_, err := client.PropertyByGUID(context.Background(), "missing")
	require.Error(t, err)

	// A 404 must not be retried.
	assert.Equal(t, int32(1), calls.Load())

	var apiErr *errors.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.False(t, apiErr.Retryable())
}

func TestRateLimitRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"guid":"abc-123","name":"FireRating"}`))
	}))
	defer server.Close()

	client := New(WithBaseURL(server.URL), WithRetries(1))

	def, err := client.PropertyByGUID(context.Background(), "abc-123")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "abc-123", def.GUID)
}

func TestMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>definitely not json</html>`))
	}))
	defer server.Close()

	client := New(WithBaseURL(server.URL), WithRetries(0))

	_, err := client.PropertyByGUID(context.Background(), "abc-123")
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestResolveProperty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/merkmale/api/v1/public/property":
			_, _ = w.Write([]byte(`[{"guid":"abc-123","name":"FireRating"},{"guid":"def-456","name":"FireRatingOld"}]`))
		case r.Method == http.MethodGet && r.URL.Path == "/merkmale/api/v1/property/abc-123":
			_, _ = w.Write([]byte(`{"guid":"abc-123","name":"FireRating","versionNumber":3,"dataType":"string","units":[]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(WithBaseURL(server.URL))

	def, err := client.ResolveProperty(context.Background(), "FireRating")
	require.NoError(t, err)
	require.NotNil(t, def)

	// The first search hit wins.
	assert.Equal(t, "abc-123", def.GUID)
	assert.Equal(t, 3, def.VersionNumber)
	assert.Equal(t, "string", def.DataType)
}

func TestResolvePropertyNoHits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := New(WithBaseURL(server.URL))

	def, err := client.ResolveProperty(context.Background(), "Unbekannt")
	require.NoError(t, err)
	assert.Nil(t, def)
}

func TestPropertyByGUIDRequiresGUID(t *testing.T) {
	client := New()

	_, err := client.PropertyByGUID(context.Background(), "")
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := New(WithBaseURL(server.URL), WithRetries(5))

	_, err := client.PropertyByGUID(ctx, "abc-123")
	require.Error(t, err)
}

func TestListOrganisations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/infrastruktur/api/v1/public/organisation", r.URL.Path)
		_, _ = w.Write([]byte(`[{"guid":"org-1","name":"BIM Deutschland"}]`))
	}))
	defer server.Close()

	client := New(WithBaseURL(server.URL))

	orgs, err := client.ListOrganisations(context.Background())
	require.NoError(t, err)
	require.Len(t, orgs, 1)
	assert.Equal(t, "BIM Deutschland", orgs[0].Name)
}
