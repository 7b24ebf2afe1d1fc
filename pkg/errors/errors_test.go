package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAPIErrorIs(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		target     error
		want       bool
	}{
		{"500 is portal unavailable", 500, ErrPortalUnavailable, true},
		{"503 is portal unavailable", 503, ErrPortalUnavailable, true},
		{"429 is rate limited", 429, ErrRateLimited, true},
		{"429 is portal unavailable", 429, ErrPortalUnavailable, true},
		{"404 is not portal unavailable", 404, ErrPortalUnavailable, false},
		{"400 is not rate limited", 400, ErrRateLimited, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewAPIError("/merkmale/api/v1/public/property", tt.statusCode, "boom")
			if got := errors.Is(err, tt.target); got != tt.want {
				t.Errorf("errors.Is(%d, %v) = %v, want %v", tt.statusCode, tt.target, got, tt.want)
			}
		})
	}
}

func TestAPIErrorRetryable(t *testing.T) {
	tests := []struct {
		statusCode int
		want       bool
	}{
		{0, true},
		{429, true},
		{500, true},
		{502, true},
		{400, false},
		{401, false},
		{404, false},
	}

	for _, tt := range tests {
		err := NewAPIError("/x", tt.statusCode, "")
		if got := err.Retryable(); got != tt.want {
			t.Errorf("Retryable(status=%d) = %v, want %v", tt.statusCode, got, tt.want)
		}
	}
}

func TestValidationErrorIs(t *testing.T) {
	err := NewValidationError("ifcFile", nil, "missing upload")
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("ValidationError should match ErrInvalidInput")
	}
	if !IsValidationError(err) {
		t.Error("IsValidationError should be true")
	}
}

func TestDocumentErrorUnwrap(t *testing.T) {
	inner := errors.New("bad record")
	err := NewDocumentError("line", 42, "lookup failed", inner)
	if !errors.Is(err, inner) {
		t.Error("DocumentError should unwrap to inner error")
	}
	if !IsDocumentError(fmt.Errorf("wrapped: %w", err)) {
		t.Error("IsDocumentError should see through wrapping")
	}
}

func TestResolutionErrorMessage(t *testing.T) {
	err := NewResolutionError("FireRating", "no search hits", nil)
	want := "resolution failed for property FireRating: no search hits"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !IsResolutionError(err) {
		t.Error("IsResolutionError should be true")
	}
}

func TestWrapHelpers(t *testing.T) {
	if WrapValidation("f", nil) != nil {
		t.Error("WrapValidation(nil) should be nil")
	}
	if WrapIO("read", "p", nil) != nil {
		t.Error("WrapIO(nil) should be nil")
	}
	if WrapAPI("/x", 500, nil) != nil {
		t.Error("WrapAPI(nil) should be nil")
	}

	err := WrapAPI("/x", 502, errors.New("bad gateway"))
	if !errors.Is(err, ErrPortalUnavailable) {
		t.Error("wrapped 502 should be portal unavailable")
	}
}
