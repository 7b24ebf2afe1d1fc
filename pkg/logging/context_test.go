package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestFromContextFallsBackToDefault(t *testing.T) {
	if FromContext(context.Background()) != Default() {
		t.Error("FromContext without logger should return Default()")
	}
	if FromContext(nil) != Default() { //nolint:staticcheck // nil context is part of the contract
		t.Error("FromContext(nil) should return Default()")
	}
}

func TestWithLoggerRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf)

	ctx := WithLogger(context.Background(), &logger)
	Ctx(ctx).Info().Msg("hello")

	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("expected log output to contain message, got %q", buf.String())
	}
}

func TestWithJobIDStampsLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf)

	ctx := WithLogger(context.Background(), &logger)
	ctx = WithJobID(ctx, "job-123")

	if JobID(ctx) != "job-123" {
		t.Errorf("JobID() = %q, want job-123", JobID(ctx))
	}

	Ctx(ctx).Info().Msg("processing")
	if !strings.Contains(buf.String(), "job-123") {
		t.Errorf("expected job_id in log output, got %q", buf.String())
	}
}
