package logger

import (
	"context"
	"testing"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "req-1")
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Fatalf("request id = %q", got)
	}
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty request id, got %q", got)
	}
}

func TestWithContextKeepsLoggerWithoutRequestID(t *testing.T) {
	log := NewNop("test")
	if log.WithContext(context.Background()) != log {
		t.Fatal("expected same logger when no request id is set")
	}
	if log.WithContext(ContextWithRequestID(context.Background(), "r")) == log {
		t.Fatal("expected derived logger when request id is set")
	}
}
