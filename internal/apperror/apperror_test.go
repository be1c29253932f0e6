package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", NotFound("Channel not found"), http.StatusNotFound, "NOT_FOUND"},
		{"forbidden", Forbidden("nope"), http.StatusForbidden, "FORBIDDEN"},
		{"invalid input", InvalidInput("Name is required"), http.StatusBadRequest, "INVALID_INPUT"},
		{"wrapped kind", fmt.Errorf("get channel: %w", ErrConflict), http.StatusConflict, "CONFLICT"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, code := Status(tc.err)
			if status != tc.wantStatus || code != tc.wantCode {
				t.Fatalf("Status = %d %q, want %d %q", status, code, tc.wantStatus, tc.wantCode)
			}
		})
	}
}

func TestMessageHidesInternalCause(t *testing.T) {
	if got := Message(NotFound("Channel not found")); got != "Channel not found" {
		t.Fatalf("Message = %q", got)
	}
	if got := Message(errors.New("dial tcp: refused")); got != "Internal server error" {
		t.Fatalf("Message = %q", got)
	}
	if got := Kind(Forbidden("x")); got != "forbidden" {
		t.Fatalf("Kind = %q", got)
	}
}
