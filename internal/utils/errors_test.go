package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{E(CodeInvalidArgument, "op", "bad", nil), http.StatusBadRequest},
		{E(CodeForbidden, "op", "no", nil), http.StatusForbidden},
		{E(CodeConflict, "op", "busy", nil), http.StatusConflict},
		{E(CodeUpstream, "op", "something went wrong", nil), http.StatusBadGateway},
		{fmt.Errorf("wrapped: %w", E(CodeNotFound, "op", "gone", nil)), http.StatusNotFound},
		{ErrNotFound, http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Fatalf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestAppErrorMessageAndUnwrap(t *testing.T) {
	cause := errors.New("mongo down")
	err := E(CodeUnavailable, "SessionService.Get", "failed to get session", cause)
	if got := err.Error(); got != "SessionService.Get: failed to get session: mongo down" {
		t.Fatalf("Error() = %q", got)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is(err, cause) = false")
	}
	if !IsCode(err, CodeUnavailable) || IsCode(err, CodeInternal) {
		t.Fatalf("IsCode mismatch for %v", err)
	}
}
