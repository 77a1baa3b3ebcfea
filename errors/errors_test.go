package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestBackendErrorMatchesSentinel(t *testing.T) {
	cause := errors.New("connection refused")
	err := Backend("openai", "chat", cause)

	if !errors.Is(err, ErrBackend) {
		t.Fatalf("expected ErrBackend match, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to unwrap")
	}
	var be *BackendError
	if !errors.As(err, &be) || be.Backend != "openai" {
		t.Fatalf("expected BackendError for openai, got %#v", err)
	}
	if Backend("other", "", err) != err {
		t.Fatalf("expected existing BackendError to be kept")
	}
	if Backend("x", "", nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}

func TestReason(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{Parse("no json"), ReasonParse},
		{fmt.Errorf("plan: %w", Validation("too few angles")), ReasonValidation},
		{Backend("serper", "search", errors.New("503")), ReasonBackend},
		{Backend("openai", "", context.DeadlineExceeded), ReasonBackend},
		{context.Canceled, ReasonCanceled},
		{errors.New("boom"), ReasonUnknown},
	}
	for _, tc := range cases {
		if got := Reason(tc.err); got != tc.want {
			t.Errorf("Reason(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
