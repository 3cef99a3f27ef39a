package apperrors

import (
	"context"
	"errors"
	"testing"
)

func TestWrapNetworkPreservesCause(t *testing.T) {
	err := WrapNetwork(context.DeadlineExceeded)
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected cause to be preserved, got %v", err)
	}
	if WrapNetwork(nil) != ErrNetwork {
		t.Fatalf("expected bare sentinel for nil cause")
	}
}

func TestWrapCrypto(t *testing.T) {
	cause := errors.New("bad padding")
	err := WrapCrypto(cause)
	if !errors.Is(err, ErrCrypto) || !errors.Is(err, cause) {
		t.Fatalf("expected crypto kind and cause, got %v", err)
	}
}

func TestValidationErrorMatchesKindAndCause(t *testing.T) {
	err := error(NewValidationCause("in_flight", ErrInFlight))
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation")
	}
	if !errors.Is(err, ErrInFlight) {
		t.Fatalf("expected ErrInFlight")
	}
	if errors.Is(err, ErrNetwork) {
		t.Fatalf("validation error must not match ErrNetwork")
	}

	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Check != "in_flight" {
		t.Fatalf("expected ValidationError with check in_flight, got %#v", ve)
	}
}

func TestServerRejectionMessageVerbatim(t *testing.T) {
	err := NewServerRejection(500, "x")
	if err.Error() != "x" {
		t.Fatalf("expected verbatim message, got %q", err.Error())
	}
	if !errors.Is(err, ErrServerRejection) {
		t.Fatalf("expected ErrServerRejection")
	}
	if got := NewServerRejection(403, "").Error(); got != "server rejected request with code 403" {
		t.Fatalf("unexpected fallback message %q", got)
	}
}

func TestKind(t *testing.T) {
	cases := map[string]error{
		"validation":       NewValidation("phone_required", "phone is required"),
		"crypto":           WrapCrypto(nil),
		"network":          WrapNetwork(errors.New("dial")),
		"server_rejection": NewServerRejection(500, "x"),
		"unknown":          errors.New("other"),
	}
	for want, err := range cases {
		if got := Kind(err); got != want {
			t.Fatalf("Kind(%v) = %q, want %q", err, got, want)
		}
	}
	if Kind(nil) != "" {
		t.Fatalf("expected empty kind for nil")
	}
}
