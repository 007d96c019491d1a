package faults

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsCategory(t *testing.T) {
	t.Parallel()

	err := NewTypedError(ValidationError, "invalid input", nil)
	if !IsCategory(err, ValidationError) {
		t.Fatalf("expected validation category match")
	}
	if IsCategory(err, InvalidRequestError) {
		t.Fatalf("expected invalid-request category mismatch")
	}

	wrapped := errors.New("wrap: " + err.Error())
	if IsCategory(wrapped, ValidationError) {
		t.Fatalf("plain wrapped string error must not match typed category")
	}

	joined := errors.Join(err, errors.New("other"))
	if !IsCategory(joined, ValidationError) {
		t.Fatalf("expected category match through errors.Join")
	}
}

func TestResponseErrorCarriesDiagnostics(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("load layer: %w", NewResponseError(
		InvalidRequestError,
		"foo",
		400,
		`{"message": "foo"}`,
		map[string]any{"message": "foo"},
	))

	typedErr, ok := As(err)
	if !ok {
		t.Fatalf("expected typed error in chain")
	}
	if typedErr.Error() != "foo" {
		t.Fatalf("expected message foo, got %q", typedErr.Error())
	}
	if typedErr.Status != 400 || typedErr.Body != `{"message": "foo"}` {
		t.Fatalf("unexpected diagnostics %+v", typedErr)
	}
	payload, ok := typedErr.Payload.(map[string]any)
	if !ok || payload["message"] != "foo" {
		t.Fatalf("unexpected payload %#v", typedErr.Payload)
	}
}

func TestErrorFallsBackToCategory(t *testing.T) {
	t.Parallel()

	err := NewResponseError(ServerError, "", 500, "", nil)
	if err.Error() != string(ServerError) {
		t.Fatalf("expected category text, got %q", err.Error())
	}

	missing := NewMissingIDError("")
	if !IsCategory(missing, MissingIDError) || missing.Error() == "" {
		t.Fatalf("unexpected missing id error %v", missing)
	}
}
