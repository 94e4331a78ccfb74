package services_test

import (
	"errors"
	"strings"
	"testing"

	"murmur/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "transcriber", "run", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"transcriber", "run", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutBaseError(t *testing.T) {
	err := services.Wrap(services.ErrNotFound, "resolver", "locate", "whisper binary missing", nil)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "whisper binary missing") {
		t.Fatalf("expected message in error string %q", err.Error())
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "store", "save", "", errors.New("disk full"))
	if !errors.Is(err, services.ErrIO) {
		t.Fatalf("expected io marker fallback, got %v", err)
	}
}
