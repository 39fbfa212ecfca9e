package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"cepstra/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrStorage, "mel", "read", "identifier \"a\"", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrStorage) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"mel", "read", "identifier \"a\""} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrExtraction) {
		t.Fatalf("expected extraction marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestKindMapping(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{services.Wrap(services.ErrInputNotFound, "lin", "load", "", nil), "input_not_found"},
		{services.Wrap(services.ErrSchemaMismatch, "merge", "rename", "", nil), "schema_mismatch"},
		{fmt.Errorf("outer: %w", services.Wrap(services.ErrMissingRecord, "lin", "read", "", nil)), "missing_record"},
		{services.Wrap(services.ErrStorage, "", "", "", nil), "storage"},
		{services.Wrap(services.ErrConfiguration, "", "", "", nil), "configuration"},
		{services.Wrap(services.ErrExtraction, "", "", "", nil), "extraction"},
		{errors.New("plain"), "unknown"},
	}
	for _, tc := range tests {
		if got := services.Kind(tc.err); got != tc.want {
			t.Fatalf("Kind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestIsMarked(t *testing.T) {
	if services.IsMarked(nil) {
		t.Fatal("nil should not be marked")
	}
	if services.IsMarked(errors.New("plain")) {
		t.Fatal("plain error should not be marked")
	}
	wrapped := fmt.Errorf("outer: %w", services.Wrap(services.ErrMissingRecord, "lin", "read", "", nil))
	if !services.IsMarked(wrapped) {
		t.Fatalf("expected %v to be marked", wrapped)
	}
}
