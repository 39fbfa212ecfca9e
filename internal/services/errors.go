package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInputNotFound  = errors.New("input not found")
	ErrExtraction     = errors.New("extraction failure")
	ErrSchemaMismatch = errors.New("schema mismatch")
	ErrStorage        = errors.New("storage access failure")
	ErrMissingRecord  = errors.New("missing record")
	ErrConfiguration  = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExtraction
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

var markers = []error{
	ErrInputNotFound,
	ErrSchemaMismatch,
	ErrMissingRecord,
	ErrStorage,
	ErrConfiguration,
	ErrExtraction,
}

// IsMarked reports whether err carries one of the sentinel markers.
func IsMarked(err error) bool {
	for _, marker := range markers {
		if errors.Is(err, marker) {
			return true
		}
	}
	return false
}

// Kind returns a short label for the first marker found in err's chain, or
// "unknown" when none match.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInputNotFound):
		return "input_not_found"
	case errors.Is(err, ErrSchemaMismatch):
		return "schema_mismatch"
	case errors.Is(err, ErrMissingRecord):
		return "missing_record"
	case errors.Is(err, ErrStorage):
		return "storage"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrExtraction):
		return "extraction"
	default:
		return "unknown"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
