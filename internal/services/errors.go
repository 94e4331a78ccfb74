package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrIO marks disk read/write/permission failures.
	ErrIO = errors.New("io error")
	// ErrNotFound marks missing binaries, models, or job ids.
	ErrNotFound = errors.New("not found")
	// ErrNetwork marks connect failures, non-2xx responses, and invalid bodies.
	ErrNetwork = errors.New("network error")
	// ErrTimeout marks deadline expiry on network calls.
	ErrTimeout = errors.New("timeout")
	// ErrFormat marks malformed JSON or archives and missing archive entries.
	ErrFormat = errors.New("format error")
	// ErrLicense marks a disallowed build configuration in an external tool.
	ErrLicense = errors.New("license violation")
	// ErrConflict marks operations rejected because of concurrent state.
	ErrConflict = errors.New("conflict")
	// ErrExternalTool marks subprocess failures from external binaries.
	ErrExternalTool = errors.New("external tool error")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrIO
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
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
