package utils

import (
	"strings"
	"time"
)

func IntPtr(i int) *int {
	return &i
}

func StringPtr(s string) *string {
	return &s
}

func TimePtr(t time.Time) *time.Time {
	return &t
}

// NilIfBlank returns nil for empty or whitespace-only strings, otherwise a
// pointer to the trimmed value.
func NilIfBlank(s string) *string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func PtrString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
