// Package sequence allocates human-readable case numbers.
package sequence

import (
	"context"
	"fmt"
	"time"
)

// Allocator hands out strictly increasing numbers. A number is never returned twice.
type Allocator interface {
	Next(ctx context.Context, year int) (int64, error)
}

// FormatCaseNumber renders the case reference shown to every portal, e.g. CWCRF-2026-000042.
func FormatCaseNumber(year int, n int64) string {
	return fmt.Sprintf("CWCRF-%d-%06d", year, n)
}

// NextCaseNumber allocates and formats the number for a case created at t.
func NextCaseNumber(ctx context.Context, a Allocator, t time.Time) (string, error) {
	year := t.Year()
	n, err := a.Next(ctx, year)
	if err != nil {
		return "", fmt.Errorf("allocate case number: %w", err)
	}
	return FormatCaseNumber(year, n), nil
}
