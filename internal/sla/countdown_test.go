package sla

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2026, time.March, 2, 9, 30, 0, 0, time.UTC)

func TestComputeCountdown(t *testing.T) {
	tests := []struct {
		name      string
		remaining time.Duration
		want      Countdown
	}{
		{
			name:      "days ahead",
			remaining: 2*day + 3*time.Hour + 4*time.Minute + 5*time.Second,
			want:      Countdown{Days: 2, Hours: 3, Minutes: 4, Seconds: 5, Severity: SeverityOnTrack, TotalSeconds: 183845},
		},
		{
			name:      "sub-second remainder is truncated",
			remaining: 90*time.Minute + 999*time.Millisecond,
			want:      Countdown{Hours: 1, Minutes: 30, Severity: SeverityCritical, TotalSeconds: 5400},
		},
		{
			name:      "exactly at deadline",
			remaining: 0,
			want:      Countdown{Breached: true, Severity: SeverityBreached},
		},
		{
			name:      "overdue",
			remaining: -(day + time.Hour + time.Second),
			want:      Countdown{Days: 1, Hours: 1, Seconds: 1, Breached: true, Severity: SeverityBreached, TotalSeconds: -90001},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeCountdown(epoch, epoch.Add(tt.remaining))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSeverityFor(t *testing.T) {
	tests := []struct {
		remaining time.Duration
		want      Severity
	}{
		{-time.Minute, SeverityBreached},
		{0, SeverityBreached},
		{time.Second, SeverityCritical},
		{2*time.Hour - time.Second, SeverityCritical},
		{2 * time.Hour, SeverityWarning},
		{4*time.Hour - time.Second, SeverityWarning},
		{4 * time.Hour, SeverityAttention},
		{8*time.Hour - time.Second, SeverityAttention},
		{8 * time.Hour, SeverityOnTrack},
		{72 * time.Hour, SeverityOnTrack},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SeverityFor(tt.remaining), tt.remaining.String())
	}
}

func TestCountdownProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	offsets := gen.Int64Range(-30*86400, 30*86400)

	properties.Property("countdown is a pure function of now and target", prop.ForAll(
		func(offset int64) bool {
			target := epoch.Add(time.Duration(offset) * time.Second)
			return ComputeCountdown(epoch, target) == ComputeCountdown(epoch, target)
		},
		offsets,
	))

	properties.Property("decomposed fields stay in their natural ranges and recompose", prop.ForAll(
		func(offset int64) bool {
			c := ComputeCountdown(epoch, epoch.Add(time.Duration(offset)*time.Second))
			if c.Hours < 0 || c.Hours >= 24 || c.Minutes < 0 || c.Minutes >= 60 || c.Seconds < 0 || c.Seconds >= 60 || c.Days < 0 {
				return false
			}
			total := int64(c.Days)*86400 + int64(c.Hours)*3600 + int64(c.Minutes)*60 + int64(c.Seconds)
			if c.Breached {
				return total == -offset && c.Severity == SeverityBreached
			}
			return total == offset
		},
		offsets,
	))

	properties.TestingRun(t)
}
