package sla

import "time"

type Severity string

const (
	SeverityBreached  Severity = "breached"
	SeverityCritical  Severity = "critical"
	SeverityWarning   Severity = "warning"
	SeverityAttention Severity = "attention"
	SeverityOnTrack   Severity = "on-track"
)

const (
	criticalWindow  = 2 * time.Hour
	warningWindow   = 4 * time.Hour
	attentionWindow = 8 * time.Hour
)

// Countdown is the display decomposition of the time left until (or past) a
// deadline. When Breached is set the fields describe the overdue time.
type Countdown struct {
	Days     int      `json:"days"`
	Hours    int      `json:"hours"`
	Minutes  int      `json:"minutes"`
	Seconds  int      `json:"seconds"`
	Breached bool     `json:"breached"`
	Severity Severity `json:"severity"`
	// TotalSeconds is negative once the deadline has passed.
	TotalSeconds int64 `json:"totalSeconds"`
}

// ComputeCountdown derives the countdown purely from now and target.
// Sub-second remainders are truncated.
func ComputeCountdown(now, target time.Time) Countdown {
	remaining := target.Sub(now)

	c := Countdown{Severity: SeverityFor(remaining)}

	span := remaining
	if remaining <= 0 {
		c.Breached = true
		span = -remaining
	}

	total := int64(span / time.Second)
	c.Days = int(total / 86400)
	c.Hours = int(total % 86400 / 3600)
	c.Minutes = int(total % 3600 / 60)
	c.Seconds = int(total % 60)

	c.TotalSeconds = total
	if c.Breached {
		c.TotalSeconds = -total
	}

	return c
}

// SeverityFor buckets the remaining time for alerting.
func SeverityFor(remaining time.Duration) Severity {
	switch {
	case remaining <= 0:
		return SeverityBreached
	case remaining < criticalWindow:
		return SeverityCritical
	case remaining < warningWindow:
		return SeverityWarning
	case remaining < attentionWindow:
		return SeverityAttention
	default:
		return SeverityOnTrack
	}
}
