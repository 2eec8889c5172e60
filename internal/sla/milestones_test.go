package sla

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gryork/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(seq int, status types.CaseStatus, at time.Time) *types.TimelineEntry {
	return &types.TimelineEntry{Sequence: seq, Status: status, CreatedAt: at}
}

func TestDefaultMilestones(t *testing.T) {
	tracker, err := LoadTracker("")
	require.NoError(t, err)

	days := make([]int, 0)
	for _, m := range tracker.Milestones() {
		days = append(days, m.Day)
	}
	assert.Equal(t, []int{3, 7, 10, 14}, days)
	assert.Equal(t, types.CaseStatusBuyerApproved, tracker.Milestones()[0].CompletedBy)
}

func TestParseMilestonesRejectsBadDefinitions(t *testing.T) {
	tests := map[string]string{
		"empty":         "milestones: []",
		"missing key":   "milestones:\n  - name: X\n    day: 3\n    completed_by: BUYER_APPROVED",
		"duplicate key": "milestones:\n  - {key: a, day: 3, completed_by: BUYER_APPROVED}\n  - {key: a, day: 4, completed_by: CWCAF_READY}",
		"zero day":      "milestones:\n  - {key: a, day: 0, completed_by: BUYER_APPROVED}",
		"halt stage":    "milestones:\n  - {key: a, day: 3, completed_by: CANCELLED}",
		"not yaml":      "milestones: [",
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseMilestones([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestParseMilestonesSortsByDay(t *testing.T) {
	doc := "milestones:\n  - {key: late, day: 9, completed_by: DISBURSED}\n  - {key: early, day: 1, completed_by: BUYER_PENDING}"
	milestones, err := ParseMilestones([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "early", milestones[0].Key)
	assert.Equal(t, "late", milestones[1].Key)
}

func TestLoadTrackerFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sla.yaml")
	require.NoError(t, os.WriteFile(path, []byte("milestones:\n  - {key: only, day: 5, completed_by: CWCAF_READY}"), 0o600))

	tracker, err := LoadTracker(path)
	require.NoError(t, err)
	require.Len(t, tracker.Milestones(), 1)
	assert.Equal(t, 5, tracker.Milestones()[0].Day)

	_, err = LoadTracker(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEvaluateMilestone(t *testing.T) {
	m := Milestone{Key: "buyer_verification", Day: 3, CompletedBy: types.CaseStatusBuyerApproved}
	target := epoch.Add(3 * day)

	pending := EvaluateMilestone(m, epoch, nil, epoch.Add(2*day))
	assert.Equal(t, MilestonePending, pending.Status)
	assert.Equal(t, target, pending.TargetDate)
	require.NotNil(t, pending.Countdown)
	assert.Equal(t, 1, pending.Countdown.Days)

	early := target.Add(-time.Minute)
	completed := EvaluateMilestone(m, epoch, &early, epoch.Add(10*day))
	assert.Equal(t, MilestoneCompleted, completed.Status)
	assert.Nil(t, completed.Countdown)

	completedLate := EvaluateMilestone(m, epoch, &target, epoch.Add(10*day))
	assert.Equal(t, MilestoneCompletedLate, completedLate.Status)

	overdue := EvaluateMilestone(m, epoch, nil, target)
	assert.Equal(t, MilestoneOverdue, overdue.Status)
}

func TestDayThreeOverdueByOneHour(t *testing.T) {
	tracker, err := LoadTracker("")
	require.NoError(t, err)

	c := &types.Case{
		ID:        "case-1",
		Status:    types.CaseStatusBuyerPending,
		CreatedAt: epoch,
		Timeline: []*types.TimelineEntry{
			entry(1, types.CaseStatusSubmitted, epoch),
			entry(2, types.CaseStatusBuyerPending, epoch.Add(time.Hour)),
		},
	}

	report := tracker.Evaluate(c, epoch.Add(3*day+time.Hour))

	dayThree := report.Milestones[0]
	assert.Equal(t, MilestoneOverdue, dayThree.Status)
	require.NotNil(t, dayThree.Countdown)
	assert.Equal(t, Countdown{Hours: 1, Breached: true, Severity: SeverityBreached, TotalSeconds: -3600}, *dayThree.Countdown)

	require.NotNil(t, report.Next)
	assert.Equal(t, "buyer_verification", report.Next.Key)
	assert.Equal(t, 1, report.StageIndex)
}

func TestEvaluateUsesFirstEntryAtOrBeyondStage(t *testing.T) {
	tracker, err := LoadTracker("")
	require.NoError(t, err)

	c := &types.Case{
		Status:    types.CaseStatusUnderRiskReview,
		CreatedAt: epoch,
		Timeline: []*types.TimelineEntry{
			entry(1, types.CaseStatusSubmitted, epoch),
			entry(2, types.CaseStatusBuyerPending, epoch.Add(day)),
			entry(3, types.CaseStatusBuyerApproved, epoch.Add(2*day)),
			entry(4, types.CaseStatusUnderRiskReview, epoch.Add(4*day)),
		},
	}

	report := tracker.Evaluate(c, epoch.Add(5*day))
	assert.Equal(t, MilestoneCompleted, report.Milestones[0].Status)
	assert.Equal(t, epoch.Add(2*day), *report.Milestones[0].CompletedAt)
	assert.Equal(t, MilestonePending, report.Milestones[1].Status)
	assert.Equal(t, "risk_assessment", report.Next.Key)
}

func TestEvaluateStopsTheClockForHaltedCases(t *testing.T) {
	tracker, err := LoadTracker("")
	require.NoError(t, err)

	halted := epoch.Add(day)
	c := &types.Case{
		Status:    types.CaseStatusCancelled,
		CreatedAt: epoch,
		Timeline: []*types.TimelineEntry{
			entry(1, types.CaseStatusSubmitted, epoch),
			entry(2, types.CaseStatusCancelled, halted),
		},
	}

	report := tracker.Evaluate(c, epoch.Add(30*day))
	assert.Equal(t, halted, report.AsOf)
	for _, m := range report.Milestones {
		assert.Equal(t, MilestonePending, m.Status, m.Key)
	}
	assert.Equal(t, 0, report.Progress)
}
