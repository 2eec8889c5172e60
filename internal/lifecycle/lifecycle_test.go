package lifecycle

import (
	"errors"
	"testing"

	"gryork/pkg/types"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allStatuses() []interface{} {
	out := make([]interface{}, 0, len(Stages)+len(Halts))
	for _, s := range Stages {
		out = append(out, s)
	}
	for _, s := range Halts {
		out = append(out, s)
	}
	return out
}

func TestForwardPathIsOneStageAtATime(t *testing.T) {
	for i := 0; i < len(Stages)-1; i++ {
		from, to := Stages[i], Stages[i+1]
		assert.True(t, CanTransition(from, to), "%s -> %s", from, to)

		for j := i + 2; j < len(Stages); j++ {
			assert.False(t, CanTransition(from, Stages[j]), "skip %s -> %s", from, Stages[j])
		}
		for j := 0; j <= i; j++ {
			assert.False(t, CanTransition(from, Stages[j]), "backwards %s -> %s", from, Stages[j])
		}
	}
}

func TestHaltBranches(t *testing.T) {
	assert.True(t, CanTransition(types.CaseStatusBuyerPending, types.CaseStatusBuyerRejected))
	assert.False(t, CanTransition(types.CaseStatusBuyerPending, types.CaseStatusRejected))
	assert.True(t, CanTransition(types.CaseStatusBuyerPending, types.CaseStatusCancelled))

	assert.False(t, CanTransition(types.CaseStatusSubmitted, types.CaseStatusBuyerRejected))
	assert.False(t, CanTransition(types.CaseStatusUnderRiskReview, types.CaseStatusBuyerRejected))

	for _, s := range Stages[:len(Stages)-1] {
		assert.True(t, CanTransition(s, types.CaseStatusCancelled), "%s -> CANCELLED", s)
		if s != types.CaseStatusBuyerPending {
			assert.True(t, CanTransition(s, types.CaseStatusRejected), "%s -> REJECTED", s)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	terminal := []types.CaseStatus{
		types.CaseStatusDisbursed,
		types.CaseStatusBuyerRejected,
		types.CaseStatusRejected,
		types.CaseStatusCancelled,
	}
	for _, s := range terminal {
		assert.True(t, IsTerminal(s), s)
		assert.Empty(t, Allowed(s), s)
	}
	assert.False(t, IsTerminal(types.CaseStatusSubmitted))
	assert.False(t, IsTerminal("NOT_A_STATUS"))
}

func TestCheckManualRefusesSystemDrivenStages(t *testing.T) {
	err := CheckManual(types.CaseStatusQuotationsReceived, types.CaseStatusNBFCSelected)
	var ite *types.InvalidTransitionError
	require.True(t, errors.As(err, &ite))
	assert.Equal(t, types.CaseStatusQuotationsReceived, ite.From)
	assert.Equal(t, types.CaseStatusNBFCSelected, ite.To)

	assert.Error(t, CheckManual(types.CaseStatusSharedWithNBFC, types.CaseStatusQuotationsReceived))
	assert.NoError(t, CheckManual(types.CaseStatusNBFCSelected, types.CaseStatusDocumentationPending))
	assert.NoError(t, CheckManual(types.CaseStatusDocumentationPending, types.CaseStatusDisbursed))
}

func TestAllowed(t *testing.T) {
	assert.Equal(t, []types.CaseStatus{
		types.CaseStatusBuyerPending,
		types.CaseStatusRejected,
		types.CaseStatusCancelled,
	}, Allowed(types.CaseStatusSubmitted))

	assert.Equal(t, []types.CaseStatus{
		types.CaseStatusBuyerApproved,
		types.CaseStatusBuyerRejected,
		types.CaseStatusCancelled,
	}, Allowed(types.CaseStatusBuyerPending))

	// the way forward from here is a quotation, not an assignment
	assert.Equal(t, []types.CaseStatus{
		types.CaseStatusRejected,
		types.CaseStatusCancelled,
	}, Allowed(types.CaseStatusSharedWithNBFC))
}

func TestStageIndexAndProgress(t *testing.T) {
	assert.Equal(t, 0, StageIndex(types.CaseStatusSubmitted))
	assert.Equal(t, 6, StageIndex(types.CaseStatusQuotationsReceived))
	assert.Equal(t, 9, StageIndex(types.CaseStatusDisbursed))
	assert.Equal(t, -1, StageIndex(types.CaseStatusCancelled))

	assert.Equal(t, 0, Progress(types.CaseStatusSubmitted))
	assert.Equal(t, 100, Progress(types.CaseStatusDisbursed))
	assert.Equal(t, 55, Progress(types.CaseStatusSharedWithNBFC))
	assert.Equal(t, 0, Progress(types.CaseStatusRejected))
}

func TestTransitionTableProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("a manual transition either advances one stage or halts the case", prop.ForAll(
		func(from, to types.CaseStatus) bool {
			if CheckManual(from, to) != nil {
				return true
			}
			if IsHalted(to) {
				return !IsTerminal(from)
			}
			return StageIndex(to) == StageIndex(from)+1
		},
		gen.OneConstOf(allStatuses()...),
		gen.OneConstOf(allStatuses()...),
	))

	properties.Property("terminal statuses accept no transition", prop.ForAll(
		func(from, to types.CaseStatus) bool {
			if !IsTerminal(from) {
				return true
			}
			return !CanTransition(from, to) && CheckManual(from, to) != nil
		},
		gen.OneConstOf(allStatuses()...),
		gen.OneConstOf(allStatuses()...),
	))

	properties.Property("a walk of allowed steps never moves backwards", prop.ForAll(
		func(choices []int) bool {
			current := types.CaseStatusSubmitted
			for _, c := range choices {
				next := Allowed(current)
				if len(next) == 0 {
					return IsTerminal(current)
				}
				candidate := next[c%len(next)]
				if StageIndex(candidate) >= 0 && StageIndex(candidate) <= StageIndex(current) {
					return false
				}
				current = candidate
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 8)),
	))

	properties.TestingRun(t)
}
