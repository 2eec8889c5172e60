// Package lifecycle holds the CWCRF case status model: the forward stage
// order, the terminal side branches and the transition table every status
// change is checked against.
package lifecycle

import "gryork/pkg/types"

// Stages is the forward path a case takes under normal operation.
var Stages = []types.CaseStatus{
	types.CaseStatusSubmitted,
	types.CaseStatusBuyerPending,
	types.CaseStatusBuyerApproved,
	types.CaseStatusUnderRiskReview,
	types.CaseStatusCWCAFReady,
	types.CaseStatusSharedWithNBFC,
	types.CaseStatusQuotationsReceived,
	types.CaseStatusNBFCSelected,
	types.CaseStatusDocumentationPending,
	types.CaseStatusDisbursed,
}

// Halts are the terminal side branches a case can be abandoned into.
var Halts = []types.CaseStatus{
	types.CaseStatusBuyerRejected,
	types.CaseStatusRejected,
	types.CaseStatusCancelled,
}

// systemDriven stages are entered only by the bid operations, never by a
// direct status assignment.
var systemDriven = map[types.CaseStatus]bool{
	types.CaseStatusQuotationsReceived: true,
	types.CaseStatusNBFCSelected:       true,
}

var transitions = buildTable()

func buildTable() map[types.CaseStatus]map[types.CaseStatus]bool {
	table := make(map[types.CaseStatus]map[types.CaseStatus]bool, len(Stages)+len(Halts))

	for i, from := range Stages {
		next := make(map[types.CaseStatus]bool)
		table[from] = next
		if from == types.CaseStatusDisbursed {
			continue
		}

		next[Stages[i+1]] = true
		// CANCELLED stays open from BUYER_PENDING; only REJECTED gives way to BUYER_REJECTED there.
		next[types.CaseStatusCancelled] = true
		if from == types.CaseStatusBuyerPending {
			next[types.CaseStatusBuyerRejected] = true
		} else {
			next[types.CaseStatusRejected] = true
		}
	}

	for _, halt := range Halts {
		table[halt] = map[types.CaseStatus]bool{}
	}

	return table
}

// Valid reports whether s is a known case status.
func Valid(s types.CaseStatus) bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether s accepts no further transitions.
func IsTerminal(s types.CaseStatus) bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// IsHalted reports whether s is one of the rejection/cancellation branches.
func IsHalted(s types.CaseStatus) bool {
	for _, h := range Halts {
		if h == s {
			return true
		}
	}
	return false
}

// CanTransition reports whether the table has an edge from -> to, regardless
// of which operation is allowed to take it.
func CanTransition(from, to types.CaseStatus) bool {
	return transitions[from][to]
}

// CheckManual validates a direct status assignment from an actor. Edges into
// system-driven stages are refused here even though they exist in the table.
func CheckManual(from, to types.CaseStatus) error {
	if !CanTransition(from, to) || systemDriven[to] {
		return &types.InvalidTransitionError{From: from, To: to}
	}
	return nil
}

// Allowed lists the statuses an actor may move a case to from s, forward
// stage first.
func Allowed(s types.CaseStatus) []types.CaseStatus {
	out := make([]types.CaseStatus, 0, 3)
	for _, candidate := range Stages {
		if CanTransition(s, candidate) && !systemDriven[candidate] {
			out = append(out, candidate)
		}
	}
	for _, candidate := range Halts {
		if CanTransition(s, candidate) {
			out = append(out, candidate)
		}
	}
	return out
}

// StageIndex is the position of s on the forward path, or -1 for halted and
// unknown statuses.
func StageIndex(s types.CaseStatus) int {
	for i, stage := range Stages {
		if stage == s {
			return i
		}
	}
	return -1
}

// Progress is the percentage of the forward path completed at s. Halted cases
// report 0.
func Progress(s types.CaseStatus) int {
	idx := StageIndex(s)
	if idx < 0 {
		return 0
	}
	return idx * 100 / (len(Stages) - 1)
}
