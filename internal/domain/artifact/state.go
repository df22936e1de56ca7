package artifact

import (
	"fmt"
	"strings"
)

// State is the artifact lifecycle state. The zero value is not valid; new
// artifacts always start in StateDraft.
type State string

const (
	StateDraft         State = "draft"
	StatePendingReview State = "pending_review"
	StateInReview      State = "in_review"
	StateApproved      State = "approved"
	StateRejected      State = "rejected"
	StateArchived      State = "archived"
)

// Action is the verb that drives a transition. Actions double as the audit
// trail vocabulary, so they never get renamed once written to history.
type Action string

const (
	ActionCreated   Action = "created"
	ActionSubmitted Action = "submitted"
	ActionClaimed   Action = "claimed"
	ActionApproved  Action = "approved"
	ActionRejected  Action = "rejected"
	ActionRevised   Action = "revised"
	ActionArchived  Action = "archived"
)

// Type is the artifact kind produced by callers or agents.
type Type string

const (
	TypeTestCase Type = "test_case"
	TypeScript   Type = "script"
	TypeTestPlan Type = "test_plan"
	TypeTestData Type = "test_data"
)

var allowedTypes = map[Type]struct{}{
	TypeTestCase: {},
	TypeScript:   {},
	TypeTestPlan: {},
	TypeTestData: {},
}

// ParseType validates a caller-supplied artifact type.
func ParseType(raw string) (Type, error) {
	t := Type(strings.TrimSpace(strings.ToLower(raw)))
	if _, ok := allowedTypes[t]; !ok {
		return "", fmt.Errorf("%w: unknown artifact type %q", ErrValidation, raw)
	}
	return t, nil
}

// transitions is the authoritative edge table. Approve has two outcomes
// (quota met or not) and submit has two outcomes (auto-approved or queued);
// both entries list every state the edge may land in. Guards beyond the
// from-state (active step ownership, quota arithmetic) live in the usecase
// layer where the workflow record is visible.
var transitions = map[State]map[Action][]State{
	StateDraft: {
		ActionSubmitted: {StatePendingReview, StateApproved},
	},
	StatePendingReview: {
		ActionClaimed: {StateInReview},
	},
	StateInReview: {
		ActionApproved: {StateApproved, StatePendingReview},
		ActionRejected: {StateRejected},
	},
	StateRejected: {
		// Revise archives the superseded artifact; the replacement starts
		// a fresh lifecycle in draft.
		ActionRevised: {StateArchived},
	},
	StateApproved: {
		ActionArchived: {StateArchived},
	},
}

// CanTransition reports whether the table has an edge from -> to for action.
func CanTransition(from State, action Action, to State) bool {
	targets, ok := transitions[from][action]
	if !ok {
		return false
	}
	for _, t := range targets {
		if t == to {
			return true
		}
	}
	return false
}

// Guard returns the table's verdict as a ValidationError, keeping call sites
// one-liners: if err := artifact.Guard(from, action, to); err != nil { ... }.
func Guard(from State, action Action, to State) error {
	if !CanTransition(from, action, to) {
		return InvalidTransition(from, action)
	}
	return nil
}

// Archivable reports whether the public archive operation accepts the state.
// Only approved artifacts archive directly; rejected ones archive through
// revise, and everything else is refused.
func Archivable(s State) bool {
	return s == StateApproved
}

// Deletable reports whether an artifact may be physically removed.
func Deletable(s State) bool {
	return s == StateDraft || s == StateArchived
}

// Editable reports whether title/content/type may be patched in place.
func Editable(s State) bool {
	return s == StateDraft
}

// ReviewQueueStates are the states the review queue scopes to.
var ReviewQueueStates = []State{StatePendingReview, StateInReview}

// ParseState validates a caller-supplied state filter.
func ParseState(raw string) (State, error) {
	s := State(strings.TrimSpace(strings.ToLower(raw)))
	switch s {
	case StateDraft, StatePendingReview, StateInReview, StateApproved, StateRejected, StateArchived:
		return s, nil
	}
	return "", fmt.Errorf("%w: unknown artifact state %q", ErrValidation, raw)
}
