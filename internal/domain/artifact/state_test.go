package artifact

import (
	"errors"
	"strings"
	"testing"
)

func TestCanTransitionTable(t *testing.T) {
	allowed := []struct {
		from   State
		action Action
		to     State
	}{
		{StateDraft, ActionSubmitted, StatePendingReview},
		{StateDraft, ActionSubmitted, StateApproved},
		{StatePendingReview, ActionClaimed, StateInReview},
		{StateInReview, ActionApproved, StateApproved},
		{StateInReview, ActionApproved, StatePendingReview},
		{StateInReview, ActionRejected, StateRejected},
		{StateRejected, ActionRevised, StateArchived},
		{StateApproved, ActionArchived, StateArchived},
	}
	for _, edge := range allowed {
		if !CanTransition(edge.from, edge.action, edge.to) {
			t.Fatalf("CanTransition(%s, %s, %s) = false, want true", edge.from, edge.action, edge.to)
		}
	}

	forbidden := []struct {
		from   State
		action Action
		to     State
	}{
		{StatePendingReview, ActionSubmitted, StatePendingReview},
		{StateInReview, ActionClaimed, StateInReview},
		{StateApproved, ActionApproved, StateApproved},
		{StateArchived, ActionArchived, StateArchived},
		{StateDraft, ActionArchived, StateArchived},
		{StateRejected, ActionArchived, StateArchived},
		{StateDraft, ActionClaimed, StateInReview},
		{StateRejected, ActionSubmitted, StatePendingReview},
	}
	for _, edge := range forbidden {
		if CanTransition(edge.from, edge.action, edge.to) {
			t.Fatalf("CanTransition(%s, %s, %s) = true, want false", edge.from, edge.action, edge.to)
		}
	}
}

func TestGuardReturnsValidationError(t *testing.T) {
	err := Guard(StatePendingReview, ActionSubmitted, StatePendingReview)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Guard() error = %v, want ErrValidation", err)
	}

	if err := Guard(StateDraft, ActionSubmitted, StatePendingReview); err != nil {
		t.Fatalf("Guard() error = %v", err)
	}
}

func TestInvalidTransitionReadsImperatively(t *testing.T) {
	err := InvalidTransition(StateInReview, ActionClaimed)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("InvalidTransition() error = %v, want ErrValidation", err)
	}
	if want := `cannot claim artifact in state "in_review"`; !strings.Contains(err.Error(), want) {
		t.Fatalf("InvalidTransition() = %q, want it to contain %q", err.Error(), want)
	}

	if got := InvalidTransition(StateDraft, ActionArchived).Error(); !strings.Contains(got, "cannot archive artifact") {
		t.Fatalf("InvalidTransition() = %q, want imperative verb", got)
	}
}

func TestArchivableAndDeletable(t *testing.T) {
	if !Archivable(StateApproved) {
		t.Fatalf("Archivable(approved) = false")
	}
	for _, s := range []State{StateDraft, StatePendingReview, StateInReview, StateRejected, StateArchived} {
		if Archivable(s) {
			t.Fatalf("Archivable(%s) = true, want false", s)
		}
	}

	if !Deletable(StateDraft) || !Deletable(StateArchived) {
		t.Fatalf("Deletable() should accept draft and archived")
	}
	for _, s := range []State{StatePendingReview, StateInReview, StateApproved, StateRejected} {
		if Deletable(s) {
			t.Fatalf("Deletable(%s) = true, want false", s)
		}
	}
}

func TestParseTypeAndState(t *testing.T) {
	typ, err := ParseType(" Test_Case ")
	if err != nil {
		t.Fatalf("ParseType() error = %v", err)
	}
	if typ != TypeTestCase {
		t.Fatalf("ParseType() = %q", typ)
	}

	if _, err := ParseType("diagram"); !errors.Is(err, ErrValidation) {
		t.Fatalf("ParseType() error = %v, want ErrValidation", err)
	}

	state, err := ParseState("IN_REVIEW")
	if err != nil {
		t.Fatalf("ParseState() error = %v", err)
	}
	if state != StateInReview {
		t.Fatalf("ParseState() = %q", state)
	}

	if _, err := ParseState("limbo"); !errors.Is(err, ErrValidation) {
		t.Fatalf("ParseState() error = %v, want ErrValidation", err)
	}
}
