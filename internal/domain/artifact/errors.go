package artifact

import (
	"errors"
	"fmt"
)

// Error kinds. Every guard failure wraps ErrValidation and every missing
// record wraps ErrNotFound, so callers select the kind with errors.Is.
// Collaborator failures (risk assessment, SLA tracking, persistence) are
// propagated unwrapped.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")

	ErrArtifactNotFound = fmt.Errorf("artifact %w", ErrNotFound)
	ErrProjectNotFound  = fmt.Errorf("project %w", ErrNotFound)
	ErrWorkflowNotFound = fmt.Errorf("approval workflow %w", ErrNotFound)
	ErrStepNotFound     = fmt.Errorf("approval step %w", ErrNotFound)

	ErrAlreadyClaimed    = fmt.Errorf("%w: artifact already has an active review step", ErrValidation)
	ErrNotAssignee       = fmt.Errorf("%w: caller does not hold the active review step", ErrValidation)
	ErrStateConflict     = fmt.Errorf("%w: artifact state changed concurrently", ErrValidation)
	ErrDuplicateReviewer = fmt.Errorf("%w: reviewer already approved this workflow", ErrValidation)
)

// actionVerbs maps the past-tense audit vocabulary to the imperative forms
// error messages read in. Action values themselves never change once
// written to history.
var actionVerbs = map[Action]string{
	ActionCreated:   "create",
	ActionSubmitted: "submit",
	ActionClaimed:   "claim",
	ActionApproved:  "approve",
	ActionRejected:  "reject",
	ActionRevised:   "revise",
	ActionArchived:  "archive",
}

// InvalidTransition reports an attempt to drive an artifact through an edge
// the transition table does not have.
func InvalidTransition(from State, action Action) error {
	verb := string(action)
	if v, ok := actionVerbs[action]; ok {
		verb = v
	}
	return fmt.Errorf("%w: cannot %s artifact in state %q", ErrValidation, verb, from)
}

// IsNotFound reports whether err is a missing-record error of any flavor.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation reports whether err is a guard or input violation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
