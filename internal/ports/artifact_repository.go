package ports

import (
	"context"

	"testforge/internal/domain/artifact"
)

// Artifact is the repository view of a reviewable work item. Timestamps are
// RFC3339Nano strings; nullable ones are pointers.
type Artifact struct {
	ID                string
	ProjectID         string
	Type              artifact.Type
	State             artifact.State
	RiskLevel         artifact.RiskLevel
	RiskScore         float64
	RiskFactors       map[string]any
	AIConfidence      *float64
	Title             string
	Content           string
	Version           int
	PreviousVersionID *string
	SourceAgent       string
	CreatedByID       string
	SubmittedAt       *string
	ApprovedAt        *string
	RejectedAt        *string
	ArchivedAt        *string
	CreatedAt         string
	UpdatedAt         string
}

// Workflow is the 1:1 approval record owned by the coordinator.
type Workflow struct {
	ID                string
	ArtifactID        string
	RequiredApprovals int
	CurrentApprovals  int
	RequiresAdmin     bool
	RequiresLead      bool
	AutoApproved      bool
	AutoApproveReason *string
	StartedAt         string
	CompletedAt       *string
}

// Step is one reviewer claim. At most one step per workflow is in_progress.
type Step struct {
	ID           string
	WorkflowID   string
	AssignedToID string
	Status       artifact.StepStatus
	Comment      *string
	CreatedAt    string
	DecidedAt    *string
}

// HistoryEntry is one append-only audit row. FromState is nil for creation.
// Seq is assigned by storage on append and orders the trail.
type HistoryEntry struct {
	Seq        uint64
	ArtifactID string
	FromState  *artifact.State
	ToState    artifact.State
	Action     artifact.Action
	ActorID    string
	ActionAt   string
}

// Feedback is one structured rejection feedback entry.
type Feedback struct {
	ID           string
	ArtifactID   string
	Category     string
	Severity     artifact.FeedbackSeverity
	Description  string
	SuggestedFix *string
	CreatedAt    string
}

// Project is the existence-check view of a project.
type Project struct {
	ID        string
	Name      string
	CreatedAt string
}

// ArtifactFilter scopes List queries. Zero fields are ignored; States wins
// over State when both are set.
type ArtifactFilter struct {
	ProjectID string
	Type      artifact.Type
	State     artifact.State
	States    []artifact.State
	Limit     int
	Offset    int
}

// StateTransition is the compare-and-swap primitive for artifact state.
// The repository applies it as a single conditional UPDATE; a false result
// means the from-state did not match and nothing changed. Stamp selects
// which lifecycle timestamp column is set alongside the state.
type StateTransition struct {
	ArtifactID string
	From       artifact.State
	To         artifact.State
	Stamp      artifact.Action
	At         string
}

// ArtifactRepository is the persistence contract for the engine. Missing
// records surface as the domain's not-found sentinels so usecases can pick
// the error kind with errors.Is.
type ArtifactRepository interface {
	CreateArtifact(ctx context.Context, a Artifact) error
	GetArtifact(ctx context.Context, id string) (Artifact, error)
	ListArtifacts(ctx context.Context, filter ArtifactFilter) ([]Artifact, int64, error)
	Transition(ctx context.Context, change StateTransition) (bool, error)
	UpdateDraft(ctx context.Context, id string, title, content string, typ artifact.Type, updatedAt string) (bool, error)
	DeleteArtifact(ctx context.Context, id string) error

	CreateWorkflow(ctx context.Context, w Workflow) error
	GetWorkflowByArtifact(ctx context.Context, artifactID string) (Workflow, error)
	// AddApproval increments current_approvals by one iff it is still below
	// required_approvals, and returns the updated workflow.
	AddApproval(ctx context.Context, workflowID string, at string) (Workflow, error)
	CompleteWorkflow(ctx context.Context, workflowID string, completedAt string) error
	MarkAutoApproved(ctx context.Context, workflowID string, reason string, completedAt string) error

	CreateStep(ctx context.Context, s Step) error
	ActiveStep(ctx context.Context, workflowID string) (Step, error)
	HasActiveStep(ctx context.Context, workflowID string) (bool, error)
	// HasApprovedStep reports whether assignee already holds an approved
	// step on the workflow; the quota wants distinct reviewers.
	HasApprovedStep(ctx context.Context, workflowID string, assigneeID string) (bool, error)
	// FinishStep resolves the in_progress step held by assignedTo; a false
	// result means no such step matched (already resolved or wrong holder).
	FinishStep(ctx context.Context, stepID string, assignedTo string, status artifact.StepStatus, comment *string, decidedAt string) (bool, error)
	ListSteps(ctx context.Context, workflowID string) ([]Step, error)

	AppendHistory(ctx context.Context, entry HistoryEntry) error
	ListHistory(ctx context.Context, artifactID string) ([]HistoryEntry, error)

	CreateFeedback(ctx context.Context, entries []Feedback) error
	ListFeedback(ctx context.Context, artifactID string) ([]Feedback, error)
}

// ProjectLookup checks that a referenced project exists.
type ProjectLookup interface {
	GetProject(ctx context.Context, id string) (Project, error)
}
