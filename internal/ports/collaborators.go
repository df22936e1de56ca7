package ports

import (
	"context"

	"testforge/internal/domain/artifact"
)

// ArtifactDraft is the artifact-shaped input handed to risk assessment
// before the artifact row exists.
type ArtifactDraft struct {
	ProjectID    string
	Type         artifact.Type
	Title        string
	Content      string
	SourceAgent  string
	AIConfidence *float64
}

// ApprovalRequirements is the reviewer quota and role gating returned by
// risk assessment and frozen into the workflow at creation.
type ApprovalRequirements struct {
	RequiredApprovals int
	RequiresAdmin     bool
	RequiresLead      bool
	CanAutoApprove    bool
	AutoApproveReason string
}

// RiskAssessment is the collaborator verdict the engine consumes. The
// scoring formula is the collaborator's business.
type RiskAssessment struct {
	Score        float64
	Level        artifact.RiskLevel
	Factors      map[string]any
	Requirements ApprovalRequirements
}

// RiskAssessor is the external risk-assessment collaborator. Failures
// propagate to the caller unwrapped; the engine commits nothing that
// depends on a verdict it never received.
type RiskAssessor interface {
	AssessRisk(ctx context.Context, draft ArtifactDraft) (RiskAssessment, error)
	ProjectSettings(ctx context.Context, projectID string) (artifact.AutoApprovePolicy, error)
}

// SLATracker opens a deadline window when an artifact enters review and
// closes it on a terminal decision. The deadline is a data attribute, never
// a blocking wait.
type SLATracker interface {
	Open(ctx context.Context, artifactID string) error
	Complete(ctx context.Context, artifactID string) error
}
