package artifact

import (
	"context"
	"strings"

	"github.com/google/uuid"

	domain "testforge/internal/domain/artifact"
	"testforge/internal/ports"
)

// Create validates the input, asks the risk collaborator for a verdict, and
// persists the draft artifact with its approval workflow and the opening
// history entry in one unit of work. Nothing is written if the assessment
// fails.
func (s *Service) Create(ctx context.Context, input CreateInput) (Detail, error) {
	if err := s.checkMutationDeps(ctx); err != nil {
		return Detail{}, err
	}
	if s.projects == nil {
		return Detail{}, errProjectsRequired
	}
	if s.risk == nil {
		return Detail{}, errAssessorRequired
	}

	projectID := strings.TrimSpace(input.ProjectID)
	if projectID == "" {
		return Detail{}, errProjectRequired
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return Detail{}, errTitleRequired
	}
	if strings.TrimSpace(input.Content) == "" {
		return Detail{}, errContentRequired
	}
	createdBy := strings.TrimSpace(input.CreatedByID)
	if createdBy == "" {
		return Detail{}, errActorRequired
	}
	typ, err := domain.ParseType(input.Type)
	if err != nil {
		return Detail{}, err
	}
	if input.AIConfidence != nil && (*input.AIConfidence < 0 || *input.AIConfidence > 100) {
		return Detail{}, errConfidenceRange
	}

	if _, err := s.projects.GetProject(ctx, projectID); err != nil {
		return Detail{}, err
	}

	assessment, err := s.risk.AssessRisk(ctx, ports.ArtifactDraft{
		ProjectID:    projectID,
		Type:         typ,
		Title:        title,
		Content:      input.Content,
		SourceAgent:  strings.TrimSpace(input.SourceAgent),
		AIConfidence: input.AIConfidence,
	})
	if err != nil {
		return Detail{}, err
	}

	requiredApprovals := assessment.Requirements.RequiredApprovals
	if requiredApprovals < 1 {
		requiredApprovals = 1
	}

	now := nowUTCString()
	artifactID := uuid.New().String()

	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.CreateArtifact(txCtx, ports.Artifact{
			ID:           artifactID,
			ProjectID:    projectID,
			Type:         typ,
			State:        domain.StateDraft,
			RiskLevel:    assessment.Level,
			RiskScore:    assessment.Score,
			RiskFactors:  assessment.Factors,
			AIConfidence: input.AIConfidence,
			Title:        title,
			Content:      input.Content,
			Version:      1,
			SourceAgent:  strings.TrimSpace(input.SourceAgent),
			CreatedByID:  createdBy,
			CreatedAt:    now,
			UpdatedAt:    now,
		}); err != nil {
			return err
		}

		if err := s.repo.CreateWorkflow(txCtx, ports.Workflow{
			ID:                uuid.New().String(),
			ArtifactID:        artifactID,
			RequiredApprovals: requiredApprovals,
			CurrentApprovals:  0,
			RequiresAdmin:     assessment.Requirements.RequiresAdmin,
			RequiresLead:      assessment.Requirements.RequiresLead,
			AutoApproveReason: strPtr(assessment.Requirements.AutoApproveReason),
			StartedAt:         now,
		}); err != nil {
			return err
		}

		return appendHistoryTx(txCtx, s.repo, artifactID, nil, domain.StateDraft, domain.ActionCreated, createdBy, now)
	}); err != nil {
		return Detail{}, err
	}

	s.setCacheBestEffort(ctx, cacheArtifactStateKey(artifactID), string(domain.StateDraft))
	return s.FindByID(ctx, artifactID)
}
