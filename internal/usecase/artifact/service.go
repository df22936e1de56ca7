package artifact

import (
	"errors"

	domain "testforge/internal/domain/artifact"
	"testforge/internal/ports"
)

var (
	errTitleRequired      = errors.New("title is required")
	errContentRequired    = errors.New("content is required")
	errProjectRequired    = errors.New("project id is required")
	errArtifactRequired   = errors.New("artifact id is required")
	errActorRequired      = errors.New("user id is required")
	errConfidenceRange    = errors.New("ai confidence score must be between 0 and 100")
	errRepoRequired       = errors.New("artifact repository is required")
	errUowRequired        = errors.New("unit of work is required")
	errProjectsRequired   = errors.New("project lookup is required")
	errAssessorRequired   = errors.New("risk assessor is required")
	errSLARequired        = errors.New("sla tracker is required")
	errFeedbackIncomplete = errors.New("feedback entries need category and description")
)

// Service is the approval workflow coordinator. It owns every mutation of
// artifacts, workflows and steps; callers and collaborators only see the
// ports contracts.
type Service struct {
	repo     ports.ArtifactRepository
	projects ports.ProjectLookup
	risk     ports.RiskAssessor
	sla      ports.SLATracker
	uow      ports.UnitOfWork
	cache    ports.Cache
}

// NewService wires the coordinator with its persistence and collaborator
// ports. Cache is optional; everything else is required at call time.
func NewService(
	repo ports.ArtifactRepository,
	projects ports.ProjectLookup,
	risk ports.RiskAssessor,
	sla ports.SLATracker,
	uow ports.UnitOfWork,
	cache ports.Cache,
) *Service {
	return &Service{
		repo:     repo,
		projects: projects,
		risk:     risk,
		sla:      sla,
		uow:      uow,
		cache:    cache,
	}
}

// CreateInput carries everything needed to create a draft artifact.
type CreateInput struct {
	ProjectID    string
	Type         string
	SourceAgent  string
	Title        string
	Content      string
	AIConfidence *float64
	CreatedByID  string
}

// UpdateInput patches draft fields; nil members are left unchanged.
type UpdateInput struct {
	Title   *string
	Content *string
	Type    *string
}

// FeedbackInput is one structured rejection feedback entry.
type FeedbackInput struct {
	Category     string
	Severity     domain.FeedbackSeverity
	Description  string
	SuggestedFix *string
}

// ListFilter scopes List queries.
type ListFilter struct {
	ProjectID string
	Type      string
	State     string
	Limit     int
	Offset    int
}

// Detail is an artifact with its nested workflow, steps, history and
// feedback, the shape read operations and mutations hand back to callers.
type Detail struct {
	Artifact ports.Artifact
	Workflow ports.Workflow
	Steps    []ports.Step
	History  []ports.HistoryEntry
	Feedback []ports.Feedback
}

// ListResult is one page of artifacts plus the unpaged total.
type ListResult struct {
	Items []ports.Artifact
	Total int64
}
