package artifact

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	domain "testforge/internal/domain/artifact"
	"testforge/internal/infrastructure/persistence/sqlite/model"
	sqliterepo "testforge/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "testforge/internal/infrastructure/persistence/sqlite/uow"
	"testforge/internal/infrastructure/sla"
	"testforge/internal/ports"
)

type testCache struct {
	data map[string]string
}

func newTestCache() *testCache {
	return &testCache{
		data: make(map[string]string),
	}
}

func (c *testCache) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *testCache) Set(_ context.Context, key string, value string, _ time.Duration) error {
	c.data[key] = value
	return nil
}

func (c *testCache) Delete(_ context.Context, key string) error {
	delete(c.data, key)
	return nil
}

type stubAssessor struct {
	assessment ports.RiskAssessment
	err        error
	policy     domain.AutoApprovePolicy
}

func (s *stubAssessor) AssessRisk(_ context.Context, _ ports.ArtifactDraft) (ports.RiskAssessment, error) {
	if s.err != nil {
		return ports.RiskAssessment{}, s.err
	}
	return s.assessment, nil
}

func (s *stubAssessor) ProjectSettings(_ context.Context, _ string) (domain.AutoApprovePolicy, error) {
	return s.policy, nil
}

func defaultAssessment() ports.RiskAssessment {
	return ports.RiskAssessment{
		Score: 42,
		Level: domain.RiskMedium,
		Factors: map[string]any{
			"base_score": 30,
		},
		Requirements: ports.ApprovalRequirements{
			RequiredApprovals: 1,
			AutoApproveReason: "medium risk with confident agent",
		},
	}
}

func setupService(t *testing.T) (*Service, *testCache, *gorm.DB, *stubAssessor) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := db.Exec("PRAGMA foreign_keys = ON;").Error; err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}

	if err := db.AutoMigrate(
		&model.Project{},
		&model.Artifact{},
		&model.ApprovalWorkflow{},
		&model.ApprovalStep{},
		&model.ArtifactHistory{},
		&model.ApprovalFeedback{},
		&model.SLAWindow{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	if err := db.Create(&model.Project{
		ID:        "proj-1",
		Name:      "checkout regression suite",
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}).Error; err != nil {
		t.Fatalf("seed project: %v", err)
	}

	cache := newTestCache()
	assessor := &stubAssessor{assessment: defaultAssessment()}
	repo := sqliterepo.NewArtifactRepository(db)
	projects := sqliterepo.NewProjectRepository(db)
	uow := sqliteuow.NewUnitOfWork(db)
	tracker := sla.NewTracker(db, 48*time.Hour)
	svc := NewService(repo, projects, assessor, tracker, uow, cache)
	return svc, cache, db, assessor
}

func float64Ptr(v float64) *float64 {
	return &v
}

func createDraft(t *testing.T, svc *Service, confidence *float64) Detail {
	t.Helper()

	detail, err := svc.Create(context.Background(), CreateInput{
		ProjectID:    "proj-1",
		Type:         "test_case",
		SourceAgent:  "casegen",
		Title:        "login with expired password",
		Content:      "step 1: open login page",
		AIConfidence: confidence,
		CreatedByID:  "user-author",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return detail
}

func countRows(t *testing.T, db *gorm.DB, m any, query string, args ...any) int64 {
	t.Helper()

	var n int64
	if err := db.Model(m).Where(query, args...).Count(&n).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return n
}

func TestCreatePersistsWorkflowAndHistory(t *testing.T) {
	svc, cache, _, _ := setupService(t)

	detail := createDraft(t, svc, float64Ptr(91))

	if detail.Artifact.State != domain.StateDraft {
		t.Fatalf("state = %q, want draft", detail.Artifact.State)
	}
	if detail.Artifact.Version != 1 {
		t.Fatalf("version = %d, want 1", detail.Artifact.Version)
	}
	if detail.Artifact.RiskLevel != domain.RiskMedium {
		t.Fatalf("risk level = %q, want medium", detail.Artifact.RiskLevel)
	}
	if detail.Workflow.RequiredApprovals != 1 || detail.Workflow.CurrentApprovals != 0 {
		t.Fatalf("workflow quota = %d/%d", detail.Workflow.CurrentApprovals, detail.Workflow.RequiredApprovals)
	}
	if detail.Workflow.CompletedAt != nil {
		t.Fatalf("workflow completed at creation")
	}
	if len(detail.History) != 1 {
		t.Fatalf("history length = %d, want 1", len(detail.History))
	}
	if detail.History[0].Action != domain.ActionCreated || detail.History[0].FromState != nil {
		t.Fatalf("opening history entry = %+v", detail.History[0])
	}

	if cache.data[cacheArtifactStateKey(detail.Artifact.ID)] != "draft" {
		t.Fatalf("cached state = %q", cache.data[cacheArtifactStateKey(detail.Artifact.ID)])
	}
}

func TestCreateRejectsBadInput(t *testing.T) {
	svc, _, _, _ := setupService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateInput{ProjectID: "proj-1", Type: "novel", Title: "t", Content: "c", CreatedByID: "u"}); !domain.IsValidation(err) {
		t.Fatalf("unknown type error = %v, want validation", err)
	}
	if _, err := svc.Create(ctx, CreateInput{ProjectID: "proj-1", Type: "test_case", Content: "c", CreatedByID: "u"}); !errors.Is(err, errTitleRequired) {
		t.Fatalf("missing title error = %v", err)
	}
	over := float64(101)
	if _, err := svc.Create(ctx, CreateInput{ProjectID: "proj-1", Type: "test_case", Title: "t", Content: "c", CreatedByID: "u", AIConfidence: &over}); !errors.Is(err, errConfidenceRange) {
		t.Fatalf("confidence range error = %v", err)
	}
	if _, err := svc.Create(ctx, CreateInput{ProjectID: "ghost", Type: "test_case", Title: "t", Content: "c", CreatedByID: "u"}); !domain.IsNotFound(err) {
		t.Fatalf("missing project error = %v, want not found", err)
	}
}

func TestCreateAssessorFailureWritesNothing(t *testing.T) {
	svc, _, db, assessor := setupService(t)
	assessor.err = errors.New("scoring service unavailable")

	_, err := svc.Create(context.Background(), CreateInput{
		ProjectID:   "proj-1",
		Type:        "test_case",
		Title:       "t",
		Content:     "c",
		CreatedByID: "u",
	})
	if err == nil {
		t.Fatal("Create() succeeded with failing assessor")
	}
	if domain.IsValidation(err) || domain.IsNotFound(err) {
		t.Fatalf("assessor failure classified as %v", err)
	}

	if n := countRows(t, db, &model.Artifact{}, "1 = 1"); n != 0 {
		t.Fatalf("artifact rows = %d, want 0", n)
	}
}

func TestSubmitQueuesAndOpensWindow(t *testing.T) {
	svc, cache, db, _ := setupService(t)
	detail := createDraft(t, svc, float64Ptr(91))
	ctx := context.Background()

	got, err := svc.SubmitForReview(ctx, detail.Artifact.ID, "user-author", domain.AutoApprovePolicy{})
	if err != nil {
		t.Fatalf("SubmitForReview() error = %v", err)
	}

	if got.Artifact.State != domain.StatePendingReview {
		t.Fatalf("state = %q, want pending_review", got.Artifact.State)
	}
	if got.Artifact.SubmittedAt == nil {
		t.Fatal("submitted_at not stamped")
	}
	if got.Artifact.ApprovedAt != nil {
		t.Fatal("approved_at stamped on plain submit")
	}
	if n := countRows(t, db, &model.SLAWindow{}, "artifact_id = ? AND completed_at IS NULL", detail.Artifact.ID); n != 1 {
		t.Fatalf("open sla windows = %d, want 1", n)
	}
	if cache.data[cacheArtifactStateKey(detail.Artifact.ID)] != "pending_review" {
		t.Fatalf("cached state = %q", cache.data[cacheArtifactStateKey(detail.Artifact.ID)])
	}

	if _, err := svc.SubmitForReview(ctx, detail.Artifact.ID, "user-author", domain.AutoApprovePolicy{}); !domain.IsValidation(err) {
		t.Fatalf("double submit error = %v, want validation", err)
	}
}

func TestSubmitAutoApproveSkipsQueue(t *testing.T) {
	svc, _, db, _ := setupService(t)
	detail := createDraft(t, svc, float64Ptr(95))
	ctx := context.Background()

	policy := domain.AutoApprovePolicy{Enabled: true, MaxRisk: domain.RiskMedium, MinConfidence: 90}
	got, err := svc.SubmitForReview(ctx, detail.Artifact.ID, "user-author", policy)
	if err != nil {
		t.Fatalf("SubmitForReview() error = %v", err)
	}

	if got.Artifact.State != domain.StateApproved {
		t.Fatalf("state = %q, want approved", got.Artifact.State)
	}
	if got.Artifact.ApprovedAt == nil {
		t.Fatal("approved_at not stamped")
	}
	if !got.Workflow.AutoApproved {
		t.Fatal("workflow not marked auto-approved")
	}
	if got.Workflow.AutoApproveReason == nil || *got.Workflow.AutoApproveReason == "" {
		t.Fatal("auto-approve reason missing")
	}
	if got.Workflow.CompletedAt == nil {
		t.Fatal("workflow not completed")
	}
	if len(got.Steps) != 0 {
		t.Fatalf("steps = %d on auto-approve, want 0", len(got.Steps))
	}
	if n := countRows(t, db, &model.SLAWindow{}, "artifact_id = ?", detail.Artifact.ID); n != 0 {
		t.Fatalf("sla windows = %d, want 0 on auto-approve", n)
	}
}

func TestSubmitNilConfidenceNeverAutoApproves(t *testing.T) {
	svc, _, _, _ := setupService(t)
	detail := createDraft(t, svc, nil)

	policy := domain.AutoApprovePolicy{Enabled: true, MaxRisk: domain.RiskCritical, MinConfidence: 0}
	got, err := svc.SubmitForReview(context.Background(), detail.Artifact.ID, "user-author", policy)
	if err != nil {
		t.Fatalf("SubmitForReview() error = %v", err)
	}
	if got.Artifact.State != domain.StatePendingReview {
		t.Fatalf("state = %q, want pending_review", got.Artifact.State)
	}
}

func TestClaimIsExclusive(t *testing.T) {
	svc, _, _, _ := setupService(t)
	detail := createDraft(t, svc, float64Ptr(91))
	ctx := context.Background()

	if _, err := svc.SubmitForReview(ctx, detail.Artifact.ID, "user-author", domain.AutoApprovePolicy{}); err != nil {
		t.Fatalf("SubmitForReview() error = %v", err)
	}

	got, err := svc.ClaimReview(ctx, detail.Artifact.ID, "reviewer-a")
	if err != nil {
		t.Fatalf("ClaimReview() error = %v", err)
	}
	if got.Artifact.State != domain.StateInReview {
		t.Fatalf("state = %q, want in_review", got.Artifact.State)
	}
	if len(got.Steps) != 1 || got.Steps[0].Status != domain.StepInProgress || got.Steps[0].AssignedToID != "reviewer-a" {
		t.Fatalf("steps = %+v", got.Steps)
	}

	if _, err := svc.ClaimReview(ctx, detail.Artifact.ID, "reviewer-b"); !errors.Is(err, domain.ErrAlreadyClaimed) {
		t.Fatalf("second claim error = %v, want ErrAlreadyClaimed", err)
	}
}

func TestApproveRequiresActiveAssignee(t *testing.T) {
	svc, _, _, _ := setupService(t)
	detail := createDraft(t, svc, float64Ptr(91))
	ctx := context.Background()

	if _, err := svc.SubmitForReview(ctx, detail.Artifact.ID, "user-author", domain.AutoApprovePolicy{}); err != nil {
		t.Fatalf("SubmitForReview() error = %v", err)
	}
	if _, err := svc.ClaimReview(ctx, detail.Artifact.ID, "reviewer-a"); err != nil {
		t.Fatalf("ClaimReview() error = %v", err)
	}

	if _, err := svc.Approve(ctx, detail.Artifact.ID, "reviewer-b", "looks fine"); !errors.Is(err, domain.ErrNotAssignee) {
		t.Fatalf("foreign approve error = %v, want ErrNotAssignee", err)
	}
	if _, err := svc.Reject(ctx, detail.Artifact.ID, "reviewer-b", "nope", nil); !errors.Is(err, domain.ErrNotAssignee) {
		t.Fatalf("foreign reject error = %v, want ErrNotAssignee", err)
	}
}

func TestApproveSingleReviewerCompletes(t *testing.T) {
	svc, _, db, _ := setupService(t)
	detail := createDraft(t, svc, float64Ptr(91))
	ctx := context.Background()

	if _, err := svc.SubmitForReview(ctx, detail.Artifact.ID, "user-author", domain.AutoApprovePolicy{}); err != nil {
		t.Fatalf("SubmitForReview() error = %v", err)
	}
	if _, err := svc.ClaimReview(ctx, detail.Artifact.ID, "reviewer-a"); err != nil {
		t.Fatalf("ClaimReview() error = %v", err)
	}

	got, err := svc.Approve(ctx, detail.Artifact.ID, "reviewer-a", "solid coverage")
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}

	if got.Artifact.State != domain.StateApproved {
		t.Fatalf("state = %q, want approved", got.Artifact.State)
	}
	if got.Artifact.ApprovedAt == nil {
		t.Fatal("approved_at not stamped")
	}
	if got.Workflow.CurrentApprovals != 1 || got.Workflow.CompletedAt == nil {
		t.Fatalf("workflow = %+v", got.Workflow)
	}
	if len(got.Steps) != 1 {
		t.Fatalf("steps = %d, want 1", len(got.Steps))
	}
	step := got.Steps[0]
	if step.Status != domain.StepApproved || step.DecidedAt == nil {
		t.Fatalf("step = %+v", step)
	}
	if step.Comment == nil || *step.Comment != "solid coverage" {
		t.Fatalf("step comment = %v", step.Comment)
	}
	if n := countRows(t, db, &model.SLAWindow{}, "artifact_id = ? AND completed_at IS NULL", detail.Artifact.ID); n != 0 {
		t.Fatalf("open sla windows = %d, want 0 after decision", n)
	}
}

func TestApproveBelowQuotaReturnsToPool(t *testing.T) {
	svc, _, _, assessor := setupService(t)
	assessor.assessment.Requirements.RequiredApprovals = 2
	detail := createDraft(t, svc, float64Ptr(91))
	ctx := context.Background()

	if _, err := svc.SubmitForReview(ctx, detail.Artifact.ID, "user-author", domain.AutoApprovePolicy{}); err != nil {
		t.Fatalf("SubmitForReview() error = %v", err)
	}
	if _, err := svc.ClaimReview(ctx, detail.Artifact.ID, "reviewer-a"); err != nil {
		t.Fatalf("first ClaimReview() error = %v", err)
	}

	mid, err := svc.Approve(ctx, detail.Artifact.ID, "reviewer-a", "first pass ok")
	if err != nil {
		t.Fatalf("first Approve() error = %v", err)
	}
	if mid.Artifact.State != domain.StatePendingReview {
		t.Fatalf("state after first approval = %q, want pending_review", mid.Artifact.State)
	}
	if mid.Artifact.ApprovedAt != nil {
		t.Fatal("approved_at stamped before quota met")
	}
	if mid.Workflow.CurrentApprovals != 1 || mid.Workflow.CompletedAt != nil {
		t.Fatalf("workflow after first approval = %+v", mid.Workflow)
	}

	if _, err := svc.ClaimReview(ctx, detail.Artifact.ID, "reviewer-b"); err != nil {
		t.Fatalf("second ClaimReview() error = %v", err)
	}
	final, err := svc.Approve(ctx, detail.Artifact.ID, "reviewer-b", "second pass ok")
	if err != nil {
		t.Fatalf("second Approve() error = %v", err)
	}

	if final.Artifact.State != domain.StateApproved {
		t.Fatalf("final state = %q, want approved", final.Artifact.State)
	}
	if final.Workflow.CurrentApprovals != 2 || final.Workflow.CompletedAt == nil {
		t.Fatalf("final workflow = %+v", final.Workflow)
	}
	if len(final.Steps) != 2 {
		t.Fatalf("steps = %d, want 2", len(final.Steps))
	}
}

func TestClaimRequiresDistinctReviewers(t *testing.T) {
	svc, _, _, assessor := setupService(t)
	assessor.assessment.Requirements.RequiredApprovals = 2
	detail := createDraft(t, svc, float64Ptr(91))
	ctx := context.Background()

	if _, err := svc.SubmitForReview(ctx, detail.Artifact.ID, "user-author", domain.AutoApprovePolicy{}); err != nil {
		t.Fatalf("SubmitForReview() error = %v", err)
	}
	if _, err := svc.ClaimReview(ctx, detail.Artifact.ID, "reviewer-a"); err != nil {
		t.Fatalf("ClaimReview() error = %v", err)
	}
	if _, err := svc.Approve(ctx, detail.Artifact.ID, "reviewer-a", "first pass ok"); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}

	// Back in the pool, but reviewer-a has spent their approval.
	if _, err := svc.ClaimReview(ctx, detail.Artifact.ID, "reviewer-a"); !errors.Is(err, domain.ErrDuplicateReviewer) {
		t.Fatalf("repeat claim error = %v, want ErrDuplicateReviewer", err)
	}

	mid, err := svc.FindByID(ctx, detail.Artifact.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if mid.Artifact.State != domain.StatePendingReview || mid.Workflow.CurrentApprovals != 1 {
		t.Fatalf("after refused claim: state = %q approvals = %d, want pending_review 1",
			mid.Artifact.State, mid.Workflow.CurrentApprovals)
	}

	if _, err := svc.ClaimReview(ctx, detail.Artifact.ID, "reviewer-b"); err != nil {
		t.Fatalf("distinct ClaimReview() error = %v", err)
	}
	final, err := svc.Approve(ctx, detail.Artifact.ID, "reviewer-b", "second pass ok")
	if err != nil {
		t.Fatalf("second Approve() error = %v", err)
	}
	if final.Artifact.State != domain.StateApproved || final.Workflow.CurrentApprovals != 2 {
		t.Fatalf("final state = %q approvals = %d, want approved 2",
			final.Artifact.State, final.Workflow.CurrentApprovals)
	}
}

func TestTransitionHelperConsultsEdgeTable(t *testing.T) {
	svc, _, db, _ := setupService(t)
	detail := createDraft(t, svc, float64Ptr(91))
	ctx := context.Background()

	repo := sqliterepo.NewArtifactRepository(db)
	err := transitionTx(ctx, repo, detail.Artifact.ID,
		domain.StateDraft, domain.StateArchived, domain.ActionArchived, domain.ActionArchived, nowUTCString())
	if !domain.IsValidation(err) {
		t.Fatalf("transitionTx(draft -> archived) error = %v, want validation", err)
	}

	got, err := svc.FindByID(ctx, detail.Artifact.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if got.Artifact.State != domain.StateDraft {
		t.Fatalf("state after refused edge = %q, want draft", got.Artifact.State)
	}
}

func TestRejectStoresFeedbackAndTerminates(t *testing.T) {
	svc, _, db, _ := setupService(t)
	detail := createDraft(t, svc, float64Ptr(91))
	ctx := context.Background()

	if _, err := svc.SubmitForReview(ctx, detail.Artifact.ID, "user-author", domain.AutoApprovePolicy{}); err != nil {
		t.Fatalf("SubmitForReview() error = %v", err)
	}
	if _, err := svc.ClaimReview(ctx, detail.Artifact.ID, "reviewer-a"); err != nil {
		t.Fatalf("ClaimReview() error = %v", err)
	}

	fix := "assert on the error toast text"
	got, err := svc.Reject(ctx, detail.Artifact.ID, "reviewer-a", "needs stronger assertions", []FeedbackInput{
		{Category: "coverage", Severity: domain.SeverityHigh, Description: "no negative path", SuggestedFix: &fix},
		{Category: "style", Severity: domain.SeverityLow, Description: "step names too vague"},
	})
	if err != nil {
		t.Fatalf("Reject() error = %v", err)
	}

	if got.Artifact.State != domain.StateRejected {
		t.Fatalf("state = %q, want rejected", got.Artifact.State)
	}
	if got.Artifact.RejectedAt == nil {
		t.Fatal("rejected_at not stamped")
	}
	if got.Workflow.CompletedAt == nil {
		t.Fatal("workflow not completed on rejection")
	}
	if len(got.Feedback) != 2 {
		t.Fatalf("feedback entries = %d, want 2", len(got.Feedback))
	}
	if got.Steps[0].Status != domain.StepRejected {
		t.Fatalf("step status = %q, want rejected", got.Steps[0].Status)
	}
	if n := countRows(t, db, &model.SLAWindow{}, "artifact_id = ? AND completed_at IS NULL", detail.Artifact.ID); n != 0 {
		t.Fatalf("open sla windows = %d, want 0 after rejection", n)
	}
}

func TestRejectValidatesFeedback(t *testing.T) {
	svc, _, _, _ := setupService(t)
	detail := createDraft(t, svc, float64Ptr(91))
	ctx := context.Background()

	if _, err := svc.SubmitForReview(ctx, detail.Artifact.ID, "user-author", domain.AutoApprovePolicy{}); err != nil {
		t.Fatalf("SubmitForReview() error = %v", err)
	}
	if _, err := svc.ClaimReview(ctx, detail.Artifact.ID, "reviewer-a"); err != nil {
		t.Fatalf("ClaimReview() error = %v", err)
	}

	if _, err := svc.Reject(ctx, detail.Artifact.ID, "reviewer-a", "", []FeedbackInput{
		{Category: "coverage", Severity: "blocker", Description: "d"},
	}); !domain.IsValidation(err) {
		t.Fatalf("bad severity error = %v, want validation", err)
	}
	if _, err := svc.Reject(ctx, detail.Artifact.ID, "reviewer-a", "", []FeedbackInput{
		{Category: "", Severity: domain.SeverityLow, Description: "d"},
	}); !errors.Is(err, errFeedbackIncomplete) {
		t.Fatalf("incomplete feedback error = %v", err)
	}

	got, err := svc.FindByID(ctx, detail.Artifact.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if got.Artifact.State != domain.StateInReview {
		t.Fatalf("state after failed rejects = %q, want in_review", got.Artifact.State)
	}
}

func TestReviseCreatesNextVersion(t *testing.T) {
	svc, _, _, _ := setupService(t)
	detail := createDraft(t, svc, float64Ptr(91))
	ctx := context.Background()

	if _, err := svc.SubmitForReview(ctx, detail.Artifact.ID, "user-author", domain.AutoApprovePolicy{}); err != nil {
		t.Fatalf("SubmitForReview() error = %v", err)
	}
	if _, err := svc.ClaimReview(ctx, detail.Artifact.ID, "reviewer-a"); err != nil {
		t.Fatalf("ClaimReview() error = %v", err)
	}
	if _, err := svc.Reject(ctx, detail.Artifact.ID, "reviewer-a", "redo", nil); err != nil {
		t.Fatalf("Reject() error = %v", err)
	}

	revised, err := svc.Revise(ctx, detail.Artifact.ID, "user-author", "step 1: open login page\nstep 2: check error toast")
	if err != nil {
		t.Fatalf("Revise() error = %v", err)
	}

	if revised.Artifact.ID == detail.Artifact.ID {
		t.Fatal("revision reused the old artifact id")
	}
	if revised.Artifact.State != domain.StateDraft {
		t.Fatalf("revision state = %q, want draft", revised.Artifact.State)
	}
	if revised.Artifact.Version != 2 {
		t.Fatalf("revision version = %d, want 2", revised.Artifact.Version)
	}
	if revised.Artifact.PreviousVersionID == nil || *revised.Artifact.PreviousVersionID != detail.Artifact.ID {
		t.Fatalf("previous version id = %v", revised.Artifact.PreviousVersionID)
	}
	if revised.Artifact.RiskLevel != detail.Artifact.RiskLevel {
		t.Fatalf("revision risk level = %q, want inherited %q", revised.Artifact.RiskLevel, detail.Artifact.RiskLevel)
	}
	if revised.Workflow.CurrentApprovals != 0 || revised.Workflow.CompletedAt != nil {
		t.Fatalf("revision workflow = %+v", revised.Workflow)
	}

	old, err := svc.FindByID(ctx, detail.Artifact.ID)
	if err != nil {
		t.Fatalf("FindByID(old) error = %v", err)
	}
	if old.Artifact.State != domain.StateArchived {
		t.Fatalf("old state = %q, want archived", old.Artifact.State)
	}
	if old.Artifact.ArchivedAt == nil {
		t.Fatal("old archived_at not stamped")
	}
	newest := old.History[0]
	if newest.Action != domain.ActionRevised {
		t.Fatalf("newest old history action = %q, want revised", newest.Action)
	}
}

func TestUpdateDraftOnly(t *testing.T) {
	svc, _, _, _ := setupService(t)
	detail := createDraft(t, svc, float64Ptr(91))
	ctx := context.Background()

	title := "login with locked account"
	got, err := svc.UpdateDraft(ctx, detail.Artifact.ID, UpdateInput{Title: &title})
	if err != nil {
		t.Fatalf("UpdateDraft() error = %v", err)
	}
	if got.Artifact.Title != title {
		t.Fatalf("title = %q", got.Artifact.Title)
	}
	if got.Artifact.Content != detail.Artifact.Content {
		t.Fatalf("content changed on title-only patch")
	}

	if _, err := svc.SubmitForReview(ctx, detail.Artifact.ID, "user-author", domain.AutoApprovePolicy{}); err != nil {
		t.Fatalf("SubmitForReview() error = %v", err)
	}
	if _, err := svc.UpdateDraft(ctx, detail.Artifact.ID, UpdateInput{Title: &title}); !domain.IsValidation(err) {
		t.Fatalf("update after submit error = %v, want validation", err)
	}
}

func TestArchiveApprovedOnly(t *testing.T) {
	svc, _, _, _ := setupService(t)
	detail := createDraft(t, svc, float64Ptr(95))
	ctx := context.Background()

	if _, err := svc.Archive(ctx, detail.Artifact.ID, "user-admin"); !domain.IsValidation(err) {
		t.Fatalf("archive draft error = %v, want validation", err)
	}

	policy := domain.AutoApprovePolicy{Enabled: true, MaxRisk: domain.RiskMedium, MinConfidence: 90}
	if _, err := svc.SubmitForReview(ctx, detail.Artifact.ID, "user-author", policy); err != nil {
		t.Fatalf("SubmitForReview() error = %v", err)
	}

	got, err := svc.Archive(ctx, detail.Artifact.ID, "user-admin")
	if err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	if got.Artifact.State != domain.StateArchived {
		t.Fatalf("state = %q, want archived", got.Artifact.State)
	}
	if got.Artifact.ArchivedAt == nil {
		t.Fatal("archived_at not stamped")
	}

	if _, err := svc.Archive(ctx, detail.Artifact.ID, "user-admin"); !domain.IsValidation(err) {
		t.Fatalf("re-archive error = %v, want validation", err)
	}
}

func TestDeleteGuards(t *testing.T) {
	svc, cache, _, _ := setupService(t)
	detail := createDraft(t, svc, float64Ptr(91))
	ctx := context.Background()

	if err := svc.Delete(ctx, detail.Artifact.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := svc.FindByID(ctx, detail.Artifact.ID); !domain.IsNotFound(err) {
		t.Fatalf("FindByID after delete = %v, want not found", err)
	}
	if _, ok := cache.data[cacheArtifactStateKey(detail.Artifact.ID)]; ok {
		t.Fatal("cache entry survived delete")
	}

	second := createDraft(t, svc, float64Ptr(91))
	if _, err := svc.SubmitForReview(ctx, second.Artifact.ID, "user-author", domain.AutoApprovePolicy{}); err != nil {
		t.Fatalf("SubmitForReview() error = %v", err)
	}
	if err := svc.Delete(ctx, second.Artifact.ID); !domain.IsValidation(err) {
		t.Fatalf("delete pending_review error = %v, want validation", err)
	}
}

func TestListAndReviewQueue(t *testing.T) {
	svc, _, _, _ := setupService(t)
	ctx := context.Background()

	first := createDraft(t, svc, float64Ptr(91))
	second := createDraft(t, svc, float64Ptr(91))
	if _, err := svc.SubmitForReview(ctx, second.Artifact.ID, "user-author", domain.AutoApprovePolicy{}); err != nil {
		t.Fatalf("SubmitForReview() error = %v", err)
	}

	all, err := svc.List(ctx, ListFilter{ProjectID: "proj-1"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if all.Total != 2 || len(all.Items) != 2 {
		t.Fatalf("List() total = %d items = %d", all.Total, len(all.Items))
	}

	drafts, err := svc.List(ctx, ListFilter{ProjectID: "proj-1", State: "draft"})
	if err != nil {
		t.Fatalf("List(draft) error = %v", err)
	}
	if drafts.Total != 1 || drafts.Items[0].ID != first.Artifact.ID {
		t.Fatalf("List(draft) = %+v", drafts)
	}

	queue, err := svc.ReviewQueue(ctx, "proj-1", 0, 0)
	if err != nil {
		t.Fatalf("ReviewQueue() error = %v", err)
	}
	if queue.Total != 1 || queue.Items[0].ID != second.Artifact.ID {
		t.Fatalf("ReviewQueue() = %+v", queue)
	}

	if _, err := svc.ClaimReview(ctx, second.Artifact.ID, "reviewer-a"); err != nil {
		t.Fatalf("ClaimReview() error = %v", err)
	}
	queue, err = svc.ReviewQueue(ctx, "proj-1", 0, 0)
	if err != nil {
		t.Fatalf("ReviewQueue() error = %v", err)
	}
	if queue.Total != 1 {
		t.Fatalf("ReviewQueue() after claim total = %d, want 1", queue.Total)
	}
}

func TestHistoryAndFeedbackRequireArtifact(t *testing.T) {
	svc, _, _, _ := setupService(t)
	ctx := context.Background()

	if _, err := svc.History(ctx, "ghost"); !domain.IsNotFound(err) {
		t.Fatalf("History(ghost) = %v, want not found", err)
	}
	if _, err := svc.Feedback(ctx, "ghost"); !domain.IsNotFound(err) {
		t.Fatalf("Feedback(ghost) = %v, want not found", err)
	}
}

func TestHistoryRecordsFullLifecycle(t *testing.T) {
	svc, _, _, _ := setupService(t)
	detail := createDraft(t, svc, float64Ptr(91))
	ctx := context.Background()

	if _, err := svc.SubmitForReview(ctx, detail.Artifact.ID, "user-author", domain.AutoApprovePolicy{}); err != nil {
		t.Fatalf("SubmitForReview() error = %v", err)
	}
	if _, err := svc.ClaimReview(ctx, detail.Artifact.ID, "reviewer-a"); err != nil {
		t.Fatalf("ClaimReview() error = %v", err)
	}
	if _, err := svc.Approve(ctx, detail.Artifact.ID, "reviewer-a", "ok"); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}

	history, err := svc.History(ctx, detail.Artifact.ID)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}

	// Newest first.
	wantActions := []domain.Action{
		domain.ActionApproved,
		domain.ActionClaimed,
		domain.ActionSubmitted,
		domain.ActionCreated,
	}
	if len(history) != len(wantActions) {
		t.Fatalf("history length = %d, want %d", len(history), len(wantActions))
	}
	for i, want := range wantActions {
		if history[i].Action != want {
			t.Fatalf("history[%d].Action = %q, want %q", i, history[i].Action, want)
		}
	}
}

func TestCachedStateFallsBackToDatabase(t *testing.T) {
	svc, cache, _, _ := setupService(t)
	detail := createDraft(t, svc, float64Ptr(91))
	ctx := context.Background()

	delete(cache.data, cacheArtifactStateKey(detail.Artifact.ID))

	state, err := svc.CachedState(ctx, detail.Artifact.ID)
	if err != nil {
		t.Fatalf("CachedState() error = %v", err)
	}
	if state != domain.StateDraft {
		t.Fatalf("state = %q, want draft", state)
	}
	if cache.data[cacheArtifactStateKey(detail.Artifact.ID)] != "draft" {
		t.Fatal("cache not refreshed on miss")
	}
}
