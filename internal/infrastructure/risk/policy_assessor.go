package risk

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"testforge/internal/domain/artifact"
	"testforge/internal/errs"
	"testforge/internal/ports"
)

// PolicyAssessor is the bundled risk-assessment collaborator. It scores
// artifacts from a declarative toml policy so deployments can tune risk
// without rebuilding. The engine never sees any of this, only the
// ports.RiskAssessor contract.
type PolicyAssessor struct {
	policy policyFile
}

var _ ports.RiskAssessor = (*PolicyAssessor)(nil)

type policyTypeConfig struct {
	BaseScore float64 `toml:"base_score"`
}

type policyLevelConfig struct {
	MaxScore          float64 `toml:"max_score"`
	RequiredApprovals int     `toml:"required_approvals"`
	RequiresAdmin     bool    `toml:"requires_admin"`
	RequiresLead      bool    `toml:"requires_lead"`
	CanAutoApprove    bool    `toml:"can_auto_approve"`
	AutoApproveReason string  `toml:"auto_approve_reason"`
}

type policyProjectConfig struct {
	AutoApproveEnabled       *bool    `toml:"auto_approve_enabled"`
	AutoApproveMaxRisk       *string  `toml:"auto_approve_max_risk"`
	AutoApproveMinConfidence *float64 `toml:"auto_approve_min_confidence"`
}

type policyDefaults struct {
	AutoApproveEnabled       bool    `toml:"auto_approve_enabled"`
	AutoApproveMaxRisk       string  `toml:"auto_approve_max_risk"`
	AutoApproveMinConfidence float64 `toml:"auto_approve_min_confidence"`
}

type policyFile struct {
	Version  int                            `toml:"version"`
	Defaults policyDefaults                 `toml:"defaults"`
	Types    map[string]policyTypeConfig    `toml:"types"`
	Levels   map[string]policyLevelConfig   `toml:"levels"`
	Projects map[string]policyProjectConfig `toml:"projects"`
}

// LoadPolicyAssessor reads and validates the risk policy file.
func LoadPolicyAssessor(path string) (*PolicyAssessor, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, errors.New("risk policy file is required")
	}

	raw, err := os.ReadFile(trimmed)
	if err != nil {
		return nil, errs.Wrap(err, "read risk policy file")
	}

	var policy policyFile
	if err := toml.Unmarshal(raw, &policy); err != nil {
		return nil, errs.Wrap(err, "parse risk policy file")
	}
	if err := validatePolicy(policy); err != nil {
		return nil, err
	}

	return &PolicyAssessor{policy: policy}, nil
}

func validatePolicy(policy policyFile) error {
	if policy.Version != 1 {
		return fmt.Errorf("unsupported risk policy version %d", policy.Version)
	}
	if len(policy.Levels) == 0 {
		return errors.New("risk policy must define at least one level")
	}

	for name, level := range policy.Levels {
		if _, err := artifact.ParseRiskLevel(name); err != nil {
			return errs.Wrapf(err, "risk policy level %q", name)
		}
		if level.RequiredApprovals < 1 {
			return fmt.Errorf("risk policy level %q: required_approvals must be >= 1", name)
		}
	}

	if _, err := artifact.ParseRiskLevel(policy.Defaults.AutoApproveMaxRisk); err != nil {
		return errs.Wrap(err, "risk policy defaults.auto_approve_max_risk")
	}
	return nil
}

func (a *PolicyAssessor) AssessRisk(ctx context.Context, draft ports.ArtifactDraft) (ports.RiskAssessment, error) {
	if ctx == nil {
		return ports.RiskAssessment{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return ports.RiskAssessment{}, errs.Wrap(err, "check context")
	}

	base := a.policy.Types[string(draft.Type)].BaseScore

	// Low model confidence raises the score; human-authored artifacts
	// (no confidence) carry a flat review surcharge instead.
	confidencePenalty := 15.0
	if draft.AIConfidence != nil {
		confidencePenalty = (100 - *draft.AIConfidence) / 4
		if confidencePenalty < 0 {
			confidencePenalty = 0
		}
	}

	score := base + confidencePenalty
	if score > 100 {
		score = 100
	}

	level, levelCfg, err := a.levelForScore(score)
	if err != nil {
		return ports.RiskAssessment{}, err
	}

	factors := map[string]any{
		"type":               string(draft.Type),
		"base_score":         base,
		"confidence_penalty": confidencePenalty,
		"source_agent":       draft.SourceAgent,
	}

	return ports.RiskAssessment{
		Score:   score,
		Level:   level,
		Factors: factors,
		Requirements: ports.ApprovalRequirements{
			RequiredApprovals: levelCfg.RequiredApprovals,
			RequiresAdmin:     levelCfg.RequiresAdmin,
			RequiresLead:      levelCfg.RequiresLead,
			CanAutoApprove:    levelCfg.CanAutoApprove,
			AutoApproveReason: levelCfg.AutoApproveReason,
		},
	}, nil
}

// levelForScore picks the lowest level whose max_score covers the score,
// falling back to the highest configured level.
func (a *PolicyAssessor) levelForScore(score float64) (artifact.RiskLevel, policyLevelConfig, error) {
	type rankedLevel struct {
		level artifact.RiskLevel
		cfg   policyLevelConfig
	}

	ranked := make([]rankedLevel, 0, len(a.policy.Levels))
	for name, cfg := range a.policy.Levels {
		level, err := artifact.ParseRiskLevel(name)
		if err != nil {
			return "", policyLevelConfig{}, err
		}
		ranked = append(ranked, rankedLevel{level: level, cfg: cfg})
	}
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].cfg.MaxScore < ranked[j].cfg.MaxScore
	})

	for _, candidate := range ranked {
		if score <= candidate.cfg.MaxScore {
			return candidate.level, candidate.cfg, nil
		}
	}

	last := ranked[len(ranked)-1]
	return last.level, last.cfg, nil
}

func (a *PolicyAssessor) ProjectSettings(ctx context.Context, projectID string) (artifact.AutoApprovePolicy, error) {
	if ctx == nil {
		return artifact.AutoApprovePolicy{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return artifact.AutoApprovePolicy{}, errs.Wrap(err, "check context")
	}

	maxRisk, err := artifact.ParseRiskLevel(a.policy.Defaults.AutoApproveMaxRisk)
	if err != nil {
		return artifact.AutoApprovePolicy{}, err
	}

	settings := artifact.AutoApprovePolicy{
		Enabled:       a.policy.Defaults.AutoApproveEnabled,
		MaxRisk:       maxRisk,
		MinConfidence: a.policy.Defaults.AutoApproveMinConfidence,
	}

	override, ok := a.policy.Projects[projectID]
	if !ok {
		return settings, nil
	}

	if override.AutoApproveEnabled != nil {
		settings.Enabled = *override.AutoApproveEnabled
	}
	if override.AutoApproveMaxRisk != nil {
		level, err := artifact.ParseRiskLevel(*override.AutoApproveMaxRisk)
		if err != nil {
			return artifact.AutoApprovePolicy{}, errs.Wrapf(err, "risk policy project %q", projectID)
		}
		settings.MaxRisk = level
	}
	if override.AutoApproveMinConfidence != nil {
		settings.MinConfidence = *override.AutoApproveMinConfidence
	}

	return settings, nil
}
