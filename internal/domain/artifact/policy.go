package artifact

// AutoApprovePolicy is the per-project policy the caller resolves before
// submitting for review. The engine never reads it from ambient state.
type AutoApprovePolicy struct {
	Enabled       bool
	MaxRisk       RiskLevel
	MinConfidence float64
}

// ShouldAutoApprove is the deterministic auto-approve decision: policy
// enabled, artifact risk at or below the ceiling, and a present AI
// confidence score at or above the minimum. A missing confidence score
// never auto-approves.
func ShouldAutoApprove(policy AutoApprovePolicy, level RiskLevel, confidence *float64) bool {
	if !policy.Enabled {
		return false
	}
	if !level.AtMost(policy.MaxRisk) {
		return false
	}
	if confidence == nil {
		return false
	}
	return *confidence >= policy.MinConfidence
}

// FeedbackSeverity grades a rejection feedback entry.
type FeedbackSeverity string

const (
	SeverityLow    FeedbackSeverity = "low"
	SeverityMedium FeedbackSeverity = "medium"
	SeverityHigh   FeedbackSeverity = "high"
)

// ValidSeverity reports whether s is a known feedback severity.
func ValidSeverity(s FeedbackSeverity) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// StepStatus is the lifecycle of a single reviewer claim.
type StepStatus string

const (
	StepInProgress StepStatus = "in_progress"
	StepApproved   StepStatus = "approved"
	StepRejected   StepStatus = "rejected"
)
