package model

// ApprovalWorkflow is the 1:1 per-artifact approval record. The unique
// index on artifact_id is the ownership index: artifact id -> workflow row.
type ApprovalWorkflow struct {
	ID                string  `gorm:"column:id;primaryKey"`
	ArtifactID        string  `gorm:"column:artifact_id;type:text;not null;uniqueIndex"`
	RequiredApprovals int     `gorm:"column:required_approvals;not null;default:1"`
	CurrentApprovals  int     `gorm:"column:current_approvals;not null;default:0"`
	RequiresAdmin     bool    `gorm:"column:requires_admin;not null;default:0"`
	RequiresLead      bool    `gorm:"column:requires_lead;not null;default:0"`
	AutoApproved      bool    `gorm:"column:auto_approved;not null;default:0"`
	AutoApproveReason *string `gorm:"column:auto_approve_reason;type:text"`
	StartedAt         string  `gorm:"column:started_at;type:text;not null"`
	CompletedAt       *string `gorm:"column:completed_at;type:text"`
}

func (ApprovalWorkflow) TableName() string {
	return "approval_workflows"
}
