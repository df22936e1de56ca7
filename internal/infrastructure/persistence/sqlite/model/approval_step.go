package model

// ApprovalStep is one reviewer claim. Completed steps are immutable
// history; only in_progress rows are ever updated.
type ApprovalStep struct {
	ID           string  `gorm:"column:id;primaryKey"`
	WorkflowID   string  `gorm:"column:workflow_id;type:text;not null;index"`
	AssignedToID string  `gorm:"column:assigned_to_id;type:text;not null"`
	Status       string  `gorm:"column:status;type:text;not null;index"`
	Comment      *string `gorm:"column:comment;type:text"`
	CreatedAt    string  `gorm:"column:created_at;type:text;not null"`
	DecidedAt    *string `gorm:"column:decided_at;type:text"`
}

func (ApprovalStep) TableName() string {
	return "approval_steps"
}
