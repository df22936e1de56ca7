package model

// ApprovalFeedback is one structured reviewer feedback entry, written only
// on rejection.
type ApprovalFeedback struct {
	ID           string  `gorm:"column:id;primaryKey"`
	ArtifactID   string  `gorm:"column:artifact_id;type:text;not null;index"`
	Category     string  `gorm:"column:category;type:text;not null"`
	Severity     string  `gorm:"column:severity;type:text;not null"`
	Description  string  `gorm:"column:description;type:text;not null"`
	SuggestedFix *string `gorm:"column:suggested_fix;type:text"`
	CreatedAt    string  `gorm:"column:created_at;type:text;not null"`
}

func (ApprovalFeedback) TableName() string {
	return "approval_feedback"
}
