package model

// Artifact persists one reviewable work item. Lifecycle timestamps are
// RFC3339Nano TEXT and stay NULL until the matching transition lands.
type Artifact struct {
	ID                string   `gorm:"column:id;primaryKey"`
	ProjectID         string   `gorm:"column:project_id;type:text;not null;index"`
	Type              string   `gorm:"column:type;type:text;not null;index"`
	State             string   `gorm:"column:state;type:text;not null;index"`
	RiskLevel         string   `gorm:"column:risk_level;type:text;not null"`
	RiskScore         float64  `gorm:"column:risk_score;not null;default:0"`
	RiskFactors       string   `gorm:"column:risk_factors;type:text;not null;default:'{}'"`
	AIConfidence      *float64 `gorm:"column:ai_confidence"`
	Title             string   `gorm:"column:title;type:text;not null"`
	Content           string   `gorm:"column:content;type:text;not null"`
	Version           int      `gorm:"column:version;not null;default:1"`
	PreviousVersionID *string  `gorm:"column:previous_version_id;type:text"`
	SourceAgent       string   `gorm:"column:source_agent;type:text;not null;default:''"`
	CreatedByID       string   `gorm:"column:created_by_id;type:text;not null"`
	SubmittedAt       *string  `gorm:"column:submitted_at;type:text"`
	ApprovedAt        *string  `gorm:"column:approved_at;type:text"`
	RejectedAt        *string  `gorm:"column:rejected_at;type:text"`
	ArchivedAt        *string  `gorm:"column:archived_at;type:text"`
	CreatedAt         string   `gorm:"column:created_at;type:text;not null"`
	UpdatedAt         string   `gorm:"column:updated_at;type:text;not null"`
}

func (Artifact) TableName() string {
	return "artifacts"
}
