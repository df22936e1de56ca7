package model

// SLAWindow is one tracked review deadline. One open row per artifact at a
// time; completed_at closes it.
type SLAWindow struct {
	ID          string  `gorm:"column:id;primaryKey"`
	ArtifactID  string  `gorm:"column:artifact_id;type:text;not null;index"`
	OpenedAt    string  `gorm:"column:opened_at;type:text;not null"`
	Deadline    string  `gorm:"column:deadline;type:text;not null"`
	CompletedAt *string `gorm:"column:completed_at;type:text"`
}

func (SLAWindow) TableName() string {
	return "sla_windows"
}
