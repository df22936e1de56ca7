package model

// ArtifactHistory is the append-only audit trail. Rows are never updated
// or deleted except when their artifact is physically removed.
type ArtifactHistory struct {
	Seq        uint64  `gorm:"column:seq;primaryKey;autoIncrement"`
	ArtifactID string  `gorm:"column:artifact_id;type:text;not null;index"`
	FromState  *string `gorm:"column:from_state;type:text"`
	ToState    string  `gorm:"column:to_state;type:text;not null"`
	Action     string  `gorm:"column:action;type:text;not null"`
	ActorID    string  `gorm:"column:actor_id;type:text;not null"`
	ActionAt   string  `gorm:"column:action_at;type:text;not null;index"`
}

func (ArtifactHistory) TableName() string {
	return "artifact_history"
}
