package model

type Project struct {
	ID        string `gorm:"column:id;primaryKey"`
	Name      string `gorm:"column:name;type:text;not null"`
	CreatedAt string `gorm:"column:created_at;type:text;not null"`
}

func (Project) TableName() string {
	return "projects"
}
