package models

import (
	"time"

	"gorm.io/datatypes"
)

// InterviewOutcome is the placement-analytics read model. One row is written
// (asynchronously, via the outcome worker) when an interview completes; the
// engine itself never reads it back.
type InterviewOutcome struct {
	ID          string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	InterviewID string `gorm:"column:interview_id;type:uuid;uniqueIndex" json:"interview_id"`
	UserID      string `gorm:"column:user_id;type:uuid;index" json:"user_id"`

	Type       string `gorm:"column:type;type:text;index" json:"type"`
	Difficulty string `gorm:"column:difficulty;type:text" json:"difficulty"`

	TotalScore           int    `gorm:"column:total_score" json:"total_score"`
	Grade                string `gorm:"column:grade;type:text" json:"grade"`
	HiringRecommendation string `gorm:"column:hiring_recommendation;type:text" json:"hiring_recommendation"`

	Areas datatypes.JSON `gorm:"column:areas;type:jsonb" json:"areas"` // {"strong":[],"weak":[]}

	CompletedAt time.Time `gorm:"column:completed_at;type:timestamptz;index" json:"completed_at"`
}

func (InterviewOutcome) TableName() string { return "interview_outcomes" }
