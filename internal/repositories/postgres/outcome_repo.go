package postgres

import (
	"context"

	"github.com/careerforge/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OutcomeRepo interface {
	Upsert(ctx context.Context, o *models.InterviewOutcome) error
	SummaryByType(ctx context.Context) ([]TypeSummary, error)
}

// TypeSummary is one row of the admin placement dashboard.
type TypeSummary struct {
	Type      string  `json:"type"`
	Completed int64   `json:"completed"`
	AvgScore  float64 `json:"avg_score"`
	Hireable  int64   `json:"hireable"` // strong-yes or yes
}

type outcomeRepo struct {
	db *gorm.DB
}

func NewOutcomeRepo(db *gorm.DB) OutcomeRepo {
	return &outcomeRepo{db: db}
}

// Upsert is keyed on interview_id so a redelivered outcome message from the
// stream overwrites rather than duplicates.
func (r *outcomeRepo) Upsert(ctx context.Context, o *models.InterviewOutcome) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "interview_id"}},
			UpdateAll: true,
		}).
		Create(o).Error
}

func (r *outcomeRepo) SummaryByType(ctx context.Context) ([]TypeSummary, error) {
	var rows []TypeSummary
	err := r.db.WithContext(ctx).
		Model(&models.InterviewOutcome{}).
		Select(`type,
			count(*) as completed,
			avg(total_score) as avg_score,
			count(*) filter (where hiring_recommendation in ('strong-yes','yes')) as hireable`).
		Group("type").
		Order("type").
		Find(&rows).Error
	return rows, err
}
