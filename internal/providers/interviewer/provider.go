package interviewer

import (
	"context"

	"github.com/careerforge/backend/internal/models"
)

// GenerateRequest describes one question-generation call.
type GenerateRequest struct {
	Type       string
	Difficulty string
	TargetRole string
	Count      int
}

// QuestionProvider returns exactly Count question skeletons for a session.
type QuestionProvider interface {
	Generate(ctx context.Context, req GenerateRequest) ([]models.Question, error)
}

// AnswerEvaluator scores a single transcript against its question.
type AnswerEvaluator interface {
	Evaluate(ctx context.Context, question models.Question, transcript string) (*models.Evaluation, error)
}
