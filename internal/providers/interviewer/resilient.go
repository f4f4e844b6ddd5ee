package interviewer

import (
	"context"

	"github.com/careerforge/backend/internal/models"
	"github.com/careerforge/backend/internal/utils"
	"github.com/sirupsen/logrus"
)

// Resilient tries the remote AI service first and recovers locally on any
// failure. Upstream errors are logged as UNAVAILABLE but never propagated;
// callers cannot distinguish a fallback result through the error channel.
type Resilient struct {
	remote   *Remote
	fallback *Fallback
	log      *logrus.Logger
}

func NewResilient(remote *Remote, fallback *Fallback, log *logrus.Logger) *Resilient {
	return &Resilient{remote: remote, fallback: fallback, log: log}
}

func (r *Resilient) Generate(ctx context.Context, req GenerateRequest) ([]models.Question, error) {
	qs, err := r.remote.Generate(ctx, req)
	if err != nil {
		r.log.WithError(err).WithFields(logrus.Fields{
			"code": utils.CodeUnavailable,
			"type": req.Type,
		}).Warn("question generation degraded to static bank")
		return r.fallback.Generate(ctx, req)
	}
	return qs, nil
}

func (r *Resilient) Evaluate(ctx context.Context, question models.Question, transcript string) (*models.Evaluation, error) {
	ev, err := r.remote.Evaluate(ctx, question, transcript)
	if err != nil {
		r.log.WithError(err).WithFields(logrus.Fields{
			"code":        utils.CodeUnavailable,
			"question_id": question.ID,
		}).Warn("answer evaluation degraded to synthetic result")
		return r.fallback.Evaluate(ctx, question, transcript)
	}
	return ev, nil
}
