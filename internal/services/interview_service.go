package services

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/careerforge/backend/internal/events"
	"github.com/careerforge/backend/internal/models"
	"github.com/careerforge/backend/internal/providers/interviewer"
	mongorepo "github.com/careerforge/backend/internal/repositories/mongo"
	"github.com/careerforge/backend/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// InterviewService drives one mock interview from scheduling through
// completion. Operations against the same interview are serialized by a
// keyed mutex; only the provider calls (question generation, answer
// evaluation) run outside the lock, and every write re-validates the
// lifecycle state through a conditional repository update.
type InterviewService interface {
	Create(ctx context.Context, userID string, in CreateInput) (*models.Interview, error)
	Get(ctx context.Context, userID, interviewID string) (*models.Interview, error)
	List(ctx context.Context, userID string, f mongorepo.ListFilter) ([]models.Interview, int64, error)

	Start(ctx context.Context, userID, interviewID string) (*StartResult, error)
	NextQuestion(ctx context.Context, userID, interviewID string) (*NextQuestionResult, error)
	SubmitAnswer(ctx context.Context, userID, interviewID string, in SubmitAnswerInput) (*models.Evaluation, error)
	Complete(ctx context.Context, userID, interviewID string) (*models.OverallEvaluation, error)
	Cancel(ctx context.Context, userID, interviewID string) error

	GetEvaluation(ctx context.Context, userID, interviewID string) (*EvaluationResult, error)
	GetMetrics(ctx context.Context, userID, interviewID string) (*models.Metrics, error)
	RecordNervousness(ctx context.Context, userID, interviewID string, level float64) error
}

type CreateInput struct {
	Type          string
	Difficulty    string
	Duration      int // minutes
	TargetRole    string
	TargetCompany string
}

type StartResult struct {
	Interview      *models.Interview
	FirstQuestion  *models.Question
	TotalQuestions int
}

type NextQuestionResult struct {
	Complete       bool
	Question       *models.Question
	QuestionNumber int
	TotalQuestions int
}

type EvaluationResult struct {
	Overall             *models.OverallEvaluation
	QuestionEvaluations []QuestionEvaluation
}

type QuestionEvaluation struct {
	Text       string             `json:"text"`
	Category   string             `json:"category"`
	Evaluation *models.Evaluation `json:"evaluation"`
}

// OutcomeEnqueuer hands a completed interview to the analytics pipeline.
// Enqueueing is best-effort; a failure is logged, never surfaced.
type OutcomeEnqueuer interface {
	Enqueue(ctx context.Context, o *models.InterviewOutcome) error
}

type interviewService struct {
	repo      mongorepo.InterviewRepository
	questions interviewer.QuestionProvider
	evaluator interviewer.AnswerEvaluator
	bus       events.Publisher
	outcomes  OutcomeEnqueuer // optional
	log       *logrus.Logger

	locks *keyedMutex
}

func NewInterviewService(
	repo mongorepo.InterviewRepository,
	questions interviewer.QuestionProvider,
	evaluator interviewer.AnswerEvaluator,
	bus events.Publisher,
	outcomes OutcomeEnqueuer,
	log *logrus.Logger,
) InterviewService {
	return &interviewService{
		repo:      repo,
		questions: questions,
		evaluator: evaluator,
		bus:       bus,
		outcomes:  outcomes,
		log:       log,
		locks:     newKeyedMutex(),
	}
}

func (s *interviewService) Create(ctx context.Context, userID string, in CreateInput) (*models.Interview, error) {
	const op = "InterviewService.Create"

	if !models.ValidType(in.Type) {
		return nil, utils.E(utils.CodeInvalidArgument, op, "interview type is required", nil)
	}
	if !models.ValidDifficulty(in.Difficulty) {
		return nil, utils.E(utils.CodeInvalidArgument, op, "interview difficulty is required", nil)
	}
	if in.Duration == 0 {
		in.Duration = 30
	}
	if in.Duration < 5 || in.Duration > 120 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "duration must be between 5 and 120 minutes", nil)
	}

	iv := &models.Interview{
		InterviewID:   uuid.NewString(),
		UserID:        userID,
		Type:          in.Type,
		Difficulty:    in.Difficulty,
		Duration:      in.Duration,
		TargetRole:    in.TargetRole,
		TargetCompany: in.TargetCompany,
		Status:        models.StatusScheduled,
		Questions:     []models.Question{},
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, iv); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create interview", err)
	}

	s.log.WithFields(logrus.Fields{
		"interview_id": iv.InterviewID,
		"type":         iv.Type,
	}).Info("interview scheduled")
	return iv, nil
}

func (s *interviewService) Get(ctx context.Context, userID, interviewID string) (*models.Interview, error) {
	const op = "InterviewService.Get"

	if interviewID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "interview id is required", nil)
	}
	iv, err := s.repo.Get(ctx, interviewID, userID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "interview not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get interview", err)
	}
	return iv, nil
}

func (s *interviewService) List(ctx context.Context, userID string, f mongorepo.ListFilter) ([]models.Interview, int64, error) {
	const op = "InterviewService.List"

	out, total, err := s.repo.List(ctx, userID, f)
	if err != nil {
		return nil, 0, utils.E(utils.CodeInternal, op, "failed to list interviews", err)
	}
	return out, total, nil
}

// Start fills the question list and moves scheduled -> in-progress. The
// provider call runs outside the per-interview lock; if the session was
// cancelled meanwhile, the conditional update matches nothing and the
// generated questions are dropped.
func (s *interviewService) Start(ctx context.Context, userID, interviewID string) (*StartResult, error) {
	const op = "InterviewService.Start"

	release := s.locks.Acquire(interviewID)
	iv, err := s.repo.Get(ctx, interviewID, userID)
	if err != nil || iv.Status != models.StatusScheduled {
		release()
		if err != nil && !errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeInternal, op, "failed to load interview", err)
		}
		return nil, utils.E(utils.CodeNotFound, op, "interview not found or already started", err)
	}
	release()

	count := iv.Duration / 5 // ~5 minutes per question
	if count < 1 {
		count = 1
	}

	questions, err := s.questions.Generate(ctx, interviewer.GenerateRequest{
		Type:       iv.Type,
		Difficulty: iv.Difficulty,
		TargetRole: iv.TargetRole,
		Count:      count,
	})
	if err != nil || len(questions) == 0 {
		// the resilient provider recovers locally; reaching here means even
		// the fallback misbehaved
		return nil, utils.E(utils.CodeInternal, op, "failed to generate questions", err)
	}

	now := time.Now().UTC()
	metrics := &models.Metrics{NervousnessLevels: []models.NervousnessSample{}}

	release = s.locks.Acquire(interviewID)
	defer release()

	if err := s.repo.Start(ctx, interviewID, userID, questions, metrics, now); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "interview not found or already started", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to start interview", err)
	}

	iv.Status = models.StatusInProgress
	iv.Questions = questions
	iv.Metrics = metrics
	iv.StartedAt = &now

	s.bus.Publish(ctx, interviewID, events.Event{
		Type: events.TypeInterviewStarted,
		Data: map[string]any{
			"interview_id":   interviewID,
			"first_question": questions[0],
		},
	})

	s.log.WithFields(logrus.Fields{
		"interview_id": interviewID,
		"questions":    len(questions),
	}).Info("interview started")

	return &StartResult{
		Interview:      iv,
		FirstQuestion:  &questions[0],
		TotalQuestions: len(questions),
	}, nil
}

// NextQuestion is read-only: first question in list order without a response.
func (s *interviewService) NextQuestion(ctx context.Context, userID, interviewID string) (*NextQuestionResult, error) {
	const op = "InterviewService.NextQuestion"

	iv, err := s.Get(ctx, userID, interviewID)
	if err != nil {
		return nil, err
	}
	if iv.Status != models.StatusInProgress {
		return nil, utils.E(utils.CodeNotFound, op, "interview not found or not in progress", nil)
	}

	for i := range iv.Questions {
		if iv.Questions[i].Response == nil {
			return &NextQuestionResult{
				Question:       &iv.Questions[i],
				QuestionNumber: i + 1,
				TotalQuestions: len(iv.Questions),
			}, nil
		}
	}
	return &NextQuestionResult{Complete: true}, nil
}

type SubmitAnswerInput struct {
	QuestionID string
	Transcript string
	Duration   int // seconds
}

// SubmitAnswer records the response, scores it, and attaches the evaluation.
// A retried submission for an already-answered question gets Conflict; the
// first submission remains the one on record.
func (s *interviewService) SubmitAnswer(ctx context.Context, userID, interviewID string, in SubmitAnswerInput) (*models.Evaluation, error) {
	const op = "InterviewService.SubmitAnswer"

	if in.QuestionID == "" || in.Transcript == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "question id and transcript are required", nil)
	}

	release := s.locks.Acquire(interviewID)
	iv, err := s.repo.Get(ctx, interviewID, userID)
	if err != nil || iv.Status != models.StatusInProgress {
		release()
		if err != nil && !errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeInternal, op, "failed to load interview", err)
		}
		return nil, utils.E(utils.CodeNotFound, op, "interview not found or not in progress", err)
	}

	var question *models.Question
	for i := range iv.Questions {
		if iv.Questions[i].ID == in.QuestionID {
			question = &iv.Questions[i]
			break
		}
	}
	if question == nil {
		release()
		return nil, utils.E(utils.CodeNotFound, op, "question not found", nil)
	}
	if question.Response != nil {
		release()
		return nil, utils.E(utils.CodeConflict, op, "answer already recorded for this question", nil)
	}
	release()

	// external call, bounded by the provider timeout; the lock is not held
	evaluation, err := s.evaluator.Evaluate(ctx, *question, in.Transcript)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to evaluate answer", err)
	}

	resp := &models.Response{
		Transcript: in.Transcript,
		Duration:   in.Duration,
		Timestamp:  time.Now().UTC(),
	}

	release = s.locks.Acquire(interviewID)
	defer release()

	// reload under the lock: running metrics are derived from whatever
	// evaluations exist right now
	iv, err = s.repo.Get(ctx, interviewID, userID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "interview not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load interview", err)
	}

	metrics := runningMetrics(iv, evaluation.Score)
	if err := s.repo.AttachAnswer(ctx, interviewID, userID, in.QuestionID, resp, evaluation, metrics); err != nil {
		if errors.Is(err, utils.ErrConflict) {
			// the update matched nothing: either the question got answered
			// by a racing submission, or the session left in-progress
			// (result is discarded, per cancellation policy)
			if iv.Status != models.StatusInProgress {
				return nil, utils.E(utils.CodeNotFound, op, "interview not found or not in progress", err)
			}
			return nil, utils.E(utils.CodeConflict, op, "answer already recorded for this question", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to record answer", err)
	}

	s.bus.Publish(ctx, interviewID, events.Event{
		Type: events.TypeAnswerEvaluated,
		Data: map[string]any{
			"question_id": in.QuestionID,
			"evaluation":  evaluation,
		},
	})

	s.log.WithFields(logrus.Fields{
		"interview_id": interviewID,
		"question_id":  in.QuestionID,
		"score":        evaluation.Score,
		"fallback":     evaluation.Fallback,
	}).Info("answer evaluated")

	return evaluation, nil
}

// runningMetrics recomputes the in-progress score aggregates including the
// answer being recorded.
func runningMetrics(iv *models.Interview, newScore int) *models.Metrics {
	sum, n := newScore, 1
	for _, q := range iv.Questions {
		if q.Evaluation != nil {
			sum += q.Evaluation.Score
			n++
		}
	}
	mean := int(math.Round(float64(sum) / float64(n)))

	m := &models.Metrics{}
	if iv.Metrics != nil {
		*m = *iv.Metrics
	}
	m.ConfidenceScore = mean
	m.ClarityScore = mean
	m.RelevanceScore = mean
	return m
}

// Complete aggregates whatever evaluations exist at call time; an answer
// still being evaluated is simply excluded from the verdict.
func (s *interviewService) Complete(ctx context.Context, userID, interviewID string) (*models.OverallEvaluation, error) {
	const op = "InterviewService.Complete"

	release := s.locks.Acquire(interviewID)
	defer release()

	iv, err := s.repo.Get(ctx, interviewID, userID)
	if err != nil || iv.Status != models.StatusInProgress {
		if err != nil && !errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeInternal, op, "failed to load interview", err)
		}
		return nil, utils.E(utils.CodeNotFound, op, "interview not found or not in progress", err)
	}

	overall := AggregateEvaluation(iv.Questions)
	now := time.Now().UTC()

	if err := s.repo.Complete(ctx, interviewID, userID, overall, now); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "interview not found or not in progress", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to complete interview", err)
	}

	s.bus.Publish(ctx, interviewID, events.Event{
		Type: events.TypeInterviewCompleted,
		Data: map[string]any{
			"interview_id": interviewID,
			"status":       models.StatusCompleted,
		},
	})

	if s.outcomes != nil {
		strong, weak := overall.StrongAreas, overall.WeakAreas
		if err := s.outcomes.Enqueue(ctx, &models.InterviewOutcome{
			ID:                   uuid.NewString(),
			InterviewID:          interviewID,
			UserID:               userID,
			Type:                 iv.Type,
			Difficulty:           iv.Difficulty,
			TotalScore:           overall.TotalScore,
			Grade:                overall.Grade,
			HiringRecommendation: overall.HiringRecommendation,
			Areas:                marshalAreas(strong, weak),
			CompletedAt:          now,
		}); err != nil {
			s.log.WithError(err).WithField("interview_id", interviewID).Warn("outcome enqueue failed")
		}
	}

	s.log.WithFields(logrus.Fields{
		"interview_id": interviewID,
		"total_score":  overall.TotalScore,
		"grade":        overall.Grade,
	}).Info("interview completed")

	return overall, nil
}

func (s *interviewService) Cancel(ctx context.Context, userID, interviewID string) error {
	const op = "InterviewService.Cancel"

	release := s.locks.Acquire(interviewID)
	defer release()

	if err := s.repo.Cancel(ctx, interviewID, userID); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeNotFound, op, "interview not found or already finished", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to cancel interview", err)
	}

	s.bus.Publish(ctx, interviewID, events.Event{
		Type: events.TypeInterviewCancelled,
		Data: map[string]any{
			"interview_id": interviewID,
			"status":       models.StatusCancelled,
		},
	})

	s.log.WithField("interview_id", interviewID).Info("interview cancelled")
	return nil
}

func (s *interviewService) GetEvaluation(ctx context.Context, userID, interviewID string) (*EvaluationResult, error) {
	const op = "InterviewService.GetEvaluation"

	iv, err := s.Get(ctx, userID, interviewID)
	if err != nil {
		return nil, err
	}
	if iv.Status != models.StatusCompleted {
		return nil, utils.E(utils.CodeNotFound, op, "interview not found or not completed", nil)
	}

	out := &EvaluationResult{Overall: iv.OverallEvaluation}
	for _, q := range iv.Questions {
		out.QuestionEvaluations = append(out.QuestionEvaluations, QuestionEvaluation{
			Text:       q.Text,
			Category:   q.Category,
			Evaluation: q.Evaluation,
		})
	}
	return out, nil
}

func (s *interviewService) GetMetrics(ctx context.Context, userID, interviewID string) (*models.Metrics, error) {
	iv, err := s.Get(ctx, userID, interviewID)
	if err != nil {
		return nil, err
	}
	if iv.Metrics == nil {
		return &models.Metrics{NervousnessLevels: []models.NervousnessSample{}}, nil
	}
	return iv.Metrics, nil
}

func (s *interviewService) RecordNervousness(ctx context.Context, userID, interviewID string, level float64) error {
	const op = "InterviewService.RecordNervousness"

	if level < 0 || level > 100 {
		return utils.E(utils.CodeInvalidArgument, op, "nervousness level must be between 0 and 100", nil)
	}

	sample := models.NervousnessSample{Timestamp: time.Now().UTC(), Value: level}
	if err := s.repo.AppendNervousness(ctx, interviewID, userID, sample); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeNotFound, op, "interview not found or not in progress", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to record nervousness sample", err)
	}

	s.bus.Publish(ctx, interviewID, events.Event{
		Type: events.TypeMetricsUpdate,
		Data: map[string]any{
			"level":     level,
			"timestamp": sample.Timestamp,
		},
	})
	return nil
}
