package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/careerforge/backend/internal/events"
	"github.com/careerforge/backend/internal/models"
	"github.com/careerforge/backend/internal/providers/interviewer"
	mongorepo "github.com/careerforge/backend/internal/repositories/mongo"
	"github.com/careerforge/backend/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepo reproduces the repository's conditional-update semantics in
// memory, so the service sees the same guarantees the Mongo filters give.
type fakeRepo struct {
	mu   sync.Mutex
	byID map[string]*models.Interview
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: map[string]*models.Interview{}}
}

func copyInterview(iv *models.Interview) *models.Interview {
	out := *iv
	out.Questions = make([]models.Question, len(iv.Questions))
	for i, q := range iv.Questions {
		cq := q
		if q.Response != nil {
			r := *q.Response
			cq.Response = &r
		}
		if q.Evaluation != nil {
			e := *q.Evaluation
			cq.Evaluation = &e
		}
		out.Questions[i] = cq
	}
	if iv.Metrics != nil {
		m := *iv.Metrics
		out.Metrics = &m
	}
	if iv.OverallEvaluation != nil {
		o := *iv.OverallEvaluation
		out.OverallEvaluation = &o
	}
	return &out
}

func (r *fakeRepo) Create(_ context.Context, iv *models.Interview) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[iv.InterviewID] = copyInterview(iv)
	return nil
}

func (r *fakeRepo) get(interviewID, userID string) (*models.Interview, error) {
	iv, ok := r.byID[interviewID]
	if !ok || iv.UserID != userID {
		return nil, utils.ErrNotFound
	}
	return iv, nil
}

func (r *fakeRepo) Get(_ context.Context, interviewID, userID string) (*models.Interview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	iv, err := r.get(interviewID, userID)
	if err != nil {
		return nil, err
	}
	return copyInterview(iv), nil
}

func (r *fakeRepo) List(_ context.Context, userID string, f mongorepo.ListFilter) ([]models.Interview, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Interview
	for _, iv := range r.byID {
		if iv.UserID != userID {
			continue
		}
		if f.Status != "" && iv.Status != f.Status {
			continue
		}
		if f.Type != "" && iv.Type != f.Type {
			continue
		}
		out = append(out, *copyInterview(iv))
	}
	return out, int64(len(out)), nil
}

func (r *fakeRepo) Start(_ context.Context, interviewID, userID string, questions []models.Question, metrics *models.Metrics, startedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	iv, err := r.get(interviewID, userID)
	if err != nil || iv.Status != models.StatusScheduled {
		return utils.ErrNotFound
	}
	iv.Status = models.StatusInProgress
	iv.Questions = questions
	iv.Metrics = metrics
	t := startedAt
	iv.StartedAt = &t
	return nil
}

func (r *fakeRepo) AttachAnswer(_ context.Context, interviewID, userID, questionID string, resp *models.Response, ev *models.Evaluation, metrics *models.Metrics) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	iv, err := r.get(interviewID, userID)
	if err != nil || iv.Status != models.StatusInProgress {
		return utils.ErrConflict
	}
	for i := range iv.Questions {
		if iv.Questions[i].ID == questionID && iv.Questions[i].Response == nil {
			iv.Questions[i].Response = resp
			iv.Questions[i].Evaluation = ev
			if metrics != nil {
				iv.Metrics = metrics
			}
			return nil
		}
	}
	return utils.ErrConflict
}

func (r *fakeRepo) Complete(_ context.Context, interviewID, userID string, overall *models.OverallEvaluation, completedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	iv, err := r.get(interviewID, userID)
	if err != nil || iv.Status != models.StatusInProgress {
		return utils.ErrNotFound
	}
	iv.Status = models.StatusCompleted
	iv.OverallEvaluation = overall
	t := completedAt
	iv.CompletedAt = &t
	return nil
}

func (r *fakeRepo) Cancel(_ context.Context, interviewID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	iv, err := r.get(interviewID, userID)
	if err != nil || (iv.Status != models.StatusScheduled && iv.Status != models.StatusInProgress) {
		return utils.ErrNotFound
	}
	iv.Status = models.StatusCancelled
	return nil
}

func (r *fakeRepo) AppendNervousness(_ context.Context, interviewID, userID string, sample models.NervousnessSample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	iv, err := r.get(interviewID, userID)
	if err != nil || iv.Status != models.StatusInProgress {
		return utils.ErrNotFound
	}
	if iv.Metrics == nil {
		iv.Metrics = &models.Metrics{}
	}
	iv.Metrics.NervousnessLevels = append(iv.Metrics.NervousnessLevels, sample)
	return nil
}

// fakeProvider hands out generated questions and scripted evaluations.
type fakeProvider struct {
	mu         sync.Mutex
	scores     []int
	next       int
	beforeEval func() // runs before each evaluation, outside the engine lock
}

func (p *fakeProvider) Generate(_ context.Context, req interviewer.GenerateRequest) ([]models.Question, error) {
	qs := make([]models.Question, req.Count)
	for i := range qs {
		qs[i] = models.Question{
			ID:         uuid.NewString(),
			Text:       "generated question",
			Category:   "General",
			Difficulty: req.Difficulty,
			TimeLimit:  180,
		}
	}
	return qs, nil
}

func (p *fakeProvider) Evaluate(_ context.Context, _ models.Question, _ string) (*models.Evaluation, error) {
	if p.beforeEval != nil {
		p.beforeEval()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	score := 75
	if p.next < len(p.scores) {
		score = p.scores[p.next]
		p.next++
	}
	return &models.Evaluation{
		Score:        score,
		Feedback:     "ok",
		Improvements: []string{"improve"},
	}, nil
}

type fakeBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *fakeBus) Publish(_ context.Context, _ string, ev events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
}

func (b *fakeBus) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.events))
	for i, ev := range b.events {
		out[i] = ev.Type
	}
	return out
}

type fakeOutcomes struct {
	mu   sync.Mutex
	rows []*models.InterviewOutcome
}

func (o *fakeOutcomes) Enqueue(_ context.Context, row *models.InterviewOutcome) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rows = append(o.rows, row)
	return nil
}

type fixture struct {
	svc      InterviewService
	repo     *fakeRepo
	provider *fakeProvider
	bus      *fakeBus
	outcomes *fakeOutcomes
}

func newFixture() *fixture {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	f := &fixture{
		repo:     newFakeRepo(),
		provider: &fakeProvider{},
		bus:      &fakeBus{},
		outcomes: &fakeOutcomes{},
	}
	f.svc = NewInterviewService(f.repo, f.provider, f.provider, f.bus, f.outcomes, log)
	return f
}

const owner = "user-1"

func (f *fixture) scheduled(t *testing.T, duration int) *models.Interview {
	t.Helper()
	iv, err := f.svc.Create(context.Background(), owner, CreateInput{
		Type:       models.TypeTechnical,
		Difficulty: models.DifficultyMedium,
		Duration:   duration,
	})
	require.NoError(t, err)
	return iv
}

func (f *fixture) started(t *testing.T, duration int) *models.Interview {
	t.Helper()
	iv := f.scheduled(t, duration)
	res, err := f.svc.Start(context.Background(), owner, iv.InterviewID)
	require.NoError(t, err)
	return res.Interview
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, owner, CreateInput{Difficulty: models.DifficultyEasy})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))

	_, err = f.svc.Create(ctx, owner, CreateInput{Type: models.TypeHR})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))

	_, err = f.svc.Create(ctx, owner, CreateInput{Type: models.TypeHR, Difficulty: models.DifficultyEasy, Duration: 3})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))

	_, err = f.svc.Create(ctx, owner, CreateInput{Type: models.TypeHR, Difficulty: models.DifficultyEasy, Duration: 121})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))

	iv, err := f.svc.Create(ctx, owner, CreateInput{Type: models.TypeHR, Difficulty: models.DifficultyEasy})
	require.NoError(t, err)
	assert.Equal(t, models.StatusScheduled, iv.Status)
	assert.Equal(t, 30, iv.Duration) // default
	assert.Empty(t, iv.Questions)
	assert.Nil(t, iv.StartedAt)
}

func TestStart_PopulatesQuestions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	iv := f.scheduled(t, 30)

	res, err := f.svc.Start(ctx, owner, iv.InterviewID)
	require.NoError(t, err)

	assert.Equal(t, 6, res.TotalQuestions) // floor(30/5)
	assert.Equal(t, models.StatusInProgress, res.Interview.Status)
	assert.NotNil(t, res.Interview.StartedAt)
	assert.NotNil(t, res.FirstQuestion)
	assert.Equal(t, []string{events.TypeInterviewStarted}, f.bus.types())

	// second start is rejected without touching state
	_, err = f.svc.Start(ctx, owner, iv.InterviewID)
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))
}

func TestStart_MinimumOneQuestion(t *testing.T) {
	f := newFixture()
	iv := f.scheduled(t, 5)

	res, err := f.svc.Start(context.Background(), owner, iv.InterviewID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalQuestions)
}

func TestStart_OwnershipNotLeaked(t *testing.T) {
	f := newFixture()
	iv := f.scheduled(t, 30)

	_, err := f.svc.Start(context.Background(), "someone-else", iv.InterviewID)
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))

	_, err = f.svc.Start(context.Background(), owner, "no-such-id")
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))
}

func TestNextQuestion_WalksListInOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	iv := f.started(t, 10) // 2 questions

	res, err := f.svc.NextQuestion(ctx, owner, iv.InterviewID)
	require.NoError(t, err)
	assert.False(t, res.Complete)
	assert.Equal(t, 1, res.QuestionNumber)
	assert.Equal(t, iv.Questions[0].ID, res.Question.ID)

	_, err = f.svc.SubmitAnswer(ctx, owner, iv.InterviewID, SubmitAnswerInput{
		QuestionID: iv.Questions[0].ID,
		Transcript: "my answer",
	})
	require.NoError(t, err)

	res, err = f.svc.NextQuestion(ctx, owner, iv.InterviewID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.QuestionNumber)

	_, err = f.svc.SubmitAnswer(ctx, owner, iv.InterviewID, SubmitAnswerInput{
		QuestionID: iv.Questions[1].ID,
		Transcript: "my answer",
	})
	require.NoError(t, err)

	res, err = f.svc.NextQuestion(ctx, owner, iv.InterviewID)
	require.NoError(t, err)
	assert.True(t, res.Complete)
}

func TestNextQuestion_RequiresInProgress(t *testing.T) {
	f := newFixture()
	iv := f.scheduled(t, 30)

	_, err := f.svc.NextQuestion(context.Background(), owner, iv.InterviewID)
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))
}

func TestSubmitAnswer_AttachesEvaluationOnce(t *testing.T) {
	f := newFixture()
	f.provider.scores = []int{88}
	ctx := context.Background()
	iv := f.started(t, 10)
	qid := iv.Questions[0].ID

	ev, err := f.svc.SubmitAnswer(ctx, owner, iv.InterviewID, SubmitAnswerInput{
		QuestionID: qid,
		Transcript: "first answer",
		Duration:   42,
	})
	require.NoError(t, err)
	assert.Equal(t, 88, ev.Score)

	// retry is rejected, first pair stays on record
	_, err = f.svc.SubmitAnswer(ctx, owner, iv.InterviewID, SubmitAnswerInput{
		QuestionID: qid,
		Transcript: "second answer",
	})
	assert.True(t, utils.IsCode(err, utils.CodeConflict))

	stored, err := f.svc.Get(ctx, owner, iv.InterviewID)
	require.NoError(t, err)
	require.NotNil(t, stored.Questions[0].Response)
	assert.Equal(t, "first answer", stored.Questions[0].Response.Transcript)
	assert.Equal(t, 88, stored.Questions[0].Evaluation.Score)

	assert.Contains(t, f.bus.types(), events.TypeAnswerEvaluated)
}

func TestSubmitAnswer_UnknownQuestion(t *testing.T) {
	f := newFixture()
	iv := f.started(t, 10)

	_, err := f.svc.SubmitAnswer(context.Background(), owner, iv.InterviewID, SubmitAnswerInput{
		QuestionID: "missing",
		Transcript: "answer",
	})
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))
}

func TestSubmitAnswer_RequiresInProgress(t *testing.T) {
	f := newFixture()
	iv := f.scheduled(t, 10)

	_, err := f.svc.SubmitAnswer(context.Background(), owner, iv.InterviewID, SubmitAnswerInput{
		QuestionID: "q",
		Transcript: "answer",
	})
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))
}

func TestSubmitAnswer_UpdatesRunningMetrics(t *testing.T) {
	f := newFixture()
	f.provider.scores = []int{90, 70}
	ctx := context.Background()
	iv := f.started(t, 10)

	_, err := f.svc.SubmitAnswer(ctx, owner, iv.InterviewID, SubmitAnswerInput{
		QuestionID: iv.Questions[0].ID, Transcript: "a",
	})
	require.NoError(t, err)
	_, err = f.svc.SubmitAnswer(ctx, owner, iv.InterviewID, SubmitAnswerInput{
		QuestionID: iv.Questions[1].ID, Transcript: "b",
	})
	require.NoError(t, err)

	m, err := f.svc.GetMetrics(ctx, owner, iv.InterviewID)
	require.NoError(t, err)
	assert.Equal(t, 80, m.RelevanceScore)
	assert.Equal(t, 80, m.ClarityScore)
}

func TestSubmitAnswer_ConcurrentDoubleSubmit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	iv := f.started(t, 10)
	qid := iv.Questions[0].ID

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.SubmitAnswer(ctx, owner, iv.InterviewID, SubmitAnswerInput{
				QuestionID: qid,
				Transcript: "racing answer",
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var okCount, conflictCount int
	for err := range errs {
		switch {
		case err == nil:
			okCount++
		case utils.IsCode(err, utils.CodeConflict):
			conflictCount++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, okCount)
	assert.Equal(t, 1, conflictCount)
}

func TestSubmitAnswer_DiscardedAfterCancel(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	iv := f.started(t, 10)

	// cancel lands while the evaluation is in flight
	f.provider.beforeEval = func() {
		require.NoError(t, f.svc.Cancel(ctx, owner, iv.InterviewID))
	}

	_, err := f.svc.SubmitAnswer(ctx, owner, iv.InterviewID, SubmitAnswerInput{
		QuestionID: iv.Questions[0].ID,
		Transcript: "answer",
	})
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))

	stored, err := f.svc.Get(ctx, owner, iv.InterviewID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, stored.Status)
	assert.Nil(t, stored.Questions[0].Response)
	assert.Nil(t, stored.Questions[0].Evaluation)
}

func TestComplete_AggregatesAnsweredOnly(t *testing.T) {
	f := newFixture()
	f.provider.scores = []int{80, 85, 90, 70, 60, 95}
	ctx := context.Background()
	iv := f.started(t, 30) // 6 questions

	for _, q := range iv.Questions {
		_, err := f.svc.SubmitAnswer(ctx, owner, iv.InterviewID, SubmitAnswerInput{
			QuestionID: q.ID,
			Transcript: "answer",
		})
		require.NoError(t, err)
	}

	overall, err := f.svc.Complete(ctx, owner, iv.InterviewID)
	require.NoError(t, err)
	assert.Equal(t, 80, overall.TotalScore)
	assert.Equal(t, "A", overall.Grade)
	assert.Equal(t, "yes", overall.HiringRecommendation)

	stored, err := f.svc.Get(ctx, owner, iv.InterviewID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, stored.Status)
	assert.NotNil(t, stored.CompletedAt)

	// completing again is rejected; overallEvaluation is set exactly once
	_, err = f.svc.Complete(ctx, owner, iv.InterviewID)
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))

	require.Len(t, f.outcomes.rows, 1)
	assert.Equal(t, 80, f.outcomes.rows[0].TotalScore)
	assert.Equal(t, iv.InterviewID, f.outcomes.rows[0].InterviewID)
}

func TestComplete_PartialAnswers(t *testing.T) {
	f := newFixture()
	f.provider.scores = []int{90, 50, 65}
	ctx := context.Background()
	iv := f.started(t, 25) // 5 questions

	for _, q := range iv.Questions[:3] {
		_, err := f.svc.SubmitAnswer(ctx, owner, iv.InterviewID, SubmitAnswerInput{
			QuestionID: q.ID,
			Transcript: "answer",
		})
		require.NoError(t, err)
	}

	overall, err := f.svc.Complete(ctx, owner, iv.InterviewID)
	require.NoError(t, err)
	assert.Equal(t, 68, overall.TotalScore)
	assert.Equal(t, "C", overall.Grade)
}

func TestCancel_FromScheduled(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	iv := f.scheduled(t, 30)

	require.NoError(t, f.svc.Cancel(ctx, owner, iv.InterviewID))

	stored, err := f.svc.Get(ctx, owner, iv.InterviewID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, stored.Status)
	assert.Empty(t, stored.Questions)
	assert.Nil(t, stored.OverallEvaluation)

	// terminal: cannot cancel or start again
	assert.True(t, utils.IsCode(f.svc.Cancel(ctx, owner, iv.InterviewID), utils.CodeNotFound))
	_, err = f.svc.Start(ctx, owner, iv.InterviewID)
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))
}

func TestCancel_KeepsPartialState(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	iv := f.started(t, 10)

	_, err := f.svc.SubmitAnswer(ctx, owner, iv.InterviewID, SubmitAnswerInput{
		QuestionID: iv.Questions[0].ID,
		Transcript: "answer",
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Cancel(ctx, owner, iv.InterviewID))

	stored, err := f.svc.Get(ctx, owner, iv.InterviewID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, stored.Status)
	// cancel is a terminal marker only, recorded answers survive
	assert.NotNil(t, stored.Questions[0].Response)
}

func TestGetEvaluation_OnlyWhenCompleted(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	iv := f.started(t, 10)

	_, err := f.svc.GetEvaluation(ctx, owner, iv.InterviewID)
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))

	_, err = f.svc.Complete(ctx, owner, iv.InterviewID)
	require.NoError(t, err)

	res, err := f.svc.GetEvaluation(ctx, owner, iv.InterviewID)
	require.NoError(t, err)
	assert.NotNil(t, res.Overall)
	assert.Len(t, res.QuestionEvaluations, 2)
}

func TestRecordNervousness(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	iv := f.started(t, 10)

	assert.True(t, utils.IsCode(
		f.svc.RecordNervousness(ctx, owner, iv.InterviewID, 140), utils.CodeInvalidArgument))

	require.NoError(t, f.svc.RecordNervousness(ctx, owner, iv.InterviewID, 35))

	m, err := f.svc.GetMetrics(ctx, owner, iv.InterviewID)
	require.NoError(t, err)
	require.Len(t, m.NervousnessLevels, 1)
	assert.Equal(t, 35.0, m.NervousnessLevels[0].Value)

	assert.Contains(t, f.bus.types(), events.TypeMetricsUpdate)
}
