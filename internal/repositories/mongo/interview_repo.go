package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/careerforge/backend/internal/models"
	"github.com/careerforge/backend/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// InterviewRepository is the only gateway to interview documents. Every
// lifecycle write is a conditional update filtered on the status the
// transition requires, so an update that raced with another transition
// matches nothing instead of clobbering state.
type InterviewRepository interface {
	Create(ctx context.Context, iv *models.Interview) error
	Get(ctx context.Context, interviewID, userID string) (*models.Interview, error)
	List(ctx context.Context, userID string, f ListFilter) ([]models.Interview, int64, error)

	Start(ctx context.Context, interviewID, userID string, questions []models.Question, metrics *models.Metrics, startedAt time.Time) error
	AttachAnswer(ctx context.Context, interviewID, userID, questionID string, resp *models.Response, ev *models.Evaluation, metrics *models.Metrics) error
	Complete(ctx context.Context, interviewID, userID string, overall *models.OverallEvaluation, completedAt time.Time) error
	Cancel(ctx context.Context, interviewID, userID string) error

	AppendNervousness(ctx context.Context, interviewID, userID string, sample models.NervousnessSample) error
}

type ListFilter struct {
	Status string
	Type   string
	Page   int64
	Limit  int64
}

type interviewRepo struct {
	col *mongo.Collection
}

func NewInterviewRepo(db *mongo.Database) InterviewRepository {
	return &interviewRepo{col: db.Collection("interviews")}
}

func (r *interviewRepo) Create(ctx context.Context, iv *models.Interview) error {
	if iv.CreatedAt.IsZero() {
		iv.CreatedAt = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, iv)
	return err
}

func (r *interviewRepo) Get(ctx context.Context, interviewID, userID string) (*models.Interview, error) {
	var iv models.Interview
	err := r.col.FindOne(ctx, bson.M{
		"interview_id": interviewID,
		"user_id":      userID,
	}).Decode(&iv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	return &iv, err
}

func (r *interviewRepo) List(ctx context.Context, userID string, f ListFilter) ([]models.Interview, int64, error) {
	if f.Limit <= 0 {
		f.Limit = 10
	}
	if f.Page <= 0 {
		f.Page = 1
	}

	filter := bson.M{"user_id": userID}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Type != "" {
		filter["type"] = f.Type
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip((f.Page - 1) * f.Limit).
		SetLimit(f.Limit)

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var out []models.Interview
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Start performs the scheduled -> in-progress transition. A zero match means
// the session does not exist for this caller or already left "scheduled"
// (e.g. cancelled while questions were being generated); the prepared
// question list is discarded in that case.
func (r *interviewRepo) Start(ctx context.Context, interviewID, userID string, questions []models.Question, metrics *models.Metrics, startedAt time.Time) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{
			"interview_id": interviewID,
			"user_id":      userID,
			"status":       bson.M{"$in": models.TransitionSources(models.StatusInProgress)},
		},
		bson.M{"$set": bson.M{
			"status":     models.StatusInProgress,
			"questions":  questions,
			"metrics":    metrics,
			"started_at": startedAt.UTC(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return utils.ErrNotFound
	}
	return nil
}

// AttachAnswer records response and evaluation for one question in a single
// update. The $elemMatch filter requires the question to still be unanswered,
// so concurrent submissions for the same question cannot both land.
func (r *interviewRepo) AttachAnswer(ctx context.Context, interviewID, userID, questionID string, resp *models.Response, ev *models.Evaluation, metrics *models.Metrics) error {
	set := bson.M{
		"questions.$.response":   resp,
		"questions.$.evaluation": ev,
	}
	if metrics != nil {
		set["metrics.confidence_score"] = metrics.ConfidenceScore
		set["metrics.clarity_score"] = metrics.ClarityScore
		set["metrics.relevance_score"] = metrics.RelevanceScore
	}

	res, err := r.col.UpdateOne(ctx,
		bson.M{
			"interview_id": interviewID,
			"user_id":      userID,
			"status":       models.StatusInProgress,
			"questions": bson.M{"$elemMatch": bson.M{
				"id":       questionID,
				"response": bson.M{"$exists": false},
			}},
		},
		bson.M{"$set": set},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return utils.ErrConflict
	}
	return nil
}

func (r *interviewRepo) Complete(ctx context.Context, interviewID, userID string, overall *models.OverallEvaluation, completedAt time.Time) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{
			"interview_id": interviewID,
			"user_id":      userID,
			"status":       bson.M{"$in": models.TransitionSources(models.StatusCompleted)},
		},
		bson.M{"$set": bson.M{
			"status":             models.StatusCompleted,
			"overall_evaluation": overall,
			"completed_at":       completedAt.UTC(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return utils.ErrNotFound
	}
	return nil
}

// Cancel is a terminal marker only; questions and responses are left as-is.
func (r *interviewRepo) Cancel(ctx context.Context, interviewID, userID string) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{
			"interview_id": interviewID,
			"user_id":      userID,
			"status":       bson.M{"$in": models.TransitionSources(models.StatusCancelled)},
		},
		bson.M{"$set": bson.M{"status": models.StatusCancelled}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *interviewRepo) AppendNervousness(ctx context.Context, interviewID, userID string, sample models.NervousnessSample) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{
			"interview_id": interviewID,
			"user_id":      userID,
			"status":       models.StatusInProgress,
		},
		bson.M{"$push": bson.M{"metrics.nervousness_levels": sample}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return utils.ErrNotFound
	}
	return nil
}
