package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Interview statuses. Transitions are enforced by the service layer and by
// status-filtered updates in the repository; nothing else writes these fields.
const (
	StatusScheduled  = "scheduled"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

const (
	TypeTechnical    = "technical"
	TypeHR           = "hr"
	TypeBehavioral   = "behavioral"
	TypeSystemDesign = "system-design"
)

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

type Interview struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	InterviewID string             `bson:"interview_id" json:"id"` // uuid v4
	UserID      string             `bson:"user_id" json:"user_id"`

	Type       string `bson:"type" json:"type"`             // technical|hr|behavioral|system-design
	Difficulty string `bson:"difficulty" json:"difficulty"` // easy|medium|hard
	Duration   int    `bson:"duration" json:"duration"`     // planned length, minutes

	TargetRole    string `bson:"target_role,omitempty" json:"target_role,omitempty"`
	TargetCompany string `bson:"target_company,omitempty" json:"target_company,omitempty"`

	Status    string     `bson:"status" json:"status"`
	Questions []Question `bson:"questions" json:"questions"`

	Metrics           *Metrics           `bson:"metrics,omitempty" json:"metrics,omitempty"`
	OverallEvaluation *OverallEvaluation `bson:"overall_evaluation,omitempty" json:"overall_evaluation,omitempty"`

	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	StartedAt   *time.Time `bson:"started_at,omitempty" json:"started_at,omitempty"`
	CompletedAt *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
}

// Question is owned by its Interview. Response and Evaluation are each set at
// most once; a second submission for the same question is rejected.
type Question struct {
	ID         string `bson:"id" json:"id"`
	Text       string `bson:"text" json:"text"`
	Category   string `bson:"category" json:"category"`
	Difficulty string `bson:"difficulty" json:"difficulty"`
	TimeLimit  int    `bson:"time_limit,omitempty" json:"time_limit,omitempty"` // seconds

	Response   *Response   `bson:"response,omitempty" json:"response,omitempty"`
	Evaluation *Evaluation `bson:"evaluation,omitempty" json:"evaluation,omitempty"`
}

type Response struct {
	Transcript string    `bson:"transcript" json:"transcript"`
	Duration   int       `bson:"duration" json:"duration"` // seconds spent answering
	Timestamp  time.Time `bson:"timestamp" json:"timestamp"`
}

type Evaluation struct {
	Score        int      `bson:"score" json:"score"` // 0..100
	Feedback     string   `bson:"feedback" json:"feedback"`
	Strengths    []string `bson:"strengths" json:"strengths"`
	Improvements []string `bson:"improvements" json:"improvements"`

	// Fallback marks a locally synthesized evaluation (AI service was down).
	// Persisted for auditing, never surfaced over the API.
	Fallback bool `bson:"fallback,omitempty" json:"-"`
}

type Metrics struct {
	NervousnessLevels []NervousnessSample `bson:"nervousness_levels" json:"nervousness_levels"`
	ConfidenceScore   int                 `bson:"confidence_score" json:"confidence_score"`
	ClarityScore      int                 `bson:"clarity_score" json:"clarity_score"`
	RelevanceScore    int                 `bson:"relevance_score" json:"relevance_score"`
}

type NervousnessSample struct {
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	Value     float64   `bson:"value" json:"value"`
}

type OverallEvaluation struct {
	TotalScore           int      `bson:"total_score" json:"total_score"`
	Grade                string   `bson:"grade" json:"grade"`
	Summary              string   `bson:"summary" json:"summary"`
	StrongAreas          []string `bson:"strong_areas" json:"strong_areas"`
	WeakAreas            []string `bson:"weak_areas" json:"weak_areas"`
	Recommendations      []string `bson:"recommendations" json:"recommendations"`
	HiringRecommendation string   `bson:"hiring_recommendation" json:"hiring_recommendation"` // strong-yes|yes|maybe|no|strong-no
}

// legalTransitions is the whole lifecycle: scheduled -> in-progress ->
// completed, with cancelled reachable from either non-terminal state.
var legalTransitions = map[string]map[string]bool{
	StatusScheduled:  {StatusInProgress: true, StatusCancelled: true},
	StatusInProgress: {StatusCompleted: true, StatusCancelled: true},
}

func CanTransition(from, to string) bool {
	return legalTransitions[from][to]
}

// TransitionSources returns every status from which to is legally reachable.
// Repository writes filter on these, so an illegal transition matches nothing.
func TransitionSources(to string) []string {
	var out []string
	for _, from := range []string{StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled} {
		if legalTransitions[from][to] {
			out = append(out, from)
		}
	}
	return out
}

func ValidType(t string) bool {
	switch t {
	case TypeTechnical, TypeHR, TypeBehavioral, TypeSystemDesign:
		return true
	}
	return false
}

func ValidDifficulty(d string) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}
