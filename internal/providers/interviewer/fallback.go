package interviewer

import (
	"context"
	"math/rand"

	"github.com/careerforge/backend/internal/models"
	"github.com/google/uuid"
)

// Fallback serves questions from a static, type-keyed bank and synthesizes
// neutral evaluations. It never fails, so the interview flow stays usable
// while the AI service is down.
type Fallback struct{}

func NewFallback() *Fallback { return &Fallback{} }

type bankEntry struct {
	text       string
	category   string
	difficulty string
	timeLimit  int
}

var technicalBank = []bankEntry{
	{"Explain the concept of closures in JavaScript.", "JavaScript", models.DifficultyMedium, 180},
	{"What is the difference between REST and GraphQL?", "API Design", models.DifficultyMedium, 180},
	{"Describe how you would design a URL shortening service.", "System Design", models.DifficultyHard, 300},
}

var hrBank = []bankEntry{
	{"Tell me about yourself and your background.", "Introduction", models.DifficultyEasy, 180},
	{"Where do you see yourself in 5 years?", "Career Goals", models.DifficultyEasy, 120},
	{"Why do you want to work for our company?", "Motivation", models.DifficultyMedium, 150},
}

var behavioralBank = []bankEntry{
	{"Tell me about a time when you faced a challenging project. How did you handle it?", "Problem Solving", models.DifficultyMedium, 180},
	{"Describe a situation where you had to work with a difficult team member.", "Teamwork", models.DifficultyMedium, 180},
	{"Give an example of when you showed leadership.", "Leadership", models.DifficultyMedium, 180},
}

func bankFor(typ string) []bankEntry {
	switch typ {
	case models.TypeHR:
		return hrBank
	case models.TypeBehavioral:
		return behavioralBank
	default:
		// technical and system-design share the technical bank
		return technicalBank
	}
}

// Generate returns count questions with fresh ids, clamped to the bank size.
func (f *Fallback) Generate(_ context.Context, req GenerateRequest) ([]models.Question, error) {
	bank := bankFor(req.Type)

	n := req.Count
	if n < 1 {
		n = 1
	}
	if n > len(bank) {
		n = len(bank)
	}

	qs := make([]models.Question, 0, n)
	for _, e := range bank[:n] {
		qs = append(qs, models.Question{
			ID:         uuid.NewString(),
			Text:       e.text,
			Category:   e.category,
			Difficulty: e.difficulty,
			TimeLimit:  e.timeLimit,
		})
	}
	return qs, nil
}

// Evaluate synthesizes a neutral middle-to-high score so submissions never
// block on an upstream outage. The Fallback flag keeps it auditable.
func (f *Fallback) Evaluate(_ context.Context, _ models.Question, _ string) (*models.Evaluation, error) {
	return &models.Evaluation{
		Score:        70 + rand.Intn(30),
		Feedback:     "Good response with clear explanation.",
		Strengths:    []string{"Clear communication", "Relevant examples"},
		Improvements: []string{"Could provide more specific examples"},
		Fallback:     true,
	}, nil
}
