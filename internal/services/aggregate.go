package services

import (
	"math"

	"github.com/careerforge/backend/internal/models"
)

// AggregateEvaluation reduces per-question evaluations into the final
// verdict. Unanswered questions are excluded; an interview completed with no
// evaluated answers scores zero.
func AggregateEvaluation(questions []models.Question) *models.OverallEvaluation {
	var answered []models.Question
	for _, q := range questions {
		if q.Evaluation != nil {
			answered = append(answered, q)
		}
	}

	avg := 0.0
	if len(answered) > 0 {
		sum := 0
		for _, q := range answered {
			sum += q.Evaluation.Score
		}
		avg = float64(sum) / float64(len(answered))
	}

	return &models.OverallEvaluation{
		TotalScore:           int(math.Round(avg)),
		Grade:                grade(avg),
		Summary:              summary(avg),
		StrongAreas:          areasAbove(answered, 80),
		WeakAreas:            areasBelow(answered, 60),
		Recommendations:      recommendations(answered),
		HiringRecommendation: hiringRecommendation(avg),
	}
}

func grade(score float64) string {
	switch {
	case score >= 90:
		return "A+"
	case score >= 80:
		return "A"
	case score >= 70:
		return "B"
	case score >= 60:
		return "C"
	case score >= 50:
		return "D"
	default:
		return "F"
	}
}

func summary(score float64) string {
	switch {
	case score >= 85:
		return "Excellent performance with strong technical and communication skills."
	case score >= 70:
		return "Good performance with room for improvement in some areas."
	case score >= 55:
		return "Average performance. Additional preparation recommended."
	default:
		return "Below expectations. Focused practice in weak areas needed."
	}
}

func hiringRecommendation(score float64) string {
	switch {
	case score >= 90:
		return "strong-yes"
	case score >= 75:
		return "yes"
	case score >= 60:
		return "maybe"
	case score >= 40:
		return "no"
	default:
		return "strong-no"
	}
}

func areasAbove(answered []models.Question, min int) []string {
	out := []string{}
	seen := map[string]struct{}{}
	for _, q := range answered {
		if q.Evaluation.Score >= min && q.Category != "" {
			if _, ok := seen[q.Category]; !ok {
				seen[q.Category] = struct{}{}
				out = append(out, q.Category)
			}
		}
	}
	return out
}

func areasBelow(answered []models.Question, max int) []string {
	out := []string{}
	seen := map[string]struct{}{}
	for _, q := range answered {
		if q.Evaluation.Score < max && q.Category != "" {
			if _, ok := seen[q.Category]; !ok {
				seen[q.Category] = struct{}{}
				out = append(out, q.Category)
			}
		}
	}
	return out
}

// recommendations is the deduplicated union of all improvement notes across
// answered questions, capped at 5 entries.
func recommendations(answered []models.Question) []string {
	out := []string{}
	seen := map[string]struct{}{}
	for _, q := range answered {
		for _, imp := range q.Evaluation.Improvements {
			if _, ok := seen[imp]; ok {
				continue
			}
			seen[imp] = struct{}{}
			out = append(out, imp)
			if len(out) == 5 {
				return out
			}
		}
	}
	return out
}
