package interviewer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/careerforge/backend/internal/models"
)

// Remote talks to the adaptive-interviewer AI service over its JSON contract.
// Both calls are bounded by the client timeout; callers wrap Remote in
// Resilient so an outage degrades to the static bank instead of failing.
type Remote struct {
	baseURL string
	client  *http.Client
}

const remoteTimeout = 30 * time.Second

func NewRemote(baseURL string) *Remote {
	return &Remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: remoteTimeout},
	}
}

type generateQuestionsRequest struct {
	Type       string `json:"type"`
	Difficulty string `json:"difficulty"`
	TargetRole string `json:"targetRole,omitempty"`
	Count      int    `json:"count"`
}

type generateQuestionsResponse struct {
	Data struct {
		Questions []struct {
			ID         string `json:"id"`
			Text       string `json:"text"`
			Category   string `json:"category"`
			Difficulty string `json:"difficulty"`
			TimeLimit  int    `json:"timeLimit"`
		} `json:"questions"`
	} `json:"data"`
}

func (r *Remote) Generate(ctx context.Context, req GenerateRequest) ([]models.Question, error) {
	var out generateQuestionsResponse
	err := r.post(ctx, "/api/v1/generate-questions", generateQuestionsRequest{
		Type:       req.Type,
		Difficulty: req.Difficulty,
		TargetRole: req.TargetRole,
		Count:      req.Count,
	}, &out)
	if err != nil {
		return nil, err
	}
	if len(out.Data.Questions) == 0 {
		return nil, fmt.Errorf("generate-questions: empty question list")
	}

	qs := make([]models.Question, 0, len(out.Data.Questions))
	for _, q := range out.Data.Questions {
		qs = append(qs, models.Question{
			ID:         q.ID,
			Text:       q.Text,
			Category:   q.Category,
			Difficulty: q.Difficulty,
			TimeLimit:  q.TimeLimit,
		})
	}
	return qs, nil
}

type evaluateRequest struct {
	Question   questionPayload `json:"question"`
	Transcript string          `json:"transcript"`
}

type questionPayload struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Category string `json:"category"`
}

type evaluateResponse struct {
	Data struct {
		Evaluation struct {
			Score        int      `json:"score"`
			Feedback     string   `json:"feedback"`
			Strengths    []string `json:"strengths"`
			Improvements []string `json:"improvements"`
		} `json:"evaluation"`
	} `json:"data"`
}

func (r *Remote) Evaluate(ctx context.Context, question models.Question, transcript string) (*models.Evaluation, error) {
	var out evaluateResponse
	err := r.post(ctx, "/api/v1/evaluate", evaluateRequest{
		Question: questionPayload{
			ID:       question.ID,
			Text:     question.Text,
			Category: question.Category,
		},
		Transcript: transcript,
	}, &out)
	if err != nil {
		return nil, err
	}

	ev := out.Data.Evaluation
	if ev.Score < 0 || ev.Score > 100 {
		return nil, fmt.Errorf("evaluate: score %d out of range", ev.Score)
	}
	return &models.Evaluation{
		Score:        ev.Score,
		Feedback:     ev.Feedback,
		Strengths:    ev.Strengths,
		Improvements: ev.Improvements,
	}, nil
}

func (r *Remote) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("call %s: status %d: %s", path, resp.StatusCode, string(raw))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
