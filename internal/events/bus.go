package events

import "context"

// Event types published by the interview engine.
const (
	TypeInterviewStarted   = "interview:started"
	TypeAnswerEvaluated    = "answer:evaluated"
	TypeInterviewCompleted = "interview:completed"
	TypeInterviewCancelled = "interview:cancelled"
	TypeMetricsUpdate      = "metrics:update"
)

type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Publisher broadcasts an event on one interview's channel. Delivery is
// best-effort: implementations must not block the caller or return errors
// into the engine's control flow.
type Publisher interface {
	Publish(ctx context.Context, interviewID string, ev Event)
}

// Channel names the broadcast topic for one interview.
func Channel(interviewID string) string {
	return "interview:" + interviewID + ":events"
}
