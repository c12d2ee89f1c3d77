package runner

import (
	"github.com/giantswarm/llm-compare/internal/results"
)

// EventType tags the payload of an Event.
type EventType string

const (
	EventProgress EventType = "progress"
	EventResponse EventType = "response"
	EventScores   EventType = "scores"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// Status is the pipeline phase reported by a progress event.
type Status string

const (
	StatusQuerying Status = "querying"
	StatusScoring  Status = "scoring"
)

// EvaluatorLabel is the current-model label of scoring progress events.
const EvaluatorLabel = "Evaluator"

// Event is one message of a run. Data holds a Progress, ResponseData,
// ScoresData, results.EvaluationResults or ErrorData depending on Type.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// Progress reports which test and model the run is working on.
// CurrentTest is 1-based.
type Progress struct {
	CurrentTest  int    `json:"currentTest"`
	TotalTests   int    `json:"totalTests"`
	CurrentModel string `json:"currentModel"`
	Status       Status `json:"status"`
}

// ResponseData carries one model's answer to one test case.
type ResponseData struct {
	TestID   string                `json:"testId"`
	ModelID  string                `json:"modelId"`
	Response results.ModelResponse `json:"response"`
}

// ScoresData carries the scores of every model for one test case.
type ScoresData struct {
	TestID string              `json:"testId"`
	Scores []results.TestScore `json:"scores"`
}

// ErrorData carries the message of a terminal error event.
type ErrorData struct {
	Message string `json:"message"`
}

// ErrorEvent converts a pipeline error into the terminal error event
// delivered to stream consumers.
func ErrorEvent(err error) Event {
	return Event{Type: EventError, Data: ErrorData{Message: err.Error()}}
}

func progressEvent(current, total int, model string, status Status) Event {
	return Event{Type: EventProgress, Data: Progress{
		CurrentTest:  current,
		TotalTests:   total,
		CurrentModel: model,
		Status:       status,
	}}
}
