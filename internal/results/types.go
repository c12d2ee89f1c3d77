// Package results defines the per-test and aggregate result entities
// produced by an evaluation run. JSON field names are the wire contract
// consumed by the presentation layer.
package results

import (
	"time"

	"github.com/giantswarm/llm-compare/internal/catalog"
)

// ModelResponse is the outcome of querying one model for one test case.
// When Error is set, Response is empty.
type ModelResponse struct {
	ModelID   string `json:"modelId"`
	Response  string `json:"response"`
	LatencyMs int64  `json:"latencyMs"`
	Error     string `json:"error,omitempty"`
}

// Failed reports whether the model call failed.
func (r ModelResponse) Failed() bool {
	return r.Error != ""
}

// DimensionScore is the judge's score for a single dimension, in [1,5].
type DimensionScore struct {
	Dimension string  `json:"dimension"`
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}

// TestScore holds the dimension scores of one model on one test case.
type TestScore struct {
	ModelID         string           `json:"modelId"`
	DimensionScores []DimensionScore `json:"dimensionScores"`
	OverallScore    float64          `json:"overallScore"`
}

// NewTestScore builds a TestScore whose overall score is the mean of the
// dimension scores, or 0 when there are none.
func NewTestScore(modelID string, scores []DimensionScore) TestScore {
	return TestScore{
		ModelID:         modelID,
		DimensionScores: scores,
		OverallScore:    meanScore(scores),
	}
}

func meanScore(scores []DimensionScore) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s.Score
	}
	return sum / float64(len(scores))
}

// TestResult collects everything produced for one test case.
type TestResult struct {
	TestCase   catalog.TestCase `json:"testCase"`
	Responses  []ModelResponse  `json:"responses"`
	Scores     []TestScore      `json:"scores"`
	Comparison string           `json:"comparison,omitempty"`
}

// ModelResults is the aggregate of one model across all test cases.
type ModelResults struct {
	ModelID          string             `json:"modelId"`
	DisplayName      string             `json:"displayName"`
	OverallScore     float64            `json:"overallScore"`
	DimensionScores  map[string]float64 `json:"dimensionScores"`
	AverageLatencyMs float64            `json:"averageLatencyMs"`
}

// Summary names the winner and lists each model's overall score.
type Summary struct {
	Winner      string             `json:"winner"`
	WinnerScore float64            `json:"winnerScore"`
	Scores      map[string]float64 `json:"scores"`
}

// EvaluationResults is the final report of a run.
type EvaluationResults struct {
	ID             string                  `json:"id"`
	UseCaseID      string                  `json:"useCaseId"`
	UseCaseName    string                  `json:"useCaseName"`
	Models         []string                `json:"models"`
	StartedAt      time.Time               `json:"startedAt"`
	CompletedAt    time.Time               `json:"completedAt"`
	Summary        Summary                 `json:"summary"`
	ByModel        map[string]ModelResults `json:"byModel"`
	ByTest         []TestResult            `json:"byTest"`
	Recommendation string                  `json:"recommendation"`
}
