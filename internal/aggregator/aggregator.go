// Package aggregator turns per-test scores into the final evaluation report.
package aggregator

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/giantswarm/llm-compare/internal/catalog"
	"github.com/giantswarm/llm-compare/internal/results"
)

const (
	// RecommendationThreshold is the overall score gap below which the top two
	// models are reported as performing similarly. It differs from the
	// per-test comparison threshold in the scorer.
	RecommendationThreshold = 0.2

	// StrengthThreshold is the margin by which the winner must beat the
	// runner-up on a dimension for it to be named as a strength.
	StrengthThreshold = 0.3

	maxStrengths = 2
	epsilon      = 1e-9
)

// Input is everything Aggregate needs. It carries no references to shared
// state, so the same Input always yields the same report.
type Input struct {
	RunID   string
	UseCase catalog.UseCase
	Models  []string
	// DisplayName resolves a model id to its display name. The id is used when nil.
	DisplayName func(modelID string) string
	// Dimensions lists every dimension tag reported per model, in order.
	Dimensions  []string
	TestResults []results.TestResult
	StartedAt   time.Time
	CompletedAt time.Time
}

// Aggregate computes per-model statistics, the winner and the recommendation.
func Aggregate(in Input) results.EvaluationResults {
	displayName := in.DisplayName
	if displayName == nil {
		displayName = func(id string) string { return id }
	}

	byModel := make(map[string]results.ModelResults, len(in.Models))
	ranked := make([]results.ModelResults, 0, len(in.Models))
	for _, id := range in.Models {
		mr := aggregateModel(id, displayName(id), in.Dimensions, in.TestResults)
		byModel[id] = mr
		ranked = append(ranked, mr)
	}

	// Stable sort keeps model order among equal scores, so ties go to the first model.
	slices.SortStableFunc(ranked, func(a, b results.ModelResults) int {
		return cmp.Compare(b.OverallScore, a.OverallScore)
	})

	summary := results.Summary{Scores: make(map[string]float64, len(ranked))}
	for _, mr := range ranked {
		summary.Scores[mr.ModelID] = mr.OverallScore
	}
	if len(ranked) > 0 {
		summary.Winner = ranked[0].ModelID
		summary.WinnerScore = ranked[0].OverallScore
	}

	useCaseName := in.UseCase.Name
	if useCaseName == "" {
		useCaseName = in.UseCase.ID
	}

	return results.EvaluationResults{
		ID:             in.RunID,
		UseCaseID:      in.UseCase.ID,
		UseCaseName:    useCaseName,
		Models:         slices.Clone(in.Models),
		StartedAt:      in.StartedAt,
		CompletedAt:    in.CompletedAt,
		Summary:        summary,
		ByModel:        byModel,
		ByTest:         in.TestResults,
		Recommendation: recommend(ranked, in.Dimensions),
	}
}

func aggregateModel(modelID, displayName string, dimensions []string, testResults []results.TestResult) results.ModelResults {
	var overall []float64
	perDimension := make(map[string][]float64, len(dimensions))
	var latencies []float64

	for _, tr := range testResults {
		if i := slices.IndexFunc(tr.Scores, func(s results.TestScore) bool { return s.ModelID == modelID }); i >= 0 {
			score := tr.Scores[i]
			overall = append(overall, score.OverallScore)
			for _, ds := range score.DimensionScores {
				perDimension[ds.Dimension] = append(perDimension[ds.Dimension], ds.Score)
			}
		}
		if i := slices.IndexFunc(tr.Responses, func(r results.ModelResponse) bool { return r.ModelID == modelID }); i >= 0 {
			latencies = append(latencies, float64(tr.Responses[i].LatencyMs))
		}
	}

	dimensionScores := make(map[string]float64, len(dimensions))
	for _, dim := range dimensions {
		dimensionScores[dim] = mean(perDimension[dim])
	}

	return results.ModelResults{
		ModelID:          modelID,
		DisplayName:      displayName,
		OverallScore:     mean(overall),
		DimensionScores:  dimensionScores,
		AverageLatencyMs: mean(latencies),
	}
}

// recommend writes the recommendation text from models ranked best first.
func recommend(ranked []results.ModelResults, dimensions []string) string {
	switch len(ranked) {
	case 0:
		return "No models evaluated."
	case 1:
		return fmt.Sprintf("%s scored %.1f/5 overall.", ranked[0].DisplayName, ranked[0].OverallScore)
	}

	winner, runnerUp := ranked[0], ranked[1]
	if winner.OverallScore-runnerUp.OverallScore < RecommendationThreshold-epsilon {
		return fmt.Sprintf("%s and %s performed similarly (%.1f vs %.1f). Consider other factors like cost and latency.",
			winner.DisplayName, runnerUp.DisplayName, winner.OverallScore, runnerUp.OverallScore)
	}

	var strengths []string
	for _, dim := range dimensions {
		if winner.DimensionScores[dim] > runnerUp.DimensionScores[dim]+StrengthThreshold+epsilon {
			strengths = append(strengths, strings.ReplaceAll(dim, "_", " "))
		}
	}
	if len(strengths) > 0 {
		strengths = strengths[:min(len(strengths), maxStrengths)]
		return fmt.Sprintf("%s is recommended (%.1f/5), showing particular strength in %s. %s (%.1f/5) is a viable alternative.",
			winner.DisplayName, winner.OverallScore, strings.Join(strengths, " and "), runnerUp.DisplayName, runnerUp.OverallScore)
	}

	return fmt.Sprintf("%s is recommended with a score of %.1f/5. %s scored %.1f/5.",
		winner.DisplayName, winner.OverallScore, runnerUp.DisplayName, runnerUp.OverallScore)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
