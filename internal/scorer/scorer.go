// Package scorer grades model responses with a judge model and writes the
// per-test comparison sentence.
package scorer

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/Jeffail/gabs/v2"
	"golang.org/x/sync/errgroup"

	"github.com/giantswarm/llm-compare/internal/catalog"
	"github.com/giantswarm/llm-compare/internal/llm"
	"github.com/giantswarm/llm-compare/internal/metrics"
	"github.com/giantswarm/llm-compare/internal/results"
)

// DefaultJudgeModel is the model used for LLM-as-judge scoring.
const DefaultJudgeModel = "claude-sonnet-4-20250514"

// ComparisonThreshold is the overall score gap below which two models are
// reported as a close match on a single test.
const ComparisonThreshold = 0.3

const (
	judgeMaxTokens = 1024
	minScore       = 1.0
	maxScore       = 5.0
	// epsilon absorbs float error when a gap sits exactly on a threshold.
	epsilon = 1e-9
)

var (
	errNoJSON   = errors.New("no JSON object found in evaluation response")
	errNoScores = errors.New("evaluation response contained no usable scores")
)

// Config holds scoring configuration.
type Config struct {
	// Model is the judge model id. Defaults to DefaultJudgeModel.
	Model string
	// Temperature for judge calls. Nil leaves the provider default.
	Temperature *float64
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

// Scorer evaluates model responses using an LLM as judge.
type Scorer struct {
	client  llm.Client
	catalog *catalog.Catalog
	config  Config
}

// NewScorer creates a new Scorer. The client must be able to serve the judge model.
func NewScorer(client llm.Client, cat *catalog.Catalog, config Config) *Scorer {
	if config.Model == "" {
		config.Model = DefaultJudgeModel
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Scorer{client: client, catalog: cat, config: config}
}

// Model returns the judge model id.
func (s *Scorer) Model() string {
	return s.config.Model
}

// Score grades one response. It never fails: when the judge call fails or its
// output cannot be parsed, every requested dimension scores 1.
func (s *Scorer) Score(ctx context.Context, tc catalog.TestCase, resp results.ModelResponse) results.TestScore {
	logger := s.config.Logger.With("test_id", tc.ID, "model", resp.ModelID)

	prompt, err := buildPrompt(s.catalog, tc, resp)
	if err != nil {
		return s.failLow(logger, tc, resp.ModelID, err)
	}

	out, err := s.client.ChatCompletion(ctx, llm.ChatRequest{
		Model:       s.config.Model,
		UserMessage: prompt,
		Temperature: s.config.Temperature,
		MaxTokens:   judgeMaxTokens,
	})
	if err != nil {
		return s.failLow(logger, tc, resp.ModelID, err)
	}

	scores, err := s.parseScores(logger, out.Content, tc.Dimensions)
	if err != nil {
		return s.failLow(logger, tc, resp.ModelID, err)
	}

	s.config.Metrics.ObserveJudgeScore(metrics.OutcomeOK)
	score := results.NewTestScore(resp.ModelID, scores)
	logger.Debug("response scored", "overall", score.OverallScore)
	return score
}

// ScoreAll grades every response of a test case concurrently and returns the
// scores in the order of responses. A panic while scoring is re-raised on the
// calling goroutine once every score has finished.
func (s *Scorer) ScoreAll(ctx context.Context, tc catalog.TestCase, responses []results.ModelResponse) []results.TestScore {
	scores := make([]results.TestScore, len(responses))
	panics := make([]any, len(responses))

	var g errgroup.Group
	for i, resp := range responses {
		g.Go(func() error {
			defer func() {
				panics[i] = recover()
			}()
			scores[i] = s.Score(ctx, tc, resp)
			return nil
		})
	}
	_ = g.Wait()

	// Re-raise on the caller's goroutine so the caller's recover sees it.
	for _, p := range panics {
		if p != nil {
			panic(p)
		}
	}
	return scores
}

// Compare writes a one-sentence comparison of the top two scores of a test
// case. Fewer than two scores yield an empty string.
func (s *Scorer) Compare(tc catalog.TestCase, scores []results.TestScore) string {
	if len(scores) < 2 {
		return ""
	}

	ranked := slices.Clone(scores)
	slices.SortStableFunc(ranked, func(a, b results.TestScore) int {
		return cmp.Compare(b.OverallScore, a.OverallScore)
	})
	leader, runnerUp := ranked[0], ranked[1]

	if leader.OverallScore-runnerUp.OverallScore < ComparisonThreshold-epsilon {
		return "Close match. Both models performed similarly on this test."
	}

	var advantages []string
	for _, dim := range tc.Dimensions {
		l, lok := dimensionScore(leader, dim)
		r, rok := dimensionScore(runnerUp, dim)
		if lok && rok && l > r {
			advantages = append(advantages, s.displayName(dim))
		}
	}
	if len(advantages) > 0 {
		return fmt.Sprintf("%s performed better, particularly in %s.", leader.ModelID, strings.Join(advantages, ", "))
	}
	return fmt.Sprintf("%s achieved a higher overall score.", leader.ModelID)
}

func (s *Scorer) displayName(dim string) string {
	if d, ok := s.catalog.Dimension(dim); ok && d.DisplayName != "" {
		return d.DisplayName
	}
	return dim
}

func dimensionScore(ts results.TestScore, dim string) (float64, bool) {
	for _, ds := range ts.DimensionScores {
		if ds.Dimension == dim {
			return ds.Score, true
		}
	}
	return 0, false
}

func (s *Scorer) failLow(logger *slog.Logger, tc catalog.TestCase, modelID string, cause error) results.TestScore {
	logger.Warn("scoring failed, assigning minimum scores", "error", cause)
	s.config.Metrics.ObserveJudgeScore(metrics.OutcomeFailed)

	reasoning := "Evaluation failed: " + cause.Error()
	scores := make([]results.DimensionScore, 0, len(tc.Dimensions))
	for _, dim := range tc.Dimensions {
		scores = append(scores, results.DimensionScore{
			Dimension: dim,
			Score:     minScore,
			Reasoning: reasoning,
		})
	}
	return results.TestScore{
		ModelID:         modelID,
		DimensionScores: scores,
		OverallScore:    minScore,
	}
}

// parseScores extracts the scores array from the judge output. Dimensions that
// were not requested are dropped and every score is clamped into [1,5].
func (s *Scorer) parseScores(logger *slog.Logger, text string, requested []string) ([]results.DimensionScore, error) {
	container, err := extractJSONObject(text)
	if err != nil {
		return nil, err
	}

	entries, ok := container.S("scores").Data().([]any)
	if !ok {
		return nil, fmt.Errorf("evaluation response has no scores array")
	}

	seen := make(map[string]bool, len(entries))
	var scores []results.DimensionScore
	for _, entry := range container.S("scores").Children() {
		dim, _ := entry.S("dimension").Data().(string)
		if !slices.Contains(requested, dim) {
			logger.Warn("judge scored a dimension that was not requested", "dimension", dim)
			continue
		}
		if seen[dim] {
			continue
		}
		value, ok := numericScore(entry.S("score").Data())
		if !ok {
			logger.Warn("judge returned a non-numeric score", "dimension", dim)
			continue
		}
		reasoning, _ := entry.S("reasoning").Data().(string)

		seen[dim] = true
		scores = append(scores, results.DimensionScore{
			Dimension: dim,
			Score:     clamp(value),
			Reasoning: reasoning,
		})
	}

	if len(scores) == 0 {
		return nil, errNoScores
	}
	return scores, nil
}

// extractJSONObject returns the first complete JSON object in text. The judge
// may wrap its JSON in prose or code fences.
func extractJSONObject(text string) (*gabs.Container, error) {
	for i := strings.IndexByte(text, '{'); i >= 0; {
		container, err := gabs.ParseJSONDecoder(json.NewDecoder(strings.NewReader(text[i:])))
		if err == nil {
			return container, nil
		}
		next := strings.IndexByte(text[i+1:], '{')
		if next < 0 {
			break
		}
		i += next + 1
	}
	return nil, errNoJSON
}

func numericScore(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func clamp(v float64) float64 {
	return math.Min(maxScore, math.Max(minScore, v))
}
