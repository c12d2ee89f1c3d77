package scorer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/llm-compare/internal/catalog"
	"github.com/giantswarm/llm-compare/internal/llm"
	"github.com/giantswarm/llm-compare/internal/results"
	"github.com/giantswarm/llm-compare/internal/testutil"
)

func singleDimensionCase() catalog.TestCase {
	return catalog.TestCase{
		ID:               "t-1",
		Category:         "format",
		Name:             "JSON output",
		Prompt:           "Return {\"ok\": true}",
		ExpectedBehavior: "Exactly the JSON object",
		Dimensions:       []string{"instruction_following"},
	}
}

func twoDimensionCase() catalog.TestCase {
	tc := singleDimensionCase()
	tc.Dimensions = []string{"instruction_following", "output_structure"}
	return tc
}

func TestScoreParsesJudgeOutput(t *testing.T) {
	judge := &testutil.MockLLMClient{
		DefaultResponse: `{"scores":[{"dimension":"instruction_following","score":4,"reasoning":"ok"}]}`,
	}
	s := NewScorer(judge, testutil.NewCatalog(t), Config{})

	score := s.Score(context.Background(), singleDimensionCase(), results.ModelResponse{ModelID: "model-a", Response: "{\"ok\": true}"})

	assert.Equal(t, "model-a", score.ModelID)
	assert.Equal(t, 4.0, score.OverallScore)
	require.Len(t, score.DimensionScores, 1)
	assert.Equal(t, results.DimensionScore{Dimension: "instruction_following", Score: 4, Reasoning: "ok"}, score.DimensionScores[0])

	req := judge.LastRequest()
	assert.Equal(t, DefaultJudgeModel, req.Model)
	assert.Equal(t, judgeMaxTokens, req.MaxTokens)
	assert.Nil(t, req.Temperature)
	assert.Empty(t, req.SystemMessage)
}

func TestScoreSendsJudgeTemperature(t *testing.T) {
	judge := &testutil.MockLLMClient{
		DefaultResponse: `{"scores":[{"dimension":"instruction_following","score":5,"reasoning":"ok"}]}`,
	}
	s := NewScorer(judge, testutil.NewCatalog(t), Config{Model: testutil.ModelA, Temperature: llm.Float64Ptr(0)})

	s.Score(context.Background(), singleDimensionCase(), results.ModelResponse{ModelID: "model-b", Response: "hi"})

	req := judge.LastRequest()
	assert.Equal(t, testutil.ModelA, req.Model)
	require.NotNil(t, req.Temperature)
	assert.Equal(t, 0.0, *req.Temperature)
}

func TestScoreJudgeCallFails(t *testing.T) {
	judge := &testutil.MockLLMClient{Err: errors.New("network error")}
	s := NewScorer(judge, testutil.NewCatalog(t), Config{})

	score := s.Score(context.Background(), twoDimensionCase(), results.ModelResponse{ModelID: "model-a", Response: "hi"})

	assert.Equal(t, 1.0, score.OverallScore)
	require.Len(t, score.DimensionScores, 2)
	for i, dim := range twoDimensionCase().Dimensions {
		assert.Equal(t, dim, score.DimensionScores[i].Dimension)
		assert.Equal(t, 1.0, score.DimensionScores[i].Score)
		assert.Equal(t, "Evaluation failed: network error", score.DimensionScores[i].Reasoning)
	}
}

func TestScoreJudgeOutputHandling(t *testing.T) {
	tests := []struct {
		name      string
		output    string
		expected  []results.DimensionScore
		overall   float64
		failedLow bool
	}{
		{
			name:   "scores are clamped into range",
			output: `{"scores":[{"dimension":"instruction_following","score":7,"reasoning":"great"},{"dimension":"output_structure","score":-2,"reasoning":"bad"}]}`,
			expected: []results.DimensionScore{
				{Dimension: "instruction_following", Score: 5, Reasoning: "great"},
				{Dimension: "output_structure", Score: 1, Reasoning: "bad"},
			},
			overall: 3.0,
		},
		{
			name: "json wrapped in prose and fences",
			output: "Here is my evaluation {not json}:\n```json\n" +
				`{"scores":[{"dimension":"instruction_following","score":5,"reasoning":"a"},{"dimension":"output_structure","score":4,"reasoning":"b"}]}` +
				"\n```\nLet me know {if} you need more.",
			expected: []results.DimensionScore{
				{Dimension: "instruction_following", Score: 5, Reasoning: "a"},
				{Dimension: "output_structure", Score: 4, Reasoning: "b"},
			},
			overall: 4.5,
		},
		{
			name:   "unrequested dimensions are dropped",
			output: `{"scores":[{"dimension":"instruction_following","score":3,"reasoning":"a"},{"dimension":"tone","score":5,"reasoning":"b"}]}`,
			expected: []results.DimensionScore{
				{Dimension: "instruction_following", Score: 3, Reasoning: "a"},
			},
			overall: 3.0,
		},
		{
			name:   "numeric strings are accepted",
			output: `{"scores":[{"dimension":"output_structure","score":"2","reasoning":"meh"}]}`,
			expected: []results.DimensionScore{
				{Dimension: "output_structure", Score: 2, Reasoning: "meh"},
			},
			overall: 2.0,
		},
		{
			name:   "fractional scores are kept",
			output: `{"scores":[{"dimension":"instruction_following","score":4.5,"reasoning":"a"},{"dimension":"output_structure","score":0.5,"reasoning":"b"}]}`,
			expected: []results.DimensionScore{
				{Dimension: "instruction_following", Score: 4.5, Reasoning: "a"},
				{Dimension: "output_structure", Score: 1, Reasoning: "b"},
			},
			overall: 2.75,
		},
		{name: "no json", output: "The model did well.", failedLow: true},
		{name: "malformed json", output: `{"scores": [{"dimension": "instruction_following", "score": 4`, failedLow: true},
		{name: "missing scores key", output: `{"result": "good"}`, failedLow: true},
		{name: "empty scores", output: `{"scores": []}`, failedLow: true},
		{name: "only unknown dimensions", output: `{"scores":[{"dimension":"tone","score":5}]}`, failedLow: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			judge := &testutil.MockLLMClient{DefaultResponse: tt.output}
			s := NewScorer(judge, testutil.NewCatalog(t), Config{})

			score := s.Score(context.Background(), twoDimensionCase(), results.ModelResponse{ModelID: "m", Response: "x"})

			for _, ds := range score.DimensionScores {
				assert.GreaterOrEqual(t, ds.Score, 1.0)
				assert.LessOrEqual(t, ds.Score, 5.0)
			}

			if tt.failedLow {
				assert.Equal(t, 1.0, score.OverallScore)
				require.Len(t, score.DimensionScores, 2)
				for _, ds := range score.DimensionScores {
					assert.Equal(t, 1.0, ds.Score)
					assert.True(t, strings.HasPrefix(ds.Reasoning, "Evaluation failed: "), ds.Reasoning)
				}
				return
			}
			assert.Equal(t, tt.expected, score.DimensionScores)
			assert.InDelta(t, tt.overall, score.OverallScore, 1e-9)
		})
	}
}

func TestScoreUsesConfiguredModel(t *testing.T) {
	judge := &testutil.MockLLMClient{DefaultResponse: `{"scores":[{"dimension":"instruction_following","score":3}]}`}
	s := NewScorer(judge, testutil.NewCatalog(t), Config{Model: "claude-3-5-haiku-20241022"})

	s.Score(context.Background(), singleDimensionCase(), results.ModelResponse{ModelID: "m", Response: "x"})
	assert.Equal(t, "claude-3-5-haiku-20241022", judge.LastRequest().Model)
	assert.Equal(t, "claude-3-5-haiku-20241022", s.Model())
}

func TestBuildPrompt(t *testing.T) {
	cat := testutil.NewCatalog(t)
	tc := twoDimensionCase()
	tc.SystemPrompt = "You are terse."

	prompt, err := buildPrompt(cat, tc, results.ModelResponse{ModelID: "m", Response: "{\"ok\": true}"})
	require.NoError(t, err)

	assert.Contains(t, prompt, "Name: JSON output")
	assert.Contains(t, prompt, "Category: format")
	assert.Contains(t, prompt, "System: You are terse.\n\nUser: Return {\"ok\": true}")
	assert.Contains(t, prompt, "## Expected Behavior\nExactly the JSON object")
	assert.Contains(t, prompt, "- instruction_following: Follows the instructions.\n- output_structure: Produces the requested format.\n")
	assert.Contains(t, prompt, "- 1: Fail - Does not meet expectations at all")
	assert.NotContains(t, prompt, noResponsePlaceholder)
	assert.NotContains(t, prompt, "Error:")
}

func TestBuildPromptForFailedResponse(t *testing.T) {
	prompt, err := buildPrompt(testutil.NewCatalog(t), singleDimensionCase(), results.ModelResponse{ModelID: "m", Error: "context deadline exceeded"})
	require.NoError(t, err)

	assert.Contains(t, prompt, noResponsePlaceholder+"\n\nError: context deadline exceeded")
	assert.NotContains(t, prompt, "System:")
}

func TestScoreAllPreservesOrder(t *testing.T) {
	judge := &testutil.MockLLMClient{Handler: func(req llm.ChatRequest) (string, error) {
		switch {
		case strings.Contains(req.UserMessage, "answer from a"):
			return `{"scores":[{"dimension":"instruction_following","score":5,"reasoning":"a"}]}`, nil
		case strings.Contains(req.UserMessage, "answer from b"):
			return "", errors.New("judge overloaded")
		default:
			return `{"scores":[{"dimension":"instruction_following","score":2,"reasoning":"c"}]}`, nil
		}
	}}
	s := NewScorer(judge, testutil.NewCatalog(t), Config{})

	responses := []results.ModelResponse{
		{ModelID: "a", Response: "answer from a"},
		{ModelID: "b", Response: "answer from b"},
		{ModelID: "c", Response: "answer from c"},
	}
	scores := s.ScoreAll(context.Background(), singleDimensionCase(), responses)

	require.Len(t, scores, 3)
	assert.Equal(t, 3, judge.Calls())
	assert.Equal(t, "a", scores[0].ModelID)
	assert.Equal(t, 5.0, scores[0].OverallScore)
	assert.Equal(t, "b", scores[1].ModelID)
	assert.Equal(t, 1.0, scores[1].OverallScore)
	assert.Equal(t, "c", scores[2].ModelID)
	assert.Equal(t, 2.0, scores[2].OverallScore)
}

func TestScoreAllReraisesPanicOnCaller(t *testing.T) {
	judge := &testutil.MockLLMClient{Handler: func(req llm.ChatRequest) (string, error) {
		if strings.Contains(req.UserMessage, "answer from b") {
			panic("judge exploded")
		}
		return `{"scores":[{"dimension":"instruction_following","score":4}]}`, nil
	}}
	s := NewScorer(judge, testutil.NewCatalog(t), Config{})

	responses := []results.ModelResponse{
		{ModelID: "a", Response: "answer from a"},
		{ModelID: "b", Response: "answer from b"},
	}
	assert.PanicsWithValue(t, "judge exploded", func() {
		s.ScoreAll(context.Background(), singleDimensionCase(), responses)
	})
	assert.Equal(t, 2, judge.Calls())
}

func TestCompare(t *testing.T) {
	tc := twoDimensionCase()
	score := func(id string, instr, structure float64) results.TestScore {
		return results.NewTestScore(id, []results.DimensionScore{
			{Dimension: "instruction_following", Score: instr},
			{Dimension: "output_structure", Score: structure},
		})
	}

	tests := []struct {
		name     string
		scores   []results.TestScore
		expected string
	}{
		{
			name:     "single score",
			scores:   []results.TestScore{score("a", 5, 5)},
			expected: "",
		},
		{
			name:     "gap below threshold",
			scores:   []results.TestScore{score("a", 4, 4), score("b", 4, 3.6)},
			expected: "Close match. Both models performed similarly on this test.",
		},
		{
			name:     "gap exactly at threshold is not close",
			scores:   []results.TestScore{score("a", 4.3, 4.3), score("b", 4, 4)},
			expected: "a performed better, particularly in Instruction Following, Output Structure.",
		},
		{
			name:     "leader is not first",
			scores:   []results.TestScore{score("a", 2, 3), score("b", 5, 3), score("c", 1, 1)},
			expected: "b performed better, particularly in Instruction Following.",
		},
		{
			name: "no dimension differs",
			scores: []results.TestScore{
				results.NewTestScore("a", []results.DimensionScore{{Dimension: "instruction_following", Score: 5}}),
				results.NewTestScore("b", []results.DimensionScore{{Dimension: "output_structure", Score: 3}}),
			},
			expected: "a achieved a higher overall score.",
		},
	}

	s := NewScorer(&testutil.MockLLMClient{}, testutil.NewCatalog(t), Config{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, s.Compare(tc, tt.scores))
		})
	}
}

func TestComparisonThresholdIsDistinct(t *testing.T) {
	assert.Equal(t, 0.3, ComparisonThreshold)
}

func TestExtractJSONObject(t *testing.T) {
	c, err := extractJSONObject(`noise {"a": {"b": 1}} trailing {"c": 2}`)
	require.NoError(t, err)
	assert.Equal(t, 1.0, c.S("a", "b").Data())
	assert.False(t, c.Exists("c"))

	_, err = extractJSONObject("nothing here")
	assert.ErrorIs(t, err, errNoJSON)
}
