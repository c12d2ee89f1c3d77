package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/llm-compare/internal/catalog"
	"github.com/giantswarm/llm-compare/internal/evaluation"
	"github.com/giantswarm/llm-compare/internal/llm"
	"github.com/giantswarm/llm-compare/internal/registry"
	"github.com/giantswarm/llm-compare/internal/results"
	"github.com/giantswarm/llm-compare/internal/runner"
	"github.com/giantswarm/llm-compare/internal/scorer"
	"github.com/giantswarm/llm-compare/internal/server"
	"github.com/giantswarm/llm-compare/internal/testutil"
)

const judgeJSON = `{"scores":[` +
	`{"dimension":"instruction_following","score":5},` +
	`{"dimension":"output_structure","score":4},` +
	`{"dimension":"reasoning_quality","score":3}]}`

func newServerContext(t *testing.T, provider *testutil.MockLLMClient) *server.ServerContext {
	t.Helper()
	cat := testutil.NewCatalog(t)
	client := func() (llm.Client, error) { return provider, nil }
	router := llm.NewRouter(cat, map[catalog.Provider]llm.Constructor{
		catalog.ProviderOpenAI:    client,
		catalog.ProviderAnthropic: client,
	})
	judge := scorer.NewScorer(&testutil.MockLLMClient{DefaultResponse: judgeJSON}, cat, scorer.Config{})
	svc := evaluation.NewService(cat, registry.New(), runner.New(router, judge, cat),
		evaluation.WithIDGenerator(func() string { return "run-1" }))
	return &server.ServerContext{Catalog: cat, Evaluations: svc}
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	request := mcp.CallToolRequest{}
	request.Params.Arguments = args
	return request
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	return result.Content[0].(mcp.TextContent).Text
}

func TestHandleListUseCases(t *testing.T) {
	sc := newServerContext(t, &testutil.MockLLMClient{})

	result, err := handleListUseCases(context.Background(), mcp.CallToolRequest{}, sc)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var useCases []map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &useCases))
	require.Len(t, useCases, 1)
	assert.Equal(t, "sample", useCases[0]["id"])
	assert.Equal(t, "Sample", useCases[0]["name"])
	assert.EqualValues(t, 2, useCases[0]["test_count"])
}

func TestHandleListModelsAndDimensions(t *testing.T) {
	sc := newServerContext(t, &testutil.MockLLMClient{})

	result, err := handleListModels(context.Background(), mcp.CallToolRequest{}, sc)
	require.NoError(t, err)
	var models []catalog.ModelDescriptor
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &models))
	assert.Len(t, models, 4)
	assert.Equal(t, testutil.ModelA, models[0].ModelID)

	result, err = handleListDimensions(context.Background(), mcp.CallToolRequest{}, sc)
	require.NoError(t, err)
	var dims []catalog.Dimension
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &dims))
	assert.Len(t, dims, 3)
}

func TestHandleStartEvaluation(t *testing.T) {
	tests := []struct {
		name      string
		args      map[string]any
		wantError bool
		wantText  string
	}{
		{
			name:     "valid",
			args:     map[string]any{"use_case_id": "sample", "models": []any{testutil.ModelA, testutil.ModelB}},
			wantText: `{"evaluation_id":"run-1"}`,
		},
		{
			name:      "unknown use case",
			args:      map[string]any{"use_case_id": "nope", "models": []any{testutil.ModelA}},
			wantError: true,
			wantText:  "Invalid use case: nope",
		},
		{
			name:      "missing models",
			args:      map[string]any{"use_case_id": "sample"},
			wantError: true,
			wantText:  "Select 1-3 models to compare",
		},
		{
			name:      "unknown model",
			args:      map[string]any{"use_case_id": "sample", "models": []any{"gpt-2"}},
			wantError: true,
			wantText:  "Invalid model: gpt-2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := newServerContext(t, &testutil.MockLLMClient{})

			result, err := handleStartEvaluation(context.Background(), callRequest(tt.args), sc)
			require.NoError(t, err)

			assert.Equal(t, tt.wantError, result.IsError)
			if tt.wantError {
				assert.Equal(t, tt.wantText, resultText(t, result))
			} else {
				assert.JSONEq(t, tt.wantText, resultText(t, result))
			}
		})
	}
}

func TestHandleRunEvaluationByID(t *testing.T) {
	provider := &testutil.MockLLMClient{DefaultResponse: "answer"}
	sc := newServerContext(t, provider)

	_, err := handleStartEvaluation(context.Background(), callRequest(map[string]any{
		"use_case_id": "sample",
		"models":      []any{testutil.ModelA, testutil.ModelB},
	}), sc)
	require.NoError(t, err)

	result, err := handleRunEvaluation(context.Background(), callRequest(map[string]any{"evaluation_id": "run-1"}), sc)
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var report results.EvaluationResults
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &report))
	assert.Equal(t, "run-1", report.ID)
	assert.Equal(t, "sample", report.UseCaseID)
	assert.Equal(t, testutil.ModelA, report.Summary.Winner)
	assert.InDelta(t, 3.75, report.Summary.WinnerScore, 1e-9)
	assert.Len(t, report.ByTest, 2)
	assert.Equal(t, 4, provider.Calls())
}

func TestHandleRunEvaluationSubmitsWhenNoID(t *testing.T) {
	provider := &testutil.MockLLMClient{DefaultResponse: "answer"}
	sc := newServerContext(t, provider)

	result, err := handleRunEvaluation(context.Background(), callRequest(map[string]any{
		"use_case_id": "sample",
		"models":      []any{testutil.ModelC},
	}), sc)
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var report results.EvaluationResults
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &report))
	assert.Equal(t, "run-1", report.ID)
	assert.Equal(t, []string{testutil.ModelC}, report.Models)
}

func TestHandleRunEvaluationErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     map[string]any
		wantText string
	}{
		{
			name:     "no parameters",
			args:     map[string]any{},
			wantText: "evaluation_id or use_case_id and models are required",
		},
		{
			name:     "unknown evaluation",
			args:     map[string]any{"evaluation_id": "missing"},
			wantText: `evaluation "missing" not found`,
		},
		{
			name:     "invalid submission",
			args:     map[string]any{"use_case_id": "sample", "models": []any{"a", "b", "c", "d"}},
			wantText: "Select 1-3 models to compare",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &testutil.MockLLMClient{}
			sc := newServerContext(t, provider)

			result, err := handleRunEvaluation(context.Background(), callRequest(tt.args), sc)
			require.NoError(t, err)

			assert.True(t, result.IsError)
			assert.Equal(t, tt.wantText, resultText(t, result))
			assert.Zero(t, provider.Calls())
		})
	}
}

func TestHandleRunEvaluationCancelled(t *testing.T) {
	sc := newServerContext(t, &testutil.MockLLMClient{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := handleRunEvaluation(ctx, callRequest(map[string]any{
		"use_case_id": "sample",
		"models":      []any{testutil.ModelA},
	}), sc)
	require.NoError(t, err)

	assert.True(t, result.IsError)
	assert.Equal(t, "evaluation failed: evaluation interrupted: context canceled", resultText(t, result))
}

func TestHandleRunEvaluationProviderErrorsAreData(t *testing.T) {
	provider := &testutil.MockLLMClient{ModelErrors: map[string]error{testutil.ModelB: errors.New("rate limited")}}
	sc := newServerContext(t, provider)

	result, err := handleRunEvaluation(context.Background(), callRequest(map[string]any{
		"use_case_id": "sample",
		"models":      []any{testutil.ModelA, testutil.ModelB},
	}), sc)
	require.NoError(t, err)
	require.False(t, result.IsError)

	var report results.EvaluationResults
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &report))
	for _, tr := range report.ByTest {
		require.Len(t, tr.Responses, 2)
		assert.Equal(t, "rate limited", tr.Responses[1].Error)
	}
}
