package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/llm-compare/internal/evaluation"
	"github.com/giantswarm/llm-compare/internal/results"
	"github.com/giantswarm/llm-compare/internal/runner"
	"github.com/giantswarm/llm-compare/internal/server"
)

func registerEvaluationTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	// start_evaluation
	startTool := mcp.NewTool("start_evaluation",
		mcp.WithDescription("Validate and register a comparison of 1-3 models on a use case. Returns the evaluation id to pass to run_evaluation."),
		mcp.WithString("use_case_id",
			mcp.Required(),
			mcp.Description("Use case to run (see list_use_cases)"),
		),
		mcp.WithArray("models",
			mcp.Required(),
			mcp.Description("Model ids to compare (see list_models)"),
			mcp.WithStringItems(),
			mcp.MinItems(1),
			mcp.MaxItems(evaluation.MaxModels),
		),
	)
	s.AddTool(startTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleStartEvaluation(ctx, request, sc)
	})

	// run_evaluation
	runTool := mcp.NewTool("run_evaluation",
		mcp.WithDescription("Run an evaluation to completion and return the aggregated comparison. Either pass an evaluation_id from start_evaluation, or use_case_id and models to submit and run in one call."),
		mcp.WithString("evaluation_id",
			mcp.Description("Evaluation id returned by start_evaluation"),
		),
		mcp.WithString("use_case_id",
			mcp.Description("Use case to run when no evaluation_id is given"),
		),
		mcp.WithArray("models",
			mcp.Description("Model ids to compare when no evaluation_id is given"),
			mcp.WithStringItems(),
		),
	)
	s.AddTool(runTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleRunEvaluation(ctx, request, sc)
	})

	return nil
}

func handleStartEvaluation(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	req := evaluation.SubmitRequest{
		UseCaseID: request.GetString("use_case_id", ""),
		Models:    request.GetStringSlice("models", nil),
	}

	cfg, err := sc.Evaluations.Submit(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]string{"evaluation_id": cfg.ID}, "evaluation id")
}

func handleRunEvaluation(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	fallback := evaluation.SubmitRequest{
		UseCaseID: request.GetString("use_case_id", ""),
		Models:    request.GetStringSlice("models", nil),
	}

	id := request.GetString("evaluation_id", "")
	if id == "" {
		if fallback.IsZero() {
			return mcp.NewToolResultError("evaluation_id or use_case_id and models are required"), nil
		}
		cfg, err := sc.Evaluations.Submit(ctx, fallback)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		id = cfg.ID
	}

	seq, err := sc.Evaluations.Execute(ctx, id, fallback)
	if err != nil {
		if errors.Is(err, evaluation.ErrRunNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("evaluation %q not found", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}

	progress := newProgressReporter(ctx, request)
	var report *results.EvaluationResults
	for ev, err := range seq {
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("evaluation failed: %v", err)), nil
		}
		switch data := ev.Data.(type) {
		case runner.Progress:
			progress.report(data)
		case results.EvaluationResults:
			report = &data
		}
	}
	if report == nil {
		return mcp.NewToolResultError("evaluation ended without results"), nil
	}

	slog.Info("evaluation finished via MCP", "run_id", id, "winner", report.Summary.Winner)
	return jsonResult(report, "evaluation results")
}

// progressReporter forwards run progress as MCP progress notifications when
// the caller asked for them.
type progressReporter struct {
	ctx   context.Context
	srv   *mcpserver.MCPServer
	token mcp.ProgressToken
	count int
}

func newProgressReporter(ctx context.Context, request mcp.CallToolRequest) *progressReporter {
	p := &progressReporter{ctx: ctx, srv: mcpserver.ServerFromContext(ctx)}
	if request.Params.Meta != nil {
		p.token = request.Params.Meta.ProgressToken
	}
	return p
}

func (p *progressReporter) report(pr runner.Progress) {
	p.count++
	if p.srv == nil || p.token == nil {
		return
	}
	err := p.srv.SendNotificationToClient(p.ctx, "notifications/progress", map[string]any{
		"progressToken": p.token,
		"progress":      p.count,
		"message":       fmt.Sprintf("test %d/%d: %s (%s)", pr.CurrentTest, pr.TotalTests, pr.CurrentModel, pr.Status),
	})
	if err != nil {
		slog.Debug("failed to send progress notification", "error", err)
	}
}
