// Package runner drives an evaluation: it queries every model on every test
// case, scores the answers and aggregates the report, yielding events as it goes.
package runner

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"runtime/debug"
	"time"

	"k8s.io/utils/clock"

	"github.com/giantswarm/llm-compare/internal/aggregator"
	"github.com/giantswarm/llm-compare/internal/catalog"
	"github.com/giantswarm/llm-compare/internal/metrics"
	"github.com/giantswarm/llm-compare/internal/results"
)

// Querier asks a single model for a completion. Failures are reported inside
// the returned response.
type Querier interface {
	Query(ctx context.Context, modelID, prompt, system string) results.ModelResponse
}

// Judge scores the responses of a test case and compares the scores.
type Judge interface {
	ScoreAll(ctx context.Context, tc catalog.TestCase, responses []results.ModelResponse) []results.TestScore
	Compare(tc catalog.TestCase, scores []results.TestScore) string
}

// Request describes one run.
type Request struct {
	RunID   string
	UseCase catalog.UseCase
	Models  []string
}

// PanicError is yielded when a pipeline step panics.
type PanicError struct {
	Step  string
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s panicked: %v", e.Step, e.Value)
}

// Runner orchestrates evaluation runs. A Runner holds no per-run state and
// may drive any number of runs concurrently.
type Runner struct {
	querier Querier
	judge   Judge
	catalog *catalog.Catalog
	metrics *metrics.Metrics
	logger  *slog.Logger
	clock   clock.PassiveClock
}

// Option configures a Runner.
type Option func(*Runner)

// WithMetrics records run outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithLogger sets the run logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithClock sets the clock used for run timestamps.
func WithClock(c clock.PassiveClock) Option {
	return func(r *Runner) {
		r.clock = c
	}
}

// New creates a Runner.
func New(querier Querier, judge Judge, cat *catalog.Catalog, opts ...Option) *Runner {
	r := &Runner{
		querier: querier,
		judge:   judge,
		catalog: cat,
		logger:  slog.Default(),
		clock:   clock.RealClock{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run returns the event sequence of one run. Nothing happens until the
// sequence is ranged over. Test cases are processed in use case order and
// models one at a time in request order, so each progress event names the
// model in flight. The last event of a successful run is EventComplete.
//
// Stopping the range loop early stops the run before the next model query.
// Context cancellation (checked before every query, and before and after
// scoring) and panics in a pipeline step end the sequence with a
// non-nil error and no complete event.
func (r *Runner) Run(ctx context.Context, req Request) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		logger := r.logger.With("run_id", req.RunID, "use_case", req.UseCase.ID)
		logger.Info("evaluation started", "models", req.Models, "tests", len(req.UseCase.TestCases))

		r.metrics.RunStarted()
		outcome := metrics.OutcomeCancelled
		defer func() {
			r.metrics.RunFinished(outcome)
		}()

		fail := func(err error) {
			outcome = metrics.OutcomeError
			logger.Error("evaluation failed", "error", err)
			yield(Event{}, err)
		}

		startedAt := r.clock.Now()
		total := len(req.UseCase.TestCases)
		testResults := make([]results.TestResult, 0, total)

		for i, tc := range req.UseCase.TestCases {
			responses := make([]results.ModelResponse, 0, len(req.Models))

			for _, modelID := range req.Models {
				if err := ctx.Err(); err != nil {
					fail(fmt.Errorf("evaluation interrupted: %w", err))
					return
				}
				if !yield(progressEvent(i+1, total, r.catalog.ModelDisplayName(modelID), StatusQuerying), nil) {
					logger.Info("consumer stopped the evaluation", "test_id", tc.ID)
					return
				}

				resp, err := safely("query "+modelID, logger, func() results.ModelResponse {
					return r.querier.Query(ctx, modelID, tc.Prompt, tc.SystemPrompt)
				})
				if err != nil {
					fail(err)
					return
				}
				responses = append(responses, resp)

				if !yield(Event{Type: EventResponse, Data: ResponseData{TestID: tc.ID, ModelID: modelID, Response: resp}}, nil) {
					logger.Info("consumer stopped the evaluation", "test_id", tc.ID)
					return
				}
			}

			if err := ctx.Err(); err != nil {
				fail(fmt.Errorf("evaluation interrupted: %w", err))
				return
			}
			if !yield(progressEvent(i+1, total, EvaluatorLabel, StatusScoring), nil) {
				logger.Info("consumer stopped the evaluation", "test_id", tc.ID)
				return
			}

			scores, err := safely("score "+tc.ID, logger, func() []results.TestScore {
				return r.judge.ScoreAll(ctx, tc, responses)
			})
			if err != nil {
				fail(err)
				return
			}
			// Judge calls cut short by cancellation score fail-low.
			if err := ctx.Err(); err != nil {
				fail(fmt.Errorf("evaluation interrupted: %w", err))
				return
			}
			if !yield(Event{Type: EventScores, Data: ScoresData{TestID: tc.ID, Scores: scores}}, nil) {
				logger.Info("consumer stopped the evaluation", "test_id", tc.ID)
				return
			}

			comparison, err := safely("compare "+tc.ID, logger, func() string {
				return r.judge.Compare(tc, scores)
			})
			if err != nil {
				fail(err)
				return
			}

			testResults = append(testResults, results.TestResult{
				TestCase:   tc,
				Responses:  responses,
				Scores:     scores,
				Comparison: comparison,
			})
		}

		report, err := safely("aggregate", logger, func() results.EvaluationResults {
			return aggregator.Aggregate(aggregator.Input{
				RunID:       req.RunID,
				UseCase:     req.UseCase,
				Models:      req.Models,
				DisplayName: r.catalog.ModelDisplayName,
				Dimensions:  r.catalog.DimensionNames(),
				TestResults: testResults,
				StartedAt:   startedAt,
				CompletedAt: r.clock.Now(),
			})
		})
		if err != nil {
			fail(err)
			return
		}

		outcome = metrics.OutcomeComplete
		logger.Info("evaluation complete",
			"winner", report.Summary.Winner,
			"winner_score", report.Summary.WinnerScore,
			"duration", report.CompletedAt.Sub(startedAt).Round(time.Millisecond),
		)
		yield(Event{Type: EventComplete, Data: report}, nil)
	}
}

// safely runs one pipeline step and converts a panic into a *PanicError.
func safely[T any](step string, logger *slog.Logger, fn func() T) (out T, err error) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("pipeline step panicked", "step", step, "panic", p, "stack", string(debug.Stack()))
			err = &PanicError{Step: step, Value: p}
		}
	}()
	return fn(), nil
}
