package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/giantswarm/llm-compare/internal/catalog"
	"github.com/giantswarm/llm-compare/internal/metrics"
	"github.com/giantswarm/llm-compare/internal/results"
)

// Constructor builds the client for a provider binding. It runs at most once.
type Constructor func() (Client, error)

// UnsupportedProviderError is returned when a catalog model names a provider
// the router has no binding for.
type UnsupportedProviderError struct {
	Provider catalog.Provider
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("unsupported provider: %s", e.Provider)
}

// UnknownModelError is returned when a model id is not in the catalog.
type UnknownModelError struct {
	ModelID string
}

func (e *UnknownModelError) Error() string {
	return "Unknown model: " + e.ModelID
}

// binding owns the single lazily constructed client of one provider.
type binding struct {
	once   sync.Once
	create Constructor
	client Client
	err    error
}

func (b *binding) get() (Client, error) {
	b.once.Do(func() {
		b.client, b.err = b.create()
	})
	return b.client, b.err
}

// Router resolves model ids to provider bindings through the catalog.
// It implements Client, so any component that needs a raw completion
// (for example the judge) can go through the same bindings.
type Router struct {
	catalog  *catalog.Catalog
	bindings map[catalog.Provider]*binding
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithMetrics records provider calls on m.
func WithMetrics(m *metrics.Metrics) RouterOption {
	return func(r *Router) {
		r.metrics = m
	}
}

// WithLogger sets the logger used for per-call logging.
func WithLogger(l *slog.Logger) RouterOption {
	return func(r *Router) {
		r.logger = l
	}
}

// NewRouter creates a router with one binding per constructor. Clients are
// created on first use and reused for the lifetime of the router.
func NewRouter(cat *catalog.Catalog, constructors map[catalog.Provider]Constructor, opts ...RouterOption) *Router {
	r := &Router{
		catalog:  cat,
		bindings: make(map[catalog.Provider]*binding, len(constructors)),
		logger:   slog.Default(),
	}
	for p, c := range constructors {
		r.bindings[p] = &binding{create: c}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// clientFor resolves a model id to its provider client.
func (r *Router) clientFor(modelID string) (catalog.Provider, Client, error) {
	model, ok := r.catalog.Model(modelID)
	if !ok {
		return "", nil, &UnknownModelError{ModelID: modelID}
	}
	b, ok := r.bindings[model.Provider]
	if !ok {
		return model.Provider, nil, &UnsupportedProviderError{Provider: model.Provider}
	}
	client, err := b.get()
	if err != nil {
		return model.Provider, nil, fmt.Errorf("failed to create %s client: %w", model.Provider, err)
	}
	return model.Provider, client, nil
}

// ChatCompletion routes req to the binding serving req.Model.
func (r *Router) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	provider, client, err := r.clientFor(req.Model)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := client.ChatCompletion(ctx, req)
	elapsed := time.Since(start)

	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeError
	}
	r.metrics.ObserveProviderCall(string(provider), req.Model, outcome, elapsed)
	return resp, err
}

// ChatCompletionStream routes a streaming request to the binding serving req.Model.
func (r *Router) ChatCompletionStream(ctx context.Context, req ChatRequest) (*StreamReader, error) {
	_, client, err := r.clientFor(req.Model)
	if err != nil {
		return nil, err
	}
	return client.ChatCompletionStream(ctx, req)
}

// Query asks one model for a completion. It never fails: errors are reported
// in the returned ModelResponse together with the latency measured until the
// failure. An unknown model fails immediately with zero latency.
func (r *Router) Query(ctx context.Context, modelID, prompt, system string) results.ModelResponse {
	if _, ok := r.catalog.Model(modelID); !ok {
		r.logger.Warn("query for unknown model", "model", modelID)
		return results.ModelResponse{
			ModelID: modelID,
			Error:   (&UnknownModelError{ModelID: modelID}).Error(),
		}
	}

	start := time.Now()
	resp, err := r.ChatCompletion(ctx, ChatRequest{
		Model:         modelID,
		SystemMessage: system,
		UserMessage:   prompt,
	})
	latency := time.Since(start).Milliseconds()

	if err != nil {
		r.logger.Warn("model query failed", "model", modelID, "latency_ms", latency, "error", err)
		return results.ModelResponse{
			ModelID:   modelID,
			LatencyMs: latency,
			Error:     err.Error(),
		}
	}

	r.logger.Debug("model query completed", "model", modelID, "latency_ms", latency, "chars", len(resp.Content))
	return results.ModelResponse{
		ModelID:   modelID,
		Response:  resp.Content,
		LatencyMs: latency,
	}
}

// QueryParallel queries all models concurrently and returns the responses in
// the order of modelIDs. Individual failures are reported inside each
// response; an error is returned only when ctx is done. A panicking query is
// re-raised on the calling goroutine.
func (r *Router) QueryParallel(ctx context.Context, modelIDs []string, prompt, system string) ([]results.ModelResponse, error) {
	out := make([]results.ModelResponse, len(modelIDs))
	panics := make([]any, len(modelIDs))

	var g errgroup.Group
	for i, id := range modelIDs {
		g.Go(func() error {
			defer func() {
				panics[i] = recover()
			}()
			out[i] = r.Query(ctx, id, prompt, system)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, p := range panics {
		if p != nil {
			panic(p)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Stream opens a streaming completion for one model.
func (r *Router) Stream(ctx context.Context, modelID, prompt, system string) (*StreamReader, error) {
	return r.ChatCompletionStream(ctx, ChatRequest{
		Model:         modelID,
		SystemMessage: system,
		UserMessage:   prompt,
	})
}
