package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sethvargo/go-envconfig"

	"github.com/giantswarm/llm-compare/internal/catalog"
	"github.com/giantswarm/llm-compare/internal/evaluation"
	"github.com/giantswarm/llm-compare/internal/llm"
	"github.com/giantswarm/llm-compare/internal/metrics"
	"github.com/giantswarm/llm-compare/internal/registry"
	"github.com/giantswarm/llm-compare/internal/runner"
	"github.com/giantswarm/llm-compare/internal/scorer"
)

// providerConfig holds provider credentials and endpoints read from the environment.
type providerConfig struct {
	OpenAIAPIKey     string  `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string  `env:"OPENAI_BASE_URL"`
	AnthropicAPIKey  string  `env:"ANTHROPIC_API_KEY"`
	AnthropicBaseURL string  `env:"ANTHROPIC_BASE_URL"`
	JudgeModel       string  `env:"JUDGE_MODEL,default=claude-sonnet-4-20250514"`
	JudgeTemperature float64 `env:"JUDGE_TEMPERATURE,default=0"`
}

func loadProviderConfig(ctx context.Context, lookuper envconfig.Lookuper) (providerConfig, error) {
	var cfg providerConfig
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return providerConfig{}, fmt.Errorf("failed to process environment: %w", err)
	}
	return cfg, nil
}

// constructors returns one lazily invoked client constructor per provider.
// A missing API key surfaces as the error of every call to that provider.
func (c providerConfig) constructors() map[catalog.Provider]llm.Constructor {
	return map[catalog.Provider]llm.Constructor{
		catalog.ProviderOpenAI: func() (llm.Client, error) {
			if c.OpenAIAPIKey == "" {
				return nil, errors.New("OPENAI_API_KEY is not set")
			}
			opts := []llm.Option{llm.WithAPIKey(c.OpenAIAPIKey)}
			if c.OpenAIBaseURL != "" {
				opts = append(opts, llm.WithBaseURL(c.OpenAIBaseURL))
			}
			return llm.NewOpenAIClient(opts...), nil
		},
		catalog.ProviderAnthropic: func() (llm.Client, error) {
			if c.AnthropicAPIKey == "" {
				return nil, errors.New("ANTHROPIC_API_KEY is not set")
			}
			opts := []llm.Option{llm.WithAPIKey(c.AnthropicAPIKey)}
			if c.AnthropicBaseURL != "" {
				opts = append(opts, llm.WithBaseURL(c.AnthropicBaseURL))
			}
			return llm.NewAnthropicClient(opts...), nil
		},
	}
}

// app is the assembled evaluation pipeline shared by the commands.
type app struct {
	catalog  *catalog.Catalog
	router   *llm.Router
	service  *evaluation.Service
	gatherer prometheus.Gatherer
}

func newApp(ctx context.Context, catalogDir string, lookuper envconfig.Lookuper) (*app, error) {
	cfg, err := loadProviderConfig(ctx, lookuper)
	if err != nil {
		return nil, err
	}

	cat, err := catalog.Load(catalogDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	// The judge is routed like any candidate, so it must be a catalog model.
	if _, ok := cat.Model(cfg.JudgeModel); !ok {
		return nil, fmt.Errorf("judge model %q is not in the model catalog", cfg.JudgeModel)
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(promRegistry)

	router := llm.NewRouter(cat, cfg.constructors(), llm.WithMetrics(m))
	judge := scorer.NewScorer(router, cat, scorer.Config{
		Model:       cfg.JudgeModel,
		Temperature: llm.Float64Ptr(cfg.JudgeTemperature),
		Metrics:     m,
	})
	r := runner.New(router, judge, cat, runner.WithMetrics(m))

	return &app{
		catalog:  cat,
		router:   router,
		service:  evaluation.NewService(cat, registry.New(), r),
		gatherer: promRegistry,
	}, nil
}
