// Package evaluation is the boundary between callers and the pipeline: it
// validates submissions, stores run configurations and starts runs.
package evaluation

import (
	"context"
	"errors"
	"iter"
	"log/slog"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/giantswarm/llm-compare/internal/catalog"
	"github.com/giantswarm/llm-compare/internal/registry"
	"github.com/giantswarm/llm-compare/internal/runner"
)

var (
	// ErrRunNotFound is returned when a run id is neither registered nor
	// reconstructable from caller-supplied parameters.
	ErrRunNotFound = errors.New("evaluation not found")

	// ErrUseCaseNotFound is returned when a registered run names a use case
	// that is no longer in the catalog.
	ErrUseCaseNotFound = errors.New("use case not found")
)

// SubmitRequest is the input of a run submission.
type SubmitRequest struct {
	UseCaseID string   `json:"useCaseId" validate:"required"`
	Models    []string `json:"models" validate:"required,min=1,max=3,unique,dive,required"`
}

// IsZero reports whether no parameter was supplied.
func (r SubmitRequest) IsZero() bool {
	return r.UseCaseID == "" && len(r.Models) == 0
}

// Service accepts run submissions and executes runs.
type Service struct {
	catalog  *catalog.Catalog
	registry *registry.Registry
	runner   *runner.Runner
	validate *validator.Validate
	newID    func() string
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithIDGenerator replaces the run id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// NewService creates a Service.
func NewService(cat *catalog.Catalog, reg *registry.Registry, r *runner.Runner, opts ...Option) *Service {
	s := &Service{
		catalog:  cat,
		registry: reg,
		runner:   r,
		validate: newValidator(),
		newID:    uuid.NewString,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates req, allocates a run id and stores the run configuration.
// Validation failures are returned as *ValidationError.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (registry.RunConfig, error) {
	if _, err := s.check(ctx, req); err != nil {
		return registry.RunConfig{}, err
	}

	cfg := s.registry.Put(registry.RunConfig{
		ID:        s.newID(),
		UseCaseID: req.UseCaseID,
		Models:    req.Models,
	})
	s.logger.Info("evaluation submitted", "run_id", cfg.ID, "use_case", cfg.UseCaseID, "models", cfg.Models)
	return cfg, nil
}

// Resolve finds the configuration of run id. The registry is consulted
// first; when it has no entry, fallback is validated like a submission and
// used instead. Without either, ErrRunNotFound is returned.
func (s *Service) Resolve(ctx context.Context, id string, fallback SubmitRequest) (registry.RunConfig, catalog.UseCase, error) {
	if cfg, ok := s.registry.Get(id); ok {
		uc, ok := s.catalog.UseCase(cfg.UseCaseID)
		if !ok {
			return registry.RunConfig{}, catalog.UseCase{}, ErrUseCaseNotFound
		}
		return cfg, uc, nil
	}

	if fallback.IsZero() {
		return registry.RunConfig{}, catalog.UseCase{}, ErrRunNotFound
	}

	uc, err := s.check(ctx, fallback)
	if err != nil {
		return registry.RunConfig{}, catalog.UseCase{}, err
	}
	s.logger.Info("run not registered, using request parameters", "run_id", id)
	return registry.RunConfig{
		ID:        id,
		UseCaseID: fallback.UseCaseID,
		Models:    fallback.Models,
		CreatedAt: s.registry.Now(),
	}, uc, nil
}

// Execute resolves run id and returns its event sequence. The run starts
// when the sequence is ranged over.
func (s *Service) Execute(ctx context.Context, id string, fallback SubmitRequest) (iter.Seq2[runner.Event, error], error) {
	cfg, uc, err := s.Resolve(ctx, id, fallback)
	if err != nil {
		return nil, err
	}
	return s.runner.Run(ctx, runner.Request{
		RunID:   cfg.ID,
		UseCase: uc,
		Models:  cfg.Models,
	}), nil
}

// check validates the shape of req and resolves it against the catalog.
func (s *Service) check(ctx context.Context, req SubmitRequest) (catalog.UseCase, error) {
	if err := s.validate.StructCtx(ctx, req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return catalog.UseCase{}, toValidationError(req, fieldErrs[0])
		}
		return catalog.UseCase{}, err
	}

	uc, ok := s.catalog.UseCase(req.UseCaseID)
	if !ok {
		return catalog.UseCase{}, &ValidationError{Field: "useCaseId", Message: "Invalid use case: " + req.UseCaseID}
	}
	for _, id := range req.Models {
		if _, ok := s.catalog.Model(id); !ok {
			return catalog.UseCase{}, &ValidationError{Field: "models", Message: "Invalid model: " + id}
		}
	}
	return uc, nil
}
