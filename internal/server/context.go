package server

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/giantswarm/llm-compare/internal/catalog"
	"github.com/giantswarm/llm-compare/internal/evaluation"
)

// DefaultStreamTimeout bounds the wall-clock duration of a streamed run.
const DefaultStreamTimeout = 5 * time.Minute

// ServerContext holds shared dependencies for the HTTP handlers and MCP tool handlers.
type ServerContext struct {
	Catalog     *catalog.Catalog
	Evaluations *evaluation.Service
	Gatherer    prometheus.Gatherer // serves /metrics when set
	Logger      *slog.Logger

	// StreamTimeout defaults to DefaultStreamTimeout when zero.
	StreamTimeout time.Duration
}

func (sc *ServerContext) streamTimeout() time.Duration {
	if sc.StreamTimeout > 0 {
		return sc.StreamTimeout
	}
	return DefaultStreamTimeout
}

func (sc *ServerContext) logger() *slog.Logger {
	if sc.Logger != nil {
		return sc.Logger
	}
	return slog.Default()
}
