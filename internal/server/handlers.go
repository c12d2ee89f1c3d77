package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/giantswarm/llm-compare/internal/evaluation"
	"github.com/giantswarm/llm-compare/internal/runner"
)

// SubmitResponse is the body of a successful submission.
type SubmitResponse struct {
	EvaluationID string `json:"evaluationId"`
}

// ErrorResponse is the body of every non-streaming error.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Handlers holds the HTTP handler methods of the API.
type Handlers struct {
	sc *ServerContext
}

// NewHandlers creates Handlers backed by sc.
func NewHandlers(sc *ServerContext) *Handlers {
	return &Handlers{sc: sc}
}

// RegisterRoutes registers all API routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, sc *ServerContext) {
	h := NewHandlers(sc)
	mux.HandleFunc("POST /api/evaluate", h.HandleSubmit)
	mux.HandleFunc("GET /api/evaluate/{id}/stream", h.HandleStream)
	mux.HandleFunc("GET /api/use-cases", h.HandleUseCases)
	mux.HandleFunc("GET /api/models", h.HandleModels)
	mux.HandleFunc("GET /api/dimensions", h.HandleDimensions)
}

// HandleSubmit validates a run submission and returns its id.
func (h *Handlers) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req evaluation.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cfg, err := h.sc.Evaluations.Submit(r.Context(), req)
	if err != nil {
		var verr *evaluation.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Message)
			return
		}
		h.sc.logger().Error("failed to start evaluation", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to start evaluation")
		return
	}
	writeJSON(w, http.StatusOK, SubmitResponse{EvaluationID: cfg.ID})
}

// HandleStream runs the evaluation and streams its events as server-sent
// events. The useCaseId and models query parameters are used when the run
// id is not registered.
func (h *Handlers) HandleStream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	timeout := h.sc.streamTimeout()
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	seq, err := h.sc.Evaluations.Execute(ctx, id, fallbackFromQuery(r))
	if err != nil {
		var verr *evaluation.ValidationError
		switch {
		case errors.Is(err, evaluation.ErrRunNotFound):
			writeError(w, http.StatusNotFound, "Evaluation not found")
		case errors.Is(err, evaluation.ErrUseCaseNotFound):
			writeError(w, http.StatusNotFound, "Use case not found")
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, verr.Message)
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	rc := http.NewResponseController(w)
	// The run outlives the server's write timeout; the stream context bounds it instead.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	logger := h.sc.logger().With("run_id", id)
	for ev, err := range seq {
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil && r.Context().Err() == nil {
				err = fmt.Errorf("evaluation timed out after %s", timeout)
			}
			logger.Warn("evaluation stream ended with error", "error", err)
			_ = writeEvent(w, rc, runner.ErrorEvent(err))
			return
		}
		if err := writeEvent(w, rc, ev); err != nil {
			logger.Info("stream consumer went away", "error", err)
			return
		}
	}
}

// HandleUseCases lists the catalog use cases with their test cases.
func (h *Handlers) HandleUseCases(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.sc.Catalog.UseCases())
}

// HandleModels lists the selectable models.
func (h *Handlers) HandleModels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.sc.Catalog.Models())
}

// HandleDimensions lists the scoring dimensions.
func (h *Handlers) HandleDimensions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.sc.Catalog.Dimensions())
}

// fallbackFromQuery reads the raw run parameters a client may attach to a
// stream request.
func fallbackFromQuery(r *http.Request) evaluation.SubmitRequest {
	q := r.URL.Query()
	req := evaluation.SubmitRequest{UseCaseID: q.Get("useCaseId")}
	if raw := q.Get("models"); raw != "" {
		for _, m := range strings.Split(raw, ",") {
			if m = strings.TrimSpace(m); m != "" {
				req.Models = append(req.Models, m)
			}
		}
	}
	return req
}

func writeEvent(w http.ResponseWriter, rc *http.ResponseController, ev runner.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", ev.Type, err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return rc.Flush()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, ErrorResponse{Error: msg})
}
