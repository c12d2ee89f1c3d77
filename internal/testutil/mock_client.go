// Package testutil provides shared test helpers.
package testutil

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/giantswarm/llm-compare/internal/llm"
)

// MockLLMClient is a configurable mock for llm.Client used across test packages.
// It is safe for concurrent use.
type MockLLMClient struct {
	// Responses maps user messages to canned responses.
	Responses map[string]string

	// ModelResponses maps model ids to canned responses. Responses takes precedence.
	ModelResponses map[string]string

	// ModelErrors maps model ids to errors returned instead of a response.
	ModelErrors map[string]error

	// Err, when set, is returned for every call.
	Err error

	// DefaultResponse is returned when no other rule matches.
	DefaultResponse string

	// Handler, when set, computes the response and overrides every other field.
	Handler func(req llm.ChatRequest) (string, error)

	mu       sync.Mutex
	requests []llm.ChatRequest
}

func (m *MockLLMClient) ChatCompletion(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	content, err := m.respond(req)
	if err != nil {
		return nil, err
	}
	return &llm.ChatResponse{Content: content}, nil
}

// ChatCompletionStream streams the same response ChatCompletion would return,
// one word per chunk.
func (m *MockLLMClient) ChatCompletionStream(_ context.Context, req llm.ChatRequest) (*llm.StreamReader, error) {
	content, err := m.respond(req)
	if err != nil {
		return nil, err
	}

	chunks := strings.SplitAfter(content, " ")
	recv := func() (string, error) {
		if len(chunks) == 0 {
			return "", io.EOF
		}
		next := chunks[0]
		chunks = chunks[1:]
		return next, nil
	}
	return llm.NewStreamReader(recv, nil), nil
}

func (m *MockLLMClient) respond(req llm.ChatRequest) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.Handler != nil {
		return m.Handler(req)
	}
	if m.Err != nil {
		return "", m.Err
	}
	if err, ok := m.ModelErrors[req.Model]; ok {
		return "", err
	}
	if resp, ok := m.Responses[req.UserMessage]; ok {
		return resp, nil
	}
	if resp, ok := m.ModelResponses[req.Model]; ok {
		return resp, nil
	}
	if m.DefaultResponse != "" {
		return m.DefaultResponse, nil
	}
	return "mock response", nil
}

// Calls returns the number of requests received.
func (m *MockLLMClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns a copy of all requests received, in arrival order.
func (m *MockLLMClient) Requests() []llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]llm.ChatRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// LastRequest returns the most recent request, or the zero value.
func (m *MockLLMClient) LastRequest() llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return llm.ChatRequest{}
	}
	return m.requests[len(m.requests)-1]
}
