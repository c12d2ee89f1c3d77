package llm

import (
	"context"
	"errors"
	"io"
	"strings"
)

// Client abstracts a chat-style LLM API.
type Client interface {
	// ChatCompletion sends a chat completion request and returns the response.
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	// ChatCompletionStream sends a streaming chat completion request.
	ChatCompletionStream(ctx context.Context, req ChatRequest) (*StreamReader, error)
}

// ChatRequest is a simplified single-turn chat request.
type ChatRequest struct {
	Model         string
	SystemMessage string
	UserMessage   string
	// Temperature is left to the provider default when nil.
	Temperature *float64
	// MaxTokens falls back to the binding's default when zero.
	MaxTokens int
}

// ChatResponse holds the result of a chat completion.
type ChatResponse struct {
	Content string
}

// StreamReader wraps a provider-specific streaming response.
type StreamReader struct {
	recv  func() (string, error)
	close func() error
}

// NewStreamReader builds a StreamReader from a receive function, which must
// return io.EOF once the stream is exhausted, and an optional close function.
func NewStreamReader(recv func() (string, error), closeFn func() error) *StreamReader {
	return &StreamReader{recv: recv, close: closeFn}
}

// Recv reads the next chunk from the stream.
func (s *StreamReader) Recv() (string, error) {
	return s.recv()
}

// Close closes the stream.
func (s *StreamReader) Close() {
	if s.close != nil {
		_ = s.close()
	}
}

// CollectStream reads all chunks from a StreamReader and returns the full content.
func CollectStream(sr *StreamReader) (string, error) {
	defer sr.Close()
	var b strings.Builder
	for {
		chunk, err := sr.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return b.String(), err
		}
		b.WriteString(chunk)
	}
	return b.String(), nil
}
