package llm

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicMaxTokens = 2048

// AnthropicClient implements Client using the Anthropic messages API.
type AnthropicClient struct {
	client anthropic.Client
	cfg    clientConfig
}

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(opts ...Option) *AnthropicClient {
	cfg := clientConfig{
		maxTokens: defaultAnthropicMaxTokens,
		timeout:   defaultTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.apiKey),
		option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}

	return &AnthropicClient{
		client: anthropic.NewClient(reqOpts...),
		cfg:    cfg,
	}
}

// ChatCompletion sends a message request and returns the first text block.
func (c *AnthropicClient) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	message, err := c.client.Messages.New(ctx, c.buildParams(req))
	if err != nil {
		return nil, fmt.Errorf("message request failed: %w", err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			return &ChatResponse{Content: block.Text}, nil
		}
	}
	return nil, fmt.Errorf("no text content returned")
}

// ChatCompletionStream sends a streaming message request. Only text deltas
// are surfaced to the reader.
func (c *AnthropicClient) ChatCompletionStream(ctx context.Context, req ChatRequest) (*StreamReader, error) {
	stream := c.client.Messages.NewStreaming(ctx, c.buildParams(req))
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("message stream failed: %w", err)
	}

	recv := func() (string, error) {
		for stream.Next() {
			event := stream.Current()
			if event.Type == "content_block_delta" && event.Delta.Type == "text_delta" {
				return event.Delta.Text, nil
			}
		}
		if err := stream.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return NewStreamReader(recv, stream.Close), nil
}

func (c *AnthropicClient) buildParams(req ChatRequest) anthropic.MessageNewParams {
	req = c.cfg.applyDefaults(req)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(req.MaxTokens),
		Messages: []anthropic.MessageParam{{
			Role: anthropic.MessageParamRoleUser,
			Content: []anthropic.ContentBlockParamUnion{
				anthropic.NewTextBlock(req.UserMessage),
			},
		}},
	}
	if req.SystemMessage != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemMessage}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	return params
}
