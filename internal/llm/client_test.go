package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIClientDefaults(t *testing.T) {
	client := NewOpenAIClient()
	assert.Empty(t, client.cfg.baseURL)
	assert.Equal(t, defaultOpenAIMaxTokens, client.cfg.maxTokens)
	assert.Equal(t, defaultTimeout, client.cfg.timeout)
}

func TestNewAnthropicClientDefaults(t *testing.T) {
	client := NewAnthropicClient(WithAPIKey("sk-test"))
	assert.Equal(t, defaultAnthropicMaxTokens, client.cfg.maxTokens)
	assert.Equal(t, "sk-test", client.cfg.apiKey)
}

func TestNewOpenAIClientWithAllOptions(t *testing.T) {
	client := NewOpenAIClient(
		WithBaseURL("https://api.example.com/v1"),
		WithAPIKey("sk-test"),
		WithMaxTokens(64),
		WithTimeout(time.Second),
	)
	assert.Equal(t, "https://api.example.com/v1", client.cfg.baseURL)
	assert.Equal(t, 64, client.cfg.maxTokens)
	assert.Equal(t, time.Second, client.cfg.timeout)
}

func TestApplyDefaults(t *testing.T) {
	cfg := clientConfig{maxTokens: 100}

	tests := []struct {
		name     string
		req      ChatRequest
		expected ChatRequest
	}{
		{
			name:     "client default fills max tokens",
			req:      ChatRequest{Model: "gpt-4", UserMessage: "hello"},
			expected: ChatRequest{Model: "gpt-4", UserMessage: "hello", MaxTokens: 100},
		},
		{
			name:     "request values take precedence",
			req:      ChatRequest{Model: "gpt-3.5", UserMessage: "hello", Temperature: Float64Ptr(0.1), MaxTokens: 5},
			expected: ChatRequest{Model: "gpt-3.5", UserMessage: "hello", Temperature: Float64Ptr(0.1), MaxTokens: 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, cfg.applyDefaults(tt.req))
		})
	}
}

func TestOpenAIChatCompletion(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"hello there"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	client := NewOpenAIClient(WithBaseURL(srv.URL), WithAPIKey("sk-test"))
	resp, err := client.ChatCompletion(context.Background(), ChatRequest{Model: "gpt-5-mini", UserMessage: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hello there", resp.Content)

	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, messages, 1, "no system message without system text")
	assert.Equal(t, float64(defaultOpenAIMaxTokens), body["max_completion_tokens"])
}

func TestOpenAIChatCompletionWithSystemMessage(t *testing.T) {
	var body struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`)
	}))
	defer srv.Close()

	client := NewOpenAIClient(WithBaseURL(srv.URL))
	_, err := client.ChatCompletion(context.Background(), ChatRequest{Model: "m", SystemMessage: "be brief", UserMessage: "hi"})
	require.NoError(t, err)

	require.Len(t, body.Messages, 2)
	assert.Equal(t, "system", body.Messages[0].Role)
	assert.Equal(t, "be brief", body.Messages[0].Content)
	assert.Equal(t, "user", body.Messages[1].Role)
}

func TestOpenAIChatCompletionNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	client := NewOpenAIClient(WithBaseURL(srv.URL))
	_, err := client.ChatCompletion(context.Background(), ChatRequest{Model: "m", UserMessage: "hi"})
	assert.EqualError(t, err, "no choices returned")
}

func TestAnthropicChatCompletion(t *testing.T) {
	var body struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
		System    []struct {
			Text string `json:"text"`
		} `json:"system"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-sonnet-4-20250514",`+
			`"content":[{"type":"text","text":"bonjour"}],"stop_reason":"end_turn","usage":{"input_tokens":3,"output_tokens":1}}`)
	}))
	defer srv.Close()

	client := NewAnthropicClient(WithBaseURL(srv.URL+"/"), WithAPIKey("sk-test"))
	resp, err := client.ChatCompletion(context.Background(), ChatRequest{
		Model:         "claude-sonnet-4-20250514",
		SystemMessage: "French only",
		UserMessage:   "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "bonjour", resp.Content)
	assert.Equal(t, "claude-sonnet-4-20250514", body.Model)
	assert.Equal(t, defaultAnthropicMaxTokens, body.MaxTokens)
	require.Len(t, body.System, 1)
	assert.Equal(t, "French only", body.System[0].Text)
}

func TestAnthropicChatCompletionStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		frames := []string{
			`event: content_block_start` + "\n" + `data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`,
			`event: content_block_delta` + "\n" + `data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hel"}}`,
			`event: content_block_delta` + "\n" + `data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"lo"}}`,
			`event: content_block_stop` + "\n" + `data: {"type":"content_block_stop","index":0}`,
			`event: message_stop` + "\n" + `data: {"type":"message_stop"}`,
		}
		for _, f := range frames {
			_, _ = io.WriteString(w, f+"\n\n")
		}
	}))
	defer srv.Close()

	client := NewAnthropicClient(WithBaseURL(srv.URL+"/"), WithAPIKey("sk-test"))
	sr, err := client.ChatCompletionStream(context.Background(), ChatRequest{Model: "claude-3-5-haiku-20241022", UserMessage: "hi"})
	require.NoError(t, err)

	content, err := CollectStream(sr)
	require.NoError(t, err)
	assert.Equal(t, "Hello", content)
}

func TestCollectStream(t *testing.T) {
	chunks := []string{"a", "b", "c"}
	closed := false
	sr := NewStreamReader(func() (string, error) {
		if len(chunks) == 0 {
			return "", io.EOF
		}
		c := chunks[0]
		chunks = chunks[1:]
		return c, nil
	}, func() error {
		closed = true
		return nil
	})

	content, err := CollectStream(sr)
	require.NoError(t, err)
	assert.Equal(t, "abc", content)
	assert.True(t, closed)
}

func TestCollectStreamError(t *testing.T) {
	sent := false
	boom := errors.New("connection reset")
	sr := NewStreamReader(func() (string, error) {
		if !sent {
			sent = true
			return "partial", nil
		}
		return "", boom
	}, nil)

	content, err := CollectStream(sr)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "partial", content)
}
