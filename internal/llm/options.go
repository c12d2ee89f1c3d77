package llm

import "time"

const defaultTimeout = 120 * time.Second

// Float64Ptr returns a pointer to the given float64 value.
func Float64Ptr(v float64) *float64 {
	return &v
}

// clientConfig holds configuration for an LLM client.
type clientConfig struct {
	baseURL   string
	apiKey    string
	maxTokens int
	timeout   time.Duration
}

// applyDefaults applies client-level defaults to a request where
// the request does not specify its own values.
func (c *clientConfig) applyDefaults(req ChatRequest) ChatRequest {
	if req.MaxTokens == 0 {
		req.MaxTokens = c.maxTokens
	}
	return req
}

// Option is a functional option for configuring an LLM client.
type Option func(*clientConfig)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(url string) Option {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *clientConfig) {
		c.apiKey = key
	}
}

// WithMaxTokens sets the default output token limit for requests.
func WithMaxTokens(n int) Option {
	return func(c *clientConfig) {
		c.maxTokens = n
	}
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = d
	}
}
