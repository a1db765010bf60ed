package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the DigitalOcean AI inference endpoint (OpenAI compatible)
	DefaultBaseURL = "https://inference.do-ai.run"
	// DefaultTimeout bounds a single completion request
	DefaultTimeout = 60 * time.Second
	// DefaultModel is used when no model is configured
	DefaultModel = "openai-gpt-oss-120b"

	summaryMaxTokens = 600
	maxReviewChars   = 1200
)

// Client calls an OpenAI compatible chat completion API
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	limiter    *RateLimiter
}

// Config holds configuration for the inference client
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	// RateLimit throttles outgoing requests; zero values use the defaults
	RateLimit RateLimiterConfig
}

// NewClient creates a new inference client
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: NewRateLimiter(rateLimitOrDefault(cfg.RateLimit)),
	}
}

func rateLimitOrDefault(cfg RateLimiterConfig) RateLimiterConfig {
	if cfg.MaxTokens == 0 && cfg.RefillRate == 0 {
		return DefaultRateLimiterConfig()
	}
	return cfg
}

// Message is one chat message
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// Request is a chat completion request
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// Choice is one completion candidate
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage is the token accounting of a completion
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a chat completion response
type Response struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Content returns the text of the first choice
func (r *Response) Content() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// Option modifies a request before it is sent
type Option func(*Request)

// WithTemperature sets the sampling temperature
func WithTemperature(temp float64) Option {
	return func(req *Request) {
		req.Temperature = temp
	}
}

// WithMaxTokens caps the completion length
func WithMaxTokens(tokens int) Option {
	return func(req *Request) {
		req.MaxTokens = tokens
	}
}

// ChatCompletion sends a chat completion request
func (c *Client) ChatCompletion(ctx context.Context, messages []Message, options ...Option) (*Response, error) {
	req := Request{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.3,
		MaxTokens:   1024,
	}
	for _, opt := range options {
		opt(&req)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("inference API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result Response
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

// Summarize asks the model for a short summary of a course's reviews
func (c *Client) Summarize(ctx context.Context, courseName string, reviews []string) (string, error) {
	if len(reviews) == 0 {
		return "", fmt.Errorf("no reviews to summarize")
	}

	messages := []Message{
		{Role: "system", Content: summarySystemPrompt},
		{Role: "user", Content: buildSummaryPrompt(courseName, reviews)},
	}

	resp, err := c.ChatCompletion(ctx, messages, WithMaxTokens(summaryMaxTokens))
	if err != nil {
		return "", err
	}

	summary := strings.TrimSpace(resp.Content())
	if summary == "" {
		return "", fmt.Errorf("no choices returned from inference API")
	}
	return summary, nil
}

// HealthCheck verifies the inference API is reachable
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.ChatCompletion(ctx, []Message{{Role: "user", Content: "Say 'ok'."}}, WithMaxTokens(5))
	return err
}

const summarySystemPrompt = "You summarize student reviews of a university elective. " +
	"Write 3-5 sentences covering workload, evaluation, teaching and who the course suits. " +
	"Do not invent facts that the reviews do not state."

func buildSummaryPrompt(courseName string, reviews []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize these reviews for %s:\n", courseName)
	for i, r := range reviews {
		r = strings.TrimSpace(r)
		if len(r) > maxReviewChars {
			r = r[:maxReviewChars]
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, r)
	}
	return b.String()
}
