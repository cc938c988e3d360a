package llm

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// Default completion policy.
const (
	DefaultBaseURL        = "https://openrouter.ai/api/v1"
	DefaultModel          = "meta-llama/llama-3.2-11b-vision-instruct:free"
	DefaultTemperature    = 0.7
	DefaultMaxAttempts    = 5
	DefaultBaseDelay      = 5 * time.Second
	DefaultAttemptTimeout = 30 * time.Second
	DefaultMaxRateWait    = 30 * time.Second
)

// ModelValidator reports whether a model id is usable.
type ModelValidator interface {
	Contains(ctx context.Context, modelID string) (bool, error)
}

// Observer receives one call per completion attempt.
type Observer interface {
	ObserveAttempt(model, outcome string, latency time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveAttempt(string, string, time.Duration) {}

// Config represents completion client configuration.
type Config struct {
	APIKey       string
	BaseURL      string // default: https://openrouter.ai/api/v1
	DefaultModel string

	MaxAttempts    int           // default: 5
	BaseDelay      time.Duration // linear backoff step, default: 5s
	AttemptTimeout time.Duration // default: 30s
	MaxRateWait    time.Duration // cap on a 429 wait, default: 30s

	// RequestsPerSecond throttles outbound calls. Zero disables throttling.
	RequestsPerSecond float64
	Burst             int

	// Referer and AppTitle are sent as OpenRouter attribution headers when set.
	Referer  string
	AppTitle string
}

// Option customizes a Client.
type Option func(*Client)

// WithValidator checks requested models before each call.
func WithValidator(v ModelValidator) Option {
	return func(c *Client) { c.validator = v }
}

// WithSleeper replaces the timer used between attempts.
func WithSleeper(s Sleeper) Option {
	return func(c *Client) { c.sleeper = s }
}

// WithBackoff replaces the linear backoff policy.
func WithBackoff(p BackoffPolicy) Option {
	return func(c *Client) { c.backoff = p }
}

// WithObserver reports attempts to o.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithClock overrides the time source used for rate-limit arithmetic.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// CallOption customizes a single Complete call.
type CallOption func(*callOptions)

type callOptions struct {
	maxAttempts int
}

// WithMaxAttempts lowers the attempt budget for best-effort calls.
func WithMaxAttempts(n int) CallOption {
	return func(o *callOptions) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// Client calls the chat completion endpoint with timeout, retry and
// rate-limit handling.
type Client struct {
	http      *resty.Client
	validator ModelValidator
	sleeper   Sleeper
	backoff   BackoffPolicy
	observer  Observer
	limiter   *rate.Limiter
	now       func() time.Time

	defaultModel   string
	maxAttempts    int
	attemptTimeout time.Duration
	maxRateWait    time.Duration
}

// NewClient creates a completion client.
func NewClient(cfg Config, opts ...Option) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.DefaultModel
	if model == "" {
		model = DefaultModel
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	baseDelay := cfg.BaseDelay
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	timeout := cfg.AttemptTimeout
	if timeout <= 0 {
		timeout = DefaultAttemptTimeout
	}
	maxWait := cfg.MaxRateWait
	if maxWait <= 0 {
		maxWait = DefaultMaxRateWait
	}

	limit, burst := rate.Inf, cfg.Burst
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		if burst <= 0 {
			burst = 1
		}
	}

	c := &Client{
		http:           NewRestyClient(baseURL, cfg.APIKey, cfg.Referer, cfg.AppTitle),
		sleeper:        TimerSleeper,
		backoff:        LinearBackoff(baseDelay),
		observer:       nopObserver{},
		limiter:        rate.NewLimiter(limit, burst),
		now:            time.Now,
		defaultModel:   model,
		maxAttempts:    attempts,
		attemptTimeout: timeout,
		maxRateWait:    maxWait,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewRestyClient returns an HTTP client preconfigured for the provider API.
func NewRestyClient(baseURL, apiKey, referer, appTitle string) *resty.Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	if referer != "" {
		client.SetHeader("HTTP-Referer", referer)
	}
	if appTitle != "" {
		client.SetHeader("X-Title", appTitle)
	}
	return client
}

// DefaultModelID returns the fallback model.
func (c *Client) DefaultModelID() string {
	return c.defaultModel
}

// Complete sends messages to modelID and returns the assistant text.
//
// An empty or unknown model falls back to the default model. Transport
// errors, non-2xx replies and 429s are retried up to the attempt budget;
// a malformed success body fails immediately.
func (c *Client) Complete(ctx context.Context, messages []Message, modelID string, temperature float32, opts ...CallOption) (string, error) {
	call := callOptions{maxAttempts: c.maxAttempts}
	for _, opt := range opts {
		opt(&call)
	}

	model := c.resolveModel(ctx, modelID)
	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    convertMessages(messages),
		Temperature: temperature,
	}

	slog.Debug("LLM: completion request",
		"model", model,
		"messages_count", len(messages),
		"max_attempts", call.maxAttempts,
	)

	var last error
	for attempt := 1; attempt <= call.maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}

		start := c.now()
		content, err := c.attempt(ctx, req)
		latency := c.now().Sub(start)
		c.observer.ObserveAttempt(model, outcome(err), latency)

		if err == nil {
			slog.Debug("LLM: completion received",
				"model", model,
				"attempt", attempt,
				"content_length", len(content),
				"duration_ms", latency.Milliseconds(),
			)
			return content, nil
		}
		if errors.Is(err, ErrInvalidResponseShape) {
			slog.Error("LLM: malformed completion response", "model", model, "attempt", attempt, "error", err)
			return "", err
		}

		last = err
		if attempt == call.maxAttempts {
			break
		}

		delay := c.backoff(attempt)
		var rl *RateLimitError
		if errors.As(err, &rl) && rl.Signaled {
			delay = rl.Wait
		}
		slog.Warn("LLM: completion attempt failed, retrying",
			"model", model,
			"attempt", attempt,
			"delay_ms", delay.Milliseconds(),
			"error", err,
		)
		if err := c.sleeper.Sleep(ctx, delay); err != nil {
			return "", err
		}
	}

	slog.Error("LLM: completion retries exhausted", "model", model, "attempts", call.maxAttempts, "error", last)
	return "", &RetriesExhaustedError{Attempts: call.maxAttempts, Last: last}
}

// resolveModel substitutes the default model for empty or unknown ids.
func (c *Client) resolveModel(ctx context.Context, modelID string) string {
	if modelID == "" {
		return c.defaultModel
	}
	if c.validator == nil || modelID == c.defaultModel {
		return modelID
	}
	ok, err := c.validator.Contains(ctx, modelID)
	if err != nil {
		slog.Warn("LLM: model catalog unavailable, using default model",
			"requested", modelID,
			"model", c.defaultModel,
			"error", err,
		)
		return c.defaultModel
	}
	if !ok {
		slog.Info("LLM: model not in catalog, using default model",
			"requested", modelID,
			"model", c.defaultModel,
		)
		return c.defaultModel
	}
	return modelID
}

// completionBody mirrors the success reply. Content is a pointer so a
// missing or null field is distinguishable from an empty string.
type completionBody struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) attempt(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		Post("/chat/completions")
	if err != nil {
		return "", &UpstreamError{Err: err}
	}

	status := resp.StatusCode()
	if status == http.StatusTooManyRequests {
		wait, ok := rateLimitWait(resp.Header(), c.now(), c.maxRateWait)
		return "", &RateLimitError{Message: errorMessage(resp.Body()), Wait: wait, Signaled: ok}
	}
	if status < 200 || status >= 300 {
		return "", &UpstreamError{StatusCode: status, Message: errorMessage(resp.Body())}
	}

	return parseCompletion(resp.Body())
}

func parseCompletion(body []byte) (string, error) {
	var parsed completionBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &ShapeError{Reason: err.Error()}
	}
	if len(parsed.Choices) == 0 {
		return "", &ShapeError{Reason: "no choices"}
	}
	content := parsed.Choices[0].Message.Content
	if content == nil {
		return "", &ShapeError{Reason: "choice has no message content"}
	}
	return *content, nil
}

// errorMessage extracts {"error":{"message":...}} from an error body,
// falling back to the raw text.
func errorMessage(body []byte) string {
	var parsed openai.ErrorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	const maxLen = 200
	text := strings.TrimSpace(string(body))
	if len(text) > maxLen {
		text = text[:maxLen]
	}
	return text
}
