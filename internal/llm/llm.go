// Package llm provides the generation backend: a Generator abstraction
// over JSON-mode chat models, with request pacing, retry with backoff,
// and tolerant decoding of the records the model returns.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Generator produces a list of raw JSON records for one prompt. The
// records are undecoded: schema validation is the caller's job.
type Generator interface {
	Generate(ctx context.Context, req Request) ([]json.RawMessage, error)
}

// Request is one generation call.
type Request struct {
	// System is the system instruction.
	System string
	// Prompt is the user-facing prompt body.
	Prompt string
	// WrapperKey is the object key under which the model is asked to
	// return its record list, e.g. "use_cases". Bare arrays and single
	// objects are also accepted.
	WrapperKey string
}

// jsonCaller is a single JSON-mode chat call against one provider.
type jsonCaller interface {
	Name() string
	Call(ctx context.Context, system, prompt string) (string, error)
}

// Config selects and parameterizes a provider backend.
type Config struct {
	Provider    string
	Model       string
	APIKey      string
	Temperature float64

	// MinInterval is the minimum delay between calls. Zero means the
	// default of 6 seconds.
	MinInterval time.Duration
	// MaxAttempts caps call retries. Zero means the default of 8.
	MaxAttempts int
}

const (
	defaultMinInterval = 6 * time.Second
	defaultMaxAttempts = 8
	maxBackoff         = 120 * time.Second
)

// Client is a paced, retrying Generator over one provider backend.
type Client struct {
	caller      jsonCaller
	minInterval time.Duration
	maxAttempts int

	// sleep is replaceable in tests.
	sleep func(ctx context.Context, d time.Duration) error

	mu       sync.Mutex
	lastCall time.Time
}

// New builds a Client for the configured provider. Supported providers
// are "gemini" and "openai".
func New(ctx context.Context, cfg Config) (*Client, error) {
	var caller jsonCaller
	var err error
	switch cfg.Provider {
	case "gemini":
		caller, err = newGeminiCaller(ctx, cfg)
	case "openai":
		caller, err = newOpenAICaller(cfg)
	default:
		return nil, fmt.Errorf("llm: unsupported provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return newClient(caller, cfg), nil
}

func newClient(caller jsonCaller, cfg Config) *Client {
	minInterval := cfg.MinInterval
	if minInterval == 0 {
		minInterval = defaultMinInterval
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &Client{
		caller:      caller,
		minInterval: minInterval,
		maxAttempts: maxAttempts,
		sleep:       sleepContext,
	}
}

// Generate performs one paced call and decodes the returned records.
// Provider errors are retried with exponential backoff; a response that
// is not valid JSON is returned as an error without retry, since the
// caller owns the regeneration budget.
func (client *Client) Generate(ctx context.Context, req Request) ([]json.RawMessage, error) {
	var lastErr error
	for attempt := 0; attempt < client.maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<attempt) * time.Second
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			if err := client.sleep(ctx, backoff); err != nil {
				return nil, err
			}
		}
		if err := client.pace(ctx); err != nil {
			return nil, err
		}
		text, err := client.caller.Call(ctx, req.System, req.Prompt)
		if err != nil {
			lastErr = err
			continue
		}
		return DecodeRecords(text, req.WrapperKey)
	}
	return nil, fmt.Errorf("llm: %s failed after %d attempts: %w", client.caller.Name(), client.maxAttempts, lastErr)
}

// pace enforces the minimum interval between calls.
func (client *Client) pace(ctx context.Context) error {
	client.mu.Lock()
	wait := client.minInterval - time.Since(client.lastCall)
	if client.lastCall.IsZero() {
		wait = 0
	}
	client.lastCall = time.Now().Add(wait)
	client.mu.Unlock()
	if wait <= 0 {
		return nil
	}
	return client.sleep(ctx, wait)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// DecodeRecords extracts the record list from a model response. Markdown
// code fences are stripped first. Accepted shapes, in order: a wrapper
// object {key: [...]}, a bare array, and a single object (treated as a
// one-record list).
func DecodeRecords(text, key string) ([]json.RawMessage, error) {
	body := StripFences(text)
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("llm: empty response")
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &wrapper); err == nil {
		if inner, ok := wrapper[key]; ok {
			var records []json.RawMessage
			if err := json.Unmarshal(inner, &records); err == nil {
				return records, nil
			}
		}
		// A single object is treated as a one-record list.
		return []json.RawMessage{json.RawMessage(body)}, nil
	}

	var records []json.RawMessage
	if err := json.Unmarshal([]byte(body), &records); err == nil {
		return records, nil
	}
	return nil, fmt.Errorf("llm: response is not a JSON object or array")
}

// StripFences removes a surrounding markdown code fence, with or without
// a language tag, leaving other text untouched.
func StripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if i := strings.IndexByte(trimmed, '\n'); i >= 0 {
		first := strings.TrimSpace(trimmed[:i])
		if first == "" || isFenceTag(first) {
			trimmed = trimmed[i+1:]
		}
	}
	trimmed = strings.TrimSpace(trimmed)
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}

func isFenceTag(tag string) bool {
	for _, r := range tag {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
