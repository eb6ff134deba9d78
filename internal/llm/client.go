// Package llm is the boundary to the external reasoning capability. The core
// depends only on the Client interface; the Gemini implementation here is one
// provider behind it. Calls are rate-limited through a shared sliding-window
// limiter and retried with exponential backoff on transient failure.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Client is the minimal interface the agents use to call a reasoning model.
type Client interface {
	// Complete sends a system + user prompt pair and returns raw text.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ErrRateLimited marks a provider 429; the retry loop treats it as transient.
var ErrRateLimited = errors.New("rate limit exceeded")

// DecodeError reports that the model produced output that does not satisfy
// the requested schema. The decoding mechanism is an implementation detail;
// callers only rely on this typed error.
type DecodeError struct {
	Schema string
	Raw    string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("structured output does not match schema %s: %v", e.Schema, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// GenerateStructured invokes the client and decodes the response into T.
// The prompt is annotated to demand a single JSON object; the response is
// stripped of code fences and trailing prose before decoding. Malformed
// output returns a *DecodeError.
func GenerateStructured[T any](ctx context.Context, c Client, systemPrompt, userPrompt string) (T, error) {
	var out T

	system := systemPrompt + "\n\nRespond with a single JSON object only. No markdown fences, no commentary."
	raw, err := c.Complete(ctx, system, userPrompt)
	if err != nil {
		return out, err
	}

	payload := extractJSON(raw)
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return out, &DecodeError{Schema: fmt.Sprintf("%T", out), Raw: raw, Err: err}
	}
	return out, nil
}

// extractJSON trims markdown fences and isolates the outermost JSON value.
// Models occasionally wrap JSON in ```json fences or prepend a sentence.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return s
	}
	open := s[start]
	var close byte = '}'
	if open == '[' {
		close = ']'
	}
	end := strings.LastIndexByte(s, close)
	if end <= start {
		return s
	}
	return s[start : end+1]
}
