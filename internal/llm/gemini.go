package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// GeminiConfig configures one Gemini client (one model tier).
type GeminiConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
}

// DefaultGeminiConfig returns sensible defaults for a model tier.
func DefaultGeminiConfig(apiKey, model string) GeminiConfig {
	return GeminiConfig{
		APIKey:      apiKey,
		BaseURL:     "https://generativelanguage.googleapis.com/v1beta",
		Model:       model,
		Temperature: 0.1,
		Timeout:     2 * time.Minute,
		MaxRetries:  3,
	}
}

// GeminiClient implements Client against the Gemini generateContent API.
// All calls pass through the shared rate limiter before hitting the wire.
type GeminiClient struct {
	cfg        GeminiConfig
	httpClient *http.Client
	limiter    *RateLimiter
	logger     *zap.Logger
}

// NewGeminiClient creates a client. The limiter is shared across tiers so the
// process-wide request budget holds; logger must be non-nil.
func NewGeminiClient(cfg GeminiConfig, limiter *RateLimiter, logger *zap.Logger) *GeminiClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &GeminiClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    limiter,
		logger:     logger,
	}
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends a system + user prompt and returns the model's text.
// Transient failures (network errors, 429) are retried with exponential
// backoff in the 2-30s range up to MaxRetries attempts.
func (c *GeminiClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if err := c.limiter.Acquire(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: userPrompt}}},
		},
		SystemInstruction: &geminiContent{
			Parts: []geminiPart{{Text: systemPrompt}},
		},
		GenerationConfig: geminiGenerationConfig{Temperature: c.cfg.Temperature},
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.cfg.BaseURL, c.cfg.Model, c.cfg.APIKey)

	start := time.Now()
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := min(time.Duration(2<<uint(attempt-1))*time.Second, 30*time.Second)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return "", fmt.Errorf("failed to marshal request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
		if err != nil {
			return "", fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = ErrRateLimited
			continue
		}
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error %d: %s", resp.StatusCode, truncate(string(body), 200))
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, truncate(string(body), 500))
		}

		var gr geminiResponse
		if err := json.Unmarshal(body, &gr); err != nil {
			return "", fmt.Errorf("failed to parse response: %w", err)
		}
		if gr.Error != nil {
			return "", fmt.Errorf("API error %d: %s", gr.Error.Code, gr.Error.Message)
		}
		if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
			return "", fmt.Errorf("no completion returned")
		}

		var sb bytes.Buffer
		for _, part := range gr.Candidates[0].Content.Parts {
			sb.WriteString(part.Text)
		}

		c.logger.Debug("llm call completed",
			zap.String("model", c.cfg.Model),
			zap.Duration("latency", time.Since(start)),
			zap.Int("attempt", attempt),
			zap.Int("response_len", sb.Len()))
		return sb.String(), nil
	}

	c.logger.Warn("llm call exhausted retries",
		zap.String("model", c.cfg.Model),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(lastErr))
	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
