package ai

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"lectorgastos/internal/config"
)

const geminiMaxAttempts = 3

// Generator sends one prompt to a text model and returns its reply.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type GeminiGenerator struct {
	client  *genai.Client
	model   string
	limiter *RateLimiter
	timeout time.Duration
}

func NewGeminiGenerator(ctx context.Context, cfg config.Config) (*GeminiGenerator, error) {
	if err := cfg.Require("GEMINI_API_KEY", cfg.GeminiAPIKey); err != nil {
		return nil, err
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	model := strings.TrimSpace(cfg.GeminiModel)
	if model == "" {
		model = "gemini-1.5-flash"
	}
	timeout := time.Duration(cfg.GeminiTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &GeminiGenerator{
		client:  client,
		model:   model,
		limiter: NewRateLimiter(cfg.GeminiRateLimitRPS),
		timeout: timeout,
	}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	temperature := float32(0.1)
	genCfg := &genai.GenerateContentConfig{Temperature: &temperature}

	var lastErr error
	for attempt := 1; attempt <= geminiMaxAttempts; attempt++ {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", err
		}

		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		resp, err := g.client.Models.GenerateContent(callCtx, g.model, genai.Text(prompt), genCfg)
		cancel()
		if err == nil {
			return strings.TrimSpace(resp.Text()), nil
		}

		lastErr = err
		if !isRetryable(err) || attempt == geminiMaxAttempts {
			break
		}
		backoff := time.Duration(500*(1<<(attempt-1))+rand.Intn(250)) * time.Millisecond
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}
	return "", fmt.Errorf("gemini generate: %w", lastErr)
}

func isRetryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return isRetryableStatus(apiErr.Code)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return isRetryableStatus(apiErrPtr.Code)
	}
	return false
}

func isRetryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
