package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"prepple/interview-api/internal/apperr"
	"prepple/interview-api/internal/config"
	"prepple/interview-api/internal/logger"
)

type GeminiService interface {
	GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema) (string, error)
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// modelsAPI is the part of *genai.Models the service uses.
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

const (
	maxEmbeddingChars = 40000
	retryBaseDelay    = 500 * time.Millisecond
)

// sleep is replaced in tests.
var sleep = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type geminiService struct {
	models      modelsAPI
	modelName   string
	embedModel  string
	temperature float32
	maxRetries  int
	timeout     time.Duration
	log         *zap.Logger
}

func NewGeminiService(ctx context.Context, cfg config.GeminiConfig, log *zap.Logger) (GeminiService, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY is not set", apperr.ErrConfiguration)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create gemini client: %w", apperr.ErrConfiguration, err)
	}

	return newGeminiService(client.Models, cfg, log), nil
}

func newGeminiService(models modelsAPI, cfg config.GeminiConfig, log *zap.Logger) *geminiService {
	retries := cfg.MaxRetries
	if retries < 1 {
		retries = 1
	}
	return &geminiService{
		models:      models,
		modelName:   cfg.Model,
		embedModel:  cfg.EmbedModel,
		temperature: cfg.Temperature,
		maxRetries:  retries,
		timeout:     cfg.Timeout,
		log:         logger.OrNop(log).With(zap.String(logger.FieldModel, cfg.Model)),
	}
}

// Model implements GeminiService.
func (g *geminiService) Model() string {
	return g.modelName
}

// GenerateEmbedding implements GeminiService.
func (g *geminiService) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	// Embedding input is capped at roughly 10k tokens.
	if len(text) > maxEmbeddingChars {
		text = text[:maxEmbeddingChars]
	}

	result, err := g.models.EmbedContent(ctx, g.embedModel, genai.Text(text), nil)
	if err != nil {
		return nil, classifyGeminiError(ctx, fmt.Errorf("failed to generate embedding: %w", err))
	}

	if result == nil || len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("%w: empty embedding result", apperr.ErrUpstreamUnavailable)
	}

	return result.Embeddings[0].Values, nil
}

// GenerateJSON implements GeminiService. Each attempt gets its own timeout;
// only outages and rate limits are retried here.
func (g *geminiService) GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(g.temperature),
		TopP:             genai.Ptr[float32](0.95),
		TopK:             genai.Ptr[float32](40),
		MaxOutputTokens:  4096,
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}

	var lastErr error
	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		text, err := g.generateOnce(ctx, prompt, cfg)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if ctx.Err() != nil || !retryableUpstream(err) || attempt == g.maxRetries {
			break
		}

		delay := retryBaseDelay << (attempt - 1)
		g.log.Warn("gemini call failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		if err := sleep(ctx, delay); err != nil {
			return "", fmt.Errorf("%w: cancelled while backing off: %w", apperr.ErrUpstreamUnavailable, err)
		}
	}

	return "", lastErr
}

func (g *geminiService) generateOnce(ctx context.Context, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	started := time.Now()
	resp, err := g.models.GenerateContent(callCtx, g.modelName, genai.Text(prompt), cfg)
	if err != nil {
		return "", classifyGeminiError(callCtx, fmt.Errorf("failed to generate content: %w", err))
	}
	if resp == nil {
		return "", fmt.Errorf("%w: no response generated (nil response)", apperr.ErrMalformedOutput)
	}

	text := resp.Text()
	g.log.Debug("gemini response received",
		zap.Duration("elapsed", time.Since(started)),
		zap.String("preview", logger.Truncate(text, 200)),
	)
	if strings.TrimSpace(text) == "" {
		reason := "no text content in response"
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != "" {
			reason = fmt.Sprintf("%s (finish reason %s)", reason, resp.Candidates[0].FinishReason)
		}
		return "", fmt.Errorf("%w: %s", apperr.ErrMalformedOutput, reason)
	}

	return text, nil
}

// classifyGeminiError maps a failed call onto the error taxonomy. ctx is the
// context the call ran under, so a per-call timeout shows up as an outage.
func classifyGeminiError(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", apperr.ErrUpstreamUnavailable, err)
	}

	if code, ok := apiErrorCode(err); ok {
		if code == http.StatusTooManyRequests || code >= http.StatusInternalServerError {
			return fmt.Errorf("%w: %w", apperr.ErrUpstreamUnavailable, err)
		}
		// Remaining 4xx mean a bad key, model name or schema.
		return fmt.Errorf("%w: %w", apperr.ErrConfiguration, err)
	}

	return fmt.Errorf("%w: %w", apperr.ErrUpstreamUnavailable, err)
}

func apiErrorCode(err error) (int, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, true
	}
	return 0, false
}

// retryableUpstream excludes caller cancellation, which is reported as an
// outage but must not be retried.
func retryableUpstream(err error) bool {
	return errors.Is(err, apperr.ErrUpstreamUnavailable) && !errors.Is(err, context.Canceled)
}
