package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"prepple/interview-api/internal/apperr"
	"prepple/interview-api/internal/logger"
	"prepple/interview-api/internal/models"
)

type EvaluationClient interface {
	Evaluate(ctx context.Context, contract *EvaluationContract) (*models.EvaluationReport, error)
}

type evaluationClient struct {
	gemini            GeminiService
	prompts           *PromptBuilder
	correctiveRetries int
	log               *zap.Logger
}

// NewEvaluationClient wraps gemini with schema validation. correctiveRetries
// bounds how many times a contract-violating reply is re-requested.
func NewEvaluationClient(gemini GeminiService, correctiveRetries int, log *zap.Logger) EvaluationClient {
	if correctiveRetries < 0 {
		correctiveRetries = 0
	}
	return &evaluationClient{
		gemini:            gemini,
		prompts:           NewPromptBuilder(),
		correctiveRetries: correctiveRetries,
		log:               logger.OrNop(log),
	}
}

// Evaluate implements EvaluationClient.
func (c *evaluationClient) Evaluate(ctx context.Context, contract *EvaluationContract) (*models.EvaluationReport, error) {
	if contract == nil || contract.Schema == nil || strings.TrimSpace(contract.Prompt) == "" {
		return nil, fmt.Errorf("%w: evaluation contract is incomplete", apperr.ErrInput)
	}

	prompt := contract.Prompt
	var lastErr error
	for attempt := 0; attempt <= c.correctiveRetries; attempt++ {
		report, err := c.attempt(ctx, prompt, contract)
		if err == nil {
			return report, nil
		}
		lastErr = err

		if !errors.Is(err, apperr.ErrMalformedOutput) && !errors.Is(err, apperr.ErrSchemaViolation) {
			return nil, err
		}
		if attempt < c.correctiveRetries {
			c.log.Warn("model reply violated the report contract, asking again",
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			prompt = c.prompts.BuildCorrectivePrompt(contract.Prompt, err)
		}
	}

	return nil, lastErr
}

// attempt runs one generation. An empty or blocked reply surfaces from the
// generator as malformed output and is handled like an unparseable one.
func (c *evaluationClient) attempt(ctx context.Context, prompt string, contract *EvaluationContract) (*models.EvaluationReport, error) {
	raw, err := c.gemini.GenerateJSON(ctx, prompt, contract.Schema)
	if err != nil {
		return nil, err
	}
	return c.parse(raw, contract)
}

func (c *evaluationClient) parse(raw string, contract *EvaluationContract) (*models.EvaluationReport, error) {
	payload, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}

	repaired, repairs, err := ValidateAgainstSchema(payload, contract.Schema)
	if err != nil {
		c.log.Debug("rejected model reply", zap.String("preview", logger.Truncate(raw, 300)))
		return nil, err
	}
	for _, r := range repairs {
		c.log.Info("repaired model reply", zap.String("repair", r))
	}

	dec := json.NewDecoder(bytes.NewReader(repaired))
	dec.DisallowUnknownFields()

	var report models.EvaluationReport
	if err := dec.Decode(&report); err != nil {
		return nil, fmt.Errorf("%w: failed to decode report: %w", apperr.ErrMalformedOutput, err)
	}
	return &report, nil
}

// extractJSON strips markdown fences and any prose around the outermost
// JSON object.
func extractJSON(raw string) ([]byte, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```JSON")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object in response", apperr.ErrMalformedOutput)
	}
	return []byte(text[start : end+1]), nil
}
