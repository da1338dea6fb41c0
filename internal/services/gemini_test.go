package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"prepple/interview-api/internal/apperr"
	"prepple/interview-api/internal/config"
)

type scriptedCall struct {
	resp *genai.GenerateContentResponse
	err  error
}

type fakeModels struct {
	calls   []scriptedCall
	configs []*genai.GenerateContentConfig
	embed   *genai.EmbedContentResponse
}

func (f *fakeModels) GenerateContent(_ context.Context, _ string, _ []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.configs = append(f.configs, cfg)
	if len(f.calls) == 0 {
		return nil, errors.New("unexpected call")
	}
	next := f.calls[0]
	f.calls = f.calls[1:]
	return next.resp, next.err
}

func (f *fakeModels) EmbedContent(context.Context, string, []*genai.Content, *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	return f.embed, nil
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func noSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var delays []time.Duration
	orig := sleep
	sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	t.Cleanup(func() { sleep = orig })
	return &delays
}

func testGeminiConfig(retries int) config.GeminiConfig {
	return config.GeminiConfig{
		Model:       "gemini-test",
		EmbedModel:  "embed-test",
		Temperature: 0.4,
		MaxRetries:  retries,
		Timeout:     time.Second,
	}
}

func TestGenerateJSONSendsContract(t *testing.T) {
	noSleep(t)
	models := &fakeModels{calls: []scriptedCall{{resp: textResponse(`{"ok":true}`)}}}
	g := newGeminiService(models, testGeminiConfig(3), zap.NewNop())

	schema := ReportSchema()
	text, err := g.GenerateJSON(context.Background(), "prompt", schema)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != `{"ok":true}` {
		t.Fatalf("unexpected text %q", text)
	}

	cfg := models.configs[0]
	if cfg.ResponseMIMEType != "application/json" || cfg.ResponseSchema != schema {
		t.Fatalf("contract not sent: %+v", cfg)
	}
	if *cfg.Temperature != 0.4 || *cfg.TopP != 0.95 || *cfg.TopK != 40 {
		t.Fatalf("unexpected sampling parameters %v %v %v", *cfg.Temperature, *cfg.TopP, *cfg.TopK)
	}
}

func TestGenerateJSONRetriesOutages(t *testing.T) {
	delays := noSleep(t)
	models := &fakeModels{calls: []scriptedCall{
		{err: genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}},
		{err: genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED"}},
		{resp: textResponse(`{}`)},
	}}
	g := newGeminiService(models, testGeminiConfig(3), zap.NewNop())

	if _, err := g.GenerateJSON(context.Background(), "prompt", ReportSchema()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(*delays) != 2 || (*delays)[1] != 2*(*delays)[0] {
		t.Fatalf("expected exponential backoff, got %v", *delays)
	}
}

func TestGenerateJSONGivesUpAfterMaxRetries(t *testing.T) {
	noSleep(t)
	outage := genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}
	models := &fakeModels{calls: []scriptedCall{{err: outage}, {err: outage}}}
	g := newGeminiService(models, testGeminiConfig(2), zap.NewNop())

	_, err := g.GenerateJSON(context.Background(), "prompt", ReportSchema())
	if !errors.Is(err, apperr.ErrUpstreamUnavailable) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if len(models.configs) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(models.configs))
	}
}

func TestGenerateJSONDoesNotRetryClientErrors(t *testing.T) {
	noSleep(t)
	models := &fakeModels{calls: []scriptedCall{
		{err: genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"}},
	}}
	g := newGeminiService(models, testGeminiConfig(3), zap.NewNop())

	_, err := g.GenerateJSON(context.Background(), "prompt", ReportSchema())
	if !errors.Is(err, apperr.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if len(models.configs) != 1 {
		t.Fatalf("expected a single attempt, got %d", len(models.configs))
	}
}

func TestGenerateJSONEmptyReplyIsMalformed(t *testing.T) {
	noSleep(t)
	models := &fakeModels{calls: []scriptedCall{{resp: textResponse("  ")}}}
	g := newGeminiService(models, testGeminiConfig(3), zap.NewNop())

	if _, err := g.GenerateJSON(context.Background(), "prompt", ReportSchema()); !errors.Is(err, apperr.ErrMalformedOutput) {
		t.Fatalf("expected malformed output, got %v", err)
	}
}

func TestClassifyTimeoutAsOutage(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	err := classifyGeminiError(ctx, errors.New("transport closed"))
	if !errors.Is(err, apperr.ErrUpstreamUnavailable) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestGenerateEmbedding(t *testing.T) {
	models := &fakeModels{embed: &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{{Values: []float32{0.1, 0.2}}},
	}}
	g := newGeminiService(models, testGeminiConfig(1), zap.NewNop())

	values, err := g.GenerateEmbedding(context.Background(), "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(values) != 2 {
		t.Fatalf("unexpected embedding %v", values)
	}
}
