package services

import (
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"testing"

	"google.golang.org/genai"

	"prepple/interview-api/internal/apperr"
	"prepple/interview-api/internal/models"
)

func sampleInput() EvaluationInput {
	return EvaluationInput{
		JobPosting:    "Senior Go Engineer",
		CandidateName: "Jane Doe",
		Position:      "Backend Engineer",
		InterviewType: models.InterviewTechnical,
		IdealLength:   20,
		ResumeText:    "Built payment pipelines in Go.",
		Transcript: json.RawMessage(`[
			{"role":"assistant","content":"Tell me about yourself."},
			{"role":"user","content":"I write Go."}
		]`),
		UsageMetrics: json.RawMessage(`{"duration_seconds":1180}`),
	}
}

func TestBuildEmbedsLabelledSections(t *testing.T) {
	contract, err := NewContractBuilder().Build(sampleInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{
		"JOB POSTING:\nSenior Go Engineer",
		"CANDIDATE NAME: Jane Doe",
		"POSITION: Backend Engineer",
		"INTERVIEW TYPE: technical",
		"IDEAL DURATION: 20 minutes",
		"CANDIDATE'S RESUME:\nBuilt payment pipelines in Go.",
		`INTERVIEW TRANSCRIPT:` + "\n" + `[{"role":"assistant","content":"Tell me about yourself."},{"role":"user","content":"I write Go."}]`,
		`USAGE METRICS:` + "\n" + `{"duration_seconds":1180}`,
		"Respond ONLY with valid JSON.",
	} {
		if !strings.Contains(contract.Prompt, want) {
			t.Fatalf("prompt is missing %q:\n%s", want, contract.Prompt)
		}
	}
	if strings.Contains(contract.Prompt, "INTERVIEWER INSTRUCTIONS") {
		t.Fatal("instructions section must be omitted when empty")
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	builder := NewContractBuilder()
	first, err := builder.Build(sampleInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := builder.Build(sampleInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Prompt != second.Prompt {
		t.Fatal("same input must produce the same prompt")
	}
}

func TestBuildUsesPlaceholderWithoutResume(t *testing.T) {
	input := sampleInput()
	input.ResumeText = "   \n"
	input.AIInstruction = "Focus on concurrency."

	contract, err := NewContractBuilder().Build(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(contract.Prompt, "CANDIDATE'S RESUME:\nResume not available") {
		t.Fatalf("expected placeholder, got:\n%s", contract.Prompt)
	}
	if !strings.Contains(contract.Prompt, "INTERVIEWER INSTRUCTIONS:\nFocus on concurrency.") {
		t.Fatal("expected interviewer instructions")
	}
}

func TestBuildRejectsInvalidInput(t *testing.T) {
	cases := map[string]func(*EvaluationInput){
		"broken transcript":    func(in *EvaluationInput) { in.Transcript = json.RawMessage(`[{"role":`) },
		"broken usage":         func(in *EvaluationInput) { in.UsageMetrics = json.RawMessage(`{`) },
		"no posting, no title": func(in *EvaluationInput) { in.JobPosting, in.Position = "", " " },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			input := sampleInput()
			mutate(&input)
			if _, err := NewContractBuilder().Build(input); !errors.Is(err, apperr.ErrInput) {
				t.Fatalf("expected input error, got %v", err)
			}
		})
	}
}

func TestReportSchemaShape(t *testing.T) {
	schema := ReportSchema()

	wantTop := []string{"tone_analysis", "performance_summary", "recommendation", "interview_score", "key_highlights", "areas_for_improvement"}
	if !slices.Equal(schema.Required, wantTop) {
		t.Fatalf("unexpected required fields %v", schema.Required)
	}
	if len(schema.Properties) != len(wantTop) {
		t.Fatalf("schema must not declare extra properties, got %d", len(schema.Properties))
	}

	tone := schema.Properties["tone_analysis"]
	if tone.Type != genai.TypeObject || len(tone.Required) != 4 {
		t.Fatalf("unexpected tone schema %+v", tone)
	}
	for _, key := range tone.Required {
		s := tone.Properties[key]
		if s.Type != genai.TypeNumber || *s.Minimum != 0 || *s.Maximum != 100 {
			t.Fatalf("%s must be a 0-100 number", key)
		}
	}

	rec := schema.Properties["recommendation"]
	if !slices.Equal(rec.Enum, []string{"strongly_recommend", "recommend", "neutral", "not_recommend"}) {
		t.Fatalf("unexpected enum %v", rec.Enum)
	}
	if schema.Properties["key_highlights"].Items.Type != genai.TypeString {
		t.Fatal("key_highlights must be an array of strings")
	}
}

func TestBuildAcceptsSilentInterview(t *testing.T) {
	for name, transcript := range map[string]json.RawMessage{
		"empty array": json.RawMessage(`[]`),
		"absent":      nil,
		"null":        json.RawMessage(`null`),
	} {
		t.Run(name, func(t *testing.T) {
			input := sampleInput()
			input.Transcript = transcript

			contract, err := NewContractBuilder().Build(input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(contract.Prompt, "INTERVIEW TRANSCRIPT:\n[]\n") {
				t.Fatalf("expected an empty transcript section:\n%s", contract.Prompt)
			}
		})
	}
}
