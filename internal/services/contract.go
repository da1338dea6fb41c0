package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"prepple/interview-api/internal/apperr"
	"prepple/interview-api/internal/models"
)

// EvaluationInput carries everything the evaluator may see about one interview.
type EvaluationInput struct {
	JobPosting    string
	CandidateName string
	Position      string
	InterviewType models.InterviewType
	IdealLength   int
	AIInstruction string
	ResumeText    string
	// Transcript is the agent's session history as sent, any JSON shape.
	// Empty means the candidate never spoke.
	Transcript   json.RawMessage
	UsageMetrics json.RawMessage
}

// EvaluationContract pairs the prompt with the schema the reply must satisfy.
type EvaluationContract struct {
	Prompt string
	Schema *genai.Schema
}

type ContractBuilder interface {
	Build(input EvaluationInput) (*EvaluationContract, error)
}

type contractBuilder struct {
	prompts *PromptBuilder
	schema  *genai.Schema
}

func NewContractBuilder() ContractBuilder {
	return &contractBuilder{
		prompts: NewPromptBuilder(),
		schema:  ReportSchema(),
	}
}

// Build implements ContractBuilder.
func (b *contractBuilder) Build(input EvaluationInput) (*EvaluationContract, error) {
	if strings.TrimSpace(input.JobPosting) == "" && strings.TrimSpace(input.Position) == "" {
		return nil, fmt.Errorf("%w: job posting and position are both empty", apperr.ErrInput)
	}
	if len(bytes.TrimSpace(input.Transcript)) > 0 && !json.Valid(input.Transcript) {
		return nil, fmt.Errorf("%w: transcript is not valid JSON", apperr.ErrInput)
	}
	if len(input.UsageMetrics) > 0 && !json.Valid(input.UsageMetrics) {
		return nil, fmt.Errorf("%w: usage metrics are not valid JSON", apperr.ErrInput)
	}

	prompt, err := b.prompts.BuildInterviewEvaluationPrompt(input)
	if err != nil {
		return nil, err
	}

	return &EvaluationContract{Prompt: prompt, Schema: b.schema}, nil
}

const (
	scoreMin = 0
	scoreMax = 100
)

// Report schema property names. They match the json tags on
// models.EvaluationReport.
const (
	fieldToneAnalysis         = "tone_analysis"
	fieldConfidenceLevel      = "confidence_level"
	fieldCommunicationClarity = "communication_clarity"
	fieldEnthusiasm           = "enthusiasm"
	fieldProfessionalism      = "professionalism"
	fieldPerformanceSummary   = "performance_summary"
	fieldRecommendation       = "recommendation"
	fieldInterviewScore       = "interview_score"
	fieldKeyHighlights        = "key_highlights"
	fieldAreasForImprovement  = "areas_for_improvement"
)

func scoreSchema(description string) *genai.Schema {
	return &genai.Schema{
		Type:        genai.TypeNumber,
		Description: description,
		Minimum:     genai.Ptr[float64](scoreMin),
		Maximum:     genai.Ptr[float64](scoreMax),
	}
}

// ReportSchema is the single definition of a valid evaluation. It is sent to
// Gemini as the response schema and used again to validate the reply.
func ReportSchema() *genai.Schema {
	recommendations := make([]string, 0, len(models.Recommendations))
	for _, r := range models.Recommendations {
		recommendations = append(recommendations, string(r))
	}

	toneFields := []string{fieldConfidenceLevel, fieldCommunicationClarity, fieldEnthusiasm, fieldProfessionalism}
	topFields := []string{
		fieldToneAnalysis,
		fieldPerformanceSummary,
		fieldRecommendation,
		fieldInterviewScore,
		fieldKeyHighlights,
		fieldAreasForImprovement,
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			fieldToneAnalysis: {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					fieldConfidenceLevel:      scoreSchema("Candidate confidence level from 0-100"),
					fieldCommunicationClarity: scoreSchema("Communication clarity score from 0-100"),
					fieldEnthusiasm:           scoreSchema("Enthusiasm level from 0-100"),
					fieldProfessionalism:      scoreSchema("Professionalism score from 0-100"),
				},
				Required:         toneFields,
				PropertyOrdering: toneFields,
			},
			fieldPerformanceSummary: {
				Type:        genai.TypeString,
				Description: "2-3 paragraph narrative evaluation of candidate performance",
			},
			fieldRecommendation: {
				Type:        genai.TypeString,
				Description: "HR hiring recommendation",
				Enum:        recommendations,
			},
			fieldInterviewScore: scoreSchema("Overall interview score from 0-100"),
			fieldKeyHighlights: {
				Type:        genai.TypeArray,
				Description: "Key positive highlights from the interview",
				Items:       &genai.Schema{Type: genai.TypeString},
			},
			fieldAreasForImprovement: {
				Type:        genai.TypeArray,
				Description: "Areas where candidate can improve",
				Items:       &genai.Schema{Type: genai.TypeString},
			},
		},
		Required:         topFields,
		PropertyOrdering: topFields,
	}
}
