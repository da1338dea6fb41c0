package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"prepple/interview-api/internal/apperr"
	"prepple/interview-api/internal/models"
)

const resumePlaceholder = "Resume not available"

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildInterviewEvaluationPrompt creates the prompt for one interview report.
// Inputs are embedded verbatim, so equal inputs give byte-identical prompts.
func (pb *PromptBuilder) BuildInterviewEvaluationPrompt(in EvaluationInput) (string, error) {
	transcript := "[]"
	if raw := bytes.TrimSpace(in.Transcript); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		var compact bytes.Buffer
		if err := json.Compact(&compact, raw); err != nil {
			return "", fmt.Errorf("%w: failed to serialize transcript: %w", apperr.ErrInput, err)
		}
		transcript = compact.String()
	}

	usage := "{}"
	if len(in.UsageMetrics) > 0 && string(in.UsageMetrics) != "null" {
		usage = string(in.UsageMetrics)
	}

	resume := strings.TrimSpace(in.ResumeText)
	if resume == "" {
		resume = resumePlaceholder
	}

	candidateName := strings.TrimSpace(in.CandidateName)
	if candidateName == "" {
		candidateName = "Unknown"
	}

	var optional strings.Builder
	if in.IdealLength > 0 {
		fmt.Fprintf(&optional, "IDEAL DURATION: %d minutes\n", in.IdealLength)
	}
	if instruction := strings.TrimSpace(in.AIInstruction); instruction != "" {
		fmt.Fprintf(&optional, "\nINTERVIEWER INSTRUCTIONS:\n%s\n", instruction)
	}

	return fmt.Sprintf(`You are an expert HR analyst evaluating an interview for Prepple AI, a platform that automates initial HR screening interviews.

JOB POSTING:
%s

CANDIDATE NAME: %s
POSITION: %s
INTERVIEW TYPE: %s
%s
CANDIDATE'S RESUME:
%s

INTERVIEW TRANSCRIPT:
%s

USAGE METRICS:
%s

Generate a comprehensive JSON report with the following structure:
{
  "tone_analysis": {
    "confidence_level": <0-100>,
    "communication_clarity": <0-100>,
    "enthusiasm": <0-100>,
    "professionalism": <0-100>
  },
  "performance_summary": "<2-3 paragraph narrative evaluation covering key strengths, areas of concern, and fit for the role>",
  "recommendation": "<one of: %s>",
  "interview_score": <0-100>,
  "key_highlights": ["<highlight 1>", "<highlight 2>", "<highlight 3>"],
  "areas_for_improvement": ["<area 1>", "<area 2>", "<area 3>"]
}

Evaluation Criteria:
- Relevance of candidate's responses to the job requirements
- Technical competency (especially for technical interviews)
- Communication skills and clarity
- Cultural fit indicators
- Professional demeanor and enthusiasm
- Time management (interview duration vs. ideal length)
- Alignment between resume experience and interview responses

Respond ONLY with valid JSON.`,
		in.JobPosting,
		candidateName,
		in.Position,
		in.InterviewType,
		optional.String(),
		resume,
		transcript,
		usage,
		recommendationList(),
	), nil
}

// BuildCorrectivePrompt resends the original prompt together with the reason
// the previous reply was rejected.
func (pb *PromptBuilder) BuildCorrectivePrompt(original string, cause error) string {
	return fmt.Sprintf(`%s

Your previous reply was rejected: %s.
Return a single JSON object that contains every required field, uses only the allowed recommendation values (%s), keeps every score between 0 and 100, and contains no other text.`,
		original, cause.Error(), recommendationList())
}

// BuildReportIndexText flattens a report into the text that gets embedded
// for recruiter search.
func (pb *PromptBuilder) BuildReportIndexText(report *models.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Recommendation: %s\nInterview score: %.0f\n\n", report.Recommendation, report.InterviewScore)
	b.WriteString(strings.TrimSpace(report.PerformanceSummary))

	if len(report.KeyHighlights) > 0 {
		b.WriteString("\n\nKey highlights:\n- ")
		b.WriteString(strings.Join(report.KeyHighlights, "\n- "))
	}
	if len(report.AreasForImprovement) > 0 {
		b.WriteString("\n\nAreas for improvement:\n- ")
		b.WriteString(strings.Join(report.AreasForImprovement, "\n- "))
	}

	return b.String()
}

func recommendationList() string {
	values := make([]string, 0, len(models.Recommendations))
	for _, r := range models.Recommendations {
		values = append(values, string(r))
	}
	return strings.Join(values, ", ")
}
