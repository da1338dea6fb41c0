package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Recommendation string

const (
	StronglyRecommend Recommendation = "strongly_recommend"
	Recommend         Recommendation = "recommend"
	Neutral           Recommendation = "neutral"
	NotRecommend      Recommendation = "not_recommend"
)

var Recommendations = []Recommendation{StronglyRecommend, Recommend, Neutral, NotRecommend}

type ToneAnalysis struct {
	ConfidenceLevel      float64 `json:"confidence_level"`
	CommunicationClarity float64 `json:"communication_clarity"`
	Enthusiasm           float64 `json:"enthusiasm"`
	Professionalism      float64 `json:"professionalism"`
}

// EvaluationReport is the validated model output, field-for-field the
// response schema sent to the generation service.
type EvaluationReport struct {
	ToneAnalysis        ToneAnalysis   `json:"tone_analysis"`
	PerformanceSummary  string         `json:"performance_summary"`
	Recommendation      Recommendation `json:"recommendation"`
	InterviewScore      float64        `json:"interview_score"`
	KeyHighlights       []string       `json:"key_highlights"`
	AreasForImprovement []string       `json:"areas_for_improvement"`
}

type Report struct {
	ID                  uuid.UUID                        `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	CandidateID         uuid.UUID                        `gorm:"type:uuid;not null;index" json:"candidate_id"`
	ToneAnalysis        datatypes.JSONType[ToneAnalysis] `gorm:"type:jsonb;not null" json:"tone_analysis"`
	PerformanceSummary  string                           `gorm:"type:text;not null" json:"performance_summary"`
	Recommendation      Recommendation                   `gorm:"type:text;not null" json:"recommendation"`
	InterviewScore      float64                          `gorm:"type:decimal(5,2);not null" json:"interview_score"`
	KeyHighlights       datatypes.JSONSlice[string]      `gorm:"type:jsonb;not null" json:"key_highlights"`
	AreasForImprovement datatypes.JSONSlice[string]      `gorm:"type:jsonb;not null" json:"areas_for_improvement"`
	CreatedAt           time.Time                        `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Report) TableName() string {
	return "reports"
}

func NewReport(candidateID uuid.UUID, eval *EvaluationReport, now time.Time) *Report {
	return &Report{
		ID:                  uuid.New(),
		CandidateID:         candidateID,
		ToneAnalysis:        datatypes.NewJSONType(eval.ToneAnalysis),
		PerformanceSummary:  eval.PerformanceSummary,
		Recommendation:      eval.Recommendation,
		InterviewScore:      eval.InterviewScore,
		KeyHighlights:       datatypes.NewJSONSlice(eval.KeyHighlights),
		AreasForImprovement: datatypes.NewJSONSlice(eval.AreasForImprovement),
		CreatedAt:           now,
	}
}

// DuplicateReportPolicy decides what happens when a candidate that already
// has a report finishes another interview.
type DuplicateReportPolicy string

const (
	DuplicateAllow   DuplicateReportPolicy = "allow"
	DuplicateReject  DuplicateReportPolicy = "reject"
	DuplicateReplace DuplicateReportPolicy = "replace"
)
