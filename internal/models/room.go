package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type InterviewType string

const (
	InterviewGeneral   InterviewType = "general"
	InterviewTechnical InterviewType = "technical"
	InterviewCustom    InterviewType = "custom"
)

func (t InterviewType) Valid() bool {
	switch t {
	case InterviewGeneral, InterviewTechnical, InterviewCustom:
		return true
	}
	return false
}

// MaxCustomParameters bounds how many extra fields an agent is asked to collect.
const MaxCustomParameters = 5

type CustomParameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

type Room struct {
	ID               uuid.UUID                            `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Title            string                               `gorm:"column:room_title;type:text;not null" json:"room_title"`
	JobPosting       string                               `gorm:"type:text" json:"job_posting"`
	InterviewType    InterviewType                        `gorm:"type:text;not null;default:'general'" json:"interview_type"`
	AIInstruction    *string                              `gorm:"type:text" json:"ai_instruction,omitempty"`
	IdealLength      int                                  `gorm:"not null;default:15" json:"ideal_length"`
	CustomParameters datatypes.JSONSlice[CustomParameter] `gorm:"type:jsonb" json:"custom_parameters,omitempty"`
	CreatedAt        time.Time                            `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time                            `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Room) TableName() string {
	return "rooms"
}

func (r *Room) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("room title is required")
	}
	if !r.InterviewType.Valid() {
		return fmt.Errorf("unknown interview type %q", r.InterviewType)
	}
	if r.IdealLength <= 0 {
		return fmt.Errorf("ideal length must be positive, got %d", r.IdealLength)
	}
	if len(r.CustomParameters) > MaxCustomParameters {
		return fmt.Errorf("at most %d custom parameters allowed, got %d", MaxCustomParameters, len(r.CustomParameters))
	}
	for i, p := range r.CustomParameters {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("custom parameter %d has no name", i)
		}
		switch p.Type {
		case "string", "number", "boolean":
		default:
			return fmt.Errorf("custom parameter %q has unsupported type %q", p.Name, p.Type)
		}
	}
	return nil
}

func (r *Room) BeforeSave(tx *gorm.DB) error {
	return r.Validate()
}
