package models

import (
	"time"

	"github.com/google/uuid"
)

type CandidateStatus string

const (
	CandidatePending  CandidateStatus = "pending"
	CandidateAccepted CandidateStatus = "accepted"
	CandidateRejected CandidateStatus = "rejected"
)

type Candidate struct {
	ID     uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	RoomID uuid.UUID `gorm:"type:uuid;not null;index" json:"room_id"`
	Name   string    `gorm:"type:text" json:"name"`
	// ResumeURL is a storage reference inside the private bucket, never a public link.
	ResumeURL      string          `gorm:"type:text" json:"-"`
	Status         CandidateStatus `gorm:"type:text;not null;default:'pending'" json:"status"`
	InterviewScore *float64        `gorm:"type:decimal(5,2)" json:"interview_score,omitempty"`
	ReportID       *uuid.UUID      `gorm:"type:uuid" json:"report_id,omitempty"`
	CreatedAt      time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`

	Room Room `gorm:"foreignKey:RoomID" json:"-"`
}

func (Candidate) TableName() string {
	return "candidates"
}
