package models

import "encoding/json"

type ConnectionDetailsRequest struct {
	RoomID      string `json:"roomId"`
	CandidateID string `json:"candidateId"`
}

type ConnectionDetails struct {
	ServerURL        string `json:"serverUrl"`
	RoomName         string `json:"roomName"`
	ParticipantName  string `json:"participantName"`
	ParticipantToken string `json:"participantToken"`
}

type InterviewResultRequest struct {
	RoomID         string          `json:"roomId"`
	CandidateID    string          `json:"candidateId"`
	SessionHistory json.RawMessage `json:"sessionHistory"`
	UsageMetrics   json.RawMessage `json:"usageMetrics"`
}

type InterviewResultResponse struct {
	ReportID string `json:"reportId"`
}

type JoinRoomResponse struct {
	CandidateID string          `json:"candidateId"`
	RoomID      string          `json:"roomId"`
	Status      CandidateStatus `json:"status"`
}

type ReportSearchHit struct {
	ReportID    string  `json:"reportId"`
	CandidateID string  `json:"candidateId"`
	Score       float32 `json:"score"`
	Excerpt     string  `json:"excerpt"`
}
