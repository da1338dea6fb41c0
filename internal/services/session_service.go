package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"prepple/interview-api/internal/apperr"
	"prepple/interview-api/internal/config"
	"prepple/interview-api/internal/idgen"
	"prepple/interview-api/internal/logger"
	"prepple/interview-api/internal/models"
	"prepple/interview-api/internal/repositories"
)

const participantName = "user"

// AgentMetadata is what the interview agent reads from its dispatch to
// bootstrap without touching the database.
type AgentMetadata struct {
	Room      AgentRoomContext      `json:"room"`
	Candidate AgentCandidateContext `json:"candidate"`
}

type AgentRoomContext struct {
	ID               uuid.UUID                `json:"id"`
	Title            string                   `json:"room_title"`
	InterviewType    models.InterviewType     `json:"interview_type"`
	JobPosting       string                   `json:"job_posting"`
	AIInstruction    *string                  `json:"ai_instruction"`
	IdealLength      int                      `json:"ideal_length"`
	CustomParameters []models.CustomParameter `json:"custom_parameters"`
}

type AgentCandidateContext struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	ResumeURL string    `json:"resume_url"`
}

type SessionService interface {
	ConnectionDetails(ctx context.Context, roomID, candidateID uuid.UUID) (*models.ConnectionDetails, error)
}

type sessionService struct {
	roomRepo      repositories.RoomRepository
	candidateRepo repositories.CandidateRepository
	broker        ResourceAccessBroker
	grants        SessionGrantIssuer
	log           *zap.Logger
}

func NewSessionService(
	roomRepo repositories.RoomRepository,
	candidateRepo repositories.CandidateRepository,
	broker ResourceAccessBroker,
	grants SessionGrantIssuer,
	log *zap.Logger,
) SessionService {
	return &sessionService{
		roomRepo:      roomRepo,
		candidateRepo: candidateRepo,
		broker:        broker,
		grants:        grants,
		log:           logger.OrNop(log),
	}
}

// ConnectionDetails implements SessionService. The résumé link embedded for
// the agent expires together with the participant token.
func (s *sessionService) ConnectionDetails(ctx context.Context, roomID, candidateID uuid.UUID) (*models.ConnectionDetails, error) {
	log := logger.ForPipeline(s.log, roomID.String(), candidateID.String())

	room, candidate, err := loadRoomAndCandidate(ctx, s.roomRepo, s.candidateRepo, roomID, candidateID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(candidate.ResumeURL) == "" {
		return nil, fmt.Errorf("%w: candidate %s has no resume on file", apperr.ErrAccessDenied, candidate.ID)
	}
	resume, err := s.broker.IssueAccess(ctx, candidate.ResumeURL, config.SessionTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign resume for agent: %w", err)
	}

	metadata, err := json.Marshal(AgentMetadata{
		Room: AgentRoomContext{
			ID:               room.ID,
			Title:            room.Title,
			InterviewType:    room.InterviewType,
			JobPosting:       room.JobPosting,
			AIInstruction:    room.AIInstruction,
			IdealLength:      room.IdealLength,
			CustomParameters: room.CustomParameters,
		},
		Candidate: AgentCandidateContext{
			ID:        candidate.ID,
			Name:      candidate.Name,
			ResumeURL: resume.URL,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode agent metadata: %w", err)
	}

	grant, err := s.grants.IssueGrant(idgen.NewParticipantIdentity(), participantName, idgen.NewRoomName(), string(metadata))
	if err != nil {
		return nil, err
	}

	log.Info("session grant issued",
		zap.String("livekit_room", grant.RoomName),
		zap.Time("expires_at", grant.ExpiresAt),
	)

	return &models.ConnectionDetails{
		ServerURL:        s.grants.ServerURL(),
		RoomName:         grant.RoomName,
		ParticipantName:  grant.ParticipantName,
		ParticipantToken: grant.Token,
	}, nil
}

// loadRoomAndCandidate fetches both records concurrently and checks that the
// candidate belongs to the room.
func loadRoomAndCandidate(
	ctx context.Context,
	roomRepo repositories.RoomRepository,
	candidateRepo repositories.CandidateRepository,
	roomID, candidateID uuid.UUID,
) (*models.Room, *models.Candidate, error) {
	var (
		room      *models.Room
		candidate *models.Candidate
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		room, err = roomRepo.FindByID(gctx, roomID)
		return err
	})
	g.Go(func() error {
		var err error
		candidate, err = candidateRepo.FindByID(gctx, candidateID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	if candidate.RoomID != room.ID {
		return nil, nil, fmt.Errorf("%w: candidate %s is not part of room %s", apperr.ErrNotFound, candidate.ID, room.ID)
	}
	return room, candidate, nil
}
