package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"prepple/interview-api/internal/apperr"
	"prepple/interview-api/internal/models"
)

func newSessionFixture(t *testing.T, resumeRef string) (*coordinatorFixture, SessionGrantIssuer, SessionService) {
	t.Helper()
	f := newCoordinatorFixture(resumeRef)
	instruction := "Ask about distributed systems."
	f.room.AIInstruction = &instruction
	f.room.CustomParameters = []models.CustomParameter{{Name: "notice_period", Type: "number", Description: "Weeks of notice"}}

	issuer, err := NewSessionGrantIssuer(testLiveKitConfig())
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	svc := NewSessionService(
		&fakeRoomRepo{rooms: map[uuid.UUID]*models.Room{f.room.ID: f.room}},
		f.candidates,
		f.broker,
		issuer,
		zap.NewNop(),
	)
	return f, issuer, svc
}

func TestConnectionDetailsMetadataRoundTrip(t *testing.T) {
	f, issuer, svc := newSessionFixture(t, "resumes/jane.pdf")

	details, err := svc.ConnectionDetails(context.Background(), f.room.ID, f.candidate.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if details.ServerURL != "wss://prepple.livekit.cloud" || details.ParticipantName != "user" {
		t.Fatalf("unexpected details %+v", details)
	}
	if !strings.HasPrefix(details.RoomName, "voice_assistant_room_") {
		t.Fatalf("unexpected room name %q", details.RoomName)
	}

	claims, err := issuer.VerifyGrant(details.ParticipantToken)
	if err != nil {
		t.Fatalf("token should verify: %v", err)
	}
	if claims.Grants.Video == nil || claims.Grants.Video.Room != details.RoomName || !strings.HasPrefix(claims.Subject, "voice_assistant_user_") {
		t.Fatalf("token not bound to the session: %+v", claims)
	}
	if exp := claims.ExpiresAt.Time; !exp.After(time.Now()) || time.Until(exp) > 15*time.Minute {
		t.Fatalf("unexpected expiry %s", exp)
	}

	var meta AgentMetadata
	if err := json.Unmarshal([]byte(claims.AgentMetadata()), &meta); err != nil {
		t.Fatalf("metadata is not JSON: %v", err)
	}
	if meta.Room.ID != f.room.ID || meta.Candidate.ID != f.candidate.ID {
		t.Fatalf("identifiers did not round-trip: %+v", meta)
	}
	if meta.Room.JobPosting != "Senior Go Engineer" || *meta.Room.AIInstruction != "Ask about distributed systems." {
		t.Fatalf("room context missing: %+v", meta.Room)
	}
	if len(meta.Room.CustomParameters) != 1 || meta.Candidate.Name != "Jane Doe" {
		t.Fatalf("unexpected metadata %+v", meta)
	}
	if meta.Candidate.ResumeURL != "https://files.test/resumes/jane.pdf?token=signed" {
		t.Fatalf("expected signed resume url, got %q", meta.Candidate.ResumeURL)
	}
	if f.broker.ttls[0] != 15*time.Minute {
		t.Fatalf("resume link must live as long as the token, got %s", f.broker.ttls[0])
	}
}

func TestConnectionDetailsFreshNamesPerCall(t *testing.T) {
	f, _, svc := newSessionFixture(t, "resumes/jane.pdf")

	a, err := svc.ConnectionDetails(context.Background(), f.room.ID, f.candidate.ID)
	if err != nil {
		t.Fatal(err)
	}
	b, err := svc.ConnectionDetails(context.Background(), f.room.ID, f.candidate.ID)
	if err != nil {
		t.Fatal(err)
	}
	if a.RoomName == b.RoomName || a.ParticipantToken == b.ParticipantToken {
		t.Fatal("each join must get its own room and token")
	}
}

func TestConnectionDetailsFailures(t *testing.T) {
	t.Run("unknown room", func(t *testing.T) {
		f, _, svc := newSessionFixture(t, "resumes/jane.pdf")
		if _, err := svc.ConnectionDetails(context.Background(), uuid.New(), f.candidate.ID); !errors.Is(err, apperr.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("candidate from another room", func(t *testing.T) {
		f, _, svc := newSessionFixture(t, "resumes/jane.pdf")
		f.candidates.candidates[f.candidate.ID].RoomID = uuid.New()
		if _, err := svc.ConnectionDetails(context.Background(), f.room.ID, f.candidate.ID); !errors.Is(err, apperr.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("no resume", func(t *testing.T) {
		f, _, svc := newSessionFixture(t, "")
		if _, err := svc.ConnectionDetails(context.Background(), f.room.ID, f.candidate.ID); !errors.Is(err, apperr.ErrAccessDenied) {
			t.Fatalf("expected access denied, got %v", err)
		}
	})

	t.Run("broker failure", func(t *testing.T) {
		f, _, svc := newSessionFixture(t, "resumes/jane.pdf")
		f.broker.err = apperr.ErrConfiguration
		if _, err := svc.ConnectionDetails(context.Background(), f.room.ID, f.candidate.ID); !errors.Is(err, apperr.ErrConfiguration) {
			t.Fatalf("expected configuration error, got %v", err)
		}
	})
}
