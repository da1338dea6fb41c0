package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/livekit/protocol/auth"
	"github.com/livekit/protocol/livekit"

	"prepple/interview-api/internal/apperr"
	"prepple/interview-api/internal/config"
)

// GrantClaims is a verified participant token: the registered claims plus
// the LiveKit grants it carries.
type GrantClaims struct {
	jwt.RegisteredClaims
	Grants auth.ClaimGrants
}

// AgentMetadata returns the metadata attached for the dispatched agent.
func (c *GrantClaims) AgentMetadata() string {
	if c.Grants.RoomConfig == nil || len(c.Grants.RoomConfig.Agents) == 0 {
		return ""
	}
	return c.Grants.RoomConfig.Agents[0].Metadata
}

type SessionGrant struct {
	Identity        string
	ParticipantName string
	RoomName        string
	Metadata        string
	Capabilities    auth.VideoGrant
	IssuedAt        time.Time
	ExpiresAt       time.Time
	Token           string
}

type SessionGrantIssuer interface {
	IssueGrant(identity, participantName, roomName, agentMetadata string) (*SessionGrant, error)
	VerifyGrant(token string) (*GrantClaims, error)
	ServerURL() string
}

type sessionGrantIssuer struct {
	serverURL string
	apiKey    string
	apiSecret []byte
	agentName string
	now       func() time.Time
}

// NewSessionGrantIssuer fails fast when signing material is missing so a
// misconfigured deployment never reaches the first join.
func NewSessionGrantIssuer(cfg config.LiveKitConfig) (SessionGrantIssuer, error) {
	issuer := &sessionGrantIssuer{
		serverURL: strings.TrimSpace(cfg.URL),
		apiKey:    strings.TrimSpace(cfg.APIKey),
		apiSecret: []byte(cfg.APISecret),
		agentName: cfg.AgentName,
		now:       time.Now,
	}
	if err := issuer.checkConfig(); err != nil {
		return nil, err
	}
	return issuer, nil
}

func (s *sessionGrantIssuer) checkConfig() error {
	var missing []string
	if s.serverURL == "" {
		missing = append(missing, "LIVEKIT_URL")
	}
	if s.apiKey == "" {
		missing = append(missing, "LIVEKIT_API_KEY")
	}
	if len(s.apiSecret) == 0 {
		missing = append(missing, "LIVEKIT_API_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s not set", apperr.ErrConfiguration, strings.Join(missing, ", "))
	}
	return nil
}

func (s *sessionGrantIssuer) ServerURL() string {
	return s.serverURL
}

// IssueGrant implements SessionGrantIssuer.
func (s *sessionGrantIssuer) IssueGrant(identity, participantName, roomName, agentMetadata string) (*SessionGrant, error) {
	if err := s.checkConfig(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(identity) == "" || strings.TrimSpace(roomName) == "" {
		return nil, fmt.Errorf("%w: identity and room name are required", apperr.ErrInput)
	}

	issuedAt := s.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(config.SessionTokenTTL)

	// Only room-scoped participant capabilities; admin and cross-room
	// grants are never set.
	video := auth.VideoGrant{
		Room:     roomName,
		RoomJoin: true,
	}
	video.SetCanPublish(true)
	video.SetCanPublishData(true)
	video.SetCanSubscribe(true)

	at := auth.NewAccessToken(s.apiKey, string(s.apiSecret)).
		SetIdentity(identity).
		SetName(participantName).
		SetValidFor(expiresAt.Sub(issuedAt)).
		SetVideoGrant(&video)
	if agentMetadata != "" {
		at.SetRoomConfig(&livekit.RoomConfiguration{
			Agents: []*livekit.RoomAgentDispatch{{AgentName: s.agentName, Metadata: agentMetadata}},
		})
	}

	token, err := at.ToJWT()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to sign participant token: %w", apperr.ErrConfiguration, err)
	}

	return &SessionGrant{
		Identity:        identity,
		ParticipantName: participantName,
		RoomName:        roomName,
		Metadata:        agentMetadata,
		Capabilities:    video,
		IssuedAt:        issuedAt,
		ExpiresAt:       expiresAt,
		Token:           token,
	}, nil
}

// VerifyGrant implements SessionGrantIssuer.
func (s *sessionGrantIssuer) VerifyGrant(token string) (*GrantClaims, error) {
	var claims GrantClaims
	_, err := jwt.ParseWithClaims(token, &claims.RegisteredClaims, func(t *jwt.Token) (interface{}, error) {
		return s.apiSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.apiKey),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid participant token: %w", apperr.ErrAuth, err)
	}

	// The signature is valid, so the token has exactly three segments.
	payload, err := jwt.NewParser().DecodeSegment(strings.Split(token, ".")[1])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid participant token payload: %w", apperr.ErrAuth, err)
	}
	if err := json.Unmarshal(payload, &claims.Grants); err != nil {
		return nil, fmt.Errorf("%w: invalid participant grants: %w", apperr.ErrAuth, err)
	}
	return &claims, nil
}
