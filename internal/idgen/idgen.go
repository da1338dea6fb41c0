package idgen

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	roomPrefix        = "voice_assistant_room_"
	participantPrefix = "voice_assistant_user_"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

func NewULID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), entropy).String()
}

// NewRoomName returns a real-time room name. Names are unique, not secret.
func NewRoomName() string {
	return roomPrefix + strings.ToLower(NewULID())
}

// NewParticipantIdentity returns the identity the candidate joins with.
func NewParticipantIdentity() string {
	return participantPrefix + strings.ToLower(NewULID())
}
