package objects

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is one row of the append-only message log attached to an
// active exchange. The whole log is dropped when the exchange is finalized.
type ChatMessage struct {
	ID        string // uuid
	MatchID   int64
	SenderID  int64 // 0 for system messages
	Body      string
	CreatedAt time.Time
}

// NewChatMessage creates a message from a participant.
func NewChatMessage(matchID, senderID int64, body string) *ChatMessage {
	return &ChatMessage{
		ID:        uuid.NewString(),
		MatchID:   matchID,
		SenderID:  senderID,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
}

// NewSystemChatMessage creates a message not attributed to either party
// (e.g. "exchange started").
func NewSystemChatMessage(matchID int64, body string) *ChatMessage {
	msg := NewChatMessage(matchID, 0, body)
	return msg
}

// IsSystem reports whether the message was generated by the service.
func (m *ChatMessage) IsSystem() bool {
	return m.SenderID == 0
}
