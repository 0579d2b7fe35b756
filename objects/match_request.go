package objects

import (
	"time"
)

// MatchRequest models the negotiation between a requester and a post owner.
// Transitions are one-way: pending -> accepted or pending -> declined.
// Only the post owner moves a request out of pending.
type MatchRequest struct {
	ID          int64
	PostID      int64
	RequesterID int64 // userA: who submitted the request
	OwnerID     int64 // userB: the post owner
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Match request status constants
const (
	MatchStatusPending  = "pending"
	MatchStatusAccepted = "accepted"
	MatchStatusDeclined = "declined"
)

// NewMatchRequest creates a pending request from requester against a post.
func NewMatchRequest(postID, requesterID, ownerID int64) *MatchRequest {
	now := time.Now().UTC()
	return &MatchRequest{
		PostID:      postID,
		RequesterID: requesterID,
		OwnerID:     ownerID,
		Status:      MatchStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsActive reports whether the request still blocks a duplicate from the
// same requester against the same post.
func (m *MatchRequest) IsActive() bool {
	return m.Status == MatchStatusPending || m.Status == MatchStatusAccepted
}

// CanTransitionTo reports whether a status transition is legal. Terminal
// states never go back to pending.
func (m *MatchRequest) CanTransitionTo(status string) bool {
	if m.Status != MatchStatusPending {
		return false
	}
	return status == MatchStatusAccepted || status == MatchStatusDeclined
}
