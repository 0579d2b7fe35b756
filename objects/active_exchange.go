package objects

import (
	"time"
)

// CompletionSide holds one participant's completion state. The two sides
// live in separate column groups so the participants never write over each
// other's fields.
type CompletionSide struct {
	Completed   bool
	Rating      int // 1..5, valid only when Completed
	Notes       string
	CompletedAt *time.Time
}

// ActiveExchange is the live session state for an accepted match. Its id is
// the id of the MatchRequest that was accepted. It exists from acceptance
// until both parties have completed, then it is deleted together with the
// exchange chat.
type ActiveExchange struct {
	MatchID     int64
	PostID      int64
	UserA       int64 // the requester
	UserB       int64 // the post owner
	InitiatorID int64 // who may trigger the first completion step
	SideA       CompletionSide
	SideB       CompletionSide
	CreatedAt   time.Time
}

// NewActiveExchange creates the session record for an accepted match. The
// requester is the designated initiator.
func NewActiveExchange(matchID, postID, requesterID, ownerID int64) *ActiveExchange {
	return &ActiveExchange{
		MatchID:     matchID,
		PostID:      postID,
		UserA:       requesterID,
		UserB:       ownerID,
		InitiatorID: requesterID,
		CreatedAt:   time.Now().UTC(),
	}
}

// IsParticipant reports whether userID is one of the two parties.
func (e *ActiveExchange) IsParticipant(userID int64) bool {
	return userID == e.UserA || userID == e.UserB
}

// SideFor returns the completion side owned by userID, or nil if userID is
// not a participant.
func (e *ActiveExchange) SideFor(userID int64) *CompletionSide {
	switch userID {
	case e.UserA:
		return &e.SideA
	case e.UserB:
		return &e.SideB
	}
	return nil
}

// PartnerOf returns the counterpart of userID, or 0 if userID is not a
// participant.
func (e *ActiveExchange) PartnerOf(userID int64) int64 {
	switch userID {
	case e.UserA:
		return e.UserB
	case e.UserB:
		return e.UserA
	}
	return 0
}

// BothCompleted reports whether the exchange is ready to be retired.
func (e *ActiveExchange) BothCompleted() bool {
	return e.SideA.Completed && e.SideB.Completed
}

// ValidateRating checks a rating submission value.
func ValidateRating(rating int) error {
	if rating < 1 || rating > 5 {
		return NewValidationError("rating", "must be between 1 and 5")
	}
	return nil
}
