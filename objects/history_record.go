package objects

import (
	"time"
)

// HistoryRecord is the immutable archive row written once per participant
// per completed exchange. A single exchange therefore yields two rows, one
// per rater. The (MatchID, RaterUserID) pair is unique.
type HistoryRecord struct {
	ID            int64
	MatchID       int64
	RaterUserID   int64
	PartnerUserID int64
	PartnerName   string
	Rating        int
	Notes         string
	Duration      time.Duration // acceptance to this rater's completion
	CompletedAt   time.Time
}

// NewHistoryRecord builds the archive row for one rater's completion.
func NewHistoryRecord(matchID, raterID, partnerID int64, partnerName string, rating int, notes string, exchangeStartedAt time.Time) *HistoryRecord {
	completedAt := time.Now().UTC()
	return &HistoryRecord{
		MatchID:       matchID,
		RaterUserID:   raterID,
		PartnerUserID: partnerID,
		PartnerName:   partnerName,
		Rating:        rating,
		Notes:         notes,
		Duration:      completedAt.Sub(exchangeStartedAt),
		CompletedAt:   completedAt,
	}
}
