package objects

import (
	"time"
)

// ExchangePost represents a standing offer to swap one cash denomination
// for another ("I give X, need Y"), pinned to the author's location.
type ExchangePost struct {
	ID            int64
	UserID        int64
	GiveAmount    int
	GiveKind      string // 'bill' or 'coin'
	NeedAmount    int
	NeedKind      string // 'bill' or 'coin'
	NeedBreakdown string // optional denomination breakdown, free text
	Lat           float64
	Lon           float64
	Geohash       string // precision-5 prefix of (Lat, Lon)
	Status        string // 'active', 'matched', 'closed'
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Cash kind constants
const (
	CashKindBill = "bill"
	CashKindCoin = "coin"
)

// Post status constants
const (
	PostStatusActive  = "active"
	PostStatusMatched = "matched"
	PostStatusClosed  = "closed"
)

// NewExchangePost creates a new active post. The geohash prefix is computed
// by the caller (see geo.Encode) so that this package stays a pure leaf.
func NewExchangePost(userID int64, giveAmount int, giveKind string, needAmount int, needKind string, lat, lon float64, geohash string) *ExchangePost {
	now := time.Now().UTC()
	return &ExchangePost{
		UserID:     userID,
		GiveAmount: giveAmount,
		GiveKind:   giveKind,
		NeedAmount: needAmount,
		NeedKind:   needKind,
		Lat:        lat,
		Lon:        lon,
		Geohash:    geohash,
		Status:     PostStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Validate checks the business fields of a post before it is written.
func (p *ExchangePost) Validate() error {
	if p.UserID == 0 {
		return NewValidationError("user_id", "missing owner")
	}
	if p.GiveAmount <= 0 {
		return NewValidationError("give_amount", "must be positive")
	}
	if p.NeedAmount <= 0 {
		return NewValidationError("need_amount", "must be positive")
	}
	if p.GiveKind != CashKindBill && p.GiveKind != CashKindCoin {
		return NewValidationError("give_kind", "must be 'bill' or 'coin'")
	}
	if p.NeedKind != CashKindBill && p.NeedKind != CashKindCoin {
		return NewValidationError("need_kind", "must be 'bill' or 'coin'")
	}
	return nil
}

// IsActive reports whether the post is still open for matching.
func (p *ExchangePost) IsActive() bool {
	return p.Status == PostStatusActive
}

// ComplementaryKinds reports whether a requester offering `offerKind` can
// satisfy this post (the post needs what the requester gives and vice
// versa). The feed is lenient and surfaces all nearby posts regardless;
// this is used by the optional hard filter in search mode.
func (p *ExchangePost) ComplementaryKinds(offerKind, wantKind string) bool {
	return p.NeedKind == offerKind && p.GiveKind == wantKind
}
