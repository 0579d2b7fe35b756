package objects

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExchangePostValidate(t *testing.T) {
	post := NewExchangePost(100, 1000, CashKindBill, 1000, CashKindCoin, 14.60, 120.98, "wdw50")
	assert.NoError(t, post.Validate())
	assert.True(t, post.IsActive())

	bad := NewExchangePost(100, 0, CashKindBill, 1000, CashKindCoin, 14.60, 120.98, "wdw50")
	err := bad.Validate()
	assert.Error(t, err)
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
	assert.Equal(t, "give_amount", verr.Field)

	bad = NewExchangePost(100, 1000, "check", 1000, CashKindCoin, 14.60, 120.98, "wdw50")
	assert.Error(t, bad.Validate())

	bad = NewExchangePost(0, 1000, CashKindBill, 1000, CashKindCoin, 14.60, 120.98, "wdw50")
	assert.Error(t, bad.Validate())
}

func TestComplementaryKinds(t *testing.T) {
	// Post gives a bill and needs coins.
	post := NewExchangePost(100, 1000, CashKindBill, 1000, CashKindCoin, 14.60, 120.98, "wdw50")

	// A requester offering coins and wanting a bill is compatible.
	assert.True(t, post.ComplementaryKinds(CashKindCoin, CashKindBill))

	// A requester offering a bill is not.
	assert.False(t, post.ComplementaryKinds(CashKindBill, CashKindCoin))
}

func TestMatchRequestTransitions(t *testing.T) {
	req := NewMatchRequest(1, 100, 200)
	assert.Equal(t, MatchStatusPending, req.Status)
	assert.True(t, req.IsActive())

	assert.True(t, req.CanTransitionTo(MatchStatusAccepted))
	assert.True(t, req.CanTransitionTo(MatchStatusDeclined))
	assert.False(t, req.CanTransitionTo(MatchStatusPending))

	// Terminal states are one-way.
	req.Status = MatchStatusAccepted
	assert.True(t, req.IsActive())
	assert.False(t, req.CanTransitionTo(MatchStatusPending))
	assert.False(t, req.CanTransitionTo(MatchStatusDeclined))

	req.Status = MatchStatusDeclined
	assert.False(t, req.IsActive())
	assert.False(t, req.CanTransitionTo(MatchStatusPending))
	assert.False(t, req.CanTransitionTo(MatchStatusAccepted))
}

func TestActiveExchangeSides(t *testing.T) {
	ex := NewActiveExchange(42, 1, 100, 200)

	assert.Equal(t, int64(100), ex.InitiatorID, "requester is the initiator")
	assert.True(t, ex.IsParticipant(100))
	assert.True(t, ex.IsParticipant(200))
	assert.False(t, ex.IsParticipant(300))

	assert.Equal(t, int64(200), ex.PartnerOf(100))
	assert.Equal(t, int64(100), ex.PartnerOf(200))
	assert.Equal(t, int64(0), ex.PartnerOf(300))

	assert.Nil(t, ex.SideFor(300))
	assert.False(t, ex.BothCompleted())

	ex.SideFor(100).Completed = true
	assert.False(t, ex.BothCompleted())
	ex.SideFor(200).Completed = true
	assert.True(t, ex.BothCompleted())

	// Sides are distinct storage; writing one never touches the other.
	assert.Equal(t, 0, ex.SideA.Rating)
	ex.SideFor(200).Rating = 4
	assert.Equal(t, 0, ex.SideA.Rating)
	assert.Equal(t, 4, ex.SideB.Rating)
}

func TestValidateRating(t *testing.T) {
	for r := 1; r <= 5; r++ {
		assert.NoError(t, ValidateRating(r))
	}
	assert.Error(t, ValidateRating(0))
	assert.Error(t, ValidateRating(6))
	assert.Error(t, ValidateRating(-1))
}

func TestUserDisplayName(t *testing.T) {
	u := &User{UserId: 7, FirstName: "Juan", LastName: "dela Cruz"}
	assert.Equal(t, "Juan dela Cruz", u.DisplayName())

	u = &User{UserId: 7, Username: "juandc"}
	assert.Equal(t, "@juandc", u.DisplayName())

	u = &User{UserId: 7}
	assert.Equal(t, "user 7", u.DisplayName())
}

func TestChatMessage(t *testing.T) {
	msg := NewChatMessage(42, 100, "meet at the plaza?")
	assert.NotEmpty(t, msg.ID)
	assert.False(t, msg.IsSystem())

	sys := NewSystemChatMessage(42, "exchange started")
	assert.True(t, sys.IsSystem())
	assert.NotEqual(t, msg.ID, sys.ID)
}
