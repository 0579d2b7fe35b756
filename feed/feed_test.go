package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"kolekta/objects"
)

func makePost(id, userID int64, status string) *objects.ExchangePost {
	post := objects.NewExchangePost(userID, 1000, objects.CashKindBill, 1000, objects.CashKindCoin, 14.60, 120.98, "wdw50")
	post.ID = id
	post.Status = status
	return post
}

func TestSubscribeReceivesSnapshot(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(Filter{})
	defer sub.Close()

	snapshot := Snapshot{
		makePost(1, 10, objects.PostStatusActive),
		makePost(2, 11, objects.PostStatusActive),
	}
	hub.Publish(snapshot)

	select {
	case got := <-sub.C:
		assert.Len(t, got, 2)
	case <-time.After(time.Second):
		t.Fatal("snapshot was not delivered")
	}
}

func TestFilterExcludesOwnAndNonMatchingStatus(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(Filter{ExcludeUserID: 10, Status: objects.PostStatusActive})
	defer sub.Close()

	hub.Publish(Snapshot{
		makePost(1, 10, objects.PostStatusActive), // own, dropped
		makePost(2, 11, objects.PostStatusMatched), // wrong status, dropped
		makePost(3, 12, objects.PostStatusActive),
	})

	got := <-sub.C
	assert.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0].ID)
}

func TestDuplicateDeliveryIsPossibleAndHarmless(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(Filter{})
	defer sub.Close()

	snapshot := Snapshot{makePost(1, 10, objects.PostStatusActive)}
	hub.Publish(snapshot)
	hub.Publish(snapshot)

	first := <-sub.C
	second := <-sub.C
	assert.Equal(t, first[0].ID, second[0].ID, "the same snapshot may arrive twice")
}

func TestSlowSubscriberConvergesOnLatest(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(Filter{})
	defer sub.Close()

	// Publish far more snapshots than the buffer holds without consuming.
	for i := 1; i <= 50; i++ {
		hub.Publish(Snapshot{makePost(int64(i), 10, objects.PostStatusActive)})
	}

	// Drain everything buffered; the last delivered snapshot must be the
	// newest one even though intermediates were dropped.
	var last Snapshot
	for {
		select {
		case snap := <-sub.C:
			last = snap
			continue
		default:
		}
		break
	}

	assert.NotNil(t, last)
	assert.Equal(t, int64(50), last[0].ID)
}

func TestCloseRemovesSubscriber(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(Filter{})
	assert.Equal(t, 1, hub.SubscriberCount())

	sub.Close()
	assert.Equal(t, 0, hub.SubscriberCount())

	// Publishing after close must not panic.
	hub.Publish(Snapshot{makePost(1, 10, objects.PostStatusActive)})

	// The channel is closed.
	_, open := <-sub.C
	assert.False(t, open)
}

func TestEachSubscriberGetsOwnCopy(t *testing.T) {
	hub := NewHub()
	a := hub.Subscribe(Filter{})
	b := hub.Subscribe(Filter{})
	defer a.Close()
	defer b.Close()

	hub.Publish(Snapshot{makePost(1, 10, objects.PostStatusActive), makePost(2, 11, objects.PostStatusActive)})

	snapA := <-a.C
	snapB := <-b.C

	// Mutating one subscriber's slice must not affect the other's.
	snapA[0] = nil
	assert.NotNil(t, snapB[0])
}
