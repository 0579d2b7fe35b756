package repository

import (
	"testing"

	"kolekta/objects"

	"github.com/stretchr/testify/assert"
)

func TestChatMessageLog(t *testing.T) {
	db := setupTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()
	repo := NewRepository(db)
	cleanTables(t, db)

	exchange := openTestExchange(t, repo)
	matchID := exchange.MatchID

	system := objects.NewSystemChatMessage(matchID, "Exchange started.")
	first := objects.NewChatMessage(matchID, 200, "hi, plaza at 6?")
	second := objects.NewChatMessage(matchID, 100, "works for me")

	for _, msg := range []*objects.ChatMessage{system, first, second} {
		err := repo.AppendChatMessage(msg)
		assert.NoError(t, err)
	}

	messages, err := repo.GetChatMessages(matchID)
	assert.NoError(t, err)
	if assert.Len(t, messages, 3) {
		// Oldest first
		assert.Equal(t, system.ID, messages[0].ID)
		assert.True(t, messages[0].IsSystem())
		assert.Equal(t, "hi, plaza at 6?", messages[1].Body)
		assert.Equal(t, int64(100), messages[2].SenderID)
	}

	// Redelivery of the same message id is a no-op
	err = repo.AppendChatMessage(first)
	assert.NoError(t, err)
	messages, err = repo.GetChatMessages(matchID)
	assert.NoError(t, err)
	assert.Len(t, messages, 3)
}

func TestDeleteChatForMatch(t *testing.T) {
	db := setupTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()
	repo := NewRepository(db)
	cleanTables(t, db)

	exchange := openTestExchange(t, repo)

	err := repo.AppendChatMessage(objects.NewChatMessage(exchange.MatchID, 200, "hello"))
	assert.NoError(t, err)

	err = repo.DeleteChatForMatch(exchange.MatchID)
	assert.NoError(t, err)

	messages, err := repo.GetChatMessages(exchange.MatchID)
	assert.NoError(t, err)
	assert.Len(t, messages, 0)

	// Deleting an empty log is fine
	err = repo.DeleteChatForMatch(exchange.MatchID)
	assert.NoError(t, err)
}
