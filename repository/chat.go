package repository

import (
	"log"

	"kolekta/objects"
)

// AppendChatMessage appends one message to an exchange's chat log. The log
// is append-only; rows are never edited.
func (repo *Repository) AppendChatMessage(msg *objects.ChatMessage) error {
	log.Printf("[REPOSITORY] Appending chat message %s to match %d from user %d",
		msg.ID, msg.MatchID, msg.SenderID)

	_, err := repo.db.Exec(
		`INSERT INTO chat_messages (id, match_id, sender_id, body, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING`,
		msg.ID, msg.MatchID, msg.SenderID, msg.Body, msg.CreatedAt,
	)
	if err != nil {
		log.Printf("[REPOSITORY] Error appending chat message: %v", err)
		return storeErr("append chat message", err)
	}

	log.Printf("[REPOSITORY] Chat message appended successfully")
	return nil
}

// GetChatMessages returns the full log for a match, oldest first.
func (repo *Repository) GetChatMessages(matchID int64) ([]*objects.ChatMessage, error) {
	log.Printf("[REPOSITORY] Getting chat messages for match %d", matchID)

	rows, err := repo.db.Query(
		`SELECT id, match_id, sender_id, body, created_at
		FROM chat_messages
		WHERE match_id = $1
		ORDER BY created_at ASC`,
		matchID,
	)
	if err != nil {
		log.Printf("[REPOSITORY] Error getting chat messages: %v", err)
		return nil, storeErr("get chat messages", err)
	}
	defer rows.Close()

	var messages []*objects.ChatMessage
	for rows.Next() {
		msg := &objects.ChatMessage{}
		if err := rows.Scan(&msg.ID, &msg.MatchID, &msg.SenderID, &msg.Body, &msg.CreatedAt); err != nil {
			log.Printf("[REPOSITORY] Error scanning chat message row: %v", err)
			continue
		}
		messages = append(messages, msg)
	}

	log.Printf("[REPOSITORY] Found %d chat messages for match %d", len(messages), matchID)
	return messages, nil
}

// DeleteChatForMatch drops the whole log for a match. Deleting an already
// empty log is a no-op; the cascade on finalization may have run first.
func (repo *Repository) DeleteChatForMatch(matchID int64) error {
	log.Printf("[REPOSITORY] Deleting chat messages for match %d", matchID)

	_, err := repo.db.Exec(`DELETE FROM chat_messages WHERE match_id = $1`, matchID)
	if err != nil {
		log.Printf("[REPOSITORY] Error deleting chat messages: %v", err)
		return storeErr("delete chat messages", err)
	}

	return nil
}
