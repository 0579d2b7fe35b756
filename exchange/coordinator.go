package exchange

import (
	"errors"
	"fmt"
	"kolekta/context"
	"kolekta/messaging"
	"kolekta/metrics"
	"kolekta/objects"
	"kolekta/rabbit"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

// Coordinator drives active exchanges after a match is accepted: the chat
// relay between the two parties and the mutual completion protocol. All
// state transitions happen inside repository transactions; this layer adds
// participant checks, notifications and metrics.
type Coordinator struct {
	context *context.Context
}

func NewCoordinator(context *context.Context) *Coordinator {
	return &Coordinator{
		context: context,
	}
}

// ListForUser returns the exchanges the user currently participates in.
func (c *Coordinator) ListForUser(userID int64) ([]*objects.ActiveExchange, error) {
	return c.context.Repo.FindActiveExchangesForUser(userID)
}

// Submit records one party's completion with a rating of the partner.
// The closing submission tears the exchange down; the first one leaves it
// waiting for the partner. Either way the partner is notified.
func (c *Coordinator) Submit(matchID, raterID int64, rating int, notes string) (closed bool, err error) {
	log.Printf("[EXCHANGE] User %d submitting completion for match %d with rating %d",
		raterID, matchID, rating)

	// Resolve the partner before the submission: the closing one deletes
	// the exchange row.
	exchange, err := c.context.Repo.GetActiveExchange(matchID)
	var partnerID int64
	if err == nil {
		partnerID = exchange.PartnerOf(raterID)
	} else if !errors.Is(err, objects.ErrNotFound) {
		return false, err
	}

	closed, err = c.context.Repo.SubmitCompletion(matchID, raterID, rating, notes)
	if err != nil {
		if errors.Is(err, objects.ErrStateConflict) {
			metrics.RecordStateConflict("submit_completion")
		}
		return false, err
	}

	metrics.RecordCompletionSubmitted(closed)
	metrics.RecordRatingSubmitted(rating)

	if partnerID != 0 {
		c.notifyPartner(matchID, partnerID, closed)
	}

	if closed {
		metrics.RecordPostClosed("completed")
		log.Printf("[EXCHANGE] Match %d closed by user %d", matchID, raterID)
	} else {
		log.Printf("[EXCHANGE] Match %d waiting for partner of user %d", matchID, raterID)
	}

	return closed, nil
}

// SendChatMessage relays a message between the two parties of an active
// exchange. Only participants may write; the message is stored and then
// pushed to the partner.
func (c *Coordinator) SendChatMessage(matchID, senderID int64, body string) error {
	exchange, err := c.context.Repo.GetActiveExchange(matchID)
	if err != nil {
		return err
	}

	if !exchange.IsParticipant(senderID) {
		return objects.NewValidationError("sender_id", "not a participant of this exchange")
	}

	msg := objects.NewChatMessage(matchID, senderID, body)
	if err := c.context.Repo.AppendChatMessage(msg); err != nil {
		return err
	}

	metrics.RecordChatMessage(false)

	partnerID := exchange.PartnerOf(senderID)
	partner := c.context.Repo.FindUser(partnerID)
	if partner == nil {
		log.Printf("[EXCHANGE] Partner %d not found, message stored but not delivered", partnerID)
		return nil
	}

	sender := c.context.Repo.FindUser(senderID)
	senderName := "?"
	if sender != nil {
		senderName = sender.DisplayName()
	}

	locale := partner.Locale()
	text := fmt.Sprintf(locale.Get("exchange.chat_relay"), senderName, body)

	relay := messaging.NewHTMLMessage(partner.UserId, text)

	c.publishMatchEvent(matchID, partner.UserId, "chat_message", relay)
	return nil
}

// ChatHistory returns the stored conversation for an exchange, oldest first.
// Only participants may read it.
func (c *Coordinator) ChatHistory(matchID, userID int64) ([]*objects.ChatMessage, error) {
	exchange, err := c.context.Repo.GetActiveExchange(matchID)
	if err != nil {
		return nil, err
	}

	if !exchange.IsParticipant(userID) {
		return nil, objects.NewValidationError("user_id", "not a participant of this exchange")
	}

	return c.context.Repo.GetChatMessages(matchID)
}

// HistoryForUser returns the user's completed exchange records, newest first.
func (c *Coordinator) HistoryForUser(userID int64) ([]*objects.HistoryRecord, error) {
	return c.context.Repo.GetHistoryForUser(userID)
}

// notifyPartner tells the other party about a completion submission.
func (c *Coordinator) notifyPartner(matchID, partnerID int64, closed bool) {
	partner := c.context.Repo.FindUser(partnerID)
	if partner == nil {
		log.Printf("[EXCHANGE] Partner %d not found, skipping notification", partnerID)
		return
	}

	locale := partner.Locale()

	var text string
	var event string
	if closed {
		text = locale.Get("exchange.closed")
		event = "exchange_closed"
	} else {
		text = locale.Get("exchange.partner_completed")
		event = "partner_completed"
	}

	msg := messaging.NewHTMLMessage(partner.UserId, text)

	if !closed {
		// The partner still owes their half; give them rating buttons.
		msg.ReplyMarkup = RatingKeyboard(matchID)
	}

	c.publishMatchEvent(matchID, partner.UserId, event, msg)
}

// RatingKeyboard builds the 1..5 star row used to submit a completion.
func RatingKeyboard(matchID int64) tgbotapi.InlineKeyboardMarkup {
	var buttons []tgbotapi.InlineKeyboardButton
	for rating := 1; rating <= 5; rating++ {
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%d⭐", rating),
			fmt.Sprintf("complete:%d:%d", matchID, rating),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(buttons...))
}

func (c *Coordinator) publishMatchEvent(matchID, recipientID int64, event string, msg tgbotapi.MessageConfig) {
	err := c.context.RabbitPublish.PublishMatchEvent(rabbit.MatchEventBag{
		MatchID:         matchID,
		RecipientUserID: recipientID,
		Event:           event,
		Message:         msg,
		Priority:        150,
	})
	if err != nil {
		log.Printf("[EXCHANGE] Failed to publish '%s' event for match %d: %v", event, matchID, err)
	}
}
