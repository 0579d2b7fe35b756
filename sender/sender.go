package sender

import (
	"encoding/json"
	"kolekta/context"
	"kolekta/metrics"
	"kolekta/rabbit"
	"log"
	"regexp"
	"strconv"
	"time"

	"github.com/streadway/amqp"
)

type Sender struct {
	context *context.Context
}

func NewSender(context *context.Context) *Sender {
	log.Println("[SENDER] Creating new message sender")
	return &Sender{
		context: context,
	}
}

func (s *Sender) Handler(data []byte, headers amqp.Table) {
	// Check message type from headers
	if messageType, ok := headers["message_type"]; ok {
		switch messageType {
		case "post_notification":
			var messageBag rabbit.MessageBag
			if err := json.Unmarshal(data, &messageBag); err != nil {
				log.Printf("[SENDER] Failed to unmarshal post notification: %v", err)
				return
			}
			log.Printf("[SENDER] Processing post notification for chat %d with priority %d",
				messageBag.Message.ChatID, messageBag.Priority)
			s.handlePostNotification(&messageBag, headers)
			return
		case "match_event":
			var messageBag rabbit.MessageBag
			if err := json.Unmarshal(data, &messageBag); err != nil {
				log.Printf("[SENDER] Failed to unmarshal match event: %v", err)
				return
			}
			log.Printf("[SENDER] Processing match event for chat %d with priority %d",
				messageBag.Message.ChatID, messageBag.Priority)
			s.handleMatchEvent(&messageBag, headers)
			return
		case "callback_answer":
			var callbackBag rabbit.CallbackAnswerBag
			if err := json.Unmarshal(data, &callbackBag); err != nil {
				log.Printf("[SENDER] Failed to unmarshal callback answer: %v", err)
				return
			}
			log.Printf("[SENDER] Processing callback answer %s with priority %d",
				callbackBag.CallbackAnswer.CallbackQueryID, callbackBag.Priority)
			s.handleCallbackAnswer(&callbackBag)
			return
		case "edit_message":
			var editBag rabbit.EditMessageBag
			if err := json.Unmarshal(data, &editBag); err != nil {
				log.Printf("[SENDER] Failed to unmarshal edit message: %v", err)
				return
			}
			log.Printf("[SENDER] Processing message edit for message %d in chat %d with priority %d",
				editBag.EditMessage.MessageID, editBag.EditMessage.ChatID, editBag.Priority)
			s.handleEditMessage(&editBag)
			return
		}
	}

	// Handle regular message
	var messageBag rabbit.MessageBag
	if err := json.Unmarshal(data, &messageBag); err != nil {
		log.Printf("[SENDER] Failed to unmarshal regular message: %v", err)
		return
	}
	log.Printf("[SENDER] Processing regular message for chat %d with priority %d",
		messageBag.Message.ChatID, messageBag.Priority)
	s.sendMessage("message", &messageBag)
}

// sendMessage delivers a message bag via the Telegram Bot API and records
// the outcome under the given metric kind.
func (s *Sender) sendMessage(kind string, messageBag *rabbit.MessageBag) {
	startTime := time.Now()

	_, err := s.context.GetBot().Send(messageBag.Message)

	duration := time.Since(startTime)

	if err != nil {
		log.Printf("[SENDER] ERROR sending %s to chat %d: %v (duration: %v)",
			kind, messageBag.Message.ChatID, err, duration)
		metrics.RecordTelegramMessage(kind, false)
		metrics.RecordTelegramError(strconv.Itoa(extractErrorCode(err)))
	} else {
		log.Printf("[SENDER] Successfully sent %s to chat %d (duration: %v)",
			kind, messageBag.Message.ChatID, duration)
		metrics.RecordTelegramMessage(kind, true)
	}
}

func (s *Sender) handlePostNotification(messageBag *rabbit.MessageBag, headers amqp.Table) {
	postID, ok := headers["post_id"].(int64)
	if !ok {
		log.Printf("[SENDER] ERROR: Invalid post_id in headers")
		return
	}

	recipientUserID, ok := headers["recipient_user_id"].(int64)
	if !ok {
		log.Printf("[SENDER] ERROR: Invalid recipient_user_id in headers")
		return
	}

	log.Printf("[SENDER] Delivering notification about post %d to user %d", postID, recipientUserID)
	s.sendMessage("post_notification", messageBag)
}

func (s *Sender) handleMatchEvent(messageBag *rabbit.MessageBag, headers amqp.Table) {
	matchID, ok := headers["match_id"].(int64)
	if !ok {
		log.Printf("[SENDER] ERROR: Invalid match_id in headers")
		return
	}

	event, ok := headers["match_event"].(string)
	if !ok {
		log.Printf("[SENDER] ERROR: Invalid match_event in headers")
		return
	}

	log.Printf("[SENDER] Delivering '%s' event for match %d to chat %d",
		event, matchID, messageBag.Message.ChatID)
	s.sendMessage("match_event", messageBag)
}

func (s *Sender) handleCallbackAnswer(callbackBag *rabbit.CallbackAnswerBag) {
	log.Printf("[SENDER] Processing callback answer %s", callbackBag.CallbackAnswer.CallbackQueryID)

	startTime := time.Now()

	_, err := s.context.GetBot().AnswerCallbackQuery(callbackBag.CallbackAnswer)

	duration := time.Since(startTime)

	if err != nil {
		log.Printf("[SENDER] ERROR answering callback query %s: %v (duration: %v)",
			callbackBag.CallbackAnswer.CallbackQueryID, err, duration)
		metrics.RecordTelegramMessage("callback_answer", false)
		metrics.RecordTelegramError(strconv.Itoa(extractErrorCode(err)))
	} else {
		log.Printf("[SENDER] Successfully answered callback query %s (duration: %v)",
			callbackBag.CallbackAnswer.CallbackQueryID, duration)
		metrics.RecordTelegramMessage("callback_answer", true)
	}
}

func (s *Sender) handleEditMessage(editBag *rabbit.EditMessageBag) {
	log.Printf("[SENDER] Processing message edit for message %d in chat %d",
		editBag.EditMessage.MessageID, editBag.EditMessage.ChatID)

	startTime := time.Now()

	_, err := s.context.GetBot().Send(editBag.EditMessage)

	duration := time.Since(startTime)

	if err != nil {
		log.Printf("[SENDER] ERROR editing message %d in chat %d: %v (duration: %v)",
			editBag.EditMessage.MessageID, editBag.EditMessage.ChatID, err, duration)
		metrics.RecordTelegramMessage("edit_message", false)
		metrics.RecordTelegramError(strconv.Itoa(extractErrorCode(err)))
	} else {
		log.Printf("[SENDER] Successfully edited message %d in chat %d (duration: %v)",
			editBag.EditMessage.MessageID, editBag.EditMessage.ChatID, duration)
		metrics.RecordTelegramMessage("edit_message", true)
	}
}

func (s *Sender) Start() {
	log.Println("[SENDER] Starting message sender service")
	log.Println("[SENDER] Registering handler with RabbitMQ consumer")

	// Register the handler with RabbitMQ consumer
	// The rate limiting is handled in the RabbitClient
	s.context.RabbitConsume.RegisterHandler(s.Handler)

	log.Println("[SENDER] Message sender service started successfully")
}

// httpErrorCodeRegex matches HTTP status codes (4xx or 5xx) in error messages
var httpErrorCodeRegex = regexp.MustCompile(`(?:^|\s|:|\(|-)([4-5]\d{2})(?:\s|$|:|!|\)|,)`)

// extractErrorCode extracts HTTP error code from Telegram API error using regex
func extractErrorCode(err error) int {
	if err == nil {
		return 200
	}

	errStr := err.Error()
	matches := httpErrorCodeRegex.FindStringSubmatch(errStr)

	if len(matches) >= 2 {
		if code, parseErr := strconv.Atoi(matches[1]); parseErr == nil {
			return code
		}
	}

	return 0 // Unknown error - no HTTP code found
}
