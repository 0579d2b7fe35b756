package rabbit

import (
	"encoding/json"
	"log"
	"time"

	"kolekta/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/streadway/amqp"
	"go.uber.org/ratelimit"
)

type RabbitClient struct {
	url        string
	queueName  string
	connection *amqp.Connection
	channel    *amqp.Channel
}

type Handler func(data []byte, headers amqp.Table)

type MessageBag struct {
	Message  tgbotapi.MessageConfig
	Priority uint8 // 0..255
}

// CallbackAnswerBag represents a callback query answer
type CallbackAnswerBag struct {
	CallbackAnswer tgbotapi.CallbackConfig
	Priority       uint8 // Should always be 255 for instant response
}

// EditMessageBag represents a message edit operation
type EditMessageBag struct {
	EditMessage tgbotapi.EditMessageTextConfig
	Priority    uint8
}

// PostNotificationBag represents a fanout notification about a nearby post
type PostNotificationBag struct {
	PostID          int64
	RecipientUserID int64
	Message         tgbotapi.MessageConfig
	Priority        uint8
}

// MatchEventBag represents a match lifecycle notification (request
// received, accepted, declined, partner completed, chat relay)
type MatchEventBag struct {
	MatchID         int64
	RecipientUserID int64
	Event           string
	Message         tgbotapi.MessageConfig
	Priority        uint8
}

func NewRabbitClient(url string, queueName string) *RabbitClient {
	log.Printf("[RABBIT] Creating new RabbitMQ client for queue: %s", queueName)

	client := &RabbitClient{
		url:       url,
		queueName: queueName,
	}

	err := client.connect()
	if err != nil {
		log.Printf("[RABBIT] Initial connection failed: %v. Will retry...", err)
	}

	return client
}

func (c *RabbitClient) connect() error {
	log.Printf("[RABBIT] Connecting to RabbitMQ at %s", c.url)

	// Close existing connection if any
	if c.connection != nil && !c.connection.IsClosed() {
		c.connection.Close()
	}
	if c.channel != nil {
		c.channel.Close()
	}

	conn, err := amqp.Dial(c.url)
	if err != nil {
		return err
	}
	c.connection = conn

	ch, err := c.connection.Channel()
	if err != nil {
		c.connection.Close()
		return err
	}
	c.channel = ch

	// Declare queue with priority support
	args := amqp.Table{
		"x-max-priority": int32(10),
	}

	_, err = c.channel.QueueDeclare(
		c.queueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		args,  // arguments for priority queue
	)
	if err != nil {
		c.channel.Close()
		c.connection.Close()
		return err
	}

	log.Printf("[RABBIT] Connected successfully to queue: %s", c.queueName)
	return nil
}

func (c *RabbitClient) isConnectionOpen() bool {
	if c.connection == nil || c.connection.IsClosed() {
		return false
	}
	if c.channel == nil {
		return false
	}

	// Test channel by checking if we can get a queue (this will fail if channel is closed)
	_, err := c.channel.QueueDeclarePassive(
		c.queueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,   // args
	)

	return err == nil
}

func (c *RabbitClient) ensureConnection() error {
	if !c.isConnectionOpen() {
		log.Printf("[RABBIT] Connection is closed, attempting to reconnect...")
		return c.connect()
	}
	return nil
}

// publish marshals the bag and publishes it with the given priority and headers.
func (c *RabbitClient) publish(bag interface{}, priority uint8, headers amqp.Table) error {
	// Ensure we have a valid connection
	if err := c.ensureConnection(); err != nil {
		log.Printf("[RABBIT] Failed to establish connection: %v", err)
		metrics.RecordRabbitMQMessage("published", c.queueName, false)
		return err
	}

	body, err := json.Marshal(bag)
	if err != nil {
		log.Printf("[RABBIT] Failed to marshal message: %v", err)
		return err
	}

	err = c.channel.Publish(
		"",          // exchange
		c.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Priority:     priority,
			Headers:      headers,
		},
	)

	if err != nil {
		log.Printf("[RABBIT] Failed to publish message: %v", err)
		// Reset connection on publish error
		c.channel = nil
		c.connection = nil
		metrics.RecordRabbitMQMessage("published", c.queueName, false)
		return err
	}

	metrics.RecordRabbitMQMessage("published", c.queueName, true)
	return nil
}

func (c *RabbitClient) PublishTgMessage(messageBag MessageBag) error {
	log.Printf("[RABBIT] Publishing message to user %d with priority %d",
		messageBag.Message.ChatID, messageBag.Priority)

	return c.publish(messageBag, messageBag.Priority, nil)
}

// PublishCallbackAnswer publishes a callback query answer
func (c *RabbitClient) PublishCallbackAnswer(callbackBag CallbackAnswerBag) error {
	log.Printf("[RABBIT] Publishing callback answer %s with priority %d",
		callbackBag.CallbackAnswer.CallbackQueryID, callbackBag.Priority)

	return c.publish(callbackBag, callbackBag.Priority, amqp.Table{
		"message_type": "callback_answer",
	})
}

// PublishEditMessage publishes a message edit operation
func (c *RabbitClient) PublishEditMessage(editBag EditMessageBag) error {
	log.Printf("[RABBIT] Publishing message edit for message %d in chat %d with priority %d",
		editBag.EditMessage.MessageID, editBag.EditMessage.ChatID, editBag.Priority)

	return c.publish(editBag, editBag.Priority, amqp.Table{
		"message_type": "edit_message",
	})
}

// PublishPostNotification publishes a fanout notification about a post
func (c *RabbitClient) PublishPostNotification(notificationBag PostNotificationBag) error {
	log.Printf("[RABBIT] Publishing post notification for post %d to user %d with priority %d",
		notificationBag.PostID, notificationBag.RecipientUserID, notificationBag.Priority)

	// The sender only needs the message; post metadata travels in headers.
	messageBag := MessageBag{
		Message:  notificationBag.Message,
		Priority: notificationBag.Priority,
	}

	return c.publish(messageBag, notificationBag.Priority, amqp.Table{
		"message_type":      "post_notification",
		"post_id":           notificationBag.PostID,
		"recipient_user_id": notificationBag.RecipientUserID,
	})
}

// PublishMatchEvent publishes a match lifecycle notification
func (c *RabbitClient) PublishMatchEvent(eventBag MatchEventBag) error {
	log.Printf("[RABBIT] Publishing match event '%s' for match %d to user %d with priority %d",
		eventBag.Event, eventBag.MatchID, eventBag.RecipientUserID, eventBag.Priority)

	messageBag := MessageBag{
		Message:  eventBag.Message,
		Priority: eventBag.Priority,
	}

	return c.publish(messageBag, eventBag.Priority, amqp.Table{
		"message_type":      "match_event",
		"match_id":          eventBag.MatchID,
		"match_event":       eventBag.Event,
		"recipient_user_id": eventBag.RecipientUserID,
	})
}

func (c *RabbitClient) RegisterHandler(handler Handler) {
	log.Printf("[RABBIT] Registering message handler for queue: %s", c.queueName)

	// Rate limiter - 30 messages per second
	rl := ratelimit.New(30)

	go func() {
		for {
			// Ensure we have a valid connection
			if err := c.ensureConnection(); err != nil {
				log.Printf("[RABBIT] Reconnection failed: %v. Retrying in 5 seconds...", err)
				time.Sleep(5 * time.Second)
				continue
			}

			msgs, err := c.channel.Consume(
				c.queueName,
				"",    // consumer tag
				false, // auto-ack
				false, // exclusive
				false, // no-local
				false, // no-wait
				nil,   // args
			)

			if err != nil {
				log.Printf("[RABBIT] Failed to register consumer: %v", err)
				// Reset connection on consumer error
				c.channel = nil
				c.connection = nil
				time.Sleep(5 * time.Second)
				continue
			}

			log.Printf("[RABBIT] Consumer registered, waiting for messages...")

			for msg := range msgs {
				rl.Take() // Rate limiting

				log.Printf("[RABBIT] Processing message")
				handler(msg.Body, msg.Headers)

				if err := msg.Ack(false); err != nil {
					log.Printf("[RABBIT] Failed to acknowledge message: %v", err)
					metrics.RecordRabbitMQMessage("consumed", c.queueName, false)
				} else {
					metrics.RecordRabbitMQMessage("consumed", c.queueName, true)
				}
			}

			log.Printf("[RABBIT] Consumer channel closed, reconnecting...")
			// Reset connection for reconnection
			c.channel = nil
			c.connection = nil
		}
	}()
}

func (c *RabbitClient) Close() {
	log.Printf("[RABBIT] Closing RabbitMQ connection")
	if c.channel != nil {
		c.channel.Close()
	}
	if c.connection != nil {
		c.connection.Close()
	}
}
