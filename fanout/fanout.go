package fanout

import (
	"fmt"
	"kolekta/config"
	"kolekta/context"
	"kolekta/feed"
	"kolekta/geo"
	"kolekta/messaging"
	"kolekta/metrics"
	"kolekta/objects"
	"kolekta/rabbit"
	"log"
	"math"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

type FanoutService struct {
	context *context.Context

	mu   sync.Mutex
	seen map[int64]bool // post IDs already broadcast
	sub  *feed.Subscription
}

// NewFanoutService creates a new fanout service instance
func NewFanoutService(context *context.Context) *FanoutService {
	return &FanoutService{
		context: context,
		seen:    make(map[int64]bool),
	}
}

// Start subscribes to the post feed and broadcasts new active posts in the
// background. Snapshots are delivered at least once, so posts are deduplicated
// by ID before broadcasting.
func (f *FanoutService) Start() {
	log.Printf("[FANOUT] Starting fanout service")

	f.sub = f.context.Feed.Subscribe(feed.Filter{
		Status: objects.PostStatusActive,
	})

	go func() {
		for snapshot := range f.sub.C {
			f.handleSnapshot(snapshot)
		}
		log.Printf("[FANOUT] Feed subscription closed, fanout stopped")
	}()
}

// Stop unsubscribes from the post feed
func (f *FanoutService) Stop() {
	log.Printf("[FANOUT] Stopping fanout service")
	if f.sub != nil {
		f.sub.Close()
	}
}

// handleSnapshot broadcasts every post in the snapshot that has not been
// broadcast before. A snapshot may repeat posts from earlier deliveries.
func (f *FanoutService) handleSnapshot(snapshot feed.Snapshot) {
	for _, post := range snapshot {
		f.mu.Lock()
		alreadySeen := f.seen[post.ID]
		if !alreadySeen {
			f.seen[post.ID] = true
		}
		f.mu.Unlock()

		if alreadySeen {
			continue
		}

		if err := f.BroadcastPost(post); err != nil {
			log.Printf("[FANOUT] Failed to broadcast post %d: %v", post.ID, err)
		}
	}
}

// BroadcastPost broadcasts an exchange post to all nearby users
func (f *FanoutService) BroadcastPost(post *objects.ExchangePost) error {
	log.Printf("[FANOUT] Broadcasting post %d to nearby users", post.ID)

	// 1. Get author for display name and radius
	author := f.context.Repo.FindUser(post.UserID)
	if author == nil {
		return fmt.Errorf("post author %d not found", post.UserID)
	}

	radiusKm := config.C().Default_Radius_Km
	if author.SearchRadiusKm != nil {
		radiusKm = *author.SearchRadiusKm
	}

	log.Printf("[FANOUT] Using broadcast radius %d km for post %d", radiusKm, post.ID)

	// 2. Find nearby users (including author, who gets a withdraw button)
	nearbyUsers, err := f.context.Repo.FindUsersInRadius(post.Lat, post.Lon, radiusKm)
	if err != nil {
		return fmt.Errorf("failed to find nearby users: %v", err)
	}

	log.Printf("[FANOUT] Found %d nearby users for post %d", len(nearbyUsers), post.ID)

	// 3. Queue notification messages via RabbitMQ
	sentCount := 0
	for _, user := range nearbyUsers {
		if user.UserId == post.UserID {
			if err := f.queueNotificationMessage(post, user, author); err != nil {
				log.Printf("[FANOUT] Failed to queue notification for author %d: %v", user.UserId, err)
			} else {
				sentCount++
			}
			continue
		}

		if user.MenuId != objects.Menu_Main {
			log.Printf("[FANOUT] Skipping user %d (not in main menu, state: %d)", user.UserId, user.MenuId)
			continue
		}

		// Honor the recipient's own search radius when it is tighter than
		// the broadcast radius.
		if user.SearchRadiusKm != nil {
			distance := geo.DistanceKm(post.Lat, post.Lon, user.Lat, user.Lon)
			if distance > float64(*user.SearchRadiusKm) {
				log.Printf("[FANOUT] Skipping user %d (post is %.1f km away, radius %d km)",
					user.UserId, distance, *user.SearchRadiusKm)
				continue
			}
		}

		if err := f.queueNotificationMessage(post, user, author); err != nil {
			log.Printf("[FANOUT] Failed to queue notification for user %d: %v", user.UserId, err)
			// Continue with other users even if one fails
		} else {
			sentCount++
		}
	}

	metrics.RecordFanoutRun(sentCount)
	log.Printf("[FANOUT] Successfully queued %d notifications for post %d", sentCount, post.ID)
	return nil
}

// queueNotificationMessage creates and queues a notification message for a specific user
func (f *FanoutService) queueNotificationMessage(post *objects.ExchangePost, recipient *objects.User, author *objects.User) error {
	log.Printf("[FANOUT] Queuing notification for user %d about post %d", recipient.UserId, post.ID)

	distance := geo.DistanceKm(post.Lat, post.Lon, recipient.Lat, recipient.Lon)
	distanceKm := int(math.Round(distance))

	messageText := f.buildNotificationMessage(post, recipient, author, distanceKm)

	// Create inline keyboard with appropriate button based on user role
	var keyboard tgbotapi.InlineKeyboardMarkup
	if recipient.UserId == post.UserID {
		// Author sees "Withdraw" button
		keyboard = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(
					recipient.Locale().Get("fanout.button_withdraw"),
					fmt.Sprintf("withdraw:%d", post.ID),
				),
			),
		)
	} else {
		// Recipients see "Request exchange" button
		keyboard = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(
					recipient.Locale().Get("fanout.button_request"),
					fmt.Sprintf("request:%d", post.ID),
				),
			),
		)
	}

	msg := messaging.NewHTMLMessageWithKeyboard(recipient.UserId, messageText, keyboard)

	notificationBag := rabbit.PostNotificationBag{
		PostID:          post.ID,
		RecipientUserID: recipient.UserId,
		Message:         msg,
		Priority:        100, // Medium priority for fanout notifications
	}

	err := f.context.RabbitPublish.PublishPostNotification(notificationBag)

	metrics.RecordFanoutMessage(err == nil)

	return err
}

// buildNotificationMessage constructs the notification message text
func (f *FanoutService) buildNotificationMessage(post *objects.ExchangePost, recipient *objects.User, author *objects.User, distanceKm int) string {
	locale := recipient.Locale()
	isAuthor := recipient.UserId == post.UserID

	var message string
	if isAuthor {
		message = locale.Get("fanout.author_notification_header") + "\n\n"
	} else {
		message = locale.Get("fanout.notification_header") + "\n\n"
	}

	giveKind := f.kindLabel(locale, post.GiveKind)
	needKind := f.kindLabel(locale, post.NeedKind)

	message += fmt.Sprintf(locale.Get("fanout.notification_gives"), post.GiveAmount, giveKind) + "\n"
	message += fmt.Sprintf(locale.Get("fanout.notification_needs"), post.NeedAmount, needKind) + "\n"

	if post.NeedBreakdown != "" {
		message += fmt.Sprintf(locale.Get("fanout.notification_breakdown"), post.NeedBreakdown) + "\n"
	}

	// Author reputation helps recipients decide whether to request
	if !isAuthor && author.TotalRatings > 0 {
		message += fmt.Sprintf(locale.Get("fanout.notification_rating"),
			author.AverageRating, author.TotalRatings) + "\n"
	}

	// Distance only makes sense for recipients
	if !isAuthor {
		message += fmt.Sprintf(locale.Get("fanout.notification_distance"), distanceKm)
	}

	return message
}

func (f *FanoutService) kindLabel(locale LocaleInterface, kind string) string {
	if kind == objects.CashKindCoin {
		return locale.Get("fanout.kind_coins")
	}
	return locale.Get("fanout.kind_bills")
}

// LocaleInterface defines the interface for localization
type LocaleInterface interface {
	Get(key string, args ...interface{}) string
}
