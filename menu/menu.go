package menu

import (
	"kolekta/context"
	"kolekta/metrics"
	"kolekta/objects"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

type Handler interface {
	Handle(user *objects.User, context *context.Context, message *tgbotapi.Message)
}

func HandleMessage(context *context.Context, userId int64, message *tgbotapi.Message) {
	startTime := time.Now()
	log.Printf("[MENU] Handling message from user %d: '%s'", userId, message.Text)

	previousState := objects.Menu_Ban
	iterationCount := 0

	for isStateChanged(context, previousState, userId) {
		iterationCount++

		user := context.Repo.FindUser(userId)

		// Init user if not present
		isNewUser := false
		if user == nil {
			log.Printf("[MENU] Creating new user %d", userId)
			isNewUser = true
			user = &objects.User{
				UserId:       userId,
				MenuId:       objects.Menu_Init,
				LanguageCode: "en", // Default to English
			}
		}

		// Save recent user information - only if data actually changed
		if message.From != nil {
			needsUpdate := false

			if message.From.UserName != "" && user.Username != message.From.UserName {
				user.Username = message.From.UserName
				needsUpdate = true
			}
			if message.From.FirstName != "" && user.FirstName != message.From.FirstName {
				user.FirstName = message.From.FirstName
				needsUpdate = true
			}
			if message.From.LastName != "" && user.LastName != message.From.LastName {
				user.LastName = message.From.LastName
				needsUpdate = true
			}
			// Language is only taken from the client for new users; manual
			// /language choices stick.
			if isNewUser && message.From.LanguageCode != "" && user.LanguageCode != message.From.LanguageCode {
				user.LanguageCode = message.From.LanguageCode
				needsUpdate = true
			}

			if needsUpdate {
				log.Printf("[MENU] Saving updated user info for %d", userId)
				context.Repo.SaveUser(user)
			}
		}

		// Handle /start command
		if message.Text == "/start" {
			log.Printf("[MENU] User %d sent /start command", userId)
			oldMenuId := user.MenuId
			user.MenuId = objects.Menu_Init
			message.Text = ""
			context.Repo.SaveUser(user)

			metrics.RecordMenuTransition(int(oldMenuId), int(user.MenuId))

			if isNewUser {
				metrics.RecordNewUser(user.GetSupportedLanguageCode())
			}
			metrics.RecordCommand("/start")
		}

		// Handle /location command - re-share location and radius
		if strings.ToLower(message.Text) == "/location" {
			log.Printf("[MENU] User %d sent /location command", userId)
			oldMenuId := user.MenuId
			user.MenuId = objects.Menu_AskLocation
			message.Text = ""
			context.Repo.SaveUser(user)

			metrics.RecordMenuTransition(int(oldMenuId), int(user.MenuId))
			metrics.RecordCommand("/location")
		}

		// Handle /language command
		if message.Text == "/language" {
			log.Printf("[MENU] User %d sent /language command", userId)
			metrics.RecordCommand("/language")
			ShowLanguageSelection(user, context)
			return
		}

		// Commands below need a registered user with a location
		if isCommand(message.Text) && !requireInitialized(context, user, message.Text) {
			return
		}

		// Handle /post command - start the post creation flow
		if message.Text == "/post" {
			log.Printf("[MENU] User %d sent /post command", userId)
			metrics.RecordCommand("/post")

			oldMenuId := user.MenuId
			user.MenuId = objects.Menu_PostGive
			message.Text = ""
			context.Repo.SaveUser(user)
			metrics.RecordMenuTransition(int(oldMenuId), int(user.MenuId))
		}

		// Handle /find command - ranked nearby posts
		if message.Text == "/find" || strings.HasPrefix(message.Text, "/find ") {
			log.Printf("[MENU] User %d sent /find command", userId)
			metrics.RecordCommand("/find")
			ShowSearchResults(context, user, sortKeyFromCommand(message.Text))
			return
		}

		// Handle /requests command - pending requests on own posts
		if message.Text == "/requests" {
			log.Printf("[MENU] User %d sent /requests command", userId)
			metrics.RecordCommand("/requests")
			ShowPendingRequests(context, user)
			return
		}

		// Handle /mine command - own posts with withdraw buttons
		if message.Text == "/mine" {
			log.Printf("[MENU] User %d sent /mine command", userId)
			metrics.RecordCommand("/mine")
			ShowOwnPosts(context, user)
			return
		}

		// Handle /exchanges command - active exchanges with complete buttons
		if message.Text == "/exchanges" {
			log.Printf("[MENU] User %d sent /exchanges command", userId)
			metrics.RecordCommand("/exchanges")
			ShowActiveExchanges(context, user)
			return
		}

		// Handle /say command - chat relay inside an active exchange
		if strings.HasPrefix(message.Text, "/say ") {
			log.Printf("[MENU] User %d sent /say command", userId)
			metrics.RecordCommand("/say")
			HandleSayCommand(context, user, message.Text)
			return
		}

		// Handle /history command - completed exchange records
		if message.Text == "/history" {
			log.Printf("[MENU] User %d sent /history command", userId)
			metrics.RecordCommand("/history")
			ShowHistory(context, user)
			return
		}

		previousState = user.MenuId

		var handler Handler

		switch user.MenuId {
		case objects.Menu_Init:
			handler = NewInitMenu()
		case objects.Menu_AskLocation:
			handler = NewAskLocationMenu()
		case objects.Menu_PostGive, objects.Menu_PostNeed:
			handler = NewPostMenu()
		case objects.Menu_Main:
			log.Printf("[MENU] Showing main menu to user %d", userId)
			mainHandler := NewMainMenuHandler(context, user)
			mainHandler.Handle()
			return
		default:
			log.Printf("[MENU] Handler not implemented for menu with id %d", user.MenuId)
			return
		}

		if handler != nil {
			handler.Handle(user, context, message)
		}

		// Important! Reset message to indicate it has been processed
		message = &tgbotapi.Message{}
	}

	duration := time.Since(startTime)
	log.Printf("[MENU] Message handling completed for user %d (duration: %v)", userId, duration)
}

func isStateChanged(context *context.Context, previousState objects.MenuId, userId int64) bool {
	user := context.Repo.FindUser(userId)

	if user == nil {
		return true
	}

	return user.MenuId != previousState
}

func isCommand(text string) bool {
	return strings.HasPrefix(text, "/")
}

// requireInitialized rejects exchange commands until the user shared a
// location. /start, /location and /language are always allowed.
func requireInitialized(context *context.Context, user *objects.User, command string) bool {
	if !user.HasLocation() || user.SearchRadiusKm == nil {
		log.Printf("[MENU] User %d tried %s but is not initialized", user.UserId, command)
		msg := tgbotapi.NewMessage(user.UserId, user.Locale().Get("menu.not_initialized"))
		context.Send(msg)
		return false
	}
	return true
}

// ContinueMenuProcessing continues menu processing after a state change in callback
func ContinueMenuProcessing(context *context.Context, userId int64) {
	log.Printf("[MENU] Continuing menu processing for user %d after callback state change", userId)

	emptyMessage := &tgbotapi.Message{
		From: &tgbotapi.User{
			ID: int(userId),
		},
	}

	HandleMessage(context, userId, emptyMessage)
}

// HandleCallback handles inline button callbacks
func HandleCallback(context *context.Context, userId int64, callback *tgbotapi.CallbackQuery) {
	log.Printf("[MENU] Handling callback from user %d: data=%s", userId, callback.Data)

	user := context.Repo.FindUser(userId)
	if user == nil {
		log.Printf("[MENU] User %d not found for callback", userId)
		return
	}

	// Language selection works from any menu
	if strings.HasPrefix(callback.Data, "lang_") {
		HandleLanguageSelection(user, context, callback)
		return
	}

	switch {
	case strings.HasPrefix(callback.Data, "radius:"):
		HandleRadiusCallback(context, callback, user)
	case strings.HasPrefix(callback.Data, "sort:"):
		HandleSortCallback(context, callback, user)
	case strings.HasPrefix(callback.Data, "request:"):
		HandleRequestCallback(context, callback, user)
	case strings.HasPrefix(callback.Data, "accept:"):
		HandleAcceptCallback(context, callback, user)
	case strings.HasPrefix(callback.Data, "decline:"):
		HandleDeclineCallback(context, callback, user)
	case strings.HasPrefix(callback.Data, "withdraw:"):
		HandleWithdrawCallback(context, callback, user)
	case strings.HasPrefix(callback.Data, "complete:"):
		HandleCompleteCallback(context, callback, user)
	default:
		log.Printf("[MENU] No callback handler for data '%s' (menu %d)", callback.Data, user.MenuId)
	}
}
