package menu

import (
	"kolekta/context"
	"kolekta/metrics"
	"kolekta/objects"
	"log"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

type InitMenuHandler struct {
	context *context.Context
	user    *objects.User
}

func NewInitMenu() *InitMenuHandler {
	return &InitMenuHandler{}
}

func (handler *InitMenuHandler) Handle(user *objects.User, context *context.Context, message *tgbotapi.Message) {
	startTime := time.Now()
	log.Printf("[INIT_MENU] Handling /start for user %d", user.UserId)

	handler.context = context
	handler.user = user

	handler.sendWelcomeMessage()

	// Location comes first, everything else needs it
	oldMenuId := user.MenuId
	user.MenuId = objects.Menu_AskLocation
	context.Repo.SaveUser(user)

	metrics.RecordMenuTransition(int(oldMenuId), int(user.MenuId))

	duration := time.Since(startTime)
	log.Printf("[INIT_MENU] User %d initialization complete (duration: %v)", user.UserId, duration)
}

func (handler *InitMenuHandler) sendWelcomeMessage() {
	log.Printf("[INIT_MENU] Sending welcome message to user %d in language: %s",
		handler.user.UserId, handler.user.GetSupportedLanguageCode())

	msg := tgbotapi.NewMessage(handler.user.UserId, handler.user.Locale().Get("init_menu.welcome"))
	msg.DisableWebPagePreview = true

	handler.context.Send(msg)
}
