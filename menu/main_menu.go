package menu

import (
	"fmt"
	"kolekta/context"
	"kolekta/messaging"
	"kolekta/objects"
	"log"
)

type MainMenuHandler struct {
	context *context.Context
	user    *objects.User
}

func NewMainMenuHandler(context *context.Context, user *objects.User) *MainMenuHandler {
	return &MainMenuHandler{
		context: context,
		user:    user,
	}
}

// Handle shows the main menu: a short status line plus the command list.
func (handler *MainMenuHandler) Handle() {
	log.Printf("[MAIN_MENU] Showing main menu to user %d", handler.user.UserId)

	locale := handler.user.Locale()

	text := locale.Get("main_menu.header") + "\n\n"

	if handler.user.TotalRatings > 0 {
		text += fmt.Sprintf(locale.Get("main_menu.rating_line"),
			handler.user.AverageRating, handler.user.TotalRatings, handler.user.CompletedExchanges) + "\n\n"
	}

	text += locale.Get("main_menu.commands")

	msg := messaging.NewHTMLMessage(handler.user.UserId, text)

	handler.context.Send(msg)
}
