package menu

import (
	"fmt"
	"kolekta/context"
	"kolekta/exchange"
	"kolekta/messaging"
	"kolekta/objects"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

// maxHistoryResults caps one history listing.
const maxHistoryResults = 20

// ShowHistory lists the user's completed exchanges, newest first.
func ShowHistory(context *context.Context, user *objects.User) {
	locale := user.Locale()

	coordinator := exchange.NewCoordinator(context)
	records, err := coordinator.HistoryForUser(user.UserId)
	if err != nil {
		log.Printf("[HISTORY_MENU] Failed to load history for user %d: %v", user.UserId, err)
		context.Send(tgbotapi.NewMessage(user.UserId, locale.Get("history_menu.failed")))
		return
	}

	if len(records) == 0 {
		context.Send(tgbotapi.NewMessage(user.UserId, locale.Get("history_menu.empty")))
		return
	}

	if len(records) > maxHistoryResults {
		records = records[:maxHistoryResults]
	}

	text := fmt.Sprintf(locale.Get("history_menu.header"), len(records)) + "\n\n"
	for _, record := range records {
		text += fmt.Sprintf(locale.Get("history_menu.line"),
			record.CompletedAt.Format("2006-01-02"),
			record.PartnerName,
			record.Rating) + "\n"
		if record.Notes != "" {
			text += fmt.Sprintf(locale.Get("history_menu.notes_line"), record.Notes) + "\n"
		}
	}

	if user.TotalRatings > 0 {
		text += "\n" + fmt.Sprintf(locale.Get("history_menu.aggregate_line"),
			user.AverageRating, user.TotalRatings)
	}

	msg := messaging.NewHTMLMessage(user.UserId, text)
	context.Send(msg)
}
