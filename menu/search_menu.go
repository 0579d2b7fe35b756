package menu

import (
	"fmt"
	"kolekta/context"
	"kolekta/match"
	"kolekta/matcher"
	"kolekta/messaging"
	"kolekta/objects"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

// maxSearchResults caps one result message; Telegram keyboards get unwieldy
// beyond this.
const maxSearchResults = 10

// sortKeyFromCommand extracts the sort mode from "/find", "/find rating" etc.
func sortKeyFromCommand(text string) matcher.SortKey {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return matcher.SortByDistance
	}

	switch fields[1] {
	case "amount":
		return matcher.SortByAmount
	case "rating":
		return matcher.SortByRating
	case "recent", "recency", "new":
		return matcher.SortByRecency
	default:
		return matcher.SortByDistance
	}
}

// ShowSearchResults lists ranked nearby posts with request buttons.
func ShowSearchResults(context *context.Context, user *objects.User, sortBy matcher.SortKey) {
	locale := user.Locale()

	service := match.NewService(context)
	candidates, err := service.Search(user, sortBy)
	if err != nil {
		log.Printf("[SEARCH_MENU] Search failed for user %d: %v", user.UserId, err)
		context.Send(tgbotapi.NewMessage(user.UserId, locale.Get("search_menu.failed")))
		return
	}

	if len(candidates) == 0 {
		context.Send(tgbotapi.NewMessage(user.UserId, locale.Get("search_menu.empty")))
		return
	}

	if len(candidates) > maxSearchResults {
		candidates = candidates[:maxSearchResults]
	}

	text := fmt.Sprintf(locale.Get("search_menu.header"), len(candidates)) + "\n\n"

	var rows [][]tgbotapi.InlineKeyboardButton
	for i, candidate := range candidates {
		post := candidate.Post
		line := fmt.Sprintf(locale.Get("search_menu.result_line"),
			i+1,
			post.GiveAmount, kindLabel(locale, post.GiveKind),
			post.NeedAmount, kindLabel(locale, post.NeedKind))
		if user.HasLocation() {
			line += fmt.Sprintf(locale.Get("search_menu.distance_suffix"), candidate.DistanceKm)
		}
		if candidate.OwnerRating > 0 {
			line += fmt.Sprintf(locale.Get("search_menu.rating_suffix"), candidate.OwnerRating)
		}
		text += line + "\n"

		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf(locale.Get("search_menu.button_request"), i+1),
				fmt.Sprintf("request:%d", post.ID),
			),
		))
	}

	// Sort mode switches on the last row
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(locale.Get("search_menu.sort_distance"), "sort:distance"),
		tgbotapi.NewInlineKeyboardButtonData(locale.Get("search_menu.sort_amount"), "sort:amount"),
		tgbotapi.NewInlineKeyboardButtonData(locale.Get("search_menu.sort_rating"), "sort:rating"),
		tgbotapi.NewInlineKeyboardButtonData(locale.Get("search_menu.sort_recency"), "sort:recency"),
	))

	msg := messaging.NewHTMLMessage(user.UserId, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)

	context.Send(msg)
}

// HandleSortCallback re-runs the search with a different sort mode.
func HandleSortCallback(context *context.Context, callback *tgbotapi.CallbackQuery, user *objects.User) {
	sortBy := matcher.SortKey(strings.TrimPrefix(callback.Data, "sort:"))

	callbackAnswer := tgbotapi.NewCallback(callback.ID, "")
	context.AnswerCallbackQuery(callbackAnswer)

	ShowSearchResults(context, user, sortBy)
}

func kindLabel(locale interface{ Get(string, ...interface{}) string }, kind string) string {
	if kind == objects.CashKindCoin {
		return locale.Get("common.coins")
	}
	return locale.Get("common.bills")
}
