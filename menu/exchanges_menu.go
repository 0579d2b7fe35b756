package menu

import (
	"errors"
	"fmt"
	"kolekta/context"
	"kolekta/exchange"
	"kolekta/messaging"
	"kolekta/objects"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

// ShowActiveExchanges lists the user's open exchanges with rating buttons.
func ShowActiveExchanges(context *context.Context, user *objects.User) {
	locale := user.Locale()

	coordinator := exchange.NewCoordinator(context)
	exchanges, err := coordinator.ListForUser(user.UserId)
	if err != nil {
		log.Printf("[EXCHANGES_MENU] Failed to list exchanges for user %d: %v", user.UserId, err)
		context.Send(tgbotapi.NewMessage(user.UserId, locale.Get("exchanges_menu.list_failed")))
		return
	}

	if len(exchanges) == 0 {
		context.Send(tgbotapi.NewMessage(user.UserId, locale.Get("exchanges_menu.empty")))
		return
	}

	for _, ex := range exchanges {
		partner := context.Repo.FindUser(ex.PartnerOf(user.UserId))
		partnerName := "?"
		if partner != nil {
			partnerName = partner.DisplayName()
		}

		side := ex.SideFor(user.UserId)

		var text string
		if side != nil && side.Completed {
			text = fmt.Sprintf(locale.Get("exchanges_menu.waiting_line"), ex.MatchID, partnerName)
		} else {
			text = fmt.Sprintf(locale.Get("exchanges_menu.open_line"), ex.MatchID, partnerName)
		}
		text += "\n" + fmt.Sprintf(locale.Get("exchanges_menu.say_hint"), ex.MatchID)

		msg := messaging.NewHTMLMessage(user.UserId, text)

		if side == nil || !side.Completed {
			msg.ReplyMarkup = exchange.RatingKeyboard(ex.MatchID)
		}

		context.Send(msg)
	}
}

// HandleCompleteCallback records a completion with the tapped rating.
// Callback data is "complete:<matchID>:<rating>".
func HandleCompleteCallback(context *context.Context, callback *tgbotapi.CallbackQuery, user *objects.User) {
	parts := strings.Split(callback.Data, ":")
	if len(parts) != 3 {
		log.Printf("[EXCHANGES_MENU] Invalid complete callback '%s'", callback.Data)
		return
	}

	matchID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || matchID <= 0 {
		log.Printf("[EXCHANGES_MENU] Invalid match id in callback '%s'", callback.Data)
		return
	}

	rating, err := strconv.Atoi(parts[2])
	if err != nil {
		log.Printf("[EXCHANGES_MENU] Invalid rating in callback '%s'", callback.Data)
		return
	}

	locale := user.Locale()
	coordinator := exchange.NewCoordinator(context)

	closed, err := coordinator.Submit(matchID, user.UserId, rating, "")

	var answerText string
	switch {
	case err == nil && closed:
		answerText = locale.Get("exchanges_menu.closed")
	case err == nil:
		answerText = locale.Get("exchanges_menu.waiting_partner")
	case errors.Is(err, objects.ErrStateConflict):
		// Initiator gating: the requester confirms first
		answerText = locale.Get("exchanges_menu.not_your_turn")
	case errors.Is(err, objects.ErrNotFound):
		answerText = locale.Get("exchanges_menu.exchange_gone")
	default:
		log.Printf("[EXCHANGES_MENU] Completion of match %d by user %d failed: %v", matchID, user.UserId, err)
		answerText = locale.Get("exchanges_menu.failed")
	}

	callbackAnswer := tgbotapi.NewCallback(callback.ID, answerText)
	context.AnswerCallbackQuery(callbackAnswer)

	if err == nil && closed {
		msg := messaging.NewHTMLMessage(user.UserId, locale.Get("exchanges_menu.closed_details"))
		context.Send(msg)
	}
}

// HandleSayCommand relays "/say <matchID> <text>" into the exchange chat.
func HandleSayCommand(context *context.Context, user *objects.User, text string) {
	locale := user.Locale()

	fields := strings.SplitN(strings.TrimSpace(text), " ", 3)
	if len(fields) < 3 {
		context.Send(tgbotapi.NewMessage(user.UserId, locale.Get("exchanges_menu.say_usage")))
		return
	}

	matchID, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil || matchID <= 0 {
		context.Send(tgbotapi.NewMessage(user.UserId, locale.Get("exchanges_menu.say_usage")))
		return
	}

	body := strings.TrimSpace(fields[2])
	if body == "" {
		context.Send(tgbotapi.NewMessage(user.UserId, locale.Get("exchanges_menu.say_usage")))
		return
	}

	coordinator := exchange.NewCoordinator(context)
	if err := coordinator.SendChatMessage(matchID, user.UserId, body); err != nil {
		log.Printf("[EXCHANGES_MENU] Chat relay for match %d by user %d failed: %v", matchID, user.UserId, err)
		if errors.Is(err, objects.ErrNotFound) {
			context.Send(tgbotapi.NewMessage(user.UserId, locale.Get("exchanges_menu.exchange_gone")))
		} else {
			context.Send(tgbotapi.NewMessage(user.UserId, locale.Get("exchanges_menu.failed")))
		}
		return
	}

	context.Send(tgbotapi.NewMessage(user.UserId, locale.Get("exchanges_menu.say_sent")))
}
