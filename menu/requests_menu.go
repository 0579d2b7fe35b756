package menu

import (
	"errors"
	"fmt"
	"kolekta/context"
	"kolekta/match"
	"kolekta/messaging"
	"kolekta/objects"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

// HandleRequestCallback files a match request when a user taps "Request"
// under a post notification or a search result.
func HandleRequestCallback(context *context.Context, callback *tgbotapi.CallbackQuery, user *objects.User) {
	postID, err := parseCallbackID(callback.Data, "request:")
	if err != nil {
		log.Printf("[REQUESTS_MENU] Invalid request callback '%s': %v", callback.Data, err)
		return
	}

	locale := user.Locale()
	service := match.NewService(context)

	_, err = service.RequestExchange(postID, user.UserId)

	var answerText string
	switch {
	case err == nil:
		answerText = locale.Get("requests_menu.request_sent")
	case errors.Is(err, objects.ErrStateConflict):
		// Duplicate live request, own post, or the post is gone
		answerText = locale.Get("requests_menu.request_rejected")
	case errors.Is(err, objects.ErrNotFound):
		answerText = locale.Get("requests_menu.post_gone")
	default:
		log.Printf("[REQUESTS_MENU] Request on post %d by user %d failed: %v", postID, user.UserId, err)
		answerText = locale.Get("requests_menu.request_failed")
	}

	callbackAnswer := tgbotapi.NewCallback(callback.ID, answerText)
	context.AnswerCallbackQuery(callbackAnswer)
}

// ShowPendingRequests lists requests awaiting the owner's decision.
func ShowPendingRequests(context *context.Context, user *objects.User) {
	locale := user.Locale()

	service := match.NewService(context)
	requests, err := service.PendingRequests(user.UserId)
	if err != nil {
		log.Printf("[REQUESTS_MENU] Failed to list pending requests for user %d: %v", user.UserId, err)
		context.Send(tgbotapi.NewMessage(user.UserId, locale.Get("requests_menu.list_failed")))
		return
	}

	if len(requests) == 0 {
		context.Send(tgbotapi.NewMessage(user.UserId, locale.Get("requests_menu.empty")))
		return
	}

	for _, request := range requests {
		requester := context.Repo.FindUser(request.RequesterID)
		requesterName := "?"
		ratingSuffix := ""
		if requester != nil {
			requesterName = requester.DisplayName()
			if requester.TotalRatings > 0 {
				ratingSuffix = fmt.Sprintf(locale.Get("requests_menu.rating_suffix"),
					requester.AverageRating, requester.TotalRatings)
			}
		}

		text := fmt.Sprintf(locale.Get("requests_menu.pending_line"),
			requesterName, request.PostID) + ratingSuffix

		msg := messaging.NewHTMLMessage(user.UserId, text)
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(
					locale.Get("match.button_accept"),
					fmt.Sprintf("accept:%d", request.ID),
				),
				tgbotapi.NewInlineKeyboardButtonData(
					locale.Get("match.button_decline"),
					fmt.Sprintf("decline:%d", request.ID),
				),
			),
		)

		context.Send(msg)
	}
}

// HandleAcceptCallback accepts a pending request.
func HandleAcceptCallback(context *context.Context, callback *tgbotapi.CallbackQuery, user *objects.User) {
	matchID, err := parseCallbackID(callback.Data, "accept:")
	if err != nil {
		log.Printf("[REQUESTS_MENU] Invalid accept callback '%s': %v", callback.Data, err)
		return
	}

	locale := user.Locale()
	service := match.NewService(context)

	exchange, err := service.Accept(matchID, user.UserId)

	var answerText string
	switch {
	case err == nil:
		answerText = locale.Get("requests_menu.accepted")
	case errors.Is(err, objects.ErrStateConflict):
		answerText = locale.Get("requests_menu.already_decided")
	case errors.Is(err, objects.ErrNotFound):
		answerText = locale.Get("requests_menu.request_gone")
	default:
		log.Printf("[REQUESTS_MENU] Accept of match %d by user %d failed: %v", matchID, user.UserId, err)
		answerText = locale.Get("requests_menu.request_failed")
	}

	callbackAnswer := tgbotapi.NewCallback(callback.ID, answerText)
	context.AnswerCallbackQuery(callbackAnswer)

	if err == nil {
		text := fmt.Sprintf(locale.Get("requests_menu.exchange_opened"), exchange.MatchID)
		msg := messaging.NewHTMLMessage(user.UserId, text)
		context.Send(msg)
	}
}

// HandleDeclineCallback declines a pending request.
func HandleDeclineCallback(context *context.Context, callback *tgbotapi.CallbackQuery, user *objects.User) {
	matchID, err := parseCallbackID(callback.Data, "decline:")
	if err != nil {
		log.Printf("[REQUESTS_MENU] Invalid decline callback '%s': %v", callback.Data, err)
		return
	}

	locale := user.Locale()
	service := match.NewService(context)

	err = service.Decline(matchID, user.UserId)

	var answerText string
	switch {
	case err == nil:
		answerText = locale.Get("requests_menu.declined")
	case errors.Is(err, objects.ErrStateConflict):
		answerText = locale.Get("requests_menu.already_decided")
	case errors.Is(err, objects.ErrNotFound):
		answerText = locale.Get("requests_menu.request_gone")
	default:
		log.Printf("[REQUESTS_MENU] Decline of match %d by user %d failed: %v", matchID, user.UserId, err)
		answerText = locale.Get("requests_menu.request_failed")
	}

	callbackAnswer := tgbotapi.NewCallback(callback.ID, answerText)
	context.AnswerCallbackQuery(callbackAnswer)
}

// ShowOwnPosts lists the user's posts with withdraw buttons on active ones.
func ShowOwnPosts(context *context.Context, user *objects.User) {
	locale := user.Locale()

	posts, err := context.Repo.FindPostsByOwner(user.UserId)
	if err != nil {
		log.Printf("[REQUESTS_MENU] Failed to list posts for user %d: %v", user.UserId, err)
		context.Send(tgbotapi.NewMessage(user.UserId, locale.Get("requests_menu.list_failed")))
		return
	}

	if len(posts) == 0 {
		context.Send(tgbotapi.NewMessage(user.UserId, locale.Get("requests_menu.no_posts")))
		return
	}

	for _, post := range posts {
		text := fmt.Sprintf(locale.Get("requests_menu.own_post_line"),
			post.ID,
			post.GiveAmount, kindLabel(locale, post.GiveKind),
			post.NeedAmount, kindLabel(locale, post.NeedKind),
			locale.Get("post_status."+post.Status))

		msg := messaging.NewHTMLMessage(user.UserId, text)

		if post.IsActive() {
			msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
				tgbotapi.NewInlineKeyboardRow(
					tgbotapi.NewInlineKeyboardButtonData(
						locale.Get("fanout.button_withdraw"),
						fmt.Sprintf("withdraw:%d", post.ID),
					),
				),
			)
		}

		context.Send(msg)
	}
}

// HandleWithdrawCallback closes the caller's own active post.
func HandleWithdrawCallback(context *context.Context, callback *tgbotapi.CallbackQuery, user *objects.User) {
	postID, err := parseCallbackID(callback.Data, "withdraw:")
	if err != nil {
		log.Printf("[REQUESTS_MENU] Invalid withdraw callback '%s': %v", callback.Data, err)
		return
	}

	locale := user.Locale()
	service := match.NewService(context)

	err = service.WithdrawPost(postID, user.UserId)

	var answerText string
	switch {
	case err == nil:
		answerText = locale.Get("requests_menu.withdrawn")
	case errors.Is(err, objects.ErrStateConflict):
		// Already matched or closed
		answerText = locale.Get("requests_menu.already_decided")
	case errors.Is(err, objects.ErrNotFound):
		answerText = locale.Get("requests_menu.post_gone")
	default:
		log.Printf("[REQUESTS_MENU] Withdraw of post %d by user %d failed: %v", postID, user.UserId, err)
		answerText = locale.Get("requests_menu.request_failed")
	}

	callbackAnswer := tgbotapi.NewCallback(callback.ID, answerText)
	context.AnswerCallbackQuery(callbackAnswer)
}

// parseCallbackID extracts the numeric id from callback data like "accept:42".
func parseCallbackID(data, prefix string) (int64, error) {
	idStr := strings.TrimPrefix(data, prefix)
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("bad callback id %q", idStr)
	}
	return id, nil
}
