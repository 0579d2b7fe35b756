package menu

import (
	"fmt"
	"kolekta/context"
	"kolekta/match"
	"kolekta/messaging"
	"kolekta/metrics"
	"kolekta/objects"
	"log"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

// postDraft holds the first half of a post while the user types the second.
// Drafts are in-process only; a restart simply restarts the flow.
type postDraft struct {
	GiveAmount int
	GiveKind   string
}

var (
	draftsMu sync.Mutex
	drafts   = make(map[int64]*postDraft)
)

type PostMenuHandler struct {
	user    *objects.User
	context *context.Context
	message *tgbotapi.Message
}

func NewPostMenu() *PostMenuHandler {
	return &PostMenuHandler{}
}

func (handler *PostMenuHandler) Handle(user *objects.User, context *context.Context, message *tgbotapi.Message) {
	handler.user = user
	handler.context = context
	handler.message = message

	switch user.MenuId {
	case objects.Menu_PostGive:
		handler.handleGiveStep()
	case objects.Menu_PostNeed:
		handler.handleNeedStep()
	}
}

func (handler *PostMenuHandler) handleGiveStep() {
	locale := handler.user.Locale()
	text := strings.TrimSpace(handler.message.Text)

	if text == "" {
		msg := messaging.NewHTMLMessage(handler.user.UserId, locale.Get("post_menu.ask_give"))
		handler.context.Send(msg)
		return
	}

	amount, kind, _, err := parseCashSpec(text)
	if err != nil {
		log.Printf("[POST_MENU] User %d entered invalid give spec '%s': %v", handler.user.UserId, text, err)
		msg := tgbotapi.NewMessage(handler.user.UserId, locale.Get("post_menu.invalid_input"))
		handler.context.Send(msg)
		return
	}

	draftsMu.Lock()
	drafts[handler.user.UserId] = &postDraft{GiveAmount: amount, GiveKind: kind}
	draftsMu.Unlock()

	// The menu loop re-enters with the new state and prompts for the
	// need half.
	oldMenuId := handler.user.MenuId
	handler.user.MenuId = objects.Menu_PostNeed
	handler.context.Repo.SaveUser(handler.user)
	metrics.RecordMenuTransition(int(oldMenuId), int(handler.user.MenuId))
}

func (handler *PostMenuHandler) handleNeedStep() {
	locale := handler.user.Locale()
	text := strings.TrimSpace(handler.message.Text)

	if text == "" {
		msg := messaging.NewHTMLMessage(handler.user.UserId, locale.Get("post_menu.ask_need"))
		handler.context.Send(msg)
		return
	}

	draftsMu.Lock()
	draft := drafts[handler.user.UserId]
	draftsMu.Unlock()

	if draft == nil {
		// Restarted mid-flow, start over
		log.Printf("[POST_MENU] No draft for user %d, restarting flow", handler.user.UserId)
		oldMenuId := handler.user.MenuId
		handler.user.MenuId = objects.Menu_PostGive
		handler.context.Repo.SaveUser(handler.user)
		metrics.RecordMenuTransition(int(oldMenuId), int(handler.user.MenuId))
		return
	}

	amount, kind, breakdown, err := parseCashSpec(text)
	if err != nil {
		log.Printf("[POST_MENU] User %d entered invalid need spec '%s': %v", handler.user.UserId, text, err)
		msg := tgbotapi.NewMessage(handler.user.UserId, locale.Get("post_menu.invalid_input"))
		handler.context.Send(msg)
		return
	}

	service := match.NewService(handler.context)
	post, err := service.CreatePost(
		handler.user.UserId,
		draft.GiveAmount, draft.GiveKind,
		amount, kind, breakdown,
		handler.user.Lat, handler.user.Lon,
	)
	if err != nil {
		log.Printf("[POST_MENU] Failed to create post for user %d: %v", handler.user.UserId, err)
		msg := tgbotapi.NewMessage(handler.user.UserId, locale.Get("post_menu.create_failed"))
		handler.context.Send(msg)
		return
	}

	draftsMu.Lock()
	delete(drafts, handler.user.UserId)
	draftsMu.Unlock()

	oldMenuId := handler.user.MenuId
	handler.user.MenuId = objects.Menu_Main
	handler.context.Repo.SaveUser(handler.user)
	metrics.RecordMenuTransition(int(oldMenuId), int(handler.user.MenuId))

	msg := messaging.NewHTMLMessage(handler.user.UserId,
		fmt.Sprintf(locale.Get("post_menu.created"), post.ID))
	handler.context.Send(msg)
}

// parseCashSpec parses inputs like "1500 bill", "200 coins" or
// "1000 coin, 2x500" (amount, kind, optional breakdown after a comma).
func parseCashSpec(text string) (amount int, kind string, breakdown string, err error) {
	spec := text
	if idx := strings.Index(text, ","); idx >= 0 {
		spec = text[:idx]
		breakdown = strings.TrimSpace(text[idx+1:])
	}

	fields := strings.Fields(strings.ToLower(strings.TrimSpace(spec)))
	if len(fields) != 2 {
		return 0, "", "", fmt.Errorf("expected '<amount> <bill|coin>', got %q", text)
	}

	amount, err = strconv.Atoi(fields[0])
	if err != nil || amount <= 0 {
		return 0, "", "", fmt.Errorf("invalid amount %q", fields[0])
	}

	switch fields[1] {
	case "bill", "bills", "cash":
		kind = objects.CashKindBill
	case "coin", "coins", "change":
		kind = objects.CashKindCoin
	default:
		return 0, "", "", fmt.Errorf("unknown cash kind %q", fields[1])
	}

	return amount, kind, breakdown, nil
}
