package menu

import (
	"fmt"
	"kolekta/context"
	"kolekta/metrics"
	"kolekta/objects"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

// radiusChoicesKm are the search radius options offered after a location share.
var radiusChoicesKm = []int{1, 3, 5, 10, 25}

type AskLocationMenuHandler struct {
	user    *objects.User
	context *context.Context
	message *tgbotapi.Message
}

func NewAskLocationMenu() *AskLocationMenuHandler {
	return &AskLocationMenuHandler{}
}

func (handler *AskLocationMenuHandler) saveLocation() {
	handler.user.Lon = handler.message.Location.Longitude
	handler.user.Lat = handler.message.Location.Latitude
	log.Printf("[LOCATION] Saving location for user %d: lon=%f, lat=%f",
		handler.user.UserId, handler.user.Lon, handler.user.Lat)
	handler.context.Repo.SaveUser(handler.user)

	metrics.RecordLocationUpdate()

	// Update geography column in database for PostGIS queries
	err := handler.context.Repo.UpdateUserLocation(handler.user.UserId, handler.user.Lon, handler.user.Lat)
	if err != nil {
		log.Printf("[LOCATION] Error updating user location: %v", err)
	}
}

func (handler *AskLocationMenuHandler) Handle(user *objects.User, context *context.Context, message *tgbotapi.Message) {
	log.Printf("[MENU] Ask location menu for user %d", user.UserId)

	handler.user = user
	handler.context = context
	handler.message = message

	// Check if we received a location
	if message.Location != nil {
		log.Printf("[LOCATION] Received location from user %d: %+v", user.UserId, message.Location)
		handler.saveLocation()

		// Remove the location keyboard and ask for a search radius
		removeKeyboard := tgbotapi.NewMessage(user.UserId, user.Locale().Get("ask_location_menu.location_received"))
		removeKeyboard.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
		context.Send(removeKeyboard)

		handler.showRadiusSelection()
		return
	}

	// Show location request message with button
	log.Printf("[MENU] Showing location request to user %d", user.UserId)

	locationButton := tgbotapi.NewKeyboardButtonLocation(user.Locale().Get("ask_location_menu.share_button"))
	keyboard := tgbotapi.NewReplyKeyboard(
		[]tgbotapi.KeyboardButton{locationButton},
	)
	keyboard.OneTimeKeyboard = true
	keyboard.ResizeKeyboard = true

	msg := tgbotapi.NewMessage(user.UserId, user.Locale().Get("ask_location_menu.message"))
	msg.ReplyMarkup = keyboard

	context.Send(msg)
}

func (handler *AskLocationMenuHandler) showRadiusSelection() {
	locale := handler.user.Locale()

	var buttons []tgbotapi.InlineKeyboardButton
	for _, km := range radiusChoicesKm {
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%d km", km),
			fmt.Sprintf("radius:%d", km),
		))
	}

	msg := tgbotapi.NewMessage(handler.user.UserId, locale.Get("ask_location_menu.select_radius"))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(buttons...))

	handler.context.Send(msg)
}

// HandleRadiusCallback stores the chosen search radius and moves the user
// to the main menu.
func HandleRadiusCallback(context *context.Context, callback *tgbotapi.CallbackQuery, user *objects.User) {
	radiusStr := strings.TrimPrefix(callback.Data, "radius:")
	radiusKm, err := strconv.Atoi(radiusStr)
	if err != nil || radiusKm <= 0 {
		log.Printf("[MENU] Invalid radius callback '%s' from user %d", callback.Data, user.UserId)
		return
	}

	log.Printf("[MENU] User %d selected search radius %d km", user.UserId, radiusKm)

	if err := context.Repo.UpdateUserSearchRadius(user.UserId, radiusKm); err != nil {
		log.Printf("[MENU] Failed to save search radius for user %d: %v", user.UserId, err)
		return
	}
	user.SearchRadiusKm = &radiusKm

	callbackAnswer := tgbotapi.NewCallback(callback.ID, "")
	context.AnswerCallbackQuery(callbackAnswer)

	oldMenuId := user.MenuId
	user.MenuId = objects.Menu_Main
	context.Repo.SaveUser(user)
	metrics.RecordMenuTransition(int(oldMenuId), int(user.MenuId))

	ContinueMenuProcessing(context, user.UserId)
}
