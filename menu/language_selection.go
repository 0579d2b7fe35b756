package menu

import (
	"fmt"
	"kolekta/context"
	"kolekta/objects"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

// Supported languages with their native names. Only languages with a .po
// file in locales/all ship here.
var supportedLanguages = []struct {
	code string
	name string
}{
	{"en", "English"},
	{"fil", "Filipino"},
	{"es", "Español"},
	{"ru", "Русский"},
}

// ShowLanguageSelection displays the language selection menu with inline buttons
func ShowLanguageSelection(user *objects.User, context *context.Context) {
	log.Printf("[LANGUAGE] Showing language selection for user %d", user.UserId)

	msgText := "🌐 Select your language"

	// Buttons in rows of 2
	var rows [][]tgbotapi.InlineKeyboardButton
	for i := 0; i < len(supportedLanguages); i += 2 {
		var row []tgbotapi.InlineKeyboardButton

		btn1Text := supportedLanguages[i].name
		if supportedLanguages[i].code == user.LanguageCode {
			btn1Text = "✅ " + btn1Text
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(btn1Text, "lang_"+supportedLanguages[i].code))

		if i+1 < len(supportedLanguages) {
			btn2Text := supportedLanguages[i+1].name
			if supportedLanguages[i+1].code == user.LanguageCode {
				btn2Text = "✅ " + btn2Text
			}
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(btn2Text, "lang_"+supportedLanguages[i+1].code))
		}

		rows = append(rows, row)
	}

	msg := tgbotapi.NewMessage(user.UserId, msgText)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)

	context.Send(msg)
}

// HandleLanguageSelection processes the language selection callback
func HandleLanguageSelection(user *objects.User, context *context.Context, callback *tgbotapi.CallbackQuery) {
	langCode := strings.TrimPrefix(callback.Data, "lang_")
	log.Printf("[LANGUAGE] User %d selected language: %s", user.UserId, langCode)

	user.LanguageCode = langCode
	if err := context.Repo.SaveUser(user); err != nil {
		log.Printf("[LANGUAGE] Error saving user language preference: %v", err)
		return
	}

	callbackAnswer := tgbotapi.NewCallback(callback.ID, "")
	if err := context.AnswerCallbackQuery(callbackAnswer); err != nil {
		log.Printf("[LANGUAGE] Error answering callback: %v", err)
	}

	var langName string
	for _, lang := range supportedLanguages {
		if lang.code == langCode {
			langName = lang.name
			break
		}
	}
	if langName == "" {
		langName = "English" // Fallback
	}

	confirmText := fmt.Sprintf(user.Locale().Get("language.changed"), langName)
	editMsg := tgbotapi.NewEditMessageText(callback.Message.Chat.ID, callback.Message.MessageID, confirmText)
	context.EditMessage(editMsg)

	log.Printf("[LANGUAGE] Successfully changed language for user %d to %s", user.UserId, langCode)
}
