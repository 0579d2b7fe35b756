package messaging

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

// Every outgoing message uses HTML parse mode. User-supplied text (names,
// chat bodies, breakdowns like "2x500 [coins]") contains characters that
// break Markdown, so plain Markdown is never used anywhere in the bot.

// NewHTMLMessage builds an HTML-mode message for the given chat.
func NewHTMLMessage(chatID int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "HTML"
	return msg
}

// NewHTMLMessageWithKeyboard builds an HTML-mode message with an inline
// keyboard attached. Notification flows use this for accept/decline and
// rating buttons.
func NewHTMLMessageWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) tgbotapi.MessageConfig {
	msg := NewHTMLMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	return msg
}

// NewHTMLEditMessage builds an HTML-mode edit for an already sent message.
func NewHTMLEditMessage(chatID int64, messageID int, text string) tgbotapi.EditMessageTextConfig {
	editMsg := tgbotapi.NewEditMessageText(chatID, messageID, text)
	editMsg.ParseMode = "HTML"
	return editMsg
}
