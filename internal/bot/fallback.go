package bot

import (
	"github.com/m3rciful/diarybot/core/telegram/router"

	tele "gopkg.in/telebot.v4"
)

var _ router.Fallbacks = (*App)(nil)

const (
	textNoDocuments = "I only understand text here. Use /start to begin."
	toastExpired    = "This button is no longer active."
)

// UnknownText returns nil: text outside a conversation is ignored.
func (a *App) UnknownText() tele.HandlerFunc {
	return nil
}

// UnknownDocument points users back to the text flow.
func (a *App) UnknownDocument() tele.HandlerFunc {
	return func(c tele.Context) error {
		return a.reply(c, textNoDocuments)
	}
}

// UnknownCallback answers buttons that no longer map to a handler.
func (a *App) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return a.out.Answer(c, &tele.CallbackResponse{Text: toastExpired})
	}
}
