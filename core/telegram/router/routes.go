package router

import (
	tg "github.com/m3rciful/diarybot/core/telegram"
	"github.com/m3rciful/diarybot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// Fallbacks answer updates no other route claims. A nil handler leaves the
// update unanswered.
type Fallbacks interface {
	UnknownText() tele.HandlerFunc
	UnknownDocument() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
}

type Options struct {
	Conversation Conversation
	Fallbacks    Fallbacks
	Sudo         middleware.SudoChecker
	OnSudoReject tele.HandlerFunc
}

// Build returns every route of a bot: its commands, the callback dispatcher
// and the text and document handlers.
func Build(reg *tg.Registry, opts Options) []tg.Route {
	var cb CallbackOptions
	var text TextOptions
	if fb := opts.Fallbacks; fb != nil {
		cb.NotFound = fb.UnknownCallback()
		text = TextOptions{UnknownText: fb.UnknownText(), UnknownDocument: fb.UnknownDocument()}
	}
	routes := CommandRoutes(reg, CommandRouteOptions{Sudo: opts.Sudo, OnSudoReject: opts.OnSudoReject})
	routes = append(routes, CallbackRoute(reg, cb))
	return append(routes, TextRoutes(opts.Conversation, reg, text)...)
}
