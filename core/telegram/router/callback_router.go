package router

import (
	"log/slog"

	tg "github.com/m3rciful/diarybot/core/telegram"
	"github.com/m3rciful/diarybot/core/telegram/callbacks"

	tele "gopkg.in/telebot.v4"
)

type CallbackOptions struct {
	// NotFound answers callbacks without a registered handler. Falls back to
	// the registry's handler, then to an empty answer.
	NotFound tele.HandlerFunc
}

// CallbackRoute dispatches every callback query by its unique key. Handlers
// answer the query themselves; Telegram accepts one answer per query.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	return tg.Route{Endpoint: tele.OnCallback, Handler: wrap(func(c tele.Context) error {
		if c.Callback() == nil {
			return nil
		}
		key := callbacks.CallbackKey(c)
		s := newSummary(handlerName("callback", key), slog.String("cb_key", key))

		if h, ok := reg.GetCallback(key); ok {
			return s.run(c, h)
		}
		notFound := opts.NotFound
		if notFound == nil {
			notFound = reg.CallbackNotFound()
		}
		if notFound == nil {
			notFound = func(c tele.Context) error { return c.Respond() }
		}
		return s.skip(c, notFound, "not_found")
	})}
}
