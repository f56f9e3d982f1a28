package middleware

import (
	tghelpers "github.com/m3rciful/diarybot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// countingContext counts replies made through tele.Context directly. Helpers
// that send through the bot API count themselves.
type countingContext struct{ tele.Context }

func (c countingContext) counted(err error, opts []any) error {
	if err == nil {
		tghelpers.CountSent(c.Context, withMarkup(opts))
	}
	return err
}

func (c countingContext) Send(what any, opts ...any) error {
	return c.counted(c.Context.Send(what, opts...), opts)
}

func (c countingContext) Reply(what any, opts ...any) error {
	return c.counted(c.Context.Reply(what, opts...), opts)
}

func (c countingContext) Edit(what any, opts ...any) error {
	return c.counted(c.Context.Edit(what, opts...), opts)
}

func withMarkup(opts []any) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.ReplyMarkup:
			return v != nil
		case *tele.SendOptions:
			return v != nil && v.ReplyMarkup != nil
		}
	}
	return false
}

// MessageMetricsMiddleware resets the per-update send counters read by the
// handler summary log.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		c.Set("messages", 0)
		c.Set("kb", false)
		return next(countingContext{c})
	}
}

// GetCounters returns how many messages the update produced and whether any
// carried a keyboard.
func GetCounters(c tele.Context) (int, bool) {
	n, _ := c.Get("messages").(int)
	kb, _ := c.Get("kb").(bool)
	return n, kb
}
