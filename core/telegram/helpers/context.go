package helpers

import (
	"context"

	"github.com/m3rciful/diarybot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const ctxKey = "update_ctx"

// BuildContext returns the context.Context of the update behind c, creating
// it on first use. It carries the rid and the update, user and chat ids so
// logs written deeper down can be correlated.
func BuildContext(c tele.Context) context.Context {
	if ctx, ok := c.Get(ctxKey).(context.Context); ok {
		return ctx
	}
	var userID, chatID int64
	if u := c.Sender(); u != nil {
		userID = u.ID
	}
	if ch := c.Chat(); ch != nil {
		chatID = ch.ID
	}
	upd := c.Update()

	ctx := logger.WithRID(context.Background(), logger.BuildRID(upd.ID, chatID, userID))
	ctx = logger.WithUpdateMeta(ctx, upd.ID, userID, chatID)
	ctx = logger.WithLogger(ctx, logger.TG)
	c.Set(ctxKey, ctx)
	return ctx
}

// WithHandler records the handler name in the update context.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler != "" {
		ctx = logger.WithHandler(ctx, handler)
		c.Set(ctxKey, ctx)
	}
	return ctx
}
