package router

import (
	"context"
	"log/slog"

	"github.com/m3rciful/diarybot/core/logger"
	tg "github.com/m3rciful/diarybot/core/telegram"
	tghelpers "github.com/m3rciful/diarybot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Conversation receives free text while a user is inside a multi-step flow.
type Conversation interface {
	InProgress(ctx context.Context, userID int64) (bool, error)
	HandleText(c tele.Context) error
}

type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

// TextRoutes handles plain text and documents. Text goes to an active
// conversation first, then to a public command typed without its slash, then
// to the registry fallback and finally to opts.UnknownText. When the
// conversation state cannot be read the text still goes to the conversation,
// which reports the failure to the user.
func TextRoutes(conv Conversation, reg *tg.Registry, opts TextOptions) []tg.Route {
	text := func(c tele.Context) error {
		if u := c.Sender(); conv != nil && u != nil {
			ctx := tghelpers.BuildContext(c)
			active, err := conv.InProgress(ctx, u.ID)
			if err != nil {
				logger.LogEvent(ctx, logger.TG, slog.LevelWarn, "conversation.lookup_failed", slog.String("err", err.Error()))
			}
			if active || err != nil {
				return newSummary("conversation").run(c, conv.HandleText)
			}
		}
		if reg != nil {
			if name, cmd, ok := reg.LookupCommand(c.Text()); ok && !cmd.Sudo {
				return newSummary(handlerName("command", name)).run(c, cmd.Handler)
			}
			if fb := reg.TextFallback(); fb != nil {
				return newSummary("fallback").run(c, fb)
			}
		}
		if opts.UnknownText != nil {
			return newSummary("unknown_text").run(c, opts.UnknownText)
		}
		return newSummary("unknown_text").skip(c, nil, "")
	}

	doc := func(c tele.Context) error {
		s := newSummary("unexpected_document")
		if opts.UnknownDocument != nil {
			return s.run(c, opts.UnknownDocument)
		}
		return s.skip(c, nil, "")
	}

	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap(text)},
		{Endpoint: tele.OnDocument, Handler: wrap(doc)},
	}
}
