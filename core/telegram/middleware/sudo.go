package middleware

import (
	"context"
	"log/slog"

	"github.com/m3rciful/diarybot/core/logger"
	tghelpers "github.com/m3rciful/diarybot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// SudoDeniedText is sent to users who are not on the sudoers list.
const SudoDeniedText = "This command is only available to bot admins."

// SudoChecker answers whether a Telegram user may run privileged commands.
type SudoChecker interface {
	IsSudoer(ctx context.Context, userID int64) (bool, error)
}

// SudoOptions configures SudoOnly.
type SudoOptions struct {
	Checker SudoChecker
	// OnReject replies to denied users; nil sends SudoDeniedText.
	OnReject tele.HandlerFunc
}

// SudoOnly lets an update through only when its sender is a sudoer. A failed
// lookup denies.
func SudoOnly(opts SudoOptions) tele.MiddlewareFunc {
	reject := opts.OnReject
	if reject == nil {
		reject = func(c tele.Context) error { return c.Send(SudoDeniedText) }
	}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Checker == nil {
				return reject(c)
			}
			ctx := tghelpers.BuildContext(c)
			ok, err := opts.Checker.IsSudoer(ctx, user.ID)
			if err != nil {
				logger.LogEvent(ctx, logger.TG, slog.LevelError, "sudo.check",
					slog.String("status", "fail"),
					slog.String("err", err.Error()),
				)
				return reject(c)
			}
			if !ok {
				logger.LogEvent(ctx, logger.TG, slog.LevelWarn, "sudo.check",
					slog.String("status", "denied"),
				)
				return reject(c)
			}
			return next(c)
		}
	}
}
