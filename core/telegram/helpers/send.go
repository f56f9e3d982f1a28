// Package helpers holds the send and delete calls handlers use, plus the
// per-update context they log with.
package helpers

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/m3rciful/diarybot/core/logger"
	"github.com/m3rciful/diarybot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var dispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher routes background calls through d. With nil they run inline.
func SetDispatcher(d *sender.Dispatcher) { dispatcher.Store(d) }

// enqueue hands run to the dispatcher. When the queue is full or closed the
// call runs inline rather than being lost.
func enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	d := dispatcher.Load()
	if d == nil {
		return run()
	}
	err := d.Enqueue(ctx, action, endpoint, run)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", action),
			slog.String("err", err.Error()),
		)
		return run()
	}
	return err
}

// CountSent records an outgoing message on the update for the summary log.
func CountSent(c tele.Context, withKeyboard bool) {
	n, _ := c.Get("messages").(int)
	c.Set("messages", n+1)
	if withKeyboard {
		c.Set("kb", true)
	}
}

// send posts what in HTML mode to the update's chat. It runs inline since
// callers need the resulting message id.
func send(c tele.Context, what any, markup *tele.ReplyMarkup, replyTo *tele.Message) (*tele.Message, error) {
	opts := &tele.SendOptions{ParseMode: tele.ModeHTML, ReplyMarkup: markup, ReplyTo: replyTo}
	msg, err := c.Bot().Send(c.Recipient(), what, opts)
	if err == nil {
		CountSent(c, markup != nil)
	}
	return msg, err
}

func SendHTML(c tele.Context, text string, markup *tele.ReplyMarkup) (*tele.Message, error) {
	return send(c, text, markup, nil)
}

// ReplyHTML quotes the incoming message.
func ReplyHTML(c tele.Context, text string, markup *tele.ReplyMarkup) (*tele.Message, error) {
	return send(c, text, markup, c.Message())
}

// SendPhoto sends the image at ref, a URL or a local path, with an HTML caption.
func SendPhoto(c tele.Context, ref, caption string, markup *tele.ReplyMarkup) (*tele.Message, error) {
	return send(c, &tele.Photo{File: PhotoFile(ref), Caption: caption}, markup, nil)
}

func PhotoFile(ref string) tele.File {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return tele.FromURL(ref)
	}
	return tele.FromDisk(ref)
}

// DeleteMessageAsync removes msg in the background; failures are only logged.
func DeleteMessageAsync(c tele.Context, msg tele.Editable) {
	DeleteLater(c, msg, 0)
}

// DeleteLater removes msg after delay in the background.
func DeleteLater(c tele.Context, msg tele.Editable, delay time.Duration) {
	if msg == nil {
		return
	}
	api, ctx := c.Bot(), BuildContext(c)
	remove := func() {
		err := enqueue(ctx, "delete", "deleteMessage", func() error {
			if err := api.Delete(msg); err != nil && !IsUndeletable(err) {
				return err
			}
			return nil
		})
		if err != nil {
			logger.Warn(ctx, "tg.sender", "delete.fail", slog.String("err", err.Error()))
		}
	}
	if delay <= 0 {
		remove()
		return
	}
	time.AfterFunc(delay, remove)
}

// IsUndeletable reports whether Telegram refused a delete because the message
// is already gone or too old.
func IsUndeletable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "message to delete not found") ||
		strings.Contains(msg, "message can't be deleted")
}

// MessageRef points at a message known only by its ids.
func MessageRef(chatID int64, messageID int) tele.Editable {
	return tele.StoredMessage{MessageID: strconv.Itoa(messageID), ChatID: chatID}
}
