package bot

import (
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/diarybot/core/logger"
	tghelpers "github.com/m3rciful/diarybot/core/telegram/helpers"
	"github.com/m3rciful/diarybot/core/telegram/keyboard"
	"github.com/m3rciful/diarybot/internal/auth"

	tele "gopkg.in/telebot.v4"
)

// messenger performs the Telegram calls of a render.
type messenger interface {
	Send(c tele.Context, p auth.Prompt, markup *tele.ReplyMarkup) (*tele.Message, error)
	Answer(c tele.Context, resp *tele.CallbackResponse) error
	Delete(c tele.Context, msg tele.Editable)
	DeleteLater(c tele.Context, msg tele.Editable, delay time.Duration)
}

type helperMessenger struct{}

func (helperMessenger) Send(c tele.Context, p auth.Prompt, markup *tele.ReplyMarkup) (*tele.Message, error) {
	if p.Image != "" {
		msg, err := tghelpers.SendPhoto(c, p.Image, p.Text, markup)
		if err == nil {
			return msg, nil
		}
		logger.LogEvent(tghelpers.BuildContext(c), logger.TG, slog.LevelWarn, "render.photo_failed",
			slog.String("image", p.Image),
			slog.String("err", err.Error()),
		)
	}
	if p.Quote {
		return tghelpers.ReplyHTML(c, p.Text, markup)
	}
	return tghelpers.SendHTML(c, p.Text, markup)
}

func (helperMessenger) Answer(c tele.Context, resp *tele.CallbackResponse) error {
	return c.Respond(resp)
}

func (helperMessenger) Delete(c tele.Context, msg tele.Editable) {
	tghelpers.DeleteMessageAsync(c, msg)
}

func (helperMessenger) DeleteLater(c tele.Context, msg tele.Editable, delay time.Duration) {
	tghelpers.DeleteLater(c, msg, delay)
}

const (
	btnRegister = "📝 Register"
	btnLogin    = "🔑 Login"
	btnConfirm  = "✅ Confirm"
	btnCancel   = "❌ Cancel"
)

func markupFor(k auth.Keyboard) *tele.ReplyMarkup {
	switch k {
	case auth.KeyboardAuth:
		return keyboard.Inline(keyboard.Row(
			keyboard.Button{Text: btnRegister, Unique: string(auth.TriggerRegister)},
			keyboard.Button{Text: btnLogin, Unique: string(auth.TriggerLogin)},
		))
	case auth.KeyboardConfirm:
		return keyboard.Inline(keyboard.Row(
			keyboard.Button{Text: btnConfirm, Unique: string(auth.TriggerConfirm)},
			keyboard.Button{Text: btnCancel, Unique: string(auth.TriggerCancel)},
		))
	default:
		return nil
	}
}

func actorOf(c tele.Context) auth.Actor {
	u := c.Sender()
	if u == nil {
		return auth.Actor{}
	}
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		name = u.Username
	}
	return auth.Actor{UserID: u.ID, Name: name}
}

// render applies resp to the chat. The callback is answered first, then the
// prompt is sent while the input still exists to be quoted, then messages are removed.
func (a *App) render(c tele.Context, resp auth.Response) error {
	ctx := tghelpers.BuildContext(c)
	cb := c.Callback()

	if cb != nil {
		answer := &tele.CallbackResponse{}
		if resp.Toast != nil {
			answer.Text = resp.Toast.Text
			answer.ShowAlert = resp.Toast.Alert
		}
		if err := a.out.Answer(c, answer); err != nil {
			logger.LogEvent(ctx, logger.TG, slog.LevelWarn, "render.answer_failed", slog.String("err", err.Error()))
		}
	} else if resp.Toast != nil {
		if _, err := a.out.Send(c, auth.Prompt{Text: resp.Toast.Text}, nil); err != nil {
			return err
		}
	}

	if p := resp.Prompt; p != nil {
		msg, err := a.out.Send(c, *p, markupFor(p.Keyboard))
		if err != nil {
			return err
		}
		if p.Track && msg != nil && c.Sender() != nil {
			a.machine.TrackPrompt(ctx, c.Sender().ID, msg.ID)
		}
	}

	var source *tele.Message
	if cb != nil {
		source = cb.Message
	}
	if resp.DeleteInput && cb == nil && c.Message() != nil {
		a.out.Delete(c, c.Message())
	}
	if source != nil {
		switch {
		case resp.DeleteSource:
			a.out.Delete(c, source)
		case resp.CleanupSource:
			a.out.DeleteLater(c, source, a.cleanupDelay)
		}
	}
	if id := resp.StalePromptID; id != 0 && (source == nil || source.ID != id) && c.Chat() != nil {
		a.out.Delete(c, tghelpers.MessageRef(c.Chat().ID, id))
	}
	return nil
}
