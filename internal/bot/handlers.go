package bot

import (
	"errors"
	"strconv"

	"github.com/m3rciful/diarybot/core/telegram/commands"
	"github.com/m3rciful/diarybot/core/telegram/format"
	tghelpers "github.com/m3rciful/diarybot/core/telegram/helpers"
	"github.com/m3rciful/diarybot/internal/auth"
	"github.com/m3rciful/diarybot/internal/store"

	tele "gopkg.in/telebot.v4"
)

const (
	textNotRegistered = "You are not registered yet. Use /start to create an account."
	textProfileFailed = "❌ Could not load your profile. Please try again later."
)

func (a *App) registerCommands() {
	a.registry.RegisterCommand("/start", commands.Command{
		Handler:     a.handleStart,
		Description: "Start the bot",
	})
	a.registry.RegisterCommand("/verify", commands.Command{
		Handler:     a.handleVerify,
		Description: "Register or log in",
		Aliases:     []string{"login"},
	})
	a.registry.RegisterCommand("/me", commands.Command{
		Handler:     a.handleMe,
		Description: "Show your profile",
	})
	a.registerAdminCommands()
}

func (a *App) registerCallbacks() {
	for _, t := range auth.Triggers {
		trigger := t
		_ = a.registry.RegisterCallback(string(trigger), func(c tele.Context) error {
			return a.handleTrigger(c, trigger)
		})
	}
}

func (a *App) handleStart(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	return a.render(c, a.machine.Start(ctx, actorOf(c)))
}

// handleVerify shows the register/login screen again.
func (a *App) handleVerify(c tele.Context) error {
	return a.render(c, auth.Response{Prompt: a.machine.AuthPrompt(actorOf(c))})
}

func (a *App) handleMe(c tele.Context) error {
	if c.Sender() == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	u, err := a.store.GetUserByID(ctx, c.Sender().ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return a.render(c, auth.Response{Prompt: &auth.Prompt{Text: textNotRegistered, Quote: true}})
	case err != nil:
		return a.render(c, auth.Response{Prompt: &auth.Prompt{Text: textProfileFailed, Quote: true}})
	}
	return a.render(c, auth.Response{Prompt: &auth.Prompt{Text: profileText(u), Quote: true}})
}

func profileText(u *store.RegisteredUser) string {
	return "<b>👤 Your profile</b>\n\n" +
		"Username: " + format.Code(u.Username) + "\n" +
		"Nickname: " + format.Escape(u.Nickname) + "\n" +
		"Email: " + format.Escape(u.Email) + "\n" +
		"Pages written: " + strconv.Itoa(u.TotalPages) + "\n" +
		"Registered: " + u.RegisteredAt.UTC().Format("2006-01-02")
}

func (a *App) handleTrigger(c tele.Context, t auth.Trigger) error {
	ctx := tghelpers.BuildContext(c)
	return a.render(c, a.machine.Trigger(ctx, actorOf(c), t))
}

// HandleText feeds a text reply into the user's conversation.
func (a *App) HandleText(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	return a.render(c, a.machine.HandleText(ctx, actorOf(c), c.Text()))
}
