package bot

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/m3rciful/diarybot/core/logger"
	"github.com/m3rciful/diarybot/core/telegram/commands"
	"github.com/m3rciful/diarybot/core/telegram/format"
	tghelpers "github.com/m3rciful/diarybot/core/telegram/helpers"
	"github.com/m3rciful/diarybot/internal/auth"
	"github.com/m3rciful/diarybot/internal/store"

	tele "gopkg.in/telebot.v4"
)

const (
	textAdminFailed  = "❌ The operation failed. Check the logs."
	textOwnerPinned  = "❗ The owner cannot be removed from the sudoers list."
	textNoSudoers    = "The sudoers list is empty."
	textNoUsers      = "No registered users yet."
	usageAddSudo     = "Usage: /addsudo <user_id>"
	usageRemoveSudo  = "Usage: /rmsudo <user_id>"
	usageDeleteUser  = "Usage: /deluser <username>"
	textUserNotFound = "❗ No user with that username."
)

func (a *App) registerAdminCommands() {
	a.registry.RegisterCommand("/addsudo", commands.Command{
		Handler:     a.handleAddSudo,
		Description: "Grant admin rights",
		Sudo:        true,
	})
	a.registry.RegisterCommand("/rmsudo", commands.Command{
		Handler:     a.handleRemoveSudo,
		Description: "Revoke admin rights",
		Sudo:        true,
		Aliases:     []string{"delsudo"},
	})
	a.registry.RegisterCommand("/sudoers", commands.Command{
		Handler:     a.handleSudoers,
		Description: "List admins",
		Sudo:        true,
	})
	a.registry.RegisterCommand("/users", commands.Command{
		Handler:     a.handleUsers,
		Description: "List registered users",
		Sudo:        true,
	})
	a.registry.RegisterCommand("/deluser", commands.Command{
		Handler:     a.handleDeleteUser,
		Description: "Delete a registered user",
		Sudo:        true,
	})
}

func (a *App) reply(c tele.Context, text string) error {
	return a.render(c, auth.Response{Prompt: &auth.Prompt{Text: text, Quote: true}})
}

// userIDArg reads the target user from the first argument or, failing that,
// from the author of the replied-to message.
func userIDArg(c tele.Context) (int64, bool) {
	if args := c.Args(); len(args) > 0 {
		id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
		return id, err == nil && id > 0
	}
	if m := c.Message(); m != nil && m.ReplyTo != nil && m.ReplyTo.Sender != nil {
		return m.ReplyTo.Sender.ID, true
	}
	return 0, false
}

func (a *App) adminFailed(c tele.Context, op string, err error) error {
	logger.LogEvent(tghelpers.BuildContext(c), logger.TG, slog.LevelError, "admin.failed",
		slog.String("op", op),
		slog.String("err", err.Error()),
	)
	return a.reply(c, textAdminFailed)
}

func (a *App) handleAddSudo(c tele.Context) error {
	id, ok := userIDArg(c)
	if !ok {
		return a.reply(c, usageAddSudo)
	}
	ctx := tghelpers.BuildContext(c)
	if err := a.store.AddSudo(ctx, id); err != nil {
		return a.adminFailed(c, "addsudo", err)
	}
	logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "admin.sudo_added", slog.Int64("target_id", id))
	return a.reply(c, "✅ "+format.Code(strconv.FormatInt(id, 10))+" is now a sudoer.")
}

func (a *App) handleRemoveSudo(c tele.Context) error {
	id, ok := userIDArg(c)
	if !ok {
		return a.reply(c, usageRemoveSudo)
	}
	if a.ownerID > 0 && id == a.ownerID {
		return a.reply(c, textOwnerPinned)
	}
	ctx := tghelpers.BuildContext(c)
	if err := a.store.RemoveSudo(ctx, id); err != nil {
		return a.adminFailed(c, "rmsudo", err)
	}
	logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "admin.sudo_removed", slog.Int64("target_id", id))
	return a.reply(c, "✅ "+format.Code(strconv.FormatInt(id, 10))+" is no longer a sudoer.")
}

func (a *App) handleSudoers(c tele.Context) error {
	ids, err := a.store.GetSudoers(tghelpers.BuildContext(c))
	if err != nil {
		return a.adminFailed(c, "sudoers", err)
	}
	if len(ids) == 0 {
		return a.reply(c, textNoSudoers)
	}
	var b strings.Builder
	b.WriteString("<b>🛡 Sudoers</b>\n")
	for _, id := range ids {
		b.WriteString("\n• ")
		b.WriteString(format.Mention(id, strconv.FormatInt(id, 10)))
		if id == a.ownerID {
			b.WriteString(" (owner)")
		}
	}
	return a.reply(c, b.String())
}

func (a *App) handleUsers(c tele.Context) error {
	names, err := a.store.ListUsernames(tghelpers.BuildContext(c))
	if err != nil {
		return a.adminFailed(c, "users", err)
	}
	if len(names) == 0 {
		return a.reply(c, textNoUsers)
	}
	var b strings.Builder
	b.WriteString("<b>👥 Registered users: " + strconv.Itoa(len(names)) + "</b>\n")
	for _, n := range names {
		b.WriteString("\n• ")
		b.WriteString(format.Code(n))
	}
	return a.reply(c, b.String())
}

func (a *App) handleDeleteUser(c tele.Context) error {
	args := c.Args()
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return a.reply(c, usageDeleteUser)
	}
	username := strings.TrimSpace(args[0])
	ctx := tghelpers.BuildContext(c)
	err := a.store.DeleteUser(ctx, username)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return a.reply(c, textUserNotFound)
	case err != nil:
		return a.adminFailed(c, "deluser", err)
	}
	logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "admin.user_deleted")
	return a.reply(c, "🗑 User "+format.Code(username)+" deleted.")
}
