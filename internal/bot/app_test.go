package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	coreconfig "github.com/m3rciful/diarybot/core/config"
	tg "github.com/m3rciful/diarybot/core/telegram"
	"github.com/m3rciful/diarybot/internal/auth"
	"github.com/m3rciful/diarybot/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

const (
	owner   int64 = 1
	visitor int64 = 77
)

type harness struct {
	t     *testing.T
	bot   *tele.Bot
	app   *App
	store *memStore
	out   *recorder
	msgID int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Offline: true, Synchronous: true})
	require.NoError(t, err)

	cfg := &config.Config{
		Config: coreconfig.Config{Telegram: coreconfig.TelegramConfig{Token: "t", AdminID: owner}},
		Images: config.ImagesConfig{
			StartImage: "start.png",
			AuthImage:  "auth.png",
			StepImages: map[string]string{"username": "username.png"},
		},
		Auth: config.AuthConfig{CleanupDelay: 30 * time.Second},
	}
	st := newMemStore()
	st.sudoers = []int64{owner}
	out := &recorder{}
	return &harness{t: t, bot: b, app: newApp(cfg, st, auth.NewMemoryConversations(), out), store: st, out: out, msgID: 200}
}

func (h *harness) inFlow(userID int64) bool {
	h.t.Helper()
	active, err := h.app.InProgress(context.Background(), userID)
	require.NoError(h.t, err)
	return active
}

func (h *harness) text(userID int64, text, payload string) tele.Context {
	h.msgID++
	return h.bot.NewContext(tele.Update{
		ID: h.msgID,
		Message: &tele.Message{
			ID:      h.msgID,
			Text:    text,
			Payload: payload,
			Sender:  &tele.User{ID: userID, FirstName: "Ada"},
			Chat:    &tele.Chat{ID: userID, Type: tele.ChatPrivate},
		},
	})
}

func (h *harness) press(userID int64, trigger auth.Trigger, sourceID int) tele.Context {
	h.msgID++
	return h.bot.NewContext(tele.Update{
		ID: h.msgID,
		Callback: &tele.Callback{
			ID:     "cb",
			Unique: string(trigger),
			Sender: &tele.User{ID: userID, FirstName: "Ada"},
			Message: &tele.Message{
				ID:   sourceID,
				Chat: &tele.Chat{ID: userID, Type: tele.ChatPrivate},
			},
		},
	})
}

func (h *harness) callback(trigger auth.Trigger) tele.HandlerFunc {
	h.t.Helper()
	cb, ok := h.app.registry.GetCallback(string(trigger))
	require.True(h.t, ok)
	return cb
}

func (h *harness) command(name string) tele.HandlerFunc {
	h.t.Helper()
	_, cmd, ok := h.app.registry.LookupCommand(name)
	require.True(h.t, ok)
	return cmd.Handler
}

func uniques(m *tele.ReplyMarkup) []string {
	if m == nil {
		return nil
	}
	var out []string
	for _, row := range m.InlineKeyboard {
		for _, b := range row {
			out = append(out, b.Unique)
		}
	}
	return out
}

func TestStartShowsAuthScreen(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.command("/start")(h.text(visitor, "/start", "")))

	require.Len(t, h.out.sent, 1)
	got := h.out.last()
	assert.Equal(t, "start.png", got.prompt.Image)
	assert.Equal(t, []string{"register", "login"}, uniques(got.markup))
	assert.True(t, h.store.pending[visitor])
}

func TestRegistrationEndToEnd(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.callback(auth.TriggerRegister)(h.press(visitor, auth.TriggerRegister, 100)))
	require.Len(t, h.out.answers, 1)
	assert.Empty(t, h.out.answers[0].Text)
	assert.Equal(t, []deferred{{id: 100, delay: 30 * time.Second}}, h.out.later)
	assert.Equal(t, "username.png", h.out.last().prompt.Image)
	usernamePrompt := h.out.last().id
	assert.True(t, h.inFlow(visitor))

	h.out.reset()
	in := h.text(visitor, "alice", "")
	require.NoError(t, h.app.HandleText(in))
	assert.ElementsMatch(t, []int{in.Message().ID, usernamePrompt}, h.out.deleted)

	for _, reply := range []string{"Ali", "s3cret!pw", "alice@gmail.com"} {
		require.NoError(t, h.app.HandleText(h.text(visitor, reply, "")))
	}
	summary := h.out.last()
	assert.Equal(t, []string{"confirm", "cancel"}, uniques(summary.markup))
	assert.Contains(t, summary.prompt.Text, "<tg-spoiler>s3cret!pw</tg-spoiler>")

	h.out.reset()
	require.NoError(t, h.callback(auth.TriggerConfirm)(h.press(visitor, auth.TriggerConfirm, summary.id)))
	require.Len(t, h.out.answers, 1)
	assert.Equal(t, "✅ Welcome, Ali!", h.out.answers[0].Text)
	assert.True(t, h.out.answers[0].ShowAlert)
	assert.Contains(t, h.out.deleted, summary.id)

	u, err := h.store.GetUserByID(context.Background(), visitor)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Zero(t, u.TotalPages)
	assert.False(t, h.inFlow(visitor))
	for _, c := range h.store.creds {
		assert.NotEqual(t, "s3cret!pw", c.PasswordHash)
	}
}

func TestInvalidPasswordIsDeletedNotQuoted(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.callback(auth.TriggerRegister)(h.press(visitor, auth.TriggerRegister, 100)))
	require.NoError(t, h.app.HandleText(h.text(visitor, "alice", "")))
	require.NoError(t, h.app.HandleText(h.text(visitor, "Ali", "")))

	h.out.reset()
	in := h.text(visitor, "short", "")
	require.NoError(t, h.app.HandleText(in))
	assert.False(t, h.out.last().prompt.Quote)
	assert.Equal(t, []int{in.Message().ID}, h.out.deleted)
}

func TestConversationOutageAnswersUser(t *testing.T) {
	h := newHarness(t)
	h.app = newApp(h.app.cfg, h.store, brokenConversations{err: errors.New("redis: connection refused")}, h.out)

	active, err := h.app.InProgress(context.Background(), visitor)
	require.Error(t, err)
	assert.False(t, active)

	require.NoError(t, h.app.HandleText(h.text(visitor, "alice", "")))
	require.Len(t, h.out.sent, 1)
	assert.Contains(t, h.out.last().prompt.Text, "unexpected error")
}

func TestCancelWithoutConversation(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.callback(auth.TriggerCancel)(h.press(visitor, auth.TriggerCancel, 100)))

	require.Len(t, h.out.answers, 1)
	assert.Equal(t, "Nothing to cancel.", h.out.answers[0].Text)
	assert.Empty(t, h.out.sent)
	assert.Empty(t, h.out.deleted)
}

func TestMeRequiresRegistration(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.command("/me")(h.text(visitor, "/me", "")))
	assert.Equal(t, textNotRegistered, h.out.last().prompt.Text)
}

func TestAdminCommands(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.command("/addsudo")(h.text(owner, "/addsudo", "")))
	assert.Equal(t, usageAddSudo, h.out.last().prompt.Text)

	require.NoError(t, h.command("/addsudo")(h.text(owner, "/addsudo 55", "55")))
	assert.Equal(t, []int64{owner, 55}, h.store.sudoers)

	require.NoError(t, h.command("/rmsudo")(h.text(owner, "/rmsudo 1", "1")))
	assert.Equal(t, textOwnerPinned, h.out.last().prompt.Text)
	assert.Contains(t, h.store.sudoers, owner)

	require.NoError(t, h.command("/sudoers")(h.text(owner, "/sudoers", "")))
	assert.Contains(t, h.out.last().prompt.Text, "(owner)")

	require.NoError(t, h.command("/users")(h.text(owner, "/users", "")))
	assert.Equal(t, textNoUsers, h.out.last().prompt.Text)

	require.NoError(t, h.command("/deluser")(h.text(owner, "/deluser ghost", "ghost")))
	assert.Equal(t, textUserNotFound, h.out.last().prompt.Text)
}

func TestUnknownCallbackAnswers(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.app.UnknownCallback()(h.press(visitor, "stale", 100)))
	require.Len(t, h.out.answers, 1)
	assert.Equal(t, toastExpired, h.out.answers[0].Text)
	assert.Nil(t, h.app.UnknownText())
}

func TestTelegramRunOptions(t *testing.T) {
	h := newHarness(t)
	opts, err := h.app.TelegramRunOptions()
	require.NoError(t, err)
	assert.Same(t, h.app.cfg.CoreConfig(), opts.Config)

	var chain []string
	for _, mw := range opts.Middlewares {
		chain = append(chain, mw.Name)
	}
	assert.Contains(t, chain, "serialize_users")

	var endpoints []string
	for _, r := range opts.Routes {
		if s, ok := r.Endpoint.(string); ok {
			endpoints = append(endpoints, s)
		}
	}
	joined := strings.Join(endpoints, " ")
	for _, want := range []string{"/start", "/verify", "/login", "/me", "/addsudo", "/rmsudo", "/delsudo", "/deluser", tele.OnCallback, tele.OnText} {
		assert.Contains(t, joined, want)
	}

	visible := h.app.registry.ListCommands(true)
	for _, c := range visible {
		assert.NotEqual(t, "/addsudo", c.Text)
	}
	require.NoError(t, opts.OnStop(context.Background(), tgRuntime()))
}

func tgRuntime() tg.Runtime { return tg.Runtime{} }
