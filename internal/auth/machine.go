// Package auth drives the registration and login conversations: one step per
// text reply, then a confirm button that commits to the credential store.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/m3rciful/diarybot/core/logger"
	"github.com/m3rciful/diarybot/core/telegram/state"
	"github.com/m3rciful/diarybot/internal/store"
)

// CredentialStore is the persistence the machine depends on.
type CredentialStore interface {
	AddPendingUser(ctx context.Context, userID int64) (bool, error)
	IsRegisteredByUsername(ctx context.Context, username string) (bool, error)
	IsRegisteredByID(ctx context.Context, userID int64) (bool, error)
	GetLoginCredential(ctx context.Context, username string) (*store.LoginCredential, error)
	RegisterUser(ctx context.Context, u store.NewUser) error
	SaveLoginSession(ctx context.Context, c store.LoginCredential) error
}

// Actor identifies the Telegram user behind an event.
type Actor struct {
	UserID int64
	Name   string
}

// Images maps screens to photo references. Steps is keyed by step name.
type Images struct {
	Start string
	Auth  string
	Steps map[string]string
}

func (i Images) forStep(s Step) string {
	if img := i.Steps[s.String()]; img != "" {
		return img
	}
	switch s {
	case StepRegisterConfirm:
		return i.forStep(StepEmail)
	case StepLoginConfirm:
		return i.forStep(StepLoginPassword)
	}
	return ""
}

// Options tune a Machine. Zero values select bcrypt and plaintext-until-commit.
type Options struct {
	Images Images
	// HashOnCapture hashes the password as soon as it is typed and never keeps plaintext.
	HashOnCapture bool
	Hash          func(plain string) (string, error)
	Verify        func(plain, hash string) bool
}

// Machine is safe for concurrent use across users. Events of one user must arrive in order.
type Machine struct {
	creds         CredentialStore
	convs         ConversationStore
	images        Images
	hashOnCapture bool
	hash          func(string) (string, error)
	verify        func(string, string) bool
	botUsername   atomic.Pointer[string]
}

// NewMachine wires the machine to its stores.
func NewMachine(creds CredentialStore, convs ConversationStore, opts Options) *Machine {
	m := &Machine{
		creds:         creds,
		convs:         convs,
		images:        opts.Images,
		hashOnCapture: opts.HashOnCapture,
		hash:          opts.Hash,
		verify:        opts.Verify,
	}
	if m.hash == nil {
		m.hash = store.HashPassword
	}
	if m.verify == nil {
		m.verify = store.VerifyPassword
	}
	return m
}

// SetBotUsername sets the handle used in welcome links.
func (m *Machine) SetBotUsername(name string) {
	m.botUsername.Store(&name)
}

func (m *Machine) bot() string {
	if p := m.botUsername.Load(); p != nil {
		return *p
	}
	return ""
}

// AuthPrompt is the register/login screen.
func (m *Machine) AuthPrompt(a Actor) *Prompt {
	return &Prompt{Image: m.images.Auth, Text: authText(a, m.bot()), Keyboard: KeyboardAuth}
}

// WelcomePrompt is the screen of a registered user.
func (m *Machine) WelcomePrompt(a Actor) *Prompt {
	return &Prompt{Image: m.images.Start, Text: welcomeText(a, m.bot())}
}

// Start records the user as pending and shows the welcome or the auth screen.
func (m *Machine) Start(ctx context.Context, a Actor) Response {
	added, err := m.creds.AddPendingUser(ctx, a.UserID)
	if err != nil {
		logger.LogEvent(ctx, logger.Auth, slog.LevelWarn, "auth.pending_failed", slog.String("err", err.Error()))
	}
	registered, err := m.creds.IsRegisteredByID(ctx, a.UserID)
	if err != nil {
		logger.LogEvent(ctx, logger.Auth, slog.LevelError, "auth.start",
			slog.String("outcome", string(OutcomeFail)),
			slog.String("reason", "store"),
			slog.String("err", err.Error()),
		)
		return Response{Prompt: &Prompt{Text: textUnexpected}, Outcome: OutcomeFail}
	}
	logger.LogEvent(ctx, logger.Auth, slog.LevelInfo, "auth.start",
		slog.Bool("first_contact", added),
		slog.Bool("registered", registered),
	)
	if registered {
		return Response{Prompt: m.WelcomePrompt(a)}
	}
	p := m.AuthPrompt(a)
	p.Image = m.images.Start
	return Response{Prompt: p}
}

// Trigger dispatches a button press.
func (m *Machine) Trigger(ctx context.Context, a Actor, t Trigger) Response {
	switch t {
	case TriggerRegister:
		return m.BeginRegistration(ctx, a)
	case TriggerLogin:
		return m.BeginLogin(ctx, a)
	case TriggerConfirm:
		return m.Confirm(ctx, a)
	case TriggerCancel:
		return m.Cancel(ctx, a)
	}
	return Response{Outcome: OutcomeIgnored}
}

// BeginRegistration opens the registration form unless the user already has an account.
func (m *Machine) BeginRegistration(ctx context.Context, a Actor) Response {
	registered, err := m.creds.IsRegisteredByID(ctx, a.UserID)
	if err != nil {
		m.logStep(ctx, 0, StepUsername, OutcomeFail, "store", err)
		return Response{Toast: &Toast{Text: toastFailure, Alert: true}, Outcome: OutcomeFail}
	}
	if registered {
		m.logStep(ctx, 0, StepUsername, OutcomeRejected, "already_registered", nil)
		return Response{Toast: &Toast{Text: toastAlreadyRegistered, Alert: true}, Outcome: OutcomeRejected}
	}
	return m.begin(ctx, a, StepUsername)
}

// BeginLogin opens the login form.
func (m *Machine) BeginLogin(ctx context.Context, a Actor) Response {
	return m.begin(ctx, a, StepLoginUsername)
}

func (m *Machine) begin(ctx context.Context, a Actor, first Step) Response {
	var stale int
	if prev, ok, err := m.convs.Get(ctx, a.UserID); err == nil && ok {
		stale = prev.PromptMessageID
	}
	if err := m.convs.Put(ctx, a.UserID, Conversation{Step: first}); err != nil {
		m.logStep(ctx, 0, first, OutcomeFail, "state", err)
		return Response{Toast: &Toast{Text: toastFailure, Alert: true}, Outcome: OutcomeFail}
	}
	m.logStep(ctx, 0, first, OutcomeAdvanced, "", nil)
	return Response{
		Prompt:        &Prompt{Image: m.images.forStep(first), Text: stepTexts[first], Track: true},
		CleanupSource: true,
		StalePromptID: stale,
		Outcome:       OutcomeAdvanced,
	}
}

// HandleText consumes a text reply. Users without a conversation are ignored.
func (m *Machine) HandleText(ctx context.Context, a Actor, text string) Response {
	conv, ok, err := m.convs.Get(ctx, a.UserID)
	if err != nil {
		return m.stateFailure(ctx, a, err, false)
	}
	if !ok {
		return Response{Outcome: OutcomeIgnored}
	}

	switch conv.Step {
	case StepUsername:
		return m.onUsername(ctx, a, conv, text)
	case StepNickname:
		return m.onNickname(ctx, a, conv, text)
	case StepPassword:
		return m.onPassword(ctx, a, conv, text)
	case StepEmail:
		return m.onEmail(ctx, a, conv, text)
	case StepLoginUsername:
		return m.onLoginUsername(ctx, a, conv, text)
	case StepLoginPassword:
		return m.onLoginPassword(ctx, a, conv, text)
	case StepRegisterConfirm, StepLoginConfirm:
		return m.reject(ctx, conv, textUseButtons, "awaiting_confirm", false)
	default:
		return m.invariant(ctx, a, conv, false)
	}
}

func (m *Machine) onUsername(ctx context.Context, a Actor, conv Conversation, text string) Response {
	if err := ValidateUsername(text); err != nil {
		return m.rejectInvalid(ctx, conv, err, false)
	}
	taken, err := m.creds.IsRegisteredByUsername(ctx, text)
	if err != nil {
		return m.abortText(ctx, a, conv, textUnexpected, "store", err)
	}
	if taken {
		return m.abortText(ctx, a, conv, textUsernameTaken, "username_taken", nil)
	}
	conv.Username = text
	return m.advance(ctx, a, conv, StepNickname, stepTexts[StepNickname], KeyboardNone)
}

func (m *Machine) onNickname(ctx context.Context, a Actor, conv Conversation, text string) Response {
	if err := ValidateNickname(text); err != nil {
		return m.rejectInvalid(ctx, conv, err, false)
	}
	conv.Nickname = text
	return m.advance(ctx, a, conv, StepPassword, stepTexts[StepPassword], KeyboardNone)
}

func (m *Machine) onPassword(ctx context.Context, a Actor, conv Conversation, text string) Response {
	if err := ValidatePassword(text); err != nil {
		return m.rejectInvalid(ctx, conv, err, true)
	}
	if m.hashOnCapture {
		h, err := m.hash(text)
		if err != nil {
			return m.abortText(ctx, a, conv, textUnexpected, "hash", err)
		}
		conv.PasswordHash, conv.Password = h, ""
	} else {
		conv.Password = text
	}
	return m.advance(ctx, a, conv, StepEmail, stepTexts[StepEmail], KeyboardNone)
}

func (m *Machine) onEmail(ctx context.Context, a Actor, conv Conversation, text string) Response {
	if err := ValidateEmail(text); err != nil {
		return m.rejectInvalid(ctx, conv, err, false)
	}
	conv.Email = text
	return m.advance(ctx, a, conv, StepRegisterConfirm, registerSummary(conv, a.UserID), KeyboardConfirm)
}

func (m *Machine) onLoginUsername(ctx context.Context, a Actor, conv Conversation, text string) Response {
	username := strings.TrimSpace(text)
	if username == "" {
		return m.rejectInvalid(ctx, conv, invalid("username", "empty"), false)
	}
	_, err := m.creds.GetLoginCredential(ctx, username)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return m.abortText(ctx, a, conv, textLoginUnknown, "unknown_username", nil)
	case err != nil:
		return m.abortText(ctx, a, conv, textUnexpected, "store", err)
	}
	conv.Username = username
	return m.advance(ctx, a, conv, StepLoginPassword, stepTexts[StepLoginPassword], KeyboardNone)
}

func (m *Machine) onLoginPassword(ctx context.Context, a Actor, conv Conversation, text string) Response {
	password := strings.TrimSpace(text)
	cred, err := m.creds.GetLoginCredential(ctx, conv.Username)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return m.abortText(ctx, a, conv, textUnexpected, "credential_missing", nil)
	case err != nil:
		return m.abortText(ctx, a, conv, textUnexpected, "store", err)
	}
	if !m.verify(password, cred.PasswordHash) {
		return m.reject(ctx, conv, textWrongPassword, "wrong_password", true)
	}
	if m.hashOnCapture {
		conv.PasswordHash, conv.Password = cred.PasswordHash, ""
	} else {
		conv.Password = password
	}
	return m.advance(ctx, a, conv, StepLoginConfirm, loginSummary(conv, a.UserID), KeyboardConfirm)
}

// Confirm commits the form waiting at a confirm step. The conversation is
// consumed whatever the commit result.
func (m *Machine) Confirm(ctx context.Context, a Actor) Response {
	conv, ok, err := m.convs.Get(ctx, a.UserID)
	if err != nil {
		return m.stateFailure(ctx, a, err, true)
	}
	if !ok {
		m.logStep(ctx, 0, 0, OutcomeRejected, "no_session", nil)
		return Response{Toast: &Toast{Text: toastNoSession, Alert: true}, Outcome: OutcomeRejected}
	}

	switch conv.Step {
	case StepRegisterConfirm:
		return m.commitRegistration(ctx, a, conv)
	case StepLoginConfirm:
		return m.commitLogin(ctx, a, conv)
	case StepUsername, StepNickname, StepPassword, StepEmail, StepLoginUsername, StepLoginPassword:
		m.logStep(ctx, conv.Step, conv.Step, OutcomeRejected, "not_confirmable", nil)
		return Response{Toast: &Toast{Text: toastNotConfirmable}, Outcome: OutcomeRejected}
	default:
		return m.invariant(ctx, a, conv, true)
	}
}

func (m *Machine) commitRegistration(ctx context.Context, a Actor, conv Conversation) Response {
	m.drop(ctx, a.UserID)

	taken, err := m.creds.IsRegisteredByUsername(ctx, conv.Username)
	if err != nil {
		return m.abortButton(ctx, a, conv, toastFailure, "store", err)
	}
	if taken {
		return m.abortButton(ctx, a, conv, toastUserExists, "username_taken", nil)
	}
	registered, err := m.creds.IsRegisteredByID(ctx, a.UserID)
	if err != nil {
		return m.abortButton(ctx, a, conv, toastFailure, "store", err)
	}
	if registered {
		return m.abortButton(ctx, a, conv, toastAlreadyRegistered, "already_registered", nil)
	}

	hash := conv.PasswordHash
	if hash == "" {
		if hash, err = m.hash(conv.Password); err != nil {
			return m.abortButton(ctx, a, conv, toastFailure, "hash", err)
		}
	}
	err = m.creds.RegisterUser(ctx, store.NewUser{
		UserID:       a.UserID,
		Username:     conv.Username,
		PasswordHash: hash,
		Email:        conv.Email,
		Nickname:     conv.Nickname,
	})
	switch {
	case errors.Is(err, store.ErrUsernameTaken):
		return m.abortButton(ctx, a, conv, toastUsernameTaken, "username_taken", nil)
	case errors.Is(err, store.ErrAlreadyRegistered):
		return m.abortButton(ctx, a, conv, toastAlreadyRegistered, "already_registered", nil)
	case err != nil:
		return m.abortButton(ctx, a, conv, toastFailure, "store", err)
	}

	m.logStep(ctx, conv.Step, 0, OutcomeCommitted, "", nil)
	return Response{
		Toast:        &Toast{Text: toastWelcome(conv.Nickname), Alert: true},
		Prompt:       m.WelcomePrompt(a),
		DeleteSource: true,
		Outcome:      OutcomeCommitted,
	}
}

func (m *Machine) commitLogin(ctx context.Context, a Actor, conv Conversation) Response {
	m.drop(ctx, a.UserID)

	cred, err := m.creds.GetLoginCredential(ctx, conv.Username)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return m.abortButton(ctx, a, conv, toastUserNotFound, "unknown_username", nil)
	case err != nil:
		return m.abortButton(ctx, a, conv, toastFailure, "store", err)
	}

	var match bool
	if conv.PasswordHash != "" {
		match = subtle.ConstantTimeCompare([]byte(conv.PasswordHash), []byte(cred.PasswordHash)) == 1
	} else {
		match = m.verify(conv.Password, cred.PasswordHash)
	}
	if !match {
		return m.abortButton(ctx, a, conv, toastWrongPassword, "wrong_password", nil)
	}

	err = m.creds.SaveLoginSession(ctx, store.LoginCredential{
		UserID:       a.UserID,
		Username:     cred.Username,
		PasswordHash: cred.PasswordHash,
		Email:        cred.Email,
	})
	if err != nil {
		return m.abortButton(ctx, a, conv, toastFailure, "store", err)
	}

	m.logStep(ctx, conv.Step, 0, OutcomeCommitted, "", nil)
	return Response{
		Toast:        &Toast{Text: toastWelcomeBack(cred.Username), Alert: true},
		Prompt:       m.WelcomePrompt(a),
		DeleteSource: true,
		Outcome:      OutcomeCommitted,
	}
}

// Cancel drops the conversation and returns to the auth screen. Without a
// conversation it only answers the button.
func (m *Machine) Cancel(ctx context.Context, a Actor) Response {
	conv, ok, err := m.convs.Get(ctx, a.UserID)
	switch {
	case errors.Is(err, state.ErrCorrupt):
		ok = true
	case err != nil:
		m.logStep(ctx, 0, 0, OutcomeFail, "state", err)
		return Response{Toast: &Toast{Text: toastFailure, Alert: true}, Outcome: OutcomeFail}
	}
	if !ok {
		return Response{Toast: &Toast{Text: toastNothingToCancel}, Outcome: OutcomeIgnored}
	}

	m.drop(ctx, a.UserID)
	m.logStep(ctx, conv.Step, 0, OutcomeCancelled, "", nil)
	return Response{
		Toast:         &Toast{Text: toastCanceled, Alert: true},
		Prompt:        m.AuthPrompt(a),
		DeleteSource:  true,
		StalePromptID: conv.PromptMessageID,
		Outcome:       OutcomeCancelled,
	}
}

// TrackPrompt remembers msgID as the prompt of the user's conversation, if any.
func (m *Machine) TrackPrompt(ctx context.Context, userID int64, msgID int) {
	conv, ok, err := m.convs.Get(ctx, userID)
	if err != nil || !ok {
		return
	}
	conv.PromptMessageID = msgID
	if err := m.convs.Put(ctx, userID, conv); err != nil {
		logger.LogEvent(ctx, logger.Auth, slog.LevelWarn, "auth.track_failed", slog.String("err", err.Error()))
	}
}

func (m *Machine) advance(ctx context.Context, a Actor, conv Conversation, next Step, text string, kb Keyboard) Response {
	from, stale := conv.Step, conv.PromptMessageID
	conv.Step, conv.PromptMessageID = next, 0
	if err := m.convs.Put(ctx, a.UserID, conv); err != nil {
		conv.Step = from
		conv.PromptMessageID = stale
		return m.abortText(ctx, a, conv, textUnexpected, "state", err)
	}
	m.logStep(ctx, from, next, OutcomeAdvanced, "", nil)
	return Response{
		Prompt:        &Prompt{Image: m.images.forStep(next), Text: text, Keyboard: kb, Track: true},
		DeleteInput:   true,
		StalePromptID: stale,
		Outcome:       OutcomeAdvanced,
	}
}

func (m *Machine) rejectInvalid(ctx context.Context, conv Conversation, err error, sensitive bool) Response {
	var verr *ValidationError
	if !errors.As(err, &verr) {
		return m.reject(ctx, conv, textUnexpected, "validation", sensitive)
	}
	return m.reject(ctx, conv, validationText(verr), verr.Field+"_"+verr.Reason, sensitive)
}

// reject keeps the step. sensitive input is removed from the chat.
func (m *Machine) reject(ctx context.Context, conv Conversation, text, reason string, sensitive bool) Response {
	m.logStep(ctx, conv.Step, conv.Step, OutcomeRejected, reason, nil)
	return Response{
		Prompt:      &Prompt{Text: text, Quote: !sensitive},
		DeleteInput: sensitive,
		Outcome:     OutcomeRejected,
	}
}

func (m *Machine) abortText(ctx context.Context, a Actor, conv Conversation, text, reason string, cause error) Response {
	m.drop(ctx, a.UserID)
	outcome := OutcomeAborted
	if cause != nil {
		outcome = OutcomeFail
	}
	m.logStep(ctx, conv.Step, 0, outcome, reason, cause)
	return Response{
		Prompt:        &Prompt{Text: text, Quote: true, Keyboard: KeyboardAuth},
		StalePromptID: conv.PromptMessageID,
		Outcome:       outcome,
	}
}

func (m *Machine) abortButton(ctx context.Context, a Actor, conv Conversation, toast, reason string, cause error) Response {
	outcome := OutcomeAborted
	if cause != nil {
		outcome = OutcomeFail
	}
	m.logStep(ctx, conv.Step, 0, outcome, reason, cause)
	return Response{
		Toast:        &Toast{Text: toast, Alert: true},
		Prompt:       m.AuthPrompt(a),
		DeleteSource: true,
		Outcome:      outcome,
	}
}

func (m *Machine) invariant(ctx context.Context, a Actor, conv Conversation, viaButton bool) Response {
	m.drop(ctx, a.UserID)
	m.logStep(ctx, conv.Step, 0, OutcomeFail, "invariant", ErrInvariant)
	if viaButton {
		return Response{Toast: &Toast{Text: textUnexpected, Alert: true}, Outcome: OutcomeFail}
	}
	return Response{Prompt: &Prompt{Text: textUnexpected, Quote: true}, Outcome: OutcomeFail}
}

// stateFailure handles a conversation that could not be read. A corrupt value
// is dropped like an invariant violation; a backend outage leaves it alone.
func (m *Machine) stateFailure(ctx context.Context, a Actor, err error, viaButton bool) Response {
	if errors.Is(err, state.ErrCorrupt) {
		m.drop(ctx, a.UserID)
	}
	m.logStep(ctx, 0, 0, OutcomeFail, "state", err)
	if viaButton {
		return Response{Toast: &Toast{Text: toastFailure, Alert: true}, Outcome: OutcomeFail}
	}
	return Response{Prompt: &Prompt{Text: textUnexpected, Quote: true}, Outcome: OutcomeFail}
}

func (m *Machine) drop(ctx context.Context, userID int64) {
	if err := m.convs.Delete(ctx, userID); err != nil {
		logger.LogEvent(ctx, logger.Auth, slog.LevelWarn, "auth.drop_failed", slog.String("err", err.Error()))
	}
}

func (m *Machine) logStep(ctx context.Context, from, to Step, outcome Outcome, reason string, cause error) {
	level := slog.LevelDebug
	switch outcome {
	case OutcomeCommitted, OutcomeCancelled, OutcomeAborted:
		level = slog.LevelInfo
	case OutcomeFail:
		level = slog.LevelError
	}
	flow := from.Flow()
	if flow == "" {
		flow = to.Flow()
	}
	attrs := []slog.Attr{
		slog.String("flow", string(flow)),
		slog.String("outcome", string(outcome)),
	}
	if from != 0 {
		attrs = append(attrs, slog.String("step", from.String()))
	}
	if to != 0 && to != from {
		attrs = append(attrs, slog.String("next_step", to.String()))
	}
	if reason != "" {
		attrs = append(attrs, slog.String("reason", reason))
	}
	if cause != nil {
		attrs = append(attrs, slog.String("err", cause.Error()))
	}
	logger.LogEvent(ctx, logger.Auth, level, "auth.step", attrs...)
}
