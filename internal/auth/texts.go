package auth

import (
	"strconv"
	"strings"

	"github.com/m3rciful/diarybot/core/telegram/format"
)

const botTitle = "Diary bot"

var stepTexts = map[Step]string{
	StepUsername:      "📝 Please enter a <b>username</b> (no spaces):",
	StepNickname:      "😊 Enter your <b>nickname</b> (no spaces):",
	StepPassword:      "🔒 Enter a <b>password</b> (min 8 characters, 1 special character, no spaces):",
	StepEmail:         "📧 Enter your <b>backup email</b> (Gmail, Hotmail, Outlook only, no spaces):",
	StepLoginUsername: "🔑 Please enter your <b>username</b>:",
	StepLoginPassword: "🔑 Now enter your <b>password</b>:",
}

var validationTexts = map[string]string{
	"username": "❗ Username <b>cannot contain spaces</b>. Try again.",
	"nickname": "❗ Nickname <b>cannot contain spaces</b>. Try again.",
	"password": "❗ Password must be <b>at least 8 characters</b> long and contain <b>at least 1 special character</b> (no spaces). Try again.",
	"email":    "❗ Invalid email. Only Gmail, Hotmail, and Outlook are allowed (no spaces). Try again.",
}

const (
	textUsernameTaken   = "❗ This username is already taken. Try another."
	textLoginUnknown    = "❗ Username not found! Please check or register first."
	textWrongPassword   = "❌ Incorrect password! Try again."
	textUnexpected      = "❌ An unexpected error occurred. Please try again."
	textUseButtons      = "Use the buttons above to confirm or cancel."
	textTooLongPassword = "❗ Password is too long. Use at most 72 bytes."
)

const (
	toastAlreadyRegistered = "❗ You are already registered!"
	toastNoSession         = "❌ No active session found. Please start again."
	toastNotConfirmable    = "Finish the current step first."
	toastUserNotFound      = "❌ User not found. Please register."
	toastUserExists        = "❌ User already exists. Please log in."
	toastUsernameTaken     = "❌ Username already exists! Try another."
	toastWrongPassword     = "❌ Incorrect password. Please try again."
	toastCanceled          = "❌ Action canceled."
	toastNothingToCancel   = "Nothing to cancel."
	toastFailure           = "❌ Something went wrong. Please try again later."
)

// toastNameLimit keeps welcome alerts under Telegram's 200 character cap for callback answers.
const toastNameLimit = 64

func toastWelcome(nickname string) string {
	return "✅ Welcome, " + format.Truncate(nickname, toastNameLimit) + "!"
}

func toastWelcomeBack(username string) string {
	return "✅ Welcome back, " + format.Truncate(username, toastNameLimit) + "!"
}

func botLink(botUsername string) string {
	if botUsername == "" {
		return botTitle
	}
	return format.Link("https://telegram.me/"+botUsername, botTitle)
}

func welcomeText(a Actor, botUsername string) string {
	return "<b>Hey " + format.Mention(a.UserID, a.Name) + ",\nwelcome to the " + botLink(botUsername) + "!</b>"
}

func authText(a Actor, botUsername string) string {
	return welcomeText(a, botUsername) + "\n\nPlease register or log in to your account."
}

func validationText(err *ValidationError) string {
	if err.Field == "password" && err.Reason == "too_long" {
		return textTooLongPassword
	}
	if t, ok := validationTexts[err.Field]; ok {
		return t
	}
	return textUnexpected
}

// passwordField renders the password line of a summary. With no plaintext on
// hand it shows a fixed-width mask.
func passwordField(plain string) string {
	if plain == "" {
		return format.Spoiler(format.Mask("", 8))
	}
	return format.Spoiler(plain)
}

func registerSummary(c Conversation, userID int64) string {
	var b strings.Builder
	b.WriteString("<b>📝 Registration Details</b>\n\n")
	b.WriteString("Please confirm your details before proceeding:\n\n")
	b.WriteString("👤 <b>Username:</b> " + format.Escape(c.Username) + "\n")
	b.WriteString("🆔 <b>Telegram ID:</b> " + strconv.FormatInt(userID, 10) + "\n")
	b.WriteString("📛 <b>Nickname:</b> " + format.Escape(c.Nickname) + "\n")
	b.WriteString("🔐 <b>Password:</b> " + passwordField(c.Password) + "\n")
	b.WriteString("📧 <b>Email:</b> " + format.Escape(c.Email) + "\n\n")
	b.WriteString("Press <b>Confirm</b> to complete registration or <b>Cancel</b> to start over.")
	return b.String()
}

func loginSummary(c Conversation, userID int64) string {
	var b strings.Builder
	b.WriteString("<b>🔑 Login Details</b>\n\n")
	b.WriteString("Please confirm your details before proceeding:\n\n")
	b.WriteString("👤 <b>Username:</b> " + format.Escape(c.Username) + "\n")
	b.WriteString("🆔 <b>Telegram ID:</b> " + strconv.FormatInt(userID, 10) + "\n")
	b.WriteString("🔐 <b>Password:</b> " + passwordField(c.Password) + "\n\n")
	b.WriteString("Press <b>Confirm</b> to log in or <b>Cancel</b> to start over.")
	return b.String()
}
