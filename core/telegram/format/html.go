// Package format builds Telegram HTML fragments. Callers send the result with
// tele.ModeHTML; every helper escapes its text argument.
package format

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

// Escape makes s safe to embed in an HTML-mode message.
func Escape(s string) string {
	return htmlEscaper.Replace(s)
}

// Bold wraps s in <b>.
func Bold(s string) string { return "<b>" + Escape(s) + "</b>" }

// Code wraps s in <code>.
func Code(s string) string { return "<code>" + Escape(s) + "</code>" }

// Spoiler hides s behind a tap-to-reveal spoiler.
func Spoiler(s string) string { return "<tg-spoiler>" + Escape(s) + "</tg-spoiler>" }

// Link renders an anchor. Quotes in url are escaped.
func Link(url, text string) string {
	return `<a href="` + Escape(url) + `">` + Escape(text) + "</a>"
}

// Mention links to a Telegram user by ID. An empty name falls back to the ID.
func Mention(userID int64, name string) string {
	id := strconv.FormatInt(userID, 10)
	if strings.TrimSpace(name) == "" {
		name = id
	}
	return Link("tg://user?id="+id, name)
}

// Mask returns one bullet per rune of s, at least minLen.
func Mask(s string, minLen int) string {
	n := utf8.RuneCountInString(s)
	if n < minLen {
		n = minLen
	}
	return strings.Repeat("•", n)
}

// Truncate cuts s to at most limit runes, ending with an ellipsis when cut.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit-1]) + "…"
}
