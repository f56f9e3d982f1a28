// Package netutil classifies errors returned by Telegram Bot API calls.
package netutil

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

var botToken = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)

// ShouldRetry reports whether err looks transient: timeouts, failed dials,
// flood control and 5xx answers from the API.
func ShouldRetry(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	switch Classify(err) {
	case "timeout", "dial", "flood", "http_5xx":
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// Classify maps err onto a short kind used as a log attribute.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var (
		dnsErr *net.DNSError
		opErr  *net.OpError
		urlErr *url.Error
		tlsErr tls.AlertError
		ne     net.Error
	)
	switch {
	case errors.As(err, &dnsErr):
		if dnsErr.IsTimeout {
			return "timeout"
		}
		return "dns"
	case errors.As(err, &ne) && ne.Timeout():
		return "timeout"
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return "dial"
	case errors.As(err, &urlErr) && urlErr.Timeout():
		return "timeout"
	case errors.As(err, &tlsErr):
		return "tls"
	}
	switch code := StatusCode(err); {
	case code == http.StatusTooManyRequests:
		return "flood"
	case code >= 500:
		return "http_5xx"
	case code >= 400:
		return "http_4xx"
	}
	return "unknown"
}

// StatusCode extracts the HTTP status of an API error, or 0.
func StatusCode(err error) int {
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return http.StatusTooManyRequests
	}
	// telebot renders unknown API errors as "telegram: <description> (<code>)".
	msg := err.Error()
	open, shut := strings.LastIndexByte(msg, '('), strings.LastIndexByte(msg, ')')
	if open < 0 || shut <= open+1 {
		return 0
	}
	code, convErr := strconv.Atoi(strings.TrimSpace(msg[open+1 : shut]))
	if convErr != nil {
		return 0
	}
	return code
}

// Redact renders err with bot tokens masked.
func Redact(err error) string {
	if err == nil {
		return ""
	}
	return botToken.ReplaceAllString(err.Error(), "bot<redacted>")
}
