package telegram

import (
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/diarybot/core/telegram/netutil"
)

// Bot API client limits.
const (
	apiTimeout     = 30 * time.Second
	dialTimeout    = 5 * time.Second
	headerTimeout  = 5 * time.Second
	idleTimeout    = 30 * time.Second
	transportTries = 4
	transportPause = 2 * time.Second
)

// BuildHTTPClient returns the client the bot talks to the Bot API with.
// Transient transport failures are retried before telebot sees them.
func BuildHTTPClient() *http.Client {
	dialer := &net.Dialer{Timeout: dialTimeout, KeepAlive: 30 * time.Second}
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       idleTimeout,
		TLSHandshakeTimeout:   dialTimeout,
		ResponseHeaderTimeout: headerTimeout,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{
		Timeout:   apiTimeout,
		Transport: &retryTransport{next: base, tries: transportTries, pause: transportPause},
	}
}

type retryTransport struct {
	next  http.RoundTripper
	tries int
	pause time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}
	ctx := req.Context()
	r := req
	for try := 1; ; try++ {
		resp, err := next.RoundTrip(r)
		if err == nil || try >= t.tries || !netutil.ShouldRetry(err) {
			return resp, err
		}
		// A consumed body can only be replayed through GetBody.
		if req.Body != nil && req.Body != http.NoBody {
			if req.GetBody == nil {
				return nil, err
			}
			body, bodyErr := req.GetBody()
			if bodyErr != nil {
				return nil, bodyErr
			}
			r = req.Clone(ctx)
			r.Body = body
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(t.pause * time.Duration(try)):
		}
	}
}
