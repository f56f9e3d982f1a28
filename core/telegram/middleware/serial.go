package middleware

import (
	"sync"

	tele "gopkg.in/telebot.v4"
)

// userGate hands out one mutex per user. An entry lives only while someone
// holds or waits on it.
type userGate struct {
	mu    sync.Mutex
	locks map[int64]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newUserGate() *userGate {
	return &userGate{locks: make(map[int64]*userLock)}
}

func (g *userGate) acquire(userID int64) (release func()) {
	g.mu.Lock()
	l, ok := g.locks[userID]
	if !ok {
		l = &userLock{}
		g.locks[userID] = l
	}
	l.refs++
	g.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		g.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(g.locks, userID)
		}
		g.mu.Unlock()
	}
}

func (g *userGate) size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.locks)
}

// SerializeUsers returns a middleware that runs at most one handler per sender
// at a time. Telebot starts a goroutine per update, so without it two quick
// updates from one user can interleave. Different users still run in parallel;
// updates without a sender pass through.
func SerializeUsers() tele.MiddlewareFunc {
	gate := newUserGate()
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			u := c.Sender()
			if u == nil {
				return next(c)
			}
			release := gate.acquire(u.ID)
			defer release()
			return next(c)
		}
	}
}
