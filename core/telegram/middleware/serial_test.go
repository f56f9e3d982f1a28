package middleware

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func concurrentBot(t *testing.T) *tele.Bot {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	b.Use(SerializeUsers())
	return b
}

func textUpdate(id int, userID int64, text string) tele.Update {
	return tele.Update{
		ID: id,
		Message: &tele.Message{
			ID:     id,
			Text:   text,
			Sender: &tele.User{ID: userID},
			Chat:   &tele.Chat{ID: userID, Type: tele.ChatPrivate},
		},
	}
}

func TestSerializeUsersNoOverlapForOneUser(t *testing.T) {
	b := concurrentBot(t)

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	b.Handle(tele.OnText, func(tele.Context) error {
		defer wg.Done()
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		running.Add(-1)
		return nil
	})

	wg.Add(3)
	for i := 1; i <= 3; i++ {
		b.ProcessUpdate(textUpdate(i, 7, "alice"))
	}
	wg.Wait()

	assert.Equal(t, int32(1), peak.Load())
}

func TestSerializeUsersKeepsUsersIndependent(t *testing.T) {
	b := concurrentBot(t)

	otherEntered := make(chan struct{})
	results := make(chan bool, 2)
	b.Handle(tele.OnText, func(c tele.Context) error {
		if c.Sender().ID == 8 {
			close(otherEntered)
			results <- true
			return nil
		}
		select {
		case <-otherEntered:
			results <- true
		case <-time.After(2 * time.Second):
			results <- false
		}
		return nil
	})

	b.ProcessUpdate(textUpdate(1, 7, "hi"))
	b.ProcessUpdate(textUpdate(2, 8, "hi"))

	assert.True(t, <-results)
	assert.True(t, <-results)
}

func TestUserGateDropsIdleEntries(t *testing.T) {
	g := newUserGate()
	release := g.acquire(7)
	assert.Equal(t, 1, g.size())

	acquired := make(chan func())
	go func() { acquired <- g.acquire(7) }()

	select {
	case <-acquired:
		t.Fatal("second acquire must wait for the first release")
	case <-time.After(20 * time.Millisecond):
	}

	release()
	second := <-acquired
	assert.Equal(t, 1, g.size())
	second()
	assert.Equal(t, 0, g.size())
}
