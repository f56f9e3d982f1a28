package bot

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m3rciful/diarybot/internal/auth"
	"github.com/m3rciful/diarybot/internal/store"

	tele "gopkg.in/telebot.v4"
)

type memStore struct {
	mu      sync.Mutex
	pending map[int64]bool
	users   map[string]store.RegisteredUser
	creds   []store.LoginCredential
	sudoers []int64
}

func newMemStore() *memStore {
	return &memStore{pending: map[int64]bool{}, users: map[string]store.RegisteredUser{}}
}

func (m *memStore) AddPendingUser(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending[id] {
		return false, nil
	}
	m.pending[id] = true
	return true, nil
}

func (m *memStore) IsRegisteredByUsername(_ context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.users[username]
	return ok, nil
}

func (m *memStore) IsRegisteredByID(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.UserID == id {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) GetLoginCredential(_ context.Context, username string) (*store.LoginCredential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.creds) - 1; i >= 0; i-- {
		if m.creds[i].Username == username {
			c := m.creds[i]
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) RegisterUser(_ context.Context, u store.NewUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Username]; ok {
		return store.ErrUsernameTaken
	}
	m.users[u.Username] = store.RegisteredUser{
		UserID: u.UserID, Username: u.Username, Email: u.Email, Nickname: u.Nickname, RegisteredAt: time.Now(),
	}
	m.creds = append(m.creds, store.LoginCredential{
		UserID: u.UserID, Username: u.Username, PasswordHash: u.PasswordHash, Email: u.Email,
	})
	return nil
}

func (m *memStore) SaveLoginSession(_ context.Context, c store.LoginCredential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = append(m.creds, c)
	return nil
}

func (m *memStore) IsSudoer(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sudoers {
		if s == id {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) GetUserByID(_ context.Context, id int64) (*store.RegisteredUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.UserID == id {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) ListUsernames(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.users))
	for n := range m.users {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (m *memStore) DeleteUser(_ context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[username]; !ok {
		return store.ErrNotFound
	}
	delete(m.users, username)
	return nil
}

func (m *memStore) GetSudoers(context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.sudoers...), nil
}

func (m *memStore) AddSudo(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sudoers {
		if s == id {
			return nil
		}
	}
	m.sudoers = append(m.sudoers, id)
	return nil
}

func (m *memStore) RemoveSudo(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.sudoers[:0]
	for _, s := range m.sudoers {
		if s != id {
			out = append(out, s)
		}
	}
	m.sudoers = out
	return nil
}

type sent struct {
	prompt auth.Prompt
	markup *tele.ReplyMarkup
	id     int
}

type deferred struct {
	id    int
	delay time.Duration
}

// recorder captures the Telegram calls of a render.
type recorder struct {
	nextID  int
	sent    []sent
	answers []*tele.CallbackResponse
	deleted []int
	later   []deferred
}

func (r *recorder) Send(_ tele.Context, p auth.Prompt, markup *tele.ReplyMarkup) (*tele.Message, error) {
	r.nextID++
	id := 1000 + r.nextID
	r.sent = append(r.sent, sent{prompt: p, markup: markup, id: id})
	return &tele.Message{ID: id}, nil
}

func (r *recorder) Answer(_ tele.Context, resp *tele.CallbackResponse) error {
	r.answers = append(r.answers, resp)
	return nil
}

func (r *recorder) Delete(_ tele.Context, msg tele.Editable) {
	id, _ := msg.MessageSig()
	r.deleted = append(r.deleted, atoi(id))
}

func (r *recorder) DeleteLater(_ tele.Context, msg tele.Editable, delay time.Duration) {
	id, _ := msg.MessageSig()
	r.later = append(r.later, deferred{id: atoi(id), delay: delay})
}

func (r *recorder) last() sent {
	return r.sent[len(r.sent)-1]
}

func (r *recorder) reset() {
	r.sent, r.answers, r.deleted, r.later = nil, nil, nil, nil
}

func atoi(s string) int {
	n := 0
	for _, ch := range s {
		n = n*10 + int(ch-'0')
	}
	return n
}

// brokenConversations fails every call, like an unreachable Redis.
type brokenConversations struct{ err error }

func (b brokenConversations) Get(context.Context, int64) (auth.Conversation, bool, error) {
	return auth.Conversation{}, false, b.err
}

func (b brokenConversations) Put(context.Context, int64, auth.Conversation) error { return b.err }

func (b brokenConversations) Delete(context.Context, int64) error { return b.err }
