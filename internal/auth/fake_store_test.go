package auth

import (
	"context"
	"sync"

	"github.com/m3rciful/diarybot/internal/store"
)

// fakeStore mimics the Postgres store's constraints in memory.
type fakeStore struct {
	mu      sync.Mutex
	pending map[int64]bool
	users   map[string]store.RegisteredUser
	creds   []store.LoginCredential
	fail    map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		pending: map[int64]bool{},
		users:   map[string]store.RegisteredUser{},
		fail:    map[string]error{},
	}
}

func (f *fakeStore) failOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[op] = err
}

func (f *fakeStore) AddPendingUser(_ context.Context, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["AddPendingUser"]; err != nil {
		return false, err
	}
	if f.pending[userID] {
		return false, nil
	}
	f.pending[userID] = true
	return true, nil
}

func (f *fakeStore) IsRegisteredByUsername(_ context.Context, username string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["IsRegisteredByUsername"]; err != nil {
		return false, err
	}
	_, ok := f.users[username]
	return ok, nil
}

func (f *fakeStore) IsRegisteredByID(_ context.Context, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["IsRegisteredByID"]; err != nil {
		return false, err
	}
	for _, u := range f.users {
		if u.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) GetLoginCredential(_ context.Context, username string) (*store.LoginCredential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["GetLoginCredential"]; err != nil {
		return nil, err
	}
	for i := len(f.creds) - 1; i >= 0; i-- {
		if f.creds[i].Username == username {
			c := f.creds[i]
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) RegisterUser(_ context.Context, u store.NewUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["RegisterUser"]; err != nil {
		return err
	}
	if _, ok := f.users[u.Username]; ok {
		return store.ErrUsernameTaken
	}
	for _, existing := range f.users {
		if existing.UserID == u.UserID {
			return store.ErrAlreadyRegistered
		}
	}
	f.users[u.Username] = store.RegisteredUser{
		UserID:   u.UserID,
		Username: u.Username,
		Email:    u.Email,
		Nickname: u.Nickname,
	}
	f.creds = append(f.creds, store.LoginCredential{
		UserID:       u.UserID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Email:        u.Email,
	})
	return nil
}

func (f *fakeStore) SaveLoginSession(_ context.Context, c store.LoginCredential) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["SaveLoginSession"]; err != nil {
		return err
	}
	f.creds = append(f.creds, c)
	return nil
}

func (f *fakeStore) credentialCount(username string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.creds {
		if c.Username == username {
			n++
		}
	}
	return n
}
