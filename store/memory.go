package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
)

// Memory is the in-process Users implementation: single-node deployments
// and tests. Entries round-trip through JSON on the way in and out, both
// to isolate callers from each other and to enforce the
// "Data stays JSON-serializable" contract early.
type Memory struct {
	mu    sync.RWMutex
	users map[string]memoryEntry
}

type memoryEntry struct {
	data      []byte
	intent    string
	updatedAt int64
}

// NewMemory returns an empty in-process store.
func NewMemory() *Memory {
	return &Memory{
		users: make(map[string]memoryEntry),
	}
}

func (m *Memory) Get(_ context.Context, id string) (*User, error) {

	m.mu.RLock()
	entry, ok := m.users[id]
	m.mu.RUnlock()

	if !ok {
		return nil, nil
	}

	user := &User{
		ID:     id,
		Intent: entry.intent,
	}
	if len(entry.data) > 0 {
		if err := json.Unmarshal(entry.data, &user.Data); err != nil {
			return nil, errors.WithMessage(err, "store: decode user data")
		}
	}
	return user, nil
}

func (m *Memory) Put(_ context.Context, user *User) error {

	if user == nil || user.ID == "" {
		return errors.New("store: user id required")
	}

	var (
		blob []byte
		err  error
	)
	if user.Data != nil {
		if blob, err = json.Marshal(user.Data); err != nil {
			return errors.WithMessage(err, "store: encode user data")
		}
	}

	m.mu.Lock()
	m.users[user.ID] = memoryEntry{
		data:      blob,
		intent:    user.Intent,
		updatedAt: user.UpdatedAt.UnixMilli(),
	}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.users, id)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.users = make(map[string]memoryEntry)
	m.mu.Unlock()
	return nil
}
