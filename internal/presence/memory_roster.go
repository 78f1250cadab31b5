package presence

import (
	"sort"
	"sync"
)

// MemoryRoster is the in-process roster used when no Redis URL is
// configured. Display names are reference-counted because several
// sessions may share one name.
type MemoryRoster struct {
	mu    sync.Mutex
	users map[string]int
}

func NewMemoryRoster() *MemoryRoster {
	return &MemoryRoster{users: make(map[string]int)}
}

func (m *MemoryRoster) Add(username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[username]++
	return nil
}

func (m *MemoryRoster) Remove(username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.users[username] <= 1 {
		delete(m.users, username)
	} else {
		m.users[username]--
	}
	return nil
}

func (m *MemoryRoster) List() ([]string, error) {
	m.mu.Lock()
	names := make([]string, 0, len(m.users))
	for name := range m.users {
		names = append(names, name)
	}
	m.mu.Unlock()

	sort.Strings(names)
	return names, nil
}

func (m *MemoryRoster) Close() error { return nil }
