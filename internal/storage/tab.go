package storage

import "sync"

// Tab lives for the duration of one client session, like the browser's
// sessionStorage. It holds the shipping address stash across the payment
// redirect round trip.
type Tab struct {
	mu     sync.Mutex
	values map[string]string
}

func NewTab() *Tab {
	return &Tab{values: make(map[string]string)}
}

func (t *Tab) Get(key string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.values[key]
	return v, ok
}

func (t *Tab) Set(key, value string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.values[key] = value
}

func (t *Tab) Remove(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.values, key)
}
