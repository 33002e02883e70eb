package client

import "sync"

type tokenHolder struct {
	mu        sync.Mutex
	access    string
	refresh   string
	onRefresh func(access, refresh string)
}

func (t *tokenHolder) SetTokens(access, refresh string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.access, t.refresh = access, refresh
}

func (t *tokenHolder) Tokens() (string, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.access, t.refresh
}

func (t *tokenHolder) OnTokensRefreshed(fn func(access, refresh string)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onRefresh = fn
}

// rotated stores a refreshed pair and notifies the listener outside the lock.
func (t *tokenHolder) rotated(access, refresh string) {
	t.mu.Lock()
	t.access, t.refresh = access, refresh
	fn := t.onRefresh
	t.mu.Unlock()
	if fn != nil {
		fn(access, refresh)
	}
}
