package auth

import (
	"sync"
	"time"
)

// denylist remembers revoked token ids until the tokens would have expired
// anyway.
type denylist struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func newDenylist() *denylist {
	return &denylist{entries: make(map[string]time.Time), now: time.Now}
}

func (d *denylist) revoke(id string, until time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	for k, exp := range d.entries {
		if now.After(exp) {
			delete(d.entries, k)
		}
	}
	d.entries[id] = until
}

func (d *denylist) revoked(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.entries[id]
	return ok
}

func (d *denylist) len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}
