package wa

import (
	"context"
	"sync"
)

// blockCache lazily caches the account's blocklist. Blocklist change events
// invalidate it; the next contact read refetches.
type blockCache struct {
	mu    sync.RWMutex
	set   map[string]bool
	valid bool
}

// snapshot returns the current blocked set, fetching it from the server on a
// cold cache. A nil map (fetch failure) reads as nobody blocked.
func (bc *blockCache) snapshot(ctx context.Context, c *Client) map[string]bool {
	bc.mu.RLock()
	if bc.valid {
		set := bc.set
		bc.mu.RUnlock()
		return set
	}
	bc.mu.RUnlock()

	list, err := c.wm.GetBlocklist(ctx)
	if err != nil || list == nil {
		return nil
	}
	set := make(map[string]bool, len(list.JIDs))
	for _, jid := range list.JIDs {
		set[jid.ToNonAD().String()] = true
	}

	bc.mu.Lock()
	bc.set, bc.valid = set, true
	bc.mu.Unlock()
	return set
}

func (bc *blockCache) invalidate() {
	bc.mu.Lock()
	bc.set, bc.valid = nil, false
	bc.mu.Unlock()
}
