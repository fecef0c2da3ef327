package replay

import "sync"

// MemoryGuard is a thread-safe in-memory Guard. Hashes are lost on restart.
type MemoryGuard struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

var _ Guard = (*MemoryGuard)(nil)

// NewMemoryGuard creates an empty in-memory guard.
func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{seen: make(map[string]struct{})}
}

func (g *MemoryGuard) CheckAndRecord(contentHash string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.seen[contentHash]; ok {
		return true, nil
	}
	g.seen[contentHash] = struct{}{}
	return false, nil
}

func (g *MemoryGuard) Forget(contentHash string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.seen, contentHash)
	return nil
}
