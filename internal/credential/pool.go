// Package credential hides upstream multi-key failover behind a single
// "current credential" accessor.
package credential

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Pool holds an ordered set of interchangeable upstream API keys and a
// cursor pointing at the active one. Rotate is the only mutator.
type Pool struct {
	mu     sync.Mutex
	keys   []string
	active int
	log    *zap.Logger
}

// NewPool creates a pool from the configured keys. An empty pool is a
// configuration error, not something to limp along with at runtime.
func NewPool(keys []string, log *zap.Logger) (*Pool, error) {
	if len(keys) == 0 {
		return nil, errors.New("credential pool is empty")
	}
	return &Pool{keys: keys, log: log}, nil
}

// Current returns the active credential. Side-effect free.
func (p *Pool) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.keys[p.active]
}

// Rotate advances the cursor by one, wrapping past the end.
func (p *Pool) Rotate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	prev := p.active
	p.active = (p.active + 1) % len(p.keys)
	p.log.Info("rotated upstream credential",
		zap.Int("from", prev),
		zap.Int("to", p.active),
		zap.Int("pool_size", len(p.keys)))
}

// Size returns the number of credentials, which bounds per-request retries.
func (p *Pool) Size() int {
	return len(p.keys)
}

// ActiveIndex returns the cursor position.
func (p *Pool) ActiveIndex() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}
