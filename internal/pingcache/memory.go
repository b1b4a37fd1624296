package pingcache

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process ping cache. Entries never expire; the periodic
// ping sweep overwrites them.
type Memory struct {
	mu   sync.RWMutex
	rtts map[string]time.Duration
}

func NewMemory() *Memory {
	return &Memory{rtts: make(map[string]time.Duration)}
}

func (m *Memory) Get(ctx context.Context, host string) (time.Duration, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rtt, ok := m.rtts[host]
	return rtt, ok
}

func (m *Memory) Set(ctx context.Context, host string, rtt time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rtts[host] = rtt
}
