package ttscache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// countingGenerator returns "audio:<voice>:<text>" and counts calls.
type countingGenerator struct {
	calls  atomic.Int32
	failOn map[string]bool
	block  chan struct{}
}

func (g *countingGenerator) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	g.calls.Add(1)
	if g.block != nil {
		select {
		case <-g.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if g.failOn[text] {
		return nil, errors.New("provider quota exceeded")
	}
	return []byte("audio:" + voice + ":" + text), nil
}

// memoryRemote is an in-memory RemoteStore.
type memoryRemote struct {
	mu       sync.Mutex
	entries  map[string]Entry
	payloads map[string][]byte
	puts     int
	fetchErr error
	putErr   error
}

func newMemoryRemote() *memoryRemote {
	return &memoryRemote{entries: map[string]Entry{}, payloads: map[string][]byte{}}
}

func (m *memoryRemote) Name() string { return "memory" }

func (m *memoryRemote) Fetch(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	data, ok := m.payloads[key]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func (m *memoryRemote) Put(ctx context.Context, entry Entry, audio []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	if m.putErr != nil {
		return m.putErr
	}
	m.entries[entry.Key] = entry
	m.payloads[entry.Key] = append([]byte(nil), audio...)
	return nil
}

func (m *memoryRemote) ActiveCount(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.entries)), nil
}

func (m *memoryRemote) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.payloads[key]
	return ok
}
