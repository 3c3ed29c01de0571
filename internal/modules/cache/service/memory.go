package service

import (
	"context"
	"sync"
)

// Memory: кэш последнего решения в памяти процесса.
type Memory struct {
	mu   sync.Mutex
	last map[string]string
}

func NewMemory() *Memory {
	return &Memory{last: make(map[string]string)}
}

// Changed запоминает key для символа и сообщает, отличается ли он от прошлого.
func (m *Memory) Changed(_ context.Context, symbol, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.last[symbol]
	m.last[symbol] = key
	return !ok || prev != key, nil
}
