package service

import (
	"sync"
	"sync/atomic"
	"time"

	"signal_engine/internal/models"
)

// TickSummary: итог последнего тика движка.
type TickSummary struct {
	At       time.Time                  `json:"at"`
	Symbols  int                        `json:"symbols"`
	Statuses map[models.CycleStatus]int `json:"statuses"`
	Errors   map[string]string          `json:"errors,omitempty"`
}

type State struct {
	ready     atomic.Bool
	startedAt time.Time

	wsConnected atomic.Bool

	mu          sync.RWMutex
	last        TickSummary
	failedTicks int // подряд, сбрасывается первым успешным тиком
}

func NewState() *State {
	return &State{startedAt: time.Now()}
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

func (s *State) SetWSConnected(v bool) { s.wsConnected.Store(v) }
func (s *State) WSConnected() bool     { return s.wsConnected.Load() }

// ObserveTick запоминает статусы символов за тик.
func (s *State) ObserveTick(at time.Time, results []models.CycleResult) {
	sum := TickSummary{
		At:       at,
		Symbols:  len(results),
		Statuses: make(map[models.CycleStatus]int, 4),
	}
	for _, r := range results {
		sum.Statuses[r.Status]++
		if r.Status == models.StatusError {
			if sum.Errors == nil {
				sum.Errors = make(map[string]string)
			}
			sum.Errors[r.Symbol] = r.Err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = sum
	if len(results) > 0 && sum.Statuses[models.StatusError] == len(results) {
		s.failedTicks++
	} else {
		s.failedTicks = 0
	}
}

func (s *State) LastTick() TickSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

func (s *State) FailedTicks() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failedTicks
}

// Stale: тиков не было дольше maxAge (или не было вовсе).
func (s *State) Stale(now time.Time, maxAge time.Duration) bool {
	at := s.LastTick().At
	return at.IsZero() || now.Sub(at) > maxAge
}

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
