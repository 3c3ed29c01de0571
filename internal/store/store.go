// Package store держит всё изменяемое состояние движка по символам.
// Каждый символ обслуживается не более чем одним циклом одновременно (Acquire).
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"signal_engine/internal/models"
)

var (
	ErrPositionExists = errors.New("position already open")
	ErrNoProbe        = errors.New("no probe to promote")
	ErrFullExists     = errors.New("full position already open")
)

// SymbolState: состояние одного символа. Поля меняются только владельцем
// захвата (Acquire); снаружи состояние читается через Store.Positions/Guard.
type SymbolState struct {
	lock sync.Mutex

	Symbol string

	probe *models.Position
	full  *models.Position

	Guard         models.GuardState
	PrevVFILong   *float64
	LastM5Trigger time.Time
	LastResult    models.CycleResult
}

// Position: открытая позиция (FULL или PROBE), nil если нет.
func (s *SymbolState) Position() *models.Position {
	if s.full != nil {
		return s.full
	}
	return s.probe
}

func (s *SymbolState) Probe() *models.Position { return s.probe }
func (s *SymbolState) Full() *models.Position  { return s.full }

// OpenProbe регистрирует новую PROBE; на символ допускается одна позиция.
func (s *SymbolState) OpenProbe(p *models.Position) error {
	if s.probe != nil || s.full != nil {
		return ErrPositionExists
	}
	p.SizeType = models.SizeProbe
	s.probe = p
	return nil
}

// PromoteProbe заменяет PROBE на FULL за один шаг.
func (s *SymbolState) PromoteProbe(full *models.Position) error {
	if s.probe == nil {
		return ErrNoProbe
	}
	if s.full != nil {
		return ErrFullExists
	}
	full.SizeType = models.SizeFull
	s.full, s.probe = full, nil
	return nil
}

// ClosePosition снимает текущую позицию и сбрасывает монитор скора.
func (s *SymbolState) ClosePosition() *models.Position {
	p := s.Position()
	s.probe, s.full = nil, nil
	s.Guard.Monitor = nil
	return p
}

func (s *SymbolState) SetPrevVFILong(v float64) {
	s.PrevVFILong = &v
}

// Store: реестр состояний по символам.
type Store struct {
	mu     sync.RWMutex
	states map[string]*SymbolState
	// views: копии позиций на конец последнего цикла, для чтения без захвата символа
	views map[string]view
}

type view struct {
	position *models.Position
	guard    models.GuardState
	result   models.CycleResult
}

func New() *Store {
	return &Store{
		states: make(map[string]*SymbolState),
		views:  make(map[string]view),
	}
}

func (s *Store) state(symbol string) *SymbolState {
	s.mu.RLock()
	st, ok := s.states[symbol]
	s.mu.RUnlock()
	if ok {
		return st
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok = s.states[symbol]; ok {
		return st
	}
	st = &SymbolState{Symbol: symbol}
	s.states[symbol] = st
	return st
}

// Acquire захватывает символ без ожидания. ok=false: по символу уже идёт цикл.
// release публикует снимок состояния и снимает захват.
func (s *Store) Acquire(symbol string) (st *SymbolState, release func(), ok bool) {
	st = s.state(symbol)
	if !st.lock.TryLock() {
		return nil, func() {}, false
	}
	var once sync.Once
	release = func() {
		once.Do(func() {
			s.publish(st)
			st.lock.Unlock()
		})
	}
	return st, release, true
}

func (s *Store) publish(st *SymbolState) {
	v := view{guard: st.Guard, result: st.LastResult}
	if p := st.Position(); p != nil {
		v.position = p.Clone()
	}
	if st.Guard.Monitor != nil {
		m := *st.Guard.Monitor
		v.guard.Monitor = &m
	}
	s.mu.Lock()
	s.views[st.Symbol] = v
	s.mu.Unlock()
}

// Positions: открытые позиции на конец последних циклов, по символу.
func (s *Store) Positions() []models.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Position, 0, len(s.views))
	for _, v := range s.views {
		if v.position != nil {
			out = append(out, *v.position.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Results: последние результаты циклов по символам.
func (s *Store) Results() []models.CycleResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.CycleResult, 0, len(s.views))
	for _, v := range s.views {
		if v.result.Symbol != "" {
			out = append(out, v.result)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func (s *Store) Guard(symbol string) (models.GuardState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.views[symbol]
	return v.guard, ok
}

func (s *Store) OpenCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, v := range s.views {
		if v.position != nil {
			n++
		}
	}
	return n
}
