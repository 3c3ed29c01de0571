// Package runner orchestrates per-symbol cycles: fetch → indicators → lag guard →
// VFI → vote → guards → lifecycle → logging, and fans them out per tick.
package runner

import (
	"context"
	"time"

	"signal_engine/internal/audit"
	"signal_engine/internal/lifecycle"
	"signal_engine/internal/models"
	"signal_engine/internal/store"
)

// DataFeed: источник свечей по всем таймфреймам символа.
type DataFeed interface {
	FetchAll(ctx context.Context, symbol string) (models.Frames, error)
}

// Publisher: неблокирующая отправка событий (уведомления, дашборд).
type Publisher interface {
	Publish(ev models.Event) bool
}

// DecisionCache: последнее отправленное решение по символу.
type DecisionCache interface {
	Changed(ctx context.Context, symbol, key string) (bool, error)
}

// TickObserver получает итог завершённого тика (health).
type TickObserver interface {
	ObserveTick(at time.Time, results []models.CycleResult)
}

type Engine struct {
	cfg     Config
	feed    DataFeed
	store   *store.Store
	machine *lifecycle.Machine
	events  Publisher
	audit   audit.Sink
	dedup   DecisionCache
	health  TickObserver
	now     func() time.Time
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }
func WithHealth(h TickObserver) Option      { return func(e *Engine) { e.health = h } }

func NewEngine(
	cfg Config,
	feed DataFeed,
	st *store.Store,
	exec lifecycle.Executor,
	events Publisher,
	sink audit.Sink,
	dedup DecisionCache,
	opts ...Option,
) *Engine {
	if sink == nil {
		sink = audit.Nop{}
	}
	e := &Engine{
		cfg:     cfg,
		feed:    feed,
		store:   st,
		machine: lifecycle.NewMachine(cfg.Lifecycle, exec),
		events:  events,
		audit:   sink,
		dedup:   dedup,
		now:     time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) Store() *store.Store { return e.store }
func (e *Engine) Config() Config      { return e.cfg }

// publish молчит, если ctx уже отменён: тик мог отчитаться без этого цикла.
func (e *Engine) publish(ctx context.Context, ev models.Event) {
	if e.events == nil || ctx.Err() != nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = e.now()
	}
	e.events.Publish(ev)
}
