package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"signal_engine/internal/metrics"
	"signal_engine/internal/models"
	"signal_engine/pkg/logger"
)

// Dispatcher: ограниченная очередь событий с одним потребителем.
// Publish не блокирует цикл дольше PutTimeout; ошибки доставки только логируются.
type Dispatcher struct {
	cfg     Config
	sinks   []Sink
	queue   chan models.Event
	dropped atomic.Int64

	once sync.Once
	done chan struct{}
}

func NewDispatcher(cfg Config, sinks ...Sink) *Dispatcher {
	size := cfg.QueueSize
	if size <= 0 {
		size = 10000
	}
	return &Dispatcher{
		cfg:   cfg,
		sinks: sinks,
		queue: make(chan models.Event, size),
		done:  make(chan struct{}),
	}
}

func (d *Dispatcher) Publish(ev models.Event) bool {
	select {
	case d.queue <- ev:
		return true
	default:
	}
	wait := d.cfg.PutTimeout
	if wait <= 0 {
		wait = 50 * time.Millisecond
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case d.queue <- ev:
		return true
	case <-t.C:
		d.dropped.Add(1)
		metrics.DispatcherDropped.Inc()
		logger.Warn("[NOTIFY] queue full, dropped %s %s", ev.Kind, ev.Symbol)
		return false
	}
}

func (d *Dispatcher) Dropped() int64 { return d.dropped.Load() }

// Run разбирает очередь до отмены ctx, затем дочищает то, что уже лежит.
func (d *Dispatcher) Run(ctx context.Context) {
	defer d.once.Do(func() { close(d.done) })
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ctx, ev)
		case <-ctx.Done():
			d.drain()
			return
		}
	}
}

// Wait: дождаться выхода Run.
func (d *Dispatcher) Wait(ctx context.Context) error {
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ctx, ev)
		default:
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, ev models.Event) {
	for _, s := range d.sinks {
		dctx, cancel := ctx, context.CancelFunc(func() {})
		if d.cfg.DeliverTimeout > 0 {
			dctx, cancel = context.WithTimeout(ctx, d.cfg.DeliverTimeout)
		}
		err := s.Deliver(dctx, ev)
		cancel()
		if err != nil {
			logger.Warn("[NOTIFY] %s: %v", s.Name(), err)
		}
	}
}
