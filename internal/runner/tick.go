package runner

import (
	"context"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"
	"golang.org/x/sync/errgroup"

	"signal_engine/internal/metrics"
	"signal_engine/internal/models"
	"signal_engine/pkg/logger"
)

const (
	backoffStart = time.Second
	backoffStep  = 2 * time.Second
	backoffMax   = 30 * time.Second
)

// Tick запускает циклы по всем символам параллельно (не больше Concurrency
// одновременно) и ждёт их не дольше TickTimeout. Результаты в порядке symbols.
func (e *Engine) Tick(ctx context.Context, symbols []string) []models.CycleResult {
	start := time.Now()
	span, ctx := opentracing.StartSpanFromContext(ctx, "runner.tick")
	defer span.Finish()

	tctx, cancel := context.WithTimeout(ctx, TickTimeout(e.cfg.Interval))
	defer cancel()

	var (
		mu      sync.Mutex
		results = make(map[string]models.CycleResult, len(symbols))
	)

	limit := e.cfg.Concurrency
	if limit < 1 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(tctx)
	g.SetLimit(limit)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, sym := range symbols {
			if gctx.Err() != nil {
				break
			}
			sym := sym
			g.Go(func() error {
				res := e.RunSymbolCycle(gctx, sym)
				mu.Lock()
				results[sym] = res
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-done:
	case <-tctx.Done():
		logger.Warn("[RUNNER] tick timeout after %s", time.Since(start).Round(time.Millisecond))
	}

	out := make([]models.CycleResult, 0, len(symbols))
	mu.Lock()
	for _, sym := range symbols {
		res, ok := results[sym]
		if !ok {
			res = models.NewCycleResult(sym)
			res.Status = models.StatusError
			res.Err = "tick timeout"
			e.logCycle(context.WithoutCancel(ctx), res)
		}
		out = append(out, res)
	}
	mu.Unlock()

	metrics.TickDuration.Observe(time.Since(start).Seconds())
	metrics.OpenPositions.Set(float64(e.store.OpenCount()))
	if e.health != nil {
		e.health.ObserveTick(e.now(), out)
	}
	return out
}

// failed: тик считается неудачным, если ни один символ не отработал.
func failed(results []models.CycleResult) bool {
	if len(results) == 0 {
		return false
	}
	for _, r := range results {
		if r.Status != models.StatusError {
			return false
		}
	}
	return true
}

// Start крутит тики каждые Interval до отмены ctx. После неудачного тика
// ждёт backoff: 1s, дальше +2s за каждую неудачу подряд, не больше 30s.
func (e *Engine) Start(ctx context.Context) {
	logger.Info("[RUNNER] start: %d symbols, interval=%s", len(e.cfg.Symbols), e.cfg.Interval)
	backoff := time.Duration(0)
	for {
		started := time.Now()
		results := e.Tick(ctx, e.cfg.Symbols)
		if ctx.Err() != nil {
			logger.Info("[RUNNER] stopped")
			return
		}

		if failed(results) {
			if backoff == 0 {
				backoff = backoffStart
			} else {
				backoff += backoffStep
			}
			if backoff > backoffMax {
				backoff = backoffMax
			}
			logger.Warn("[RUNNER] tick failed, backoff %s", backoff)
			if !sleep(ctx, backoff) {
				return
			}
		} else {
			backoff = 0
		}

		if !sleep(ctx, e.cfg.Interval-time.Since(started)) {
			logger.Info("[RUNNER] stopped")
			return
		}
	}
}

// sleep возвращает false, если ctx отменён раньше.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
