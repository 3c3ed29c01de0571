package service

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"signal_engine/internal/metrics"
	"signal_engine/internal/models"
	"signal_engine/pkg/logger"
)

type cacheKey struct {
	symbol string
	tf     models.Timeframe
	spot   bool
}

// Feed держит историю по (symbol, tf) и догружает только хвост.
type Feed struct {
	cfg  Config
	fut  Fetcher
	spot Fetcher // nil, без FSD

	mu    sync.RWMutex
	cache map[cacheKey]models.History

	// ограничитель параллелизма, чтобы не словить rate limit
	sem chan struct{}
	now func() time.Time
}

func NewFeed(cfg Config, fut, spot Fetcher) *Feed {
	n := cfg.Concurrency
	if n < 1 {
		n = 1
	}
	if !cfg.SpotDivergence {
		spot = nil
	}
	return &Feed{
		cfg:   cfg,
		fut:   fut,
		spot:  spot,
		cache: make(map[cacheKey]models.History),
		sem:   make(chan struct{}, n),
		now:   time.Now,
	}
}

// FetchAll тянет все таймфреймы символа параллельно. Ошибка одного таймфрейма
// попадает в Frames.Errs; ошибка возвращается, только если не пришло ничего.
func (f *Feed) FetchAll(ctx context.Context, symbol string) (models.Frames, error) {
	frames := models.Frames{
		Symbol:  symbol,
		Candles: make(map[models.Timeframe]models.History, len(f.cfg.Timeframes)),
		Errs:    make(map[models.Timeframe]error),
	}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, tf := range f.cfg.Timeframes {
		tf := tf
		g.Go(func() error {
			h, err := f.load(gctx, cacheKey{symbol: symbol, tf: tf})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				metrics.FetchErrors.WithLabelValues(string(tf)).Inc()
				frames.Errs[tf] = err
				return nil
			}
			frames.Candles[tf] = h
			return nil
		})
	}
	if f.spot != nil {
		g.Go(func() error {
			h, err := f.load(gctx, cacheKey{symbol: symbol, tf: models.M15, spot: true})
			if err != nil {
				// без спота FSD просто отсутствует
				logger.Debug("[FEED] %s spot: %v", symbol, err)
				return nil
			}
			mu.Lock()
			frames.Spot = h
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return frames, err
	}
	if frames.Empty() && len(frames.Errs) > 0 {
		for tf, err := range frames.Errs {
			return frames, errors.Wrapf(err, "%s: no timeframe loaded (%s)", symbol, tf)
		}
	}
	return frames, nil
}

func (f *Feed) load(ctx context.Context, key cacheKey) (models.History, error) {
	select {
	case f.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-f.sem }()

	src := f.fut
	if key.spot {
		src = f.spot
	}
	limit := f.cfg.Limit(key.tf)

	f.mu.RLock()
	cached := f.cache[key]
	f.mu.RUnlock()

	var since int64
	if f.cfg.Incremental {
		if last, ok := cached.Last(); ok {
			// последнюю свечу перезапрашиваем: она могла быть незакрытой
			since = last.Timestamp
			// разрыв больше окна: хвост от since не догонит текущее время
			if gap := f.now().Sub(time.UnixMilli(since)); gap > time.Duration(limit)*key.tf.Duration() {
				logger.Debug("[FEED] %s %s: gap %s, full reload", key.symbol, key.tf, gap.Round(time.Second))
				since = 0
			}
		}
	}

	fresh, err := src.Fetch(ctx, key.symbol, key.tf, since, limit)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	base := f.cache[key]
	if since == 0 {
		base = nil
	}
	h := Merge(base, fresh, limit)
	f.cache[key] = h
	return h, nil
}

// Push: закрытая свеча из стрима.
func (f *Feed) Push(symbol string, tf models.Timeframe, c models.Candle) {
	if !c.Valid() {
		return
	}
	key := cacheKey{symbol: symbol, tf: tf}
	f.mu.Lock()
	f.cache[key] = Merge(f.cache[key], []models.Candle{c}, f.cfg.Limit(tf))
	f.mu.Unlock()
}

// Cached: копия истории из кэша (для тестов и /status).
func (f *Feed) Cached(symbol string, tf models.Timeframe) models.History {
	f.mu.RLock()
	defer f.mu.RUnlock()
	h := f.cache[cacheKey{symbol: symbol, tf: tf}]
	return append(models.History(nil), h...)
}

// Warmup прогревает кэш перед первым тиком. Ошибки только логируются.
func (f *Feed) Warmup(ctx context.Context, symbols []string) error {
	if len(symbols) == 0 {
		return nil
	}
	start := time.Now()
	logger.Info("[FEED] warmup start: symbols=%d timeframes=%v", len(symbols), f.cfg.Timeframes)

	g, gctx := errgroup.WithContext(ctx)
	var (
		mu     sync.Mutex
		failed int
	)
	for _, sym := range symbols {
		sym := sym
		g.Go(func() error {
			frames, err := f.FetchAll(gctx, sym)
			if err != nil || len(frames.Errs) > 0 {
				mu.Lock()
				failed++
				mu.Unlock()
				logger.Warn("[FEED] warmup %s: err=%v partial=%d", sym, err, len(frames.Errs))
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}
	logger.Info("[FEED] warmup done in %s, failed=%d", time.Since(start).Round(time.Millisecond), failed)
	return nil
}

// Merge объединяет кэш и свежие свечи: свежая побеждает при совпадении
// времени, невалидные отбрасываются, хвост обрезается до limit.
func Merge(cached models.History, fresh []models.Candle, limit int) models.History {
	all := make([]models.Candle, 0, len(cached)+len(fresh))
	all = append(all, cached...)
	all = append(all, fresh...)
	h := models.NormalizeHistory(all)
	if limit > 0 && len(h) > limit {
		h = append(models.History(nil), h[len(h)-limit:]...)
	}
	return h
}
