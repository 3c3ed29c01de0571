package cache

import (
	"context"

	"go.uber.org/fx"

	"signal_engine/internal/modules/cache/service"
	"signal_engine/internal/runner"
	"signal_engine/pkg/logger"
)

// newDecisionCache: Redis при backend=redis, иначе память процесса.
// Недоступный Redis не валит старт, а откатывает на память.
func newDecisionCache(lc fx.Lifecycle, cfg service.Config) runner.DecisionCache {
	if cfg.Backend != service.BackendRedis {
		return service.NewMemory()
	}
	r, err := service.NewRedis(context.Background(), cfg.Redis)
	if err != nil {
		logger.Warn("[CACHE] redis unavailable, falling back to memory: %v", err)
		return service.NewMemory()
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return r.Close() },
	})
	logger.Info("[CACHE] decision cache on redis %s", cfg.Redis.Addr)
	return r
}

func Module() fx.Option {
	return fx.Module("cache",
		fx.Provide(newDecisionCache),
	)
}
