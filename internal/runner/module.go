package runner

import (
	"context"

	"go.uber.org/fx"

	"signal_engine/internal/audit"
	"signal_engine/internal/lifecycle"
	"signal_engine/internal/store"
)

type engineParams struct {
	fx.In

	Cfg    Config
	Feed   DataFeed
	Store  *store.Store
	Exec   lifecycle.Executor
	Events Publisher
	Audit  audit.Sink
	Dedup  DecisionCache
	Health TickObserver `optional:"true"`
}

func newEngine(p engineParams) *Engine {
	return NewEngine(p.Cfg, p.Feed, p.Store, p.Exec, p.Events, p.Audit, p.Dedup, WithHealth(p.Health))
}

// Module: раннер с циклом тиков на время жизни приложения.
func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(
			store.New,
			newEngine,
		),
		fx.Invoke(func(lc fx.Lifecycle, e *Engine) {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						defer close(done)
						e.Start(ctx)
					}()
					return nil
				},
				OnStop: func(stopCtx context.Context) error {
					cancel()
					select {
					case <-done:
					case <-stopCtx.Done():
					}
					return nil
				},
			})
		}),
	)
}
