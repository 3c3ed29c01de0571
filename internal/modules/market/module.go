package market

import (
	"context"

	"go.uber.org/fx"

	"signal_engine/internal/models"
	"signal_engine/internal/modules/health/service"
	market "signal_engine/internal/modules/market/service"
	"signal_engine/internal/runner"
	"signal_engine/pkg/logger"
)

func newFetchers(cfg market.Config) (fut market.Fetcher, spot market.Fetcher) {
	if cfg.Exchange == market.ExchangeOKX {
		return market.NewOKX(cfg, false), market.NewOKX(cfg, true)
	}
	return market.NewBinanceFutures(cfg), market.NewBinanceSpot(cfg)
}

func newFeed(cfg market.Config) *market.Feed {
	fut, spot := newFetchers(cfg)
	return market.NewFeed(cfg, fut, spot)
}

// Module: источник свечей для раннера: REST-кэш, прогрев и WS-стрим M5.
func Module() fx.Option {
	return fx.Module("market",
		fx.Provide(
			newFeed,
			func(f *market.Feed) runner.DataFeed { return f },
		),
		fx.Invoke(func(lc fx.Lifecycle, cfg market.Config, ecfg runner.Config, feed *market.Feed, state *service.State) {
			ctx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					go func() {
						if err := feed.Warmup(ctx, ecfg.Symbols); err != nil {
							logger.Warn("[FEED] warmup: %v", err)
						}
						state.SetReady(true)
						if cfg.Stream.Enabled {
							go market.NewStream(cfg, feed, state).Run(ctx, ecfg.Symbols, models.M5)
						}
					}()
					return nil
				},
				OnStop: func(_ context.Context) error {
					cancel()
					return nil
				},
			})
		}),
	)
}
