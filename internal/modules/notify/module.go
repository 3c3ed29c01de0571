package notify

import (
	"context"

	"go.uber.org/fx"

	"signal_engine/internal/models"
	"signal_engine/internal/notify"
	"signal_engine/internal/runner"
	"signal_engine/internal/store"
	"signal_engine/pkg/logger"
)

type sinksIn struct {
	fx.In

	Extra []notify.Sink `group:"sinks"`
}

type params struct {
	fx.In

	LC     fx.Lifecycle
	Cfg    notify.Config
	Store  *store.Store
	Report notify.Reporter `optional:"true"`
	Sinks  sinksIn
}

func newDispatcher(p params) (*notify.Dispatcher, error) {
	sinks := make([]notify.Sink, 0, 4)
	if p.Cfg.Stdout {
		sinks = append(sinks, notify.Stdout{})
	}
	if p.Cfg.Discord.Enabled {
		sinks = append(sinks, notify.NewDiscord(p.Cfg.Discord))
	}
	if p.Cfg.Telegram.Enabled {
		tg, err := notify.NewTelegram(p.Cfg.Telegram, p.Store)
		if err != nil {
			return nil, err
		}
		if p.Report != nil {
			tg.WithReport(p.Report)
		}
		sinks = append(sinks, tg)
		ctx, cancel := context.WithCancel(context.Background())
		p.LC.Append(fx.Hook{
			OnStart: func(context.Context) error {
				go tg.Start(ctx)
				return nil
			},
			OnStop: func(context.Context) error {
				cancel()
				tg.Stop()
				return nil
			},
		})
	}
	for _, s := range p.Sinks.Extra {
		// выключенные модули кладут в группу nil
		if s != nil {
			sinks = append(sinks, s)
		}
	}
	return notify.NewDispatcher(p.Cfg, sinks...), nil
}

func Module() fx.Option {
	return fx.Module("notify",
		fx.Provide(
			newDispatcher,
			func(d *notify.Dispatcher) runner.Publisher { return d },
		),
		fx.Invoke(func(lc fx.Lifecycle, d *notify.Dispatcher) {
			ctx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go d.Run(ctx)
					d.Publish(models.Event{Kind: models.EventPing, Reason: "signal engine started"})
					return nil
				},
				OnStop: func(stopCtx context.Context) error {
					cancel()
					if err := d.Wait(stopCtx); err != nil {
						logger.Warn("[NOTIFY] dispatcher stop: %v", err)
					}
					return nil
				},
			})
		}),
	)
}
