package dashboard

import (
	"context"

	"go.uber.org/fx"

	"signal_engine/internal/modules/dashboard/service"
	"signal_engine/internal/notify"
)

// Module регистрирует Kafka-поток как канал уведомлений (группа "sinks").
func Module() fx.Option {
	return fx.Module("dashboard",
		fx.Provide(
			fx.Annotate(
				func(lc fx.Lifecycle, cfg service.Config) notify.Sink {
					if !cfg.Enabled {
						return nil
					}
					s := service.NewStream(service.NewWriter(cfg), cfg.Topic)
					lc.Append(fx.Hook{
						OnStop: func(context.Context) error { return s.Close() },
					})
					return s
				},
				fx.ResultTags(`group:"sinks"`),
			),
		),
	)
}
