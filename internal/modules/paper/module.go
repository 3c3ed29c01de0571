package paper

import (
	"go.uber.org/fx"

	"signal_engine/internal/lifecycle"
	"signal_engine/internal/modules/paper/service"
	"signal_engine/internal/notify"
)

func Module() fx.Option {
	return fx.Module("paper",
		fx.Provide(
			service.NewTrader,
			func(t *service.Trader) lifecycle.Executor { return t },
			func(t *service.Trader) notify.Reporter { return t },
		),
	)
}
