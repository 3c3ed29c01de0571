package config

import (
	"go.uber.org/fx"

	"signal_engine/internal/audit"
	cache "signal_engine/internal/modules/cache/service"
	dashboard "signal_engine/internal/modules/dashboard/service"
	"signal_engine/internal/modules/health"
	market "signal_engine/internal/modules/market/service"
	paper "signal_engine/internal/modules/paper/service"
	"signal_engine/internal/modules/postgres"
	"signal_engine/internal/notify"
	"signal_engine/internal/runner"
	"signal_engine/pkg/tracing"
)

// Module отдаёт конфиг целиком и по секциям, чтобы модули не зависели друг от друга.
func Module() fx.Option {
	return fx.Module("config",
		fx.Provide(
			NewConfig,
			func(c *Config) runner.Config { return c.Engine },
			func(c *Config) market.Config { return c.Market },
			func(c *Config) paper.Config { return c.Paper },
			func(c *Config) notify.Config { return c.Notify },
			func(c *Config) dashboard.Config { return c.Dashboard },
			func(c *Config) audit.Config { return c.Audit },
			func(c *Config) cache.Config { return c.Cache },
			func(c *Config) postgres.Config { return c.Postgres },
			func(c *Config) health.Config { return c.Health },
			func(c *Config) tracing.Config { return c.Tracing },
		),
	)
}
