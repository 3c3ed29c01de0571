package postgres

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/fx"

	"signal_engine/pkg/db"
	"signal_engine/pkg/logger"
)

type Config struct {
	Enabled  bool   `yaml:"enabled"`
	DSN      string `yaml:"dsn" validate:"required_if=Enabled true"`
	MaxConns int32  `yaml:"max_conns"`
}

// newTxManager возвращает nil, если Postgres выключен.
func newTxManager(lc fx.Lifecycle, cfg Config) (*db.PgTxManager, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolMaster, err := db.NewPool(ctx, db.PoolConfig{
		DSN:         cfg.DSN,
		MaxConns:    cfg.MaxConns,
		ConnTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create poolMaster")
	}
	if err = poolMaster.Ping(ctx); err != nil {
		poolMaster.Close()
		return nil, errors.Wrap(err, "postgres ping")
	}

	tm := db.NewPgTxManager(poolMaster)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			tm.Close()
			return nil
		},
	})
	logger.Info("[DB] postgres connected")
	return tm, nil
}

func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(newTxManager),
	)
}
