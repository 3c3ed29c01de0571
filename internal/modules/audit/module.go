package audit

import (
	"context"
	"time"

	"go.uber.org/fx"

	"signal_engine/internal/audit"
	"signal_engine/pkg/db"
	"signal_engine/pkg/logger"
)

// newSink собирает журналы из конфига; tm == nil, если Postgres выключен.
func newSink(cfg audit.Config, tm *db.PgTxManager) (audit.Sink, error) {
	var sinks audit.Multi
	if cfg.CSV {
		c, err := audit.NewCSV(cfg.Dir)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, c)
	}
	if cfg.Postgres && tm != nil {
		pg := audit.NewPostgres(tm)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		sinks = append(sinks, pg)
	}
	if len(sinks) == 0 {
		logger.Info("[AUDIT] disabled")
		return audit.Nop{}, nil
	}
	return sinks, nil
}

func Module() fx.Option {
	return fx.Module("audit",
		fx.Provide(newSink),
	)
}
