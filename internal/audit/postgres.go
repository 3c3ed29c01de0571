package audit

import (
	"context"
	_ "embed"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"signal_engine/pkg/db"
)

//go:embed schema.sql
var schema string

// TxRunner: то, что нужно журналу от pkg/db.PgTxManager.
type TxRunner interface {
	RunMaster(ctx context.Context, fn func(ctxTx context.Context, tx pgx.Tx) error) error
	Conn() db.Transaction
}

type Postgres struct {
	tm TxRunner
}

func NewPostgres(tm TxRunner) *Postgres {
	return &Postgres{tm: tm}
}

// EnsureSchema создаёт таблицы, если их нет.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	return p.tm.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, schema)
		return errors.Wrap(err, "apply audit schema")
	})
}

// строки журнала пишутся по одной, транзакция не нужна
func (p *Postgres) exec(ctx context.Context, sql string, args ...any) error {
	_, err := p.tm.Conn().Exec(ctx, sql, args...)
	return err
}

const insertEntry = `
INSERT INTO audit_entries (ts, symbol, regime, macro_bias, side, reason, price, group_scores, extra_json)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9::jsonb)`

func (p *Postgres) Entry(ctx context.Context, r EntryRow) error {
	err := p.exec(ctx, insertEntry,
		r.TS, r.Symbol, string(r.Regime), string(r.MacroBias), string(r.Side), r.Reason, r.Price,
		jsonCol(r.Groups), jsonCol(r.Extra),
	)
	return errors.Wrap(err, "insert audit entry")
}

const insertTrade = `
INSERT INTO audit_trades (ts, event, symbol, regime, side, entry, sl, tp1, tp2, price_at_event, exit_reason, qty, tp1_hit, pnl_est_r)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

func (p *Postgres) Trade(ctx context.Context, r TradeRow) error {
	err := p.exec(ctx, insertTrade,
		r.TS, r.Event, r.Symbol, string(r.Regime), string(r.Side),
		r.Entry, r.SL, r.TP1, r.TP2, r.PriceAtEvent, r.ExitReason, r.Qty, r.TP1Hit, r.PnLEstR,
	)
	return errors.Wrap(err, "insert audit trade")
}

const insertVote = `
INSERT INTO audit_votes (ts, symbol, regime, trend, momentum, mean, flow, score, side, details_json)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb)`

func (p *Postgres) Vote(ctx context.Context, r VoteRow) error {
	err := p.exec(ctx, insertVote,
		r.TS, r.Symbol, string(r.Regime), r.Trend, r.Momentum, r.Mean, r.Flow, r.Score,
		string(r.Side), jsonCol(r.Details),
	)
	return errors.Wrap(err, "insert audit vote")
}

const insertCycle = `
INSERT INTO audit_cycles (ts, symbol, status, side, conf, vfi_flow, vfi_long, vfi_short, latency_sec)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

func (p *Postgres) Cycle(ctx context.Context, r CycleRow) error {
	err := p.exec(ctx, insertCycle,
		r.TS, r.Symbol, string(r.Status), string(r.Side), r.Conf, r.VFIFlow, r.VFILong, r.VFIShort, r.LatencySec,
	)
	return errors.Wrap(err, "insert audit cycle")
}
