// Package audit пишет append-only журналы входов, сделок, голосований и циклов.
package audit

import (
	"context"
	"time"

	"signal_engine/internal/models"
)

type EntryRow struct {
	TS        time.Time
	Symbol    string
	Regime    models.Regime
	MacroBias models.Bias
	Side      models.Side
	Reason    string
	Price     float64
	Groups    models.Groups
	Extra     map[string]any
}

type TradeRow struct {
	TS           time.Time
	Event        string
	Symbol       string
	Regime       models.Regime
	Side         models.Side
	Entry        float64
	SL           float64
	TP1          float64
	TP2          float64
	PriceAtEvent float64
	ExitReason   string
	Qty          float64
	TP1Hit       bool
	PnLEstR      float64
}

type VoteRow struct {
	TS       time.Time
	Symbol   string
	Regime   models.Regime
	Trend    float64
	Momentum float64
	Mean     float64
	Flow     float64
	Score    float64
	Side     models.Side
	Details  models.DecisionDetails
}

type CycleRow struct {
	TS         time.Time
	Symbol     string
	Status     models.CycleStatus
	Side       models.Side
	Conf       float64
	VFIFlow    float64
	VFILong    float64
	VFIShort   float64
	LatencySec float64
}

// Sink принимает по одной логической записи на событие.
type Sink interface {
	Entry(ctx context.Context, row EntryRow) error
	Trade(ctx context.Context, row TradeRow) error
	Vote(ctx context.Context, row VoteRow) error
	Cycle(ctx context.Context, row CycleRow) error
}

// Nop: журнал выключен.
type Nop struct{}

func (Nop) Entry(context.Context, EntryRow) error { return nil }
func (Nop) Trade(context.Context, TradeRow) error { return nil }
func (Nop) Vote(context.Context, VoteRow) error   { return nil }
func (Nop) Cycle(context.Context, CycleRow) error { return nil }
