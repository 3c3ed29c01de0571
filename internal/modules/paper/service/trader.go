package service

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"signal_engine/internal/lifecycle"
	"signal_engine/internal/models"
	"signal_engine/pkg/logger"
)

var (
	ErrExists   = errors.New("paper: position already open")
	ErrNotFound = errors.New("paper: position not found")
)

type Config struct {
	// FeeRate: комиссия от оборота за сторону, 0.0004 = 0.04%
	FeeRate float64 `yaml:"fee_rate" validate:"gte=0,lt=0.01"`
}

type key struct {
	symbol string
	side   models.Side
}

type book struct {
	id    string
	qty   float64
	peak  float64
	entry float64
	sl    float64
	tp    float64
	risk  float64
	realQ float64
	realR float64
	feesQ float64
}

// Stats: итоги бумажной книги.
type Stats struct {
	Trades      int     `json:"trades"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	RealizedQ   float64 `json:"realized_quote"`
	RealizedR   float64 `json:"realized_r"`
	Fees        float64 `json:"fees"`
	OpenBooks   int     `json:"open"`
	LastTradeID string  `json:"last_trade_id,omitempty"`
}

// Trader: бумажное исполнение намерений, ключ symbol+side.
type Trader struct {
	cfg Config

	mu    sync.Mutex
	books map[key]*book
	stats Stats
}

func NewTrader(cfg Config) *Trader {
	return &Trader{cfg: cfg, books: make(map[key]*book)}
}

func (t *Trader) Execute(_ context.Context, in lifecycle.Intent) (models.TradeRecord, error) {
	if in.Price <= 0 && in.Kind != lifecycle.IntentModifySL && in.Kind != lifecycle.IntentModifyTP {
		return models.TradeRecord{}, fmt.Errorf("paper: %s %s without price", in.Kind, in.Symbol)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	k := key{symbol: in.Symbol, side: in.Side}
	b := t.books[k]
	switch in.Kind {
	case lifecycle.IntentOpen:
		if b != nil {
			return models.TradeRecord{}, errors.Wrapf(ErrExists, "%s %s", in.Symbol, in.Side)
		}
		if in.Qty <= 0 {
			return models.TradeRecord{}, fmt.Errorf("paper: open %s with qty %.8f", in.Symbol, in.Qty)
		}
		b = &book{
			id:    uuid.NewString(),
			qty:   in.Qty,
			peak:  in.Qty,
			entry: in.Price,
			sl:    in.SL,
			tp:    in.TP,
			risk:  math.Abs(in.Price - in.SL),
		}
		t.charge(b, in.Qty, in.Price)
		t.books[k] = b
		t.stats.LastTradeID = b.id
		return t.record(in, b, 0, false), nil
	}

	if b == nil {
		return models.TradeRecord{}, errors.Wrapf(ErrNotFound, "%s %s %s", in.Kind, in.Symbol, in.Side)
	}

	switch in.Kind {
	case lifecycle.IntentPromote:
		if in.Qty > 0 {
			b.entry = (b.entry*b.qty + in.Price*in.Qty) / (b.qty + in.Qty)
			b.qty += in.Qty
			b.peak = math.Max(b.peak, b.qty)
			t.charge(b, in.Qty, in.Price)
		}
		b.sl, b.tp = in.SL, in.TP
		b.risk = math.Abs(b.entry - in.SL)
		return t.record(in, b, 0, false), nil

	case lifecycle.IntentReduce:
		qty := math.Min(in.Qty, b.qty)
		pnl := t.realize(b, in.Side, qty, in.Price)
		return t.record(in, b, pnl, false), nil

	case lifecycle.IntentClose:
		pnl := t.realize(b, in.Side, b.qty, in.Price)
		delete(t.books, k)
		t.stats.Trades++
		if b.realQ-b.feesQ >= 0 {
			t.stats.Wins++
		} else {
			t.stats.Losses++
		}
		logger.Info("[PAPER] %s %s closed: pnl=%.4f (%.2fR) fees=%.4f", in.Symbol, in.Side, b.realQ, b.realR, b.feesQ)
		return t.record(in, b, pnl, true), nil

	case lifecycle.IntentModifySL:
		b.sl = in.SL
		return t.record(in, b, 0, false), nil

	case lifecycle.IntentModifyTP:
		b.tp = in.TP
		return t.record(in, b, 0, false), nil
	}
	return models.TradeRecord{}, fmt.Errorf("paper: unknown intent %q", in.Kind)
}

// realize фиксирует часть позиции, возвращает PnL в котируемой валюте.
// R считается от риска на пиковый объём.
func (t *Trader) realize(b *book, side models.Side, qty, price float64) float64 {
	if qty <= 0 {
		return 0
	}
	pnl := (price - b.entry) * side.Sign() * qty
	t.charge(b, qty, price)
	b.qty -= qty
	if b.qty < 1e-12 {
		b.qty = 0
	}
	b.realQ += pnl
	t.stats.RealizedQ += pnl
	if b.risk > 0 && b.peak > 0 {
		r := pnl / (b.risk * b.peak)
		b.realR += r
		t.stats.RealizedR += r
	}
	return pnl
}

// charge списывает комиссию с оборота qty·price.
func (t *Trader) charge(b *book, qty, price float64) {
	fee := qty * price * t.cfg.FeeRate
	b.feesQ += fee
	t.stats.Fees += fee
}

func (t *Trader) record(in lifecycle.Intent, b *book, realized float64, closed bool) models.TradeRecord {
	return models.TradeRecord{
		ID:       b.id,
		Symbol:   in.Symbol,
		Side:     in.Side,
		Qty:      b.qty,
		Entry:    b.entry,
		Price:    in.Price,
		Realized: realized,
		Closed:   closed,
	}
}

func (t *Trader) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.stats
	s.OpenBooks = len(t.books)
	return s
}

// Report: строка итогов для команды /pnl.
func (t *Trader) Report() string {
	s := t.Stats()
	return fmt.Sprintf("💰 paper: trades=%d wins=%d losses=%d pnl=%.2f (%.2fR) fees=%.2f open=%d",
		s.Trades, s.Wins, s.Losses, s.RealizedQ, s.RealizedR, s.Fees, s.OpenBooks)
}
