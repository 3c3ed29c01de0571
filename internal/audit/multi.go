package audit

import (
	"context"

	"signal_engine/pkg/logger"
)

// Multi пишет в каждый журнал; ошибка одного не мешает остальным.
type Multi []Sink

func (m Multi) each(kind string, fn func(Sink) error) error {
	var last error
	for _, s := range m {
		if err := fn(s); err != nil {
			logger.Warn("[AUDIT] %s write failed: %v", kind, err)
			last = err
		}
	}
	return last
}

func (m Multi) Entry(ctx context.Context, r EntryRow) error {
	return m.each("entry", func(s Sink) error { return s.Entry(ctx, r) })
}

func (m Multi) Trade(ctx context.Context, r TradeRow) error {
	return m.each("trade", func(s Sink) error { return s.Trade(ctx, r) })
}

func (m Multi) Vote(ctx context.Context, r VoteRow) error {
	return m.each("vote", func(s Sink) error { return s.Vote(ctx, r) })
}

func (m Multi) Cycle(ctx context.Context, r CycleRow) error {
	return m.each("cycle", func(s Sink) error { return s.Cycle(ctx, r) })
}
