package runner

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"signal_engine/internal/audit"
	"signal_engine/internal/indicators"
	"signal_engine/internal/lifecycle"
	"signal_engine/internal/metrics"
	"signal_engine/internal/models"
	"signal_engine/internal/regime"
	"signal_engine/internal/store"
	"signal_engine/internal/vfi"
	"signal_engine/internal/vote"
	"signal_engine/pkg/logger"
)

// RunSymbolCycle: один полный цикл по символу. Никогда не паникует:
// сбой превращается в результат со статусом ERROR.
func (e *Engine) RunSymbolCycle(ctx context.Context, symbol string) (res models.CycleResult) {
	start := time.Now()
	res = models.NewCycleResult(symbol)

	st, release, ok := e.store.Acquire(symbol)
	if !ok {
		res.Status = models.StatusBusy
		logger.Warn("[RUNNER] %s: previous cycle still running", symbol)
		return res
	}
	defer release()

	span, ctx := opentracing.StartSpanFromContext(ctx, "runner.symbol_cycle")
	span.SetTag("symbol", symbol)
	defer span.Finish()

	defer func() {
		if p := recover(); p != nil {
			res.Status = models.StatusError
			res.Err = fmt.Sprint(p)
			logger.Error("[RUNNER] %s: panic: %v\n%s", symbol, p, debug.Stack())
		}
		res.Latency = time.Since(start)
		span.SetTag("status", string(res.Status))
		st.LastResult = res
		metrics.CycleLatency.WithLabelValues(symbol).Observe(res.Latency.Seconds())
		metrics.CycleStatus.WithLabelValues(symbol, string(res.Status)).Inc()
		e.logCycle(ctx, res)
	}()

	if err := e.cycle(ctx, st, &res); err != nil {
		res.Status = models.StatusError
		res.Err = err.Error()
		logger.Error("[RUNNER] %s: %v", symbol, err)
		e.publish(ctx, models.Event{Kind: models.EventError, Symbol: symbol, Reason: err.Error()})
	}
	return res
}

func (e *Engine) cycle(ctx context.Context, st *store.SymbolState, res *models.CycleResult) error {
	symbol := st.Symbol
	frames, err := e.feed.FetchAll(ctx, symbol)
	if err != nil {
		return errors.Wrap(err, "fetch")
	}
	if ctx.Err() != nil {
		return errors.Wrap(ctx.Err(), "cycle cancelled")
	}
	if frames.Empty() {
		return errors.New("no market data")
	}
	for tf, ferr := range frames.Errs {
		logger.Warn("[RUNNER] %s: %s unavailable: %v", symbol, tf, ferr)
	}

	snaps := indicators.ComputeAll(frames.Candles)
	now := e.now()
	m15 := snaps.Get(models.M15)

	features := vfi.Extract(m15.Candles, m15.VWAP, m15.ATR, frames.Spot)
	scores := vfi.Scores(features)
	flow := vfi.Flow(scores)
	res.VFIFlow, res.Scores = flow, scores
	res.Price = m15.Close.LastOr(0)

	if LagGuard(snaps, flow, now, e.cfg.LagGuard) {
		res.Status = models.StatusLagGuard
		res.Decision = models.FlatDecision()
		res.Decision.Reasons = append(res.Decision.Reasons, "lag_guard")
		logger.Info("[RUNNER] %s: stale H1/H4, decision neutralised (flow=%.2f)", symbol, flow)
		return nil
	}

	// дальше цикл меняет состояние символа: после таймаута тика не продолжаем
	if ctx.Err() != nil {
		return errors.Wrap(ctx.Err(), "cycle cancelled")
	}

	groups := vote.TallyGroups(snaps, flow)
	bump, at := M5Bump(snaps, st.LastM5Trigger, e.cfg.M5Trigger)
	if bump != 0 {
		groups.Momentum += bump
		st.LastM5Trigger = at
	}
	res.Groups = groups

	decision := vote.Decide(vote.Input{
		Snapshots:   snaps,
		Groups:      &groups,
		VFIScores:   scores,
		PrevVFILong: st.PrevVFILong,
	}, e.cfg.Vote)
	if bump != 0 {
		decision.Reasons = append(decision.Reasons, fmt.Sprintf("m5_trigger:%+.2f", bump))
	}
	st.SetPrevVFILong(scores.Long)
	res.Decision = decision
	res.Class = regime.Classify(snaps, flow, decision.Side, scores)

	e.auditVote(ctx, symbol, now, res)
	e.notifyDecision(ctx, symbol, decision, flow, now)

	out, err := e.machine.Step(ctx, st, lifecycle.Input{
		Snapshots: snaps,
		Decision:  decision,
		Class:     res.Class,
		Features:  features,
		Flow:      flow,
		Now:       now,
	})
	// намерения уже исполнены, их журналируем даже при отменённом ctx
	e.handleOutcome(context.WithoutCancel(ctx), symbol, res, out, m15.ATR.LastOr(0))
	if err != nil {
		return errors.Wrap(err, "lifecycle")
	}
	res.Status = models.StatusOK
	return nil
}

func (e *Engine) notifyDecision(ctx context.Context, symbol string, d models.Decision, flow float64, now time.Time) {
	if !e.cfg.NotifyDecision || e.dedup == nil {
		return
	}
	changed, err := e.dedup.Changed(ctx, symbol, DecisionKey(d, flow))
	if err != nil {
		logger.Warn("[RUNNER] %s: decision cache: %v", symbol, err)
	}
	if !changed {
		return
	}
	e.publish(ctx, models.Event{
		Kind:       models.EventDecision,
		Symbol:     symbol,
		Side:       d.Side,
		Confidence: d.Confidence,
		Flow:       flow,
		At:         now,
	})
}

func (e *Engine) handleOutcome(ctx context.Context, symbol string, res *models.CycleResult, out lifecycle.Outcome, atr float64) {
	if out.Exit != nil && len(out.Applied) == 0 {
		logger.Info("[RUNNER] %s: %s (no open position)", symbol, out.Exit)
	}
	for _, a := range out.Applied {
		metrics.Intents.WithLabelValues(string(a.Intent.Kind)).Inc()
		if a.Intent.Kind == lifecycle.IntentModifySL || a.Intent.Kind == lifecycle.IntentModifyTP {
			logger.Debug("[RUNNER] %s: %s → sl=%.4f tp=%.4f", symbol, a.Intent.Kind, a.Intent.SL, a.Intent.TP)
		} else {
			ev := a.Event()
			ev.Confidence = res.Decision.Confidence
			ev.Flow = res.VFIFlow
			e.publish(ctx, ev)
		}
		e.auditTrade(ctx, res, a, atr)
		if a.Intent.Kind == lifecycle.IntentOpen {
			e.auditEntry(ctx, res, a)
		}
	}
}

func (e *Engine) logCycle(ctx context.Context, res models.CycleResult) {
	if res.Status == models.StatusBusy || ctx.Err() != nil {
		return
	}
	err := e.audit.Cycle(ctx, audit.CycleRow{
		TS:         e.now(),
		Symbol:     res.Symbol,
		Status:     res.Status,
		Side:       res.Decision.Side,
		Conf:       res.Decision.Confidence,
		VFIFlow:    res.VFIFlow,
		VFILong:    res.Scores.Long,
		VFIShort:   res.Scores.Short,
		LatencySec: res.Latency.Seconds(),
	})
	if err != nil {
		logger.Warn("[RUNNER] %s: audit cycle: %v", res.Symbol, err)
	}
}

func (e *Engine) auditVote(ctx context.Context, symbol string, now time.Time, res *models.CycleResult) {
	if ctx.Err() != nil {
		return
	}
	g := res.Groups
	err := e.audit.Vote(ctx, audit.VoteRow{
		TS:       now,
		Symbol:   symbol,
		Regime:   res.Class.Regime,
		Trend:    g.Trend,
		Momentum: g.Momentum,
		Mean:     g.Mean,
		Flow:     g.Flow,
		Score:    res.Decision.Confidence,
		Side:     res.Decision.Side,
		Details:  res.Decision.Details,
	})
	if err != nil {
		logger.Warn("[RUNNER] %s: audit vote: %v", symbol, err)
	}
}

func (e *Engine) auditEntry(ctx context.Context, res *models.CycleResult, a lifecycle.Applied) {
	err := e.audit.Entry(ctx, audit.EntryRow{
		TS:        a.Intent.At,
		Symbol:    a.Intent.Symbol,
		Regime:    res.Class.Regime,
		MacroBias: res.Class.Bias,
		Side:      a.Intent.Side,
		Reason:    a.Intent.Reason,
		Price:     a.Record.Entry,
		Groups:    res.Groups,
		Extra: map[string]any{
			"mode":       res.Class.Mode,
			"macro":      res.Class.Macro,
			"confidence": res.Decision.Confidence,
			"reasons":    res.Decision.Reasons,
			"vfi_long":   res.Scores.Long,
			"vfi_short":  res.Scores.Short,
		},
	})
	if err != nil {
		logger.Warn("[RUNNER] %s: audit entry: %v", a.Intent.Symbol, err)
	}
}

func (e *Engine) auditTrade(ctx context.Context, res *models.CycleResult, a lifecycle.Applied, atr float64) {
	pos := a.Position
	if pos == nil {
		pos = a.Before
	}
	row := audit.TradeRow{
		TS:           a.Intent.At,
		Event:        string(a.Intent.Kind),
		Symbol:       a.Intent.Symbol,
		Regime:       res.Class.Regime,
		Side:         a.Intent.Side,
		PriceAtEvent: a.Intent.Price,
		ExitReason:   a.Intent.Reason,
		Qty:          a.Record.Qty,
	}
	if a.Intent.Kind == lifecycle.IntentReduce || a.Intent.Kind == lifecycle.IntentClose {
		row.Qty = a.Intent.Qty
	}
	if pos != nil {
		row.Entry, row.SL, row.TP1Hit = pos.Entry, pos.SL, pos.TP1Hit
		// уровни частичной фиксации по текущему ATR
		sign := pos.Side.Sign()
		row.TP1 = pos.Entry + sign*e.cfg.Lifecycle.Manage.TP1ATR*atr
		row.TP2 = pos.Entry + sign*e.cfg.Lifecycle.Manage.TP2ATR*atr
		row.PnLEstR = pos.PnLR(a.Intent.Price)
	}
	if err := e.audit.Trade(ctx, row); err != nil {
		logger.Warn("[RUNNER] %s: audit trade: %v", a.Intent.Symbol, err)
	}
}
