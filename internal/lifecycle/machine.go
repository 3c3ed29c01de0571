// Package lifecycle drives the per-symbol position state machine
// NONE → PROBE → FULL → NONE on top of the store.
package lifecycle

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"

	"signal_engine/internal/guard"
	"signal_engine/internal/models"
	"signal_engine/internal/regime"
	"signal_engine/internal/store"
	"signal_engine/internal/vfi"
	"signal_engine/pkg/logger"
)

// минимальный остаток; если меньше, закрываем целиком
const dustQty = 1e-12

type Input struct {
	Snapshots models.Snapshots
	Decision  models.Decision
	Class     models.Classification
	Features  models.FeatureVector
	Flow      float64
	Now       time.Time
}

// Outcome: всё, что произошло с символом за шаг.
type Outcome struct {
	Applied []Applied
	// Exit: сработавший принудительный выход (даже если позиции не было).
	Exit *guard.Exit
	// Blocked: причина, по которой открытие не состоялось.
	Blocked string
}

type Machine struct {
	cfg     Config
	exec    Executor
	absorb  *guard.AbsorptionPause
	monitor *guard.ScoreMonitor
}

func NewMachine(cfg Config, exec Executor) *Machine {
	return &Machine{
		cfg:     cfg,
		exec:    exec,
		absorb:  guard.NewAbsorptionPause(cfg.Absorption),
		monitor: guard.NewScoreMonitor(cfg.Monitor),
	}
}

// Step выполняет один шаг машины состояний для символа. Вызывается только
// владельцем захвата st.
func (m *Machine) Step(ctx context.Context, st *store.SymbolState, in Input) (Outcome, error) {
	var out Outcome
	m15 := in.Snapshots.Get(models.M15)
	price, ok := m15.Close.Last()
	if !ok || price <= 0 {
		out.Blocked = "no price"
		return out, nil
	}
	atr := m15.ATR.LastOr(0)
	params := m.cfg.ParamsFor(in.Class.Mode, in.Class.Macro)

	// пауза считается каждый цикл, блокирует только открытие
	paused := false
	if last, ok := m15.LastCandle(); ok {
		paused = m.absorb.Check(&st.Guard, last, in.Now)
	}

	exit, weak := m.monitor.Update(&st.Guard, in.Decision, in.Flow, in.Now)
	if weak {
		out.Exit = &exit
	}

	if pos := st.Position(); pos != nil {
		done, err := m.manage(ctx, st, pos, in, price, atr, params, &out)
		if err != nil || done {
			return out, err
		}
		if st.Probe() != nil {
			if err := m.promote(ctx, st, in, price, atr, params, &out); err != nil {
				return out, err
			}
		}
		return out, nil
	}

	// ослабший сигнал без позиции: в этом цикле не открываемся
	if out.Exit != nil {
		out.Blocked = out.Exit.Code
		return out, nil
	}
	if paused {
		out.Blocked = "absorption pause"
		return out, nil
	}
	err := m.open(ctx, st, in, price, atr, params, &out)
	return out, err
}

func (m *Machine) apply(ctx context.Context, st *store.SymbolState, in Intent, out *Outcome) error {
	rec, err := m.exec.Execute(ctx, in)
	if err != nil {
		return errors.Wrapf(err, "execute %s %s", in.Kind, in.Symbol)
	}
	before := st.Position().Clone()
	switch in.Kind {
	case IntentOpen:
		pos := &models.Position{
			ID:       rec.ID,
			Symbol:   in.Symbol,
			Side:     in.Side,
			Qty:      rec.Qty,
			Entry:    rec.Entry,
			SL:       in.SL,
			TP:       in.TP,
			Risk:     math.Abs(rec.Entry - in.SL),
			OpenedAt: in.At,
			Updated:  in.At,
		}
		if err := st.OpenProbe(pos); err != nil {
			return err
		}
	case IntentPromote:
		probe := st.Probe()
		full := probe.Clone()
		if rec.ID != "" {
			full.ID = rec.ID
		}
		full.Qty = rec.Qty
		full.Entry = rec.Entry
		full.SL, full.TP = in.SL, in.TP
		full.Risk = math.Abs(rec.Entry - in.SL)
		full.Updated = in.At
		full.TP1Hit, full.TP2Hit = false, false
		if err := st.PromoteProbe(full); err != nil {
			return err
		}
	case IntentReduce:
		pos := st.Position()
		pos.Qty = rec.Qty
		pos.Updated = in.At
	case IntentClose:
		st.ClosePosition()
	case IntentModifySL:
		pos := st.Position()
		pos.SL = in.SL
		pos.Updated = in.At
	case IntentModifyTP:
		pos := st.Position()
		pos.TP = in.TP
		pos.Updated = in.At
	}
	out.Applied = append(out.Applied, Applied{Intent: in, Record: rec, Position: st.Position().Clone(), Before: before})
	return nil
}

func (m *Machine) closeWith(ctx context.Context, st *store.SymbolState, pos *models.Position, price float64, e guard.Exit, at time.Time, out *Outcome) error {
	logger.Info("[LIFECYCLE] %s close %s %s: %s", pos.Symbol, pos.Side, pos.SizeType, e)
	return m.apply(ctx, st, Intent{
		Kind:     IntentClose,
		Symbol:   pos.Symbol,
		Side:     pos.Side,
		SizeType: pos.SizeType,
		Qty:      pos.Qty,
		Price:    price,
		SL:       pos.SL,
		TP:       pos.TP,
		Code:     e.Code,
		Reason:   e.String(),
		At:       at,
	}, out)
}

func (m *Machine) open(ctx context.Context, st *store.SymbolState, in Input, price, atr float64, p Params, out *Outcome) error {
	if !m.cfg.Probe.Enabled {
		return nil
	}
	side := in.Decision.Side
	if !side.Directional() {
		return nil
	}
	if atr <= 0 {
		out.Blocked = "atr unavailable"
		return nil
	}
	m15 := in.Snapshots.Get(models.M15)
	if !AntiChase(price, m15.VWAP.LastOr(price), atr, m.cfg.Probe.AntiChaseATR) {
		out.Blocked = "anti-chase"
		return nil
	}
	if !FastConfirm(in.Snapshots.Get(models.M5), side) {
		out.Blocked = "no fast confirmation"
		return nil
	}
	if m.cfg.Probe.BlockWeakRetrace && vfi.WeakRetrace(in.Features, side, m.cfg.Retrace) {
		out.Blocked = "weak retrace"
		return nil
	}

	sl, tp := levels(side, price, atr, p.ProbeSL, p.ProbeTP)
	return m.apply(ctx, st, Intent{
		Kind:     IntentOpen,
		Symbol:   st.Symbol,
		Side:     side,
		SizeType: models.SizeProbe,
		Qty:      m.cfg.Probe.SizeQuote / price,
		Price:    price,
		SL:       sl,
		TP:       tp,
		Reason:   "probe(mode=" + string(in.Class.Mode) + ",macro=" + string(in.Class.Macro) + ")",
		At:       in.Now,
	}, out)
}

// PromoteReady: условия промоута PROBE → FULL.
func PromoteReady(snaps models.Snapshots, d models.Decision, class models.Classification, side models.Side, minScore float64) bool {
	if class.Macro == models.MacroConflict {
		return false
	}
	if d.Side != side || math.Abs(d.Confidence) < minScore {
		return false
	}
	tfOK := regime.TFDirection(snaps.Get(models.M15)) == side && regime.TFDirection(snaps.Get(models.H1)) == side
	alignOK := class.Macro == models.MacroTrendAlign && class.Strength.Qualifying()
	return tfOK || alignOK
}

func (m *Machine) promote(ctx context.Context, st *store.SymbolState, in Input, price, atr float64, p Params, out *Outcome) error {
	probe := st.Probe()
	if !m.cfg.Promote.Enabled || probe == nil || atr <= 0 {
		return nil
	}
	if !PromoteReady(in.Snapshots, in.Decision, in.Class, probe.Side, m.cfg.Promote.MinScore) {
		return nil
	}
	sl, tp := levels(probe.Side, price, atr, p.PromoteSL, p.PromoteTP)
	return m.apply(ctx, st, Intent{
		Kind:     IntentPromote,
		Symbol:   st.Symbol,
		Side:     probe.Side,
		SizeType: models.SizeFull,
		Qty:      m.cfg.Promote.AddQuote / price,
		Price:    price,
		SL:       sl,
		TP:       tp,
		Reason:   "promote(macro=" + string(in.Class.Macro) + ",regime=" + string(in.Class.Strength) + ")",
		At:       in.Now,
	}, out)
}

// AntiChase: цена не дальше limit·ATR от VWAP.
func AntiChase(price, vwap, atr, limit float64) bool {
	if atr <= 0 {
		return false
	}
	return math.Abs(price-vwap) <= limit*atr
}

// FastConfirm: снапшот M5 есть и последняя свеча не против стороны.
func FastConfirm(m5 *models.Snapshot, side models.Side) bool {
	c, ok := m5.LastCandle()
	if !ok {
		return false
	}
	switch side {
	case models.SideLong:
		return c.Close >= c.Open
	case models.SideShort:
		return c.Close <= c.Open
	default:
		return false
	}
}
