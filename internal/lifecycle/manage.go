package lifecycle

import (
	"context"
	"fmt"
	"time"

	"signal_engine/internal/guard"
	"signal_engine/internal/models"
	"signal_engine/internal/store"
	"signal_engine/internal/vfi"
)

// StopHit: цена дошла до SL или TP.
func StopHit(pos *models.Position, price float64) (guard.Exit, bool) {
	switch pos.Side {
	case models.SideLong:
		if pos.SL > 0 && price <= pos.SL {
			return guard.Exit{Code: guard.CodeStopLoss, Message: fmt.Sprintf("price %.4f ≤ SL %.4f", price, pos.SL)}, true
		}
		if pos.TP > 0 && price >= pos.TP {
			return guard.Exit{Code: guard.CodeTakeProfit, Message: fmt.Sprintf("price %.4f ≥ TP %.4f", price, pos.TP)}, true
		}
	case models.SideShort:
		if pos.SL > 0 && price >= pos.SL {
			return guard.Exit{Code: guard.CodeStopLoss, Message: fmt.Sprintf("price %.4f ≥ SL %.4f", price, pos.SL)}, true
		}
		if pos.TP > 0 && price <= pos.TP {
			return guard.Exit{Code: guard.CodeTakeProfit, Message: fmt.Sprintf("price %.4f ≤ TP %.4f", price, pos.TP)}, true
		}
	}
	return guard.Exit{}, false
}

// TrailStop: новый SL по ATR, только в сторону прибыли. При ok=false SL прежний.
func TrailStop(pos *models.Position, price, atr, mult float64) (float64, bool) {
	if atr <= 0 || mult <= 0 {
		return pos.SL, false
	}
	switch pos.Side {
	case models.SideLong:
		cand := price - mult*atr
		if cand > pos.SL {
			return cand, true
		}
	case models.SideShort:
		cand := price + mult*atr
		if pos.SL <= 0 || cand < pos.SL {
			return cand, true
		}
	}
	return pos.SL, false
}

// Band: какая полоса частичной фиксации достигнута: 0, 1 или 2.
func Band(pos *models.Position, price, atr, tp1, tp2 float64) int {
	if atr <= 0 {
		return 0
	}
	move := (price - pos.Entry) * pos.Side.Sign()
	switch {
	case move >= tp2*atr:
		return 2
	case move >= tp1*atr:
		return 1
	default:
		return 0
	}
}

// manage ведёт открытую позицию. done=true: позиция закрыта.
func (m *Machine) manage(ctx context.Context, st *store.SymbolState, pos *models.Position, in Input, price, atr float64, p Params, out *Outcome) (bool, error) {
	if e, ok := StopHit(pos, price); ok {
		return true, m.closeWith(ctx, st, pos, price, e, in.Now, out)
	}
	if out.Exit != nil {
		return true, m.closeWith(ctx, st, pos, price, *out.Exit, in.Now, out)
	}
	if e, ok := guard.Forced(in.Snapshots, m.cfg.Exits); ok {
		out.Exit = &e
		return true, m.closeWith(ctx, st, pos, price, e, in.Now, out)
	}
	if m.cfg.TimeExit.Enabled {
		if e, ok := guard.ProbeTimedOut(pos, in.Now, p.ProbeMaxAge); ok {
			out.Exit = &e
			return true, m.closeWith(ctx, st, pos, price, e, in.Now, out)
		}
	}

	// нулевой вектор: данных мало, выход по VFI не оцениваем
	if m.cfg.VFIExit.Enabled && !in.Features.IsZero() {
		prev := pos.PrevFeatures
		f := in.Features
		pos.PrevFeatures = &f
		if reason, ok := vfi.ExitSignal(prev, in.Features, pos.Side, m.cfg.VFIExit.WickThreshold); ok && !pos.VFIReduced {
			if done, err := m.reduce(ctx, st, pos, pos.Qty*0.5, price, guard.CodeVFIExit, reason, in.Now, out); err != nil || done {
				return done, err
			}
			pos = st.Position()
			pos.VFIReduced = true
		}
	}

	if m.cfg.Manage.Enabled {
		band := Band(pos, price, atr, m.cfg.Manage.TP1ATR, m.cfg.Manage.TP2ATR)
		if band >= 1 && !pos.TP1Hit {
			reason := fmt.Sprintf("partial_tp1(mode=%s)", in.Class.Mode)
			if done, err := m.reduce(ctx, st, pos, pos.Qty*p.Partial1, price, "TP1", reason, in.Now, out); err != nil || done {
				return done, err
			}
			pos = st.Position()
			pos.TP1Hit = true
		}
		if band >= 2 && pos.TP1Hit && !pos.TP2Hit {
			reason := fmt.Sprintf("partial_tp2(mode=%s)", in.Class.Mode)
			if done, err := m.reduce(ctx, st, pos, pos.Qty*p.Partial2, price, "TP2", reason, in.Now, out); err != nil || done {
				return done, err
			}
			pos = st.Position()
			pos.TP2Hit = true
		}

		if m.cfg.Manage.TrailingEnabled {
			if sl, ok := TrailStop(pos, price, atr, p.Trailing); ok {
				err := m.apply(ctx, st, Intent{
					Kind:     IntentModifySL,
					Symbol:   pos.Symbol,
					Side:     pos.Side,
					SizeType: pos.SizeType,
					Price:    price,
					SL:       sl,
					TP:       pos.TP,
					Reason:   "trailing",
					At:       in.Now,
				}, out)
				if err != nil {
					return false, err
				}
			}
		}
	}
	return false, nil
}

// reduce уменьшает позицию; если остаток пылевой, закрывает её.
func (m *Machine) reduce(ctx context.Context, st *store.SymbolState, pos *models.Position, qty, price float64, code, reason string, at time.Time, out *Outcome) (bool, error) {
	if qty <= 0 {
		return false, nil
	}
	if pos.Qty-qty <= dustQty {
		return true, m.closeWith(ctx, st, pos, price, guard.Exit{Code: code, Message: reason}, at, out)
	}
	err := m.apply(ctx, st, Intent{
		Kind:     IntentReduce,
		Symbol:   pos.Symbol,
		Side:     pos.Side,
		SizeType: pos.SizeType,
		Qty:      qty,
		Price:    price,
		SL:       pos.SL,
		TP:       pos.TP,
		Code:     code,
		Reason:   reason,
		At:       at,
	}, out)
	return false, err
}
