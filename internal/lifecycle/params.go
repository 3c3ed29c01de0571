package lifecycle

import (
	"math"
	"time"

	"signal_engine/internal/models"
)

// Params: множители, пересчитанные под режим торговли и макро-режим цикла.
type Params struct {
	ProbeSL     float64
	ProbeTP     float64
	PromoteSL   float64
	PromoteTP   float64
	Trailing    float64
	ProbeMaxAge time.Duration
	Partial1    float64
	Partial2    float64
}

func (c Config) ParamsFor(mode models.Mode, macro models.MacroRegime) Params {
	p := Params{
		ProbeSL:   c.Probe.SLATR,
		ProbeTP:   c.Probe.TPATR,
		PromoteSL: c.Promote.SLATR,
		PromoteTP: c.Promote.TPATR,
	}
	base := c.TimeExit.MaxAge
	if mode == models.ModeSwing {
		sw := c.Modes.Swing
		p.ProbeTP *= sw.ProbeTPMult
		p.PromoteTP *= sw.PromoteTPMult
		p.Trailing = math.Min(sw.TrailingCap, c.Manage.TrailingATR)
		p.ProbeMaxAge = time.Duration(float64(base) * sw.MaxAgeMult)
		p.Partial1, p.Partial2 = sw.Partial1, sw.Partial2
	} else {
		sc := c.Modes.Scalper
		p.Trailing = math.Max(sc.TrailingFloor, c.Manage.TrailingATR)
		p.ProbeMaxAge = base
		if sc.MaxAgeDiv > 0 {
			p.ProbeMaxAge = time.Duration(float64(base) / sc.MaxAgeDiv)
		}
		if p.ProbeMaxAge < sc.MinMaxAge {
			p.ProbeMaxAge = sc.MinMaxAge
		}
		p.Partial1, p.Partial2 = sc.Partial1, sc.Partial2
	}
	if macro == models.MacroConflict {
		p.ProbeSL *= c.Modes.Conflict.ProbeSLMult
		p.ProbeTP *= c.Modes.Conflict.ProbeTPMult
	}
	return p
}

// levels: SL/TP от цены на расстоянии множителей ATR.
func levels(side models.Side, price, atr, slMult, tpMult float64) (sl, tp float64) {
	sign := side.Sign()
	return price - sign*slMult*atr, price + sign*tpMult*atr
}
