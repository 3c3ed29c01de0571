// Package vote fuses group scores and multi-timeframe bias into one Decision.
package vote

import (
	"fmt"
	"math"

	"signal_engine/internal/models"
	"signal_engine/internal/vfi"
)

type Input struct {
	Snapshots models.Snapshots
	// Groups: если nil, считаются через TallyGroups с flow из VFIScores.
	Groups    *models.Groups
	VFIScores models.VFIScores
	// PrevVFILong: long-скор VFI прошлого цикла; nil отключает VFI-условие ADX-бонуса.
	PrevVFILong *float64
}

// alignBias: +bias при close>EMA21>EMA50>EMA200, -bias при обратной выстройке.
func alignBias(s *models.Snapshot, bias float64) float64 {
	c, ok1 := s.Close.Last()
	e21, ok2 := s.EMA21.Last()
	e50, ok3 := s.EMA50.Last()
	e200, ok4 := s.EMA200.Last()
	if !(ok1 && ok2 && ok3 && ok4) {
		return 0
	}
	switch {
	case c > e21 && e21 > e50 && e50 > e200:
		return bias
	case c < e21 && e21 < e50 && e50 < e200:
		return -bias
	default:
		return 0
	}
}

func (c Config) adxBias(adx float64) float64 {
	switch {
	case adx >= c.ADXHigh:
		return c.ADXHighBias
	case adx <= c.ADXLow:
		return c.ADXLowBias
	default:
		return 0
	}
}

func emaSlopeScore(ema models.Series, bbw float64, cfg EMASlopeConfig) float64 {
	if bbw < cfg.MinBBW {
		return 0
	}
	cur, ok := ema.Last()
	if !ok {
		return 0
	}
	prev, ok := ema.Ago(cfg.Lookback)
	if !ok {
		return 0
	}
	switch {
	case cur > prev:
		return cfg.Bonus
	case cur < prev:
		return cfg.Penalty
	default:
		return 0
	}
}

func adxSlopeScore(adx models.Series, vfiLong float64, prevVFILong *float64, cfg ADXSlopeConfig) float64 {
	cur, ok := adx.Last()
	if !ok {
		return 0
	}
	prev, ok := adx.Ago(cfg.Lookback)
	if !ok || cur-prev < cfg.Delta {
		return 0
	}
	if cfg.NeedVFIDeltaPos && prevVFILong != nil && vfiLong-*prevVFILong <= 0 {
		return 0
	}
	return cfg.Bonus
}

func crossed(h1 *models.Snapshot) bool {
	e21, ok1 := h1.EMA21.Last()
	e50, ok2 := h1.EMA50.Last()
	if !(ok1 && ok2) {
		return false
	}
	p21 := h1.EMA21.AgoOr(1, e21)
	p50 := h1.EMA50.AgoOr(1, e50)
	up := p21 <= p50 && e21 > e50
	down := p21 >= p50 && e21 < e50
	return up || down
}

// Decide никогда не паникует на отсутствующих данных и всегда возвращает валидное решение.
func Decide(in Input, cfg Config) models.Decision {
	snaps := in.Snapshots
	h1 := snaps.Get(models.H1)
	h4 := snaps.Get(models.H4)
	d1 := snaps.Get(models.D1)

	var groups models.Groups
	if in.Groups != nil {
		groups = *in.Groups
	} else {
		groups = TallyGroups(snaps, vfi.Flow(in.VFIScores))
	}

	w := cfg.Weights
	base := groups.Flow*w.Flow + groups.Trend*w.Trend + groups.Momentum*w.Momentum + groups.Mean*w.Mean

	reasons := make([]string, 0, 4)
	d := models.DecisionDetails{Base: base, Weights: w, Groups: groups}

	d.H1Align = alignBias(h1, cfg.AlignBias)
	d.H4Align = alignBias(h4, cfg.AlignBias) * cfg.H4AlignScale
	d.ADXBias = cfg.adxBias(h1.ADX.LastOr(0))
	d.TrendBias = d.H1Align + d.H4Align + d.ADXBias

	if e := cfg.Enhance.EMASlope; e.Enabled {
		h1bbw := h1.BBW.LastOr(0)
		d.SlopeBonus = emaSlopeScore(h1.EMA21, h1bbw, e) + 0.5*emaSlopeScore(h4.EMA21, h1bbw, e)
		if d.SlopeBonus != 0 {
			reasons = append(reasons, fmt.Sprintf("ema_slope:%+.2f", d.SlopeBonus))
		}
	}
	if e := cfg.Enhance.ADXSlope; e.Enabled {
		d.ADXSlopeBonus = adxSlopeScore(h1.ADX, in.VFIScores.Long, in.PrevVFILong, e)
		if d.ADXSlopeBonus != 0 {
			reasons = append(reasons, fmt.Sprintf("adx_slope:%+.2f", d.ADXSlopeBonus))
		}
	}
	if e := cfg.Enhance.Early; e.Enabled {
		if in.VFIScores.Best() >= e.MinVFI && crossed(h1) {
			d.EarlyBonus = e.Bonus
			reasons = append(reasons, "early_anticipate")
		}
	}

	score := base + d.TrendBias + d.SlopeBonus + d.ADXSlopeBonus + d.EarlyBonus
	d.Raw = score

	d.D1Align = alignBias(d1, cfg.AlignBias)
	if d.D1Align*score < 0 {
		d.D1Cut = math.Max(0, math.Min(1, cfg.D1ContraCut))
		score *= 1 - d.D1Cut
		reasons = append(reasons, "d1_contra_cut")
	}

	score = clamp1(score)
	if math.IsNaN(score) {
		score = 0
	}

	return models.Decision{
		Side:       pickSide(score, cfg),
		Confidence: score,
		Reasons:    reasons,
		Details:    d,
	}
}

func pickSide(score float64, cfg Config) models.Side {
	switch {
	case math.Abs(score) < cfg.DeadZone:
		return models.SideFlat
	case score >= cfg.LongThreshold:
		return models.SideLong
	case score <= cfg.ShortThreshold:
		return models.SideShort
	default:
		return models.SideNeutral
	}
}
