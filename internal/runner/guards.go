package runner

import (
	"fmt"
	"math"
	"time"

	"signal_engine/internal/models"
)

// LagGuard: true, если H1/H4 устарели, а поток VFI слишком слабый, чтобы им доверять.
func LagGuard(snaps models.Snapshots, flow float64, now time.Time, cfg LagGuardConfig) bool {
	if !cfg.Enabled {
		return false
	}
	stale := func(tf models.Timeframe, max time.Duration) bool {
		age, ok := snaps.Get(tf).Age(now)
		return ok && max > 0 && age > max
	}
	if !stale(models.H1, cfg.H1MaxAge) && !stale(models.H4, cfg.H4MaxAge) {
		return false
	}
	return math.Abs(flow) < cfg.SkipFlow
}

// M5Bump: добавка к momentum по M5: наклон EMA21 и положение к VWAP
// совпадают. Не чаще раза в MinGap на символ; last, время прошлого срабатывания.
func M5Bump(snaps models.Snapshots, last time.Time, cfg TriggerConfig) (float64, time.Time) {
	if !cfg.Enabled {
		return 0, last
	}
	if snaps.Get(models.M15).BBW.LastOr(0) < cfg.MinBBWM15 && snaps.Get(models.H1).ADX.LastOr(0) < cfg.MinADXH1 {
		return 0, last
	}
	m5 := snaps.Get(models.M5)
	c, ok := m5.LastCandle()
	if !ok {
		return 0, last
	}
	closeAt := c.Time()
	if !last.IsZero() && closeAt.Sub(last) < cfg.MinGap {
		return 0, last
	}
	e21, ok1 := m5.EMA21.Last()
	vwap, ok2 := m5.VWAP.Last()
	if !(ok1 && ok2) {
		return 0, last
	}
	slopeUp := e21-m5.EMA21.AgoOr(cfg.Lookback, e21) > 0

	var bump float64
	switch {
	case slopeUp && c.Close > vwap:
		bump = cfg.Bump
	case !slopeUp && c.Close < vwap:
		bump = -cfg.Bump
	default:
		return 0, last
	}
	return bump, closeAt
}

// DecisionKey: ключ дедупликации уведомлений о решении.
func DecisionKey(d models.Decision, flow float64) string {
	return fmt.Sprintf("%s|%.2f|%.2f", d.Side, d.Confidence, flow)
}
