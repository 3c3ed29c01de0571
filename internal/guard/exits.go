// Package guard holds the forced exits and entry guards evaluated each cycle
// independently of the voting side.
package guard

import (
	"fmt"
	"math"
	"time"

	"signal_engine/internal/models"
)

const (
	CodeTrendWeak  = "TREND_WEAK"
	CodeSideway    = "SIDEWAY_CONGESTION"
	CodeTransition = "TRANSITION_PHASE"
	CodeTimeExit   = "TIME_EXIT"
	CodeScoreWeak  = "SCORE_WEAK"
	CodeVFIExit    = "VFI_EXIT"
	CodeStopLoss   = "STOP_LOSS"
	CodeTakeProfit = "TAKE_PROFIT"
)

// Exit: причина принудительного выхода.
type Exit struct {
	Code    string
	Message string
}

func (e Exit) String() string { return e.Code + ": " + e.Message }

type ExitConfig struct {
	TrendWeakEnabled bool    `yaml:"trend_weak_enabled"`
	TrendADXMin      float64 `yaml:"trend_adx_min"`
	TrendBBWMin      float64 `yaml:"trend_bbw_min"`

	SidewayEnabled bool    `yaml:"sideway_enabled"`
	SidewayBBWMax  float64 `yaml:"sideway_bbw_max"`
	SidewayADXMax  float64 `yaml:"sideway_adx_max"`
	SidewayRSILow  float64 `yaml:"sideway_rsi_low"`
	SidewayRSIHigh float64 `yaml:"sideway_rsi_high"`

	TransitionEnabled  bool    `yaml:"transition_enabled"`
	TransitionADXDrop  float64 `yaml:"transition_adx_drop"`
	TransitionSlopeMax float64 `yaml:"transition_slope_max"`
}

func DefaultExitConfig() ExitConfig {
	return ExitConfig{
		TrendWeakEnabled:   true,
		TrendADXMin:        15,
		TrendBBWMin:        0.12,
		SidewayEnabled:     true,
		SidewayBBWMax:      0.09,
		SidewayADXMax:      12,
		SidewayRSILow:      45,
		SidewayRSIHigh:     55,
		TransitionEnabled:  true,
		TransitionADXDrop:  14,
		TransitionSlopeMax: 0.001,
	}
}

// TrendWeak: ADX и ширина полос на H1 ниже порогов.
func TrendWeak(h1 *models.Snapshot, cfg ExitConfig) (Exit, bool) {
	if !cfg.TrendWeakEnabled {
		return Exit{}, false
	}
	adx, ok1 := h1.ADX.Last()
	bbw, ok2 := h1.BBW.Last()
	if !(ok1 && ok2) {
		return Exit{}, false
	}
	if adx < cfg.TrendADXMin && bbw < cfg.TrendBBWMin {
		return Exit{CodeTrendWeak, fmt.Sprintf("ADX=%.2f < %.0f, BBW=%.3f < %.2f", adx, cfg.TrendADXMin, bbw, cfg.TrendBBWMin)}, true
	}
	return Exit{}, false
}

// SidewayCongestion: узкие полосы, слабый ADX и RSI в середине на M15.
func SidewayCongestion(m15 *models.Snapshot, cfg ExitConfig) (Exit, bool) {
	if !cfg.SidewayEnabled {
		return Exit{}, false
	}
	bbw, ok1 := m15.BBW.Last()
	adx, ok2 := m15.ADX.Last()
	rsi, ok3 := m15.RSI.Last()
	if !(ok1 && ok2 && ok3) {
		return Exit{}, false
	}
	if bbw < cfg.SidewayBBWMax && adx < cfg.SidewayADXMax && rsi >= cfg.SidewayRSILow && rsi <= cfg.SidewayRSIHigh {
		return Exit{CodeSideway, fmt.Sprintf("BBW=%.3f, ADX=%.2f, RSI=%.1f", bbw, adx, rsi)}, true
	}
	return Exit{}, false
}

// TransitionPhase: слабый ADX на H1 и EMA21≈EMA50.
func TransitionPhase(h1 *models.Snapshot, cfg ExitConfig) (Exit, bool) {
	if !cfg.TransitionEnabled {
		return Exit{}, false
	}
	adx, ok1 := h1.ADX.Last()
	e21, ok2 := h1.EMA21.Last()
	e50, ok3 := h1.EMA50.Last()
	if !(ok1 && ok2 && ok3) {
		return Exit{}, false
	}
	if adx < cfg.TransitionADXDrop && math.Abs(e21-e50) < cfg.TransitionSlopeMax {
		return Exit{CodeTransition, fmt.Sprintf("ADX=%.1f < %.0f, EMA slope≈0", adx, cfg.TransitionADXDrop)}, true
	}
	return Exit{}, false
}

// ProbeTimedOut: PROBE висит дольше maxAge без промоута.
func ProbeTimedOut(pos *models.Position, now time.Time, maxAge time.Duration) (Exit, bool) {
	if pos == nil || pos.SizeType != models.SizeProbe || pos.OpenedAt.IsZero() || maxAge <= 0 {
		return Exit{}, false
	}
	if age := now.Sub(pos.OpenedAt); age >= maxAge {
		return Exit{CodeTimeExit, fmt.Sprintf("probe open %s ≥ %s", age.Truncate(time.Second), maxAge)}, true
	}
	return Exit{}, false
}

// Forced: первый сработавший индикаторный выход в порядке trend → sideway → transition.
func Forced(snaps models.Snapshots, cfg ExitConfig) (Exit, bool) {
	h1 := snaps.Get(models.H1)
	if e, ok := TrendWeak(h1, cfg); ok {
		return e, true
	}
	if e, ok := SidewayCongestion(snaps.Get(models.M15), cfg); ok {
		return e, true
	}
	return TransitionPhase(h1, cfg)
}
