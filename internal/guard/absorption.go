package guard

import (
	"math"
	"time"

	"signal_engine/internal/models"
)

type AbsorptionConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Ratio    float64       `yaml:"ratio" validate:"gt=0"`
	CoolDown time.Duration `yaml:"cool_down"`
}

func DefaultAbsorptionConfig() AbsorptionConfig {
	return AbsorptionConfig{Enabled: true, Ratio: 1.8, CoolDown: 60 * time.Second}
}

// WickRatio: max(верхний, нижний фитиль) / тело.
func WickRatio(c models.Candle) float64 {
	return math.Max(c.UpperWick(), c.LowerWick()) / math.Max(c.Body(), 1e-9)
}

// AbsorptionPause блокирует открытие PROBE на CoolDown после свечи
// с большим фитилём. Одна свеча ставит паузу только один раз.
type AbsorptionPause struct {
	cfg AbsorptionConfig
}

func NewAbsorptionPause(cfg AbsorptionConfig) *AbsorptionPause {
	return &AbsorptionPause{cfg: cfg}
}

// Check возвращает true, если открытие сейчас заблокировано.
func (a *AbsorptionPause) Check(state *models.GuardState, last models.Candle, now time.Time) bool {
	if !a.cfg.Enabled {
		return false
	}
	if state.Paused(now) {
		return true
	}
	if !last.Valid() || last.Timestamp == state.PauseCandle {
		return false
	}
	if WickRatio(last) >= a.cfg.Ratio {
		state.PauseUntil = now.Add(a.cfg.CoolDown)
		state.PauseCandle = last.Timestamp
		return true
	}
	return false
}
