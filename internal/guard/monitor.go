package guard

import (
	"fmt"
	"math"
	"time"

	"signal_engine/internal/models"
)

type MonitorConfig struct {
	Enabled  bool    `yaml:"enabled"`
	StartMin float64 `yaml:"start_min"`
	WeakDrop float64 `yaml:"weak_drop_threshold" validate:"gt=0"`
}

func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{Enabled: true, StartMin: 0.05, WeakDrop: 0.25}
}

// ScoreMonitor следит за пиком направленной уверенности с момента появления сигнала.
type ScoreMonitor struct {
	cfg MonitorConfig
}

func NewScoreMonitor(cfg MonitorConfig) *ScoreMonitor {
	return &ScoreMonitor{cfg: cfg}
}

// Update обновляет монитор решением цикла. Возвращает SCORE_WEAK, когда
// уверенность упала от пика на WeakDrop и больше; монитор при этом сбрасывается.
func (m *ScoreMonitor) Update(state *models.GuardState, d models.Decision, flow float64, now time.Time) (Exit, bool) {
	if !m.cfg.Enabled {
		return Exit{}, false
	}
	mon := state.Monitor
	if mon == nil {
		if d.Side.Directional() && math.Abs(d.Confidence) > m.cfg.StartMin {
			state.Monitor = &models.SignalMonitor{
				Side:     d.Side,
				OpenedAt: now,
				Peak:     d.Confidence * d.Side.Sign(),
				Flow:     flow,
			}
		}
		return Exit{}, false
	}

	cur := d.Confidence * mon.Side.Sign()
	if cur > mon.Peak {
		mon.Peak = cur
	}
	mon.Flow = flow
	if drop := mon.Peak - cur; drop >= m.cfg.WeakDrop {
		state.Monitor = nil
		return Exit{CodeScoreWeak, fmt.Sprintf("score_drop=%.2f, flow=%.2f", drop, flow)}, true
	}
	if d.Side == models.SideFlat {
		state.Monitor = nil
	}
	return Exit{}, false
}
