package vfi

import (
	"math"

	"signal_engine/internal/models"
)

// Score: сила стороны 0..100: 40% объём, 30% тело, 20% обратный wick, 10% обратное
// отклонение от VWAP; при наличии FSD сумма масштабируется на clamp(FSD, 0.6, 2).
func Score(v models.FeatureVector, side models.Side) float64 {
	base := 40.0*clamp((v.VSS-1.0)/1.5, 0, 1) +
		30.0*clamp((v.TBA-0.7)/0.8, 0, 1) +
		20.0*clamp(1.0-clamp(v.WI(side), 0, 2)/1.2, 0, 1) +
		10.0*clamp(1.0-clamp(v.VP, 0, 2)/1.2, 0, 1)
	if v.HasFSD {
		base *= clamp(v.FSD, 0.6, 2.0)
	}
	return clamp(base, 0, 100)
}

// Scores: обе стороны сразу.
func Scores(v models.FeatureVector) models.VFIScores {
	return models.VFIScores{
		Long:  Score(v, models.SideLong),
		Short: Score(v, models.SideShort),
	}
}

// Flow: дельта long/short в долях, [-1,1].
func Flow(s models.VFIScores) float64 {
	return (s.Long - s.Short) / 100.0
}

// WhalePressure: индекс давления крупного игрока 0..100, округлён до сотых.
func WhalePressure(v models.FeatureVector, side models.Side) float64 {
	return math.Round(Score(v, side)*100) / 100
}

// RetraceConfig: пороги фильтра "слабого отката".
type RetraceConfig struct {
	WeakVolRatio  float64 `yaml:"weak_vol_ratio"`
	WeakBodyRatio float64 `yaml:"weak_body_ratio"`
	WickAbsorb    float64 `yaml:"wick_absorb_thresh"`
	VPMaxForWeak  float64 `yaml:"vp_max_for_weak"`
}

func DefaultRetraceConfig() RetraceConfig {
	return RetraceConfig{
		WeakVolRatio:  1.2,
		WeakBodyRatio: 0.8,
		WickAbsorb:    1.2,
		VPMaxForWeak:  1.2,
	}
}

// WeakRetrace: откат-ловушка: слабый объём, слабое тело, длинный направленный
// wick и умеренное отклонение от VWAP одновременно.
func WeakRetrace(v models.FeatureVector, side models.Side, cfg RetraceConfig) bool {
	weakVol := v.VSS < cfg.WeakVolRatio
	weakBody := v.TBA < cfg.WeakBodyRatio
	absorb := v.WI(side) > cfg.WickAbsorb
	vwapOK := v.VP <= cfg.VPMaxForWeak
	return weakVol && weakBody && absorb && vwapOK
}
