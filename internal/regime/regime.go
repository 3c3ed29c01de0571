package regime

import "signal_engine/internal/models"

const (
	PercentileWindow = 100
	ATRSlopeLookback = 3
	defaultBBWPctl   = 0.5
)

// Detect классифицирует режим по H1 в фиксированном порядке приоритета,
// первое совпадение побеждает. Отсутствующие поля берут безопасный дефолт.
func Detect(h1 *models.Snapshot) models.Regime {
	adx := h1.ADX.LastOr(0)
	pctl, ok := h1.BBWPercentile(PercentileWindow)
	if !ok {
		pctl = defaultBBWPctl
	}
	atrSlope, _ := h1.ATRSlope(ATRSlopeLookback)
	vol := h1.Volume.LastOr(0)
	vma := h1.VolMA50.LastOr(0)
	if vma <= 0 {
		vma = 1
	}

	switch {
	case pctl < 0.15 && vol < 0.8*vma:
		return models.RegimeCompression
	case pctl > 0.85 && (vol > 1.5*vma || atrSlope > 0):
		return models.RegimeExplosive
	case (adx >= 20 && adx <= 25) || (pctl >= 0.3 && pctl <= 0.6):
		return models.RegimeTransition
	case adx > 25:
		return models.RegimeTrend
	default:
		return models.RegimeSideway
	}
}

// Strength: пригодность режима для промоута.
func Strength(r models.Regime) models.RegimeStrength {
	switch r {
	case models.RegimeTrend, models.RegimeExplosive:
		return models.StrengthStrong
	case models.RegimeTransition:
		return models.StrengthNormal
	default:
		return models.StrengthWeak
	}
}

// MacroBias: LONG, если H1 и H4 выше EMA200 и поток положительный; SHORT, зеркально.
func MacroBias(h1, h4 *models.Snapshot, flow float64) models.Bias {
	h1Close, ok1 := h1.Close.Last()
	h1E200, ok2 := h1.EMA200.Last()
	h4Close, ok3 := h4.Close.Last()
	h4E200, ok4 := h4.EMA200.Last()
	if !(ok1 && ok2 && ok3 && ok4) {
		return models.BiasFlat
	}
	h1Up, h4Up := h1Close > h1E200, h4Close > h4E200
	h1Dn, h4Dn := h1Close < h1E200, h4Close < h4E200
	switch {
	case h1Up && h4Up && flow > 0:
		return models.BiasLong
	case h1Dn && h4Dn && flow < 0:
		return models.BiasShort
	default:
		return models.BiasFlat
	}
}

// Macro сопоставляет макро-биас со стороной решения.
func Macro(bias models.Bias, side models.Side) models.MacroRegime {
	if bias == models.BiasFlat || !side.Directional() {
		return models.MacroSideway
	}
	if string(bias) == string(side) {
		return models.MacroTrendAlign
	}
	return models.MacroConflict
}

// TFDirection: направление таймфрейма по выстройке close/EMA21/EMA50.
func TFDirection(s *models.Snapshot) models.Side {
	c, ok1 := s.Close.Last()
	e21, ok2 := s.EMA21.Last()
	e50, ok3 := s.EMA50.Last()
	if !(ok1 && ok2 && ok3) {
		return models.SideNeutral
	}
	switch {
	case c > e21 && e21 > e50:
		return models.SideLong
	case c < e21 && e21 < e50:
		return models.SideShort
	default:
		return models.SideNeutral
	}
}
