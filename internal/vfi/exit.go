package vfi

import "signal_engine/internal/models"

const (
	ExitVolumeBodyWeak    = "VFI exit: volume/body weak"
	ExitAbsorptionBar     = "VFI exit: absorption bar"
	ExitReversalFootprint = "VFI exit: reversal footprint"

	DefaultWickThreshold = 0.8
)

// ExitSignal сравнивает текущий вектор с предыдущим (prev может быть nil)
// и возвращает причину выхода.
func ExitSignal(prev *models.FeatureVector, now models.FeatureVector, side models.Side, wickThreshold float64) (string, bool) {
	wiNow := now.WI(side)
	if now.VSS < 1.0 && now.TBA < 0.8 {
		return ExitVolumeBodyWeak, true
	}
	// разворот проверяем раньше absorption: он уже требует рост wick к прошлому бару
	if prev != nil {
		if wiNow-prev.WI(side) >= 0.7 && now.TBA < 1.0 {
			return ExitReversalFootprint, true
		}
	}
	if wiNow >= wickThreshold && now.TBA < 1.2 {
		return ExitAbsorptionBar, true
	}
	return "", false
}
