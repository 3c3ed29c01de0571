package regime

import "signal_engine/internal/models"

// ModeInput: всё, что нужно детектору режима торговли.
type ModeInput struct {
	ADXH1    float64
	ADXH4    float64
	Macro    models.MacroRegime
	VFIScore float64
}

// ModeInputFrom собирает вход из снапшотов; недоступные значения → 0.
func ModeInputFrom(snaps models.Snapshots, macro models.MacroRegime, vfiScore float64) ModeInput {
	return ModeInput{
		ADXH1:    snaps.Get(models.H1).ADX.LastOr(0),
		ADXH4:    snaps.Get(models.H4).ADX.LastOr(0),
		Macro:    macro,
		VFIScore: vfiScore,
	}
}

// DetectMode: SWING при сильном тренде на H1 (+H4 или тренд-выстройка) и сильном VFI,
// иначе SCALPER. Никогда не возвращает пустое значение.
func DetectMode(in ModeInput) models.Mode {
	aligned := in.Macro == models.MacroTrendAlign
	swingByTrend := in.ADXH1 > 30 && (in.ADXH4 > 25 || aligned)
	swingByVFI := in.VFIScore >= 60
	if swingByTrend && (swingByVFI || aligned) {
		return models.ModeSwing
	}
	return models.ModeScalper
}

// Classify: полный пересчёт классификации на текущем цикле.
func Classify(snaps models.Snapshots, flow float64, side models.Side, scores models.VFIScores) models.Classification {
	h1 := snaps.Get(models.H1)
	r := Detect(h1)
	bias := MacroBias(h1, snaps.Get(models.H4), flow)
	macro := Macro(bias, side)
	return models.Classification{
		Regime:   r,
		Strength: Strength(r),
		Bias:     bias,
		Macro:    macro,
		Mode:     DetectMode(ModeInputFrom(snaps, macro, scores.Best())),
	}
}
