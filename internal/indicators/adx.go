package indicators

import (
	"math"

	"signal_engine/internal/models"
)

// ADX calculates the average directional index (Wilder).
// Деление на ноль даёт 0, а не NaN. Первое значение появляется на баре 2n-1.
func ADX(h models.History, period int) []float64 {
	n := len(h)
	out := nanSlice(n)
	if period <= 0 || n < 2*period {
		return out
	}
	tr := TrueRange(h)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		up := h[i].High - h[i-1].High
		down := h[i-1].Low - h[i].Low
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	// суммы Уайлдера по барам 1..period
	var smTR, smPlus, smMinus float64
	for i := 1; i <= period; i++ {
		smTR += tr[i]
		smPlus += plusDM[i]
		smMinus += minusDM[i]
	}

	dx := nanSlice(n)
	dx[period] = directionalIndex(smTR, smPlus, smMinus)
	for i := period + 1; i < n; i++ {
		smTR = smTR - smTR/float64(period) + tr[i]
		smPlus = smPlus - smPlus/float64(period) + plusDM[i]
		smMinus = smMinus - smMinus/float64(period) + minusDM[i]
		dx[i] = directionalIndex(smTR, smPlus, smMinus)
	}

	var sum float64
	for i := period; i < 2*period; i++ {
		sum += dx[i]
	}
	prev := sum / float64(period)
	out[2*period-1] = prev
	for i := 2 * period; i < n; i++ {
		prev = (prev*float64(period-1) + dx[i]) / float64(period)
		out[i] = prev
	}
	return out
}

func directionalIndex(smTR, smPlus, smMinus float64) float64 {
	if smTR == 0 {
		return 0
	}
	plusDI := 100 * smPlus / smTR
	minusDI := 100 * smMinus / smTR
	den := plusDI + minusDI
	if den == 0 {
		return 0
	}
	return 100 * math.Abs(plusDI-minusDI) / den
}
