package indicators

import (
	"math"

	"signal_engine/internal/models"
)

// VWAP: накопительный (typical price × volume) / накопленный объём.
// Пока объёма нет, значение не определено; периоды с нулевым объёмом
// протягивают предыдущее значение.
func VWAP(h models.History) []float64 {
	out := nanSlice(len(h))
	var cumPV, cumV float64
	last := math.NaN()
	for i, c := range h {
		if c.Volume > 0 {
			tp := (c.High + c.Low + c.Close) / 3.0
			cumPV += tp * c.Volume
			cumV += c.Volume
		}
		if cumV > 0 {
			last = cumPV / cumV
		}
		out[i] = last
	}
	return out
}
