package indicators

import (
	"math"

	"signal_engine/internal/models"
)

// TrueRange = max(|high-low|, |high-prevClose|, |low-prevClose|).
// Для первой свечи prevClose нет, берём high-low.
func TrueRange(h models.History) []float64 {
	out := make([]float64, len(h))
	for i, c := range h {
		tr := math.Abs(c.High - c.Low)
		if i > 0 {
			pc := h[i-1].Close
			tr = math.Max(tr, math.Max(math.Abs(c.High-pc), math.Abs(c.Low-pc)))
		}
		out[i] = tr
	}
	return out
}

// wilder: сглаживание Уайлдера: затравка SMA первых n значений, далее (prev*(n-1)+x)/n.
func wilder(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 {
		return out
	}
	start := -1
	for i, v := range values {
		if !math.IsNaN(v) {
			start = i
			break
		}
	}
	if start < 0 || len(values)-start < period {
		return out
	}
	var sum float64
	for i := start; i < start+period; i++ {
		sum += values[i]
	}
	prev := sum / float64(period)
	out[start+period-1] = prev
	for i := start + period; i < len(values); i++ {
		prev = (prev*float64(period-1) + values[i]) / float64(period)
		out[i] = prev
	}
	return out
}

// ATR calculates Wilder's average true range.
func ATR(h models.History, period int) []float64 {
	return wilder(TrueRange(h), period)
}
