package indicators

import "math"

// BollingerWidth calculates (upper-lower)/middle for SMA(period) ± k·σ.
// При нулевой средней значение не определено.
func BollingerWidth(closes []float64, period int, k float64) []float64 {
	ma := SMA(closes, period)
	sd := StdDev(closes, period)
	out := nanSlice(len(closes))
	for i := range closes {
		if math.IsNaN(ma[i]) || math.IsNaN(sd[i]) || ma[i] == 0 {
			continue
		}
		upper := ma[i] + k*sd[i]
		lower := ma[i] - k*sd[i]
		out[i] = (upper - lower) / ma[i]
	}
	return out
}
