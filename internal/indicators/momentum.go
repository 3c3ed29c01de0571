package indicators

import "math"

// ROC: rate of change в процентах за period баров.
func ROC(closes []float64, period int) []float64 {
	out := nanSlice(len(closes))
	for i := period; i < len(closes); i++ {
		prev := closes[i-period]
		if prev == 0 {
			continue
		}
		out[i] = (closes[i] - prev) / prev * 100
	}
	return out
}

// MACDHist: гистограмма MACD(fast, slow, signal).
func MACDHist(closes []float64, fast, slow, signal int) []float64 {
	ef := EMA(closes, fast)
	es := EMA(closes, slow)
	macd := nanSlice(len(closes))
	for i := range closes {
		if math.IsNaN(ef[i]) || math.IsNaN(es[i]) {
			continue
		}
		macd[i] = ef[i] - es[i]
	}
	sig := EMA(macd, signal)
	out := nanSlice(len(closes))
	for i := range closes {
		if math.IsNaN(macd[i]) || math.IsNaN(sig[i]) {
			continue
		}
		out[i] = macd[i] - sig[i]
	}
	return out
}
