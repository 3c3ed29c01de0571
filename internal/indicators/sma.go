package indicators

import "math"

// SMA calculates the simple moving average over a full window.
func SMA(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 {
		return out
	}
	var sum float64
	valid := 0
	for i, v := range values {
		if math.IsNaN(v) {
			// окно с дыркой: сбрасываем
			sum, valid = 0, 0
			continue
		}
		sum += v
		valid++
		if valid > period {
			sum -= values[i-period]
			valid = period
		}
		if valid == period {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// StdDev: выборочное стандартное отклонение (ddof=1) по окну.
func StdDev(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period < 2 {
		return out
	}
	for i := period - 1; i < len(values); i++ {
		win := values[i-period+1 : i+1]
		mean, ok := meanOf(win)
		if !ok {
			continue
		}
		var ss float64
		for _, v := range win {
			d := v - mean
			ss += d * d
		}
		out[i] = math.Sqrt(ss / float64(period-1))
	}
	return out
}

func meanOf(win []float64) (float64, bool) {
	var sum float64
	for _, v := range win {
		if math.IsNaN(v) {
			return 0, false
		}
		sum += v
	}
	return sum / float64(len(win)), true
}
