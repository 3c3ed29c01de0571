package indicators

import "math"

type emaState struct {
	period int
	alpha  float64
	value  float64
	warmup int
}

func newEMA(period int) emaState {
	if period <= 1 {
		period = 1
	}
	return emaState{
		period: period,
		alpha:  2.0 / (float64(period) + 1),
	}
}

func (e *emaState) Update(price float64) {
	if e.warmup == 0 {
		e.value = price
		e.warmup = 1
		return
	}
	e.value = e.alpha*price + (1-e.alpha)*e.value
	if e.warmup < e.period {
		e.warmup++
	}
}

func (e *emaState) Ready() bool    { return e.warmup >= e.period }
func (e *emaState) Value() float64 { return e.value }

// EMA calculates the exponential moving average (alpha = 2/(n+1)), seeded by the
// first defined value. Positions before n defined inputs are NaN.
func EMA(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	st := newEMA(period)
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		st.Update(v)
		if st.Ready() {
			out[i] = st.Value()
		}
	}
	return out
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
