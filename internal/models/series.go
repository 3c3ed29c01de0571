package models

import "math"

// Series: временной ряд, выровненный по истории свечей.
// Позиции прогрева хранятся как NaN, но наружу отдаются только через (value, ok),
// поэтому "нет данных" и "посчитанный ноль" не путаются.
type Series struct {
	values []float64
}

// NewSeries забирает slice во владение. NaN/Inf считаются неопределёнными.
func NewSeries(values []float64) Series {
	return Series{values: values}
}

// Unavailable: пустой ряд.
func Unavailable() Series { return Series{} }

// Undefined: значение для позиций прогрева при построении ряда.
func Undefined() float64 { return math.NaN() }

func defined(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func (s Series) Len() int { return len(s.values) }

// Available: есть ли определённое последнее значение.
func (s Series) Available() bool {
	_, ok := s.Last()
	return ok
}

func (s Series) At(i int) (float64, bool) {
	if i < 0 || i >= len(s.values) {
		return 0, false
	}
	v := s.values[i]
	if !defined(v) {
		return 0, false
	}
	return v, true
}

func (s Series) Last() (float64, bool) { return s.At(len(s.values) - 1) }

// Ago(0) == Last(), Ago(1), предыдущий бар и т.д.
func (s Series) Ago(n int) (float64, bool) {
	if n < 0 {
		return 0, false
	}
	return s.At(len(s.values) - 1 - n)
}

func (s Series) LastOr(def float64) float64 {
	if v, ok := s.Last(); ok {
		return v
	}
	return def
}

func (s Series) AgoOr(n int, def float64) float64 {
	if v, ok := s.Ago(n); ok {
		return v
	}
	return def
}

// Tail: последние n определённых значений (по порядку), меньше если не хватает.
func (s Series) Tail(n int) []float64 {
	out := make([]float64, 0, n)
	for i := len(s.values) - 1; i >= 0 && len(out) < n; i-- {
		if defined(s.values[i]) {
			out = append(out, s.values[i])
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Values: копия сырых значений (NaN на позициях прогрева).
func (s Series) Values() []float64 {
	out := make([]float64, len(s.values))
	copy(out, s.values)
	return out
}
