package models

import (
	"sort"
	"time"
)

// Snapshot: индикаторы одного таймфрейма.
type Snapshot struct {
	Timeframe Timeframe
	Candles   History

	Close  Series
	Open   Series
	High   Series
	Low    Series
	Volume Series

	EMA9     Series
	EMA21    Series
	EMA50    Series
	EMA200   Series
	ATR      Series
	ADX      Series
	BBW      Series
	RSI      Series
	VWAP     Series
	VolMA20  Series
	VolMA50  Series
	ROC      Series
	MACDHist Series
}

// EmptySnapshot: снапшот без данных, все ряды unavailable.
func EmptySnapshot(tf Timeframe) *Snapshot {
	return &Snapshot{Timeframe: tf}
}

func (s *Snapshot) Available() bool { return s != nil && len(s.Candles) > 0 }

func (s *Snapshot) LastCandle() (Candle, bool) {
	if s == nil {
		return Candle{}, false
	}
	return s.Candles.Last()
}

func (s *Snapshot) LastTimestamp() (int64, bool) {
	c, ok := s.LastCandle()
	if !ok {
		return 0, false
	}
	return c.Timestamp, true
}

// Age: возраст последней свечи; ok=false если данных нет.
func (s *Snapshot) Age(now time.Time) (time.Duration, bool) {
	ts, ok := s.LastTimestamp()
	if !ok {
		return 0, false
	}
	return now.Sub(time.UnixMilli(ts)), true
}

// BBWPercentile: перцентильный ранг последней ширины полос в окне window.
func (s *Snapshot) BBWPercentile(window int) (float64, bool) {
	if s == nil {
		return 0, false
	}
	last, ok := s.BBW.Last()
	if !ok {
		return 0, false
	}
	tail := s.BBW.Tail(window)
	if len(tail) < 2 {
		return 0, false
	}
	sorted := append([]float64(nil), tail...)
	sort.Float64s(sorted)
	below := sort.SearchFloat64s(sorted, last)
	return float64(below) / float64(len(sorted)-1), true
}

// ATRSlope: ATR сейчас минус ATR lookback баров назад.
func (s *Snapshot) ATRSlope(lookback int) (float64, bool) {
	if s == nil {
		return 0, false
	}
	now, ok := s.ATR.Last()
	if !ok {
		return 0, false
	}
	prev, ok := s.ATR.Ago(lookback)
	if !ok {
		return 0, false
	}
	return now - prev, true
}

// Snapshots: снапшоты по таймфреймам.
type Snapshots map[Timeframe]*Snapshot

// Get никогда не возвращает nil.
func (s Snapshots) Get(tf Timeframe) *Snapshot {
	if s != nil {
		if snap, ok := s[tf]; ok && snap != nil {
			return snap
		}
	}
	return EmptySnapshot(tf)
}
