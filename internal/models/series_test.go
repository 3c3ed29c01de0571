package models

import (
	"math"
	"testing"
	"time"
)

func TestSeriesUnavailable(t *testing.T) {
	s := Unavailable()
	if s.Available() {
		t.Fatalf("empty series must be unavailable")
	}
	if _, ok := s.Last(); ok {
		t.Fatalf("Last on empty series must be !ok")
	}
	if got := s.LastOr(-1); got != -1 {
		t.Fatalf("LastOr default: got %v", got)
	}
}

func TestSeriesWarmupIsNotZero(t *testing.T) {
	s := NewSeries([]float64{math.NaN(), math.NaN(), 3, 4})
	if _, ok := s.At(0); ok {
		t.Fatalf("warm-up position must be undefined")
	}
	if v, ok := s.Ago(1); !ok || v != 3 {
		t.Fatalf("Ago(1): got %v %v", v, ok)
	}
	if _, ok := s.Ago(2); ok {
		t.Fatalf("Ago(2) hits warm-up, must be !ok")
	}
	if got := s.Tail(10); len(got) != 2 || got[0] != 3 || got[1] != 4 {
		t.Fatalf("Tail: %v", got)
	}
}

func TestNormalizeHistory(t *testing.T) {
	in := []Candle{
		{Timestamp: 3, Open: 1, High: 2, Low: 1, Close: 2, Volume: 1},
		{Timestamp: 1, Open: 1, High: 2, Low: 1, Close: 1.5, Volume: 1},
		{Timestamp: 2, Open: 1, High: 0.5, Low: 1, Close: 1, Volume: 1}, // high < low
		{Timestamp: 4, Open: 1, High: 2, Low: 1, Close: 0, Volume: 1},   // close <= 0
		{Timestamp: 3, Open: 1, High: 3, Low: 1, Close: 2.5, Volume: 1}, // duplicate, wins
	}
	h := NormalizeHistory(in)
	if len(h) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(h))
	}
	if h[0].Timestamp != 1 || h[1].Timestamp != 3 {
		t.Fatalf("order broken: %+v", h)
	}
	if h[1].Close != 2.5 {
		t.Fatalf("duplicate must keep last write, got %v", h[1].Close)
	}
}

func TestCandleWicks(t *testing.T) {
	up := Candle{Open: 10, High: 13, Low: 8, Close: 12}
	if up.UpperWick() != 1 || up.LowerWick() != 2 {
		t.Fatalf("up candle wicks: %v %v", up.UpperWick(), up.LowerWick())
	}
	down := Candle{Open: 12, High: 13, Low: 8, Close: 10}
	if down.UpperWick() != 1 || down.LowerWick() != 2 {
		t.Fatalf("down candle wicks: %v %v", down.UpperWick(), down.LowerWick())
	}
}

func TestBBWPercentile(t *testing.T) {
	s := &Snapshot{BBW: NewSeries([]float64{0.1, 0.2, 0.3, 0.4, 0.5})}
	p, ok := s.BBWPercentile(100)
	if !ok || p != 1 {
		t.Fatalf("max width must rank 1, got %v %v", p, ok)
	}
	s.BBW = NewSeries([]float64{0.5, 0.4, 0.3, 0.2, 0.1})
	p, _ = s.BBWPercentile(100)
	if p != 0 {
		t.Fatalf("min width must rank 0, got %v", p)
	}
}

func TestSnapshotsGetNeverNil(t *testing.T) {
	var snaps Snapshots
	if snaps.Get(H4) == nil {
		t.Fatalf("Get must never return nil")
	}
	if snaps.Get(H4).Available() {
		t.Fatalf("missing timeframe must be unavailable")
	}
}

func TestSnapshotAgeMillis(t *testing.T) {
	// раннее время в миллисекундах не должно приниматься за секунды
	const ts = int64(5_000_000_000)
	s := &Snapshot{Candles: History{{Timestamp: ts, Open: 1, High: 1, Low: 1, Close: 1}}}
	age, ok := s.Age(time.UnixMilli(ts).Add(time.Minute))
	if !ok || age != time.Minute {
		t.Fatalf("Age = %s/%v, want 1m", age, ok)
	}
	if _, ok := (&Snapshot{}).Age(time.Now()); ok {
		t.Fatalf("empty snapshot has no age")
	}
}
