package indicators

import (
	"math"
	"testing"

	"signal_engine/internal/models"
)

func makeHistory(n int, f func(i int) (o, h, l, c, v float64)) []models.Candle {
	out := make([]models.Candle, n)
	for i := 0; i < n; i++ {
		o, h, l, c, v := f(i)
		out[i] = models.Candle{Timestamp: int64(i) * 60_000, Open: o, High: h, Low: l, Close: c, Volume: v}
	}
	return out
}

func trending(n int) []models.Candle {
	return makeHistory(n, func(i int) (float64, float64, float64, float64, float64) {
		base := 100 + float64(i)
		return base, base + 1.5, base - 0.5, base + 1, 10
	})
}

func TestComputeEmptyHistory(t *testing.T) {
	snap := Compute(models.H1, nil)
	if snap.Available() {
		t.Fatalf("empty history must give unavailable snapshot")
	}
	for name, s := range map[string]models.Series{"ema21": snap.EMA21, "atr": snap.ATR, "rsi": snap.RSI, "vwap": snap.VWAP} {
		if s.Available() {
			t.Errorf("%s must be unavailable", name)
		}
	}
}

func TestComputeShortHistoryIsUnavailableNotZero(t *testing.T) {
	snap := Compute(models.H1, trending(13))
	cases := map[string]models.Series{
		"ema21":  snap.EMA21,
		"ema200": snap.EMA200,
		"atr":    snap.ATR,
		"adx":    snap.ADX,
		"bbw":    snap.BBW,
		"rsi":    snap.RSI,
		"vol_ma": snap.VolMA20,
	}
	for name, s := range cases {
		if s.Available() {
			v, _ := s.Last()
			t.Errorf("%s must be unavailable on 13 bars, got %v", name, v)
		}
	}
	if !snap.VWAP.Available() {
		t.Errorf("vwap has no window and must be available")
	}
}

func TestComputeWindowsBecomeDefined(t *testing.T) {
	snap := Compute(models.H1, trending(60))
	for name, s := range map[string]models.Series{
		"ema21": snap.EMA21, "ema50": snap.EMA50, "atr": snap.ATR, "adx": snap.ADX,
		"bbw": snap.BBW, "rsi": snap.RSI, "vol_ma20": snap.VolMA20, "vol_ma50": snap.VolMA50,
	} {
		v, ok := s.Last()
		if !ok || math.IsNaN(v) {
			t.Errorf("%s must be defined on 60 bars", name)
		}
	}
	if snap.EMA200.Available() {
		t.Errorf("ema200 must stay unavailable on 60 bars")
	}
}

func TestEMAConstant(t *testing.T) {
	vals := []float64{5, 5, 5, 5, 5}
	out := EMA(vals, 3)
	if !math.IsNaN(out[1]) {
		t.Fatalf("ema must be undefined before the window: %v", out)
	}
	if out[4] != 5 {
		t.Fatalf("ema of constant: got %v", out[4])
	}
}

func TestEMAAlpha(t *testing.T) {
	out := EMA([]float64{10, 20}, 1)
	// alpha = 2/(1+1) = 1 → следует за ценой
	if out[1] != 20 {
		t.Fatalf("got %v", out[1])
	}
	out = EMA([]float64{10, 20, 20}, 3)
	// alpha 0.5: 10 → 15 → 17.5
	if out[2] != 17.5 {
		t.Fatalf("got %v", out[2])
	}
}

func TestATRWilder(t *testing.T) {
	h := makeHistory(20, func(i int) (float64, float64, float64, float64, float64) {
		return 100, 102, 98, 100, 1
	})
	out := ATR(models.NormalizeHistory(h), 14)
	if !math.IsNaN(out[12]) {
		t.Fatalf("atr must be undefined before 14 bars")
	}
	if math.Abs(out[19]-4) > 1e-9 {
		t.Fatalf("atr of constant range 4: got %v", out[19])
	}
}

func TestRSIZeroLossIsFifty(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	out := RSI(closes, 14)
	if out[29] != 50 {
		t.Fatalf("rsi with zero loss must be 50, got %v", out[29])
	}
}

func TestRSIMixed(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		if i%2 == 0 {
			closes[i] = 100
		} else {
			closes[i] = 101
		}
	}
	out := RSI(closes, 14)
	v := out[29]
	if v <= 0 || v >= 100 {
		t.Fatalf("rsi out of range: %v", v)
	}
}

func TestADXFlatIsZero(t *testing.T) {
	h := makeHistory(40, func(i int) (float64, float64, float64, float64, float64) {
		return 100, 100, 100, 100, 1
	})
	out := ADX(models.NormalizeHistory(h), 14)
	if out[39] != 0 {
		t.Fatalf("adx with zero range must be 0, got %v", out[39])
	}
}

func TestADXTrendIsStrong(t *testing.T) {
	out := ADX(models.NormalizeHistory(trending(60)), 14)
	if out[59] < 50 {
		t.Fatalf("steady trend must give strong adx, got %v", out[59])
	}
}

func TestBollingerWidth(t *testing.T) {
	flat := make([]float64, 25)
	for i := range flat {
		flat[i] = 10
	}
	out := BollingerWidth(flat, 20, 2)
	if out[24] != 0 {
		t.Fatalf("flat price width must be 0, got %v", out[24])
	}
	zero := make([]float64, 25)
	out = BollingerWidth(zero, 20, 2)
	if !math.IsNaN(out[24]) {
		t.Fatalf("zero mean must be undefined, got %v", out[24])
	}
}

func TestVWAPForwardFill(t *testing.T) {
	h := models.History{
		{Timestamp: 1, Open: 10, High: 10, Low: 10, Close: 10, Volume: 0},
		{Timestamp: 2, Open: 10, High: 12, Low: 9, Close: 12, Volume: 3},
		{Timestamp: 3, Open: 12, High: 30, Low: 12, Close: 30, Volume: 0},
	}
	out := VWAP(h)
	if !math.IsNaN(out[0]) {
		t.Fatalf("vwap before any volume must be undefined")
	}
	if out[1] != 11 {
		t.Fatalf("vwap: got %v", out[1])
	}
	if out[2] != out[1] {
		t.Fatalf("zero-volume bar must forward-fill: %v vs %v", out[2], out[1])
	}
}
