package vfi

import (
	"math"
	"testing"

	"signal_engine/internal/models"
)

func history(n int) models.History {
	h := make(models.History, n)
	for i := 0; i < n; i++ {
		base := 100 + float64(i%5)
		h[i] = models.Candle{
			Timestamp: int64(i) * 900_000,
			Open:      base,
			High:      base + 2,
			Low:       base - 1.5,
			Close:     base + 1,
			Volume:    10 + float64(i%3),
		}
	}
	return h
}

func TestExtractNeedsThirtyCandles(t *testing.T) {
	fv := Extract(history(29), models.Unavailable(), models.Unavailable(), nil)
	if !fv.IsZero() {
		t.Fatalf("29 candles must give zero vector, got %+v", fv)
	}
}

func TestExtractWithinClampRanges(t *testing.T) {
	h := history(60)
	// всплеск объёма и огромная свеча на конце
	h[59].Volume = 1e6
	h[59].High = h[59].Close + 500
	fv := Extract(h, models.Unavailable(), models.Unavailable(), nil)
	for name, v := range map[string]float64{
		"VSS": fv.VSS, "TBA": fv.TBA, "WI_long": fv.WILong, "WI_short": fv.WIShort, "VP": fv.VP,
	} {
		if v < 0 || v > 5 || math.IsNaN(v) {
			t.Errorf("%s out of [0,5]: %v", name, v)
		}
	}
	if fv.VSS != 5 {
		t.Errorf("volume surge must clamp to 5, got %v", fv.VSS)
	}
	if fv.HasFSD {
		t.Errorf("FSD must be absent without a comparison series")
	}
}

func TestExtractDegenerateLastCandle(t *testing.T) {
	h := history(40)
	h[39].Close = 0
	if fv := Extract(h, models.Unavailable(), models.Unavailable(), nil); !fv.IsZero() {
		t.Fatalf("non-positive close must give zero vector")
	}
}

func TestExtractFSD(t *testing.T) {
	fut := history(40)
	spot := history(40)
	for i := range spot {
		spot[i].Close -= 0.1 * float64(i%4)
	}
	fv := Extract(fut, models.Unavailable(), models.Unavailable(), spot)
	if !fv.HasFSD {
		t.Fatalf("FSD expected with comparable spot series")
	}
	if fv.FSD < 0.2 || fv.FSD > 5 {
		t.Fatalf("FSD out of [0.2,5]: %v", fv.FSD)
	}

	short := spot[:20]
	if fv := Extract(fut, models.Unavailable(), models.Unavailable(), short); fv.HasFSD {
		t.Fatalf("spot series much shorter than history must not produce FSD")
	}
}

func TestScoreStrongLong(t *testing.T) {
	fv := models.FeatureVector{VSS: 2.5, TBA: 1.5, WILong: 0.1, VP: 0.1}
	got := Score(fv, models.SideLong)
	want := 40 + 30 + 20*(1-0.1/1.2) + 10*(1-0.1/1.2)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("score: got %v want %v", got, want)
	}
	if math.Abs(got-97.5) > 0.01 {
		t.Fatalf("score must be ~97.5, got %v", got)
	}
}

func TestScoreFSDScalesAndClamps(t *testing.T) {
	fv := models.FeatureVector{VSS: 2.5, TBA: 1.5, WILong: 0.1, VP: 0.1, FSD: 5, HasFSD: true}
	if got := Score(fv, models.SideLong); got != 100 {
		t.Fatalf("score must clamp to 100, got %v", got)
	}
	fv.FSD = 0.2
	base := Score(models.FeatureVector{VSS: 2.5, TBA: 1.5, WILong: 0.1, VP: 0.1}, models.SideLong)
	if got := Score(fv, models.SideLong); math.Abs(got-base*0.6) > 1e-9 {
		t.Fatalf("FSD multiplier must clamp to 0.6: got %v", got)
	}
}

func TestScoreUsesDirectionalWick(t *testing.T) {
	fv := models.FeatureVector{VSS: 1, TBA: 0.7, WILong: 0, WIShort: 2, VP: 2}
	if l, s := Score(fv, models.SideLong), Score(fv, models.SideShort); l <= s {
		t.Fatalf("long wick 0 must score higher than short wick 2: %v vs %v", l, s)
	}
}

func TestExitSignal(t *testing.T) {
	tests := []struct {
		name string
		prev *models.FeatureVector
		now  models.FeatureVector
		side models.Side
		want string
	}{
		{
			name: "volume body weak",
			now:  models.FeatureVector{VSS: 0.5, TBA: 0.5},
			side: models.SideLong,
			want: ExitVolumeBodyWeak,
		},
		{
			name: "absorption bar",
			now:  models.FeatureVector{VSS: 1.5, TBA: 1.1, WIShort: 0.9},
			side: models.SideShort,
			want: ExitAbsorptionBar,
		},
		{
			name: "reversal footprint",
			prev: &models.FeatureVector{WILong: 0.3},
			now:  models.FeatureVector{VSS: 1.5, TBA: 0.9, WILong: 1.1},
			side: models.SideLong,
			want: ExitReversalFootprint,
		},
		{
			name: "no prev no reversal",
			now:  models.FeatureVector{VSS: 1.5, TBA: 0.9, WILong: 0.5},
			side: models.SideLong,
			want: "",
		},
		{
			name: "healthy bar",
			prev: &models.FeatureVector{WILong: 0.1},
			now:  models.FeatureVector{VSS: 2, TBA: 1.5, WILong: 0.2},
			side: models.SideLong,
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExitSignal(tt.prev, tt.now, tt.side, DefaultWickThreshold)
			if got != tt.want || ok != (tt.want != "") {
				t.Fatalf("got %q %v, want %q", got, ok, tt.want)
			}
		})
	}
}

func TestWeakRetrace(t *testing.T) {
	cfg := DefaultRetraceConfig()
	trap := models.FeatureVector{VSS: 0.8, TBA: 0.5, WILong: 1.5, VP: 0.5}
	if !WeakRetrace(trap, models.SideLong, cfg) {
		t.Fatalf("all weak conditions hold, must detect")
	}
	trap.VP = 2
	if WeakRetrace(trap, models.SideLong, cfg) {
		t.Fatalf("large vwap deviation must not be a weak retrace")
	}
}

func TestWhalePressureRounded(t *testing.T) {
	fv := models.FeatureVector{VSS: 2.5, TBA: 1.5, WILong: 0.1, VP: 0.1}
	if got := WhalePressure(fv, models.SideLong); got != 97.5 {
		t.Fatalf("got %v", got)
	}
}
