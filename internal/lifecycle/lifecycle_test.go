package lifecycle

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"signal_engine/internal/guard"
	"signal_engine/internal/models"
	"signal_engine/internal/store"
)

type fakeExec struct {
	intents []Intent
	qty     float64
	entry   float64
	fail    error
}

func (f *fakeExec) Execute(_ context.Context, in Intent) (models.TradeRecord, error) {
	if f.fail != nil {
		return models.TradeRecord{}, f.fail
	}
	f.intents = append(f.intents, in)
	switch in.Kind {
	case IntentOpen:
		f.qty, f.entry = in.Qty, in.Price
	case IntentPromote:
		f.entry = (f.entry*f.qty + in.Price*in.Qty) / (f.qty + in.Qty)
		f.qty += in.Qty
	case IntentReduce:
		f.qty -= in.Qty
	case IntentClose:
		f.qty = 0
	}
	return models.TradeRecord{ID: "t-1", Symbol: in.Symbol, Side: in.Side, Qty: f.qty, Entry: f.entry, Price: in.Price}, nil
}

func (f *fakeExec) kinds() []IntentKind {
	out := make([]IntentKind, 0, len(f.intents))
	for _, in := range f.intents {
		out = append(out, in.Kind)
	}
	return out
}

func s(v ...float64) models.Series { return models.NewSeries(v) }

var t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func m15(price, atr, vwap float64) *models.Snapshot {
	c := models.Candle{Timestamp: t0.UnixMilli(), Open: price - 0.5, Close: price, High: price + 0.1, Low: price - 0.6, Volume: 10}
	return &models.Snapshot{Timeframe: models.M15, Candles: models.History{c}, Close: s(price), ATR: s(atr), VWAP: s(vwap)}
}

func m5(open, close float64) *models.Snapshot {
	c := models.Candle{Timestamp: t0.UnixMilli(), Open: open, Close: close, High: math.Max(open, close), Low: math.Min(open, close), Volume: 1}
	return &models.Snapshot{Timeframe: models.M5, Candles: models.History{c}}
}

func input(snaps models.Snapshots, side models.Side, conf float64) Input {
	return Input{
		Snapshots: snaps,
		Decision:  models.Decision{Side: side, Confidence: conf},
		Class:     models.Classification{Mode: models.ModeScalper, Macro: models.MacroSideway, Strength: models.StrengthWeak},
		Now:       t0,
	}
}

func acquire(t *testing.T) (*store.SymbolState, func()) {
	t.Helper()
	st, release, ok := store.New().Acquire("BTCUSDT")
	if !ok {
		t.Fatal("acquire")
	}
	return st, release
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestOpenProbe(t *testing.T) {
	st, release := acquire(t)
	defer release()
	ex := &fakeExec{}
	m := NewMachine(DefaultConfig(), ex)

	snaps := models.Snapshots{models.M15: m15(100, 2, 100), models.M5: m5(99, 100)}
	out, err := m.Step(context.Background(), st, input(snaps, models.SideLong, 0.2))
	if err != nil {
		t.Fatal(err)
	}
	p := st.Probe()
	if p == nil || p.Side != models.SideLong {
		t.Fatalf("no probe opened, blocked=%q", out.Blocked)
	}
	if !approx(p.SL, 97.2) || !approx(p.TP, 102.4) || !approx(p.Qty, 1) {
		t.Fatalf("levels sl=%v tp=%v qty=%v", p.SL, p.TP, p.Qty)
	}
	if len(out.Applied) != 1 || out.Applied[0].Event().Kind != models.EventOpen {
		t.Fatalf("applied %+v", out.Applied)
	}
}

func TestOpenBlocked(t *testing.T) {
	tests := []struct {
		name  string
		snaps models.Snapshots
		side  models.Side
		want  string
	}{
		{"anti-chase", models.Snapshots{models.M15: m15(100, 2, 98), models.M5: m5(99, 100)}, models.SideLong, "anti-chase"},
		{"no m5", models.Snapshots{models.M15: m15(100, 2, 100)}, models.SideLong, "no fast confirmation"},
		{"m5 against side", models.Snapshots{models.M15: m15(100, 2, 100), models.M5: m5(100, 99)}, models.SideLong, "no fast confirmation"},
		{"neutral side", models.Snapshots{models.M15: m15(100, 2, 100), models.M5: m5(99, 100)}, models.SideNeutral, ""},
		{"no atr", models.Snapshots{models.M15: m15(100, 0, 100), models.M5: m5(99, 100)}, models.SideLong, "atr unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, release := acquire(t)
			defer release()
			ex := &fakeExec{}
			out, err := NewMachine(DefaultConfig(), ex).Step(context.Background(), st, input(tt.snaps, tt.side, 0.2))
			if err != nil {
				t.Fatal(err)
			}
			if st.Position() != nil || len(ex.intents) != 0 {
				t.Fatal("must not open")
			}
			if out.Blocked != tt.want {
				t.Fatalf("blocked %q want %q", out.Blocked, tt.want)
			}
		})
	}
}

func TestAbsorptionPauseBlocksOpen(t *testing.T) {
	st, release := acquire(t)
	defer release()
	ex := &fakeExec{}
	m := NewMachine(DefaultConfig(), ex)

	bar := m15(100, 2, 100)
	bar.Candles = models.History{{Timestamp: t0.UnixMilli(), Open: 99.9, Close: 100, High: 100.1, Low: 98, Volume: 5}}
	snaps := models.Snapshots{models.M15: bar, models.M5: m5(99, 100)}

	in := input(snaps, models.SideLong, 0.2)
	if out, _ := m.Step(context.Background(), st, in); out.Blocked != "absorption pause" {
		t.Fatalf("blocked %q", out.Blocked)
	}
	in.Now = t0.Add(30 * time.Second)
	if out, _ := m.Step(context.Background(), st, in); out.Blocked != "absorption pause" {
		t.Fatalf("inside cooldown: %q", out.Blocked)
	}
	in.Now = t0.Add(time.Minute)
	if _, err := m.Step(context.Background(), st, in); err != nil || st.Probe() == nil {
		t.Fatalf("open must be allowed at T+C: %v", err)
	}
}

func aligned(price float64) models.Snapshots {
	m := m15(price, 2, price)
	m.EMA21, m.EMA50 = s(price-1), s(price-2)
	h1 := &models.Snapshot{Timeframe: models.H1, Close: s(price), EMA21: s(price - 1), EMA50: s(price - 2), ADX: s(30), BBW: s(0.2)}
	return models.Snapshots{models.M15: m, models.H1: h1, models.M5: m5(price-1, price)}
}

func TestPromote(t *testing.T) {
	st, release := acquire(t)
	defer release()
	ex := &fakeExec{}
	m := NewMachine(DefaultConfig(), ex)

	in := input(aligned(100), models.SideLong, 0.3)
	if _, err := m.Step(context.Background(), st, in); err != nil || st.Probe() == nil {
		t.Fatalf("open: %v", err)
	}
	in.Now = t0.Add(time.Minute)
	out, err := m.Step(context.Background(), st, in)
	if err != nil {
		t.Fatal(err)
	}
	full := st.Full()
	if st.Probe() != nil || full == nil {
		t.Fatalf("probe=%v full=%v", st.Probe(), full)
	}
	if !approx(full.Qty, 3) || !approx(full.SL, 96.8) || !approx(full.TP, 103.6) {
		t.Fatalf("full %+v", full)
	}
	last := out.Applied[len(out.Applied)-1]
	if last.Intent.Kind != IntentPromote || last.Event().Kind != models.EventPromote {
		t.Fatalf("last applied %+v", last.Intent)
	}
}

func TestPromoteNeverOnConflict(t *testing.T) {
	st, release := acquire(t)
	defer release()
	m := NewMachine(DefaultConfig(), &fakeExec{})

	in := input(aligned(100), models.SideLong, 0.9)
	in.Class = models.Classification{Mode: models.ModeSwing, Macro: models.MacroConflict, Strength: models.StrengthStrong}
	for i := 0; i < 3; i++ {
		in.Now = t0.Add(time.Duration(i) * time.Minute)
		if _, err := m.Step(context.Background(), st, in); err != nil {
			t.Fatal(err)
		}
	}
	if st.Full() != nil || st.Probe() == nil {
		t.Fatal("conflict must keep the probe")
	}
}

func TestPromoteReady(t *testing.T) {
	snaps := models.Snapshots{}
	d := models.Decision{Side: models.SideShort, Confidence: -0.2}
	class := models.Classification{Macro: models.MacroTrendAlign, Strength: models.StrengthNormal}
	if !PromoteReady(snaps, d, class, models.SideShort, 0.1) {
		t.Fatal("trend-aligned macro with normal regime qualifies")
	}
	class.Strength = models.StrengthWeak
	if PromoteReady(snaps, d, class, models.SideShort, 0.1) {
		t.Fatal("weak regime without tf alignment")
	}
	class.Strength = models.StrengthStrong
	d.Confidence = -0.05
	if PromoteReady(snaps, d, class, models.SideShort, 0.1) {
		t.Fatal("score below threshold")
	}
}

func TestTrailingMonotone(t *testing.T) {
	for _, side := range []models.Side{models.SideLong, models.SideShort} {
		pos := &models.Position{Side: side, Entry: 100, SL: 100 - side.Sign()*3}
		prevSL := pos.SL
		for i := 0; i < 20; i++ {
			price := 100 + side.Sign()*float64(i%5+i/5)*0.3
			atr := 1 + float64(i%3)*0.5
			if sl, ok := TrailStop(pos, price, atr, 1.2); ok {
				pos.SL = sl
			}
			if side == models.SideLong && pos.SL < prevSL || side == models.SideShort && pos.SL > prevSL {
				t.Fatalf("%s: stop loosened %v → %v", side, prevSL, pos.SL)
			}
			prevSL = pos.SL
		}
	}
}

func TestPartialBothBands(t *testing.T) {
	st, release := acquire(t)
	defer release()
	ex := &fakeExec{qty: 1, entry: 100}
	m := NewMachine(DefaultConfig(), ex)
	_ = st.OpenProbe(&models.Position{Symbol: "BTCUSDT", Side: models.SideLong, Qty: 1, Entry: 100, SL: 90, OpenedAt: t0})

	snaps := models.Snapshots{models.M15: m15(104, 2, 104)}
	if _, err := m.Step(context.Background(), st, input(snaps, models.SideLong, 0.3)); err != nil {
		t.Fatal(err)
	}
	p := st.Position()
	if !p.TP1Hit || !p.TP2Hit {
		t.Fatalf("bands %+v", p)
	}
	if !approx(p.Qty, 0.65*0.6) {
		t.Fatalf("qty %v", p.Qty)
	}
	if !approx(p.SL, 104-1.2*2) {
		t.Fatalf("trailing sl %v", p.SL)
	}
	want := []IntentKind{IntentReduce, IntentReduce, IntentModifySL}
	got := ex.kinds()
	if len(got) != len(want) {
		t.Fatalf("intents %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("intents %v", got)
		}
	}

	// повторный цикл на той же цене ничего не режет
	ex.intents = nil
	_, _ = m.Step(context.Background(), st, input(snaps, models.SideLong, 0.3))
	if len(ex.intents) != 0 {
		t.Fatalf("bands must fire once, got %v", ex.kinds())
	}
}

func TestStopLossCloses(t *testing.T) {
	st, release := acquire(t)
	defer release()
	ex := &fakeExec{qty: 1}
	m := NewMachine(DefaultConfig(), ex)
	_ = st.OpenProbe(&models.Position{Symbol: "BTCUSDT", Side: models.SideShort, Qty: 1, Entry: 100, SL: 102, TP: 95, OpenedAt: t0})

	out, err := m.Step(context.Background(), st, input(models.Snapshots{models.M15: m15(102.5, 2, 102.5)}, models.SideShort, -0.3))
	if err != nil {
		t.Fatal(err)
	}
	if st.Position() != nil {
		t.Fatal("stop must close")
	}
	ev := out.Applied[0].Event()
	if ev.Kind != models.EventClose || out.Applied[0].Intent.Code != guard.CodeStopLoss {
		t.Fatalf("event %+v", ev)
	}
}

func TestTimeExitScalper(t *testing.T) {
	st, release := acquire(t)
	defer release()
	ex := &fakeExec{qty: 1}
	m := NewMachine(DefaultConfig(), ex)
	_ = st.OpenProbe(&models.Position{Symbol: "BTCUSDT", Side: models.SideLong, Qty: 1, Entry: 100, SL: 97, TP: 110, OpenedAt: t0.Add(-11 * time.Minute)})

	out, err := m.Step(context.Background(), st, input(models.Snapshots{models.M15: m15(100.2, 2, 100)}, models.SideLong, 0.03))
	if err != nil {
		t.Fatal(err)
	}
	if st.Position() != nil || out.Exit == nil || out.Exit.Code != guard.CodeTimeExit {
		t.Fatalf("exit %+v", out.Exit)
	}
	if out.Applied[0].Event().Kind != models.EventGuardedExit {
		t.Fatal("time exit is a guarded exit")
	}
}

func TestScoreWeakCloses(t *testing.T) {
	st, release := acquire(t)
	defer release()
	ex := &fakeExec{}
	m := NewMachine(DefaultConfig(), ex)
	snaps := models.Snapshots{models.M15: m15(100, 2, 100), models.M5: m5(99, 100)}

	if _, err := m.Step(context.Background(), st, input(snaps, models.SideLong, 0.5)); err != nil || st.Probe() == nil {
		t.Fatal("open")
	}
	out, err := m.Step(context.Background(), st, input(snaps, models.SideLong, 0.2))
	if err != nil {
		t.Fatal(err)
	}
	if st.Position() != nil || out.Exit == nil || out.Exit.Code != guard.CodeScoreWeak {
		t.Fatalf("exit %+v", out.Exit)
	}
}

func TestScoreWeakWithoutPositionSkipsOpen(t *testing.T) {
	st, release := acquire(t)
	defer release()
	ex := &fakeExec{}
	m := NewMachine(DefaultConfig(), ex)
	snaps := models.Snapshots{models.M15: m15(100, 2, 100), models.M5: m5(99, 100)}
	st.Guard.Monitor = &models.SignalMonitor{Side: models.SideLong, OpenedAt: t0, Peak: 0.6}

	out, err := m.Step(context.Background(), st, input(snaps, models.SideLong, 0.2))
	if err != nil {
		t.Fatal(err)
	}
	if out.Exit == nil || out.Exit.Code != guard.CodeScoreWeak {
		t.Fatalf("exit %+v", out.Exit)
	}
	if st.Position() != nil || len(ex.intents) != 0 || len(out.Applied) != 0 {
		t.Fatalf("weak signal must not open, intents %v", ex.kinds())
	}
	if out.Blocked != guard.CodeScoreWeak {
		t.Fatalf("blocked = %q", out.Blocked)
	}

	// следующий цикл без просадки открывает как обычно
	if _, err := m.Step(context.Background(), st, input(snaps, models.SideLong, 0.2)); err != nil || st.Probe() == nil {
		t.Fatalf("open after reset: %v", err)
	}
}

func TestVFIExitReducesOnce(t *testing.T) {
	st, release := acquire(t)
	defer release()
	ex := &fakeExec{qty: 2}
	m := NewMachine(DefaultConfig(), ex)
	_ = st.OpenProbe(&models.Position{Symbol: "BTCUSDT", Side: models.SideLong, Qty: 2, Entry: 100, SL: 95, TP: 110, OpenedAt: t0})

	in := input(models.Snapshots{models.M15: m15(100.2, 2, 100)}, models.SideLong, 0.2)
	in.Features = models.FeatureVector{VSS: 0.5, TBA: 0.3, VP: 0.2}
	if _, err := m.Step(context.Background(), st, in); err != nil {
		t.Fatal(err)
	}
	p := st.Position()
	if p == nil || !approx(p.Qty, 1) || !p.VFIReduced {
		t.Fatalf("position %+v", p)
	}
	_, _ = m.Step(context.Background(), st, in)
	if !approx(st.Position().Qty, 1) {
		t.Fatalf("second vfi exit must not reduce, qty %v", st.Position().Qty)
	}
}

func TestExecutorErrorLeavesState(t *testing.T) {
	st, release := acquire(t)
	defer release()
	m := NewMachine(DefaultConfig(), &fakeExec{fail: errors.New("book offline")})
	snaps := models.Snapshots{models.M15: m15(100, 2, 100), models.M5: m5(99, 100)}
	if _, err := m.Step(context.Background(), st, input(snaps, models.SideLong, 0.2)); err == nil {
		t.Fatal("expected error")
	}
	if st.Position() != nil {
		t.Fatal("failed open must not register a position")
	}
}

func TestParamsFor(t *testing.T) {
	cfg := DefaultConfig()
	sc := cfg.ParamsFor(models.ModeScalper, models.MacroSideway)
	if sc.Trailing != 1.2 || sc.ProbeMaxAge != 10*time.Minute || sc.Partial1 != 0.35 || sc.Partial2 != 0.40 {
		t.Fatalf("scalper %+v", sc)
	}
	sw := cfg.ParamsFor(models.ModeSwing, models.MacroConflict)
	if sw.Trailing != 1.0 || sw.ProbeMaxAge != 40*time.Minute || sw.Partial1 != 0.25 {
		t.Fatalf("swing %+v", sw)
	}
	if !approx(sw.ProbeSL, 1.4*1.1) || !approx(sw.ProbeTP, 1.2*1.15*0.9) || !approx(sw.PromoteTP, 1.8*1.05) {
		t.Fatalf("swing conflict %+v", sw)
	}
	cfg.TimeExit.MaxAge = 10 * time.Minute
	if got := cfg.ParamsFor(models.ModeScalper, "").ProbeMaxAge; got != 8*time.Minute {
		t.Fatalf("scalper floor %v", got)
	}
}

func TestParamsForConfiguredModes(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		mode   models.Mode
		macro  models.MacroRegime
		check  func(Params) bool
	}{
		{"swing partials", func(c *Config) { c.Modes.Swing.Partial1 = 0.5 }, models.ModeSwing, models.MacroSideway,
			func(p Params) bool { return p.Partial1 == 0.5 && p.Partial2 == 0.30 }},
		{"swing probe tp", func(c *Config) { c.Modes.Swing.ProbeTPMult = 2 }, models.ModeSwing, models.MacroSideway,
			func(p Params) bool { return approx(p.ProbeTP, 1.2*2) }},
		{"swing max age", func(c *Config) { c.Modes.Swing.MaxAgeMult = 3 }, models.ModeSwing, models.MacroSideway,
			func(p Params) bool { return p.ProbeMaxAge == 60*time.Minute }},
		{"swing trailing cap", func(c *Config) { c.Modes.Swing.TrailingCap = 0.7 }, models.ModeSwing, models.MacroSideway,
			func(p Params) bool { return p.Trailing == 0.7 }},
		{"scalper floor", func(c *Config) { c.Modes.Scalper.MinMaxAge = 15 * time.Minute }, models.ModeScalper, models.MacroSideway,
			func(p Params) bool { return p.ProbeMaxAge == 15*time.Minute }},
		{"scalper trailing", func(c *Config) { c.Modes.Scalper.TrailingFloor = 2 }, models.ModeScalper, models.MacroSideway,
			func(p Params) bool { return p.Trailing == 2 }},
		{"scalper partials", func(c *Config) { c.Modes.Scalper.Partial2 = 0.9 }, models.ModeScalper, models.MacroSideway,
			func(p Params) bool { return p.Partial1 == 0.35 && p.Partial2 == 0.9 }},
		{"conflict sl", func(c *Config) { c.Modes.Conflict.ProbeSLMult = 2 }, models.ModeScalper, models.MacroConflict,
			func(p Params) bool { return approx(p.ProbeSL, 1.4*2) && approx(p.ProbeTP, 1.2*0.9) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if p := cfg.ParamsFor(tc.mode, tc.macro); !tc.check(p) {
				t.Fatalf("params %+v", p)
			}
		})
	}
}
