package health

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"

	"signal_engine/internal/models"
	"signal_engine/internal/modules/health/service"
)

type fakeBook int

func (f fakeBook) OpenCount() int { return int(f) }

func get(t *testing.T, mux *http.ServeMux, path string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	b, _ := io.ReadAll(rec.Body)
	return rec.Code, string(b)
}

func TestReadyz(t *testing.T) {
	st := service.NewState()
	mux := NewMux(DefaultConfig(), st, fakeBook(0))

	if code, _ := get(t, mux, "/readyz"); code != http.StatusServiceUnavailable {
		t.Fatalf("readyz before warmup = %d", code)
	}
	st.SetReady(true)
	if code, _ := get(t, mux, "/readyz"); code != http.StatusOK {
		t.Fatalf("readyz after warmup = %d", code)
	}
}

func TestHealthzJSON(t *testing.T) {
	st := service.NewState()
	st.ObserveTick(time.Unix(1700000000, 0), []models.CycleResult{
		{Symbol: "BTCUSDT", Status: models.StatusOK},
		{Symbol: "ETHUSDT", Status: models.StatusError, Err: "no market data"},
	})
	st.SetWSConnected(true)
	mux := NewMux(DefaultConfig(), st, fakeBook(3))

	code, body := get(t, mux, "/healthz")
	if code != http.StatusOK {
		t.Fatalf("healthz = %d", code)
	}
	var resp struct {
		WS       bool  `json:"wsConnected"`
		Open     int   `json:"openPositions"`
		LastTick int64 `json:"lastTickUnix"`
		Tick     struct {
			Errors map[string]string `json:"errors"`
		} `json:"lastTick"`
	}
	if err := sonic.UnmarshalString(body, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.WS || resp.Open != 3 || resp.LastTick != 1700000000 {
		t.Fatalf("unexpected health: %+v", resp)
	}
	if resp.Tick.Errors["ETHUSDT"] != "no market data" {
		t.Fatalf("tick errors: %v", resp.Tick.Errors)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	mux := NewMux(DefaultConfig(), service.NewState(), fakeBook(0))
	code, body := get(t, mux, "/metrics")
	if code != http.StatusOK || !strings.Contains(body, "go_goroutines") {
		t.Fatalf("metrics endpoint: %d", code)
	}
}

func TestReadyzFailedTicks(t *testing.T) {
	st := service.NewState()
	st.SetReady(true)
	mux := NewMux(Config{MaxFailedTicks: 2}, st, fakeBook(0))

	bad := []models.CycleResult{{Symbol: "BTCUSDT", Status: models.StatusError, Err: "tick timeout"}}
	st.ObserveTick(time.Now(), bad)
	if code, _ := get(t, mux, "/readyz"); code != http.StatusOK {
		t.Fatalf("one failed tick should be tolerated, got %d", code)
	}
	st.ObserveTick(time.Now(), bad)
	if code, _ := get(t, mux, "/readyz"); code != http.StatusServiceUnavailable {
		t.Fatalf("two failed ticks = %d", code)
	}

	// один OK сбрасывает счётчик
	st.ObserveTick(time.Now(), []models.CycleResult{{Symbol: "BTCUSDT", Status: models.StatusOK}})
	if st.FailedTicks() != 0 {
		t.Fatalf("failed ticks not reset: %d", st.FailedTicks())
	}
	if code, _ := get(t, mux, "/readyz"); code != http.StatusOK {
		t.Fatalf("readyz after recovery = %d", code)
	}
}

func TestStateStale(t *testing.T) {
	st := service.NewState()
	now := time.Unix(1700000000, 0)
	if !st.Stale(now, time.Minute) {
		t.Fatal("no ticks yet must be stale")
	}
	st.ObserveTick(now.Add(-30*time.Second), nil)
	if st.Stale(now, time.Minute) {
		t.Fatal("30s old tick is fresh")
	}
	if !st.Stale(now, 10*time.Second) {
		t.Fatal("30s old tick is stale for 10s budget")
	}
}
