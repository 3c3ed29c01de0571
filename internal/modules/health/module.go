package health

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"signal_engine/internal/metrics"
	"signal_engine/internal/modules/health/service"
	"signal_engine/internal/runner"
	"signal_engine/internal/store"
	"signal_engine/pkg/logger"
)

// Config: MaxFailedTicks задаёт, сколько неудачных тиков подряд терпит /readyz (0 = не проверять);
// после StaleAfter без тиков /healthz отдаёт stale=true.
type Config struct {
	Addr           string        `yaml:"addr"` // например ":8080"
	MaxFailedTicks int           `yaml:"max_failed_ticks"`
	StaleAfter     time.Duration `yaml:"stale_after"`
}

func DefaultConfig() Config {
	return Config{Addr: ":8080", MaxFailedTicks: 5, StaleAfter: 5 * time.Minute}
}

// Book: сколько позиций открыто.
type Book interface {
	OpenCount() int
}

func NewMux(cfg Config, state *service.State, book Book) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		// liveness: процесс жив
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		// readiness: прогрев закончен и тики не падают подряд
		if !state.Ready() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		if cfg.MaxFailedTicks > 0 && state.FailedTicks() >= cfg.MaxFailedTicks {
			http.Error(w, "ticks failing", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		last := state.LastTick()
		var lastUnix int64
		if !last.At.IsZero() {
			lastUnix = last.At.Unix()
		}
		resp := map[string]any{
			"ready":         state.Ready(),
			"wsConnected":   state.WSConnected(),
			"uptimeSec":     int64(state.Uptime().Seconds()),
			"openPositions": book.OpenCount(),
			"failedTicks":   state.FailedTicks(),
			"stale":         cfg.StaleAfter > 0 && state.Stale(time.Now(), cfg.StaleAfter),
			"lastTick":      last,
			"lastTickUnix":  lastUnix,
		}
		b, err := sonic.Marshal(resp)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(b)
	})

	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func RunHTTP(lc fx.Lifecycle, cfg Config, mux *http.ServeMux) {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				return err
			}
			logger.Info("[HEALTH] listening on %s", cfg.Addr)
			go func() { _ = srv.Serve(ln) }()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("health",
		fx.Provide(
			service.NewState,
			func(s *store.Store) Book { return s },
			func(s *service.State) runner.TickObserver { return s },
			NewMux,
		),
		fx.Invoke(func() { metrics.Register() }),
		fx.Invoke(RunHTTP),
	)
}
