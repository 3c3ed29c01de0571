package runner

import (
	"time"

	"signal_engine/internal/lifecycle"
	"signal_engine/internal/vote"
)

type LagGuardConfig struct {
	Enabled  bool          `yaml:"enabled"`
	H1MaxAge time.Duration `yaml:"h1_max_age"`
	H4MaxAge time.Duration `yaml:"h4_max_age"`
	// SkipFlow: при |flow| не ниже порога устаревшие данные не нейтрализуют решение
	SkipFlow float64 `yaml:"skip_if_vfi_flow_over"`
}

type TriggerConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Bump      float64       `yaml:"bump"`
	Lookback  int           `yaml:"lookback"`
	MinBBWM15 float64       `yaml:"min_bbw_m15"`
	MinADXH1  float64       `yaml:"min_adx_h1"`
	MinGap    time.Duration `yaml:"min_gap"`
}

type Config struct {
	Symbols        []string      `yaml:"symbols" validate:"min=1,dive,required"`
	Interval       time.Duration `yaml:"interval" validate:"gt=0"`
	Concurrency    int           `yaml:"concurrency" validate:"gte=1"`
	NotifyDecision bool          `yaml:"notify_decision"`

	LagGuard  LagGuardConfig   `yaml:"lag_guard"`
	M5Trigger TriggerConfig    `yaml:"m5_trigger"`
	Vote      vote.Config      `yaml:"voter"`
	Lifecycle lifecycle.Config `yaml:"lifecycle"`
}

func DefaultConfig() Config {
	return Config{
		Symbols:        []string{"BTCUSDT"},
		Interval:       60 * time.Second,
		Concurrency:    8,
		NotifyDecision: true,
		LagGuard: LagGuardConfig{
			Enabled:  true,
			H1MaxAge: 7200 * time.Second,
			H4MaxAge: 21600 * time.Second,
			SkipFlow: 0.2,
		},
		M5Trigger: TriggerConfig{
			Enabled:   true,
			Bump:      0.03,
			Lookback:  3,
			MinBBWM15: 0.08,
			MinADXH1:  14,
			MinGap:    900 * time.Second,
		},
		Vote:      vote.DefaultConfig(),
		Lifecycle: lifecycle.DefaultConfig(),
	}
}

// TickTimeout: таймаут целого тика: max(15s, 2·interval).
func TickTimeout(interval time.Duration) time.Duration {
	if t := 2 * interval; t > 15*time.Second {
		return t
	}
	return 15 * time.Second
}
