package lifecycle

import (
	"time"

	"signal_engine/internal/guard"
	"signal_engine/internal/vfi"
)

type ProbeConfig struct {
	Enabled          bool    `yaml:"enabled"`
	SizeQuote        float64 `yaml:"size_quote" validate:"gt=0"`
	SLATR            float64 `yaml:"sl_atr_mult" validate:"gt=0"`
	TPATR            float64 `yaml:"tp_atr_mult" validate:"gt=0"`
	AntiChaseATR     float64 `yaml:"anti_chase_atr" validate:"gte=0"`
	BlockWeakRetrace bool    `yaml:"block_weak_retrace"`
}

type PromoteConfig struct {
	Enabled  bool    `yaml:"enabled"`
	AddQuote float64 `yaml:"add_size_quote" validate:"gte=0"`
	SLATR    float64 `yaml:"sl_atr_mult" validate:"gt=0"`
	TPATR    float64 `yaml:"tp_atr_mult" validate:"gt=0"`
	MinScore float64 `yaml:"min_score" validate:"gte=0"`
}

type ManageConfig struct {
	Enabled         bool    `yaml:"enabled"`
	TrailingEnabled bool    `yaml:"trailing_enabled"`
	TrailingATR     float64 `yaml:"trailing_atr_mult" validate:"gt=0"`
	TP1ATR          float64 `yaml:"tp1_atr_mult" validate:"gt=0"`
	TP2ATR          float64 `yaml:"tp2_atr_mult" validate:"gtfield=TP1ATR"`
}

type TimeExitConfig struct {
	Enabled bool          `yaml:"enabled"`
	MaxAge  time.Duration `yaml:"max_age"`
}

type VFIExitConfig struct {
	Enabled       bool    `yaml:"enabled"`
	WickThreshold float64 `yaml:"wick_threshold" validate:"gt=0"`
}

// SwingConfig: поправки режима SWING к базовым множителям.
// TrailingCap: трейлинг не шире этого множителя ATR.
type SwingConfig struct {
	ProbeTPMult   float64 `yaml:"probe_tp_mult" validate:"gt=0"`
	PromoteTPMult float64 `yaml:"promote_tp_mult" validate:"gt=0"`
	MaxAgeMult    float64 `yaml:"max_age_mult" validate:"gt=0"`
	TrailingCap   float64 `yaml:"trailing_cap" validate:"gt=0"`
	Partial1      float64 `yaml:"partial1" validate:"gt=0,lte=1"`
	Partial2      float64 `yaml:"partial2" validate:"gt=0,lte=1"`
}

// ScalperConfig: поправки режима SCALPER.
// TrailingFloor: трейлинг не уже этого множителя ATR.
type ScalperConfig struct {
	MaxAgeDiv     float64       `yaml:"max_age_div" validate:"gt=0"`
	MinMaxAge     time.Duration `yaml:"min_max_age"`
	TrailingFloor float64       `yaml:"trailing_floor" validate:"gt=0"`
	Partial1      float64       `yaml:"partial1" validate:"gt=0,lte=1"`
	Partial2      float64       `yaml:"partial2" validate:"gt=0,lte=1"`
}

// ConflictConfig: множители пробы при MACRO_CONFLICT.
type ConflictConfig struct {
	ProbeSLMult float64 `yaml:"probe_sl_mult" validate:"gt=0"`
	ProbeTPMult float64 `yaml:"probe_tp_mult" validate:"gt=0"`
}

type ModeConfig struct {
	Swing    SwingConfig    `yaml:"swing"`
	Scalper  ScalperConfig  `yaml:"scalper"`
	Conflict ConflictConfig `yaml:"macro_conflict"`
}

// Config: параметры жизненного цикла позиции.
type Config struct {
	Probe      ProbeConfig            `yaml:"probe"`
	Promote    PromoteConfig          `yaml:"promote"`
	Manage     ManageConfig           `yaml:"manage"`
	TimeExit   TimeExitConfig         `yaml:"time_exit"`
	VFIExit    VFIExitConfig          `yaml:"vfi_exit"`
	Exits      guard.ExitConfig       `yaml:"exits"`
	Absorption guard.AbsorptionConfig `yaml:"absorption"`
	Monitor    guard.MonitorConfig    `yaml:"monitor"`
	Retrace    vfi.RetraceConfig      `yaml:"retrace"`
	Modes      ModeConfig             `yaml:"modes"`
}

func DefaultConfig() Config {
	return Config{
		Probe: ProbeConfig{
			Enabled:      true,
			SizeQuote:    100,
			SLATR:        1.4,
			TPATR:        1.2,
			AntiChaseATR: 0.5,
		},
		Promote: PromoteConfig{
			Enabled:  true,
			AddQuote: 200,
			SLATR:    1.6,
			TPATR:    1.8,
			MinScore: 0.10,
		},
		Manage: ManageConfig{
			Enabled:         true,
			TrailingEnabled: true,
			TrailingATR:     1.2,
			TP1ATR:          0.8,
			TP2ATR:          1.6,
		},
		TimeExit:   TimeExitConfig{Enabled: true, MaxAge: 20 * time.Minute},
		VFIExit:    VFIExitConfig{Enabled: true, WickThreshold: vfi.DefaultWickThreshold},
		Exits:      guard.DefaultExitConfig(),
		Absorption: guard.DefaultAbsorptionConfig(),
		Monitor:    guard.DefaultMonitorConfig(),
		Retrace:    vfi.DefaultRetraceConfig(),
		Modes: ModeConfig{
			Swing: SwingConfig{
				ProbeTPMult:   1.15,
				PromoteTPMult: 1.05,
				MaxAgeMult:    2,
				TrailingCap:   1.0,
				Partial1:      0.25,
				Partial2:      0.30,
			},
			Scalper: ScalperConfig{
				MaxAgeDiv:     2,
				MinMaxAge:     8 * time.Minute,
				TrailingFloor: 1.2,
				Partial1:      0.35,
				Partial2:      0.40,
			},
			Conflict: ConflictConfig{ProbeSLMult: 1.1, ProbeTPMult: 0.9},
		},
	}
}
