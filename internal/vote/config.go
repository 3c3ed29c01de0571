package vote

import "signal_engine/internal/models"

// EMASlopeConfig: бонус/штраф за наклон EMA21 на H1 (H4 с половинным весом).
type EMASlopeConfig struct {
	Enabled  bool    `yaml:"enabled"`
	Lookback int     `yaml:"lookback"`
	Bonus    float64 `yaml:"bonus"`
	Penalty  float64 `yaml:"penalty"`
	MinBBW   float64 `yaml:"min_bbw"`
}

// ADXSlopeConfig: бонус за рост ADX на H1.
type ADXSlopeConfig struct {
	Enabled         bool    `yaml:"enabled"`
	Lookback        int     `yaml:"lookback"`
	Delta           float64 `yaml:"delta"`
	Bonus           float64 `yaml:"bonus"`
	NeedVFIDeltaPos bool    `yaml:"need_vfi_delta_pos"`
}

// EarlyConfig: бонус за свежий кросс EMA21/EMA50 на H1 при сильном VFI.
type EarlyConfig struct {
	Enabled bool    `yaml:"enabled"`
	MinVFI  float64 `yaml:"min_vfi"`
	Bonus   float64 `yaml:"bonus"`
}

type Enhancements struct {
	EMASlope EMASlopeConfig `yaml:"ema_slope"`
	ADXSlope ADXSlopeConfig `yaml:"adx_slope"`
	Early    EarlyConfig    `yaml:"early_anticipate"`
}

// Config: все эвристические константы голосования.
type Config struct {
	Weights        models.Weights `yaml:"group_weights"`
	LongThreshold  float64        `yaml:"long_threshold"`
	ShortThreshold float64        `yaml:"short_threshold"`
	DeadZone       float64        `yaml:"dead_zone"`
	D1ContraCut    float64        `yaml:"d1_contra_conf_cut" validate:"gte=0,lte=1"`

	AlignBias    float64 `yaml:"align_bias"`
	H4AlignScale float64 `yaml:"h4_align_scale"`
	ADXHigh      float64 `yaml:"adx_high"`
	ADXHighBias  float64 `yaml:"adx_high_bias"`
	ADXLow       float64 `yaml:"adx_low"`
	ADXLowBias   float64 `yaml:"adx_low_bias"`

	Enhance Enhancements `yaml:"enhance"`
}

func DefaultConfig() Config {
	return Config{
		Weights:        models.Weights{Flow: 0.2, Trend: 0.35, Momentum: 0.25, Mean: 0.2},
		LongThreshold:  0.02,
		ShortThreshold: -0.02,
		DeadZone:       0.01,
		D1ContraCut:    0.30,
		AlignBias:      0.06,
		H4AlignScale:   0.5,
		ADXHigh:        25,
		ADXHighBias:    0.02,
		ADXLow:         12,
		ADXLowBias:     -0.01,
		Enhance: Enhancements{
			EMASlope: EMASlopeConfig{Enabled: true, Lookback: 3, Bonus: 0.02, Penalty: -0.02, MinBBW: 0.10},
			ADXSlope: ADXSlopeConfig{Enabled: true, Lookback: 3, Delta: 5, Bonus: 0.02, NeedVFIDeltaPos: true},
			Early:    EarlyConfig{Enabled: true, MinVFI: 55, Bonus: 0.04},
		},
	}
}
