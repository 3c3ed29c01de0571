package service

import (
	"time"

	"signal_engine/internal/models"
)

const (
	ExchangeBinance = "binance"
	ExchangeOKX     = "okx"
)

type StreamConfig struct {
	Enabled   bool          `yaml:"enabled"`
	URL       string        `yaml:"url"`
	PingEvery time.Duration `yaml:"ping_every"`
}

type Config struct {
	Exchange  string `yaml:"exchange" validate:"oneof=binance okx"`
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	Testnet   bool   `yaml:"testnet"`
	OKXURL    string `yaml:"okx_base_url"`

	// SpotDivergence: тянуть спот M15 для FSD
	SpotDivergence bool                     `yaml:"spot_divergence"`
	Incremental    bool                     `yaml:"incremental"`
	Limits         map[models.Timeframe]int `yaml:"limit"`
	Timeframes     []models.Timeframe       `yaml:"timeframes" validate:"min=1"`
	Concurrency    int                      `yaml:"concurrency" validate:"gte=1"`
	RequestTimeout time.Duration            `yaml:"request_timeout"`

	Stream StreamConfig `yaml:"stream"`
}

func DefaultConfig() Config {
	return Config{
		Exchange:       ExchangeBinance,
		OKXURL:         "https://www.okx.com",
		SpotDivergence: true,
		Incremental:    true,
		Limits: map[models.Timeframe]int{
			models.M5:  300,
			models.M15: 300,
			models.H1:  300,
			models.H4:  300,
			models.D1:  250,
		},
		Timeframes:     []models.Timeframe{models.M5, models.M15, models.H1, models.H4, models.D1},
		Concurrency:    8,
		RequestTimeout: 10 * time.Second,
		Stream: StreamConfig{
			Enabled:   false,
			PingEvery: 20 * time.Second,
		},
	}
}

// Limit: сколько свечей держим по таймфрейму.
func (c Config) Limit(tf models.Timeframe) int {
	if n, ok := c.Limits[tf]; ok && n > 0 {
		return n
	}
	if tf == models.D1 {
		return 250
	}
	return 300
}
