package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"signal_engine/internal/audit"
	cache "signal_engine/internal/modules/cache/service"
	dashboard "signal_engine/internal/modules/dashboard/service"
	"signal_engine/internal/modules/health"
	market "signal_engine/internal/modules/market/service"
	paper "signal_engine/internal/modules/paper/service"
	"signal_engine/internal/modules/postgres"
	"signal_engine/internal/notify"
	"signal_engine/internal/runner"
	"signal_engine/pkg/tracing"
)

const (
	configFilePathENV = "CONFIG_FILE"
	configDir         = "configs"
	defaultConfigFile = "values_local.yaml"
)

// Config: весь конфиг сервиса: движок + секции ввода-вывода.
type Config struct {
	ServiceName string `yaml:"service_name" validate:"required"`
	LogLevel    string `yaml:"log_level" validate:"oneof=debug info warn error"`

	Engine    runner.Config    `yaml:"engine"`
	Market    market.Config    `yaml:"market"`
	Paper     paper.Config     `yaml:"paper"`
	Notify    notify.Config    `yaml:"notifier"`
	Dashboard dashboard.Config `yaml:"dashboard"`
	Audit     audit.Config     `yaml:"audit"`
	Cache     cache.Config     `yaml:"cache"`
	Postgres  postgres.Config  `yaml:"postgres"`
	Health    health.Config    `yaml:"health"`
	Tracing   tracing.Config   `yaml:"tracing"`
}

// Default: значения по умолчанию, YAML накладывается поверх.
func Default() Config {
	return Config{
		ServiceName: "signal_engine",
		LogLevel:    "info",
		Engine:      runner.DefaultConfig(),
		Market:      market.DefaultConfig(),
		Notify:      notify.DefaultConfig(),
		Dashboard:   dashboard.DefaultConfig(),
		Audit:       audit.DefaultConfig(),
		Cache:       cache.DefaultConfig(),
		Health:      health.DefaultConfig(),
		Paper:       paper.Config{FeeRate: 0.0004},
		Postgres:    postgres.Config{MaxConns: 4},
		Tracing:     tracing.Config{Host: "localhost", Port: 6831, SampleRate: 1},
	}
}

// NewConfig читает configs/$CONFIG_FILE (по умолчанию values_local.yaml).
func NewConfig() (*Config, error) {
	// .env не обязателен
	_ = godotenv.Load()

	name := os.Getenv(configFilePathENV)
	if name == "" {
		name = defaultConfigFile
	}
	return Load(filepath.Join(configDir, name))
}

// Load: дефолты → YAML → переменные окружения → валидация.
func Load(path string) (*Config, error) {
	cfg := Default()

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open config file %s", path)
	}
	defer func() {
		_ = file.Close()
	}()

	// пустой файл: чистые дефолты
	if err := yaml.NewDecoder(file).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrapf(err, "decode config file %s", path)
	}

	if err := applyEnv(&cfg, newEnv()); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func newEnv() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// applyEnv: секреты и частые переопределения из окружения.
func applyEnv(cfg *Config, env *viper.Viper) error {
	if s := env.GetString("TELEGRAM_TOKEN"); s != "" {
		cfg.Notify.Telegram.Token = s
		cfg.Notify.Telegram.Enabled = true
	}
	if env.IsSet("TELEGRAM_CHAT_ID") {
		cfg.Notify.Telegram.ChatID = env.GetInt64("TELEGRAM_CHAT_ID")
	}
	if s := env.GetString("DISCORD_WEBHOOK"); s != "" {
		cfg.Notify.Discord.Webhook = s
		cfg.Notify.Discord.Enabled = true
	}
	if s := env.GetString("DATABASE_DSN"); s != "" {
		cfg.Postgres.DSN = s
		cfg.Postgres.Enabled = true
	}
	if s := env.GetString("REDIS_ADDR"); s != "" {
		cfg.Cache.Redis.Addr = s
		cfg.Cache.Backend = cache.BackendRedis
	}
	if s := env.GetString("KAFKA_BROKERS"); s != "" {
		cfg.Dashboard.Brokers = splitList(s)
		cfg.Dashboard.Enabled = true
	}
	if s := env.GetString("SYMBOLS"); s != "" {
		cfg.Engine.Symbols = splitList(s)
	}
	if env.IsSet("INTERVAL") {
		d := env.GetDuration("INTERVAL")
		if d <= 0 {
			return errors.Errorf("INTERVAL must be a positive duration, got %q", env.GetString("INTERVAL"))
		}
		cfg.Engine.Interval = d
	}
	if s := env.GetString("LOG_LEVEL"); s != "" {
		cfg.LogLevel = strings.ToLower(s)
	}
	if s := env.GetString("BINANCE_API_KEY"); s != "" {
		cfg.Market.APIKey = s
	}
	if s := env.GetString("BINANCE_API_SECRET"); s != "" {
		cfg.Market.APISecret = s
	}
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToUpper(p))
		}
	}
	return out
}

var validate = validator.New()

// Validate проверяет struct-теги и связи между секциями.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, e := range verrs {
				msgs = append(msgs, e.Namespace()+": "+e.Tag())
			}
			return errors.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return errors.Wrap(err, "invalid config")
	}
	if cfg.Audit.Postgres && !cfg.Postgres.Enabled {
		return errors.New("invalid config: audit.postgres requires postgres.enabled")
	}
	if cfg.Notify.Telegram.Enabled && cfg.Notify.Telegram.Token == "" {
		return errors.New("invalid config: notifier.telegram enabled without token")
	}
	return nil
}
