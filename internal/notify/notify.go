// Package notify доставляет события движка в Telegram, Discord, Kafka и лог.
package notify

import (
	"context"
	"fmt"
	"time"

	"signal_engine/internal/models"
)

// Sink: один канал доставки.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, ev models.Event) error
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  int64  `yaml:"chat_id"`
}

type DiscordConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Webhook  string        `yaml:"webhook"`
	Username string        `yaml:"username"`
	Timeout  time.Duration `yaml:"timeout"`
}

type Config struct {
	QueueSize      int            `yaml:"queue_size" validate:"gte=1"`
	PutTimeout     time.Duration  `yaml:"put_timeout"`
	DeliverTimeout time.Duration  `yaml:"deliver_timeout"`
	Stdout         bool           `yaml:"stdout"`
	Telegram       TelegramConfig `yaml:"telegram"`
	Discord        DiscordConfig  `yaml:"discord"`
}

func DefaultConfig() Config {
	return Config{
		QueueSize:      10000,
		PutTimeout:     50 * time.Millisecond,
		DeliverTimeout: 6 * time.Second,
		Stdout:         true,
		Discord: DiscordConfig{
			Username: "signal-engine",
			Timeout:  6 * time.Second,
		},
	}
}

// Format: человекочитаемая строка события.
func Format(ev models.Event) string {
	switch ev.Kind {
	case models.EventPing:
		return "🦈 " + orDefault(ev.Reason, "signal engine is alive")
	case models.EventDecision:
		return fmt.Sprintf("📈 DECISION | %s → **%s** | conf=%.2f | flow=%.2f", ev.Symbol, ev.Side, ev.Confidence, ev.Flow)
	case models.EventOpen:
		return fmt.Sprintf("✅ OPEN %s | %s %s | qty=%.6f | price=%.4f | sl=%.4f tp=%.4f",
			ev.SizeType, ev.Symbol, ev.Side, ev.Qty, ev.Price, ev.SL, ev.TP)
	case models.EventPromote:
		return fmt.Sprintf("⏫ PROMOTE | %s %s | qty=%.6f | price=%.4f | sl=%.4f tp=%.4f",
			ev.Symbol, ev.Side, ev.Qty, ev.Price, ev.SL, ev.TP)
	case models.EventReduce:
		return fmt.Sprintf("➖ REDUCE | %s %s | qty=%.6f | price=%.4f | %s", ev.Symbol, ev.Side, ev.Qty, ev.Price, ev.Reason)
	case models.EventClose:
		return fmt.Sprintf("🧮 CLOSE | %s %s | qty=%.6f | price=%.4f | %s", ev.Symbol, ev.Side, ev.Qty, ev.Price, ev.Reason)
	case models.EventGuardedExit:
		return fmt.Sprintf("⚠️ EXIT | %s %s | qty=%.6f | price=%.4f | %s", ev.Symbol, ev.Side, ev.Qty, ev.Price, ev.Reason)
	case models.EventError:
		if ev.Symbol != "" {
			return fmt.Sprintf("🚨 ERROR | %s | %s", ev.Symbol, ev.Reason)
		}
		return "🚨 ERROR | " + ev.Reason
	default:
		return fmt.Sprintf("%s | %s %s", ev.Kind, ev.Symbol, ev.Reason)
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// Chunks режет текст на куски не длиннее n рун.
func Chunks(s string, n int) []string {
	if n <= 0 {
		return []string{s}
	}
	r := []rune(s)
	out := make([]string, 0, len(r)/n+1)
	for i := 0; i < len(r); i += n {
		end := i + n
		if end > len(r) {
			end = len(r)
		}
		out = append(out, string(r[i:end]))
	}
	return out
}
