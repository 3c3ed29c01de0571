package service

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"signal_engine/internal/models"
)

type Config struct {
	Enabled      bool          `yaml:"enabled"`
	Brokers      []string      `yaml:"brokers" validate:"required_if=Enabled true"`
	Topic        string        `yaml:"topic" validate:"required_if=Enabled true"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

func DefaultConfig() Config {
	return Config{
		Topic:        "signal-engine.events",
		WriteTimeout: 5 * time.Second,
	}
}

// MessageWriter: то, что нужно от kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Stream публикует события дашборду в топик Kafka, ключ, символ.
type Stream struct {
	w     MessageWriter
	topic string
}

func NewWriter(cfg Config) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Compression:  kafka.Snappy,
		WriteTimeout: cfg.WriteTimeout,
		BatchTimeout: 50 * time.Millisecond,
	}
}

func NewStream(w MessageWriter, topic string) *Stream {
	return &Stream{w: w, topic: topic}
}

func (s *Stream) Name() string { return "kafka" }

func (s *Stream) Deliver(ctx context.Context, ev models.Event) error {
	b, err := sonic.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	err = s.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.Symbol),
		Value: b,
		Time:  ev.At,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(ev.Kind)},
		},
	})
	return errors.Wrapf(err, "kafka write %s", s.topic)
}

func (s *Stream) Close() error { return s.w.Close() }
