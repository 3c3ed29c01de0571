package service

import (
	"context"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/pkg/errors"

	"signal_engine/internal/models"
)

const binanceMaxLimit = 1500

// BinanceFutures: свечи USDT-M фьючерсов.
type BinanceFutures struct {
	client *futures.Client
}

func NewBinanceFutures(cfg Config) *BinanceFutures {
	if cfg.Testnet {
		futures.UseTestnet = true
	}
	return &BinanceFutures{client: binance.NewFuturesClient(cfg.APIKey, cfg.APISecret)}
}

func (b *BinanceFutures) Fetch(ctx context.Context, symbol string, tf models.Timeframe, since int64, limit int) ([]models.Candle, error) {
	interval, err := binanceInterval(tf)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > binanceMaxLimit {
		limit = binanceMaxLimit
	}
	svc := b.client.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit)
	if since > 0 {
		svc = svc.StartTime(since)
	}
	klines, err := svc.Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "binance futures klines %s %s", symbol, tf)
	}
	out := make([]models.Candle, 0, len(klines))
	for _, k := range klines {
		if c, ok := parseOHLCV(k.OpenTime, k.Open, k.High, k.Low, k.Close, k.Volume); ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// BinanceSpot: спотовые свечи для сравнения с фьючерсом (FSD).
type BinanceSpot struct {
	client *binance.Client
}

func NewBinanceSpot(cfg Config) *BinanceSpot {
	if cfg.Testnet {
		binance.UseTestnet = true
	}
	return &BinanceSpot{client: binance.NewClient(cfg.APIKey, cfg.APISecret)}
}

func (b *BinanceSpot) Fetch(ctx context.Context, symbol string, tf models.Timeframe, since int64, limit int) ([]models.Candle, error) {
	interval, err := binanceInterval(tf)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	svc := b.client.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit)
	if since > 0 {
		svc = svc.StartTime(since)
	}
	klines, err := svc.Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "binance spot klines %s %s", symbol, tf)
	}
	out := make([]models.Candle, 0, len(klines))
	for _, k := range klines {
		if c, ok := parseOHLCV(k.OpenTime, k.Open, k.High, k.Low, k.Close, k.Volume); ok {
			out = append(out, c)
		}
	}
	return out, nil
}
