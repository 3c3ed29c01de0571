package service

import (
	"context"

	"signal_engine/internal/models"
)

// Fetcher: источник свечей. since в миллисекундах; при 0 отдаёт последние limit свечей.
// Свечи возвращаются по возрастанию времени.
type Fetcher interface {
	Fetch(ctx context.Context, symbol string, tf models.Timeframe, since int64, limit int) ([]models.Candle, error)
}
