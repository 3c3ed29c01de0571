package service

import (
	"fmt"
	"strconv"
	"strings"

	"signal_engine/internal/models"
)

func binanceInterval(tf models.Timeframe) (string, error) {
	if iv := tf.Interval(); iv != "" {
		return iv, nil
	}
	return "", fmt.Errorf("unsupported timeframe for binance: %q", tf)
}

func okxBar(tf models.Timeframe) (string, error) {
	switch tf {
	case models.M5:
		return "5m", nil
	case models.M15:
		return "15m", nil
	case models.H1:
		return "1H", nil
	case models.H4:
		return "4H", nil
	case models.D1:
		return "1D", nil
	}
	return "", fmt.Errorf("unsupported timeframe for OKX bar: %q", tf)
}

// okxInstID: BTCUSDT → BTC-USDT-SWAP (или BTC-USDT для спота).
func okxInstID(symbol string, spot bool) string {
	if strings.Contains(symbol, "-") {
		return symbol
	}
	base, quote := symbol, ""
	for _, q := range []string{"USDT", "USDC", "USD"} {
		if strings.HasSuffix(symbol, q) {
			base, quote = strings.TrimSuffix(symbol, q), q
			break
		}
	}
	if quote == "" {
		return symbol
	}
	if spot {
		return base + "-" + quote
	}
	return base + "-" + quote + "-SWAP"
}

// okxSymbol: обратное преобразование для стрима.
func okxSymbol(instID string) string {
	parts := strings.Split(instID, "-")
	if len(parts) < 2 {
		return instID
	}
	return parts[0] + parts[1]
}

// parseRow разбирает строковую свечу [ts, o, h, l, c, vol, ...].
func parseRow(row []string) (models.Candle, bool) {
	if len(row) < 6 {
		return models.Candle{}, false
	}
	ts, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return models.Candle{}, false
	}
	return parseOHLCV(ts, row[1], row[2], row[3], row[4], row[5])
}

func parseOHLCV(ts int64, o, h, l, c, v string) (models.Candle, bool) {
	open, err1 := strconv.ParseFloat(o, 64)
	high, err2 := strconv.ParseFloat(h, 64)
	low, err3 := strconv.ParseFloat(l, 64)
	closep, err4 := strconv.ParseFloat(c, 64)
	vol, err5 := strconv.ParseFloat(v, 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
		return models.Candle{}, false
	}
	candle := models.Candle{Timestamp: ts, Open: open, High: high, Low: low, Close: closep, Volume: vol}
	return candle, candle.Valid()
}
