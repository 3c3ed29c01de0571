package indicators

import "signal_engine/internal/models"

const (
	atrPeriod  = 14
	adxPeriod  = 14
	rsiPeriod  = 14
	bbPeriod   = 20
	bbK        = 2.0
	volMAShort = 20
	volMALong  = 50
	rocPeriod  = 10
)

// Compute строит снапшот индикаторов по истории одного таймфрейма.
// Никогда не паникует и не возвращает ошибку: пустая история даёт
// снапшот, где все ряды unavailable.
func Compute(tf models.Timeframe, history []models.Candle) *models.Snapshot {
	h := models.NormalizeHistory(history)
	if len(h) == 0 {
		return models.EmptySnapshot(tf)
	}

	n := len(h)
	closes := make([]float64, n)
	opens := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	vols := make([]float64, n)
	for i, c := range h {
		closes[i] = c.Close
		opens[i] = c.Open
		highs[i] = c.High
		lows[i] = c.Low
		vols[i] = c.Volume
	}

	return &models.Snapshot{
		Timeframe: tf,
		Candles:   h,
		Close:     models.NewSeries(closes),
		Open:      models.NewSeries(opens),
		High:      models.NewSeries(highs),
		Low:       models.NewSeries(lows),
		Volume:    models.NewSeries(vols),
		EMA9:      models.NewSeries(EMA(closes, 9)),
		EMA21:     models.NewSeries(EMA(closes, 21)),
		EMA50:     models.NewSeries(EMA(closes, 50)),
		EMA200:    models.NewSeries(EMA(closes, 200)),
		ATR:       models.NewSeries(ATR(h, atrPeriod)),
		ADX:       models.NewSeries(ADX(h, adxPeriod)),
		BBW:       models.NewSeries(BollingerWidth(closes, bbPeriod, bbK)),
		RSI:       models.NewSeries(RSI(closes, rsiPeriod)),
		VWAP:      models.NewSeries(VWAP(h)),
		VolMA20:   models.NewSeries(SMA(vols, volMAShort)),
		VolMA50:   models.NewSeries(SMA(vols, volMALong)),
		ROC:       models.NewSeries(ROC(closes, rocPeriod)),
		MACDHist:  models.NewSeries(MACDHist(closes, 12, 26, 9)),
	}
}

// ComputeAll: снапшоты по всем переданным таймфреймам. Отсутствующий
// таймфрейм просто не попадает в map (Snapshots.Get вернёт пустой).
func ComputeAll(raw map[models.Timeframe]models.History) models.Snapshots {
	out := make(models.Snapshots, len(raw))
	for tf, h := range raw {
		out[tf] = Compute(tf, h)
	}
	return out
}
