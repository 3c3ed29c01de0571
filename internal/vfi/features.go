// Package vfi (Volume Footprint Intelligence) считает признаки по последней свече
// и скоринг силы движения относительно волатильности.
package vfi

import (
	"math"

	"signal_engine/internal/indicators"
	"signal_engine/internal/models"
)

const (
	eps        = 1e-9
	minCandles = 30
	volWindow  = 20
	fsdMinBars = 20
)

// Extract считает вектор признаков по истории таймфрейма. vwap и atr берутся из
// снапшота; если они недоступны, считаются по самой истории. spot (опционально):
// история сравнимого рынка для FSD.
// На коротких/битых данных возвращается нулевой вектор, не ошибка.
func Extract(history models.History, vwap, atr models.Series, spot models.History) models.FeatureVector {
	if len(history) < minCandles {
		return models.FeatureVector{}
	}
	last := history[len(history)-1]
	if last.Close <= 0 || last.High < last.Low {
		return models.FeatureVector{}
	}

	vols := make([]float64, len(history))
	for i, c := range history {
		vols[i] = math.Max(c.Volume, 0)
	}
	var vss float64
	if ma, ok := models.NewSeries(indicators.SMA(vols, volWindow)).Last(); ok && ma > 0 {
		vss = vols[len(vols)-1] / ma
	}

	atrNow, ok := atr.Last()
	if !ok {
		atrNow = models.NewSeries(indicators.ATR(history, 14)).LastOr(0)
	}
	vwapNow, ok := vwap.Last()
	if !ok {
		vwapNow = models.NewSeries(indicators.VWAP(history)).LastOr(last.Close)
	}

	body := last.Body()
	tba := body / (atrNow + eps)
	wiLong := last.LowerWick() / (body + eps)
	wiShort := last.UpperWick() / (body + eps)
	vp := math.Abs(last.Close-vwapNow) / (atrNow + eps)

	fv := models.FeatureVector{
		VSS:     clamp(vss, 0, 5),
		TBA:     clamp(tba, 0, 5),
		WILong:  clamp(wiLong, 0, 5),
		WIShort: clamp(wiShort, 0, 5),
		VP:      clamp(vp, 0, 5),
	}
	if fsd, ok := divergence(history, spot); ok {
		fv.FSD = fsd
		fv.HasFSD = true
	}
	return fv
}

// divergence: последняя разница фьючерс/спот, нормированная на своё σ.
func divergence(fut, spot models.History) (float64, bool) {
	if len(spot) == 0 || len(spot) < len(fut)-5 {
		return 0, false
	}
	n := len(fut)
	if len(spot) < n {
		n = len(spot)
	}
	if n < fsdMinBars {
		return 0, false
	}
	diff := make([]float64, n)
	for i := 0; i < n; i++ {
		diff[i] = fut[len(fut)-n+i].Close - spot[len(spot)-n+i].Close
	}
	sd, ok := models.NewSeries(indicators.StdDev(diff, n)).Last()
	if !ok || sd <= 0 {
		return 0, false
	}
	return clamp(diff[n-1]/(sd+eps), 0.2, 5), true
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
