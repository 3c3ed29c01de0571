package vote

import (
	"signal_engine/internal/models"
)

func sgn(pos, neg bool) float64 {
	switch {
	case pos && !neg:
		return 1
	case neg && !pos:
		return -1
	default:
		return 0
	}
}

func clamp1(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// Trend: выстройка EMA на H1: EMA50/200 (0.6) + EMA9/21 (0.4).
func Trend(h1 *models.Snapshot) float64 {
	s := 0.0
	if e50, ok := h1.EMA50.Last(); ok {
		if e200, ok := h1.EMA200.Last(); ok {
			s += sgn(e50 > e200, e50 < e200) * 0.6
		}
	}
	if e9, ok := h1.EMA9.Last(); ok {
		if e21, ok := h1.EMA21.Last(); ok {
			s += sgn(e9 > e21, e9 < e21) * 0.4
		}
	}
	return clamp1(s)
}

// Momentum на M15: RSI 55/45 (0.5), знак ROC (0.3), знак гистограммы MACD (0.2).
func Momentum(m15 *models.Snapshot) float64 {
	rsi := m15.RSI.LastOr(50)
	roc := m15.ROC.LastOr(0)
	hist := m15.MACDHist.LastOr(0)
	s := sgn(rsi > 55, rsi < 45)*0.5 +
		sgn(roc > 0, roc < 0)*0.3 +
		sgn(hist > 0, hist < 0)*0.2
	return clamp1(s)
}

// Mean: положение закрытия M15 относительно VWAP.
func Mean(m15 *models.Snapshot) float64 {
	price, ok := m15.Close.Last()
	if !ok {
		return 0
	}
	vwap := m15.VWAP.LastOr(price)
	return sgn(price > vwap, price < vwap)
}

// TallyGroups считает trend/momentum/mean; flow задаётся из VFI отдельно.
func TallyGroups(snaps models.Snapshots, flow float64) models.Groups {
	m15 := snaps.Get(models.M15)
	return models.Groups{
		Flow:     clamp1(flow),
		Trend:    Trend(snaps.Get(models.H1)),
		Momentum: Momentum(m15),
		Mean:     Mean(m15),
	}
}
