package models

import "time"

// SignalMonitor: отслеживание пика уверенности с момента появления сигнала.
type SignalMonitor struct {
	Side     Side
	OpenedAt time.Time
	Peak     float64
	Flow     float64
}

// GuardState: per-symbol состояние гардов.
type GuardState struct {
	PauseUntil  time.Time
	PauseCandle int64 // свеча, на которой сработала пауза
	Monitor     *SignalMonitor
}

// Paused: блокирует ли пауза открытие на момент now.
func (g *GuardState) Paused(now time.Time) bool {
	return !g.PauseUntil.IsZero() && now.Before(g.PauseUntil)
}
