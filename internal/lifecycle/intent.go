package lifecycle

import (
	"context"
	"time"

	"signal_engine/internal/guard"
	"signal_engine/internal/models"
)

type IntentKind string

const (
	IntentOpen     IntentKind = "OPEN"
	IntentPromote  IntentKind = "PROMOTE"
	IntentReduce   IntentKind = "REDUCE"
	IntentClose    IntentKind = "CLOSE"
	IntentModifySL IntentKind = "MODIFY_SL"
	IntentModifyTP IntentKind = "MODIFY_TP"
)

// Intent: команда исполнителю, ключ symbol+side.
type Intent struct {
	Kind     IntentKind
	Symbol   string
	Side     models.Side
	SizeType models.SizeType
	// Qty: объём для OPEN, добавка для PROMOTE, уменьшение для REDUCE.
	Qty    float64
	Price  float64
	SL     float64
	TP     float64
	Code   string
	Reason string
	At     time.Time
}

// Executor: исполнитель намерений (бумажная книга). Возвращённая запись
// авторитетна для объёма и цены входа.
type Executor interface {
	Execute(ctx context.Context, in Intent) (models.TradeRecord, error)
}

// Applied: намерение, подтверждённое исполнителем.
type Applied struct {
	Intent Intent
	Record models.TradeRecord
	// Position: позиция после применения (nil после CLOSE).
	Position *models.Position
	// Before: позиция до применения.
	Before *models.Position
}

func (a Applied) Event() models.Event {
	ev := models.Event{
		Symbol:   a.Intent.Symbol,
		Side:     a.Intent.Side,
		SizeType: a.Intent.SizeType,
		Qty:      a.Record.Qty,
		Price:    a.Intent.Price,
		SL:       a.Intent.SL,
		TP:       a.Intent.TP,
		Reason:   a.Intent.Reason,
		At:       a.Intent.At,
	}
	switch a.Intent.Kind {
	case IntentOpen:
		ev.Kind = models.EventOpen
	case IntentPromote:
		ev.Kind = models.EventPromote
	case IntentReduce:
		ev.Kind = models.EventReduce
		ev.Qty = a.Intent.Qty
	case IntentClose:
		ev.Kind = models.EventGuardedExit
		if a.Intent.Code == guard.CodeStopLoss || a.Intent.Code == guard.CodeTakeProfit {
			ev.Kind = models.EventClose
		}
	default:
		return models.Event{}
	}
	return ev
}
