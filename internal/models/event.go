package models

import "time"

type EventKind string

const (
	EventDecision    EventKind = "decision"
	EventOpen        EventKind = "open"
	EventPromote     EventKind = "promote"
	EventReduce      EventKind = "reduce"
	EventClose       EventKind = "close"
	EventGuardedExit EventKind = "guarded_exit"
	EventError       EventKind = "error"
	EventPing        EventKind = "ping"
)

// Event: структурированное событие для нотификаций и дашборда.
type Event struct {
	Kind       EventKind `json:"kind"`
	Symbol     string    `json:"symbol,omitempty"`
	Side       Side      `json:"side,omitempty"`
	SizeType   SizeType  `json:"size_type,omitempty"`
	Qty        float64   `json:"qty,omitempty"`
	Price      float64   `json:"price,omitempty"`
	SL         float64   `json:"sl,omitempty"`
	TP         float64   `json:"tp,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	Flow       float64   `json:"flow,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	At         time.Time `json:"at"`
}
