package models

import "time"

type CycleStatus string

const (
	StatusInit     CycleStatus = "INIT"
	StatusOK       CycleStatus = "OK"
	StatusLagGuard CycleStatus = "LAG_GUARD"
	StatusError    CycleStatus = "ERROR"
	StatusBusy     CycleStatus = "BUSY"
)

// CycleResult: итог одного цикла по символу.
type CycleResult struct {
	Symbol   string         `json:"symbol"`
	Status   CycleStatus    `json:"status"`
	Decision Decision       `json:"decision"`
	Groups   Groups         `json:"groups"`
	VFIFlow  float64        `json:"vfi_flow"`
	Scores   VFIScores      `json:"vfi_scores"`
	Class    Classification `json:"classification"`
	Price    float64        `json:"price"`
	Latency  time.Duration  `json:"latency"`
	Err      string         `json:"error,omitempty"`
}

func NewCycleResult(symbol string) CycleResult {
	return CycleResult{
		Symbol:   symbol,
		Status:   StatusInit,
		Decision: FlatDecision(),
	}
}
