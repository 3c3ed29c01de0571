package models

import "time"

type SizeType string

const (
	SizeProbe SizeType = "PROBE"
	SizeFull  SizeType = "FULL"
)

// Position: позиция в бумажной книге.
type Position struct {
	ID       string    `json:"id"`
	Symbol   string    `json:"symbol"`
	Side     Side      `json:"side"` // LONG/SHORT
	SizeType SizeType  `json:"size_type"`
	Qty      float64   `json:"qty"`
	Entry    float64   `json:"entry"`
	SL       float64   `json:"sl"`
	TP       float64   `json:"tp"`
	Risk     float64   `json:"risk"` // |entry-SL| на момент открытия/промоута
	OpenedAt time.Time `json:"opened_at"`
	Updated  time.Time `json:"updated"`

	TP1Hit     bool `json:"tp1_hit"`
	TP2Hit     bool `json:"tp2_hit"`
	VFIReduced bool `json:"vfi_reduced"`

	// одношаговая память для VFI exit
	PrevFeatures *FeatureVector `json:"-"`
}

// Clone: копия без общих указателей.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	cp := *p
	if p.PrevFeatures != nil {
		f := *p.PrevFeatures
		cp.PrevFeatures = &f
	}
	return &cp
}

// RiskDist: расстояние от входа до стопа.
func (p *Position) RiskDist() float64 {
	if p == nil {
		return 0
	}
	if p.Risk > 0 {
		return p.Risk
	}
	d := p.Entry - p.SL
	if d < 0 {
		d = -d
	}
	return d
}

// PnLR: результат в R при цене price.
func (p *Position) PnLR(price float64) float64 {
	r := p.RiskDist()
	if r <= 0 {
		return 0
	}
	return (price - p.Entry) * p.Side.Sign() / r
}

// TradeRecord: что вернул execution sink.
type TradeRecord struct {
	ID       string
	Symbol   string
	Side     Side
	Qty      float64
	Entry    float64
	Price    float64
	Realized float64
	Closed   bool
}
