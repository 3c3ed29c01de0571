package models

// Side: сторона решения/позиции.
type Side string

const (
	SideLong    Side = "LONG"
	SideShort   Side = "SHORT"
	SideNeutral Side = "NEUTRAL"
	SideFlat    Side = "FLAT"
)

// Directional: LONG или SHORT.
func (s Side) Directional() bool { return s == SideLong || s == SideShort }

// Sign: LONG=+1, SHORT=-1, иначе 0.
func (s Side) Sign() float64 {
	switch s {
	case SideLong:
		return 1
	case SideShort:
		return -1
	default:
		return 0
	}
}

func (s Side) Opposite() Side {
	switch s {
	case SideLong:
		return SideShort
	case SideShort:
		return SideLong
	default:
		return s
	}
}

// Group scores, каждый в [-1,1].
type Groups struct {
	Flow     float64 `json:"flow"`
	Trend    float64 `json:"trend"`
	Momentum float64 `json:"momentum"`
	Mean     float64 `json:"mean"`
}

// Weights: веса групп при голосовании.
type Weights struct {
	Flow     float64 `yaml:"flow" json:"flow"`
	Trend    float64 `yaml:"trend" json:"trend"`
	Momentum float64 `yaml:"momentum" json:"momentum"`
	Mean     float64 `yaml:"mean" json:"mean"`
}

// DecisionDetails: разбор всех слагаемых итогового скора.
type DecisionDetails struct {
	Base          float64 `json:"base"`
	TrendBias     float64 `json:"trend_bias"`
	H1Align       float64 `json:"h1_align"`
	H4Align       float64 `json:"h4_align"`
	ADXBias       float64 `json:"adx_bias"`
	SlopeBonus    float64 `json:"slope_bonus"`
	ADXSlopeBonus float64 `json:"adx_slope_bonus"`
	EarlyBonus    float64 `json:"early_bonus"`
	D1Align       float64 `json:"d1_align"`
	D1Cut         float64 `json:"d1_cut"`
	Raw           float64 `json:"raw"`
	Weights       Weights `json:"weights"`
	Groups        Groups  `json:"groups"`
}

// Decision: результат голосования.
type Decision struct {
	Side       Side            `json:"side"`
	Confidence float64         `json:"confidence"`
	Reasons    []string        `json:"reasons"`
	Details    DecisionDetails `json:"details"`
}

// FlatDecision: нейтральное решение (lag guard, ошибки).
func FlatDecision() Decision {
	return Decision{Side: SideFlat, Reasons: []string{}}
}
