package models

type Regime string

const (
	RegimeCompression Regime = "COMPRESSION"
	RegimeExplosive   Regime = "EXPLOSIVE"
	RegimeTransition  Regime = "TRANSITION"
	RegimeTrend       Regime = "TREND"
	RegimeSideway     Regime = "SIDEWAY"
)

type Mode string

const (
	ModeScalper Mode = "SCALPER"
	ModeSwing   Mode = "SWING"
)

type Bias string

const (
	BiasLong  Bias = "LONG"
	BiasShort Bias = "SHORT"
	BiasFlat  Bias = "FLAT"
)

type MacroRegime string

const (
	MacroTrendAlign MacroRegime = "TREND_ALIGN"
	MacroConflict   MacroRegime = "CONFLICT"
	MacroSideway    MacroRegime = "SIDEWAY_MACRO"
)

type RegimeStrength string

const (
	StrengthWeak   RegimeStrength = "WEAK"
	StrengthNormal RegimeStrength = "NORMAL"
	StrengthStrong RegimeStrength = "STRONG"
)

// Qualifying: режим достаточно сильный для промоута.
func (s RegimeStrength) Qualifying() bool {
	return s == StrengthNormal || s == StrengthStrong
}

// Classification: всё, что пересчитывается каждый цикл (без состояния).
type Classification struct {
	Regime   Regime         `json:"regime"`
	Strength RegimeStrength `json:"strength"`
	Bias     Bias           `json:"macro_bias"`
	Macro    MacroRegime    `json:"macro_regime"`
	Mode     Mode           `json:"mode"`
}
