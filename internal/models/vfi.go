package models

// FeatureVector: признаки VFI по последней свече.
// VSS/TBA/WI/VP в [0,5], FSD в [0.2,5] или отсутствует.
type FeatureVector struct {
	VSS     float64 `json:"vss"`
	TBA     float64 `json:"tba"`
	WILong  float64 `json:"wi_long"`
	WIShort float64 `json:"wi_short"`
	VP      float64 `json:"vp"`
	FSD     float64 `json:"fsd,omitempty"`
	HasFSD  bool    `json:"has_fsd"`
}

// WI: направленный wick index.
func (v FeatureVector) WI(side Side) float64 {
	if side == SideShort {
		return v.WIShort
	}
	return v.WILong
}

func (v FeatureVector) IsZero() bool { return v == FeatureVector{} }

// VFIScores: сила по сторонам, 0..100.
type VFIScores struct {
	Long  float64 `json:"long"`
	Short float64 `json:"short"`
}

// Best: сильнейшая сторона.
func (s VFIScores) Best() float64 {
	if s.Long > s.Short {
		return s.Long
	}
	return s.Short
}
