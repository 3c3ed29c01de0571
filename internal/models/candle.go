package models

import (
	"math"
	"sort"
	"strings"
	"time"
)

// Candle: одна свеча OHLCV, Timestamp в миллисекундах UTC.
type Candle struct {
	Timestamp int64   `json:"ts"`
	Open      float64 `json:"o"`
	High      float64 `json:"h"`
	Low       float64 `json:"l"`
	Close     float64 `json:"c"`
	Volume    float64 `json:"v"`
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Valid отбрасывает close<=0, high<low и не-конечные значения.
func (c Candle) Valid() bool {
	if !finite(c.Open) || !finite(c.High) || !finite(c.Low) || !finite(c.Close) || !finite(c.Volume) {
		return false
	}
	if c.Close <= 0 || c.High < c.Low {
		return false
	}
	return true
}

func (c Candle) Body() float64 { return math.Abs(c.Close - c.Open) }

// UpperWick / LowerWick: тени свечи относительно тела.
func (c Candle) UpperWick() float64 {
	if c.Close >= c.Open {
		return c.High - c.Close
	}
	return c.High - c.Open
}

func (c Candle) LowerWick() float64 {
	if c.Close >= c.Open {
		return c.Open - c.Low
	}
	return c.Close - c.Low
}

func (c Candle) Time() time.Time { return time.UnixMilli(c.Timestamp).UTC() }

// Timeframe: поддерживаемые таймфреймы.
type Timeframe string

const (
	M5  Timeframe = "M5"
	M15 Timeframe = "M15"
	H1  Timeframe = "H1"
	H4  Timeframe = "H4"
	D1  Timeframe = "D1"
)

// AllTimeframes в порядке от быстрого к медленному.
var AllTimeframes = []Timeframe{M5, M15, H1, H4, D1}

func (tf Timeframe) String() string { return string(tf) }

func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case M5:
		return 5 * time.Minute
	case M15:
		return 15 * time.Minute
	case H1:
		return time.Hour
	case H4:
		return 4 * time.Hour
	case D1:
		return 24 * time.Hour
	default:
		return 0
	}
}

// Interval: обозначение бара у бирж ("5m", "1h", ...).
func (tf Timeframe) Interval() string {
	switch tf {
	case M5:
		return "5m"
	case M15:
		return "15m"
	case H1:
		return "1h"
	case H4:
		return "4h"
	case D1:
		return "1d"
	default:
		return ""
	}
}

// ParseTimeframe понимает и "M15", и биржевые "15m"/"1H".
func ParseTimeframe(raw string) (Timeframe, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "candle")
	switch s {
	case "m5", "5m":
		return M5, true
	case "m15", "15m":
		return M15, true
	case "h1", "1h", "60m":
		return H1, true
	case "h4", "4h", "240m":
		return H4, true
	case "d1", "1d", "24h":
		return D1, true
	}
	return "", false
}

// History: свечи одного таймфрейма по возрастанию времени, без дублей.
type History []Candle

// NormalizeHistory сортирует, выкидывает невалидные свечи и дубли по timestamp
// (побеждает последняя запись).
func NormalizeHistory(in []Candle) History {
	if len(in) == 0 {
		return nil
	}
	byTS := make(map[int64]Candle, len(in))
	for _, c := range in {
		if !c.Valid() {
			continue
		}
		byTS[c.Timestamp] = c
	}
	out := make(History, 0, len(byTS))
	for _, c := range byTS {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

func (h History) Last() (Candle, bool) {
	if len(h) == 0 {
		return Candle{}, false
	}
	return h[len(h)-1], true
}

func (h History) Closes() []float64 {
	out := make([]float64, len(h))
	for i, c := range h {
		out[i] = c.Close
	}
	return out
}
