package models

// Frames: свечи символа по таймфреймам за один цикл. Ошибка одного
// таймфрейма не мешает остальным: он просто отсутствует в Candles.
type Frames struct {
	Symbol  string
	Candles map[Timeframe]History
	Spot    History
	Errs    map[Timeframe]error
}

func (f Frames) Get(tf Timeframe) History {
	if f.Candles == nil {
		return nil
	}
	return f.Candles[tf]
}

// Empty: ни одного таймфрейма не получено.
func (f Frames) Empty() bool {
	for _, h := range f.Candles {
		if len(h) > 0 {
			return false
		}
	}
	return true
}
