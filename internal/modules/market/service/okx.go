package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"signal_engine/internal/models"
)

const okxMaxLimit = 300

// OKX: REST свечи OKX (/api/v5/market/candles).
type OKX struct {
	http    *http.Client
	baseURL string
	spot    bool
}

func NewOKX(cfg Config, spot bool) *OKX {
	base := cfg.OKXURL
	if base == "" {
		base = "https://www.okx.com"
	}
	return &OKX{
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		baseURL: base,
		spot:    spot,
	}
}

// Fetch: OKX отдаёт newest-first → разворачиваем. since реализован через
// фильтр: API принимает только курсоры after/before.
func (o *OKX) Fetch(ctx context.Context, symbol string, tf models.Timeframe, since int64, limit int) ([]models.Candle, error) {
	bar, err := okxBar(tf)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > okxMaxLimit {
		limit = okxMaxLimit
	}
	q := url.Values{}
	q.Set("instId", okxInstID(symbol, o.spot))
	q.Set("bar", bar)
	q.Set("limit", strconv.Itoa(limit))
	u := fmt.Sprintf("%s/api/v5/market/candles?%s", o.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := o.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "okx candles %s %s", symbol, tf)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "okx candles %s %s: read body", symbol, tf)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(b))
	}

	var r struct {
		Code string     `json:"code"`
		Msg  string     `json:"msg"`
		Data [][]string `json:"data"`
	}
	if err := sonic.Unmarshal(b, &r); err != nil {
		return nil, errors.Wrap(err, "okx candles decode")
	}
	if r.Code != "0" {
		return nil, fmt.Errorf("okx candles error: code=%s msg=%s", r.Code, r.Msg)
	}

	out := make([]models.Candle, 0, len(r.Data))
	for i := len(r.Data) - 1; i >= 0; i-- {
		c, ok := parseRow(r.Data[i])
		if !ok || c.Timestamp < since {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
