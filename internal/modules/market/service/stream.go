package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"signal_engine/internal/models"
	"signal_engine/pkg/logger"
)

const (
	binanceStreamURL = "wss://fstream.binance.com/stream"
	okxStreamURL     = "wss://ws.okx.com:8443/ws/v5/business"
)

// ConnState: куда отмечаем состояние WS (health).
type ConnState interface {
	SetWSConnected(v bool)
}

// Sink: получатель закрытых свечей.
type Sink interface {
	Push(symbol string, tf models.Timeframe, c models.Candle)
}

// Stream: один WebSocket на таймфрейм с пачкой инструментов, закрытые свечи
// уходят в кэш Feed.
type Stream struct {
	cfg      Config
	sink     Sink
	state    ConnState
	wsDialer *websocket.Dialer
}

func NewStream(cfg Config, sink Sink, state ConnState) *Stream {
	return &Stream{
		cfg:      cfg,
		sink:     sink,
		state:    state,
		wsDialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

// Run переподключается до отмены ctx.
func (s *Stream) Run(ctx context.Context, symbols []string, tf models.Timeframe) {
	if len(symbols) == 0 {
		return
	}
	for {
		err := s.session(ctx, symbols, tf)
		s.setConnected(false)
		if ctx.Err() != nil {
			return
		}
		logger.Warn("[WS] %s session ended: %v", tf, err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func (s *Stream) setConnected(v bool) {
	if s.state != nil {
		s.state.SetWSConnected(v)
	}
}

func (s *Stream) session(ctx context.Context, symbols []string, tf models.Timeframe) error {
	url, sub, err := s.endpoint(symbols, tf)
	if err != nil {
		return err
	}
	logger.Info("[WS] connect %s %d symbols", tf, len(symbols))
	conn, _, err := s.wsDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	if sub != nil {
		if err := conn.WriteJSON(sub); err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
	}
	s.setConnected(true)

	// keepalive ping, иначе OKX рвёт соединение с 4004
	stopPing := make(chan struct{})
	defer close(stopPing)
	go func() {
		every := s.cfg.Stream.PingEvery
		if every <= 0 {
			every = 20 * time.Second
		}
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = conn.Close()
				return
			case <-stopPing:
				return
			case <-t.C:
				if s.cfg.Exchange == ExchangeOKX {
					_ = conn.WriteMessage(websocket.TextMessage, []byte("ping"))
				} else {
					_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
				}
			}
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		var candles []streamCandle
		if s.cfg.Exchange == ExchangeOKX {
			candles = parseOKXFrame(msg)
		} else {
			candles = parseBinanceFrame(msg)
		}
		for _, c := range candles {
			s.sink.Push(c.symbol, tf, c.candle)
		}
	}
}

func (s *Stream) endpoint(symbols []string, tf models.Timeframe) (string, any, error) {
	switch s.cfg.Exchange {
	case ExchangeOKX:
		bar, err := okxBar(tf)
		if err != nil {
			return "", nil, err
		}
		args := make([]map[string]string, 0, len(symbols))
		for _, sym := range symbols {
			args = append(args, map[string]string{"channel": "candle" + bar, "instId": okxInstID(sym, false)})
		}
		url := okxStreamURL
		if s.cfg.Stream.URL != "" {
			url = s.cfg.Stream.URL
		}
		return url, map[string]any{"op": "subscribe", "args": args}, nil
	default:
		iv, err := binanceInterval(tf)
		if err != nil {
			return "", nil, err
		}
		streams := make([]string, 0, len(symbols))
		for _, sym := range symbols {
			streams = append(streams, strings.ToLower(sym)+"@kline_"+iv)
		}
		base := binanceStreamURL
		if s.cfg.Stream.URL != "" {
			base = s.cfg.Stream.URL
		}
		return base + "?streams=" + strings.Join(streams, "/"), nil, nil
	}
}

type streamCandle struct {
	symbol string
	candle models.Candle
}

// parseBinanceFrame: combined stream, только закрытые свечи (k.x == true).
func parseBinanceFrame(msg []byte) []streamCandle {
	var frame struct {
		Data struct {
			Symbol string `json:"s"`
			K      struct {
				Start  int64  `json:"t"`
				Open   string `json:"o"`
				High   string `json:"h"`
				Low    string `json:"l"`
				Close  string `json:"c"`
				Volume string `json:"v"`
				Closed bool   `json:"x"`
			} `json:"k"`
		} `json:"data"`
	}
	if err := sonic.Unmarshal(msg, &frame); err != nil {
		return nil
	}
	k := frame.Data.K
	if !k.Closed || frame.Data.Symbol == "" {
		return nil
	}
	c, ok := parseOHLCV(k.Start, k.Open, k.High, k.Low, k.Close, k.Volume)
	if !ok {
		return nil
	}
	return []streamCandle{{symbol: frame.Data.Symbol, candle: c}}
}

// parseOKXFrame: у OKX может приходить несколько свечей в одном кадре,
// confirm всегда в последнем элементе.
func parseOKXFrame(msg []byte) []streamCandle {
	var frame struct {
		Arg struct {
			Channel string `json:"channel"`
			InstID  string `json:"instId"`
		} `json:"arg"`
		Data [][]string `json:"data"`
	}
	if err := sonic.Unmarshal(msg, &frame); err != nil {
		return nil
	}
	if !strings.HasPrefix(frame.Arg.Channel, "candle") || len(frame.Data) == 0 {
		return nil
	}
	out := make([]streamCandle, 0, len(frame.Data))
	for _, row := range frame.Data {
		if len(row) < 6 || row[len(row)-1] != "1" {
			continue // ждём закрытую свечу
		}
		if c, ok := parseRow(row); ok {
			out = append(out, streamCandle{symbol: okxSymbol(frame.Arg.InstID), candle: c})
		}
	}
	return out
}
