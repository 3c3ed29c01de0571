package audit

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

var (
	entryHeader = []string{"ts", "symbol", "regime", "macro_bias", "side", "reason", "price", "group_scores", "extra_json"}
	tradeHeader = []string{"ts", "event", "symbol", "regime", "side", "entry", "sl", "tp1", "tp2", "price_at_event", "exit_reason", "qty", "tp1_hit", "pnl_est_r"}
	voteHeader  = []string{"ts", "symbol", "regime", "trend", "momentum", "mean", "flow", "score", "side", "details_json"}
	cycleHeader = []string{"ts", "symbol", "status", "side", "conf", "vfi_flow", "vfi_long", "vfi_short", "latency_sec"}
)

// CSV: файловый журнал: по файлу на вид записи, заголовок пишется в новый файл.
type CSV struct {
	dir string
	mu  sync.Mutex
}

func NewCSV(dir string) (*CSV, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create audit dir %s", dir)
	}
	return &CSV{dir: dir}, nil
}

func (c *CSV) append(name string, header, row []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	path := filepath.Join(c.dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return errors.Wrapf(err, "stat %s", path)
	}
	w := csv.NewWriter(f)
	if st.Size() == 0 {
		if err := w.Write(header); err != nil {
			return errors.Wrap(err, "write header")
		}
	}
	if err := w.Write(row); err != nil {
		return errors.Wrap(err, "write row")
	}
	w.Flush()
	return errors.Wrapf(w.Error(), "flush %s", path)
}

func ts(t time.Time) string { return t.UTC().Format(time.RFC3339) }
func num(v float64) string  { return strconv.FormatFloat(v, 'f', -1, 64) }
func flag(v bool) string    { return strconv.FormatBool(v) }

func jsonCol(v any) string {
	b, err := sonic.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func (c *CSV) Entry(_ context.Context, r EntryRow) error {
	return c.append("entries.csv", entryHeader, []string{
		ts(r.TS), r.Symbol, string(r.Regime), string(r.MacroBias), string(r.Side), r.Reason,
		num(r.Price), jsonCol(r.Groups), jsonCol(r.Extra),
	})
}

func (c *CSV) Trade(_ context.Context, r TradeRow) error {
	return c.append("trades.csv", tradeHeader, []string{
		ts(r.TS), r.Event, r.Symbol, string(r.Regime), string(r.Side),
		num(r.Entry), num(r.SL), num(r.TP1), num(r.TP2), num(r.PriceAtEvent),
		r.ExitReason, num(r.Qty), flag(r.TP1Hit), num(r.PnLEstR),
	})
}

func (c *CSV) Vote(_ context.Context, r VoteRow) error {
	return c.append("votes.csv", voteHeader, []string{
		ts(r.TS), r.Symbol, string(r.Regime),
		num(r.Trend), num(r.Momentum), num(r.Mean), num(r.Flow), num(r.Score),
		string(r.Side), jsonCol(r.Details),
	})
}

func (c *CSV) Cycle(_ context.Context, r CycleRow) error {
	return c.append("cycles.csv", cycleHeader, []string{
		ts(r.TS), r.Symbol, string(r.Status), string(r.Side),
		num(r.Conf), num(r.VFIFlow), num(r.VFILong), num(r.VFIShort), num(r.LatencySec),
	})
}
