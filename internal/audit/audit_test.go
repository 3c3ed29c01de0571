package audit

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"signal_engine/internal/models"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return rows
}

func TestCSVAppendsWithSingleHeader(t *testing.T) {
	dir := t.TempDir()
	c, err := NewCSV(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		err := c.Trade(ctx, TradeRow{TS: ts, Event: "OPEN", Symbol: "BTCUSDT", Side: models.SideLong, Entry: 100, SL: 97.2, Qty: 1, ExitReason: "a,b"})
		if err != nil {
			t.Fatal(err)
		}
	}
	rows := readCSV(t, filepath.Join(dir, "trades.csv"))
	if len(rows) != 3 {
		t.Fatalf("rows %d", len(rows))
	}
	if rows[0][0] != "ts" || rows[1][0] != "2024-05-01T12:00:00Z" || rows[1][5] != "100" || rows[1][10] != "a,b" {
		t.Fatalf("rows %v", rows)
	}
}

func TestCSVVoteDetailsJSON(t *testing.T) {
	dir := t.TempDir()
	c, _ := NewCSV(dir)
	err := c.Vote(context.Background(), VoteRow{Symbol: "ETHUSDT", Score: 0.12, Side: models.SideLong, Details: models.DecisionDetails{Base: 0.1}})
	if err != nil {
		t.Fatal(err)
	}
	rows := readCSV(t, filepath.Join(dir, "votes.csv"))
	if got := rows[1][9]; len(got) == 0 || got[0] != '{' {
		t.Fatalf("details %q", got)
	}
	if len(rows[0]) != len(voteHeader) || len(rows[1]) != len(voteHeader) {
		t.Fatal("column count mismatch")
	}
}

type failing struct{ Nop }

func (failing) Cycle(context.Context, CycleRow) error { return errors.New("disk full") }

type counting struct {
	Nop
	n int
}

func (c *counting) Cycle(context.Context, CycleRow) error { c.n++; return nil }

func TestMultiContinuesAfterFailure(t *testing.T) {
	ok := &counting{}
	m := Multi{failing{}, ok}
	if err := m.Cycle(context.Background(), CycleRow{}); err == nil {
		t.Fatal("error must surface")
	}
	if ok.n != 1 {
		t.Fatal("second sink must still be written")
	}
}
