package notify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"signal_engine/internal/models"
)

type recordSink struct {
	mu     sync.Mutex
	events []models.Event
	fail   bool
}

func (r *recordSink) Name() string { return "record" }

func (r *recordSink) Deliver(_ context.Context, ev models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	if r.fail {
		return errors.New("sink down")
	}
	return nil
}

func (r *recordSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestDispatcherDeliversToAllSinks(t *testing.T) {
	a, b := &recordSink{}, &recordSink{fail: true}
	d := NewDispatcher(Config{QueueSize: 10, PutTimeout: 10 * time.Millisecond}, b, a)

	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)

	for i := 0; i < 3; i++ {
		if !d.Publish(models.Event{Kind: models.EventPing}) {
			t.Fatalf("publish %d rejected", i)
		}
	}
	deadline := time.Now().Add(2 * time.Second)
	for a.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	_ = d.Wait(context.Background())

	if a.count() != 3 || b.count() != 3 {
		t.Fatalf("delivered a=%d b=%d, want 3/3 (failing sink must not stop others)", a.count(), b.count())
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	d := NewDispatcher(Config{QueueSize: 1, PutTimeout: 5 * time.Millisecond})

	if !d.Publish(models.Event{Kind: models.EventPing}) {
		t.Fatalf("first publish must fit")
	}
	start := time.Now()
	if d.Publish(models.Event{Kind: models.EventPing}) {
		t.Fatalf("second publish must be dropped")
	}
	if time.Since(start) > time.Second {
		t.Fatalf("publish blocked too long")
	}
	if d.Dropped() != 1 {
		t.Fatalf("dropped = %d, want 1", d.Dropped())
	}
}

func TestDispatcherDrainsOnStop(t *testing.T) {
	s := &recordSink{}
	d := NewDispatcher(Config{QueueSize: 10}, s)
	for i := 0; i < 4; i++ {
		d.Publish(models.Event{Kind: models.EventDecision})
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Run(ctx)
	if s.count() != 4 {
		t.Fatalf("drained %d events, want 4", s.count())
	}
}

func TestChunks(t *testing.T) {
	s := strings.Repeat("я", 4500)
	parts := Chunks(s, DiscordLimit-20)
	if len(parts) != 3 {
		t.Fatalf("parts = %d, want 3", len(parts))
	}
	for _, p := range parts {
		if n := len([]rune(p)); n > DiscordLimit-20 {
			t.Fatalf("chunk too long: %d", n)
		}
	}
	if strings.Join(parts, "") != s {
		t.Fatalf("chunks lost content")
	}
}

func TestNormalizeWebhook(t *testing.T) {
	cases := map[string]string{
		"https://discordapp.com/api/webhooks/1/abc":            "https://discord.com/api/webhooks/1/abc",
		"https://discord.com/api/webhooks/1/abc?foo=bar":       "https://discord.com/api/webhooks/1/abc",
		"https://discord.com/api/webhooks/1/abc?wait=true&x=1": "https://discord.com/api/webhooks/1/abc?wait=true",
		"  ": "",
	}
	for in, want := range cases {
		if got := NormalizeWebhook(in); got != want {
			t.Errorf("NormalizeWebhook(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDiscordSendsChunks(t *testing.T) {
	var (
		mu    sync.Mutex
		posts []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		var payload map[string]string
		_ = sonic.Unmarshal(b, &payload)
		mu.Lock()
		posts = append(posts, payload["content"])
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDiscord(DiscordConfig{Webhook: srv.URL, Username: "test"})
	if err := d.Send(context.Background(), strings.Repeat("x", 2500)); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("posts = %d, want 2", len(posts))
	}
}

func TestDiscordHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewDiscord(DiscordConfig{Webhook: srv.URL})
	if err := d.Deliver(context.Background(), models.Event{Kind: models.EventPing}); err == nil {
		t.Fatalf("expected error on 500")
	}
}

func TestFormat(t *testing.T) {
	got := Format(models.Event{Kind: models.EventDecision, Symbol: "BTCUSDT", Side: models.SideLong, Confidence: 0.123, Flow: -0.5})
	want := "📈 DECISION | BTCUSDT → **LONG** | conf=0.12 | flow=-0.50"
	if got != want {
		t.Fatalf("Format = %q, want %q", got, want)
	}
	if !strings.HasPrefix(Format(models.Event{Kind: models.EventError, Reason: "x"}), "🚨 ERROR") {
		t.Fatalf("error format")
	}
}

func TestFormatStatusAndPositions(t *testing.T) {
	if !strings.Contains(FormatPositions(nil), "нет") {
		t.Fatalf("empty positions message")
	}
	out := FormatPositions([]models.Position{
		{Symbol: "ETHUSDT", Side: models.SideShort, SizeType: models.SizeProbe, Qty: 1},
		{Symbol: "BTCUSDT", Side: models.SideLong, SizeType: models.SizeFull, Qty: 2},
	})
	if strings.Index(out, "BTCUSDT") > strings.Index(out, "ETHUSDT") {
		t.Fatalf("positions must be sorted by symbol:\n%s", out)
	}
	st := FormatStatus([]models.CycleResult{{Symbol: "BTCUSDT", Status: models.StatusError, Err: "boom"}})
	if !strings.Contains(st, "err=boom") {
		t.Fatalf("status must include error: %s", st)
	}
}

func TestFormatGuard(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if !strings.Contains(FormatGuard("BTCUSDT", models.GuardState{}, false, now), "циклов ещё не было") {
		t.Fatal("unknown symbol message")
	}
	g := models.GuardState{
		PauseUntil: now.Add(30 * time.Second),
		Monitor:    &models.SignalMonitor{Side: models.SideLong, Peak: 0.42, OpenedAt: now.Add(-time.Hour)},
	}
	out := FormatGuard("BTCUSDT", g, true, now)
	if !strings.Contains(out, "пауза до 12:00:30") || !strings.Contains(out, "peak=0.42") {
		t.Fatalf("guard format:\n%s", out)
	}
	if out := FormatGuard("BTCUSDT", g, true, now.Add(time.Minute)); !strings.Contains(out, "паузы нет") {
		t.Fatalf("expired pause:\n%s", out)
	}
}

type fakeBook struct{}

func (fakeBook) Positions() []models.Position { return nil }
func (fakeBook) Results() []models.CycleResult {
	return []models.CycleResult{{Symbol: "BTCUSDT", Status: models.StatusOK}}
}
func (fakeBook) Guard(string) (models.GuardState, bool) { return models.GuardState{}, false }

func command(chatID int64, text string) tgbot.Update {
	return tgbot.Update{Message: &tgbot.Message{
		Text:     text,
		Chat:     &tgbot.Chat{ID: chatID},
		Entities: []tgbot.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
	}}
}

func TestTelegramRepliesOnlyToOwnChat(t *testing.T) {
	tg := &Telegram{chatID: 42, view: fakeBook{}}

	if out, ok := tg.reply(command(42, "/status")); !ok || !strings.Contains(out, "BTCUSDT") {
		t.Fatalf("own chat: ok=%v reply=%q", ok, out)
	}
	if _, ok := tg.reply(command(7, "/status")); ok {
		t.Fatalf("foreign chat must be ignored")
	}
	if _, ok := tg.reply(command(42, "/unknown")); ok {
		t.Fatalf("unknown command must be ignored")
	}
	if out, ok := tg.reply(command(42, "/pnl")); !ok || !strings.Contains(out, "не подключён") {
		t.Fatalf("pnl without reporter: %q", out)
	}
}
