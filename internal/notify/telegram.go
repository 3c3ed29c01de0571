package notify

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"

	"signal_engine/internal/models"
	"signal_engine/pkg/logger"
)

// BookView: то, что бот показывает по командам.
type BookView interface {
	Positions() []models.Position
	Results() []models.CycleResult
	Guard(symbol string) (models.GuardState, bool)
}

// Reporter: итоги исполнения для /pnl.
type Reporter interface {
	Report() string
}

// Telegram: пассивный нотифайер + команды /positions и /status.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64
	view   BookView
	report Reporter
}

func NewTelegram(cfg TelegramConfig, view BookView) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, errors.Wrap(err, "telegram bot")
	}
	return &Telegram{bot: b, chatID: cfg.ChatID, view: view}, nil
}

// WithReport включает команду /pnl.
func (t *Telegram) WithReport(r Reporter) *Telegram {
	t.report = r
	return t
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Deliver(ctx context.Context, ev models.Event) error {
	return t.Send(ctx, t.chatID, Format(ev))
}

func (t *Telegram) Send(_ context.Context, chatID int64, msg string) error {
	if t == nil || t.bot == nil || chatID == 0 {
		return nil
	}
	_, err := t.bot.Send(tgbot.NewMessage(chatID, msg))
	return err
}

// Start читает апдейты до отмены ctx.
func (t *Telegram) Start(ctx context.Context) {
	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	updates := t.bot.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			t.handleUpdate(ctx, upd)
		}
	}
}

func (t *Telegram) Stop() { t.bot.StopReceivingUpdates() }

func (t *Telegram) handleUpdate(ctx context.Context, upd tgbot.Update) {
	reply, ok := t.reply(upd)
	if !ok {
		return
	}
	if err := t.Send(ctx, t.chatID, reply); err != nil {
		logger.Warn("[NOTIFY] telegram reply: %v", err)
	}
}

// reply: ответ на команду; чужие чаты игнорируются.
func (t *Telegram) reply(upd tgbot.Update) (string, bool) {
	msg := upd.Message
	if msg == nil || !msg.IsCommand() {
		return "", false
	}
	if msg.Chat == nil || msg.Chat.ID != t.chatID {
		logger.Debug("[NOTIFY] telegram: command from foreign chat ignored")
		return "", false
	}
	var reply string
	switch msg.Command() {
	case "positions":
		reply = FormatPositions(t.view.Positions())
	case "status":
		reply = FormatStatus(t.view.Results())
	case "guard":
		sym := strings.ToUpper(strings.TrimSpace(msg.CommandArguments()))
		if sym == "" {
			reply = "Формат: /guard BTCUSDT"
			break
		}
		g, ok := t.view.Guard(sym)
		reply = FormatGuard(sym, g, ok, time.Now())
	case "pnl":
		if t.report == nil {
			reply = "Исполнитель не подключён"
			break
		}
		reply = t.report.Report()
	case "start", "help":
		reply = "Команды: /positions, /status, /guard SYMBOL, /pnl"
	default:
		return "", false
	}
	return reply, true
}

func FormatPositions(ps []models.Position) string {
	if len(ps) == 0 {
		return "📭 Открытых позиций нет"
	}
	sort.Slice(ps, func(i, j int) bool { return ps[i].Symbol < ps[j].Symbol })
	var b strings.Builder
	b.WriteString("📊 Открытые позиции:\n")
	for _, p := range ps {
		fmt.Fprintf(&b, "- %s %s [%s] qty=%.6f @ %.4f sl=%.4f tp=%.4f\n",
			p.Symbol, p.Side, p.SizeType, p.Qty, p.Entry, p.SL, p.TP)
	}
	return b.String()
}

func FormatStatus(rs []models.CycleResult) string {
	if len(rs) == 0 {
		return "⏳ Циклов ещё не было"
	}
	sort.Slice(rs, func(i, j int) bool { return rs[i].Symbol < rs[j].Symbol })
	var b strings.Builder
	b.WriteString("🩺 Статус:\n")
	for _, r := range rs {
		fmt.Fprintf(&b, "- %s %s %s conf=%.2f flow=%.2f %s",
			r.Symbol, r.Status, r.Decision.Side, r.Decision.Confidence, r.VFIFlow, r.Class.Regime)
		if r.Err != "" {
			b.WriteString(" err=" + r.Err)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// FormatGuard: пауза поглощения и монитор уверенности по символу.
func FormatGuard(symbol string, g models.GuardState, ok bool, now time.Time) string {
	if !ok {
		return "❔ " + symbol + ": циклов ещё не было"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🛡 %s\n", symbol)
	if g.Paused(now) {
		fmt.Fprintf(&b, "- пауза до %s\n", g.PauseUntil.UTC().Format("15:04:05"))
	} else {
		b.WriteString("- паузы нет\n")
	}
	if m := g.Monitor; m != nil {
		fmt.Fprintf(&b, "- монитор %s peak=%.2f flow=%.2f с %s\n", m.Side, m.Peak, m.Flow, m.OpenedAt.UTC().Format("15:04"))
	}
	return b.String()
}
