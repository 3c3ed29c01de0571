package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"signal_engine/internal/models"
)

// DiscordLimit: лимит символов одного сообщения.
const DiscordLimit = 2000

// Discord: отправка через webhook.
type Discord struct {
	webhook  string
	username string
	http     *http.Client
}

func NewDiscord(cfg DiscordConfig) *Discord {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 6 * time.Second
	}
	return &Discord{
		webhook:  NormalizeWebhook(cfg.Webhook),
		username: orDefault(cfg.Username, "signal-engine"),
		http:     &http.Client{Timeout: timeout},
	}
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) Deliver(ctx context.Context, ev models.Event) error {
	return d.Send(ctx, Format(ev))
}

func (d *Discord) Send(ctx context.Context, content string) error {
	if d.webhook == "" {
		return errors.New("discord webhook is not configured")
	}
	for _, part := range Chunks(content, DiscordLimit-20) {
		if err := d.post(ctx, part); err != nil {
			return err
		}
	}
	return nil
}

func (d *Discord) post(ctx context.Context, content string) error {
	body, err := sonic.Marshal(map[string]string{
		"username": d.username,
		"content":  content,
	})
	if err != nil {
		return err
	}
	code, err := d.do(ctx, d.webhook, body)
	if err != nil {
		return err
	}
	// 403/404: пробуем ещё раз с ?wait=true
	if code == http.StatusForbidden || code == http.StatusNotFound {
		retry := d.webhook
		if !strings.Contains(retry, "wait=") {
			sep := "?"
			if strings.Contains(retry, "?") {
				sep = "&"
			}
			retry += sep + "wait=true"
		}
		if retry != d.webhook {
			d.webhook = retry
			if code, err = d.do(ctx, retry, body); err != nil {
				return err
			}
		}
	}
	if code/100 != 2 {
		return fmt.Errorf("discord responded with http %d", code)
	}
	return nil
}

func (d *Discord) do(ctx context.Context, url string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "signal-engine/1.0")
	resp, err := d.http.Do(req)
	if err != nil {
		return 0, errors.Wrap(err, "discord post")
	}
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}

// NormalizeWebhook: discordapp.com → discord.com, лишний query отрезается
// (кроме wait=true).
func NormalizeWebhook(url string) string {
	u := strings.TrimSpace(url)
	if u == "" {
		return ""
	}
	u = strings.Replace(u, "://discordapp.com", "://discord.com", 1)
	if strings.Contains(u, "/api/webhooks/") {
		base, query, _ := strings.Cut(u, "?")
		if strings.Contains(query, "wait=true") {
			return base + "?wait=true"
		}
		return base
	}
	return u
}
