package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"stockwatch/internal/domain/stock"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"
)

var _ stock.Sink = (*Provider)(nil)

// MaxMessageLength is the Telegram limit for one text message, in characters.
const MaxMessageLength = 4096

var tagRe = regexp.MustCompile(`<[^>]*>`)

// Config holds Telegram bot settings.
type Config struct {
	Token     string
	ChannelID string

	// APIURL overrides the Bot API endpoint (self-hosted Bot API servers, tests).
	APIURL string

	DisablePreview bool
	Timeout        time.Duration

	// MessagesPerSecond paces multi-part messages. Telegram allows roughly
	// one message per second per chat.
	MessagesPerSecond float64
}

// Provider delivers notifications through the Telegram Bot API.
type Provider struct {
	cfg     Config
	bot     *tele.Bot
	limiter *rate.Limiter
}

// channel is a tele.Recipient for either a numeric chat ID or an @username.
type channel string

func (c channel) Recipient() string { return string(c) }

// NewProvider creates a new Telegram provider. The bot is created offline so
// no request is made until the first Send.
func NewProvider(cfg Config) (*Provider, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if strings.TrimSpace(cfg.ChannelID) == "" {
		return nil, errors.New("telegram channel id is empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MessagesPerSecond <= 0 {
		cfg.MessagesPerSecond = 1
	}

	b, err := tele.NewBot(tele.Settings{
		URL:     cfg.APIURL,
		Token:   cfg.Token,
		Client:  &http.Client{Timeout: cfg.Timeout},
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}

	return &Provider{
		cfg:     cfg,
		bot:     b,
		limiter: rate.NewLimiter(rate.Limit(cfg.MessagesPerSecond), 1),
	}, nil
}

// Name returns the sink identifier.
func (p *Provider) Name() string { return "telegram" }

// Send delivers the message, splitting it on item boundaries when it exceeds
// the Telegram length limit. The returned ID is the first part's message ID.
func (p *Provider) Send(ctx context.Context, msg *stock.Message) (string, error) {
	to := msg.To
	if to == "" {
		to = p.cfg.ChannelID
	}

	opts := &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		DisableWebPagePreview: p.cfg.DisablePreview,
	}

	var firstID string
	for i, part := range Split(msg.HTML, MaxMessageLength) {
		if err := p.limiter.Wait(ctx); err != nil {
			return firstID, fmt.Errorf("waiting to send part %d: %w", i+1, err)
		}
		if err := ctx.Err(); err != nil {
			return firstID, err
		}

		sent, err := p.bot.Send(channel(to), part, opts)
		if err != nil {
			return firstID, fmt.Errorf("telegram: sending part %d: %w", i+1, err)
		}
		if firstID == "" && sent != nil {
			firstID = strconv.Itoa(sent.ID)
		}
	}
	return firstID, nil
}

// Split breaks body into chunks of at most limit characters. Chunks are cut
// on blank lines so an item block is never split across messages; a single
// block longer than limit is reduced to escaped plain text and truncated, so
// no tag is ever cut in half.
func Split(body string, limit int) []string {
	if utf8.RuneCountInString(body) <= limit {
		return []string{body}
	}

	var (
		parts   []string
		current strings.Builder
		size    int
	)
	flush := func() {
		if current.Len() > 0 {
			parts = append(parts, current.String())
			current.Reset()
			size = 0
		}
	}

	for _, block := range strings.Split(body, "\n\n") {
		n := utf8.RuneCountInString(block)
		if n > limit {
			block = truncate(block, limit)
			n = utf8.RuneCountInString(block)
		}
		sep := 0
		if size > 0 {
			sep = 2
		}
		if size+sep+n > limit {
			flush()
			sep = 0
		}
		if sep > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(block)
		size += sep + n
	}
	flush()
	return parts
}

func truncate(block string, limit int) string {
	text := html.UnescapeString(tagRe.ReplaceAllString(block, ""))

	var b strings.Builder
	n := 0
	for _, r := range text {
		esc := html.EscapeString(string(r))
		w := utf8.RuneCountInString(esc)
		if n+w > limit-1 {
			b.WriteString("…")
			return b.String()
		}
		b.WriteString(esc)
		n += w
	}
	return b.String()
}
