package console

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"stockwatch/internal/domain/stock"
)

var _ stock.Sink = (*Provider)(nil)

// Provider prints notifications instead of delivering them (dry runs, or when
// no delivery credentials are configured).
type Provider struct {
	mu  sync.Mutex
	out io.Writer
	n   int
}

// NewProvider creates a console provider writing to out.
func NewProvider(out io.Writer) *Provider {
	return &Provider{out: out}
}

// Name returns the sink identifier.
func (p *Provider) Name() string { return "console" }

// Send writes a preview of the plain-text message.
func (p *Provider) Send(ctx context.Context, msg *stock.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	rule := strings.Repeat("=", 50)
	body := msg.Text
	if body == "" {
		body = msg.HTML
	}
	if _, err := fmt.Fprintf(p.out, "\n%s\nDRY RUN - notification preview (to %q)\n%s\n%s\n%s\n",
		rule, msg.To, rule, body, rule); err != nil {
		return "", fmt.Errorf("writing preview: %w", err)
	}

	p.n++
	slog.Info("dry run: notification printed", "subject", msg.Subject)
	return fmt.Sprintf("dry-run-%d", p.n), nil
}
