package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"stockwatch/internal/domain/stock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type botAPI struct {
	mu       sync.Mutex
	requests []map[string]any
	paths    []string
	fail     bool
}

func (a *botAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	a.mu.Lock()
	a.requests = append(a.requests, body)
	a.paths = append(a.paths, r.URL.Path)
	n := len(a.requests)
	a.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if a.fail {
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ok": true,
		"result": map[string]any{
			"message_id": 41 + n,
			"date":       1760000000,
			"chat":       map[string]any{"id": -100, "type": "channel"},
		},
	})
}

func newTestProvider(t *testing.T, api *botAPI) *Provider {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	p, err := NewProvider(Config{
		Token:             "123:abc",
		ChannelID:         "@stock_alerts",
		APIURL:            srv.URL,
		DisablePreview:    true,
		MessagesPerSecond: 1000,
	})
	require.NoError(t, err)
	return p
}

func TestNewProvider_RequiresCredentials(t *testing.T) {
	_, err := NewProvider(Config{ChannelID: "@c"})
	assert.Error(t, err)
	_, err = NewProvider(Config{Token: "123:abc"})
	assert.Error(t, err)
}

func TestProvider_SendsHTML(t *testing.T) {
	api := &botAPI{}
	p := newTestProvider(t, api)

	id, err := p.Send(context.Background(), &stock.Message{
		Subject: "New Products Available!",
		HTML:    "<b>🎉 New Products Available!</b>\n\n• <b>Whey</b>",
	})
	require.NoError(t, err)
	assert.Equal(t, "42", id)

	require.Len(t, api.requests, 1)
	assert.Equal(t, "/bot123:abc/sendMessage", api.paths[0])
	req := api.requests[0]
	assert.Equal(t, "@stock_alerts", req["chat_id"], "falls back to the configured channel")
	assert.Equal(t, "HTML", req["parse_mode"])
	assert.Contains(t, req["text"], "<b>Whey</b>")
}

func TestProvider_SplitsLongMessages(t *testing.T) {
	api := &botAPI{}
	p := newTestProvider(t, api)

	block := "• <b>" + strings.Repeat("x", 1500) + "</b>"
	html := strings.Join([]string{block, block, block, block}, "\n\n")

	id, err := p.Send(context.Background(), &stock.Message{To: "-100123", HTML: html})
	require.NoError(t, err)
	assert.Equal(t, "42", id, "the first part's id is returned")

	require.Len(t, api.requests, 2)
	for _, req := range api.requests {
		assert.Equal(t, "-100123", req["chat_id"])
		assert.LessOrEqual(t, utf8.RuneCountInString(req["text"].(string)), MaxMessageLength)
	}
}

func TestProvider_APIError(t *testing.T) {
	api := &botAPI{fail: true}
	p := newTestProvider(t, api)

	_, err := p.Send(context.Background(), &stock.Message{HTML: "hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestProvider_CanceledContext(t *testing.T) {
	api := &botAPI{}
	p := newTestProvider(t, api)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Send(ctx, &stock.Message{HTML: "hello"})
	assert.Error(t, err)
	assert.Empty(t, api.requests)
}

func TestSplit(t *testing.T) {
	t.Run("short body is untouched", func(t *testing.T) {
		assert.Equal(t, []string{"a\n\nb"}, Split("a\n\nb", 10))
	})

	t.Run("cuts on blank lines", func(t *testing.T) {
		parts := Split("aaaa\n\nbbbb\n\ncccc", 10)
		assert.Equal(t, []string{"aaaa\n\nbbbb", "cccc"}, parts)
	})

	t.Run("truncates oversized blocks", func(t *testing.T) {
		parts := Split("ab\n\n"+strings.Repeat("é", 20), 8)
		require.Len(t, parts, 2)
		assert.Equal(t, "ab", parts[0])
		assert.Equal(t, strings.Repeat("é", 7)+"…", parts[1])
	})

	t.Run("oversized blocks never cut a tag", func(t *testing.T) {
		block := "• <b>" + strings.Repeat("x", 20) + "</b>\n  <a href=\"https://shop/x\">Open product</a>"
		parts := Split("ab\n\n"+block, 12)
		require.Len(t, parts, 2)
		assert.Equal(t, "• "+strings.Repeat("x", 9)+"…", parts[1])
		assert.NotContains(t, parts[1], "<")
	})

	t.Run("plain text fallback stays escaped", func(t *testing.T) {
		parts := Split("ab\n\n<b>Milk &amp; Honey &lt;500g&gt; pack</b>", 20)
		require.Len(t, parts, 2)
		assert.Equal(t, "Milk &amp; Honey …", parts[1])
		assert.LessOrEqual(t, utf8.RuneCountInString(parts[1]), 20)
	})
}
