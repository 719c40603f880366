package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"stockwatch/internal/common"
	"stockwatch/internal/config"
	"stockwatch/internal/domain/stock"
	"stockwatch/internal/infra/console"
	"stockwatch/internal/infra/source"
	"stockwatch/internal/infra/store"
	"stockwatch/internal/infra/telegram"
)

// openStore opens the configured state backend and verifies it answers
// within the store timeout.
func openStore(ctx context.Context, cfg *config.Config) (store.Backend, error) {
	backend, err := store.Open(store.Config{
		Driver:    cfg.Storage.Driver,
		Namespace: cfg.Storage.Namespace,
		Redis: store.RedisOptions{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			DB:       cfg.Redis.DB,
			Password: cfg.Redis.Password,
			SSL:      cfg.Redis.SSL,
			StateTTL: time.Duration(cfg.Redis.StateTTLSec) * time.Second,
			Timeout:  cfg.Timeouts.Store(),
		},
		SQLitePath:         cfg.SQLite.Path,
		SQLiteBusyTimeout:  time.Duration(cfg.SQLite.BusyTimeoutMS) * time.Millisecond,
		SupabaseURL:        cfg.Supabase.URL,
		SupabaseServiceKey: cfg.Supabase.ServiceKey,
	})
	if err != nil {
		return nil, common.NewStoreUnavailableError("open", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeouts.Store())
	defer cancel()
	if err := backend.Ping(pingCtx); err != nil {
		_ = backend.Close()
		return nil, common.NewStoreUnavailableError("ping", err)
	}

	slog.Info("state store connected", "driver", driverName(cfg.Storage.Driver), "namespace", cfg.Storage.Namespace)
	return backend, nil
}

func newSource(cfg *config.Config) stock.Source {
	if strings.EqualFold(cfg.Source.Driver, "file") {
		return source.NewFileSource(cfg.Source.File, cfg.Source.BaseURL)
	}
	return source.NewHTTPSource(cfg.Source.BaseURL, cfg.Source.Category, cfg.Source.Limit, cfg.Timeouts.Source())
}

// newSink returns the Telegram sink, or the console sink for dry runs and
// when Telegram credentials are missing.
func newSink(cfg *config.Config, dryRun bool, out io.Writer) (stock.Sink, error) {
	if dryRun {
		slog.Info("dry run enabled, notifications will be printed")
		return console.NewProvider(out), nil
	}
	if !cfg.Telegram.Configured() {
		slog.Warn("telegram credentials are not set, printing notifications instead")
		return console.NewProvider(out), nil
	}

	p, err := telegram.NewProvider(telegram.Config{
		Token:             cfg.Telegram.BotToken,
		ChannelID:         cfg.Telegram.ChannelID,
		APIURL:            cfg.Telegram.APIURL,
		DisablePreview:    cfg.Telegram.DisablePreview,
		Timeout:           cfg.Timeouts.Sink(),
		MessagesPerSecond: cfg.Telegram.MessagesPerSecond,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing telegram sink: %w", err)
	}
	return p, nil
}

func driverName(d string) string {
	if d == "" {
		return "redis"
	}
	return strings.ToLower(d)
}
