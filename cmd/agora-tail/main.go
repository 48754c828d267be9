// Copyright 2026 The Agora Authors
// SPDX-License-Identifier: Apache-2.0

// agora-tail connects to an Agora realtime endpoint and logs every
// cache mutation the event stream produces. It is a diagnostic tool:
// point it at a server, join some topics, and watch the reconciled
// state change key by key.
//
// Configuration comes from a YAML file (--config flag or AGORA_CONFIG
// environment variable); --server, --token, and --topic override it
// from the command line.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/agora-collective/agora/cache"
	"github.com/agora-collective/agora/lib/codec"
	"github.com/agora-collective/agora/lib/config"
	"github.com/agora-collective/agora/realtime"
	"github.com/agora-collective/agora/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "agora-tail: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath string
		serverURL  string
		token      string
		topics     []string
		verbose    bool
	)
	pflag.StringVar(&configPath, "config", "", "path to agora.yaml (defaults to AGORA_CONFIG)")
	pflag.StringVar(&serverURL, "server", "", "websocket endpoint, overrides the config file")
	pflag.StringVar(&token, "token", "", "connection credential, overrides the config file")
	pflag.StringArrayVar(&topics, "topic", nil, "discussion topic to join (repeatable), overrides the config file")
	pflag.BoolVar(&verbose, "verbose", false, "enable debug logging")
	pflag.Parse()

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := loadConfig(configPath, serverURL)
	if err != nil {
		return err
	}
	if serverURL != "" {
		cfg.Server.URL = serverURL
	}
	if token != "" {
		cfg.Server.Token = token
	}
	if len(topics) > 0 {
		cfg.Topics = topics
	}

	wireCodec := codec.JSON()
	if cfg.Server.Codec == "cbor" {
		wireCodec = codec.CBOR()
	}

	store := cache.NewMemoryStore()
	store.OnChange = func(key string) {
		value, ok := store.Get(key)
		if !ok {
			logger.Info("cache delete", "key", key)
			return
		}
		logger.Info("cache change", "key", key, "value", fmt.Sprintf("%+v", value))
	}
	store.OnInvalidate = func(tag string) {
		logger.Info("cache invalidate", "tag", tag)
	}

	client, err := realtime.New(realtime.Config{
		Dialer: &transport.WebsocketDialer{
			URL:          cfg.Server.URL,
			Codec:        wireCodec,
			PingInterval: cfg.Timing.PingInterval,
			Logger:       logger,
		},
		Codec:       wireCodec,
		Store:       store,
		FlushWindow: cfg.Timing.FlushWindow,
		TypingTTL:   cfg.Timing.TypingTTL,
		OnStateChange: func(state realtime.State) {
			logger.Info("connection state", "state", state.String())
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := client.Connect(ctx, cfg.Server.Token); err != nil {
		return err
	}
	for _, topic := range cfg.Topics {
		if err := client.Join(topic); err != nil {
			logger.Warn("join failed", "topic", topic, "error", err)
		}
	}

	<-ctx.Done()
	logger.Info("shutting down")
	return client.Disconnect()
}

// loadConfig loads the YAML config. A --server flag with no config
// file present is enough to run; everything else defaults.
func loadConfig(path, serverURL string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	if os.Getenv("AGORA_CONFIG") != "" {
		return config.Load()
	}
	if serverURL == "" {
		return nil, fmt.Errorf("no configuration: pass --config, set AGORA_CONFIG, or pass --server")
	}
	return &config.Config{Environment: config.Development}, nil
}
