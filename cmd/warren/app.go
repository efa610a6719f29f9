package main

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/warrenhq/warren"
	anthropicAdapter "github.com/warrenhq/warren/internal/adapters/anthropic"
	"github.com/warrenhq/warren/internal/adapters/memory"
	redisAdapter "github.com/warrenhq/warren/internal/adapters/redis"
	"github.com/warrenhq/warren/internal/adapters/scripted"
	supabaseAdapter "github.com/warrenhq/warren/internal/adapters/supabase"
	"github.com/warrenhq/warren/internal/config"
	"github.com/warrenhq/warren/internal/logging"
	"github.com/warrenhq/warren/pkg/convo"
	"github.com/warrenhq/warren/pkg/decision"
	"github.com/warrenhq/warren/pkg/ports"
)

// wiring is everything a command needs beyond the App itself.
type wiring struct {
	app    *warren.App
	cfg    *config.Config
	logger *slog.Logger
	reg    *prometheus.Registry
	reader ports.TransitionReader
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// buildApp assembles the engine from the environment configuration and the
// command's flags.
func buildApp(cmd *cobra.Command) (*wiring, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if flow, _ := cmd.Flags().GetString("flow"); flow != "" {
		cfg.FlowPath = flow
	}

	logger := logging.New(logLevel(cfg.LogLevel))
	reg := prometheus.NewRegistry()

	w := &wiring{cfg: cfg, logger: logger, reg: reg}

	opts := []warren.Option{
		warren.WithLogger(logger),
		warren.WithMetricsRegistry(reg),
		warren.WithEngineOptions(
			decision.WithTimeout(cfg.ModelTimeout),
			decision.WithPolicy(decision.DefaultPolicy(cfg.MinConfidence)),
		),
		warren.WithConversationConfig(convo.Config{
			FailureThreshold: cfg.FailureThreshold,
			AbandonAfter:     cfg.AbandonAfter,
		}),
	}

	if cfg.AnthropicAPIKey != "" {
		model, err := anthropicAdapter.New(cfg.AnthropicAPIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		opts = append(opts, warren.WithModelClient(model))
	} else {
		logger.Warn("ANTHROPIC_API_KEY not set, using the scripted model client")
		opts = append(opts, warren.WithModelClient(scripted.New(scripted.DefaultRules()...)))
	}

	switch cfg.SinkDriver {
	case "memory":
		sink := memory.NewSink()
		w.reader = sink
		opts = append(opts, warren.WithSink(sink))
	case "redis":
		sink := redisAdapter.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		w.reader = sink
		opts = append(opts, warren.WithSink(sink))
	case "supabase":
		sink, err := supabaseAdapter.New(cfg.SupabaseURL, cfg.SupabaseKey,
			supabaseAdapter.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		w.reader = sink
		opts = append(opts, warren.WithSink(sink), warren.WithNotifier(sink))
	default:
		return nil, fmt.Errorf("unknown sink driver %q", cfg.SinkDriver)
	}

	app, err := warren.New(cfg.FlowPath, opts...)
	if err != nil {
		return nil, err
	}
	w.app = app
	return w, nil
}
