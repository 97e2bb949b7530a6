package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/deusflow/devbot/internal/app"
	"github.com/deusflow/devbot/internal/config"
	"github.com/deusflow/devbot/internal/gemini"
	"github.com/deusflow/devbot/internal/generation"
	"github.com/deusflow/devbot/internal/guard"
	"github.com/deusflow/devbot/internal/ledger"
	"github.com/deusflow/devbot/internal/llm"
	"github.com/deusflow/devbot/internal/logger"
	"github.com/deusflow/devbot/internal/metrics"
	"github.com/deusflow/devbot/internal/openai"
	"github.com/deusflow/devbot/internal/prompts"
	"github.com/deusflow/devbot/internal/ratelimit"
	"github.com/deusflow/devbot/internal/rss"
	"github.com/deusflow/devbot/internal/telegram"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the bot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runBot(ctx)
	},
}

func runBot(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger.Init(cfg.Debug)
	logger.Info("🚀 Starting devbot", "ledger_backend", cfg.LedgerBackend, "attempts", cfg.GenerationAttempts)

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	history := ledger.New(ctx, store, cfg.LedgerMaxTopics, logger.For("ledger"))

	limiter := ratelimit.NewAIRateLimiter(map[string]int{
		"gemini": cfg.MaxGeminiRequests,
		"openai": cfg.MaxOpenAIRequests,
	}, cfg.MaxAIRequests, logger.For("ratelimit"))

	gen, closeGen, err := buildGenerator(ctx, cfg, limiter)
	if err != nil {
		return err
	}
	defer closeGen()

	producer, err := generation.NewProducer(gen, history, cfg.GenerationAttempts, logger.For("generation"))
	if err != nil {
		return err
	}

	set, err := prompts.Load(cfg.PromptsFile)
	if err != nil {
		return err
	}

	var headlines app.Headlines
	if cfg.FeedsFile != "" {
		feeds, err := rss.LoadFeeds(cfg.FeedsFile)
		if err != nil {
			return fmt.Errorf("load feeds: %w", err)
		}
		headlines = rss.NewHeadlines(feeds, 10, 30*time.Minute, logger.For("rss"))
		logger.Info("Inspiration feeds loaded", "feeds", len(feeds))
	}

	bot, err := telegram.New(cfg.TelegramToken, logger.For("telegram"))
	if err != nil {
		return err
	}

	g := guard.New(logger.For("guard"))
	g.OnSweep = metrics.Global.AddStaleReleased
	runner := generation.NewRunner(g, logger.For("runner"))

	a, err := app.New(app.Deps{
		Messenger:      bot,
		Producer:       producer,
		Runner:         runner,
		History:        history,
		Prompts:        set,
		Headlines:      headlines,
		IsAllowed:      cfg.IsAllowed,
		TopicsPerBatch: cfg.TopicsPerBatch,
		SessionTTL:     cfg.SessionTTL,
		JobTimeout:     cfg.GenerationTimeout,
		Log:            logger.For("app"),
	})
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	background := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}
	background(func() { g.Run(ctx, cfg.SweepInterval, cfg.GenerationTimeout) })
	background(func() { a.Run(ctx, cfg.SweepInterval) })
	if cfg.EnableHTTPMonitoring {
		background(func() { startMonitoringServer(ctx, cfg.MonitoringPort, limiter) })
	}

	bot.Listen(ctx, func(u telegram.Update) {
		a.HandleUpdate(ctx, u)
	})
	if ctx.Err() == nil {
		metrics.Global.SetUnhealthy("telegram updates stopped")
		return errors.New("telegram updates channel closed")
	}

	logger.Info("Shutting down, waiting for running generations")
	runner.Wait()
	wg.Wait()
	logger.Info("👋 devbot stopped")
	return nil
}

// buildGenerator chains the configured providers: Gemini first, OpenAI as
// fallback, each under its daily budget and the per-call timeout.
func buildGenerator(ctx context.Context, cfg *config.Config, limiter *ratelimit.AIRateLimiter) (llm.Generator, func(), error) {
	var providers []llm.Provider
	closers := []func(){}
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	if cfg.GeminiAPIKey != "" {
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, client.Close)
		providers = append(providers, llm.Limited("gemini", llm.WithTimeout(client, cfg.RequestTimeout), limiter))
	}
	if cfg.OpenAIAPIKey != "" {
		client := openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		providers = append(providers, llm.Limited("openai", llm.WithTimeout(client, cfg.RequestTimeout), limiter))
	}
	if len(providers) == 0 {
		return nil, nil, errors.New("no text generator configured")
	}
	return llm.NewFallback(logger.For("llm"), providers...), closeAll, nil
}
