package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/opsstack/incident-rca/internal/api"
	"github.com/opsstack/incident-rca/internal/cache"
	"github.com/opsstack/incident-rca/internal/classify"
	"github.com/opsstack/incident-rca/internal/config"
	"github.com/opsstack/incident-rca/internal/dispatch"
	"github.com/opsstack/incident-rca/internal/enrich"
	"github.com/opsstack/incident-rca/internal/knowledge"
	"github.com/opsstack/incident-rca/internal/llm"
	"github.com/opsstack/incident-rca/internal/metrics"
	"github.com/opsstack/incident-rca/internal/pipeline"
	"github.com/opsstack/incident-rca/internal/rca"
	"github.com/opsstack/incident-rca/internal/remediate"
	"github.com/opsstack/incident-rca/internal/utils"
)

func main() {
	var configPath string
	var logsPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.StringVar(&logsPath, "logs", "", "Analyze a log file and print the result instead of serving")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	var cacheProvider cache.Provider = cache.NoopProvider{}
	if cfg.Cache.Enabled && cfg.Cache.Addr != "" {
		provider, err := cache.NewValkeyProvider(cache.ValkeyConfig{
			Addr:         cfg.Cache.Addr,
			Username:     cfg.Cache.Username,
			Password:     cfg.Cache.Password,
			DB:           cfg.Cache.DB,
			DialTimeout:  cfg.Cache.DialTimeout,
			ReadTimeout:  cfg.Cache.ReadTimeout,
			WriteTimeout: cfg.Cache.WriteTimeout,
			MaxRetries:   cfg.Cache.MaxRetries,
			TLS:          cfg.Cache.TLS,
		})
		if err != nil {
			logger.Warn("valkey cache unavailable", slog.Any("error", err))
		} else {
			cacheProvider = provider
			defer provider.Close()
		}
	}

	var completer llm.Completer
	var embedder llm.Embedder
	if client := llm.NewOpenAIClient(cfg.Completion, cfg.Knowledge.EmbeddingModel, logger); client != nil {
		completer = client
		embedder = client
	} else {
		logger.Warn("no completion API key configured, running with fallback strategies")
	}

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	index := knowledge.BuildOrLoad(bootCtx, cfg.Knowledge.IndexPath, knowledge.SeedCorpus(), embedder, logger)
	bootCancel()

	var enricher *enrich.Enricher
	if cfg.Enrichment.Enabled {
		enricher = enrich.New(enrich.NewMockProvider(), cacheProvider, cfg.Cache.RecentIncidentsTTL, logger)
	}

	var delivery dispatch.Notifier
	if wh := dispatch.NewWebhookNotifier(cfg.Slack.WebhookURL, cfg.Slack.Timeout); wh != nil {
		delivery = wh
	}
	var tracker dispatch.TicketTracker
	if jt := dispatch.NewJiraTracker(cfg.Jira.BaseURL, cfg.Jira.Email, cfg.Jira.APIToken, cfg.Jira.Timeout); jt != nil {
		tracker = jt
	}

	orchestrator := pipeline.New(
		classify.New(completer, logger),
		remediate.New(index, enricher, completer, cfg.Knowledge.TopK, cfg.Pipeline.MaxPlans, logger),
		rca.New(completer, logger),
		dispatch.NewNotificationStage(delivery, cfg.Slack.ChannelID, cfg.Pipeline.NotifyLimit, logger),
		dispatch.NewTicketingStage(tracker, cfg.Jira.BaseURL, cfg.Jira.ProjectKey, cfg.Pipeline.MaxTickets, logger),
		dispatch.NewPlaybookBuilder(completer, cfg.Pipeline.PlaybookDir, logger),
		logger,
		pipeline.WithStageTimeout(cfg.Pipeline.StageTimeout),
	)

	if logsPath != "" {
		runOnce(orchestrator, logsPath, logger)
		return
	}

	logger.Info("starting incident-rca", slog.String("address", cfg.Server.Address))

	server := api.NewServer(cfg.Server, orchestrator, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("http server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	server.Shutdown(shutdownCtx)

	logger.Info("incident-rca stopped")
}

// runOnce analyzes a single log file and prints the full pipeline result.
func runOnce(orchestrator *pipeline.Orchestrator, path string, logger *slog.Logger) {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("failed to read log file", slog.String("path", path), slog.Any("error", err))
		os.Exit(1)
	}

	result := orchestrator.ProcessIncident(context.Background(), string(data))

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Error("failed to encode result", slog.Any("error", err))
		os.Exit(1)
	}
	fmt.Println(string(out))

	if !result.Success {
		os.Exit(1)
	}
}
