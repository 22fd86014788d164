// Command harvester runs the priority-scheduling polite academic-metadata
// harvesting engine end to end: the Priority Queue, the Message Router, the
// Source Adapter Framework, the staged entity pipeline, the Tab Pool, and
// (on a recovery instance) the startup Recovery pass.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Gawain27/PubScraper/engine/adapter"
	"github.com/Gawain27/PubScraper/engine/browser"
	"github.com/Gawain27/PubScraper/engine/comm"
	"github.com/Gawain27/PubScraper/engine/domain"
	"github.com/Gawain27/PubScraper/engine/notify"
	"github.com/Gawain27/PubScraper/engine/pipeline"
	"github.com/Gawain27/PubScraper/engine/queue"
	"github.com/Gawain27/PubScraper/engine/recovery"
	"github.com/Gawain27/PubScraper/engine/router"
	"github.com/Gawain27/PubScraper/engine/statstore"
	"github.com/Gawain27/PubScraper/engine/status"
	"github.com/Gawain27/PubScraper/engine/store"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	configPath := flag.String("config", "", "path to a JSON config overlay (missing file falls back to defaults)")
	neo4jURL := flag.String("neo4j-url", envOr("NEO4J_URL", "neo4j://localhost:7687"), "Neo4j bolt URL")
	neo4jUser := flag.String("neo4j-user", envOr("NEO4J_USER", "neo4j"), "Neo4j username")
	neo4jPass := flag.String("neo4j-pass", envOr("NEO4J_PASS", "password"), "Neo4j password")
	seedsPath := flag.String("seeds", "", "path to a JSON file of {interface: [seed,...]} author/root seeds")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(*configPath, *neo4jURL, *neo4jUser, *neo4jPass, *seedsPath, logger); err != nil {
		logger.Error("harvester exited with error", "error", err)
		os.Exit(1)
	}
}

func run(configPath, neo4jURL, neo4jUser, neo4jPass, seedsPath string, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := domain.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	stats, err := statstore.Open(cfg.StatStorePath)
	if err != nil {
		return fmt.Errorf("open stat store: %w", err)
	}

	idGen := domain.NewIDGenerator(stats.MessageCounters())

	pq := queue.New(cfg.DepthMax, logger)
	rt := router.New(pq, idGen, router.Opts{
		MaxActiveThreads: cfg.MaxActiveThreads,
		MaxMsWorktime:    cfg.MaxMsWorktime,
		DebugDelay:       cfg.DebugDelay,
		DedupCapacity:    4096,
	}, logger)

	neo4jDriver, err := neo4j.NewDriverWithContext(neo4jURL, neo4j.BasicAuth(neo4jUser, neo4jPass, ""))
	if err != nil {
		return fmt.Errorf("neo4j driver: %w", err)
	}
	defer neo4jDriver.Close(ctx)
	docs := store.New(neo4jDriver, logger)

	sender := comm.New(cfg.ServerURL, cfg.EntityPort, logger)

	var nc *nats.Conn
	if cfg.NATSURL != "" {
		nc, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Close()
	}
	notifier := notify.New(nc, "harvester.events", logger)

	politeness := browser.NewController(
		secondsToDuration(cfg.MinWaitSeconds),
		secondsToDuration(cfg.MaxWaitSeconds),
		cfg.BanPenalty,
		cfg.AutoAdaptive,
	)
	go politeness.MonitorLoop(ctx)

	driver, err := newDriverFor(cfg.BrowserType)
	if err != nil {
		return fmt.Errorf("browser driver: %w", err)
	}
	tabs, err := browser.New(ctx, driver, politeness, browser.Opts{
		Capacity:      cfg.MaxIfaceRequests,
		CaptchaAction: cfg.CaptchaAction,
	}, logger)
	if err != nil {
		return fmt.Errorf("tab pool: %w", err)
	}

	fw := adapter.NewFramework(docs, rt, cfg, logger)
	fw.Register(adapter.NewAuthorSource(tabs, cfg.FavoredOrg))
	fw.Register(adapter.NewPublicationSource(tabs))
	fw.Register(adapter.NewConferenceSource(tabs))
	fw.Register(adapter.NewJournalSource(tabs))

	scraperQueue := adapter.NewScraperQueue(fw, stats, logger)
	scraperAsync := router.NewAsyncQueue(domain.QueueScraper, scraperQueue.OnMessage,
		cfg.MaxBufferRetries, secondsToDuration(float64(cfg.RetryTimeSeconds)), rt, logger)
	rt.Register(domain.QueueScraper, scraperAsync)

	stages := pipeline.NewStages(docs, rt, logger)
	sendWorker := pipeline.NewSendWorker(docs, sender, notifier, logger)
	go sendWorker.Run(ctx)

	pipelineAsync := router.NewAsyncQueue(domain.QueuePipeline, stages.OnMessage(sendWorker.Queue()),
		cfg.MaxBufferRetries, secondsToDuration(float64(cfg.RetryTimeSeconds)), rt, logger)
	rt.Register(domain.QueuePipeline, pipelineAsync)

	rt.Start(ctx)

	statusAddr := fmt.Sprintf("%s:%d", cfg.ServerURL, cfg.StatusPort)
	status.New(statusAddr, rt, sender, logger).Start(ctx)

	if cfg.RecoveryInstance {
		pass := recovery.New(docs, sender, notifier, logger)
		shipped, err := pass.Run(ctx)
		if err != nil {
			logger.Error("recovery pass failed", "error", err)
		} else {
			logger.Info("recovery pass complete", "shipped", shipped)
		}
	}

	seeds, err := loadSeeds(seedsPath)
	if err != nil {
		return fmt.Errorf("load seeds: %w", err)
	}
	fw.StartCollectors(ctx, seeds)

	<-ctx.Done()
	logger.Info("shutting down")
	rt.Stop()

	if err := stats.SaveMessageCounters(rt.IDCounters()); err != nil {
		logger.Error("stat store: save message counters failed", "error", err)
	}
	return nil
}
