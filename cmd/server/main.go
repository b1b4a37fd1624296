package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
	"golang.org/x/sync/semaphore"

	apihttp "matchcast/internal/api/http"
	"matchcast/internal/app"
	"matchcast/internal/fileserver"
	"matchcast/internal/metrics"
	"matchcast/internal/pingcache"
	mongorepo "matchcast/internal/repository/mongo"
	"matchcast/internal/telemetry"
	"matchcast/internal/transcoder/ffmpeg"
	"matchcast/internal/usecase"
)

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "matchcast")
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", "matchcast"),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.String("storageRoot", cfg.VideoStorageRoot),
		slog.String("ffmpeg", cfg.FFmpegPath),
		slog.Int("maxConcurrentStreams", cfg.MaxConcurrentStreams),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(rootCtx, 10*time.Second)
	defer cancel()

	mongoClient, err := mongorepo.Connect(ctx, cfg.MongoURI, options.Client().SetMonitor(otelmongo.NewMonitor()))
	if err != nil {
		logger.Error("mongo connect failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := mongoClient.Ping(ctx, readpref.Primary()); err != nil {
		logger.Error("mongo ping failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	locatorRepo := mongorepo.NewLocatorRepository(mongoClient, cfg.MongoDatabase)
	playlistRepo := mongorepo.NewPlaylistRepository(mongoClient, cfg.MongoDatabase, locatorRepo)
	eventRepo := mongorepo.NewEventRepository(mongoClient, cfg.MongoDatabase)
	for _, ensure := range []func(context.Context) error{
		locatorRepo.EnsureIndexes, playlistRepo.EnsureIndexes, eventRepo.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			logger.Warn("mongo ensure indexes failed", slog.String("error", err.Error()))
		}
	}

	files := fileserver.NewManager(logger)
	for _, host := range cfg.FileServerHosts {
		files.Register(&fileserver.DirectServer{
			Name:     host,
			Host:     host,
			Interval: cfg.RefreshInterval,
		})
	}

	var cache usecase.PingCache = pingcache.NewMemory()
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		redisCache := pingcache.NewRedis(redisClient, cfg.RedisPingTTL, logger)
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn("redis unreachable, using in-memory ping cache", slog.String("error", err.Error()))
		} else {
			cache = redisCache
		}
	}

	transcoder := ffmpeg.New(cfg.FFmpegPath, cfg.SegmentSeconds, cfg.StreamCopy, logger)
	registry := usecase.NewJobRegistry()

	selector := &usecase.Selector{Files: files}
	locators := &usecase.LocatorService{
		Repo:             locatorRepo,
		PlaylistFileName: cfg.PlaylistFileName,
		Log:              logger,
	}
	playlists := &usecase.PlaylistService{
		Repo:        playlistRepo,
		Locators:    locators,
		Selector:    selector,
		StorageRoot: cfg.VideoStorageRoot,
		Log:         logger,
	}

	worker := &usecase.StreamWorker{
		Transcoder: transcoder,
		Files:      files,
		Locators:   locators,
		Registry:   registry,
		Log:        logger,
	}
	if cfg.MaxConcurrentStreams > 0 {
		worker.Slots = semaphore.NewWeighted(int64(cfg.MaxConcurrentStreams))
	}

	orchestrator := &usecase.Orchestrator{
		Playlists:    playlists,
		Locators:     locators,
		Worker:       worker,
		Registry:     registry,
		Log:          logger,
		PollInterval: cfg.PollInterval,
		MaxPollWait:  cfg.MaxPollWait,
	}

	advisor := &usecase.DelayAdvisor{
		Files:           files,
		Cache:           cache,
		Log:             logger,
		DefaultPing:     cfg.DefaultPing,
		StartupOverhead: cfg.StartupOverhead,
		ReadyThreshold:  cfg.ReadyThreshold,
		DialTimeout:     cfg.PingDialTimeout,
	}

	streaming := &usecase.StreamingService{
		Events:       eventRepo,
		Selector:     selector,
		Playlists:    playlists,
		Orchestrator: orchestrator,
		Advisor:      advisor,
		Log:          logger,
		URIPattern:   "/locators/%d/playlist.m3u8",
	}

	server := apihttp.NewServer(streaming,
		apihttp.WithPlaylistFiles(orchestrator),
		apihttp.WithFileServerAdmin(files),
		apihttp.WithLogger(logger),
		apihttp.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)
	defer server.Close()
	locators.Notifier = server.Notifier()

	// Repair state left behind by an unclean shutdown before serving.
	reconciler := &usecase.Reconciler{
		Playlists: playlists,
		Locators:  locators,
		Registry:  registry,
		Log:       logger,
	}
	reconciler.Sweep(ctx)

	pruner := &usecase.Pruner{
		Playlists:    playlists,
		Orchestrator: orchestrator,
		Log:          logger,
		Retention:    cfg.StreamRetention,
	}
	go pruner.Run(rootCtx, cfg.PruneInterval)

	go func() {
		advisor.PingEnabledServers(rootCtx)
		ticker := time.NewTicker(cfg.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-rootCtx.Done():
				return
			case <-ticker.C:
				advisor.PingEnabledServers(rootCtx)
			}
		}
	}()

	logger.Info("http server starting", slog.String("addr", cfg.HTTPAddr))
	if err := server.ListenAndServe(rootCtx, cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", slog.String("error", err.Error()))
	}

	// Stop every live job so ffmpeg finalizes its playlists before exit.
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	killed := orchestrator.KillAll(shutdownCtx)
	if n := transcoder.ActiveCount(); n > 0 {
		logger.Warn("transcodes still draining", slog.Int("count", n))
	}
	logger.Info("shutdown complete", slog.Int("jobsKilled", killed))

	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		logger.Warn("mongo disconnect failed", slog.String("error", err.Error()))
	}
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
