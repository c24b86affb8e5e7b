package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jungeol66104/firework-web-sub001/internal/ai"
	"github.com/jungeol66104/firework-web-sub001/internal/config"
	httpserver "github.com/jungeol66104/firework-web-sub001/internal/http"
	"github.com/jungeol66104/firework-web-sub001/internal/http/handlers"
	"github.com/jungeol66104/firework-web-sub001/internal/queue"
	"github.com/jungeol66104/firework-web-sub001/internal/repository"
	"github.com/jungeol66104/firework-web-sub001/internal/service"
	"github.com/jungeol66104/firework-web-sub001/internal/worker"
)

type repositories struct {
	Jobs          repository.JobsRepository
	Ledger        repository.TokenLedger
	Versions      repository.VersionsRepository
	Interviews    repository.InterviewsRepository
	Notifications repository.NotificationsRepository
}

func main() {
	logger := log.New(os.Stdout, "[qa-pipeline] ", log.LstdFlags|log.LUTC|log.Lmicroseconds)
	if err := config.LoadDotEnv(".env", ".env.local"); err != nil {
		logger.Printf("failed loading .env files: %v", err)
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, repoCloser := setupRepositories(ctx, cfg, logger)
	defer repoCloser()

	dispatcher, consumer, queueCloser := setupQueue(ctx, cfg, logger)
	defer queueCloser()

	geminiClient := ai.NewGeminiClient(ai.GeminiClientConfig{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL + "/v1beta",
		Models:     cfg.GeminiModels,
		MaxRetries: cfg.GeminiMaxRetries,
		Timeout:    time.Duration(cfg.GeminiTimeoutMS) * time.Millisecond,
	})

	tokenService := service.NewTokenService(repos.Ledger)
	generationService := service.NewGenerationService(geminiClient, logger)
	jobsService := service.NewJobsService(repos.Jobs, tokenService, dispatcher)

	processor := worker.NewProcessor(worker.Dependencies{
		Jobs:          repos.Jobs,
		Tokens:        tokenService,
		Interviews:    repos.Interviews,
		Versions:      repos.Versions,
		Notifications: repos.Notifications,
		Generation:    generationService,
		Logger:        logger,
	})

	api := handlers.NewAPI(jobsService, tokenService, repos.Versions, processor)
	handler := httpserver.NewRouter(httpserver.RouterDependencies{
		API:               api,
		Logger:            logger,
		AuthToken:         cfg.AuthToken,
		WebhookSigningKey: cfg.QStashSigningKey,
		CORSOrigins:       cfg.CORSAllowedOrigins,
		RateLimitRPS:      cfg.RateLimitRPS,
		RateLimitBurst:    cfg.RateLimitBurst,
	})

	if cfg.WorkerEnabled && consumer != nil {
		go processor.Start(ctx, consumer)
		logger.Printf("worker enabled and started")
	} else if consumer == nil {
		logger.Printf("hosted broker delivers over webhooks, no in-process worker")
	} else {
		logger.Printf("worker disabled by configuration")
	}

	if cfg.JanitorEnabled {
		janitor := worker.NewJanitor(
			repos.Jobs,
			time.Duration(cfg.JobRetentionDays)*24*time.Hour,
			time.Duration(cfg.JanitorIntervalHours)*time.Hour,
			logger,
		)
		go janitor.Run(ctx)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Printf("api listening on :%s", cfg.Port)
		errChan <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Printf("shutdown signal received")
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("server failed: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	}
}

func setupRepositories(
	ctx context.Context,
	cfg config.Config,
	logger *log.Logger,
) (repositories, func()) {
	if cfg.DatabaseURL == "" {
		logger.Printf("DATABASE_URL not configured, using in-memory repositories")
		return memoryRepositories(), func() {}
	}

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Printf("failed to initialize postgres pool, fallback to memory: %v", err)
		return memoryRepositories(), func() {}
	}
	logger.Printf("postgres repositories initialized")
	return postgresRepositories(pool), pool.Close
}

func memoryRepositories() repositories {
	return repositories{
		Jobs:          repository.NewMemoryJobsRepository(),
		Ledger:        repository.NewMemoryTokenLedger(),
		Versions:      repository.NewMemoryVersionsRepository(),
		Interviews:    repository.NewMemoryInterviewsRepository(),
		Notifications: repository.NewMemoryNotificationsRepository(),
	}
}

func postgresRepositories(pool *pgxpool.Pool) repositories {
	return repositories{
		Jobs:          repository.NewPostgresJobsRepository(pool),
		Ledger:        repository.NewPostgresTokenLedger(pool),
		Versions:      repository.NewPostgresVersionsRepository(pool),
		Interviews:    repository.NewPostgresInterviewsRepository(pool),
		Notifications: repository.NewPostgresNotificationsRepository(pool),
	}
}

// setupQueue picks the dispatch backend: the hosted HTTP broker when
// configured (webhook delivery, nil consumer), Redis Streams for
// self-hosted deployments, and a local in-process queue otherwise.
func setupQueue(
	ctx context.Context,
	cfg config.Config,
	logger *log.Logger,
) (queue.Dispatcher, queue.Consumer, func()) {
	backend := cfg.QueueBackend
	if backend == "" {
		switch {
		case cfg.QStashToken != "" && cfg.WebhookBaseURL != "":
			backend = "qstash"
		case cfg.RedisAddr != "":
			backend = "streams"
		default:
			backend = "local"
		}
	}

	switch backend {
	case "qstash":
		dispatcher, err := queue.NewQStashDispatcher(queue.QStashConfig{
			BrokerURL:       cfg.QStashURL,
			Token:           cfg.QStashToken,
			CallbackBaseURL: cfg.WebhookBaseURL,
			DeliveryRetries: cfg.QStashMaxRetries,
			Timeout:         time.Duration(cfg.QStashTimeoutMS) * time.Millisecond,
		})
		if err != nil {
			logger.Printf("failed to initialize qstash dispatcher, fallback to local: %v", err)
			break
		}
		logger.Printf("qstash dispatcher initialized")
		return dispatcher, nil, func() {}
	case "streams":
		streams, err := queue.NewStreamsQueue(ctx, queue.StreamsConfig{
			Addr:        cfg.RedisAddr,
			Password:    cfg.RedisPassword,
			DB:          cfg.RedisDB,
			Stream:      cfg.RedisStream,
			DLQStream:   cfg.RedisDLQ,
			Group:       cfg.RedisGroup,
			Consumer:    cfg.RedisConsumer,
			MaxAttempts: 3,
		})
		if err != nil {
			logger.Printf("failed to initialize redis streams queue, fallback to local: %v", err)
			break
		}
		logger.Printf("redis streams queue initialized")
		return streams, streams, func() {
			_ = streams.Close()
		}
	}

	logger.Printf("using local queue fallback")
	local := queue.NewLocalQueue(512, 3, logger)
	return local, local, func() {}
}
