// cmd/assistant-worker/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"widget-assistant/internal/assistant/conversation"
	"widget-assistant/internal/assistant/escalation"
	"widget-assistant/internal/assistant/extract"
	"widget-assistant/internal/assistant/intent"
	"widget-assistant/internal/assistant/knowledge"
	"widget-assistant/internal/assistant/llm"
	"widget-assistant/internal/assistant/orchestrator"
	"widget-assistant/internal/assistant/scoring"
	"widget-assistant/internal/common/camunda"
	"widget-assistant/internal/common/config"
	"widget-assistant/internal/common/database"
	"widget-assistant/internal/common/logger"
	"widget-assistant/internal/common/observability"

	gr "widget-assistant/internal/workers/assistant/generate-response"
	uc "widget-assistant/internal/workers/assistant/update-context"
	up "widget-assistant/internal/workers/catalog/update-product"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	format := cfg.Logging.Format
	if cfg.App.Environment == "development" {
		format = "console"
	}
	zapLog, err := logger.Build(logger.Options{
		Level:  cfg.Logging.Level,
		Format: format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger setup failed: %v\n", err)
		os.Exit(1)
	}
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting assistant worker...", zap.String("version", cfg.App.Version))

	obs, err := observability.New("widget-assistant")
	if err != nil {
		zapLog.Warn("otel metrics disabled", zap.Error(err))
	}
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Zeebe ---
	zb, err := camunda.Connect(ctx, &camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
	}, log)
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- MongoDB (catalog) ---
	var mongoClient *database.MongoClient
	err = retryWithBackoff(func() error {
		var err error
		mongoClient, err = database.NewMongo(ctx, cfg.Database.Mongo)
		if err != nil {
			return err
		}
		return mongoClient.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "MongoDB connection")
	if err != nil {
		zapLog.Fatal("mongo failed after retries", zap.Error(err))
	}
	defer mongoClient.Close(context.Background())
	if err := mongoClient.EnsureIndexes(ctx); err != nil {
		zapLog.Warn("mongo index creation failed", zap.Error(err))
	}
	zapLog.Info("MongoDB connected successfully")

	// --- PostgreSQL (Q&A, FAQs) ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	if err := pg.EnsureSchema(ctx); err != nil {
		zapLog.Warn("qa schema setup failed", zap.Error(err))
	}
	zapLog.Info("PostgreSQL connected successfully")

	// --- Redis (conversation contexts) ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Knowledge base ---
	catalog := knowledge.NewMongoCatalog(mongoClient.Products(), mongoClient.Templates(), mongoClient.Phrases(), log)
	kbOpts := []knowledge.Option{knowledge.WithQARepository(knowledge.NewPostgresQA(pg.DB))}

	var index *knowledge.ElasticIndex
	if cfg.Database.Elasticsearch.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		index = knowledge.NewElasticIndex(esClient.Client, cfg.Database.Elasticsearch.ProductIndex)
		kbOpts = append(kbOpts, knowledge.WithSearchIndex(index))
		zapLog.Info("Elasticsearch connected successfully")
	}

	kb := knowledge.New(catalog, log, kbOpts...)
	kb.Warm(ctx, cfg.Assistant.WarmTenants)

	// --- Generation cascade ---
	var cascade *llm.Cascade
	if cfg.GenAI.APIKey != "" {
		gemini, err := llm.NewGemini(ctx, cfg.GenAI.APIKey)
		if err != nil {
			zapLog.Fatal("genai client failed", zap.Error(err))
		}
		cascade = llm.NewCascade(gemini, llm.PolicyFromConfig(cfg.GenAI), log,
			llm.WithCallObserver(obs.RecordModelCall))
	} else {
		zapLog.Warn("genai.api_key not set, replies use rules and templates only")
	}

	// --- Orchestrator ---
	convOpts := []conversation.Option{
		conversation.WithRegistry(extract.NewRegistry()),
		conversation.WithThresholds(conversation.Thresholds{
			MinKinds: cfg.Assistant.MinConstraintKinds,
			MinTotal: cfg.Assistant.MinConstraints,
		}),
	}

	orchOpts := []orchestrator.Option{
		orchestrator.WithDefaultLanguage(cfg.Assistant.DefaultLanguage),
		orchestrator.WithMaxRecommendations(cfg.Assistant.MaxRecommendations),
		orchestrator.WithContextOptions(convOpts...),
		orchestrator.WithRecorder(obs),
	}
	if len(cfg.Assistant.ScoreWeights) > 0 {
		weights, err := scoring.WeightsFromMap(cfg.Assistant.ScoreWeights)
		if err != nil {
			zapLog.Fatal("invalid assistant.score_weights", zap.Error(err))
		}
		scorer, err := scoring.NewScorer(weights, scoring.DefaultDecay)
		if err != nil {
			zapLog.Fatal("invalid scorer configuration", zap.Error(err))
		}
		orchOpts = append(orchOpts, orchestrator.WithScorer(scorer))
	}
	if cfg.Notifications.Enabled {
		notifier, err := escalation.NewNotifier(ctx, cfg.Notifications, log)
		if err != nil {
			zapLog.Fatal("escalation notifier failed", zap.Error(err))
		}
		orchOpts = append(orchOpts, orchestrator.WithEscalator(notifier))
	}

	orch := orchestrator.New(kb, intent.NewAnalyzer(cascade, log), cascade, log, orchOpts...)
	store := conversation.NewStore(redis.Client, time.Duration(cfg.Assistant.ContextTTL)*time.Second, convOpts...)

	// --- Workers ---
	var workers []*camunda.Worker

	genHandler, err := gr.NewHandler(gr.HandlerOptions{
		CustomConfig: workerConfig(gr.DefaultConfig(), cfg, gr.TaskType),
		Store:        store,
		Responder:    orch,
		Recorder:     obs,
		Logger:       log,
	})
	if err != nil {
		zapLog.Fatal("failed to create generate-response handler", zap.Error(err))
	}
	workers = append(workers, camunda.StartWorker(zb.GetClient(), gr.TaskType, config.GetWorkerConfig(cfg, gr.TaskType), genHandler, log))

	ucCfg := uc.DefaultConfig()
	ucCfg.Timeout = config.GetDuration(config.GetWorkerConfig(cfg, uc.TaskType).Timeout)
	ucHandler, err := uc.NewHandler(ucCfg, store, log)
	if err != nil {
		zapLog.Fatal("failed to create update-context handler", zap.Error(err))
	}
	workers = append(workers, camunda.StartWorker(zb.GetClient(), uc.TaskType, config.GetWorkerConfig(cfg, uc.TaskType), ucHandler, log))

	upOpts := up.HandlerOptions{
		Catalog: catalog,
		Cache:   kb,
		Logger:  log,
	}
	if index != nil {
		upOpts.Index = index
	}
	upHandler, err := up.NewHandler(upOpts)
	if err != nil {
		zapLog.Fatal("failed to create update-product handler", zap.Error(err))
	}
	workers = append(workers, camunda.StartWorker(zb.GetClient(), up.TaskType, config.GetWorkerConfig(cfg, up.TaskType), upHandler, log))

	zapLog.Info("All workers registered")

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		status, code := "ready", http.StatusOK
		if err := zb.HealthCheck(r.Context()); err != nil {
			status, code = "zeebe unavailable", http.StatusServiceUnavailable
		} else if err := redis.Ping(r.Context()); err != nil {
			status, code = "redis unavailable", http.StatusServiceUnavailable
		}
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{
			"status": status,
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: cfg.App.HTTPAddress, Handler: mux}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", cfg.App.HTTPAddress))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping HTTP server", zap.Error(err))
	}
	if err := zb.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Assistant worker stopped gracefully")
}

// workerConfig overlays the workers.<taskType> section on a handler default.
func workerConfig(def *gr.Config, cfg *config.Config, taskType string) *gr.Config {
	wc := config.GetWorkerConfig(cfg, taskType)
	def.Enabled = wc.Enabled
	if wc.MaxJobsActive > 0 {
		def.MaxJobsActive = wc.MaxJobsActive
	}
	if wc.Timeout > 0 {
		def.Timeout = config.GetDuration(wc.Timeout)
	}
	return def
}
