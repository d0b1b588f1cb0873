// cmd/matching-engine/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Fatal777/Loan-Eligibility-Engine/internal/common/aws"
	"github.com/Fatal777/Loan-Eligibility-Engine/internal/common/config"
	"github.com/Fatal777/Loan-Eligibility-Engine/internal/common/database"
	engerrors "github.com/Fatal777/Loan-Eligibility-Engine/internal/common/errors"
	"github.com/Fatal777/Loan-Eligibility-Engine/internal/common/logger"
	"github.com/Fatal777/Loan-Eligibility-Engine/internal/common/observability"
	"github.com/Fatal777/Loan-Eligibility-Engine/internal/engine/claimer"
	"github.com/Fatal777/Loan-Eligibility-Engine/internal/engine/escalator"
	"github.com/Fatal777/Loan-Eligibility-Engine/internal/engine/index"
	"github.com/Fatal777/Loan-Eligibility-Engine/internal/engine/orchestrator"
	"github.com/Fatal777/Loan-Eligibility-Engine/internal/engine/scorer"
	"github.com/Fatal777/Loan-Eligibility-Engine/internal/engine/writer"
	"github.com/Fatal777/Loan-Eligibility-Engine/internal/notify"
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
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting matching engine...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("matching-engine")
	defer obs.Shutdown()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		// Test the connection with context
		return pg.Ping(rootCtx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		// Test the connection with context
		return rdb.Ping(rootCtx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Wire engine components ---
	productStore := index.NewStore(pg.DB, rdb.Client, config.GetDuration(cfg.Engine.CatalogCacheTTL), log)
	batchClaimer := claimer.New(pg.DB, cfg.Engine.ClaimLease, log)
	eligibility := scorer.New(cfg.Engine.ApproveThreshold, cfg.Engine.ReviewThreshold)

	judge := escalator.NewClient(&escalator.Config{
		BaseURL:          cfg.Escalation.BaseURL,
		APIKey:           cfg.Escalation.APIKey,
		Timeout:          config.GetDuration(cfg.Escalation.Timeout),
		MaxRetries:       cfg.Escalation.MaxRetries,
		MaxConcurrency:   cfg.Escalation.MaxConcurrency,
		BreakerThreshold: cfg.Escalation.BreakerThreshold,
		BreakerCooldown:  config.GetDuration(cfg.Escalation.BreakerCooldown),
	}, log)

	matchWriter := writer.New(pg.DB, cfg.Engine.ChunkMaxRetries, config.GetDuration(cfg.Engine.ChunkRetryBackoff), log)
	completions := orchestrator.NewRedisCompletionStore(rdb.Client)

	var notifier orchestrator.Notifier
	if cfg.Notifications.SNS.Enabled {
		snsClient, err := aws.NewSNSClient(rootCtx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		notifier = notify.NewSNSNotifier(snsClient, cfg.Notifications.SNS.TopicARN, log)
	} else {
		notifier = notify.NewLogNotifier(log)
	}

	orcConfig := &orchestrator.Config{
		ChunkSize:             cfg.Engine.ChunkSize,
		ClaimMaxRetries:       cfg.Engine.ChunkMaxRetries,
		ClaimRetryBackoff:     config.GetDuration(cfg.Engine.ChunkRetryBackoff),
		EscalationConcurrency: cfg.Escalation.MaxConcurrency,
		NotifyMaxRetries:      3,
	}

	runner := &batchRunner{
		ctx:          rootCtx,
		cfg:          cfg,
		orcConfig:    orcConfig,
		productStore: productStore,
		claimer:      batchClaimer,
		scorer:       eligibility,
		judge:        judge,
		writer:       matchWriter,
		completions:  completions,
		notifier:     notifier,
		obs:          obs,
		logger:       log,
	}

	// --- HTTP server: trigger, health, metrics ---
	mux := http.NewServeMux()
	mux.HandleFunc("/trigger-matching", runner.handleTrigger)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := "healthy"
		code := http.StatusOK
		if err := pg.Ping(r.Context()); err != nil {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{
			"status": status,
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: cfg.Server.Address, Handler: mux}
	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("HTTP server failed", zap.Error(err))
		}
	}()

	<-rootCtx.Done()

	zapLog.Info("Shutdown signal received, stopping engine...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}

	runner.wait()
	zapLog.Info("Matching engine stopped gracefully")
}

// batchRunner starts and tracks pipeline runs triggered over HTTP.
type batchRunner struct {
	ctx          context.Context
	cfg          *config.Config
	orcConfig    *orchestrator.Config
	productStore *index.Store
	claimer      *claimer.Claimer
	scorer       *scorer.Scorer
	judge        escalator.Judge
	writer       *writer.Writer
	completions  orchestrator.CompletionStore
	notifier     orchestrator.Notifier
	obs          *observability.Observability
	logger       logger.Logger

	wg sync.WaitGroup
}

type triggerRequest struct {
	BatchID string `json:"batch_id"`
}

func (b *batchRunner) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req triggerRequest
	if r.Body != nil {
		// An empty or absent body means "the most recent batch".
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	batchID := req.BatchID
	if batchID == "" {
		latest, err := b.claimer.LatestBatchID(r.Context())
		if err != nil {
			http.Error(w, "failed to resolve latest batch", http.StatusInternalServerError)
			return
		}
		if latest == "" {
			http.Error(w, "no batches found", http.StatusNotFound)
			return
		}
		batchID = latest
	}

	total, processed, err := b.claimer.BatchProgress(r.Context(), batchID)
	if err != nil {
		http.Error(w, "failed to inspect batch", http.StatusInternalServerError)
		return
	}

	b.start(batchID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"batch_id":   batchID,
		"total":      total,
		"processed":  processed,
		"workers":    b.cfg.Engine.Workers,
		"started_at": time.Now().Format(time.RFC3339),
	})
}

// start launches the configured number of pipeline workers for the batch.
// The claimer keeps their chunks disjoint; the completion marker keeps the
// finish signal single.
func (b *batchRunner) start(batchID string) {
	for i := 0; i < b.cfg.Engine.Workers; i++ {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()

			products, err := b.productStore.LoadActive(b.ctx)
			if err != nil {
				b.logger.Error("failed to load product catalog", map[string]interface{}{
					"batchId": batchID,
					"error":   err.Error(),
				})
				return
			}
			ix, err := index.Build(products, b.cfg.Engine.BucketBoundaries)
			if err != nil {
				b.logger.Error("failed to build product index", map[string]interface{}{
					"batchId": batchID,
					"error":   err.Error(),
				})
				return
			}

			orc := orchestrator.New(b.orcConfig, b.claimer, ix, b.scorer, b.judge,
				b.writer, b.completions, b.notifier, b.obs, b.logger)
			if _, err := orc.Run(b.ctx, batchID); err != nil {
				fields := map[string]interface{}{
					"batchId": batchID,
					"error":   err.Error(),
				}
				var engErr *engerrors.EngineError
				if errors.As(err, &engErr) {
					fields["category"] = engerrors.GetErrorCategory(engErr.Code)
					fields["retryable"] = engErr.Retryable
				}
				b.logger.Error("batch run failed", fields)
			}
		}()
	}
}

func (b *batchRunner) wait() {
	b.wg.Wait()
}
