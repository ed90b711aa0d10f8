package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"personaquiz/internal/cache"
	"personaquiz/internal/config"
	"personaquiz/internal/inference"
	"personaquiz/internal/logger"
	"personaquiz/internal/repository"
	"personaquiz/internal/service"
	"personaquiz/internal/transport/rest"
	"personaquiz/internal/transport/ws"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
	log.Info("server exited")
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	log.Info("AI config",
		zap.Bool("enabled", cfg.AI.IsEnabled()),
		zap.String("backend", string(cfg.AI.Backend)),
		zap.String("chat_model", cfg.AI.Models.Chat),
		zap.String("analysis_model", cfg.AI.Models.Analysis),
		zap.Duration("request_timeout", cfg.Chat.RequestTimeout))

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	defer mongoClient.Disconnect(context.Background())

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}
	log.Info("connected to MongoDB", zap.String("db", cfg.MongoDB))
	db := mongoClient.Database(cfg.MongoDB)

	// Redis connection
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	log.Info("connected to Redis", zap.String("addr", cfg.RedisAddr))

	// Repositories
	quizRepo := repository.NewQuizRepo(db)
	standardRepo := repository.NewStandardRepo(db)
	resultRepo := repository.NewResultRepo(db)
	chatRepo := repository.NewChatRepo(db)
	analysisRepo := repository.NewAnalysisRepo(db)

	for name, ensure := range map[string]func(context.Context) error{
		"personality_standards": standardRepo.EnsureIndexes,
		"quiz_results":          resultRepo.EnsureIndexes,
		"chat":                  chatRepo.EnsureIndexes,
		"chat_analysis":         analysisRepo.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			return fmt.Errorf("ensure %s indexes: %w", name, err)
		}
	}

	// Caches
	sessionCache := cache.NewSessionCache(rdb)
	analysisCache := cache.NewAnalysisCache(rdb, cfg.Chat.AnalysisCacheTTL)
	typeStats := cache.NewTypeStatsCache(rdb)

	// Text generation
	transport, err := newTransport(ctx, cfg.AI, log)
	if err != nil {
		return err
	}
	chatClient := newInferenceClient(transport, cfg.AI, cfg.AI.Models.Chat, log)
	analysisClient := newInferenceClient(transport, cfg.AI, cfg.AI.Models.Analysis, log)

	// Services
	authSvc := service.NewAuthService(cfg.JWTSecret)
	quizSvc := service.NewQuizService(quizRepo, standardRepo, resultRepo, typeStats, log)
	analysisSvc := service.NewAnalysisService(chatRepo, analysisRepo, sessionCache, analysisCache,
		analysisClient, cfg.Chat.MinMessagesAnalysis, log)
	chatSvc := service.NewChatService(chatRepo, sessionCache, analysisSvc, chatClient, cfg.Chat, log)

	wsHub := ws.NewHub(log)
	defer wsHub.Close()
	analysisSvc.SetBroadcaster(wsHub)
	chatSvc.SetBroadcaster(wsHub)

	router := rest.NewRouter(&rest.Container{
		Auth:     authSvc,
		Quiz:     quizSvc,
		Chat:     chatSvc,
		Analysis: analysisSvc,
		WSHub:    wsHub,
		Config:   cfg,
		Logger:   log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newTransport(ctx context.Context, ai *config.AIConfig, log *zap.Logger) (inference.Transport, error) {
	if !ai.IsEnabled() {
		log.Warn("GEMINI_API_KEY not set, using mock generator")
		return inference.MockTransport{}, nil
	}
	switch ai.Backend {
	case config.BackendGenAI:
		t, err := inference.NewGenAITransport(ctx, ai)
		if err != nil {
			return nil, fmt.Errorf("genai client: %w", err)
		}
		return t, nil
	case config.BackendHTTP, "":
		return inference.NewHTTPTransport(ai, &http.Client{}), nil
	default:
		return nil, fmt.Errorf("unknown GEMINI_BACKEND %q", ai.Backend)
	}
}

func newInferenceClient(t inference.Transport, ai *config.AIConfig, model string, log *zap.Logger) *inference.Client {
	policy := inference.DefaultPolicy()
	if d := ai.Timeout(); d > 0 {
		policy.AttemptTimeout = d
	}
	opts := []inference.Option{
		inference.WithPolicy(policy),
		inference.WithLogger(log.Named("inference").With(zap.String("model", model))),
	}
	if ai.RPS > 0 {
		opts = append(opts, inference.WithLimiter(rate.NewLimiter(rate.Limit(ai.RPS), 1)))
	}
	return inference.NewClient(t, model, opts...)
}
