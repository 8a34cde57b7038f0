package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"rag-agent/internal/agent"
	"rag-agent/internal/config"
	"rag-agent/internal/db"
	apihttp "rag-agent/internal/http"
	"rag-agent/internal/llm"
	"rag-agent/internal/memory"
	"rag-agent/internal/news"
	"rag-agent/internal/repository"
	"rag-agent/internal/service"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	sessionRepo := repository.NewPgSessionRepository(pool)
	messageRepo := repository.NewPgMessageRepository(pool)

	llmClient := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.DefaultModel, logger)
	historySvc := service.NewHistoryService(messageRepo)
	chatSvc := service.NewChatService(logger, sessionRepo, messageRepo, historySvc, llmClient)

	var streamHistory *memory.RedisHistory
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			streamHistory = memory.NewRedisHistory(redisClient, time.Duration(cfg.StreamHistoryTTLMinutes)*time.Minute)
		}
		cancel()
	}

	searcher := news.NewNaverClient(cfg.NaverBaseURL, cfg.NaverClientID, cfg.NaverClientSecret)
	if cfg.NaverClientID == "" {
		logger.Warn("naver credentials not configured")
	}

	chatAgent := agent.NewChatAgent(chatSvc)
	newsAgent := agent.NewNewsAgent(logger, chatSvc, searcher)
	streamAgent := agent.NewStreamAgent(logger, llmClient, streamHistory)

	var jwtSvc *service.JWTService
	if cfg.JWTSecret != "" {
		jwtSvc = service.NewJWTService(cfg.JWTSecret, time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute)
	} else {
		logger.Warn("jwt secret not configured, endpoints are open")
	}

	chatHandler := apihttp.NewChatHandler(logger, chatAgent, newsAgent, streamAgent, sessionRepo, historySvc)
	router := apihttp.NewRouter(logger, chatHandler, jwtSvc, func(ctx context.Context) error {
		return db.Ping(ctx, pool)
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
