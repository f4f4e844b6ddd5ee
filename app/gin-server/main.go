package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/careerforge/backend/config"
	"github.com/careerforge/backend/internal/api/handlers"
	"github.com/careerforge/backend/internal/api/middleware"
	"github.com/careerforge/backend/internal/api/routes"
	"github.com/careerforge/backend/internal/cache"
	"github.com/careerforge/backend/internal/events"
	"github.com/careerforge/backend/internal/logger"
	"github.com/careerforge/backend/internal/models"
	"github.com/careerforge/backend/internal/providers/interviewer"
	mongorepo "github.com/careerforge/backend/internal/repositories/mongo"
	pgrepo "github.com/careerforge/backend/internal/repositories/postgres"
	"github.com/careerforge/backend/internal/services"
	"github.com/careerforge/backend/internal/workers"
)

func main() {
	_ = godotenv.Load()

	logg := logger.New()

	if err := config.InitMongo(); err != nil {
		log.Fatalf("MongoDB init error: %v", err)
	}
	if err := config.EnsureMongoIndexes(); err != nil {
		log.Fatalf("MongoDB index error: %v", err)
	}
	logg.Info("MongoDB connected")

	if err := config.InitPostgres(); err != nil {
		log.Fatalf("PostgreSQL init error: %v", err)
	}
	if err := config.PostgresDB.AutoMigrate(&models.InterviewOutcome{}); err != nil {
		log.Fatalf("PostgreSQL migrate error: %v", err)
	}
	logg.Info("PostgreSQL connected")

	if err := config.InitRedis(); err != nil {
		log.Fatalf("Redis init error: %v", err)
	}
	logg.Info("Redis connected")

	// providers: remote AI service wrapped with the static fallback
	aiBase := os.Getenv("ADAPTIVE_INTERVIEWER_URL")
	if aiBase == "" {
		aiBase = "http://localhost:5002"
	}
	provider := interviewer.NewResilient(interviewer.NewRemote(aiBase), interviewer.NewFallback(), logg)

	interviewRepo := mongorepo.NewInterviewRepo(config.MongoDatabase())
	outcomeRepo := pgrepo.NewOutcomeRepo(config.PostgresDB)
	redisCache := cache.NewRedisCache(config.RedisClient)
	bus := events.NewRedisBus(config.RedisClient, logg)
	outcomeQueue := workers.NewOutcomeQueue(config.RedisClient)

	interviewSvc := services.NewInterviewService(interviewRepo, provider, provider, bus, outcomeQueue, logg)
	analyticsSvc := services.NewAnalyticsService(outcomeRepo, redisCache, logg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := &workers.OutcomeWorkerPool{
		Redis:    config.RedisClient,
		Outcomes: outcomeRepo,
		Cache:    redisCache,
		Logger:   logg,
	}
	if err := pool.Start(ctx); err != nil {
		log.Fatalf("outcome worker start error: %v", err)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logg))

	routes.RegisterRoutes(r, routes.Deps{
		Interview: handlers.NewInterviewHandler(interviewSvc),
		Analytics: handlers.NewAnalyticsHandler(analyticsSvc),
		WS:        handlers.NewWSHandler(interviewSvc, config.RedisClient),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
