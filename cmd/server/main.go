package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"market-service/config"
	"market-service/internal/api"
	"market-service/internal/broker"
	"market-service/internal/importer"
	"market-service/internal/redisclient"
	"market-service/internal/service"
	"market-service/internal/store"
	"market-service/internal/uploads"
	"market-service/internal/util"
	"market-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting market service")

	tp, err := util.InitTracer("market-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	if err := db.EnsureSchema(context.Background()); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	uploadsDir, err := uploads.ResolveWritableDir(cfg.Uploads.DirCandidates)
	if err != nil {
		log.Fatalf("Failed to resolve uploads directory: %v", err)
	}
	uploadStore, err := uploads.NewStore(uploadsDir)
	if err != nil {
		log.Fatalf("Failed to init uploads store: %v", err)
	}
	log.Printf("Uploads directory: %s", uploadsDir)

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicDeals)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	fetcher := importer.NewFetcher(time.Duration(cfg.Import.FetchTimeoutS) * time.Second)
	collector := importer.NewCollector(fetcher)

	authService := service.NewAuthService(db, cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.TokenTTLHours)*time.Hour, cfg.Auth.AdminNicks)
	itemService := service.NewItemService(db, redisClient)
	dealService := service.NewDealService(db, eventPublisher)
	financeService := service.NewFinanceService(db)
	chatService := service.NewChatService(db)
	importService := service.NewImportService(db, redisClient, collector, uploadStore,
		eventPublisher, cfg.Import.MaxItems,
		time.Duration(cfg.Import.LockTTLSeconds)*time.Second)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	dealConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicDeals, cfg.Kafka.ConsumerGroup)
	chatNotifier := worker.NewChatNotifier(dealConsumer, db, chatService)
	go func() {
		if err := chatNotifier.Start(workerCtx); err != nil {
			log.Printf("Chat notifier error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(authService, itemService, dealService,
		financeService, chatService, importService, uploadStore)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	chatNotifier.Stop()

	log.Println("Server exited")
}
