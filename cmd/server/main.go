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

	"auction-service/config"
	"auction-service/internal/api"
	"auction-service/internal/broker"
	"auction-service/internal/notify"
	"auction-service/internal/redisclient"
	"auction-service/internal/service"
	"auction-service/internal/store"
	"auction-service/internal/util"
	"auction-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting auction service")

	tp, err := util.InitTracer("auction-service", cfg.Observ.JaegerEndpoint)
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

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	eventProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents)
	defer eventProducer.Close()
	notificationProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicNotifications)
	defer notificationProducer.Close()
	log.Println("Kafka producers initialized")

	eventPublisher := broker.NewEventPublisher(eventProducer, notificationProducer)
	dispatcher := notify.NewEventDispatcher(eventPublisher)

	calculator := service.NewCommissionCalculator(cfg.Business.CommissionRatePercent)
	auctionService := service.NewAuctionService(db, redisClient, eventPublisher)
	settlementService := service.NewSettlementService(db, calculator, eventPublisher, dispatcher)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	closureWorker := worker.NewClosureWorker(settlementService, redisClient,
		time.Duration(cfg.Business.ClosurePassIntervalSeconds)*time.Second)
	go func() {
		if err := closureWorker.Start(workerCtx); err != nil && err != context.Canceled {
			log.Printf("Closure worker error: %v", err)
		}
	}()

	settlementWorker := worker.NewSettlementWorker(settlementService, redisClient,
		time.Duration(cfg.Business.SettlementPassIntervalSeconds)*time.Second)
	go func() {
		if err := settlementWorker.Start(workerCtx); err != nil && err != context.Canceled {
			log.Printf("Settlement worker error: %v", err)
		}
	}()

	mailer := notify.NewMailer(cfg.SMTP)
	notificationConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicNotifications, cfg.Kafka.ConsumerGroup)
	notificationWorker := worker.NewNotificationWorker(notificationConsumer, mailer)
	go func() {
		if err := notificationWorker.Start(workerCtx); err != nil && err != context.Canceled {
			log.Printf("Notification worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(auctionService, settlementService)
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
	notificationWorker.Stop()

	log.Println("Server exited")
}
