package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jinho7/concert-hub/internal/api"
	"github.com/jinho7/concert-hub/internal/api/handler"
	custommw "github.com/jinho7/concert-hub/internal/api/middleware"
	"github.com/jinho7/concert-hub/internal/application"
	"github.com/jinho7/concert-hub/internal/config"
	"github.com/jinho7/concert-hub/internal/infrastructure/postgres"
	redisinfra "github.com/jinho7/concert-hub/internal/infrastructure/redis"
	"github.com/jinho7/concert-hub/internal/pkg/logger"
	"github.com/jinho7/concert-hub/internal/pkg/metrics"
	"github.com/jinho7/concert-hub/internal/worker"
)

func main() {
	cfg := config.Load()

	defer func() { _ = logger.Sync() }()

	// データベース接続
	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		logger.Fatal("データベース接続に失敗しました", zap.Error(err))
	}
	defer db.Close()

	// マイグレーション実行
	migrationsPath := os.Getenv("MIGRATIONS_PATH")
	if migrationsPath == "" {
		migrationsPath = "migrations"
	}
	if err := postgres.RunMigrations(db.DB, migrationsPath); err != nil {
		logger.Fatal("マイグレーションに失敗しました", zap.Error(err))
	}

	// Redis 接続（任意: 失敗しても分散ロックとキャッシュなしで継続）
	redisClient := redisinfra.NewClient(&cfg.Redis)
	redisAvailable := true
	{
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisinfra.Ping(ctx, redisClient); err != nil {
			logger.Warn("Redis接続に失敗しました。分散ロックとキャッシュを無効化します", zap.Error(err))
			redisAvailable = false
		}
		cancel()
	}

	// メトリクス
	m := metrics.Init()

	// リポジトリ
	txManager := postgres.NewTxManager(db)
	eventRepo := postgres.NewEventRepository(db)
	seatRepo := postgres.NewSeatRepository(db)
	reservationRepo := postgres.NewReservationRepository(db)
	userRepo := postgres.NewUserRepository(db)

	// エンティティロック（プロセス内）
	locks := application.NewLocks()

	// アプリケーションサービス
	eventService := application.NewEventService(eventRepo, locks)
	seatService := application.NewSeatService(txManager, seatRepo, eventRepo, reservationRepo, locks, cfg.Reservation.HoldTTL)
	reservationService := application.NewReservationService(txManager, reservationRepo, seatRepo, eventRepo, userRepo, locks, cfg.Reservation.HoldTTL)
	userService := application.NewUserService(userRepo)
	paymentService := application.NewPaymentService()

	if redisAvailable {
		lockManager := redisinfra.NewLockManager(redisClient)
		cache := redisinfra.NewAvailabilityCache(redisClient)
		reservationService = reservationService.WithLockManager(lockManager).WithAvailabilityCache(cache)
		seatService = seatService.WithAvailabilityCache(cache)
	}

	// 期限切れスイープワーカー
	cleaner := worker.NewExpiredReservationCleaner(reservationService, seatService, cfg.Reservation.CleanupInterval).WithMetrics(m)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go cleaner.Start(workerCtx)

	// Echo セットアップ
	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	custommw.SetupMiddleware(e)
	e.Use(custommw.PrometheusMiddleware(m))

	registerRoutes(e, db, eventService, seatService, reservationService, userService, paymentService)

	// サーバー起動
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("サーバー起動エラー", zap.Error(err))
		}
	}()
	logger.Info("サーバーを起動しました", zap.String("port", cfg.Server.Port))

	// シグナル待機
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("サーバーをシャットダウンしています...")

	cleaner.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("サーバーシャットダウンエラー", zap.Error(err))
	}

	logger.Info("サーバーが正常にシャットダウンしました")
}

func registerRoutes(
	e *echo.Echo,
	db handler.Pinger,
	eventService *application.EventService,
	seatService *application.SeatService,
	reservationService *application.ReservationService,
	userService *application.UserService,
	paymentService *application.PaymentService,
) {
	healthHandler := handler.NewHealthHandler(db)
	eventHandler := handler.NewEventHandler(eventService)
	seatHandler := handler.NewSeatHandler(seatService)
	reservationHandler := handler.NewReservationHandler(reservationService, paymentService)
	userHandler := handler.NewUserHandler(userService)

	e.GET("/health", healthHandler.Check)
	e.GET("/ready", healthHandler.Ready)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), custommw.MetricsBasicAuth())

	v1 := e.Group("/api/v1")

	v1.POST("/users", userHandler.Register)
	v1.GET("/users/:id", userHandler.GetByID)

	v1.POST("/events", eventHandler.Create)
	v1.GET("/events", eventHandler.List)
	v1.GET("/events/:id", eventHandler.GetByID)
	v1.PUT("/events/:id", eventHandler.Update)
	v1.PATCH("/events/:id/resize", eventHandler.Resize)
	v1.DELETE("/events/:id", eventHandler.Delete)

	v1.POST("/events/:event_id/seats", seatHandler.CreateSeats)
	v1.GET("/events/:event_id/seats", seatHandler.GetByEvent)
	v1.GET("/events/:event_id/seats/available-count", seatHandler.CountAvailable)
	v1.GET("/seats/:id", seatHandler.GetByID)
	v1.POST("/seats/:id/hold", seatHandler.Hold)
	v1.POST("/seats/:id/confirm", seatHandler.Confirm)
	v1.POST("/seats/:id/release", seatHandler.Release)

	v1.POST("/reservations", reservationHandler.Create)
	v1.GET("/reservations", reservationHandler.GetUserReservations)
	v1.GET("/reservations/:id", reservationHandler.GetByID)
	v1.POST("/reservations/:id/confirm", reservationHandler.Confirm)
	v1.POST("/reservations/:id/cancel", reservationHandler.Cancel)
}
