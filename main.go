package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"carpool-backend/internal/config"
	"carpool-backend/internal/db"
	"carpool-backend/internal/middleware"
	"carpool-backend/internal/models"
	"carpool-backend/internal/repository"
	"carpool-backend/internal/routes"
	"carpool-backend/internal/services"
	"carpool-backend/internal/services/razorpay"
	"carpool-backend/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const sweepLeaseKey = "booking:expiration-sweep"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Файл .env не найден, используем переменные окружения")
	}
	cfg := config.Load()

	// Устанавливаем режим релиза для продакшена
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET не задан")
	}
	if cfg.Payment.KeySecret == "" {
		log.Println("Предупреждение: PAYMENT_KEY_SECRET не задан, подписи платежей не будут проходить проверку")
	}

	// Подключение к базе данных
	database, err := db.ConnectPostgres(cfg.Database)
	if err != nil {
		log.Fatal("Ошибка подключения к базе данных:", err)
	}

	// Подключение к Redis
	var redisClient *redis.Client
	if client, err := db.NewRedisClient(cfg.Redis); err != nil {
		log.Println("Предупреждение: Redis недоступен, продолжаем без кэширования и отзыва токенов:", err)
	} else {
		log.Println("Успешное подключение к Redis")
		redisClient = client
		defer redisClient.Close()
	}

	// Автоматическая миграция моделей
	if err := database.AutoMigrate(
		&models.User{},
		&models.Vehicle{},
		&models.Route{},
		&models.RoutePoint{},
		&models.RoutePrice{},
		&models.Trip{},
		&models.TripSeat{},
		&models.Booking{},
		&models.Payment{},
	); err != nil {
		log.Fatal("Ошибка миграции базы данных:", err)
	}

	store := repository.NewGormStore(database)

	// Каналы доставки событий бронирования
	publishers := []services.EventPublisher{
		services.NewWebsocketPublisher(),
		services.NewNotificationService(cfg.FirebaseServerKey, store),
	}
	if cfg.RabbitMQURL != "" {
		amqpPublisher := services.NewAMQPPublisher(cfg.RabbitMQURL)
		defer amqpPublisher.Close()
		publishers = append(publishers, amqpPublisher)
	}
	notifier := services.NewNotifier(publishers...)

	routeService := services.NewRouteService(store, services.NewRedisCache(redisClient, cfg.Cache))
	tripService := services.NewTripService(store)
	bookingService := services.NewBookingService(store, notifier, cfg.Booking.HoldDuration)
	paymentService := services.NewPaymentService(store, bookingService, razorpay.NewClient(cfg.Payment), cfg.Payment.Currency)
	blacklist := services.NewTokenBlacklist(redisClient)

	// Фоновая отмена неоплаченных бронирований
	var lease services.Lease
	if redisClient != nil {
		lease = services.NewRedisLease(redisClient, sweepLeaseKey)
	}
	reconciler := services.NewExpirationReconciler(store, bookingService, cfg.Booking.SweepInterval, cfg.Booking.SweepBatch, lease)
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		reconciler.Run(sweepCtx)
	}()

	// Запускаем WebSocket менеджер
	websocket.StartManager()

	// Создаем Gin роутер
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	// Добавляем middleware для сбора метрик
	r.Use(middleware.PrometheusMiddleware())

	// Настройка доверенных прокси
	r.SetTrustedProxies([]string{"127.0.0.1"})

	// Настройка CORS
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Добавляем эндпоинт для метрик Prometheus
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Проверка работоспособности системы
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// API группа
	api := r.Group("/api")
	routes.SetupRoutes(api, routes.Deps{
		JWTSecret: cfg.JWTSecret,
		Revoked:   blacklist,
		Revoker:   blacklist,
		Users:     store,
		Routes:    routeService,
		Trips:     tripService,
		Bookings:  bookingService,
		Payments:  paymentService,
	})

	// WebSocket маршрут вне группы /api для совместимости с клиентом
	r.GET("/ws", middleware.JWTAuth(cfg.JWTSecret, blacklist), websocket.Handler())

	// Создаем HTTP сервер с настроенными таймаутами
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		log.Printf("Сервер запущен на порту %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Ошибка запуска сервера: %s", err)
		}
	}()

	// Ожидаем сигнал для graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Получен сигнал завершения, закрываем соединения...")

	stopSweep()
	<-sweepDone

	// Даем 30 секунд на завершение текущих запросов
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Ошибка при graceful shutdown: %s", err)
	}

	if sqlDB, err := database.DB(); err == nil {
		sqlDB.Close()
	}
	log.Println("Сервер корректно завершил работу")
}
