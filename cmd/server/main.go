package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/mentix-trading/mentix-api/api/swagger"
	"github.com/mentix-trading/mentix-api/internal/client"
	"github.com/mentix-trading/mentix-api/internal/handler"
	"github.com/mentix-trading/mentix-api/internal/middleware"
	"github.com/mentix-trading/mentix-api/internal/repository"
	"github.com/mentix-trading/mentix-api/internal/service"
	"github.com/mentix-trading/mentix-api/migrations"
	"github.com/mentix-trading/mentix-api/pkg/cache"
	"github.com/mentix-trading/mentix-api/pkg/config"
	"github.com/mentix-trading/mentix-api/pkg/database"
	"github.com/mentix-trading/mentix-api/pkg/logger"
	corsmiddleware "github.com/mentix-trading/mentix-api/pkg/middleware/cors"
	reqidmiddleware "github.com/mentix-trading/mentix-api/pkg/middleware/requestid"
)

// @title Mentix API
// @version 1.0.0
// @description Booking engine, market board and enrollment intake for Mentix Trading
// @BasePath /
// @schemes http https
// @securityDefinitions.apikey AdminSession
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	location, err := time.LoadLocation(cfg.Booking.Timezone)
	if err != nil {
		return fmt.Errorf("load booking timezone %q: %w", cfg.Booking.Timezone, err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		migrator, err := database.NewMigrator(db.DB, migrations.FS, logr)
		if err != nil {
			return err
		}
		if err := migrator.Up(ctx); err != nil {
			return err
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	validate := validator.New()
	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(repository.NewCacheRepository(redisClient, logr), metrics, cfg.Booking.SlotsCacheTTL, logr, redisClient != nil)

	slots := repository.NewSlotRepository(db)
	bookings := repository.NewBookingRepository(db)
	tx := database.NewTransactor(db)

	httpClient := client.NewHTTPClient(cfg.Integrations.Timeout)

	var (
		meetings  service.MeetingProvider
		notifier  service.Notifier
		calendar  service.CalendarSync
		publisher service.LeadPublisher
		sentiment service.SentimentProvider
	)
	if zoom := client.NewZoomClient(cfg.Zoom, httpClient); zoom != nil {
		meetings = zoom
	} else {
		logr.Warn("zoom credentials missing, bookings will be confirmed without meeting links")
	}
	if resend := client.NewResendClient(cfg.Resend, httpClient); resend != nil {
		notifier = resend
	} else {
		logr.Warn("resend api key missing, booking emails disabled")
	}
	if notion := client.NewNotionClient(cfg.Notion, httpClient); notion != nil {
		calendar = notion
	}
	if discord := client.NewDiscordClient(cfg.Discord, httpClient); discord != nil {
		publisher = discord
	} else {
		logr.Warn("discord webhook missing, leads will be rejected")
	}
	if fng := client.NewFearGreedClient(cfg.Market, httpClient); fng != nil {
		sentiment = fng
	}

	dispatcher := service.NewConfirmationDispatcher(notifier, calendar, metrics, logr, service.DispatcherConfig{
		AdminEmail:   cfg.Admin.Email,
		Location:     location,
		Timeout:      cfg.Integrations.Timeout,
		Workers:      cfg.FollowUps.Workers,
		BufferSize:   cfg.FollowUps.BufferSize,
		MaxRetries:   cfg.FollowUps.MaxRetries,
		RetryDelay:   cfg.FollowUps.RetryDelay,
		DrainTimeout: cfg.ShutdownTimeout,
	})
	// Follow-ups outlive the signal so bookings committed while the server
	// drains still get their emails; Stop runs after Shutdown.
	dispatcher.Start(context.WithoutCancel(ctx))
	defer dispatcher.Stop()

	reservations := service.NewReservationService(slots, bookings, tx, meetings, dispatcher, cacheSvc, metrics, validate, logr, service.ReservationConfig{
		Location:       location,
		MeetingTimeout: cfg.Integrations.Timeout,
	})
	queries := service.NewQueryService(slots, bookings, cacheSvc, cfg.Booking.SlotsCacheTTL, location, logr)
	availability := service.NewAvailabilityService(slots, cacheSvc, validate, logr)
	exports := service.NewExportService(queries, logr, nil, nil)
	market := service.NewMarketService(client.NewCoinGeckoClient(cfg.Market, httpClient), sentiment, cacheSvc, cfg.Market.CacheTTL, cfg.Integrations.Timeout, logr)
	leads := service.NewLeadService(publisher, validate, logr)

	auth, err := service.NewAuthService(validate, logr, service.AuthConfig{
		Password:      cfg.Admin.Password,
		PasswordHash:  cfg.Admin.PasswordHash,
		SessionSecret: cfg.Admin.SessionSecret,
		SessionTTL:    cfg.Admin.SessionTTL,
	})
	if err != nil {
		return err
	}

	if cfg.Reminders.Enabled {
		reminders := service.NewReminderService(bookings, slots, notifier, metrics, logr, service.ReminderConfig{
			Schedule: cfg.Reminders.Schedule,
			LeadTime: cfg.Reminders.LeadTime,
			Window:   cfg.Reminders.Window,
			Timeout:  cfg.Integrations.Timeout,
			Location: location,
		})
		if err := reminders.Start(ctx); err != nil {
			return err
		}
		defer reminders.Stop()
	}

	limiter := middleware.NewRateLimiter(cfg.Booking.RateLimitRPS, cfg.Booking.RateLimitBurst)
	go limiter.Run(ctx)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metrics, "/metrics", "/health"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	checks := map[string]handler.ReadinessCheck{"postgres": db.PingContext}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	health := handler.NewHealthHandler(metrics, checks)
	r.GET("/health", health.Health)
	r.GET("/ready", health.Ready)
	r.GET("/metrics", health.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.Routes{
		Slots:    handler.NewSlotHandler(queries, availability),
		Bookings: handler.NewBookingHandler(reservations, queries, exports),
		Admin:    handler.NewAdminHandler(auth, cfg.Env == config.EnvProduction),
		Market:   handler.NewMarketHandler(market),
		Leads:    handler.NewLeadHandler(leads),
		Sessions: auth,
		Limiter:  limiter,
	}.Register(r.Group(cfg.APIPrefix))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	dispatcher.Stop()
	return err
}
