package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/config"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/db"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/handlers"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/middleware"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/realtime"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/discovery"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/gateway"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/identity"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/jobs"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/mailer"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/messaging"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/notify"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/payment"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/wallet"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	var logger *zap.Logger
	var err error
	if cfg.IsProduction() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	if err := db.Migrate(gdb); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}
	if err := db.SeedCategories(gdb, logger); err != nil {
		logger.Fatal("seed categories", zap.Error(err))
	}

	rdb := realtime.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logger.Fatal("connect redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	logger.Info("redis connected", zap.String("addr", cfg.RedisAddr))

	hub := realtime.NewHub(logger.Named("hub"))
	go hub.Run()

	notifier := notify.NewNotifyService(gdb, hub, rdb, logger.Named("notify"))
	var codes identity.CodeSender = mailer.LogMailer{Log: logger.Named("mailer")}
	smtpCfg := mailer.Config(cfg.SMTP)
	if smtpCfg.Enabled() {
		codes = mailer.NewSMTPMailer(smtpCfg, logger.Named("mailer"))
	} else if cfg.IsProduction() {
		logger.Fatal("SMTP_HOST and SMTP_FROM_ADDRESS are required in production")
	}
	identitySvc := identity.NewIdentityService(gdb, rdb, notifier, codes, logger.Named("identity"), cfg.RoleSwitchCooldown, cfg.OTPTTL)
	jobSvc := jobs.NewJobService(gdb, notifier, logger.Named("jobs"))
	walletSvc := wallet.NewWalletService(gdb)
	paymentSvc := payment.NewPaymentService(gdb, gateway.NewMpesaClient(cfg.Gateway), walletSvc, notifier, logger.Named("payment"))
	messagingSvc := messaging.NewMessagingService(gdb, hub, rdb, notifier, logger.Named("messaging"))
	discoverySvc := discovery.NewDiscoveryService(gdb)

	reconciler := payment.NewReconciler(paymentSvc, cfg.ReconcileMinAge, logger.Named("reconciler"))
	if cfg.ReconcileSchedule != "" {
		if err := reconciler.Start(cfg.ReconcileSchedule); err != nil {
			logger.Fatal("start reconciler", zap.String("schedule", cfg.ReconcileSchedule), zap.Error(err))
		}
	}

	session := handlers.Session{
		JWTSecret: cfg.JWTSecret,
		Expires:   cfg.JWTExpiresMin,
		Secure:    cfg.IsProduction(),
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(logger.Named("http")),
	})
	app.Use(recover.New())
	app.Use(middleware.Metrics())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Content-Length, Retry-After",
		AllowCredentials: true,
	}))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	hs := handlers.Handlers{
		Auth: handlers.NewAuthHandler(identitySvc, session),
		Google: &handlers.GoogleOAuthHandler{
			Identity:        identitySvc,
			Session:         session,
			Log:             logger.Named("oauth"),
			GoogleClientID:  cfg.GoogleClientID,
			GoogleSecret:    cfg.GoogleSecret,
			GoogleRedirect:  cfg.GoogleRedirect,
			FrontendBaseURL: cfg.FrontendBaseURL,
		},
		Fundi:         handlers.NewFundiHandler(identitySvc, jobSvc, walletSvc),
		Jobs:          handlers.NewJobHandler(jobSvc),
		Applications:  handlers.NewApplicationHandler(jobSvc),
		Payments:      handlers.NewPaymentHandler(paymentSvc, cfg.Gateway.CallbackSecret, logger.Named("payment")),
		Messages:      handlers.NewMessageHandler(messagingSvc),
		Notifications: handlers.NewNotificationHandler(notifier),
		Discovery:     handlers.NewDiscoveryHandler(discoverySvc),
	}
	hs.Mount(app.Group("/api"), handlers.NewGuards(cfg.JWTSecret, gdb))
	handlers.NewRealtimeHandler(hub, cfg.JWTSecret, logger.Named("ws")).Routes(app)

	go func() {
		if err := app.Listen(":" + cfg.AppPort); err != nil {
			logger.Fatal("listen", zap.Error(err))
		}
	}()
	logger.Info("server started", zap.String("port", cfg.AppPort), zap.String("env", cfg.AppEnv))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	reconciler.Stop()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
	hub.Stop()
	if err := rdb.Close(); err != nil {
		logger.Warn("close redis", zap.Error(err))
	}
}
