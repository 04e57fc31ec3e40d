package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"barberpro-backend/config"
	"barberpro-backend/controllers"
	"barberpro-backend/routes"
	"barberpro-backend/services"
	"barberpro-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	if len(os.Args) > 1 {
		os.Exit(runCommand(cfg, os.Args[1:]))
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set, every /api request will be rejected")
	}

	db, err := config.ConnectDB(cfg, logger)
	if err != nil {
		logger.Fatal("database init failed", zap.Error(err))
	}
	if err := config.Migrate(db); err != nil {
		logger.Fatal("database migration failed", zap.Error(err))
	}

	shops := services.NewShopStore(db)
	queue := services.NewQueueRepository(db)
	logSink := services.NewFallbackLogSink(
		services.NewPersistentLogSink(db),
		services.NewRingBufferLogSink(cfg.Reminders.LogBuffer),
		logger.Named("reminder-logs"),
	)
	sender := services.NewSender(cfg, logger.Named("sender"))
	logger.Info("messaging provider selected", zap.String("provider", sender.ProviderID()))

	syncer := services.NewSynchronizer(shops, queue, cfg.Reminders.SurveyDelay, nil, logger.Named("sync"))
	dispatcher := services.NewDispatcher(shops, queue, sender, logSink, services.DispatcherConfig{
		MaxAttempts:  cfg.Reminders.MaxAttempts,
		RetryBackoff: cfg.Reminders.RetryBackoff,
		Fallback: services.Credentials{
			Token:      cfg.BitSafiraToken,
			InstanceID: cfg.BitSafiraInstanceID,
		},
		Location: cfg.Timezone,
	}, nil, logger.Named("dispatch"))

	locker, closeLocker := newLocker(cfg, logger)
	defer closeLocker()

	scheduler := services.NewScheduler(shops, queue, syncer, dispatcher, locker, services.SchedulerConfig{
		Interval: cfg.Reminders.PollInterval,
		LockTTL:  cfg.Reminders.LockTTL,
	}, nil, logger.Named("scheduler"))

	r := routes.SetupRouter(cfg, logger, routes.Controllers{
		Appointments: &controllers.AppointmentController{DB: db, Sync: syncer, Location: cfg.Timezone, Log: logger},
		Templates:    &controllers.TemplateController{DB: db, Sync: syncer, Log: logger},
		Reminders: &controllers.ReminderController{
			DB:         db,
			Queue:      queue,
			Sync:       syncer,
			Dispatcher: dispatcher,
			Fleet:      scheduler,
			Logs:       logSink,
			Log:        logger,
		},
		Services: &controllers.ServiceController{DB: db},
		Barbers:  &controllers.BarberController{DB: db},
		Health:   &controllers.HealthController{DB: db, Scheduler: scheduler},
	})
	if cfg.IsDevelopment() {
		printRoutes(r, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler.Start(ctx)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown error", zap.Error(err))
	}
	scheduler.Stop()
}

// newLocker returns a Redis lock when REDIS_URL is set so only one instance polls at a
// time, and an in-process lock otherwise.
func newLocker(cfg *config.Config, logger *zap.Logger) (services.Locker, func()) {
	if cfg.RedisURL == "" {
		return services.NewLocalLocker(), func() {}
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal("invalid REDIS_URL", zap.Error(err))
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		// Cycles are skipped until Redis answers.
		logger.Warn("redis unreachable at startup", zap.Error(err))
	} else {
		logger.Info("redis poller lock enabled", zap.String("addr", opts.Addr))
	}
	return services.NewRedisLocker(rdb, "barberpro:lock"), func() { _ = rdb.Close() }
}

func printRoutes(r *gin.Engine, logger *zap.Logger) {
	for _, route := range r.Routes() {
		logger.Debug("route", zap.String("method", route.Method), zap.String("path", route.Path))
	}
}

// runCommand handles the local tooling subcommands:
//
//	hash-operator-key <key>            prints a bcrypt hash for OPERATOR_KEY_HASH
//	dev-token <barbershopId> [userId]  prints a 24h token signed with JWT_SECRET
func runCommand(cfg *config.Config, args []string) int {
	switch {
	case args[0] == "hash-operator-key" && len(args) == 2:
		hash, err := utils.HashSecret(args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println(hash)
		return 0
	case args[0] == "dev-token" && len(args) >= 2:
		userID := "dev"
		if len(args) > 2 {
			userID = args[2]
		}
		token, err := utils.GenerateToken(userID, args[1], cfg.JWTSecret, 24*time.Hour)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println(token)
		return 0
	}
	fmt.Fprintln(os.Stderr, "usage: barberpro-backend [hash-operator-key <key> | dev-token <barbershopId> [userId]]")
	return 2
}
