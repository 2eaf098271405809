// Command server runs the task tracker API.
//
//	@title                       Task Tracker API
//	@version                     1.0
//	@description                 Multi-user task tracker with ownership-based authorization and realtime notifications.
//	@BasePath                    /
//	@securityDefinitions.apikey  BearerAuth
//	@in                          header
//	@name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/taskhub/task-tracker/internal/api"
	"github.com/taskhub/task-tracker/internal/core/ports"
	"github.com/taskhub/task-tracker/internal/core/service"
	"github.com/taskhub/task-tracker/internal/infrastructure/db/mongo"
	"github.com/taskhub/task-tracker/internal/infrastructure/db/redis"
	"github.com/taskhub/task-tracker/internal/infrastructure/queue"
	"github.com/taskhub/task-tracker/internal/infrastructure/realtime"
	"github.com/taskhub/task-tracker/internal/pkg/config"
	"github.com/taskhub/task-tracker/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "task-tracker",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
	log.Info().Msg("server exited properly")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// --- MongoDB ---
	mongoClient, db, err := mongo.Connect(ctx, mongo.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  "task-tracker",
	})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = mongoClient.Disconnect(dctx)
	}()

	users := mongo.NewUserRepository(db)
	tasks := mongo.NewTaskRepository(db)
	if err := mongo.EnsureIndexes(ctx, users, tasks); err != nil {
		return err
	}

	if cfg.Admin.Email != "" {
		admin, created, err := users.EnsureAdmin(ctx, cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password)
		if err != nil {
			return err
		}
		log.Info().Str("user_id", admin.ID).Bool("created", created).Msg("admin account ready")
	}

	// --- Realtime fanout ---
	hub := realtime.NewHub(cfg.Realtime.SubscriberBuffer, logger.Component("hub"))

	var (
		rdb         *goredis.Client
		idem        ports.IdempotencyStore
		broadcaster ports.Broadcaster = hub
		relayDone   = make(chan struct{})
	)
	close(relayDone)

	if cfg.Redis.Enabled {
		rdb, err = redis.Connect(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()

		idem = redis.NewIdempotencyStore(rdb, cfg.Redis.IdempotencyTTL)

		relay := redis.NewRelay(rdb, cfg.Realtime.Channel, hub, logger.Component("relay"))
		broadcaster = relay
		relayDone = make(chan struct{})
		go func() {
			defer close(relayDone)
			if err := relay.Run(ctx); err != nil {
				log.Error().Err(err).Msg("relay stopped")
			}
		}()
	}

	dispatcher := queue.NewDispatcher(cfg.Realtime.Workers, cfg.Realtime.QueueBuffer, broadcaster, logger.Component("dispatcher"))
	dispatcher.Start(ctx)

	// --- Services ---
	tokens := service.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	resolver := service.NewIdentityResolver(tokens, users, logger.Component("identity"))
	authService := service.NewAuthService(users, tokens, logger.Component("auth"))
	taskService := service.NewTaskService(tasks, users, dispatcher, idem, logger.Component("tasks"))

	e := api.NewRouter(api.Deps{
		Log:         logger.Component("http"),
		CORSOrigins: cfg.CORSOrigins,
		Resolver:    resolver,
		AuthService: authService,
		TaskService: taskService,
		Hub:         hub,
		Mongo:       db,
		Redis:       rdb,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down server")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	// Stop the fanout goroutines once no request can emit any more events.
	cancel()
	dispatcher.Wait()
	<-relayDone
	return nil
}
