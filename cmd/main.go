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

	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/zlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"campusconnect/cmd/buildCFG"
	"campusconnect/internal/api/api"
	rabbitReader "campusconnect/internal/consumerWorker"
	"campusconnect/internal/mailer"
	"campusconnect/internal/notify"
	"campusconnect/internal/rabbit"
	"campusconnect/internal/repo"
	"campusconnect/internal/service"
	"campusconnect/internal/session"
)

func main() {
	zlog.Init()
	log := zlog.Logger

	cfg := config.New()
	if err := cfg.Load("config.yaml", "", "CAMPUS"); err != nil {
		log.Fatal().Msgf("failed to load configuration: %v", err)
	}
	serverCfg := buildCFG.BuildServerConfig(cfg, &log)
	mongoCfg := buildCFG.BuildMongoConfig(cfg, &log)
	uploadsCfg := buildCFG.BuildUploadsConfig(cfg)
	adminCfg := buildCFG.BuildAdminConfig(cfg)
	sessionCfg, err := buildCFG.BuildSessionConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build session config")
	}

	ctx := context.Background()

	var (
		repository   repo.Repository
		sessionStore session.Store
	)
	if mongoCfg.Enabled() {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(mongoCfg.URI))
		cancel()
		if err != nil {
			log.Fatal().Msgf("failed to connect to MongoDB: %v", err)
		}
		defer func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.Error().Err(err).Msg("failed to disconnect from MongoDB")
			}
		}()

		repository, err = repo.NewRepository(ctx, client, mongoCfg.Database, &log)
		if err != nil {
			log.Fatal().Msgf("failed to initialize repository: %v", err)
		}
		if err := repository.EnsureIndexes(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to create indexes")
		}
		sessionStore = repo.NewSessionStore(client, mongoCfg.Database)
		log.Info().Str("database", mongoCfg.Database).Msg("MongoDB connected successfully")
	} else {
		repository = repo.NewMemoryRepository()
		sessionStore = session.NewMemoryStore()
	}

	created, err := service.EnsureDefaultAdmin(ctx, repository, adminCfg.ID, adminCfg.Password)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to bootstrap admin")
	}
	if created {
		log.Info().Str("admin_id", adminCfg.ID).Msg("default admin created")
	}

	if err := os.MkdirAll(uploadsCfg.Dir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("cannot create uploads dir")
	}

	rabbitCfg, err := buildCFG.BuildRabbitConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load RabbitMQ config")
	}

	var publisher notify.Publisher = notify.LogPublisher{Log: &log}
	var rabbitReaderer *rabbitReader.Reader
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	if rabbitCfg.Enabled() {
		rmq, err := rabbit.NewRabbit(rabbitCfg.Url, rabbitCfg.Exchange, rabbitCfg.Queue)
		if err != nil {
			log.Fatal().Msgf("Failed to connect to RabbitMQ: %v", err)
		}
		defer rmq.Close()
		publisher = notify.Multi{publisher, rmq}

		mail := mailer.New(buildCFG.BuildMailerConfig(cfg, &log), &log)
		rabbitReaderer = rabbitReader.NewReader(rmq, repository, mail)
		rabbitReaderer.Start(workerCtx)
	}

	sessions := session.NewManager(sessionStore, session.Options{
		CookieName: sessionCfg.CookieName,
		Secret:     sessionCfg.Secret,
		TTL:        sessionCfg.TTL,
		Secure:     sessionCfg.Secure,
	})

	serviceInstance := service.NewService(repository, &log, sessions, publisher, service.UploadConfig{Dir: uploadsCfg.Dir})
	app := api.NewRouters(&api.Routers{
		Service:      serviceInstance,
		Sessions:     sessions,
		AllowOrigins: serverCfg.AllowOrigins,
		UploadsDir:   uploadsCfg.Dir,
		Mode:         serverCfg.Mode,
	})

	srv := &http.Server{
		Addr:              ":" + serverCfg.Port,
		Handler:           app,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info().Msgf("Starting server on %s", serverCfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("failed to start server: %w", err)
		}
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-signalChan:
		log.Info().Msgf("Received signal %s. Initiating shutdown...", sig)
	case err := <-serverErrChan:
		log.Error().Msgf("Server error: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Msgf("Error shutting down server: %v", err)
	}

	cancelWorkers()
	if rabbitReaderer != nil {
		rabbitReaderer.Stop()
	}

	log.Info().Msg("Shutdown complete")
}
