package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"tickerchat-go/internal/config"
	"tickerchat-go/internal/credential"
	"tickerchat-go/internal/logging"
	"tickerchat-go/internal/market"
	"tickerchat-go/internal/monitoring/tracing"
	"tickerchat-go/internal/questions"
	"tickerchat-go/internal/runtime"
	"tickerchat-go/internal/scheduler"
	"tickerchat-go/internal/server"
	"tickerchat-go/internal/storage"
	"tickerchat-go/internal/symbols"
	"tickerchat-go/internal/twitch"
	"tickerchat-go/internal/version"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	debug := flag.Bool("debug", false, "force debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	if *debug {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	if err := logging.Setup(cfg); err != nil {
		log.WithError(err).Fatal("failed to set up logging")
	}

	log.WithFields(log.Fields{
		"version": version.Version,
		"backend": cfg.StorageBackend,
	}).Info("starting tickerchat bot")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx)
	if err != nil {
		log.WithError(err).Warn("tracing initialization failed, continuing without traces")
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.WithError(err).Warn("tracing shutdown failed")
		}
	}()

	backend, err := storage.NewBackendFromConfig(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to create storage backend")
	}
	if err := backend.Initialize(ctx); err != nil {
		log.WithError(err).Fatal("failed to initialize storage backend")
	}
	defer backend.Close()

	api := twitch.NewClient(
		twitch.WithTokenURL(cfg.TokenURL),
		twitch.WithValidateURL(cfg.ValidateURL),
		twitch.WithChatURL(cfg.ChatURL),
		twitch.WithSendRate(cfg.SendRatePerSec, cfg.SendBurst),
	)

	credStore := credential.NewStore(backend)
	tasks := runtime.NewTaskManager(ctx)

	var managers []*credential.Manager
	for _, name := range cfg.Identities {
		identity, err := credStore.Load(ctx, name)
		if err != nil {
			log.WithError(err).WithField("identity", name).Error("failed to load identity, skipping")
			continue
		}
		m := credential.NewManager(identity, credStore, api,
			time.Duration(cfg.RefreshIntervalHours)*time.Hour,
			time.Duration(cfg.ValidateIntervalMin)*time.Minute,
		)
		if err := m.Start(ctx, tasks); err != nil {
			log.WithError(err).WithField("identity", name).Error("failed to start identity, skipping")
			continue
		}
		managers = append(managers, m)
	}
	if len(managers) == 0 {
		log.Fatal("no identities could be started")
	}

	store := symbols.New(backend, cfg.SymbolCapacity, cfg.SymbolLowWater)
	if err := store.Load(ctx); err != nil {
		log.WithError(err).Fatal("failed to load symbol store")
	}

	feeds := market.NewClient(
		market.WithTrendingURL(cfg.TrendingURL),
		market.WithBoostsURL(cfg.BoostsURL),
	)

	senders := make([]scheduler.Sender, 0, len(managers))
	for _, m := range managers {
		senders = append(senders, m)
	}
	engine, err := scheduler.New(scheduler.Config{
		MinInterval:    time.Duration(cfg.MinIntervalMin) * time.Minute,
		MaxInterval:    time.Duration(cfg.MaxIntervalMin) * time.Minute,
		RefillInterval: time.Duration(cfg.RefillIntervalMin) * time.Minute,
	}, store, feeds, questions.NewRenderer(), senders)
	if err != nil {
		log.WithError(err).Fatal("failed to create scheduler")
	}
	if err := engine.Start(tasks); err != nil {
		log.WithError(err).Fatal("failed to start scheduler")
	}

	statusSrv := server.New(cfg, backend, tasks, engine, store, managers)
	go func() {
		if err := statusSrv.Run(); err != nil {
			log.WithError(err).Error("status server failed")
		}
	}()

	watcher := config.NewWatcher(*configPath, cfg, func(_, next *config.Config) {
		if err := logging.Setup(next); err != nil {
			log.WithError(err).Warn("failed to apply reloaded logging settings")
		}
	})
	defer watcher.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.WithField("signal", sig.String()).Info("shutting down")

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := statusSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("status server shutdown failed")
	}

	tasks.StopAll()
	tasks.Wait()
	log.Info("shutdown complete")
}
