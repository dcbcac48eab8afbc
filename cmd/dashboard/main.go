package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"factory-dashboard/internal/blob"
	"factory-dashboard/internal/config"
	"factory-dashboard/internal/events"
	"factory-dashboard/internal/metrics"
	"factory-dashboard/internal/service/actionlog"
	"factory-dashboard/internal/service/assignments"
	"factory-dashboard/internal/service/attendance"
	"factory-dashboard/internal/service/dashboard"
	"factory-dashboard/internal/service/molds"
	"factory-dashboard/internal/service/ng"
	"factory-dashboard/internal/service/production"
	"factory-dashboard/internal/service/writequeue"
	"factory-dashboard/internal/storage/bolt"
	"factory-dashboard/internal/storage/mysql"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

const shutdownTimeout = 15 * time.Second

type services struct {
	assignments *assignments.Service
	production  *production.Service
	attendance  *attendance.Service
	ng          *ng.Service
	molds       *molds.Service
	dashboard   *dashboard.Service
	tree        *bolt.Store
	db          *mysql.Storage
}

func main() {
	cfg := config.MustConfig()

	log := setupLogger(cfg.Env)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var notifier events.Notifier
	if cfg.NATS.URL != "" {
		nc, err := events.Connect(cfg.NATS.URL, "factory-dashboard")
		if err != nil {
			log.Error("failed to connect to nats", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer nc.Drain()
		publisher := events.NewNATSPublisher(nc, cfg.NATS.SubjectPrefix, log)
		notifier = publisher
		log.Info("publishing changes to nats", slog.String("url", cfg.NATS.URL), slog.String("subject", publisher.Subject()))
	} else if cfg.Env == envLocal {
		notifier = events.LogNotifier{Log: log}
	}

	tree, err := bolt.Open(cfg.StoragePath, notifier)
	if err != nil {
		log.Error("failed to open tree store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer tree.Close()
	metrics.RegisterSubscriptions(reg, tree.Subscribers)

	db, err := mysql.New(*cfg)
	if err != nil {
		log.Error("failed to open db", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = db.Migrate(migrateCtx)
	cancel()
	if err != nil {
		log.Error("failed to migrate db", slog.String("error", err.Error()))
		os.Exit(1)
	}

	images, err := blob.New(cfg.Blob.Dir, cfg.Blob.PublicURL, cfg.Blob.Edge, cfg.Blob.Quality)
	if err != nil {
		log.Error("failed to open blob store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	queue := writequeue.New(tree, cfg.WriteQueue.Delay, log, m)
	rec := actionlog.New(db, log, m)

	prod := production.New(tree, queue, log, rec)
	ngSvc := ng.New(tree, log, rec)
	att := attendance.New(tree, images, log, rec)

	svc := services{
		assignments: assignments.New(tree, log, rec),
		production:  prod,
		attendance:  att,
		ng:          ngSvc,
		molds:       molds.New(db, images, log, rec),
		dashboard:   dashboard.New(prod, ngSvc, att),
		tree:        tree,
		db:          db,
	}

	srv := &http.Server{
		Addr:        cfg.Address,
		Handler:     routes(*cfg, log, reg, m, svc),
		ReadTimeout: cfg.HTTPServer.Timeout,
		// WriteTimeout не задан: /api/subscribe держит соединение открытым
		IdleTimeout: cfg.HTTPServer.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("server started", slog.String("address", cfg.Address), slog.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed start server", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop server", slog.String("error", err.Error()))
	}
	// отложенные правки слотов дописываются до закрытия хранилища
	if err := queue.Close(shutdownCtx); err != nil {
		log.Error("failed to flush write queue", slog.String("error", err.Error()), slog.Int("pending", len(queue.Pending())))
	}
	rec.Wait()

	log.Info("server stopped")
}
