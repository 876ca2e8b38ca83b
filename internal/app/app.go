// Package app собирает процесс MediMart из компонентов: общая база склада,
// снапшот и offline-журнал, хаб уведомлений, sync-сервер и HTTP-сервер
// метрик. Все зависимости передаются явно, синглтонов нет.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/medimart/internal/config"
	healthcheck "github.com/vladislavdragonenkov/medimart/internal/health"
	"github.com/vladislavdragonenkov/medimart/internal/notify"
	"github.com/vladislavdragonenkov/medimart/internal/service/inventory"
	"github.com/vladislavdragonenkov/medimart/internal/service/settlement"
	"github.com/vladislavdragonenkov/medimart/internal/storage/postgres"
	"github.com/vladislavdragonenkov/medimart/internal/storage/snapshot"
	"github.com/vladislavdragonenkov/medimart/internal/syncnet"
	"github.com/vladislavdragonenkov/medimart/internal/version"
)

const healthPingTimeout = 2 * time.Second

// App — собранный серверный процесс: склад, оформление заказов и слой
// межпроцессной синхронизации.
type App struct {
	cfg    config.Config
	logger *log.Entry

	store      *postgres.Store
	snapshots  *snapshot.Store
	queue      *snapshot.Queue
	hub        *notify.Hub
	syncServer *syncnet.Server

	// Inventory и Settlement — публичные ручки для вызывающего кода
	// (HTTP-слой, CLI, тесты).
	Inventory  *inventory.Service
	Settlement *settlement.Engine
}

// New открывает базу, применяет миграции и связывает компоненты. Sync-сервер
// и HTTP-сервер метрик ещё не запущены, их поднимает Run.
func New(ctx context.Context, cfg config.Config, logger *log.Entry) (*App, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	store, err := postgres.Open(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}

	snapshots := snapshot.NewStore(cfg.SnapshotPath)
	queue := snapshot.NewQueue(cfg.OfflineQueuePath)

	hub := notify.NewHub(logger.WithField("component", "notify-hub"))
	syncServer := syncnet.NewServer(cfg.SocketAddr(), logger.WithField("component", "sync-server"))
	hub.SetBroadcaster(syncServer)

	inventorySvc := inventory.NewService(
		postgres.NewInventoryRepository(store),
		snapshots,
		queue,
		hub,
		logger.WithField("component", "inventory-service"),
	)
	settlementEngine := settlement.NewEngine(
		postgres.NewOrderRepository(store),
		hub,
		logger.WithField("component", "settlement"),
	)

	return &App{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		snapshots:  snapshots,
		queue:      queue,
		hub:        hub,
		syncServer: syncServer,
		Inventory:  inventorySvc,
		Settlement: settlementEngine,
	}, nil
}

// Hub возвращает хаб уведомлений для локальных подписчиков (UI-слой).
func (a *App) Hub() *notify.Hub {
	return a.hub
}

// SyncAddr возвращает фактический адрес sync-сервера после запуска.
func (a *App) SyncAddr() string {
	if addr := a.syncServer.Addr(); addr != nil {
		return addr.String()
	}
	return a.cfg.SocketAddr()
}

// Run запускает sync-сервер и HTTP-сервер метрик и блокируется до отмены
// контекста, после чего аккуратно всё останавливает.
func (a *App) Run(ctx context.Context) error {
	if err := a.syncServer.Start(); err != nil {
		_ = a.store.Close()
		return err
	}

	healthHandler := healthcheck.NewHandler(version.String())
	healthHandler.RegisterChecker("postgres", healthcheck.NewPingChecker("postgres", healthPingTimeout, a.store))

	metricsSrv := a.startMetricsServer(a.cfg.MetricsAddr, healthHandler)

	a.logger.WithFields(log.Fields{
		"sync_addr":    a.SyncAddr(),
		"metrics_addr": a.cfg.MetricsAddr,
	}).Info("medimart server started")

	<-ctx.Done()
	a.logger.Info("shutdown signal received")

	a.syncServer.Stop()
	shutdownHTTP(metricsSrv, a.logger)
	if err := a.store.Close(); err != nil {
		a.logger.WithError(err).Warn("closing postgres store failed")
	}

	return ctx.Err()
}

// startMetricsServer поднимает HTTP-обработчики /metrics и health-проверок.
func (a *App) startMetricsServer(addr string, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		a.logger.Infof("метрики доступны по адресу %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.WithError(err).Warn("metrics server failed")
		}
	}()
	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
