// Покупательский процесс: своя ручка к общей базе склада плюс sync-клиент,
// который по каждому refresh-сигналу перечитывает склад. UI поверх этого
// процесса подписывается на локальный хаб уведомлений.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/medimart/internal/config"
	"github.com/vladislavdragonenkov/medimart/internal/notify"
	"github.com/vladislavdragonenkov/medimart/internal/service/inventory"
	"github.com/vladislavdragonenkov/medimart/internal/storage/postgres"
	"github.com/vladislavdragonenkov/medimart/internal/storage/snapshot"
	"github.com/vladislavdragonenkov/medimart/internal/syncnet"
	"github.com/vladislavdragonenkov/medimart/internal/version"
)

func setupLogger() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
}

func main() {
	setupLogger()

	var configPath string
	flag.StringVar(&configPath, "config", "config/medimart.ini", "path to the ini config file")
	flag.Parse()

	logger := log.WithField("component", "medimart-store")
	logger.Info(version.String())

	cfg, err := config.Load(configPath, logger)
	if err != nil {
		logger.WithError(err).Fatal("не удалось загрузить конфигурацию")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := postgres.Open(ctx, cfg.DSN)
	if err != nil {
		logger.WithError(err).Fatal("не удалось подключиться к базе склада")
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		logger.WithError(err).Fatal("не удалось применить миграции")
	}

	// Хаб без broadcaster: рассылает refresh только серверный процесс.
	// Локальные подписчики (UI-слой) при этом работают как обычно.
	hub := notify.NewHub(logger.WithField("component", "notify-hub"))

	inventorySvc := inventory.NewService(
		postgres.NewInventoryRepository(store),
		snapshot.NewStore(cfg.SnapshotPath),
		snapshot.NewQueue(cfg.OfflineQueuePath),
		hub,
		logger.WithField("component", "inventory-service"),
	)
	client := syncnet.NewClient(cfg.SocketAddr(), syncnet.WithLogger(logger.WithField("component", "sync-client")))
	client.Start(func() {
		items, err := inventorySvc.ListAll()
		if err != nil {
			logger.WithError(err).Warn("refresh: не удалось перечитать склад")
			return
		}
		logger.WithField("items", len(items)).Info("склад обновлён по refresh-сигналу")
	})
	defer client.Stop()

	logger.WithField("sync_addr", cfg.SocketAddr()).Info("medimart-store запущен")

	<-ctx.Done()
	logger.Info("medimart-store остановлен")
}
