package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/medimart/internal/app"
	"github.com/vladislavdragonenkov/medimart/internal/config"
	"github.com/vladislavdragonenkov/medimart/internal/version"
)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
}

func main() {
	setupLogger()

	var configPath string
	flag.StringVar(&configPath, "config", "config/medimart.ini", "path to the ini config file")
	flag.Parse()

	logger := log.WithField("component", "medimart-admin")
	logger.Info(version.String())

	cfg, err := config.Load(configPath, logger)
	if err != nil {
		logger.WithError(err).Fatal("не удалось загрузить конфигурацию")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("не удалось собрать приложение")
	}

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	logger.Info("medimart-admin остановлен")
}
