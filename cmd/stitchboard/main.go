package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/stitchboard/internal/app"
	"github.com/vladislavdragonenkov/stitchboard/internal/version"
)

func main() {
	if err := loadDotenv(os.LookupEnv); err != nil {
		log.WithError(err).Warn("не удалось прочитать .env")
	}

	cfg, warnings := readConfigFromEnv(os.LookupEnv)

	closeLogs, err := app.ConfigureLogging(cfg)
	if err != nil {
		log.WithError(err).Warn("некорректные настройки логирования, используем значения по умолчанию")
		cfg.LogLevel = app.DefaultConfig().LogLevel
		if closeLogs, err = app.ConfigureLogging(cfg); err != nil {
			log.WithError(err).Fatal("не удалось настроить логирование")
		}
	}
	defer func() { _ = closeLogs() }()

	for _, warning := range warnings {
		log.Warn(warning)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"grpc_addr":      cfg.GRPCAddr,
		"metrics_addr":   cfg.MetricsAddr,
		"storage_driver": cfg.StorageDriver,
		"kafka":          cfg.KafkaBrokers != "",
		"redis":          cfg.RedisURL != "",
		"build":          version.String(),
	}).Info("запускаем stitchboard")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Error("приложение завершилось с ошибкой")
		_ = closeLogs()
		os.Exit(1)
	}

	log.Info("stitchboard остановлен")
}
