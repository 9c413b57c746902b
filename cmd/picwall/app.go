package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"picwall/internal/config"
	"picwall/internal/database"
	"picwall/internal/storage"
)

// app собирает общие зависимости команд.
type app struct {
	cfg   *config.Config
	log   *logrus.Logger
	db    *database.DB
	store *storage.Store
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.WithField("level", cfg.LogLevel).Warn("Неизвестный уровень логирования, используется info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// openApp загружает конфигурацию, проверяет директории и открывает хранилища.
func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)

	if err := config.EnsureParentDir(cfg.DBPath); err != nil {
		return nil, err
	}
	if err := config.EnsureDir(cfg.UploadPath); err != nil {
		return nil, err
	}

	db, err := database.Open(cfg.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации базы данных: %w", err)
	}

	store, err := storage.New(cfg.UploadPath)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &app{cfg: cfg, log: logger, db: db, store: store}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.log.WithError(err).Error("Ошибка закрытия базы данных")
	}
}
