package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"picwall/internal/handlers"
	"picwall/internal/metrics"
	"picwall/internal/middleware"
	"picwall/internal/services"
)

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Запустить HTTP-сервер",
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(cCtx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	cfg := a.cfg

	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
		if len(cfg.CookieSecret) < 32 {
			a.log.Warn("COOKIE_SECRET не задан или короткий: используется небезопасный ключ разработки")
			cfg.CookieSecret = "development-only-cookie-secret-000000"
		}
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	clock := time.Now
	m := metrics.New()
	limits := services.Limits{
		MaxFiles:         cfg.MaxFiles,
		MaxCaptionLength: cfg.MaxCaptionLength,
		MaxCommentLength: cfg.MaxCommentLength,
	}

	keys := services.NewKeyService(a.db, clock, a.log, m)
	images := services.NewImageService(a.store, cfg.MaxUploadSize, clock, a.log)
	svc := handlers.Services{
		Keys:       keys,
		Records:    services.NewRecordService(a.db, keys, images, limits, clock, a.log, m),
		Moderation: services.NewModerationService(a.db, images, clock, a.log, m),
		Comments:   services.NewCommentService(a.db, cfg.MaxCommentLength, clock, a.log, m),
		Edits:      services.NewEditService(a.db, images, limits, clock, a.log, m),
		Admin:      services.NewAdminService(a.db, clock, a.log),
	}

	if _, err := svc.Admin.Bootstrap(ctx, cfg.AdminPassword); err != nil {
		return err
	}

	limiter := middleware.NewLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go limiter.Run(ctx)

	h := handlers.New(svc, a.db, handlers.Limits{
		MaxUploadSize:   cfg.MaxUploadSize,
		MaxFiles:        cfg.MaxFiles,
		DefaultEditable: cfg.DefaultEditable,
	}, a.log)

	router, err := handlers.NewRouter(h, handlers.RouterConfig{
		CookieSecret:   cfg.CookieSecret,
		SecureCookie:   !cfg.IsDevelopment(),
		Origins:        cfg.Origins(),
		TrustedProxies: cfg.Proxies(),
		UploadDir:      a.store.Dir(),
		MaxMemory:      cfg.MaxUploadSize,
		Metrics:        m.Handler(),
		Limiter:        limiter,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.ListenPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.WithFields(logrus.Fields{
			"port":    cfg.ListenPort,
			"db":      cfg.DBPath,
			"uploads": cfg.UploadPath,
		}).Info("Сервер запускается")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	a.log.Info("Получен сигнал остановки")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
