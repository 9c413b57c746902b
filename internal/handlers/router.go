package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"picwall/internal/middleware"
)

// RouterConfig: параметры маршрутизатора.
type RouterConfig struct {
	CookieSecret   string
	SecureCookie   bool
	Origins        []string
	TrustedProxies []string
	UploadDir      string
	MaxMemory      int64
	Metrics        http.Handler // nil: без /metrics
	Limiter        *middleware.Limiter
}

// NewRouter собирает gin.Engine со всеми маршрутами API.
func NewRouter(h *Handler, rc RouterConfig) (*gin.Engine, error) {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(h.log))

	// nil: не доверять заголовкам X-Forwarded-For
	if err := router.SetTrustedProxies(rc.TrustedProxies); err != nil {
		return nil, fmt.Errorf("ошибка установки доверенных прокси: %w", err)
	}
	if rc.MaxMemory > 0 {
		router.MaxMultipartMemory = rc.MaxMemory
	}

	router.Use(cors.New(corsConfig(rc.Origins)))

	store := cookie.NewStore([]byte(rc.CookieSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   rc.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	router.Use(sessions.Sessions("picwall_session", store))

	router.GET("/healthz", h.Health)
	if rc.Metrics != nil {
		router.GET("/metrics", gin.WrapH(rc.Metrics))
	}
	if rc.UploadDir != "" {
		router.Static("/uploads", rc.UploadDir)
	}

	api := router.Group("/api")
	if rc.Limiter != nil {
		api.Use(rc.Limiter.Middleware())
	}
	api.Use(middleware.Identify())
	{
		api.POST("/keys", h.RequestKey)
		api.POST("/upload", h.Upload)

		api.GET("/records", h.ListRecords)
		api.GET("/records/:id", h.GetRecord)
		api.PATCH("/records/:id", h.EditRecord)
		api.PUT("/records/:id", h.EditRecord)
		api.GET("/records/:id/comments", h.ListComments)
		api.POST("/records/:id/comments", h.AddComment)
		api.GET("/random", h.Random)

		api.POST("/admin/login", h.Login)
		api.POST("/admin/logout", h.Logout)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AdminRequired(h.log))
	{
		admin.GET("/records", h.AdminListRecords)
		admin.GET("/records/pending", h.AdminListPending)
		admin.POST("/records/:id/review", h.Review)
	}

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
