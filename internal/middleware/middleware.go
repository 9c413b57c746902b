package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"picwall/internal/services"
)

// Ключи сессии и контекста gin.
const (
	SessionAdminKey = "admin"
	identityKey     = "identity"
)

// AdminRequired пропускает запрос только при активной сессии администратора.
// Для API вместо редиректа на страницу входа отвечает 401.
func AdminRequired(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)

		raw := session.Get(SessionAdminKey)
		if raw == nil {
			logger.WithFields(logrus.Fields{
				"path": c.Request.URL.Path,
				"ip":   c.ClientIP(),
			}).Warn("Доступ запрещен (не аутентифицирован)")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "требуется вход администратора"})
			return
		}

		if ok, isBool := raw.(bool); !isBool || !ok {
			// Поврежденная сессия: очищаем cookie
			logger.WithField("type", fmt.Sprintf("%T", raw)).Error("Некорректный тип значения admin в сессии, сессия будет очищена")
			session.Delete(SessionAdminKey)
			session.Options(sessions.Options{MaxAge: -1, Path: "/"})
			if err := session.Save(); err != nil {
				logger.WithError(err).Error("Ошибка сохранения сессии при очистке")
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "требуется вход администратора"})
			return
		}

		c.Next()
	}
}

// Identify вычисляет идентичность клиента (адрес + user-agent)
// и кладет ее в контекст запроса.
func Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(identityKey, services.Fingerprint(c.ClientIP(), c.Request.UserAgent()))
		c.Next()
	}
}

// IdentityFrom возвращает идентичность, вычисленную Identify.
// Без Identify в цепочке вычисляет ее на месте.
func IdentityFrom(c *gin.Context) services.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(services.Identity); ok {
			return id
		}
	}
	return services.Fingerprint(c.ClientIP(), c.Request.UserAgent())
}

// RequestLogger пишет одну строку лога на запрос.
func RequestLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(started).Milliseconds(),
			"ip":          c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("http request")
		case status >= http.StatusBadRequest:
			entry.Warn("http request")
		default:
			entry.Info("http request")
		}
	}
}
