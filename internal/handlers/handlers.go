package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"picwall/internal/services"
)

// Services: сервисы, которые обслуживают HTTP-обработчики.
type Services struct {
	Keys       *services.KeyService
	Records    *services.RecordService
	Moderation *services.ModerationService
	Comments   *services.CommentService
	Edits      *services.EditService
	Admin      *services.AdminService
}

// Limits: ограничения разбора запросов.
type Limits struct {
	MaxUploadSize   int64
	MaxFiles        int
	DefaultEditable bool
}

// Pinger проверяет доступность хранилища.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler: HTTP-обработчики API.
type Handler struct {
	svc    Services
	db     Pinger
	limits Limits
	log    logrus.FieldLogger
}

// New создает обработчики.
func New(svc Services, db Pinger, limits Limits, logger logrus.FieldLogger) *Handler {
	return &Handler{
		svc:    svc,
		db:     db,
		limits: limits,
		log:    logger.WithField("component", "http"),
	}
}

// Health отвечает 200, если база данных доступна.
func (h *Handler) Health(c *gin.Context) {
	if err := h.db.Ping(c.Request.Context()); err != nil {
		h.log.WithError(err).Error("Проверка БД не прошла")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// respondError переводит ошибку сервиса в HTTP-ответ.
// Подробности ошибок хранилища остаются в логе, клиент получает общее сообщение.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).Error("Внутренняя ошибка")
		_ = c.Error(err)
		c.AbortWithStatusJSON(status, gin.H{"error": "внутренняя ошибка сервера"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	// NotFound раньше NotEditable: правка несуществующей записи несет обе ошибки
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrRateLimited),
		errors.Is(err, services.ErrInvalidKey),
		errors.Is(err, services.ErrInvalidStatus):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotEditable):
		return http.StatusForbidden
	case errors.Is(err, services.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
