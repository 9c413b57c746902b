package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"picwall/internal/middleware"
	"picwall/internal/models"
	"picwall/internal/services"
)

type loginRequest struct {
	Password string `json:"password" form:"password"`
}

type reviewRequest struct {
	Status string `json:"status" form:"status"`
}

// Login проверяет пароль администратора и открывает сессию.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil || req.Password == "" {
		h.respondError(c, fmt.Errorf("%w: пароль не передан", services.ErrValidation))
		return
	}

	if err := h.svc.Admin.Verify(c.Request.Context(), req.Password); err != nil {
		h.respondError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set(middleware.SessionAdminKey, true)
	if err := session.Save(); err != nil {
		h.respondError(c, fmt.Errorf("ошибка сохранения сессии: %w", err))
		return
	}

	h.log.WithField("ip", c.ClientIP()).Info("Администратор вошел в систему")
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Logout закрывает сессию администратора.
func (h *Handler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Delete(middleware.SessionAdminKey)
	session.Options(sessions.Options{MaxAge: -1, Path: "/"})
	if err := session.Save(); err != nil {
		h.log.WithError(err).Error("Ошибка сохранения сессии при выходе")
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// AdminListRecords возвращает записи с указанным статусом (?status=), без статуса: все.
func (h *Handler) AdminListRecords(c *gin.Context) {
	var status models.Status
	if raw := c.Query("status"); raw != "" {
		st, ok := models.ParseStatus(raw)
		if !ok {
			h.respondError(c, fmt.Errorf("%w: %q", services.ErrInvalidStatus, raw))
			return
		}
		status = st
	}
	h.listByStatus(c, status)
}

// AdminListPending возвращает очередь модерации.
func (h *Handler) AdminListPending(c *gin.Context) {
	h.listByStatus(c, models.StatusPending)
}

func (h *Handler) listByStatus(c *gin.Context, status models.Status) {
	records, err := h.svc.Records.List(c.Request.Context(), status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// Review переводит запись в статус approved или rejected.
func (h *Handler) Review(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBind(&req); err != nil {
		h.respondError(c, fmt.Errorf("%w: некорректное тело запроса: %v", services.ErrValidation, err))
		return
	}

	rec, err := h.svc.Moderation.Review(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}
