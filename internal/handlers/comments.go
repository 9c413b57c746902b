package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"picwall/internal/middleware"
	"picwall/internal/services"
)

type commentRequest struct {
	Content string `json:"content" form:"content"`
}

// AddComment добавляет комментарий к одобренной записи.
func (h *Handler) AddComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBind(&req); err != nil {
		h.respondError(c, fmt.Errorf("%w: некорректное тело запроса: %v", services.ErrValidation, err))
		return
	}

	comment, err := h.svc.Comments.Add(c.Request.Context(), c.Param("id"), req.Content, middleware.IdentityFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// ListComments возвращает комментарии записи по возрастанию времени.
func (h *Handler) ListComments(c *gin.Context) {
	comments, err := h.svc.Comments.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}
