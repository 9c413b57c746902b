package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"picwall/internal/middleware"
	"picwall/internal/models"
	"picwall/internal/services"
)

// Поля multipart-формы с файлами: основной файл и дополнительные.
var fileFields = []string{"image", "images", "images[]"}

// RequestKey выдает ключ загрузки на сегодня.
func (h *Handler) RequestKey(c *gin.Context) {
	token, err := h.svc.Keys.RequestKey(c.Request.Context(), middleware.IdentityFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Upload принимает ключ, подпись и файлы и создает запись на модерацию.
func (h *Handler) Upload(c *gin.Context) {
	form, ok := h.parseMultipart(c)
	if !ok {
		return
	}

	editable := h.limits.DefaultEditable
	if v := c.PostForm("editable"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			h.respondError(c, fmt.Errorf("%w: editable должен быть true или false", services.ErrValidation))
			return
		}
		editable = b
	}

	id := middleware.IdentityFrom(c)
	rec, err := h.svc.Records.Submit(c.Request.Context(), services.Submission{
		Token:    c.PostForm("token"),
		Text:     c.PostForm("text"),
		Title:    c.PostForm("title"),
		Editable: editable,
		Uploads:  formUploads(form),
	}, id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.log.WithFields(logrus.Fields{"record_id": rec.ID, "files": rec.ImageCount}).Info("Загрузка принята")
	c.JSON(http.StatusCreated, rec)
}

// ListRecords возвращает все одобренные записи.
func (h *Handler) ListRecords(c *gin.Context) {
	records, err := h.svc.Records.List(c.Request.Context(), models.StatusApproved)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// GetRecord возвращает одобренную запись по идентификатору.
func (h *Handler) GetRecord(c *gin.Context) {
	rec, err := h.svc.Records.GetPublic(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Random возвращает случайную одобренную запись или 404.
func (h *Handler) Random(c *gin.Context) {
	rec, err := h.svc.Records.RandomApproved(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "одобренных записей пока нет"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// editJSON: тело JSON-запроса правки. Файлы передаются только формой.
type editJSON struct {
	Text       *string `json:"text"`
	Title      *string `json:"title"`
	ImageCount *int    `json:"imageCount"`
}

// EditRecord изменяет одобренную редактируемую запись.
// Принимает JSON (text, title, imageCount) или multipart-форму с теми же полями и файлами.
func (h *Handler) EditRecord(c *gin.Context) {
	var req services.EditRequest

	if c.ContentType() == "multipart/form-data" {
		form, ok := h.parseMultipart(c)
		if !ok {
			return
		}
		if v, ok := c.GetPostForm("text"); ok {
			req.Text = &v
		}
		if v, ok := c.GetPostForm("title"); ok {
			req.Title = &v
		}
		if v, ok := c.GetPostForm("imageCount"); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				h.respondError(c, fmt.Errorf("%w: imageCount должен быть числом", services.ErrValidation))
				return
			}
			req.ImageCount = &n
		}
		req.Uploads = formUploads(form)
	} else {
		var body editJSON
		if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
			h.respondError(c, fmt.Errorf("%w: некорректный JSON: %v", services.ErrValidation, err))
			return
		}
		req.Text, req.Title, req.ImageCount = body.Text, body.Title, body.ImageCount
	}

	rec, err := h.svc.Edits.Edit(c.Request.Context(), c.Param("id"), req, middleware.IdentityFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// parseMultipart ограничивает размер тела и разбирает форму.
// При ошибке ответ уже отправлен и возвращается false.
func (h *Handler) parseMultipart(c *gin.Context) (*multipart.Form, bool) {
	maxTotal := int64(h.limits.MaxFiles)*h.limits.MaxUploadSize + 1<<20
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxTotal)

	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("запрос больше допустимого размера (%d байт)", maxTotal),
			})
			return nil, false
		}
		h.respondError(c, fmt.Errorf("%w: ошибка разбора формы: %v", services.ErrValidation, err))
		return nil, false
	}
	return form, true
}

func formUploads(form *multipart.Form) []services.Upload {
	var uploads []services.Upload
	for _, field := range fileFields {
		for _, fh := range form.File[field] {
			uploads = append(uploads, services.FromFileHeader(fh))
		}
	}
	return uploads
}
