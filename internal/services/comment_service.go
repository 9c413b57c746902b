package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/sirupsen/logrus"

	"picwall/internal/database"
	"picwall/internal/metrics"
	"picwall/internal/models"
)

// CommentService ведет журнал комментариев к одобренным записям.
// Комментарии только добавляются: изменения и удаления нет.
type CommentService struct {
	db        *database.DB
	maxLength int
	now       Clock
	log       logrus.FieldLogger
	metrics   *metrics.Metrics
}

// NewCommentService создает сервис комментариев.
func NewCommentService(db *database.DB, maxLength int, now Clock, logger logrus.FieldLogger, m *metrics.Metrics) *CommentService {
	return &CommentService{
		db:        db,
		maxLength: maxLength,
		now:       now,
		log:       logger.WithField("component", "comments"),
		metrics:   m,
	}
}

// Add добавляет комментарий к записи recordID.
// Пустой после обрезки пробелов текст: ErrValidation,
// отсутствующая или неодобренная запись: ErrNotFound.
func (s *CommentService) Add(ctx context.Context, recordID, content string, id Identity) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: комментарий не может быть пустым", ErrValidation)
	}
	if utf8.RuneCountInString(content) > s.maxLength {
		return nil, fmt.Errorf("%w: комментарий длиннее %d символов", ErrValidation, s.maxLength)
	}

	commentID, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("не удалось сгенерировать идентификатор комментария: %w", err)
	}

	c := &models.Comment{
		ID:          commentID,
		RecordID:    recordID,
		Content:     content,
		Commenter:   id.Hash(),
		CommentedAt: s.now(),
	}
	ok, err := s.db.CreateComment(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("ошибка сохранения комментария: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: запись %s не найдена или не одобрена", ErrNotFound, recordID)
	}

	s.metrics.Comment()
	s.log.WithFields(logrus.Fields{"record_id": recordID, "comment_id": c.ID}).Info("Комментарий добавлен")
	return c, nil
}

// List возвращает комментарии одобренной записи по возрастанию времени.
func (s *CommentService) List(ctx context.Context, recordID string) ([]models.Comment, error) {
	rec, err := s.db.GetRecord(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения записи: %w", err)
	}
	if rec == nil || !rec.Status.Allows(models.OpComment) {
		return nil, fmt.Errorf("%w: запись %s не найдена или не одобрена", ErrNotFound, recordID)
	}

	comments, err := s.db.ListComments(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения комментариев: %w", err)
	}
	return comments, nil
}
