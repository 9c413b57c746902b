package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"picwall/internal/database"
	"picwall/internal/metrics"
	"picwall/internal/models"
)

// ModerationService: решения администратора по записям.
type ModerationService struct {
	db      *database.DB
	images  *ImageService
	now     Clock
	log     logrus.FieldLogger
	metrics *metrics.Metrics
}

// NewModerationService создает сервис модерации.
func NewModerationService(db *database.DB, images *ImageService, now Clock, logger logrus.FieldLogger, m *metrics.Metrics) *ModerationService {
	return &ModerationService{
		db:      db,
		images:  images,
		now:     now,
		log:     logger.WithField("component", "moderation"),
		metrics: m,
	}
}

// Review переводит запись id в статус status (approved или rejected).
//
// Повторное рассмотрение разрешено и перезаписывает решение:
// approved → rejected исправляет ошибку модератора, повтор того же
// статуса ничего не меняет по существу. Из rejected выхода нет,
// так как файлы отклоненной записи уже удалены.
//
// При отклонении строки record_files удаляются в транзакции смены статуса,
// а сами файлы удаляются с диска после фиксации.
func (s *ModerationService) Review(ctx context.Context, id string, status string) (*models.Record, error) {
	target, ok := models.ParseStatus(status)
	if !ok || !target.IsReviewTarget() {
		return nil, fmt.Errorf("%w: %q (допустимы approved, rejected)", ErrInvalidStatus, status)
	}

	rec, err := s.db.GetRecord(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения записи: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: запись %s", ErrNotFound, id)
	}
	if !rec.Status.CanReviewTo(target) {
		return nil, fmt.Errorf("%w: %s → %s", ErrInvalidTransition, rec.Status, target)
	}

	removed, ok, err := s.db.UpdateStatus(ctx, id, rec.Status, target, s.now())
	if err != nil {
		return nil, fmt.Errorf("ошибка смены статуса: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: статус записи %s изменился во время рассмотрения", ErrInvalidTransition, id)
	}

	s.images.DeleteFiles(removed)
	s.metrics.Review(string(target))
	s.log.WithFields(logrus.Fields{
		"record_id":     id,
		"from":          rec.Status,
		"to":            target,
		"files_removed": len(removed),
	}).Info("Запись рассмотрена")

	return s.db.GetRecord(ctx, id)
}
