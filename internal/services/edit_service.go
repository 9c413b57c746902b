package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"picwall/internal/database"
	"picwall/internal/metrics"
	"picwall/internal/models"
)

// EditRequest: частичное изменение записи. nil/пустое поле не меняется.
type EditRequest struct {
	Text       *string
	Title      *string
	Uploads    []Upload // полная замена набора файлов, если не пуст
	ImageCount *int
}

// EditService изменяет одобренные редактируемые записи.
type EditService struct {
	db      *database.DB
	images  *ImageService
	limits  Limits
	now     Clock
	log     logrus.FieldLogger
	metrics *metrics.Metrics
}

// NewEditService создает сервис редактирования.
func NewEditService(db *database.DB, images *ImageService, limits Limits, now Clock, logger logrus.FieldLogger, m *metrics.Metrics) *EditService {
	return &EditService{
		db:      db,
		images:  images,
		limits:  limits,
		now:     now,
		log:     logger.WithField("component", "edit"),
		metrics: m,
	}
}

// Edit применяет req к записи id от имени who.
//
// Редактировать можно только одобренную запись с editable == true,
// загруженную той же идентичностью. Новые файлы записываются до смены
// ссылок в БД, старые удаляются с диска только после фиксации:
// запись никогда не ссылается на несуществующие файлы.
func (s *EditService) Edit(ctx context.Context, id string, req EditRequest, who Identity) (*models.Record, error) {
	rec, err := s.gate(ctx, id, who)
	if err != nil {
		s.metrics.Edit("rejected")
		return nil, err
	}

	upd, err := s.prepare(rec, req)
	if err != nil {
		s.metrics.Edit("invalid")
		return nil, err
	}
	if upd.Empty() && len(req.Uploads) == 0 {
		return rec, nil
	}

	var staged []models.RecordFile
	if len(req.Uploads) > 0 {
		items, err := s.images.InspectAll(req.Uploads)
		if err != nil {
			s.metrics.Edit("invalid")
			return nil, err
		}
		staged, err = s.images.SaveAll(ctx, who.Hash(), items)
		if err != nil {
			s.metrics.Edit("error")
			return nil, fmt.Errorf("ошибка сохранения файлов: %w", err)
		}
		upd.Files = models.AttachFiles(id, staged)
	}

	old, ok, err := s.db.UpdateContent(ctx, id, upd, s.now())
	if err != nil {
		s.images.DeleteFiles(staged)
		s.metrics.Edit("error")
		return nil, fmt.Errorf("ошибка изменения записи: %w", err)
	}
	if !ok {
		s.images.DeleteFiles(staged)
		s.metrics.Edit("rejected")
		return nil, fmt.Errorf("%w: запись %s изменилась во время редактирования", ErrNotEditable, id)
	}

	s.images.DeleteFiles(old)
	s.metrics.Edit("ok")
	s.log.WithFields(logrus.Fields{
		"record_id":     id,
		"files_added":   len(staged),
		"files_removed": len(old),
	}).Info("Запись отредактирована")

	return s.db.GetRecord(ctx, id)
}

// gate проверяет, что запись существует, одобрена, редактируема
// и принадлежит who.
func (s *EditService) gate(ctx context.Context, id string, who Identity) (*models.Record, error) {
	rec, err := s.db.GetRecord(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения записи: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %w: запись %s", ErrNotEditable, ErrNotFound, id)
	}
	if !rec.Status.Allows(models.OpEdit) {
		return nil, fmt.Errorf("%w: запись в статусе %s", ErrNotEditable, rec.Status)
	}
	if !rec.Editable {
		return nil, fmt.Errorf("%w: запись закреплена", ErrNotEditable)
	}
	if rec.Uploader != who.Hash() {
		return nil, fmt.Errorf("%w: запись загружена другим клиентом", ErrNotEditable)
	}
	return rec, nil
}

// prepare проверяет поля запроса и строит изменение для БД (без файлов).
// Отдельное значение imageCount допустимо, только если оно совпадает
// с фактическим числом файлов: imageCount всегда равен len(files).
func (s *EditService) prepare(rec *models.Record, req EditRequest) (models.RecordUpdate, error) {
	if req.Text != nil {
		if err := validateCaption(*req.Text, "подпись", s.limits.MaxCaptionLength); err != nil {
			return models.RecordUpdate{}, err
		}
	}
	if req.Title != nil {
		if err := validateCaption(*req.Title, "заголовок", s.limits.MaxCaptionLength); err != nil {
			return models.RecordUpdate{}, err
		}
	}

	upd := models.RecordUpdate{Text: req.Text, Title: req.Title}

	if n := len(req.Uploads); n > 0 {
		if n > s.limits.MaxFiles {
			return upd, fmt.Errorf("%w: можно загрузить не более %d файлов", ErrValidation, s.limits.MaxFiles)
		}
		if req.ImageCount != nil && *req.ImageCount != n {
			return upd, fmt.Errorf("%w: imageCount=%d не совпадает с числом файлов %d", ErrValidation, *req.ImageCount, n)
		}
		return upd, nil
	}

	if req.ImageCount != nil {
		if *req.ImageCount != len(rec.Files) {
			return upd, fmt.Errorf("%w: imageCount=%d не совпадает с числом файлов %d", ErrValidation, *req.ImageCount, len(rec.Files))
		}
		upd.ImageCount = req.ImageCount
	}
	return upd, nil
}
