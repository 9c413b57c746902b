package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"picwall/internal/database"
	"picwall/internal/metrics"
	"picwall/internal/models"
)

// KeyService выдает и погашает одноразовые ключи загрузки.
//
// Ключ действителен только в день выдачи: вместо срока годности
// используется сравнение дат, поэтому фоновая очистка не нужна.
type KeyService struct {
	db      *database.DB
	now     Clock
	log     logrus.FieldLogger
	metrics *metrics.Metrics
}

// NewKeyService создает сервис ключей.
func NewKeyService(db *database.DB, now Clock, logger logrus.FieldLogger, m *metrics.Metrics) *KeyService {
	return &KeyService{
		db:      db,
		now:     now,
		log:     logger.WithField("component", "keys"),
		metrics: m,
	}
}

// RequestKey выдает ключ идентичности id на сегодня.
// Если у идентичности уже есть запись, загруженная сегодня, возвращает ErrRateLimited.
func (s *KeyService) RequestKey(ctx context.Context, id Identity) (string, error) {
	now := s.now()
	start, end := DayBounds(now)

	n, err := s.db.CountUploads(ctx, id.Hash(), start, end)
	if err != nil {
		return "", fmt.Errorf("ошибка проверки загрузок за день: %w", err)
	}
	if n > 0 {
		s.metrics.KeyRejected("uploaded_today")
		return "", fmt.Errorf("%w: загрузка на сегодня уже выполнена", ErrRateLimited)
	}

	date := DateOf(now)
	key := &models.UploadKey{
		Token:     id.TokenFor(date),
		IP:        id.Address,
		UserAgent: id.Agent,
		Identity:  id.Hash(),
		IssueDate: date,
		Consumed:  false,
		CreatedAt: now,
	}

	stored, err := s.db.UpsertKey(ctx, key)
	if err != nil {
		return "", fmt.Errorf("ошибка сохранения ключа: %w", err)
	}
	if !stored {
		// Ключ на сегодня уже погашен, а запись еще не создана (загрузка в процессе)
		s.metrics.KeyRejected("consumed_today")
		return "", fmt.Errorf("%w: ключ на сегодня уже использован", ErrRateLimited)
	}

	s.metrics.KeyIssued()
	s.log.WithFields(logrus.Fields{"identity": shortHash(key.Identity), "date": date}).Info("Ключ загрузки выдан")
	return key.Token, nil
}

// ValidateAndConsume погашает ключ token для идентичности id.
// Проверка и погашение выполняются одним условным UPDATE.
func (s *KeyService) ValidateAndConsume(ctx context.Context, token string, id Identity) error {
	if token == "" {
		s.metrics.KeyRejected("missing")
		return fmt.Errorf("%w: ключ не передан", ErrInvalidKey)
	}

	now := s.now()
	date := DateOf(now)
	ok, err := s.db.ConsumeKey(ctx, token, id.Address, id.Agent, date, now)
	if err != nil {
		return fmt.Errorf("ошибка погашения ключа: %w", err)
	}
	if ok {
		return nil
	}

	reason := s.rejectReason(ctx, token, id, date)
	s.metrics.KeyRejected(reason)
	s.log.WithFields(logrus.Fields{"token": shortHash(token), "reason": reason}).Warn("Ключ загрузки отклонен")
	return fmt.Errorf("%w (%s)", ErrInvalidKey, reason)
}

// Release возвращает погашенный ключ, если загрузка не удалась по вине сервера.
func (s *KeyService) Release(ctx context.Context, token string) {
	if err := s.db.ReleaseKey(ctx, token); err != nil {
		s.log.WithError(err).WithField("token", shortHash(token)).Error("Не удалось вернуть ключ загрузки")
	}
}

// rejectReason определяет причину отказа (только для логов и метрик).
func (s *KeyService) rejectReason(ctx context.Context, token string, id Identity, date string) string {
	key, err := s.db.GetKey(ctx, token)
	switch {
	case err != nil || key == nil:
		return "unknown"
	case key.IP != id.Address || key.UserAgent != id.Agent:
		return "identity_mismatch"
	case key.IssueDate != date:
		return "expired"
	case !key.ValidOn(date):
		return "consumed"
	}
	return "race"
}

func shortHash(s string) string {
	if len(s) > 12 {
		return s[:12]
	}
	return s
}
