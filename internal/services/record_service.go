package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"picwall/internal/database"
	"picwall/internal/metrics"
	"picwall/internal/models"
)

// Limits: ограничения на присылаемый контент.
type Limits struct {
	MaxFiles         int
	MaxCaptionLength int
	MaxCommentLength int
}

// Submission содержит ключ, подпись и файлы, присланные клиентом.
type Submission struct {
	Token    string
	Text     string
	Title    string
	Editable bool
	Uploads  []Upload // первый файл: основной
}

// RecordService создает записи и выбирает их по статусу или случайно.
type RecordService struct {
	db      *database.DB
	keys    *KeyService
	images  *ImageService
	limits  Limits
	now     Clock
	intn    func(n int) int
	log     logrus.FieldLogger
	metrics *metrics.Metrics
}

// NewRecordService создает сервис записей.
func NewRecordService(
	db *database.DB,
	keys *KeyService,
	images *ImageService,
	limits Limits,
	now Clock,
	logger logrus.FieldLogger,
	m *metrics.Metrics,
) *RecordService {
	return &RecordService{
		db:      db,
		keys:    keys,
		images:  images,
		limits:  limits,
		now:     now,
		intn:    rand.IntN,
		log:     logger.WithField("component", "records"),
		metrics: m,
	}
}

// Submit проводит загрузку целиком:
// проверка входных данных → погашение ключа → запись файлов → создание записи pending.
// Все проверки выполняются до первого изменения в хранилище.
func (s *RecordService) Submit(ctx context.Context, sub Submission, id Identity) (*models.Record, error) {
	if sub.Token == "" {
		s.metrics.Upload("invalid")
		return nil, fmt.Errorf("%w: ключ не передан", ErrInvalidKey)
	}
	if err := s.validateText(sub.Text, sub.Title); err != nil {
		s.metrics.Upload("invalid")
		return nil, err
	}
	items, err := s.inspect(sub.Uploads)
	if err != nil {
		s.metrics.Upload("invalid")
		return nil, err
	}

	if err := s.keys.ValidateAndConsume(ctx, sub.Token, id); err != nil {
		s.metrics.Upload("invalid_key")
		return nil, err
	}

	files, err := s.images.SaveAll(ctx, id.Hash(), items)
	if err != nil {
		s.keys.Release(ctx, sub.Token)
		s.metrics.Upload("error")
		return nil, fmt.Errorf("ошибка сохранения файлов: %w", err)
	}

	rec, err := s.Create(ctx, models.RecordDraft{
		Text:     sub.Text,
		Title:    sub.Title,
		Editable: sub.Editable,
		Uploader: id.Hash(),
		IP:       id.Address,
		Files:    files,
		Original: items[0].Filename,
	})
	if err != nil {
		s.images.DeleteFiles(files)
		s.keys.Release(ctx, sub.Token)
		s.metrics.Upload("error")
		return nil, err
	}

	s.metrics.Upload("ok")
	return rec, nil
}

// Create сохраняет запись со статусом pending для уже записанных файлов.
func (s *RecordService) Create(ctx context.Context, draft models.RecordDraft) (*models.Record, error) {
	if len(draft.Files) == 0 {
		return nil, fmt.Errorf("%w: запись без файлов", ErrValidation)
	}

	uid, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("не удалось сгенерировать идентификатор записи: %w", err)
	}

	rec := models.NewRecord(uid.String(), draft, s.now())
	if err := s.db.CreateRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("ошибка создания записи: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"record_id": rec.ID,
		"files":     rec.ImageCount,
		"uploader":  shortHash(rec.Uploader),
	}).Info("Запись создана и ожидает модерации")
	return rec, nil
}

// List возвращает записи со статусом status; пустой статус: все записи.
func (s *RecordService) List(ctx context.Context, status models.Status) ([]*models.Record, error) {
	records, err := s.db.ListRecords(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения записей: %w", err)
	}
	return records, nil
}

// Get возвращает запись независимо от статуса.
func (s *RecordService) Get(ctx context.Context, id string) (*models.Record, error) {
	rec, err := s.db.GetRecord(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения записи: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: запись %s", ErrNotFound, id)
	}
	return rec, nil
}

// GetPublic возвращает запись, только если она видна публично.
func (s *RecordService) GetPublic(ctx context.Context, id string) (*models.Record, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rec.Status.Allows(models.OpList) {
		return nil, fmt.Errorf("%w: запись %s", ErrNotFound, id)
	}
	return rec, nil
}

// RandomApproved выбирает одобренную запись равновероятно.
// Если одобренных записей нет: (nil, nil).
//
// Подсчет и выборка по смещению не транзакционны: запись, рассмотренная
// между ними, может дать промах, и тогда возвращается (nil, nil).
func (s *RecordService) RandomApproved(ctx context.Context) (*models.Record, error) {
	statuses := models.StatusesAllowing(models.OpRandom)
	n, err := s.db.CountRecords(ctx, statuses...)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчета одобренных записей: %w", err)
	}
	if n == 0 {
		return nil, nil
	}

	rec, err := s.db.RecordAt(ctx, s.intn(n), statuses...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки случайной записи: %w", err)
	}
	return rec, nil
}

func (s *RecordService) inspect(uploads []Upload) ([]*Inspected, error) {
	if len(uploads) == 0 {
		return nil, fmt.Errorf("%w: не выбран ни один файл", ErrValidation)
	}
	if len(uploads) > s.limits.MaxFiles {
		return nil, fmt.Errorf("%w: можно загрузить не более %d файлов", ErrValidation, s.limits.MaxFiles)
	}
	return s.images.InspectAll(uploads)
}

func (s *RecordService) validateText(text, title string) error {
	if err := validateCaption(text, "подпись", s.limits.MaxCaptionLength); err != nil {
		return err
	}
	return validateCaption(title, "заголовок", s.limits.MaxCaptionLength)
}

func validateCaption(v string, field string, limit int) error {
	if utf8.RuneCountInString(v) > limit {
		return fmt.Errorf("%w: %s длиннее %d символов", ErrValidation, field, limit)
	}
	return nil
}
