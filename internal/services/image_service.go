package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // регистрация декодера GIF для image.DecodeConfig
	_ "image/jpeg" // регистрация декодера JPEG
	_ "image/png"  // регистрация декодера PNG
	"io"
	"mime/multipart"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/lithammer/shortuuid/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"picwall/internal/models"
	"picwall/internal/storage"
)

// sniffLen: сколько байт читать для определения типа содержимого.
const sniffLen = 3072

// AllowedImageTypes: допустимые MIME-типы и их расширения.
var AllowedImageTypes = map[string][]string{
	"image/jpeg": {".jpg", ".jpeg"},
	"image/png":  {".png"},
	"image/gif":  {".gif"},
}

// Upload: присланный файл до проверки.
type Upload struct {
	Filename string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// FromFileHeader оборачивает файл multipart-формы.
func FromFileHeader(fh *multipart.FileHeader) Upload {
	return Upload{
		Filename: fh.Filename,
		Size:     fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// Inspected: проверенный файл, готовый к сохранению.
type Inspected struct {
	Upload
	MIME   string
	Ext    string
	Width  int
	Height int
}

// ImageService проверяет изображения и сохраняет их в каталог контента.
type ImageService struct {
	store   *storage.Store
	maxSize int64
	now     Clock
	log     logrus.FieldLogger
}

// NewImageService создает сервис изображений.
func NewImageService(store *storage.Store, maxSize int64, now Clock, logger logrus.FieldLogger) *ImageService {
	return &ImageService{
		store:   store,
		maxSize: maxSize,
		now:     now,
		log:     logger.WithField("component", "images"),
	}
}

// Inspect проверяет размер, тип содержимого и читаемость заголовка изображения.
// Ошибки проверки оборачивают ErrValidation.
func (s *ImageService) Inspect(u Upload) (*Inspected, error) {
	if u.Size == 0 {
		return nil, fmt.Errorf("%w: файл '%s' пустой", ErrValidation, u.Filename)
	}
	if u.Size > s.maxSize {
		return nil, fmt.Errorf("%w: файл '%s' слишком большой (%s > %s)", ErrValidation,
			u.Filename, humanize.IBytes(uint64(u.Size)), humanize.IBytes(uint64(s.maxSize)))
	}

	f, err := u.Open()
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть загруженный файл: %w", err)
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("не удалось прочитать начало файла: %w", err)
	}
	head = head[:n]

	mime := mimetype.Detect(head)
	exts, ok := AllowedImageTypes[mime.String()]
	if !ok {
		return nil, fmt.Errorf("%w: недопустимый тип файла '%s': %s (разрешены JPEG, PNG, GIF)", ErrValidation, u.Filename, mime.String())
	}

	cfg, format, err := image.DecodeConfig(io.MultiReader(bytes.NewReader(head), f))
	if err != nil {
		return nil, fmt.Errorf("%w: не удалось распознать изображение '%s': %v", ErrValidation, u.Filename, err)
	}

	ext := strings.ToLower(filepath.Ext(u.Filename))
	if !slices.Contains(exts, ext) {
		ext = exts[0]
	}

	s.log.WithFields(logrus.Fields{
		"file":   u.Filename,
		"format": format,
		"size":   humanize.IBytes(uint64(u.Size)),
	}).Debug("Изображение проверено")

	return &Inspected{Upload: u, MIME: mime.String(), Ext: ext, Width: cfg.Width, Height: cfg.Height}, nil
}

// InspectAll проверяет все файлы; первая ошибка прерывает проверку.
func (s *ImageService) InspectAll(uploads []Upload) ([]*Inspected, error) {
	out := make([]*Inspected, 0, len(uploads))
	for _, u := range uploads {
		in, err := s.Inspect(u)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, nil
}

// StorageName строит имя файла в хранилище:
// {хеш идентичности}-{unix ms}-{случайный суффикс}{расширение}.
func (s *ImageService) StorageName(identityHash, ext string) string {
	return fmt.Sprintf("%s-%d-%s%s", shortHash(identityHash), s.now().UnixMilli(), shortuuid.New(), ext)
}

// SaveAll параллельно записывает файлы и дожидается всех записей.
// Если хотя бы одна запись не удалась, уже записанные файлы удаляются.
// Порядок результата совпадает с порядком items.
func (s *ImageService) SaveAll(ctx context.Context, identityHash string, items []*Inspected) ([]models.RecordFile, error) {
	files := make([]models.RecordFile, len(items))
	g, ctx := errgroup.WithContext(ctx)

	for i, item := range items {
		name := s.StorageName(identityHash, item.Ext)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := item.Open()
			if err != nil {
				return fmt.Errorf("не удалось открыть файл '%s': %w", item.Filename, err)
			}
			defer r.Close()

			size, err := s.store.Save(r, name)
			if err != nil {
				return fmt.Errorf("не удалось сохранить файл '%s': %w", item.Filename, err)
			}
			files[i] = models.RecordFile{Filename: name, Size: size}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.DeleteFiles(files)
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"identity": shortHash(identityHash), "files": len(files)}).Info("Файлы сохранены")
	return files, nil
}

// DeleteFiles удаляет файлы с диска. Ошибки только логируются:
// запись в БД к этому моменту уже зафиксирована.
func (s *ImageService) DeleteFiles(files []models.RecordFile) {
	for _, f := range files {
		if f.Filename == "" {
			continue
		}
		if err := s.store.Delete(f.Filename); err != nil {
			s.log.WithError(err).WithField("file", f.Filename).Warn("Не удалось удалить файл")
			continue
		}
		s.log.WithField("file", f.Filename).Debug("Файл удален")
	}
}
