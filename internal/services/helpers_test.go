package services

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"picwall/internal/database"
	"picwall/internal/metrics"
	"picwall/internal/models"
	"picwall/internal/storage"
)

// testEnv: полный набор сервисов поверх временной БД и каталога.
type testEnv struct {
	db    *database.DB
	store *storage.Store
	now   time.Time

	keys       *KeyService
	images     *ImageService
	records    *RecordService
	moderation *ModerationService
	comments   *CommentService
	edits      *EditService
	admin      *AdminService
	reconcile  *ReconcileService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	dir := t.TempDir()
	db, err := database.Open(filepath.Join(dir, "picwall.db"), logger)
	if err != nil {
		t.Fatalf("ошибка открытия БД: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := storage.New(filepath.Join(dir, "uploads"))
	if err != nil {
		t.Fatalf("ошибка создания хранилища: %v", err)
	}

	e := &testEnv{
		db:    db,
		store: store,
		now:   time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return e.now }
	limits := Limits{MaxFiles: 4, MaxCaptionLength: 200, MaxCommentLength: 100}
	m := metrics.New()

	e.keys = NewKeyService(db, clock, logger, m)
	e.images = NewImageService(store, 1<<20, clock, logger)
	e.records = NewRecordService(db, e.keys, e.images, limits, clock, logger, m)
	e.moderation = NewModerationService(db, e.images, clock, logger, m)
	e.comments = NewCommentService(db, limits.MaxCommentLength, clock, logger, m)
	e.edits = NewEditService(db, e.images, limits, clock, logger, m)
	e.admin = NewAdminService(db, clock, logger)
	e.reconcile = NewReconcileService(db, store, DefaultGracePeriod, clock, logger)
	return e
}

// advance сдвигает часы окружения.
func (e *testEnv) advance(d time.Duration) {
	e.now = e.now.Add(d)
}

// submit выдает ключ идентичности id и загружает n PNG-файлов.
func (e *testEnv) submit(t *testing.T, id Identity, text string, editable bool, n int) *models.Record {
	t.Helper()
	ctx := context.Background()

	token, err := e.keys.RequestKey(ctx, id)
	if err != nil {
		t.Fatalf("RequestKey: %v", err)
	}

	uploads := make([]Upload, n)
	for i := range uploads {
		uploads[i] = pngUpload(t, "photo.png")
	}
	rec, err := e.records.Submit(ctx, Submission{Token: token, Text: text, Editable: editable, Uploads: uploads}, id)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return rec
}

// approve одобряет запись.
func (e *testEnv) approve(t *testing.T, id string) {
	t.Helper()
	if _, err := e.moderation.Review(context.Background(), id, "approved"); err != nil {
		t.Fatalf("Review(approved): %v", err)
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func gifBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewPaletted(image.Rect(0, 0, 4, 4), color.Palette{color.Black, color.White})
	var buf bytes.Buffer
	if err := gif.Encode(&buf, img, nil); err != nil {
		t.Fatalf("gif.Encode: %v", err)
	}
	return buf.Bytes()
}

func bytesUpload(name string, data []byte) Upload {
	return Upload{
		Filename: name,
		Size:     int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func pngUpload(t *testing.T, name string) Upload {
	t.Helper()
	return bytesUpload(name, pngBytes(t))
}

var (
	alice = Fingerprint("192.0.2.10", "Mozilla/5.0 (alice)")
	bob   = Fingerprint("192.0.2.20", "Mozilla/5.0 (bob)")
)
