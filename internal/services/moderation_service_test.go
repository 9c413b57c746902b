package services

import (
	"context"
	"errors"
	"testing"

	"picwall/internal/models"
)

// TestReview_ApproveThenReject проверяет повторное рассмотрение и удаление файлов.
func TestReview_ApproveThenReject(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	rec := e.submit(t, alice, "hello", false, 2)
	files := rec.Files

	approved, err := e.moderation.Review(ctx, rec.ID, "approved")
	if err != nil {
		t.Fatalf("Review(approved): %v", err)
	}
	if approved.Status != models.StatusApproved || approved.ReviewedAt == nil {
		t.Errorf("запись не одобрена: %+v", approved)
	}

	// Повтор того же решения допустим
	if _, err := e.moderation.Review(ctx, rec.ID, "approved"); err != nil {
		t.Errorf("повторное одобрение: %v", err)
	}

	rejected, err := e.moderation.Review(ctx, rec.ID, "rejected")
	if err != nil {
		t.Fatalf("Review(rejected): %v", err)
	}
	if rejected.Status != models.StatusRejected {
		t.Errorf("статус: ожидался rejected, получен %s", rejected.Status)
	}
	if rejected.ImageCount != 0 || len(rejected.Files) != 0 {
		t.Errorf("у отклоненной записи остались файлы: count=%d files=%v", rejected.ImageCount, rejected.Files)
	}
	for _, f := range files {
		if e.store.Exists(f.Filename) {
			t.Errorf("файл %s не удален с диска", f.Filename)
		}
	}

	if rec, _ := e.records.RandomApproved(ctx); rec != nil {
		t.Error("отклоненная запись доступна для случайного выбора")
	}
}

// TestReview_Transitions проверяет матрицу переходов.
func TestReview_Transitions(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	pending := e.submit(t, alice, "", false, 1)
	rejected := e.submit(t, bob, "", false, 1)
	if _, err := e.moderation.Review(ctx, rejected.ID, "rejected"); err != nil {
		t.Fatalf("Review(rejected): %v", err)
	}

	tests := []struct {
		name   string
		id     string
		status string
		want   error
	}{
		{"статус pending недопустим", pending.ID, "pending", ErrInvalidStatus},
		{"неизвестный статус", pending.ID, "deleted", ErrInvalidStatus},
		{"пустой статус", pending.ID, "", ErrInvalidStatus},
		{"регистр имеет значение", pending.ID, "Approved", ErrInvalidStatus},
		{"нет записи", "00000000-0000-0000-0000-000000000000", "approved", ErrNotFound},
		{"из rejected выхода нет", rejected.ID, "approved", ErrInvalidTransition},
		{"повторное отклонение", rejected.ID, "rejected", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.moderation.Review(ctx, tt.id, tt.status)
			if tt.want == nil {
				if err != nil {
					t.Errorf("неожиданная ошибка: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("ожидалась %v, получено %v", tt.want, err)
			}
		})
	}

	got, err := e.records.Get(ctx, pending.ID)
	if err != nil || got.Status != models.StatusPending {
		t.Errorf("отклоненные запросы изменили запись: %+v %v", got, err)
	}
}
