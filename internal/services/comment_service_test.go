package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// TestComments_OnlyApproved проверяет, что комментировать можно только одобренные записи.
func TestComments_OnlyApproved(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	rec := e.submit(t, alice, "hello", false, 1)

	if _, err := e.comments.Add(ctx, rec.ID, "рано", bob); !errors.Is(err, ErrNotFound) {
		t.Errorf("комментарий к pending: ожидалась ErrNotFound, получено %v", err)
	}
	if _, err := e.comments.List(ctx, rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("список к pending: ожидалась ErrNotFound, получено %v", err)
	}
	if _, err := e.comments.Add(ctx, "missing", "где?", bob); !errors.Is(err, ErrNotFound) {
		t.Errorf("комментарий к несуществующей записи: ожидалась ErrNotFound, получено %v", err)
	}

	e.approve(t, rec.ID)

	list, err := e.comments.List(ctx, rec.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Errorf("ожидался пустой (не nil) список, получено %#v", list)
	}

	c, err := e.comments.Add(ctx, rec.ID, "  nice  ", bob)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if c.Content != "nice" || c.ID == "" || c.Commenter != bob.Hash() {
		t.Errorf("комментарий сохранен неверно: %+v", c)
	}
}

// TestComments_Validation проверяет проверку текста.
func TestComments_Validation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	rec := e.submit(t, alice, "", false, 1)
	e.approve(t, rec.ID)

	for _, content := range []string{"", "   ", "\n\t", strings.Repeat("x", 101)} {
		if _, err := e.comments.Add(ctx, rec.ID, content, bob); !errors.Is(err, ErrValidation) {
			t.Errorf("Add(%q): ожидалась ErrValidation, получено %v", content, err)
		}
	}
}

// TestComments_Ordered проверяет порядок по времени.
func TestComments_Ordered(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	rec := e.submit(t, alice, "", false, 1)
	e.approve(t, rec.ID)

	want := []string{"первый", "второй", "третий"}
	for _, content := range want {
		if _, err := e.comments.Add(ctx, rec.ID, content, bob); err != nil {
			t.Fatalf("Add(%s): %v", content, err)
		}
		e.advance(time.Second)
	}

	list, err := e.comments.List(ctx, rec.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != len(want) {
		t.Fatalf("ожидалось %d комментариев, получено %d", len(want), len(list))
	}
	for i, c := range list {
		if c.Content != want[i] {
			t.Errorf("позиция %d: ожидалось %q, получено %q", i, want[i], c.Content)
		}
		if i > 0 && c.CommentedAt.Before(list[i-1].CommentedAt) {
			t.Errorf("нарушен порядок времени на позиции %d", i)
		}
	}
}
