package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"picwall/internal/models"
)

var keyColumns = []string{
	"token",
	"ip",
	"user_agent",
	"identity",
	"issue_date",
	"consumed",
	"created_at",
	"consumed_at",
}

// UpsertKey сохраняет ключ загрузки (insert-or-replace).
// Повторный запрос в тот же день перезаписывает неиспользованный ключ.
// Использованный ключ не перезаписывается: stored == false.
func (db *DB) UpsertKey(ctx context.Context, key *models.UploadKey) (stored bool, err error) {
	query, args, err := sqlb().
		Insert("keys").
		Columns(keyColumns...).
		Values(
			key.Token,
			key.IP,
			key.UserAgent,
			key.Identity,
			key.IssueDate,
			false,
			toMillis(key.CreatedAt),
			nil,
		).
		Suffix(`ON CONFLICT(token) DO UPDATE SET
			ip = excluded.ip,
			user_agent = excluded.user_agent,
			identity = excluded.identity,
			issue_date = excluded.issue_date,
			created_at = excluded.created_at
			WHERE keys.consumed = 0`).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("ошибка построения запроса UpsertKey: %w", err)
	}

	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("ошибка выполнения запроса UpsertKey: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ошибка получения rowsAffected в UpsertKey: %w", err)
	}
	return affected > 0, nil
}

// ConsumeKey атомарно помечает ключ использованным.
// Условие проверяется в самом UPDATE (compare-and-set по consumed),
// поэтому из двух конкурентных запросов успешен только один.
func (db *DB) ConsumeKey(ctx context.Context, token, ip, userAgent, date string, at time.Time) (bool, error) {
	query, args, err := sqlb().
		Update("keys").
		Set("consumed", true).
		Set("consumed_at", toMillis(at)).
		Where(sq.Eq{
			"token":      token,
			"ip":         ip,
			"user_agent": userAgent,
			"issue_date": date,
			"consumed":   false,
		}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("ошибка построения запроса ConsumeKey: %w", err)
	}

	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("ошибка выполнения запроса ConsumeKey: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ошибка получения rowsAffected в ConsumeKey: %w", err)
	}
	return affected == 1, nil
}

// ReleaseKey возвращает ключ в неиспользованное состояние.
// Применяется, только если загрузка не удалась по вине сервера.
func (db *DB) ReleaseKey(ctx context.Context, token string) error {
	query, args, err := sqlb().
		Update("keys").
		Set("consumed", false).
		Set("consumed_at", nil).
		Where(sq.Eq{"token": token}).
		ToSql()
	if err != nil {
		return fmt.Errorf("ошибка построения запроса ReleaseKey: %w", err)
	}
	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("ошибка выполнения запроса ReleaseKey: %w", err)
	}
	return nil
}

// GetKey возвращает ключ по токену. Если ключа нет: (nil, nil).
func (db *DB) GetKey(ctx context.Context, token string) (*models.UploadKey, error) {
	query, args, err := sqlb().
		Select(keyColumns...).
		From("keys").
		Where(sq.Eq{"token": token}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка построения запроса GetKey: %w", err)
	}

	var (
		k          models.UploadKey
		createdAt  int64
		consumedAt sql.NullInt64
	)
	err = db.conn.QueryRowContext(ctx, query, args...).Scan(
		&k.Token,
		&k.IP,
		&k.UserAgent,
		&k.Identity,
		&k.IssueDate,
		&k.Consumed,
		&createdAt,
		&consumedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования GetKey: %w", err)
	}
	k.CreatedAt = fromMillis(createdAt)
	k.ConsumedAt = fromNullMillis(consumedAt)
	return &k, nil
}
