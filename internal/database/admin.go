package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"picwall/internal/models"
)

// GetAdminCredential возвращает учетные данные администратора.
// Если они еще не заданы: (nil, nil).
func (db *DB) GetAdminCredential(ctx context.Context) (*models.AdminCredential, error) {
	query, args, err := sqlb().
		Select("password_hash", "salt", "updated_at").
		From("admin").
		Where("id = 1").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка построения запроса GetAdminCredential: %w", err)
	}

	var (
		c         models.AdminCredential
		updatedAt int64
	)
	err = db.conn.QueryRowContext(ctx, query, args...).Scan(&c.PasswordHash, &c.Salt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования GetAdminCredential: %w", err)
	}
	c.UpdatedAt = fromMillis(updatedAt)
	return &c, nil
}

// SetAdminCredential создает или заменяет единственную строку admin.
func (db *DB) SetAdminCredential(ctx context.Context, c *models.AdminCredential) error {
	query, args, err := sqlb().
		Insert("admin").
		Columns("id", "password_hash", "salt", "updated_at").
		Values(1, c.PasswordHash, c.Salt, toMillis(c.UpdatedAt)).
		Suffix(`ON CONFLICT(id) DO UPDATE SET
			password_hash = excluded.password_hash,
			salt = excluded.salt,
			updated_at = excluded.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("ошибка построения запроса SetAdminCredential: %w", err)
	}
	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("ошибка выполнения запроса SetAdminCredential: %w", err)
	}
	db.log.Info("Учетные данные администратора обновлены")
	return nil
}
