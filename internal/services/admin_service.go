package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"picwall/internal/auth"
	"picwall/internal/database"
	"picwall/internal/models"
)

// AdminService управляет паролем единственного администратора.
type AdminService struct {
	db  *database.DB
	now Clock
	log logrus.FieldLogger
}

// NewAdminService создает сервис администратора.
func NewAdminService(db *database.DB, now Clock, logger logrus.FieldLogger) *AdminService {
	return &AdminService{
		db:  db,
		now: now,
		log: logger.WithField("component", "admin"),
	}
}

// SetPassword задает (или заменяет) пароль администратора с новой солью.
func (s *AdminService) SetPassword(ctx context.Context, password string) error {
	if len(password) < auth.MinPasswordLength {
		return fmt.Errorf("%w: пароль должен быть не менее %d символов", ErrValidation, auth.MinPasswordLength)
	}

	salt, err := auth.NewSalt()
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(password, salt)
	if err != nil {
		return err
	}

	return s.db.SetAdminCredential(ctx, &models.AdminCredential{
		PasswordHash: hash,
		Salt:         salt,
		UpdatedAt:    s.now(),
	})
}

// Bootstrap задает пароль, только если учетные данные еще не созданы.
// Возвращает true, если пароль был установлен.
func (s *AdminService) Bootstrap(ctx context.Context, password string) (bool, error) {
	cred, err := s.db.GetAdminCredential(ctx)
	if err != nil {
		return false, err
	}
	if cred != nil {
		return false, nil
	}
	if password == "" {
		s.log.Warn("Пароль администратора не задан: вход в панель модерации невозможен")
		return false, nil
	}
	if err := s.SetPassword(ctx, password); err != nil {
		return false, err
	}
	s.log.Info("Пароль администратора установлен из ADMIN_PASSWORD")
	return true, nil
}

// Verify проверяет пароль администратора.
func (s *AdminService) Verify(ctx context.Context, password string) error {
	cred, err := s.db.GetAdminCredential(ctx)
	if err != nil {
		return fmt.Errorf("ошибка получения учетных данных: %w", err)
	}
	if cred == nil || !auth.CheckPasswordHash(password, cred.Salt, cred.PasswordHash) {
		s.log.Warn("Неудачная попытка входа администратора")
		return ErrUnauthorized
	}
	return nil
}
