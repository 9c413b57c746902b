// Пакет auth: хеширование пароля единственного администратора.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength: минимальная длина пароля администратора.
const MinPasswordLength = 8

// GenerateSecureToken возвращает случайную строку из length байт в base64url.
func GenerateSecureToken(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("не удалось сгенерировать случайные байты: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NewSalt возвращает новую соль для пароля.
func NewSalt() (string, error) {
	return GenerateSecureToken(16)
}

// salted сводит соль и пароль к 64 символам: bcrypt не принимает больше 72 байт.
func salted(password, salt string) []byte {
	sum := sha256.Sum256([]byte(salt + password))
	return []byte(hex.EncodeToString(sum[:]))
}

// HashPassword возвращает bcrypt-хеш пароля с солью.
func HashPassword(password, salt string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", fmt.Errorf("пароль должен быть не менее %d символов", MinPasswordLength)
	}
	bytes, err := bcrypt.GenerateFromPassword(salted(password, salt), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("ошибка хэширования пароля: %w", err)
	}
	return string(bytes), nil
}

// CheckPasswordHash сверяет пароль с хешем.
func CheckPasswordHash(password, salt, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), salted(password, salt))
	return err == nil
}
