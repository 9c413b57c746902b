package auth

import "testing"

// TestHashPassword проверяет хеширование и сверку пароля.
func TestHashPassword(t *testing.T) {
	salt, err := NewSalt()
	if err != nil {
		t.Fatalf("NewSalt: %v", err)
	}

	hash, err := HashPassword("correct horse battery", salt)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPasswordHash("correct horse battery", salt, hash) {
		t.Error("верный пароль не прошел проверку")
	}
	if CheckPasswordHash("wrong password", salt, hash) {
		t.Error("неверный пароль прошел проверку")
	}
	if CheckPasswordHash("correct horse battery", "other-salt", hash) {
		t.Error("пароль с чужой солью прошел проверку")
	}
}

// TestHashPassword_Short проверяет отказ для короткого пароля.
func TestHashPassword_Short(t *testing.T) {
	if _, err := HashPassword("short", "s"); err == nil {
		t.Error("ожидалась ошибка для короткого пароля")
	}
}

// TestHashPassword_Long проверяет пароли длиннее лимита bcrypt.
func TestHashPassword_Long(t *testing.T) {
	long := ""
	for len(long) < 200 {
		long += "0123456789"
	}
	hash, err := HashPassword(long, "s")
	if err != nil {
		t.Fatalf("длинный пароль должен хешироваться: %v", err)
	}
	if CheckPasswordHash(long[:199]+"x", "s", hash) {
		t.Error("измененный хвост пароля не должен проходить проверку")
	}
}

// TestGenerateSecureToken проверяет уникальность токенов.
func TestGenerateSecureToken(t *testing.T) {
	a, _ := GenerateSecureToken(32)
	b, _ := GenerateSecureToken(32)
	if a == b || len(a) == 0 {
		t.Errorf("токены должны быть различны и непусты: %q %q", a, b)
	}
}
