package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestLoad_Defaults проверяет значения по умолчанию.
func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir()) // без .env в рабочей директории

	cfg, err := Load()
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if cfg.ListenPort != "8080" {
		t.Errorf("ListenPort: ожидалось 8080, получено %q", cfg.ListenPort)
	}
	if cfg.MaxUploadSize != 10<<20 {
		t.Errorf("MaxUploadSize: ожидалось %d, получено %d", 10<<20, cfg.MaxUploadSize)
	}
	if cfg.MaxFiles != 9 {
		t.Errorf("MaxFiles: ожидалось 9, получено %d", cfg.MaxFiles)
	}
	if cfg.DefaultEditable {
		t.Error("DefaultEditable по умолчанию должен быть false")
	}
}

// TestLoad_Env проверяет переопределение через окружение.
func TestLoad_Env(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LISTEN_PORT", "9090")
	t.Setenv("MAX_FILES", "3")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if cfg.ListenPort != "9090" || cfg.MaxFiles != 3 {
		t.Errorf("переменные окружения не применены: %+v", cfg)
	}
	origins := cfg.Origins()
	if len(origins) != 2 || origins[1] != "https://b.example" {
		t.Errorf("Origins: получено %v", origins)
	}
}

// TestValidate проверяет отклонение некорректных конфигураций.
func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Environment:      "development",
			DBPath:           "data/db.sqlite",
			UploadPath:       "uploads",
			MaxUploadSize:    1,
			MaxFiles:         1,
			MaxCaptionLength: 1,
			MaxCommentLength: 1,
			RateLimitRPS:     1,
			RateLimitBurst:   1,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"валидная", func(c *Config) {}, false},
		{"пустой путь БД", func(c *Config) { c.DBPath = "" }, true},
		{"корень как uploads", func(c *Config) { c.UploadPath = "/" }, true},
		{"нулевой размер", func(c *Config) { c.MaxUploadSize = 0 }, true},
		{"нулевой лимит файлов", func(c *Config) { c.MaxFiles = 0 }, true},
		{"нулевой rps", func(c *Config) { c.RateLimitRPS = 0 }, true},
		{"production без секрета", func(c *Config) { c.Environment = "production" }, true},
		{"production с секретом", func(c *Config) {
			c.Environment = "production"
			c.CookieSecret = "0123456789abcdef0123456789abcdef"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr && err == nil {
				t.Error("ожидалась ошибка")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("неожиданная ошибка: %v", err)
			}
		})
	}
}

// TestEnsureDir проверяет создание и проверку директорий.
func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if err := EnsureDir(dir); err != nil {
		t.Fatalf("ошибка создания: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatal("директория не создана")
	}
	if err := EnsureDir(dir); err != nil {
		t.Errorf("повторный вызов не должен падать: %v", err)
	}

	file := filepath.Join(t.TempDir(), "f")
	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := EnsureDir(file); err == nil {
		t.Error("файл вместо директории должен вызывать ошибку")
	}
	if err := EnsureDir("/"); err == nil {
		t.Error("корень должен отклоняться")
	}
}

// TestEnsureParentDir проверяет родительскую директорию файла БД.
func TestEnsureParentDir(t *testing.T) {
	t.Chdir(t.TempDir())

	if err := EnsureParentDir("picwall.db"); err != nil {
		t.Errorf("файл в текущей директории должен приниматься: %v", err)
	}

	if err := EnsureParentDir(filepath.Join("data", "sub", "picwall.db")); err != nil {
		t.Fatalf("ошибка создания: %v", err)
	}
	if info, err := os.Stat(filepath.Join("data", "sub")); err != nil || !info.IsDir() {
		t.Error("родительская директория не создана")
	}

	if err := os.WriteFile("blocker", []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := EnsureParentDir(filepath.Join("blocker", "picwall.db")); err == nil {
		t.Error("файл на месте родительской директории должен вызывать ошибку")
	}
	if err := EnsureParentDir(""); err == nil {
		t.Error("пустой путь должен отклоняться")
	}
}
