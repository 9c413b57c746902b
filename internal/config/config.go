// Пакет config: загрузка конфигурации сервиса из переменных окружения.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config: параметры сервиса. Значения по умолчанию заданы в тегах.
type Config struct {
	Environment    string `envconfig:"ENVIRONMENT" default:"development"`
	ListenPort     string `envconfig:"LISTEN_PORT" default:"8080"`
	DBPath         string `envconfig:"DB_PATH" default:"./data/picwall.db"`
	UploadPath     string `envconfig:"UPLOAD_PATH" default:"./uploads"`
	CookieSecret   string `envconfig:"COOKIE_SECRET"`
	AdminPassword  string `envconfig:"ADMIN_PASSWORD"`
	TrustedProxies string `envconfig:"TRUSTED_PROXIES"`

	MaxUploadSize    int64 `envconfig:"MAX_UPLOAD_SIZE" default:"10485760"` // 10 МБ на файл
	MaxFiles         int   `envconfig:"MAX_FILES" default:"9"`
	MaxCaptionLength int   `envconfig:"MAX_CAPTION_LENGTH" default:"2000"`
	MaxCommentLength int   `envconfig:"MAX_COMMENT_LENGTH" default:"500"`
	DefaultEditable  bool  `envconfig:"DEFAULT_EDITABLE" default:"false"`

	CORSOrigins    string  `envconfig:"CORS_ORIGINS" default:"*"`
	RateLimitRPS   float64 `envconfig:"RATE_LIMIT_RPS" default:"5"`
	RateLimitBurst int     `envconfig:"RATE_LIMIT_BURST" default:"10"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
}

// Load читает .env (если есть) и переменные окружения.
func Load() (*Config, error) {
	// Отсутствие .env: штатная ситуация
	_ = godotenv.Load()

	c := new(Config)
	if err := envconfig.Process("", c); err != nil {
		return nil, fmt.Errorf("ошибка разбора переменных окружения: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate проверяет согласованность параметров.
func (c *Config) Validate() error {
	for name, dir := range map[string]string{"DB_PATH": c.DBPath, "UPLOAD_PATH": c.UploadPath} {
		if strings.TrimSpace(dir) == "" {
			return fmt.Errorf("%s не может быть пустым", name)
		}
		if dir == "/" || dir == "." {
			return fmt.Errorf("небезопасный путь %s: %s", name, dir)
		}
	}
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE должен быть положительным")
	}
	if c.MaxFiles <= 0 {
		return fmt.Errorf("MAX_FILES должен быть положительным")
	}
	if c.MaxCaptionLength <= 0 || c.MaxCommentLength <= 0 {
		return fmt.Errorf("ограничения длины текста должны быть положительными")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS и RATE_LIMIT_BURST должны быть положительными")
	}
	if !c.IsDevelopment() && len(c.CookieSecret) < 32 {
		return fmt.Errorf("COOKIE_SECRET должен содержать не менее 32 символов")
	}
	return nil
}

// IsDevelopment сообщает, запущен ли сервис в режиме разработки.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Origins возвращает список разрешенных CORS-источников.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Proxies возвращает список доверенных прокси (nil: не доверять никому).
func (c *Config) Proxies() []string {
	if strings.TrimSpace(c.TrustedProxies) == "" {
		return nil
	}
	return strings.Split(c.TrustedProxies, ",")
}

// EnsureDir проверяет существование директории и создает ее при необходимости.
func EnsureDir(dirPath string) error {
	if dirPath == "" {
		return fmt.Errorf("путь к директории не может быть пустым")
	}
	if dirPath == "/" || dirPath == "." {
		return fmt.Errorf("небезопасный путь для создания директории: %s", dirPath)
	}
	return ensureDir(dirPath)
}

// EnsureParentDir создает родительскую директорию файла filePath.
// Текущая и корневая директории допустимы: в них создается только сам файл.
func EnsureParentDir(filePath string) error {
	if filePath == "" {
		return fmt.Errorf("путь к файлу не может быть пустым")
	}
	abs, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("не удалось разрешить путь %s: %w", filePath, err)
	}
	return ensureDir(filepath.Dir(abs))
}

func ensureDir(dirPath string) error {
	info, err := os.Stat(dirPath)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(dirPath, 0o755); err != nil {
			return fmt.Errorf("не удалось создать папку %s: %w", dirPath, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("ошибка при проверке папки %s: %w", dirPath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("путь %s существует, но не является директорией", dirPath)
	}
	return nil
}
