// Пакет storage хранит файлы изображений под сгенерированными именами.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// tmpSuffix: суффикс незавершенной записи.
const tmpSuffix = ".tmp"

// ErrBadName: имя файла выходит за пределы каталога.
var ErrBadName = errors.New("недопустимое имя файла")

// Store: каталог контента на диске.
type Store struct {
	dir string
}

// New создает Store и при необходимости саму директорию.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию контента %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir возвращает путь к каталогу.
func (s *Store) Dir() string {
	return s.dir
}

// Path возвращает полный путь файла name.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Save записывает данные из reader в файл name.
//
// Паттерн: temp файл → запись → fsync → атомарный rename.
// Файл с именем name либо появляется целиком, либо не появляется вовсе.
func (s *Store) Save(reader io.Reader, name string) (int64, error) {
	if err := checkName(name); err != nil {
		return 0, err
	}
	fullPath := s.Path(name)
	tmpPath := fullPath + tmpSuffix

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return 0, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	size, err := io.Copy(f, reader)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return 0, fmt.Errorf("ошибка записи данных: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return 0, fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return size, nil
}

// Delete удаляет файл. Отсутствующий файл не считается ошибкой.
func (s *Store) Delete(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	err := os.Remove(s.Path(name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления файла %s: %w", name, err)
	}
	return nil
}

// Exists проверяет наличие файла.
func (s *Store) Exists(name string) bool {
	if checkName(name) != nil {
		return false
	}
	_, err := os.Stat(s.Path(name))
	return err == nil
}

// ModTime возвращает время последнего изменения файла.
func (s *Store) ModTime(name string) (time.Time, error) {
	info, err := os.Stat(s.Path(name))
	if err != nil {
		return time.Time{}, fmt.Errorf("ошибка получения информации о файле %s: %w", name, err)
	}
	return info.ModTime(), nil
}

// List возвращает имена всех завершенных файлов каталога.
// Временные файлы (*.tmp) возвращаются отдельно.
func (s *Store) List() (files []string, temps []string, err error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка чтения каталога %s: %w", s.dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), tmpSuffix) {
			temps = append(temps, e.Name())
			continue
		}
		files = append(files, e.Name())
	}
	return files, temps, nil
}

// RemoveTemp удаляет незавершенный временный файл.
func (s *Store) RemoveTemp(name string) error {
	if !strings.HasSuffix(name, tmpSuffix) {
		return ErrBadName
	}
	return s.Delete(name)
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrBadName, name)
	}
	return nil
}
