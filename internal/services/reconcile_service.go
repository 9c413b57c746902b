package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"picwall/internal/database"
	"picwall/internal/storage"
)

// DefaultGracePeriod: файлы моложе этого возраста не считаются осиротевшими,
// загрузка пишет файл раньше, чем фиксирует ссылку на него в БД.
const DefaultGracePeriod = 10 * time.Minute

// ReconcileReport: результат сверки каталога контента с record_files.
type ReconcileReport struct {
	Orphans  []string `json:"orphans"`  // файлы на диске без строки в record_files
	Dangling []string `json:"dangling"` // строки record_files без файла на диске
	Temps    []string `json:"temps"`    // незавершенные временные файлы
	Removed  int      `json:"removed"`  // удалено файлов (0 при dry run)
	Skipped  int      `json:"skipped"`  // пропущено молодых файлов
}

// ReconcileService сверяет каталог контента с базой после сбоев.
// Запускается только вручную.
type ReconcileService struct {
	db    *database.DB
	store *storage.Store
	grace time.Duration
	now   Clock
	log   logrus.FieldLogger

	mu        sync.Mutex
	inProcess bool
}

// NewReconcileService создает сервис сверки.
func NewReconcileService(db *database.DB, store *storage.Store, grace time.Duration, now Clock, logger logrus.FieldLogger) *ReconcileService {
	return &ReconcileService{
		db:    db,
		store: store,
		grace: grace,
		now:   now,
		log:   logger.WithField("component", "reconcile"),
	}
}

// Run выполняет один проход сверки. При dryRun ничего не удаляется.
// Висячие ссылки только сообщаются: восстановить файл невозможно.
func (s *ReconcileService) Run(ctx context.Context, dryRun bool) (*ReconcileReport, error) {
	s.mu.Lock()
	if s.inProcess {
		s.mu.Unlock()
		return nil, fmt.Errorf("сверка уже выполняется")
	}
	s.inProcess = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inProcess = false
		s.mu.Unlock()
	}()

	names, err := s.db.ListFilenames(ctx)
	if err != nil {
		return nil, err
	}
	referenced := make(map[string]struct{}, len(names))
	for _, n := range names {
		referenced[n] = struct{}{}
	}

	files, temps, err := s.store.List()
	if err != nil {
		return nil, err
	}
	onDisk := make(map[string]struct{}, len(files))
	for _, f := range files {
		onDisk[f] = struct{}{}
	}

	report := &ReconcileReport{
		Orphans:  []string{},
		Dangling: []string{},
		Temps:    []string{},
	}
	cutoff := s.now().Add(-s.grace)

	for _, f := range files {
		if _, ok := referenced[f]; ok {
			continue
		}
		if s.young(f, cutoff) {
			report.Skipped++
			continue
		}
		report.Orphans = append(report.Orphans, f)
		if !dryRun && s.remove(f, s.store.Delete) {
			report.Removed++
		}
	}

	for _, t := range temps {
		if s.young(t, cutoff) {
			report.Skipped++
			continue
		}
		report.Temps = append(report.Temps, t)
		if !dryRun && s.remove(t, s.store.RemoveTemp) {
			report.Removed++
		}
	}

	for _, n := range names {
		if _, ok := onDisk[n]; !ok {
			report.Dangling = append(report.Dangling, n)
			s.log.WithField("file", n).Warn("Запись ссылается на отсутствующий файл")
		}
	}

	s.log.WithFields(logrus.Fields{
		"orphans":  len(report.Orphans),
		"temps":    len(report.Temps),
		"dangling": len(report.Dangling),
		"removed":  report.Removed,
		"skipped":  report.Skipped,
		"dry_run":  dryRun,
	}).Info("Сверка завершена")
	return report, nil
}

func (s *ReconcileService) young(name string, cutoff time.Time) bool {
	mt, err := s.store.ModTime(name)
	if err != nil {
		// Файл исчез во время прохода
		return true
	}
	return mt.After(cutoff)
}

func (s *ReconcileService) remove(name string, del func(string) error) bool {
	if err := del(name); err != nil {
		s.log.WithError(err).WithField("file", name).Error("Не удалось удалить файл")
		return false
	}
	s.log.WithField("file", name).Info("Удален осиротевший файл")
	return true
}
