package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/sirupsen/logrus"

	"picwall/internal/models"
)

var recordColumns = []string{
	"id",
	"text",
	"title",
	"filename",
	"original_filename",
	"file_size",
	"uploader",
	"uploader_ip",
	"uploaded_at",
	"status",
	"editable",
	"image_count",
	"reviewed_at",
	"updated_at",
}

var recordFileColumns = []string{
	"record_id",
	"filename",
	"is_main",
	"position",
	"size",
}

func scanRecord(row rowScanner) (*models.Record, error) {
	var (
		r          models.Record
		status     string
		uploadedAt int64
		updatedAt  int64
		reviewedAt sql.NullInt64
	)
	err := row.Scan(
		&r.ID,
		&r.Text,
		&r.Title,
		&r.Filename,
		&r.OriginalFilename,
		&r.FileSize,
		&r.Uploader,
		&r.UploaderIP,
		&uploadedAt,
		&status,
		&r.Editable,
		&r.ImageCount,
		&reviewedAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Status = models.Status(status)
	r.UploadedAt = fromMillis(uploadedAt)
	r.UpdatedAt = fromMillis(updatedAt)
	r.ReviewedAt = fromNullMillis(reviewedAt)
	r.Files = []models.RecordFile{}
	return &r, nil
}

// CreateRecord сохраняет запись и ее файлы в одной транзакции.
func (db *DB) CreateRecord(ctx context.Context, rec *models.Record) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		query, args, err := sqlb().
			Insert("records").
			Columns(recordColumns...).
			Values(
				rec.ID,
				rec.Text,
				rec.Title,
				rec.Filename,
				rec.OriginalFilename,
				rec.FileSize,
				rec.Uploader,
				rec.UploaderIP,
				toMillis(rec.UploadedAt),
				string(rec.Status),
				rec.Editable,
				rec.ImageCount,
				nullMillis(rec.ReviewedAt),
				toMillis(rec.UpdatedAt),
			).
			ToSql()
		if err != nil {
			return fmt.Errorf("ошибка построения запроса CreateRecord: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("ошибка выполнения запроса CreateRecord для %s: %w", rec.ID, err)
		}

		if err := insertFiles(ctx, tx, rec.Files); err != nil {
			return err
		}
		db.log.WithFields(logrus.Fields{"record_id": rec.ID, "files": len(rec.Files)}).Debug("Запись создана")
		return nil
	})
}

func insertFiles(ctx context.Context, q queryer, files []models.RecordFile) error {
	if len(files) == 0 {
		return nil
	}
	ins := sqlb().Insert("record_files").Columns(recordFileColumns...)
	for _, f := range files {
		ins = ins.Values(f.RecordID, f.Filename, f.IsMain, f.Position, f.Size)
	}
	query, args, err := ins.ToSql()
	if err != nil {
		return fmt.Errorf("ошибка построения запроса insertFiles: %w", err)
	}
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("ошибка сохранения файлов записи: %w", err)
	}
	return nil
}

// GetRecord возвращает запись с файлами. Если записи нет: (nil, nil).
func (db *DB) GetRecord(ctx context.Context, id string) (*models.Record, error) {
	query, args, err := sqlb().
		Select(recordColumns...).
		From("records").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка построения запроса GetRecord: %w", err)
	}

	rec, err := scanRecord(db.conn.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования GetRecord для %s: %w", id, err)
	}

	if err := db.hydrate(ctx, db.conn, []*models.Record{rec}); err != nil {
		return nil, err
	}
	return rec, nil
}

// ListRecords возвращает записи со статусом status (пустой статус: все),
// новые первыми, каждую с полным списком файлов.
func (db *DB) ListRecords(ctx context.Context, status models.Status) ([]*models.Record, error) {
	sel := sqlb().
		Select(recordColumns...).
		From("records").
		OrderBy("uploaded_at DESC", "id DESC")
	if status != "" {
		sel = sel.Where(sq.Eq{"status": string(status)})
	}

	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка построения запроса ListRecords: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса ListRecords: %w", err)
	}
	defer rows.Close()

	records := make([]*models.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования ListRecords: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения ListRecords: %w", err)
	}
	// Закрываем курсор до гидратации: соединение у нас одно
	rows.Close()

	if err := db.hydrate(ctx, db.conn, records); err != nil {
		return nil, err
	}
	return records, nil
}

// CountRecords считает записи с любым из статусов statuses; без статусов: все записи.
func (db *DB) CountRecords(ctx context.Context, statuses ...models.Status) (int, error) {
	query, args, err := whereStatus(sqlb().Select("COUNT(*)").From("records"), statuses).ToSql()
	if err != nil {
		return 0, fmt.Errorf("ошибка построения запроса CountRecords: %w", err)
	}

	var n int
	if err := db.conn.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("ошибка выполнения запроса CountRecords: %w", err)
	}
	return n, nil
}

// RecordAt возвращает запись с одним из статусов statuses по смещению offset
// в стабильном порядке (uploaded_at, id). Если смещение вне набора: (nil, nil).
func (db *DB) RecordAt(ctx context.Context, offset int, statuses ...models.Status) (*models.Record, error) {
	query, args, err := whereStatus(sqlb().Select(recordColumns...).From("records"), statuses).
		OrderBy("uploaded_at ASC", "id ASC").
		Limit(1).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка построения запроса RecordAt: %w", err)
	}

	rec, err := scanRecord(db.conn.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования RecordAt(%d): %w", offset, err)
	}

	if err := db.hydrate(ctx, db.conn, []*models.Record{rec}); err != nil {
		return nil, err
	}
	return rec, nil
}

func whereStatus(sel sq.SelectBuilder, statuses []models.Status) sq.SelectBuilder {
	if len(statuses) == 0 {
		return sel
	}
	vals := make([]string, len(statuses))
	for i, st := range statuses {
		vals[i] = string(st)
	}
	return sel.Where(sq.Eq{"status": vals})
}

// CountUploads считает записи идентичности uploader, загруженные в [from, to).
func (db *DB) CountUploads(ctx context.Context, uploader string, from, to time.Time) (int, error) {
	query, args, err := sqlb().
		Select("COUNT(*)").
		From("records").
		Where(sq.Eq{"uploader": uploader}).
		Where(sq.GtOrEq{"uploaded_at": toMillis(from)}).
		Where(sq.Lt{"uploaded_at": toMillis(to)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("ошибка построения запроса CountUploads: %w", err)
	}

	var n int
	if err := db.conn.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("ошибка выполнения запроса CountUploads: %w", err)
	}
	return n, nil
}

// UpdateStatus меняет статус записи с from на to (compare-and-set по статусу).
// Для to == rejected строки record_files удаляются в той же транзакции,
// а удаленные файлы возвращаются вызывающему для удаления с диска.
// ok == false, если запись не в статусе from (или не существует).
func (db *DB) UpdateStatus(ctx context.Context, id string, from, to models.Status, at time.Time) (removed []models.RecordFile, ok bool, err error) {
	err = db.withTx(ctx, func(tx *sql.Tx) error {
		upd := sqlb().
			Update("records").
			Set("status", string(to)).
			Set("reviewed_at", toMillis(at)).
			Set("updated_at", toMillis(at)).
			Where(sq.Eq{"id": id, "status": string(from)})
		if to == models.StatusRejected {
			upd = upd.
				Set("image_count", 0).
				Set("filename", "").
				Set("original_filename", "").
				Set("file_size", 0)
		}

		query, args, err := upd.ToSql()
		if err != nil {
			return fmt.Errorf("ошибка построения запроса UpdateStatus: %w", err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("ошибка выполнения запроса UpdateStatus для %s: %w", id, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("ошибка получения rowsAffected в UpdateStatus для %s: %w", id, err)
		}
		if affected == 0 {
			return nil
		}
		ok = true

		if to != models.StatusRejected {
			return nil
		}
		removed, err = listFiles(ctx, tx, id)
		if err != nil {
			return err
		}
		return deleteFiles(ctx, tx, id)
	})
	if err != nil {
		return nil, false, err
	}
	return removed, ok, nil
}

// UpdateContent применяет частичное изменение к одобренной редактируемой записи.
// Условие status = approved AND editable = 1 проверяется в самом UPDATE.
// При замене файлов возвращает старые файлы для удаления с диска.
func (db *DB) UpdateContent(ctx context.Context, id string, upd models.RecordUpdate, at time.Time) (old []models.RecordFile, ok bool, err error) {
	err = db.withTx(ctx, func(tx *sql.Tx) error {
		b := sqlb().
			Update("records").
			Set("updated_at", toMillis(at)).
			Where(sq.Eq{"id": id, "status": string(models.StatusApproved), "editable": true})
		if upd.Text != nil {
			b = b.Set("text", *upd.Text)
		}
		if upd.Title != nil {
			b = b.Set("title", *upd.Title)
		}
		if upd.Files != nil {
			b = b.Set("image_count", len(upd.Files))
			main := models.RecordFile{}
			if len(upd.Files) > 0 {
				main = upd.Files[0]
			}
			b = b.Set("filename", main.Filename).Set("file_size", main.Size)
		} else if upd.ImageCount != nil {
			b = b.Set("image_count", *upd.ImageCount)
		}

		query, args, err := b.ToSql()
		if err != nil {
			return fmt.Errorf("ошибка построения запроса UpdateContent: %w", err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("ошибка выполнения запроса UpdateContent для %s: %w", id, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("ошибка получения rowsAffected в UpdateContent для %s: %w", id, err)
		}
		if affected == 0 {
			return nil
		}
		ok = true

		if upd.Files == nil {
			return nil
		}
		if old, err = listFiles(ctx, tx, id); err != nil {
			return err
		}
		if err := deleteFiles(ctx, tx, id); err != nil {
			return err
		}
		return insertFiles(ctx, tx, upd.Files)
	})
	if err != nil {
		return nil, false, err
	}
	return old, ok, nil
}

// ListFilenames возвращает имена всех файлов, на которые ссылается record_files.
func (db *DB) ListFilenames(ctx context.Context) ([]string, error) {
	query, args, err := sqlb().Select("filename").From("record_files").ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка построения запроса ListFilenames: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса ListFilenames: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("ошибка сканирования ListFilenames: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// hydrateChunk: сколько id передается в один запрос hydrate.
// SQLite ограничивает число параметров запроса.
const hydrateChunk = 500

// hydrate заполняет Files у каждой записи, запрашивая файлы пачками по hydrateChunk id.
// Основной файл идет первым, далее по position.
func (db *DB) hydrate(ctx context.Context, q queryer, records []*models.Record) error {
	byID := make(map[string]*models.Record, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}
	for start := 0; start < len(records); start += hydrateChunk {
		end := min(start+hydrateChunk, len(records))
		ids := make([]string, 0, end-start)
		for _, r := range records[start:end] {
			ids = append(ids, r.ID)
		}
		if err := hydrateChunkFiles(ctx, q, ids, byID); err != nil {
			return err
		}
	}
	return nil
}

func hydrateChunkFiles(ctx context.Context, q queryer, ids []string, byID map[string]*models.Record) error {
	query, args, err := sqlb().
		Select(recordFileColumns...).
		From("record_files").
		Where(sq.Eq{"record_id": ids}).
		OrderBy("record_id", "is_main DESC", "position ASC").
		ToSql()
	if err != nil {
		return fmt.Errorf("ошибка построения запроса hydrate: %w", err)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ошибка выполнения запроса hydrate: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return fmt.Errorf("ошибка сканирования hydrate: %w", err)
		}
		if r, ok := byID[f.RecordID]; ok {
			r.Files = append(r.Files, f)
		}
	}
	return rows.Err()
}

func scanFile(row rowScanner) (models.RecordFile, error) {
	var f models.RecordFile
	err := row.Scan(&f.RecordID, &f.Filename, &f.IsMain, &f.Position, &f.Size)
	return f, err
}

func listFiles(ctx context.Context, q queryer, recordID string) ([]models.RecordFile, error) {
	query, args, err := sqlb().
		Select(recordFileColumns...).
		From("record_files").
		Where(sq.Eq{"record_id": recordID}).
		OrderBy("is_main DESC", "position ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка построения запроса listFiles: %w", err)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса listFiles для %s: %w", recordID, err)
	}
	defer rows.Close()

	var files []models.RecordFile
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования listFiles: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func deleteFiles(ctx context.Context, q queryer, recordID string) error {
	query, args, err := sqlb().
		Delete("record_files").
		Where(sq.Eq{"record_id": recordID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("ошибка построения запроса deleteFiles: %w", err)
	}
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("ошибка удаления файлов записи %s: %w", recordID, err)
	}
	return nil
}
