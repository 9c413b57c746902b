// Пакет database: реляционное хранилище сервиса (SQLite).
//
// Все компоненты получают явный дескриптор *DB при создании,
// глобального соединения нет.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/sirupsen/logrus"

	// Драйвер SQLite регистрируется в database/sql под именем "sqlite"
	_ "modernc.org/sqlite"
)

// DB: дескриптор базы данных.
type DB struct {
	conn *sql.DB
	log  logrus.FieldLogger
}

// Open открывает базу данных SQLite по пути dataSourceName и создает таблицы.
func Open(dataSourceName string, logger logrus.FieldLogger) (*DB, error) {
	// WAL для одновременного чтения и записи, 5 секунд ожидания блокировки,
	// включенные внешние ключи.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)", dataSourceName)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка при открытии %s: %w", dataSourceName, err)
	}

	// SQLite допускает одного писателя; одно соединение сериализует запись
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err = conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ошибка при проверке соединения с %s: %w", dataSourceName, err)
	}

	db := &DB{conn: conn, log: logger.WithField("component", "database")}
	if err = db.createTables(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ошибка при создании таблиц: %w", err)
	}

	db.log.WithField("path", dataSourceName).Info("База данных открыта, таблицы проверены")
	return db, nil
}

// Close закрывает соединение.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping проверяет доступность базы.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS records (
		id TEXT NOT NULL PRIMARY KEY,
		text TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		filename TEXT NOT NULL DEFAULT '',          -- основной файл
		original_filename TEXT NOT NULL DEFAULT '',
		file_size INTEGER NOT NULL DEFAULT 0,
		uploader TEXT NOT NULL,                     -- хеш идентичности
		uploader_ip TEXT NOT NULL DEFAULT '',
		uploaded_at INTEGER NOT NULL,               -- unix ms
		status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
		editable INTEGER NOT NULL DEFAULT 0,
		image_count INTEGER NOT NULL DEFAULT 0,
		reviewed_at INTEGER NULL,
		updated_at INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS record_files (
		id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		record_id TEXT NOT NULL,
		filename TEXT NOT NULL UNIQUE,
		is_main INTEGER NOT NULL DEFAULT 0,
		position INTEGER NOT NULL DEFAULT 0,
		size INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY(record_id) REFERENCES records(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS comments (
		id TEXT NOT NULL PRIMARY KEY,
		record_id TEXT NOT NULL,
		content TEXT NOT NULL,
		commenter TEXT NOT NULL,
		commented_at INTEGER NOT NULL,
		FOREIGN KEY(record_id) REFERENCES records(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS keys (
		token TEXT NOT NULL PRIMARY KEY,
		ip TEXT NOT NULL,
		user_agent TEXT NOT NULL,
		identity TEXT NOT NULL,
		issue_date TEXT NOT NULL,                   -- YYYY-MM-DD
		consumed INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		consumed_at INTEGER NULL
	);`,
	`CREATE TABLE IF NOT EXISTS admin (
		id INTEGER NOT NULL PRIMARY KEY CHECK (id = 1),
		password_hash TEXT NOT NULL,
		salt TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);`,
	// Не более одного основного файла на запись
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_record_files_main ON record_files (record_id) WHERE is_main = 1;`,
	`CREATE INDEX IF NOT EXISTS idx_record_files_record ON record_files (record_id, position);`,
	`CREATE INDEX IF NOT EXISTS idx_records_status ON records (status, uploaded_at);`,
	`CREATE INDEX IF NOT EXISTS idx_records_uploader ON records (uploader, uploaded_at);`,
	`CREATE INDEX IF NOT EXISTS idx_comments_record ON comments (record_id, commented_at);`,
	`CREATE INDEX IF NOT EXISTS idx_keys_identity ON keys (identity, issue_date);`,
}

func (db *DB) createTables(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ошибка выполнения %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

// withTx выполняет fn в транзакции. При ошибке транзакция откатывается.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

// sqlb: построитель запросов с плейсхолдерами "?".
func sqlb() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

// queryer: общий интерфейс *sql.DB и *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// rowScanner: общий интерфейс *sql.Row и *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromNullMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64)
	return &t
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
