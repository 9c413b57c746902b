package database

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"picwall/internal/models"
)

var commentColumns = []string{
	"id",
	"record_id",
	"content",
	"commenter",
	"commented_at",
}

// CreateComment сохраняет комментарий, только если запись существует и ее статус
// разрешает комментарии. ok == false в противном случае.
func (db *DB) CreateComment(ctx context.Context, c *models.Comment) (bool, error) {
	statuses := make([]string, 0, 1)
	for _, st := range models.StatusesAllowing(models.OpComment) {
		statuses = append(statuses, string(st))
	}

	src := sqlb().
		Select().
		Column(sq.Expr("?", c.ID)).
		Column("id").
		Column(sq.Expr("?", c.Content)).
		Column(sq.Expr("?", c.Commenter)).
		Column(sq.Expr("?", toMillis(c.CommentedAt))).
		From("records").
		Where(sq.Eq{"id": c.RecordID, "status": statuses})

	query, args, err := sqlb().
		Insert("comments").
		Columns(commentColumns...).
		Select(src).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("ошибка построения запроса CreateComment: %w", err)
	}

	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("ошибка выполнения запроса CreateComment для %s: %w", c.RecordID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ошибка получения rowsAffected в CreateComment: %w", err)
	}
	return affected == 1, nil
}

// ListComments возвращает комментарии записи по возрастанию времени.
func (db *DB) ListComments(ctx context.Context, recordID string) ([]models.Comment, error) {
	query, args, err := sqlb().
		Select(commentColumns...).
		From("comments").
		Where(sq.Eq{"record_id": recordID}).
		OrderBy("commented_at ASC", "rowid ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка построения запроса ListComments: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса ListComments: %w", err)
	}
	defer rows.Close()

	comments := make([]models.Comment, 0)
	for rows.Next() {
		var (
			c  models.Comment
			at int64
		)
		if err := rows.Scan(&c.ID, &c.RecordID, &c.Content, &c.Commenter, &at); err != nil {
			return nil, fmt.Errorf("ошибка сканирования ListComments: %w", err)
		}
		c.CommentedAt = fromMillis(at)
		comments = append(comments, c)
	}
	return comments, rows.Err()
}
