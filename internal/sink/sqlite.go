package sink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lehigh-university-libraries/ocrloader/internal/models"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteTable keeps rows in a local SQLite file, useful for dry runs
type SQLiteTable struct {
	db    *sql.DB
	table string
}

// NewSQLiteTable opens path (":memory:" for an in-memory database) and creates the table if missing
func NewSQLiteTable(ctx context.Context, path, table string) (*SQLiteTable, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite sink requires a database path")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps ":memory:" databases shared across calls
	db.SetMaxOpenConns(1)

	t := &SQLiteTable{
		db:    db,
		table: `"` + strings.ReplaceAll(table, `"`, `""`) + `"`,
	}
	if err := t.createTable(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return t, nil
}

func (t *SQLiteTable) createTable(ctx context.Context) error {
	_, err := t.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+t.table+` (
		id TEXT PRIMARY KEY,
		image_path TEXT NOT NULL,
		correct_text TEXT NOT NULL,
		correct_count INTEGER NOT NULL DEFAULT 0,
		incorrect_count INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	return err
}

func (t *SQLiteTable) Insert(ctx context.Context, row models.OCRImage) error {
	_, err := t.db.ExecContext(ctx,
		"INSERT INTO "+t.table+" (id, image_path, correct_text, correct_count, incorrect_count) VALUES (?, ?, ?, ?, ?)",
		row.ID, row.ImagePath, row.CorrectText, row.CorrectCount, row.IncorrectCount)
	if err != nil {
		var sqliteErr *sqlite.Error
		if errors.As(err, &sqliteErr) &&
			(sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE) {
			return fmt.Errorf("%w: %w", ErrDuplicateRow, err)
		}
		return err
	}
	return nil
}

func (t *SQLiteTable) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	row := t.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM "+t.table+" WHERE id = ?)", id)
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Rows returns every row in insertion order
func (t *SQLiteTable) Rows(ctx context.Context) ([]models.OCRImage, error) {
	rows, err := t.db.QueryContext(ctx,
		"SELECT id, image_path, correct_text, correct_count, incorrect_count FROM "+t.table+" ORDER BY rowid")
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var images []models.OCRImage
	for rows.Next() {
		var img models.OCRImage
		if err := rows.Scan(&img.ID, &img.ImagePath, &img.CorrectText, &img.CorrectCount, &img.IncorrectCount); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

func (t *SQLiteTable) Close() error {
	if t.db != nil {
		return t.db.Close()
	}
	return nil
}
