package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lehigh-university-libraries/ocrloader/internal/models"
)

const pgUniqueViolation = "23505"

// PostgresTable writes rows straight to the project database
type PostgresTable struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresTable connects to dsn and verifies the connection
func NewPostgresTable(ctx context.Context, dsn, table string) (*PostgresTable, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres sink requires DATABASE_URL")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot connect pgxpool: %w", err)
	}

	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return &PostgresTable{
		pool:  pool,
		table: pgx.Identifier{table}.Sanitize(),
	}, nil
}

func (t *PostgresTable) Insert(ctx context.Context, row models.OCRImage) error {
	query := `
		INSERT INTO ` + t.table + ` (id, image_path, correct_text, correct_count, incorrect_count)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := t.pool.Exec(ctx, query, row.ID, row.ImagePath, row.CorrectText, row.CorrectCount, row.IncorrectCount)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: %w", ErrDuplicateRow, err)
		}
		return fmt.Errorf("insert ocr image: %w", err)
	}
	return nil
}

func (t *PostgresTable) Exists(ctx context.Context, id string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM ` + t.table + ` WHERE id = $1)`

	var exists bool
	if err := t.pool.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("query ocr image: %w", err)
	}
	return exists, nil
}

func (t *PostgresTable) Close() error {
	t.pool.Close()
	return nil
}
