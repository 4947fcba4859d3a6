package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/ocrloader/internal/models"
	"github.com/lehigh-university-libraries/ocrloader/internal/supabase"
)

const (
	KindREST     = "rest"
	KindPostgres = "postgres"
	KindSQLite   = "sqlite"
)

// ErrDuplicateRow is returned by Insert when the id is already present
var ErrDuplicateRow = errors.New("row already exists")

// Table is where metadata rows are written
type Table interface {
	Insert(ctx context.Context, row models.OCRImage) error
	Exists(ctx context.Context, id string) (bool, error)
	Close() error
}

// Options selects and configures a Table implementation
type Options struct {
	Kind        string
	TableName   string
	Supabase    *supabase.Client // rest
	DatabaseURL string           // postgres
	SQLitePath  string           // sqlite
}

// NewTable opens the table described by opts
func NewTable(ctx context.Context, opts Options) (table Table, err error) {
	if opts.TableName == "" {
		opts.TableName = models.DefaultTable
	}

	switch opts.Kind {
	case KindREST, "":
		if opts.Supabase == nil {
			return nil, fmt.Errorf("rest sink requires a supabase client")
		}
		table = NewRESTTable(opts.Supabase, opts.TableName)
	case KindPostgres:
		table, err = NewPostgresTable(ctx, opts.DatabaseURL, opts.TableName)
	case KindSQLite:
		table, err = NewSQLiteTable(ctx, opts.SQLitePath, opts.TableName)
	default:
		return nil, fmt.Errorf("unsupported sink: %s", opts.Kind)
	}
	if err != nil {
		return nil, err
	}

	slog.Debug("Metadata sink initialized", "kind", opts.Kind, "table", opts.TableName)
	return table, nil
}

// RESTTable writes rows through the Supabase PostgREST API
type RESTTable struct {
	table *supabase.Table
}

// NewRESTTable wraps a PostgREST table endpoint
func NewRESTTable(client *supabase.Client, name string) *RESTTable {
	return &RESTTable{table: client.From(name)}
}

func (t *RESTTable) Insert(ctx context.Context, row models.OCRImage) error {
	err := t.table.Insert(ctx, row)
	if errors.Is(err, supabase.ErrAlreadyExists) {
		return fmt.Errorf("%w: %w", ErrDuplicateRow, err)
	}
	return err
}

func (t *RESTTable) Exists(ctx context.Context, id string) (bool, error) {
	return t.table.Exists(ctx, id)
}

func (t *RESTTable) Close() error {
	return nil
}
