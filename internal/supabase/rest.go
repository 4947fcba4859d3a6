package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Table is a PostgREST table endpoint
type Table struct {
	client *Client
	name   string
}

// From returns the PostgREST endpoint for a table
func (c *Client) From(table string) *Table {
	return &Table{client: c, name: table}
}

func (t *Table) path() string {
	return "/rest/v1/" + url.PathEscape(t.name)
}

// Insert inserts a single row. A duplicate primary key matches ErrAlreadyExists.
func (t *Table) Insert(ctx context.Context, row any) error {
	headers := map[string]string{"Prefer": "return=minimal"}
	if err := t.client.doJSON(ctx, http.MethodPost, t.path(), row, nil, headers); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", t.name, err)
	}
	return nil
}

// Exists reports whether a row with the given id exists
func (t *Table) Exists(ctx context.Context, id string) (bool, error) {
	query := url.Values{}
	query.Set("id", "eq."+id)
	query.Set("select", "id")

	var rows []map[string]any
	if err := t.client.doJSON(ctx, http.MethodGet, t.path()+"?"+query.Encode(), nil, &rows, nil); err != nil {
		return false, fmt.Errorf("failed to query %s: %w", t.name, err)
	}
	return len(rows) > 0, nil
}
