package rawmap

import (
	"context"
	"database/sql"
)

// Querier is implemented by *sql.DB, *sql.Tx, *sql.Conn, and any wrapper
// that can execute a query returning rows.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Cursor is the result handle of one executed query. *sql.Rows implements it.
//
// A Cursor is owned by exactly one Results value; it must not be shared
// between concurrent iterations.
type Cursor interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// RowCounter is an optional Cursor capability reporting the total number of
// rows available from the executed query. When the cursor implements it,
// [Results.Len] uses it instead of issuing a count query.
type RowCounter interface {
	RowCount() (int, error)
}

var _ Cursor = (*sql.Rows)(nil)
