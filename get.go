package rawmap

import (
	"context"
	"database/sql"
)

// Get runs a raw select and maps its first row into an instance of T.
//
// It returns [sql.ErrNoRows] if the query yields no rows. Additional rows are
// not read; add LIMIT 1 (or an equivalent WHERE clause) when you require
// at-most-one row.
//
// Example:
//
//	in, err := rawmap.Get(ctx, db, authorModel,
//	    `SELECT * FROM authors WHERE id = $1`, rawmap.Params(42))
//	if errors.Is(err, sql.ErrNoRows) {
//	    // handle not found
//	}
func Get[T any](ctx context.Context, q Querier, model *Model[T], query string, opts ...Option) (out *Instance[T], err error) {
	res, err := Open(ctx, q, model, query, opts...)
	if err != nil {
		return nil, err
	}
	// Ensure Close error is propagated if no earlier error occurred.
	defer func() {
		if cerr := res.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if !res.Next() {
		if err := res.Err(); err != nil {
			return nil, err
		}
		return nil, sql.ErrNoRows
	}
	return res.Instance(), nil
}
