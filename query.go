package rawmap

import (
	"context"
)

// Query runs a raw select and maps every row into an instance of T.
//
// It is Open followed by a full iteration; use Open directly to stream large
// results. Options are the same as for Open.
//
// Example:
//
//	type Author struct {
//	    ID        int64  `db:"id"`
//	    FirstName string `db:"first_name"`
//	    LastName  string `db:"last_name"`
//	}
//	model, err := rawmap.StructModel[Author]()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	authors, err := rawmap.Query(ctx, db, model,
//	    `SELECT first_name AS first, last_name, id FROM authors`,
//	    rawmap.Translate("first", "first_name"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, a := range authors {
//	    fmt.Println(a.Model.ID, a.Model.FirstName)
//	}
func Query[T any](ctx context.Context, q Querier, model *Model[T], query string, opts ...Option) (out []*Instance[T], err error) {
	res, err := Open(ctx, q, model, query, opts...)
	if err != nil {
		return nil, err
	}
	// Propagate Close() error if nothing else failed.
	defer func() {
		if cerr := res.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	for res.Next() {
		out = append(out, res.Instance())
	}
	if err := res.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
