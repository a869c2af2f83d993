package rawmap

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"strings"
)

// Results maps the rows of one executed query into instances of T.
//
// Rows are fetched one at a time as Next is called; nothing is read ahead or
// buffered. A Results is not restartable and not safe for concurrent use:
// it owns its cursor exclusively. Construct a second Results if another
// consumer needs the same rows.
type Results[T any] struct {
	model  *Model[T]
	known  map[string]string
	cursor Cursor
	cols   []string
	logger *slog.Logger

	// set by Open; used by Len to count rows when the cursor cannot
	q     Querier
	query string
	args  []any

	cur    *Instance[T]
	err    error
	done   bool
	closed bool

	size  int
	sized bool
}

// Open validates query, executes it on q, and returns a Results bound to the
// resulting rows.
//
// Open fails with an *InvalidQueryError before anything is executed when the
// query is not a select. Errors from q are returned unmodified; there are no
// retries. The caller must Close the Results (Close is also performed
// automatically once the rows are exhausted or an error occurs).
//
// Example:
//
//	authors, err := rawmap.Open(ctx, db, authorModel,
//	    `SELECT a.*, count(b.id) AS book_count
//	       FROM authors a LEFT JOIN books b ON b.author_id = a.id
//	      GROUP BY a.id`)
//	if err != nil {
//	    return err
//	}
//	defer authors.Close()
//	for in, err := range authors.All() {
//	    if err != nil {
//	        return err
//	    }
//	    n, _ := in.Annotation("book_count")
//	    fmt.Println(in.Model.FirstName, n)
//	}
func Open[T any](ctx context.Context, q Querier, model *Model[T], query string, opts ...Option) (*Results[T], error) {
	if err := ValidateQuery(query); err != nil {
		return nil, err
	}
	if err := model.validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)

	rows, err := q.QueryContext(ctx, query, o.args...)
	if err != nil {
		return nil, err
	}
	r, err := newResults(model, rows, o)
	if err != nil {
		_ = rows.Close()
		return nil, err
	}
	o.logger.Debug("rawmap: query executed", slog.String("model", model.Name), slog.Int("columns", len(r.cols)))
	r.q, r.query, r.args = q, query, o.args
	return r, nil
}

// OpenCursor binds an already executed cursor to model. Query validation is
// the caller's responsibility; Len only works if the cursor implements
// RowCounter.
func OpenCursor[T any](model *Model[T], cursor Cursor, opts ...Option) (*Results[T], error) {
	if err := model.validate(); err != nil {
		return nil, err
	}
	r, err := newResults(model, cursor, buildOptions(opts))
	if err != nil {
		_ = cursor.Close()
		return nil, err
	}
	return r, nil
}

func newResults[T any](model *Model[T], cursor Cursor, o options) (*Results[T], error) {
	cols, err := cursor.Columns()
	if err != nil {
		return nil, err
	}
	cols = slices.Clone(cols)
	known := model.KnownFields()
	if o.normalize {
		for i := range cols {
			cols[i] = normalizeColAscii(cols[i])
		}
		// declared columns are normalized the same way so they can still match
		nk := make(map[string]string, len(known))
		for col, attr := range known {
			nk[normalizeColAscii(col)] = attr
		}
		known = nk
		o.logger.Debug("rawmap: columns normalized", slog.Any("columns", cols))
	}
	applyTranslations(cols, o.translations, o.logger)

	return &Results[T]{
		model:  model,
		known:  known,
		cursor: cursor,
		cols:   cols,
		logger: o.logger,
	}, nil
}

// applyTranslations renames, in order, the first column matching each
// translation source. Later translations see earlier renames, so chains compose.
func applyTranslations(cols []string, ts []Translation, logger *slog.Logger) {
	for _, t := range ts {
		i := slices.Index(cols, t.From)
		if i < 0 {
			logger.Debug("rawmap: translation skipped", slog.String("from", t.From), slog.String("to", t.To))
			continue
		}
		cols[i] = t.To
		logger.Debug("rawmap: translation applied", slog.String("from", t.From), slog.String("to", t.To), slog.Int("position", i))
	}
}

// Columns returns the result column names after normalization and translation.
func (r *Results[T]) Columns() []string { return slices.Clone(r.cols) }

// Next fetches and maps the next row. It returns false when the rows are
// exhausted or an error occurred; Err tells the two apart. Once Next has
// returned false it keeps returning false.
func (r *Results[T]) Next() bool {
	if r.done {
		return false
	}
	if !r.cursor.Next() {
		r.finish(r.cursor.Err())
		return false
	}

	values := make([]any, len(r.cols))
	dests := make([]any, len(values))
	for i := range values {
		dests[i] = &values[i]
	}
	if err := r.cursor.Scan(dests...); err != nil {
		r.finish(err)
		return false
	}

	in, err := r.transform(values)
	if err != nil {
		r.finish(err)
		return false
	}
	r.cur = in
	return true
}

// transform splits one row into declared fields and annotations, then builds
// the instance.
func (r *Results[T]) transform(values []any) (*Instance[T], error) {
	fields := make(map[string]any, len(r.known))
	var annotations []Annotation
	for pos, v := range values {
		col := r.cols[pos]
		if attr, ok := r.known[col]; ok {
			fields[attr] = v
		} else {
			annotations = append(annotations, Annotation{Column: col, Value: v})
		}
	}

	if len(fields) < len(r.model.Fields) {
		var missing []string
		for _, f := range r.model.Fields {
			if _, ok := fields[f.Attr]; !ok {
				missing = append(missing, f.Column)
			}
		}
		return nil, &InsufficientColumnsError{Model: r.model.Name, Missing: missing}
	}

	m, err := r.model.New(fields)
	if err != nil {
		return nil, err
	}
	return &Instance[T]{Model: m, Fields: fields, Annotations: annotations}, nil
}

func (r *Results[T]) finish(err error) {
	r.done = true
	r.cur = nil
	r.err = err
	if r.closed {
		return
	}
	r.closed = true
	if cerr := r.cursor.Close(); cerr != nil && r.err == nil {
		r.err = cerr
	}
}

// Instance returns the row mapped by the last successful call to Next, or nil.
func (r *Results[T]) Instance() *Instance[T] { return r.cur }

// Err returns the error that stopped iteration, if any. Data-source errors are
// returned exactly as the driver reported them.
func (r *Results[T]) Err() error { return r.err }

// Close releases the cursor. It is safe to call more than once.
func (r *Results[T]) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.done = true
	r.cur = nil
	return r.cursor.Close()
}

// All returns an iterator over the remaining rows. If iteration fails, the
// final pair yielded carries a nil instance and the error. Breaking out of the
// loop closes the Results.
func (r *Results[T]) All() iter.Seq2[*Instance[T], error] {
	return func(yield func(*Instance[T], error) bool) {
		for r.Next() {
			if !yield(r.cur, nil) {
				_ = r.Close()
				return
			}
		}
		if err := r.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// Len reports the total number of rows the query returns, regardless of how
// many have been consumed. The value is computed once and cached.
//
// If the cursor implements RowCounter it is asked directly. Otherwise, for a
// Results created by Open, Len runs
//
//	SELECT COUNT(*) FROM (<query>) AS rawmap_count
//
// with the same parameters on the same Querier. While the rows are still open
// they hold a connection, so the count needs a second one:
//
//   - on a *sql.DB limited to one open connection (SetMaxOpenConns(1)) Len
//     fails fast with an error matching ErrSizeUnavailable instead of waiting
//     for a connection that is never released;
//   - on a *sql.Tx or *sql.Conn the count shares the busy connection, which
//     some drivers do not allow.
//
// In both cases calling Len once the rows are exhausted or closed works.
func (r *Results[T]) Len(ctx context.Context) (int, error) {
	if r.sized {
		return r.size, nil
	}
	if db, ok := r.q.(*sql.DB); ok && !r.closed && db.Stats().MaxOpenConnections == 1 {
		return 0, fmt.Errorf("%w: the only pool connection is held by the open rows", ErrSizeUnavailable)
	}
	var (
		n   int
		err error
	)
	switch rc, ok := r.cursor.(RowCounter); {
	case ok:
		n, err = rc.RowCount()
	case r.q != nil:
		n, err = r.count(ctx)
	default:
		return 0, ErrSizeUnavailable
	}
	if err != nil {
		return 0, err
	}
	r.size, r.sized = n, true
	return n, nil
}

func (r *Results[T]) count(ctx context.Context) (n int, err error) {
	inner := strings.TrimRight(strings.TrimSpace(r.query), "; \t\r\n")
	query := "SELECT COUNT(*) FROM (" + inner + "\n) AS rawmap_count"
	r.logger.Debug("rawmap: counting rows", slog.String("model", r.model.Name))

	rows, err := r.q.QueryContext(ctx, query, r.args...)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, err
		}
		return 0, ErrSizeUnavailable
	}
	var total int64
	if err := rows.Scan(&total); err != nil {
		return 0, err
	}
	return int(total), nil
}
