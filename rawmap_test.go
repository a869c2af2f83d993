package rawmap

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strings"
	"testing"
)

type DBHandler func(query string, args []driver.NamedValue) (cols []string, rows [][]driver.Value, err error)

// testStats records what the in-memory driver was asked to do.
type testStats struct {
	queries []string
	args    [][]driver.NamedValue
	fetched int // rows handed out by driver Next
}

type testConnector struct {
	h     DBHandler
	stats *testStats
}

func (c *testConnector) Connect(context.Context) (driver.Conn, error) {
	return &testConn{h: c.h, stats: c.stats}, nil
}
func (c *testConnector) Driver() driver.Driver { return testDriver{} }

type testDriver struct{}

func (testDriver) Open(name string) (driver.Conn, error) {
	return nil, errors.New("testDriver.Open should not be called; use sql.OpenDB with connector")
}

type testConn struct {
	h     DBHandler
	stats *testStats
}

func (c *testConn) Prepare(string) (driver.Stmt, error) { return nil, driver.ErrSkip }
func (c *testConn) Close() error                        { return nil }
func (c *testConn) Begin() (driver.Tx, error)           { return nil, driver.ErrSkip }

func (c *testConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.stats.queries = append(c.stats.queries, query)
	c.stats.args = append(c.stats.args, args)
	cols, data, err := c.h(query, args)
	if err != nil {
		return nil, err
	}
	return &testRows{cols: cols, data: data, stats: c.stats}, nil
}

type testRows struct {
	cols  []string
	data  [][]driver.Value
	i     int
	stats *testStats
}

func (r *testRows) Columns() []string { return append([]string(nil), r.cols...) }
func (r *testRows) Close() error      { return nil }
func (r *testRows) Next(dest []driver.Value) error {
	if r.i >= len(r.data) {
		return io.EOF
	}
	row := r.data[r.i]
	for i := range dest {
		if i < len(row) {
			dest[i] = row[i]
		} else {
			dest[i] = nil
		}
	}
	r.i++
	r.stats.fetched++
	return nil
}

// newTestDB creates a *sql.DB backed by the in-memory test driver.
func newTestDB(t *testing.T, h DBHandler) (*sql.DB, *testStats) {
	t.Helper()
	stats := &testStats{}
	db := sql.OpenDB(&testConnector{h: h, stats: stats})
	t.Cleanup(func() { _ = db.Close() })
	return db, stats
}

// tableHandler serves a fixed result for data queries and its row count for
// the count query Len issues.
func tableHandler(cols []string, rows [][]driver.Value) DBHandler {
	return func(q string, _ []driver.NamedValue) ([]string, [][]driver.Value, error) {
		if strings.HasPrefix(q, "SELECT COUNT(*) FROM (") {
			return []string{"count"}, [][]driver.Value{{int64(len(rows))}}, nil
		}
		return cols, rows, nil
	}
}

/* -------------------------------------------------------
   Special connector for rows.Next error simulation
--------------------------------------------------------*/

var errDriverNext = errors.New("driver next error")

type errNextConnector struct{ good int }

func (c *errNextConnector) Connect(context.Context) (driver.Conn, error) {
	return &errNextConn{good: c.good}, nil
}
func (c *errNextConnector) Driver() driver.Driver { return testDriver{} }

type errNextConn struct{ good int }

func (c *errNextConn) Prepare(string) (driver.Stmt, error) { return nil, driver.ErrSkip }
func (c *errNextConn) Close() error                        { return nil }
func (c *errNextConn) Begin() (driver.Tx, error)           { return nil, driver.ErrSkip }
func (c *errNextConn) QueryContext(context.Context, string, []driver.NamedValue) (driver.Rows, error) {
	return &errRows{good: c.good}, nil
}

// errRows returns good rows, then fails; database/sql exposes the failure via
// rows.Err() after Next() returns false.
type errRows struct{ good, i int }

func (e *errRows) Columns() []string { return []string{"id"} }
func (e *errRows) Close() error      { return nil }
func (e *errRows) Next(dest []driver.Value) error {
	if e.i >= e.good {
		return errDriverNext
	}
	e.i++
	dest[0] = int64(e.i)
	return nil
}

/* -------------------------------------------------------
   Models shared by the tests
--------------------------------------------------------*/

type author struct {
	ID        int64  `db:"id"`
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
	DOB       string `db:"dob"`
}

func authorModel(t *testing.T) *Model[author] {
	t.Helper()
	m, err := StructModel[author]()
	if err != nil {
		t.Fatalf("StructModel: %v", err)
	}
	return m
}

// sliceCursor is a Cursor over in-memory rows.
type sliceCursor struct {
	cols   []string
	rows   [][]any
	i      int
	closed bool
}

func (c *sliceCursor) Columns() ([]string, error) { return c.cols, nil }
func (c *sliceCursor) Next() bool {
	if c.closed || c.i >= len(c.rows) {
		return false
	}
	c.i++
	return true
}
func (c *sliceCursor) Scan(dest ...any) error {
	row := c.rows[c.i-1]
	if len(dest) != len(row) {
		return errors.New("sliceCursor: column count mismatch")
	}
	for i, d := range dest {
		*(d.(*any)) = row[i]
	}
	return nil
}
func (c *sliceCursor) Err() error   { return nil }
func (c *sliceCursor) Close() error { c.closed = true; return nil }

type countingCursor struct{ *sliceCursor }

func (c countingCursor) RowCount() (int, error) { return len(c.rows), nil }
