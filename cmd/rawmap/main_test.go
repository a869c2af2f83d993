package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-mizu/rawmap"
)

const authorModelYAML = `
name: author
fields:
  - attr: id
  - attr: first_name
  - attr: last_name
`

// setup creates a sqlite database and an author model file in a fresh
// working directory and returns the database path.
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)

	dsn := filepath.Join(dir, "books.db")
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	defer db.Close()
	for _, stmt := range []string{
		`CREATE TABLE authors (id INTEGER PRIMARY KEY, first_name TEXT, last_name TEXT)`,
		`CREATE TABLE books (id INTEGER PRIMARY KEY, author_id INTEGER)`,
		`INSERT INTO authors VALUES (1, 'Joe', 'Smith'), (2, 'Jill', 'Doe')`,
		`INSERT INTO books VALUES (1, 1), (2, 1)`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile("author.yaml", []byte(authorModelYAML), 0o644))
	return dsn
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.Execute()
	return out.String(), err
}

func TestQueryCommand_JSON(t *testing.T) {
	dsn := setup(t)

	out, err := run(t, "query", "--dsn", dsn, "-m", "author.yaml",
		"-t", "first=first_name",
		`SELECT a.id, a.first_name AS first, a.last_name, count(b.id) AS book_count
		   FROM authors a LEFT JOIN books b ON b.author_id = a.id
		  GROUP BY a.id ORDER BY a.id`)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"model":{"id":1,"first_name":"Joe","last_name":"Smith"},"annotations":[{"column":"book_count","value":2}]}`, lines[0])
	assert.JSONEq(t, `{"model":{"id":2,"first_name":"Jill","last_name":"Doe"},"annotations":[{"column":"book_count","value":0}]}`, lines[1])
}

func TestQueryCommand_ParamsAndYAML(t *testing.T) {
	dsn := setup(t)

	out, err := run(t, "query", "--dsn", dsn, "-m", "author.yaml", "-o", "yaml",
		"-p", "Jill", "SELECT * FROM authors WHERE first_name = ?")
	require.NoError(t, err)
	assert.Contains(t, out, "first_name: Jill")
	assert.NotContains(t, out, "Joe")
}

func TestQueryCommand_ConfigFile(t *testing.T) {
	dsn := setup(t)
	require.NoError(t, os.WriteFile("rawmap.yaml", []byte("dsn: "+dsn+"\n"), 0o644))

	out, err := run(t, "query", "-m", "author.yaml", "SELECT * FROM authors ORDER BY id")
	require.NoError(t, err)

	var doc struct {
		Model map[string]any `json:"model"`
	}
	require.NoError(t, json.Unmarshal([]byte(strings.SplitN(out, "\n", 2)[0]), &doc))
	assert.Equal(t, "Joe", doc.Model["first_name"])
}

func TestQueryCommand_Errors(t *testing.T) {
	dsn := setup(t)

	_, err := run(t, "query", "--dsn", dsn, "-m", "author.yaml", "DELETE FROM authors")
	assert.ErrorIs(t, err, rawmap.ErrInvalidQuery)

	_, err = run(t, "query", "--dsn", dsn, "-m", "author.yaml", "SELECT id FROM authors")
	assert.ErrorIs(t, err, rawmap.ErrInsufficientColumns)

	_, err = run(t, "query", "--dsn", dsn, "-m", "author.yaml", "-t", "nonsense", "SELECT * FROM authors")
	assert.ErrorContains(t, err, "FROM=TO")

	_, err = run(t, "query", "-m", "author.yaml", "SELECT * FROM authors")
	assert.ErrorContains(t, err, "dsn is required")

	_, err = run(t, "query", "--dsn", dsn, "SELECT * FROM authors")
	assert.Error(t, err, "--model is required")
}

func TestCountCommand(t *testing.T) {
	dsn := setup(t)

	out, err := run(t, "count", "--dsn", dsn, "-m", "author.yaml", "SELECT * FROM authors;")
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)
}

func TestValidateCommand(t *testing.T) {
	out, err := run(t, "validate", "  select 1")
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)

	_, err = run(t, "validate", "UPDATE authors SET id = 2")
	assert.ErrorIs(t, err, rawmap.ErrInvalidQuery)
}
