package modelfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-mizu/rawmap"
)

const authorYAML = `
name: author
fields:
  - attr: id
  - attr: first_name
  - attr: last_name
  - attr: dob
translations:
  - {from: first, to: first_name}
`

const coffeeTOML = `
name = "coffee"

[[fields]]
attr = "id"

[[fields]]
attr = "brand"
column = "name"
`

func TestParse_YAML(t *testing.T) {
	d, err := Parse([]byte(authorYAML), YAML)
	require.NoError(t, err)

	want := &Descriptor{
		Name: "author",
		Fields: []rawmap.Field{
			{Attr: "id", Column: "id"},
			{Attr: "first_name", Column: "first_name"},
			{Attr: "last_name", Column: "last_name"},
			{Attr: "dob", Column: "dob"},
		},
		Translations: []rawmap.Translation{{From: "first", To: "first_name"}},
	}
	if diff := cmp.Diff(want, d); diff != "" {
		t.Fatalf("descriptor (-want +got):\n%s", diff)
	}
}

func TestParse_TOML(t *testing.T) {
	d, err := Parse([]byte(coffeeTOML), TOML)
	require.NoError(t, err)
	assert.Equal(t, "coffee", d.Name)
	assert.Equal(t, []rawmap.Field{{Attr: "id", Column: "id"}, {Attr: "brand", Column: "name"}}, d.Fields)

	m, err := d.Model()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"id": "id", "name": "brand"}, m.KnownFields())
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("fields: [{attr: id}]"), YAML)
	assert.ErrorContains(t, err, "name is required")

	_, err = Parse([]byte("name: empty"), YAML)
	assert.ErrorContains(t, err, "no fields")

	_, err = Parse([]byte("name: [unterminated"), YAML)
	assert.ErrorContains(t, err, "failed to parse yaml")

	_, err = Parse([]byte("name = "), TOML)
	assert.ErrorContains(t, err, "failed to parse toml")

	_, err = Parse([]byte("name: x"), Format("xml"))
	assert.Error(t, err)
}

func TestDescriptor_ModelRejectsDuplicates(t *testing.T) {
	d, err := Parse([]byte("name: dup\nfields:\n  - attr: a\n    column: x\n  - attr: b\n    column: x\n"), YAML)
	require.NoError(t, err)
	_, err = d.Model()
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	yml := filepath.Join(dir, "author.yml")
	require.NoError(t, os.WriteFile(yml, []byte(authorYAML), 0o644))
	tml := filepath.Join(dir, "coffee.TOML")
	require.NoError(t, os.WriteFile(tml, []byte(coffeeTOML), 0o644))

	d, err := Load(yml)
	require.NoError(t, err)
	assert.Equal(t, "author", d.Name)

	d, err = Load(tml)
	require.NoError(t, err)
	assert.Equal(t, "coffee", d.Name)

	_, err = Load(filepath.Join(dir, "author.json"))
	assert.ErrorContains(t, err, "unsupported model file extension")

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read model file")
}
