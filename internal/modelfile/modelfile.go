// Package modelfile reads model descriptors from YAML or TOML files.
//
// A descriptor names the model and lists its fields; column defaults to the
// attribute name:
//
//	name: author
//	fields:
//	  - attr: id
//	  - attr: first_name
//	  - attr: brand
//	    column: name
//	translations:
//	  - {from: first, to: first_name}
package modelfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/go-mizu/rawmap"
)

// Format identifies a descriptor encoding.
type Format string

const (
	YAML Format = "yaml"
	TOML Format = "toml"
)

// Descriptor is the on-disk form of a model.
type Descriptor struct {
	Name   string         `yaml:"name" toml:"name"`
	Fields []rawmap.Field `yaml:"fields" toml:"fields"`
	// Translations are applied to every query run against the model, before
	// any given on the command line.
	Translations []rawmap.Translation `yaml:"translations,omitempty" toml:"translations,omitempty"`
}

// FormatFor picks the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML, nil
	case ".toml":
		return TOML, nil
	}
	return "", fmt.Errorf("unsupported model file extension %q (want .yaml, .yml or .toml)", filepath.Ext(path))
}

// Load reads and parses the descriptor at path.
func Load(path string) (*Descriptor, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	d, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Parse decodes a descriptor and fills defaulted columns.
func Parse(data []byte, format Format) (*Descriptor, error) {
	var d Descriptor
	switch format {
	case YAML:
		if err := yaml.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("failed to parse yaml: %w", err)
		}
	case TOML:
		if _, err := toml.Decode(string(data), &d); err != nil {
			return nil, fmt.Errorf("failed to parse toml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
	if d.Name == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if len(d.Fields) == 0 {
		return nil, fmt.Errorf("model %q declares no fields", d.Name)
	}
	for i := range d.Fields {
		if d.Fields[i].Column == "" {
			d.Fields[i].Column = d.Fields[i].Attr
		}
	}
	return &d, nil
}

// Model builds the record model the descriptor describes.
func (d *Descriptor) Model() (*rawmap.Model[rawmap.Record], error) {
	return rawmap.RecordModel(d.Name, d.Fields...)
}
