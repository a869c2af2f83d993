package rawmap

import (
	"errors"
	"fmt"
	"maps"
)

// Field is one declared (attribute, column) pair of a model.
type Field struct {
	Attr   string `yaml:"attr" toml:"attr"`
	Column string `yaml:"column" toml:"column"`
}

// Model describes how result columns bind to a domain type T.
//
// Fields is the ordered list of declared attributes and the column each one is
// read from. New builds a T from an attribute → value map; validation and
// defaulting are its business, not the mapper's. A Model is read-only once
// passed to Open.
type Model[T any] struct {
	Name   string
	Fields []Field
	New    func(attrs map[string]any) (T, error)
}

// NewModel validates and returns a model descriptor. Attribute and column
// names must be non-empty and unique within the model.
func NewModel[T any](name string, fields []Field, factory func(map[string]any) (T, error)) (*Model[T], error) {
	m := &Model[T]{Name: name, Fields: append([]Field(nil), fields...), New: factory}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Model[T]) validate() error {
	if m == nil {
		return errors.New("rawmap: nil model")
	}
	if m.New == nil {
		return fmt.Errorf("rawmap: model %q has no factory", m.Name)
	}
	cols := make(map[string]struct{}, len(m.Fields))
	attrs := make(map[string]struct{}, len(m.Fields))
	for i, f := range m.Fields {
		if f.Attr == "" || f.Column == "" {
			return fmt.Errorf("rawmap: model %q field %d: empty attribute or column name", m.Name, i)
		}
		if _, dup := cols[f.Column]; dup {
			return fmt.Errorf("rawmap: model %q declares column %q twice", m.Name, f.Column)
		}
		if _, dup := attrs[f.Attr]; dup {
			return fmt.Errorf("rawmap: model %q declares attribute %q twice", m.Name, f.Attr)
		}
		cols[f.Column] = struct{}{}
		attrs[f.Attr] = struct{}{}
	}
	return nil
}

// KnownFields returns the column → attribute mapping of the model.
func (m *Model[T]) KnownFields() map[string]string {
	known := make(map[string]string, len(m.Fields))
	for _, f := range m.Fields {
		known[f.Column] = f.Attr
	}
	return known
}

// Record is the instance type of models built with RecordModel.
type Record map[string]any

// RecordModel returns a model whose instances are plain attribute maps. It
// suits callers with no static type for the rows, such as command-line tools.
func RecordModel(name string, fields ...Field) (*Model[Record], error) {
	return NewModel(name, fields, func(attrs map[string]any) (Record, error) {
		return Record(maps.Clone(attrs)), nil
	})
}
