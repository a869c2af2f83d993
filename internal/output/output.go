// Package output encodes mapped record instances for the rawmap command.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/go-mizu/rawmap"
)

// Document is the encoded shape of one instance.
type Document struct {
	Model       map[string]any      `json:"model" yaml:"model"`
	Annotations []rawmap.Annotation `json:"annotations,omitempty" yaml:"annotations,omitempty"`
}

// Encoder writes one document per instance.
type Encoder interface {
	Encode(in *rawmap.Instance[rawmap.Record]) error
	Close() error
}

// New returns the encoder for format ("json" or "yaml").
func New(w io.Writer, format string) (Encoder, error) {
	switch format {
	case "json":
		return &jsonEncoder{enc: json.NewEncoder(w)}, nil
	case "yaml":
		return &yamlEncoder{enc: yaml.NewEncoder(w)}, nil
	}
	return nil, fmt.Errorf("unsupported output format %q", format)
}

// NewDocument converts an instance, rendering byte slices as text.
func NewDocument(in *rawmap.Instance[rawmap.Record]) Document {
	doc := Document{Model: make(map[string]any, len(in.Model))}
	for k, v := range in.Model {
		doc.Model[k] = plain(v)
	}
	for _, a := range in.Annotations {
		doc.Annotations = append(doc.Annotations, rawmap.Annotation{Column: a.Column, Value: plain(a.Value)})
	}
	return doc
}

func plain(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	}
	return v
}

// jsonEncoder writes JSON lines.
type jsonEncoder struct{ enc *json.Encoder }

func (e *jsonEncoder) Encode(in *rawmap.Instance[rawmap.Record]) error {
	return e.enc.Encode(NewDocument(in))
}

func (e *jsonEncoder) Close() error { return nil }

// yamlEncoder writes a stream of YAML documents.
type yamlEncoder struct{ enc *yaml.Encoder }

func (e *yamlEncoder) Encode(in *rawmap.Instance[rawmap.Record]) error {
	return e.enc.Encode(NewDocument(in))
}

func (e *yamlEncoder) Close() error { return e.enc.Close() }
