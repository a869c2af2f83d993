package rawmap

// Annotation is a result column the model does not declare, kept with its
// literal value.
type Annotation struct {
	Column string `json:"column" yaml:"column"`
	Value  any    `json:"value" yaml:"value"`
}

// Instance is one mapped row: the constructed model value plus the inputs it
// was built from. The mapper keeps no reference to it once returned.
type Instance[T any] struct {
	// Model is the value returned by the model's factory.
	Model T
	// Fields holds attribute → value for every declared column.
	Fields map[string]any
	// Annotations holds the undeclared columns in result order. Repeated
	// column names stay as separate entries.
	Annotations []Annotation
}

// Annotation returns the value of the named annotation. When the name occurs
// more than once the last one wins.
func (in *Instance[T]) Annotation(name string) (any, bool) {
	for i := len(in.Annotations) - 1; i >= 0; i-- {
		if in.Annotations[i].Column == name {
			return in.Annotations[i].Value, true
		}
	}
	return nil, false
}

// AnnotationMap collapses the annotations into a map, applying them in row
// order so later duplicates overwrite earlier ones.
func (in *Instance[T]) AnnotationMap() map[string]any {
	out := make(map[string]any, len(in.Annotations))
	for _, a := range in.Annotations {
		out[a.Column] = a.Value
	}
	return out
}
