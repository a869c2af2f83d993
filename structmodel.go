package rawmap

import (
	"database/sql"
	"fmt"
	"reflect"
	"strconv"
	"sync"
	"time"
)

// structIndexCache: reflect.Type -> *structIndex. Built once per T.
var structIndexCache sync.Map

type structIndex struct {
	fields []Field
	paths  map[string][]int // attribute -> field index path
	err    error
}

// StructModel derives a model descriptor from the struct type T.
//
// Mapping rules:
//   - A field binds to the column named by its `db:"name"` tag; otherwise to
//     its name, lower-cased (ASCII). Tag names keep their case, so they match
//     case-sensitive result columns exactly; with [Normalize] both sides are
//     lower-cased before matching. The attribute name equals the column name.
//   - `db:"-"` omits a field; unexported non-embedded fields are skipped.
//   - Anonymous struct fields and fields tagged `db:",inline"` are flattened.
//   - The first field to claim a name wins.
//
// The factory converts driver values as needed: fields implementing
// [sql.Scanner] receive the raw value, NULL yields the zero value, pointer
// fields are allocated, []byte and string interconvert, numbers widen or
// narrow when the value fits, and text is parsed into numbers and bools.
func StructModel[T any]() (*Model[T], error) {
	rt := reflect.TypeOf((*T)(nil)).Elem()
	if !isStruct(rt) {
		return nil, fmt.Errorf("rawmap: StructModel requires a struct type, got %s", rt)
	}
	idx := structIndexOf(rt)
	if idx.err != nil {
		return nil, idx.err
	}
	return NewModel(derefPtr(rt).Name(), idx.fields, func(attrs map[string]any) (T, error) {
		return newStruct[T](rt, idx, attrs)
	})
}

func structIndexOf(rt reflect.Type) *structIndex {
	if v, ok := structIndexCache.Load(rt); ok {
		return v.(*structIndex)
	}
	idx := buildStructIndex(rt)
	v, _ := structIndexCache.LoadOrStore(rt, idx)
	return v.(*structIndex)
}

func newStruct[T any](rt reflect.Type, idx *structIndex, attrs map[string]any) (T, error) {
	rv := reflect.New(rt) // *T
	root := rv.Elem()
	for attr, val := range attrs {
		path, ok := idx.paths[attr]
		if !ok {
			continue
		}
		dst := fieldByPathAlloc(root, path)
		if err := assignValue(dst, val); err != nil {
			var zero T
			return zero, fmt.Errorf("rawmap: %s.%s: %w", derefPtr(rt).Name(), attr, err)
		}
	}
	return rv.Elem().Interface().(T), nil
}

// ---------------- Struct indexing & tags ----------------

func buildStructIndex(rt reflect.Type) *structIndex {
	idx := &structIndex{paths: make(map[string][]int)}

	var walk func(t reflect.Type, base []int, forceInline bool)
	walk = func(t reflect.Type, base []int, forceInline bool) {
		t = derefPtr(t)
		if t.Kind() != reflect.Struct {
			return
		}
		n := t.NumField()
		for i := 0; i < n; i++ {
			sf := t.Field(i)
			if sf.PkgPath != "" && !sf.Anonymous { // unexported, non-anonymous
				continue
			}
			tag := sf.Tag.Get("db")
			name, inline, omit := parseTag(tag)
			if omit {
				continue
			}
			ft := sf.Type
			path := append(append([]int(nil), base...), i)

			if inline || (sf.Anonymous && (forceInline || tag == "")) {
				if isStruct(ft) && !implementsScanner(derefPtr(ft)) && derefPtr(ft) != timeType {
					walk(ft, path, inline)
					continue
				}
			}
			if sf.PkgPath != "" { // unexported embedded non-struct
				continue
			}
			if name == "" {
				name = toLowerAscii(sf.Name)
			}
			if _, ok := idx.paths[name]; !ok {
				idx.paths[name] = path
				idx.fields = append(idx.fields, Field{Attr: name, Column: name})
			}
		}
	}
	walk(rt, nil, false)
	if len(idx.fields) == 0 {
		idx.err = fmt.Errorf("rawmap: struct %s has no mappable fields", rt)
	}
	return idx
}

// parseTag supports: "-", "col", ",inline", "col,inline", "inline,col".
func parseTag(tag string) (name string, inline bool, omit bool) {
	if tag == "-" {
		return "", false, true
	}
	if tag == "" {
		return "", false, false
	}
	start := 0
	for i := 0; i <= len(tag); i++ {
		if i == len(tag) || tag[i] == ',' {
			part := tag[start:i]
			if part == "inline" {
				inline = true
			} else if part != "" && name == "" {
				name = part
			}
			start = i + 1
		}
	}
	return name, inline, false
}

// ---------------- Value assignment ----------------

var (
	timeType    = reflect.TypeOf(time.Time{})
	scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
)

// assignValue stores the driver value v into dst, converting when safe.
func assignValue(dst reflect.Value, v any) error {
	if dst.CanAddr() && dst.Addr().Type().Implements(scannerType) {
		return dst.Addr().Interface().(sql.Scanner).Scan(v)
	}
	if v == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	if dst.Kind() == reflect.Ptr {
		p := reflect.New(dst.Type().Elem())
		if err := assignValue(p.Elem(), v); err != nil {
			return err
		}
		dst.Set(p)
		return nil
	}

	sv := reflect.ValueOf(v)
	if sv.Type().AssignableTo(dst.Type()) {
		if b, ok := v.([]byte); ok {
			dst.Set(reflect.ValueOf(append([]byte(nil), b...)))
			return nil
		}
		dst.Set(sv)
		return nil
	}

	switch dst.Kind() {
	case reflect.Interface:
		if sv.Type().Implements(dst.Type()) {
			dst.Set(sv)
			return nil
		}
	case reflect.String:
		switch src := v.(type) {
		case []byte:
			dst.SetString(string(src))
			return nil
		case string:
			dst.SetString(src)
			return nil
		}
	case reflect.Slice:
		if dst.Type().Elem().Kind() == reflect.Uint8 {
			switch src := v.(type) {
			case string:
				dst.SetBytes([]byte(src))
				return nil
			case []byte:
				dst.SetBytes(append([]byte(nil), src...))
				return nil
			}
		}
	case reflect.Bool:
		switch sv.Kind() {
		case reflect.Bool:
			dst.SetBool(sv.Bool())
			return nil
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			dst.SetBool(sv.Int() != 0)
			return nil
		}
		if s, ok := asText(v); ok {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return err
			}
			dst.SetBool(b)
			return nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		var n int64
		switch sv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			n = sv.Int()
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			u := sv.Uint()
			if u > 1<<63-1 {
				return fmt.Errorf("value %d overflows %s", u, dst.Type())
			}
			n = int64(u)
		default:
			s, ok := asText(v)
			if !ok {
				return fmt.Errorf("cannot assign %T to %s", v, dst.Type())
			}
			var err error
			if n, err = strconv.ParseInt(s, 10, 64); err != nil {
				return err
			}
		}
		if dst.OverflowInt(n) {
			return fmt.Errorf("value %d overflows %s", n, dst.Type())
		}
		dst.SetInt(n)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		var n uint64
		switch sv.Kind() {
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			n = sv.Uint()
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			i := sv.Int()
			if i < 0 {
				return fmt.Errorf("value %d overflows %s", i, dst.Type())
			}
			n = uint64(i)
		default:
			s, ok := asText(v)
			if !ok {
				return fmt.Errorf("cannot assign %T to %s", v, dst.Type())
			}
			var err error
			if n, err = strconv.ParseUint(s, 10, 64); err != nil {
				return err
			}
		}
		if dst.OverflowUint(n) {
			return fmt.Errorf("value %d overflows %s", n, dst.Type())
		}
		dst.SetUint(n)
		return nil
	case reflect.Float32, reflect.Float64:
		var f float64
		switch sv.Kind() {
		case reflect.Float32, reflect.Float64:
			f = sv.Float()
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			f = float64(sv.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			f = float64(sv.Uint())
		default:
			s, ok := asText(v)
			if !ok {
				return fmt.Errorf("cannot assign %T to %s", v, dst.Type())
			}
			var err error
			if f, err = strconv.ParseFloat(s, 64); err != nil {
				return err
			}
		}
		if dst.OverflowFloat(f) {
			return fmt.Errorf("value %g overflows %s", f, dst.Type())
		}
		dst.SetFloat(f)
		return nil
	}

	if dst.Type() == timeType {
		if s, ok := asText(v); ok {
			t, err := parseTime(s)
			if err != nil {
				return err
			}
			dst.Set(reflect.ValueOf(t))
			return nil
		}
	}

	// Named types over the same underlying kind (e.g. type Status string).
	if sv.Type().ConvertibleTo(dst.Type()) && sv.Kind() == dst.Kind() {
		dst.Set(sv.Convert(dst.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", v, dst.Type())
}

// timeLayouts are the textual forms drivers without native time support
// (sqlite TEXT columns) commonly return.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as time", s)
}

func asText(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	}
	return "", false
}

// ---------------- Type helpers ----------------

func isStruct(t reflect.Type) bool { return derefPtr(t).Kind() == reflect.Struct }

func derefPtr(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

func implementsScanner(t reflect.Type) bool {
	return reflect.PointerTo(t).Implements(scannerType)
}

// fieldByPathAlloc walks fpath, allocating nil embedded pointers so the final
// field is addressable.
func fieldByPathAlloc(root reflect.Value, fpath []int) reflect.Value {
	v := root
	for _, i := range fpath {
		if v.Kind() == reflect.Ptr {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(i)
	}
	return v
}

// ---------------- Column normalization (ASCII fast-path) ----------------

func normalizeColAscii(s string) string {
	if l := len(s); l >= 2 {
		switch s[0] {
		case '"':
			if s[l-1] == '"' {
				s = s[1 : l-1]
			}
		case '`':
			if s[l-1] == '`' {
				s = s[1 : l-1]
			}
		case '[':
			if s[l-1] == ']' {
				s = s[1 : l-1]
			}
		}
	}
	return toLowerAscii(s)
}

func toLowerAscii(s string) string {
	var need bool
	for i := 0; i < len(s); i++ {
		c := s[i]
		if 'A' <= c && c <= 'Z' {
			need = true
			break
		}
	}
	if !need {
		return s
	}
	b := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if 'A' <= c && c <= 'Z' {
			c = c + ('a' - 'A')
		}
		b[i] = c
	}
	return string(b)
}
