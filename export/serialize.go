// Package export turns a log store into its JSON report and delivers it:
// as a string, as a file on disk, or as an upload to a collector.
package export

import (
	"encoding"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/segmentio/encoding/json"

	"github.com/hazyhaar/skilllog/logstore"
)

// Serialize encodes report as JSON. Message values are arbitrary, so they
// go through a reference tracker first: a pointer, map or slice reached a
// second time anywhere in the report is dropped (omitted from objects, null
// in arrays). Cycles therefore terminate. Functions and channels are
// dropped, errors become their text and non-finite floats become null.
func Serialize(report logstore.Report) ([]byte, error) {
	p := &pruner{seen: make(map[ref]struct{})}

	logs := make([]logstore.Record, len(report.Logs))
	for i, rec := range report.Logs {
		msg := make([]any, len(rec.Message))
		for j, v := range rec.Message {
			if out, ok := p.prune(reflect.ValueOf(v)); ok {
				msg[j] = out
			}
		}
		rec.Message = msg
		if rec.Trace == nil {
			rec.Trace = []string{}
		}
		logs[i] = rec
	}
	report.Logs = logs

	data, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("export: marshal report: %w", err)
	}
	return data, nil
}

// String returns the JSON report of store.
func String(store *logstore.Store) (string, error) {
	report, err := store.Report()
	if err != nil {
		return "", err
	}
	data, err := Serialize(report)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type ref struct {
	typ reflect.Type
	ptr uintptr
	len int
}

type pruner struct {
	seen map[ref]struct{}
}

var (
	errorType         = reflect.TypeFor[error]()
	jsonMarshalerType = reflect.TypeFor[json.Marshaler]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
)

// prune returns a JSON-ready copy of v. ok is false when v must be dropped.
func (p *pruner) prune(v reflect.Value) (out any, ok bool) {
	if !v.IsValid() {
		return nil, true
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return nil, true
		}
		return p.prune(v.Elem())
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return nil, false
	case reflect.Pointer, reflect.Map, reflect.Slice:
		if v.IsNil() {
			return nil, true
		}
		if !p.visit(v) {
			return nil, false
		}
	}

	if v.CanInterface() {
		t := v.Type()
		switch {
		case t.Implements(errorType):
			return v.Interface().(error).Error(), true
		case t.Implements(jsonMarshalerType), t.Implements(textMarshalerType):
			return v.Interface(), true
		}
	}

	switch v.Kind() {
	case reflect.Pointer:
		return p.prune(v.Elem())
	case reflect.Map:
		return p.pruneMap(v), true
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return v.Bytes(), true
		}
		return p.pruneList(v), true
	case reflect.Array:
		return p.pruneList(v), true
	case reflect.Struct:
		return p.pruneStruct(v), true
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, true
		}
		return f, true
	case reflect.Complex64, reflect.Complex128:
		return fmt.Sprint(v.Complex()), true
	case reflect.String:
		return v.String(), true
	case reflect.Bool:
		return v.Bool(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint(), true
	}
	return nil, false
}

// visit marks a reference value as seen. It reports false when the value
// was already reached.
func (p *pruner) visit(v reflect.Value) bool {
	if v.Kind() == reflect.Slice && v.Len() == 0 {
		return true
	}
	r := ref{typ: v.Type(), ptr: uintptr(v.UnsafePointer())}
	if v.Kind() == reflect.Slice {
		r.len = v.Len()
	}
	if _, dup := p.seen[r]; dup {
		return false
	}
	p.seen[r] = struct{}{}
	return true
}

func (p *pruner) pruneMap(v reflect.Value) map[string]any {
	out := make(map[string]any, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		val, ok := p.prune(iter.Value())
		if !ok {
			continue
		}
		out[mapKey(iter.Key())] = val
	}
	return out
}

func (p *pruner) pruneList(v reflect.Value) []any {
	out := make([]any, v.Len())
	for i := range out {
		if val, ok := p.prune(v.Index(i)); ok {
			out[i] = val
		}
	}
	return out
}

// pruneStruct follows encoding/json field naming: json tags, omitempty and
// embedded structs flattened into the outer object, outer fields winning.
func (p *pruner) pruneStruct(v reflect.Value) map[string]any {
	t := v.Type()
	out := make(map[string]any, t.NumField())
	var promoted []map[string]any
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		fv := v.Field(i)

		if f.Anonymous && name == "" {
			if m, ok := p.embedded(fv); ok {
				promoted = append(promoted, m)
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		if strings.Contains(","+opts+",", ",omitempty,") && fv.IsZero() {
			continue
		}
		val, ok := p.prune(fv)
		if !ok {
			continue
		}
		out[name] = val
	}
	for _, m := range promoted {
		for k, val := range m {
			if _, taken := out[k]; !taken {
				out[k] = val
			}
		}
	}
	return out
}

// embedded prunes an embedded struct (or pointer to one) for flattening.
// ok is false when fv is not a struct and must be encoded as a field.
func (p *pruner) embedded(fv reflect.Value) (map[string]any, bool) {
	if fv.Kind() == reflect.Pointer {
		if fv.Type().Elem().Kind() != reflect.Struct {
			return nil, false
		}
		if fv.IsNil() || !p.visit(fv) {
			return nil, true
		}
		fv = fv.Elem()
	}
	if fv.Kind() != reflect.Struct {
		return nil, false
	}
	return p.pruneStruct(fv), true
}

func mapKey(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	if k.CanInterface() {
		if tm, ok := k.Interface().(encoding.TextMarshaler); ok {
			if b, err := tm.MarshalText(); err == nil {
				return string(b)
			}
		}
	}
	return fmt.Sprint(k)
}
