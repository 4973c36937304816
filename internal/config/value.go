package config

import (
	"fmt"
	"reflect"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"
)

// Kind identifies the shape of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindScalar
	KindMap
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindMap:
		return "map"
	case KindList:
		return "list"
	default:
		return "null"
	}
}

// Value is a node of the merged settings tree: null, a scalar, an ordered
// string-keyed map or a list. Values are never mutated in place; Set returns a
// modified copy.
type Value struct {
	kind   Kind
	scalar any
	keys   []string
	fields map[string]Value
	items  []Value
}

// ScalarValue wraps a leaf value. A nil argument yields a null Value.
func ScalarValue(v any) Value {
	if v == nil {
		return Value{}
	}
	return Value{kind: KindScalar, scalar: v}
}

// EmptyMap returns a map Value without keys.
func EmptyMap() Value {
	return Value{kind: KindMap, fields: map[string]Value{}}
}

// ListValue builds a list Value from items.
func ListValue(items ...Value) Value {
	return Value{kind: KindList, items: slices.Clone(items)}
}

// Nest wraps v one level deeper under key.
func Nest(key string, v Value) Value {
	return EmptyMap().Set(key, v)
}

// FromAny converts decoded YAML, JSON or Go data into a Value. Go maps have no
// order, so their keys are sorted to keep the tree deterministic.
func FromAny(in any) Value {
	switch t := in.(type) {
	case nil:
		return Value{}
	case Value:
		return t
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := EmptyMap()
		for _, k := range keys {
			out.keys = append(out.keys, k)
			out.fields[k] = FromAny(t[k])
		}
		return out
	case map[any]any:
		converted := make(map[string]any, len(t))
		for k, v := range t {
			converted[fmt.Sprint(k)] = v
		}
		return FromAny(converted)
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = FromAny(item)
		}
		return Value{kind: KindList, items: items}
	}
	return fromReflect(reflect.ValueOf(in))
}

func fromReflect(rv reflect.Value) Value {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Value{}
		}
		return FromAny(rv.Elem().Interface())
	case reflect.Map:
		if rv.IsNil() {
			return Value{}
		}
		converted := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			converted[fmt.Sprint(iter.Key().Interface())] = iter.Value().Interface()
		}
		return FromAny(converted)
	case reflect.Slice:
		if rv.IsNil() {
			return Value{}
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return ScalarValue(rv.Interface())
		}
		fallthrough
	case reflect.Array:
		items := make([]Value, rv.Len())
		for i := range items {
			items[i] = FromAny(rv.Index(i).Interface())
		}
		return Value{kind: KindList, items: items}
	}
	return ScalarValue(rv.Interface())
}

// Kind reports the shape of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v holds nothing.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Len returns the number of keys of a map or items of a list.
func (v Value) Len() int {
	switch v.kind {
	case KindMap:
		return len(v.keys)
	case KindList:
		return len(v.items)
	}
	return 0
}

// Keys returns the map keys in order.
func (v Value) Keys() []string {
	return slices.Clone(v.keys)
}

// Field returns the child stored under key when v is a map.
func (v Value) Field(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	child, ok := v.fields[key]
	return child, ok
}

// Index returns the i-th item when v is a list.
func (v Value) Index(i int) (Value, bool) {
	if v.kind != KindList || i < 0 || i >= len(v.items) {
		return Value{}, false
	}
	return v.items[i], true
}

// Scalar returns the leaf value, or nil for non-scalars.
func (v Value) Scalar() any {
	if v.kind != KindScalar {
		return nil
	}
	return v.scalar
}

// Set returns a copy of the map v with key bound to child. Setting a key on a
// non-map Value starts from an empty map.
func (v Value) Set(key string, child Value) Value {
	out := EmptyMap()
	if v.kind == KindMap {
		out.keys = slices.Clone(v.keys)
		for k, f := range v.fields {
			out.fields[k] = f
		}
	}
	if _, exists := out.fields[key]; !exists {
		out.keys = append(out.keys, key)
	}
	out.fields[key] = child
	return out
}

// Interface converts v back into plain Go data: map[string]any, []any or the
// scalar itself.
func (v Value) Interface() any {
	switch v.kind {
	case KindScalar:
		return v.scalar
	case KindMap:
		out := make(map[string]any, len(v.keys))
		for _, k := range v.keys {
			out[k] = v.fields[k].Interface()
		}
		return out
	case KindList:
		out := make([]any, len(v.items))
		for i, item := range v.items {
			out[i] = item.Interface()
		}
		return out
	}
	return nil
}

// MarshalYAML emits v as a YAML node, keeping map keys in order.
func (v Value) MarshalYAML() (any, error) {
	return v.node()
}

func (v Value) node() (*yaml.Node, error) {
	switch v.kind {
	case KindScalar:
		n := &yaml.Node{}
		if err := n.Encode(v.scalar); err != nil {
			return nil, fmt.Errorf("encode scalar: %w", err)
		}
		return n, nil
	case KindMap:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range v.keys {
			child, err := v.fields[k].node()
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, child)
		}
		return n, nil
	case KindList:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v.items {
			child, err := item.node()
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, child)
		}
		return n, nil
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
}
