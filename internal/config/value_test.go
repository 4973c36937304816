package config

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestFromAnyKeepsShape(t *testing.T) {
	v := FromAny(map[string]any{
		"b":     []string{"x", "y"},
		"a":     map[any]any{"port": 8002},
		"empty": nil,
	})

	if v.Kind() != KindMap {
		t.Fatalf("expected map, got %v", v.Kind())
	}
	if keys := v.Keys(); strings.Join(keys, ",") != "a,b,empty" {
		t.Fatalf("expected sorted keys, got %v", keys)
	}

	list, _ := v.Field("b")
	if list.Kind() != KindList || list.Len() != 2 {
		t.Fatalf("expected list of two, got %v/%d", list.Kind(), list.Len())
	}
	nested, _ := v.Field("a")
	port, ok := nested.Field("port")
	if !ok || port.Scalar() != 8002 {
		t.Fatalf("expected nested port 8002, got %v", port.Scalar())
	}
	empty, ok := v.Field("empty")
	if !ok || !empty.IsNull() {
		t.Fatalf("expected null entry")
	}
}

func TestValueSetCopies(t *testing.T) {
	original := FromAny(map[string]any{"a": 1})
	updated := original.Set("b", ScalarValue(2))

	if original.Len() != 1 {
		t.Fatalf("expected original to be unchanged, got %d keys", original.Len())
	}
	if updated.Len() != 2 {
		t.Fatalf("expected copy to have two keys, got %d", updated.Len())
	}

	nested := Nest("datalake", ScalarValue("x"))
	if got, _ := nested.Field("datalake"); got.Scalar() != "x" {
		t.Fatalf("expected nested value, got %v", got.Scalar())
	}
}

func TestValueMarshalYAMLKeepsOrder(t *testing.T) {
	v := EmptyMap().
		Set("zeta", ScalarValue(1)).
		Set("alpha", ListValue(ScalarValue("x"), Value{}))

	out, err := yaml.Marshal(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "zeta: 1\nalpha:\n    - x\n    - null\n"
	if string(out) != want {
		t.Fatalf("unexpected yaml:\n%s", out)
	}
}
