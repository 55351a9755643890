package state

import (
	"encoding/json"
	"testing"

	"github.com/tidwall/gjson"
)

type celsius float64

type point struct{ X, Y int }

func (p point) String() string { return "point" }

func TestValueOf(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"nil", nil, Null()},
		{"string", "abc", String("abc")},
		{"bytes", []byte("xy"), String("xy")},
		{"bool", true, Bool(true)},
		{"int", 42, Number(42)},
		{"uint8", uint8(7), Number(7)},
		{"float", 1.5, Number(1.5)},
		{"json number", json.Number("12"), Number(12)},
		{"list", []any{"a", 1, false}, List(String("a"), Number(1), Bool(false))},
		{"strings", []string{"a", "b"}, List(String("a"), String("b"))},
		{"map", map[string]any{"k": "v"}, Map(map[string]Value{"k": String("v")})},
		{"stringer", point{1, 2}, String("point")},
		{"fallback", celsius(3.5), String("3.5")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValueOf(tt.in)
			if !got.Equal(tt.want) {
				t.Errorf("ValueOf(%v) = %v (%s), want %v (%s)", tt.in, got, got.Kind(), tt.want, tt.want.Kind())
			}
		})
	}
}

func TestFromJSON(t *testing.T) {
	v := FromJSON(gjson.Parse(`{"a":[1,"x",true,null],"b":{"c":2.5}}`))
	if v.Kind() != KindMap {
		t.Fatalf("Kind = %s, want map", v.Kind())
	}
	m, _ := v.Map()
	list, ok := m["a"].List()
	if !ok || len(list) != 4 {
		t.Fatalf("a = %v, want 4-element list", m["a"])
	}
	if !list[3].IsNull() {
		t.Errorf("a[3] = %v, want null", list[3])
	}
	inner, _ := m["b"].Map()
	if n, _ := inner["c"].Num(); n != 2.5 {
		t.Errorf("b.c = %v, want 2.5", n)
	}
}

func TestValueJSONRoundTrip(t *testing.T) {
	v := Map(map[string]Value{
		"name": String("ann"),
		"tags": List(String("x"), Number(3)),
		"ok":   Bool(true),
		"none": Null(),
	})

	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if want := `{"name":"ann","none":null,"ok":true,"tags":["x",3]}`; string(data) != want {
		t.Errorf("Marshal = %s, want %s", data, want)
	}

	var back Value
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if !back.Equal(v) {
		t.Errorf("round trip = %v, want %v", back, v)
	}
}

func TestValueString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Null(), ""},
		{String("hi"), "hi"},
		{Number(3), "3"},
		{Number(2.25), "2.25"},
		{Bool(false), "false"},
		{List(Number(1), Number(2)), "[1,2]"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestValueTruthy(t *testing.T) {
	falsy := []Value{Null(), Bool(false), Number(0), String(""), String("off"), String("false"), List()}
	for _, v := range falsy {
		if v.Truthy() {
			t.Errorf("%v (%s) should be falsy", v, v.Kind())
		}
	}
	truthy := []Value{Bool(true), Number(-1), String("on"), String("yes"), List(Null())}
	for _, v := range truthy {
		if !v.Truthy() {
			t.Errorf("%v (%s) should be truthy", v, v.Kind())
		}
	}
}

func TestValueAccessorsCopy(t *testing.T) {
	v := List(String("a"))
	items, _ := v.List()
	items[0] = String("mutated")
	again, _ := v.List()
	if s, _ := again[0].Str(); s != "a" {
		t.Errorf("List() exposed internal storage, got %q", s)
	}
}

func TestValueNaNRejected(t *testing.T) {
	if _, err := json.Marshal(Number(nan())); err == nil {
		t.Fatal("expected error marshaling NaN")
	}
}

func nan() float64 {
	zero := 0.0
	return zero / zero
}
