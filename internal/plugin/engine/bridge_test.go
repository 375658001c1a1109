package engine

import (
	"reflect"
	"testing"

	lua "github.com/yuin/gopher-lua"
)

func TestToLuaRoundTrip(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"bool", true, true},
		{"int", 42, int64(42)},
		{"float", 1.5, 1.5},
		{"string", "hi", "hi"},
		{"slice", []any{"a", "b"}, []any{"a", "b"}},
		{"map", map[string]any{"k": "v"}, map[string]any{"k": "v"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToGo(ToLua(L, tt.in))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("round trip = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestToGoUnsupported(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	if got := ToGo(L.NewFunction(func(*lua.LState) int { return 0 })); got != nil {
		t.Errorf("ToGo(function) = %v, want nil", got)
	}
	if got := ToGo(lua.LNil); got != nil {
		t.Errorf("ToGo(nil) = %v, want nil", got)
	}
}

func TestToGoCircularTable(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	tbl := L.NewTable()
	L.SetField(tbl, "self", tbl)

	got, ok := ToGo(tbl).(map[string]any)
	if !ok {
		t.Fatalf("ToGo(circular) = %T, want map", ToGo(tbl))
	}
	if got["self"] != nil {
		t.Error("circular reference should convert to nil")
	}
}
