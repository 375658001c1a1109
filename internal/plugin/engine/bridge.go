package engine

import (
	lua "github.com/yuin/gopher-lua"
)

// ToLua converts a Go value to its Lua representation in the given state.
// Unsupported types become nil.
func ToLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []string:
		t := L.NewTable()
		for _, s := range val {
			t.Append(lua.LString(s))
		}
		return t
	case []any:
		t := L.NewTable()
		for _, item := range val {
			t.Append(ToLua(L, item))
		}
		return t
	case map[string]any:
		t := L.NewTable()
		for k, item := range val {
			L.SetField(t, k, ToLua(L, item))
		}
		return t
	default:
		return lua.LNil
	}
}

// ToGo converts a Lua value to a plain Go value. Tables with contiguous
// integer keys become slices, all other tables become maps. Functions,
// threads, and userdata convert to nil.
func ToGo(lv lua.LValue) any {
	return toGo(lv, make(map[*lua.LTable]bool))
}

func toGo(lv lua.LValue, visited map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if visited[v] {
			return nil
		}
		visited[v] = true
		return tableToGo(v, visited)
	default:
		return nil
	}
}

func tableToGo(t *lua.LTable, visited map[*lua.LTable]bool) any {
	n := t.Len()
	total := 0
	t.ForEach(func(lua.LValue, lua.LValue) { total++ })

	if n > 0 && n == total {
		out := make([]any, 0, n)
		for i := 1; i <= n; i++ {
			out = append(out, toGo(t.RawGetInt(i), visited))
		}
		return out
	}

	out := make(map[string]any, total)
	t.ForEach(func(k, v lua.LValue) {
		out[k.String()] = toGo(v, visited)
	})
	return out
}
