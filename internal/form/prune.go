package form

// IsConsideredEmpty reports whether v counts as "no value". Besides null, the
// empty string and empty containers, numeric zero and false are empty too, so
// a form field holding 0 or false is dropped before storage and projection.
func IsConsideredEmpty(v Value) bool {
	switch v.Kind() {
	case KindNull:
		return true
	case KindString:
		return v.Str() == ""
	case KindNumber:
		f, ok := v.Float()
		return ok && f == 0
	case KindBool:
		return !v.Bool()
	case KindList:
		return len(v.List()) == 0
	case KindMap:
		return v.Map().Len() == 0
	}
	return true
}

// Prune returns a copy of m without empty values. Containers are pruned
// before they are tested, so a map holding only empty fields disappears as
// well. m itself is left untouched.
func Prune(m *Map) *Map {
	out := NewMap()
	if m == nil {
		return out
	}
	for _, key := range m.keys {
		v, ok := pruneValue(m.values[key])
		if !ok {
			continue
		}
		out.Set(key, v)
	}
	return out
}

func pruneValue(v Value) (Value, bool) {
	switch v.Kind() {
	case KindMap:
		v = Object(Prune(v.Map()))
	case KindList:
		items := make([]Value, 0, len(v.List()))
		for _, item := range v.List() {
			if pruned, ok := pruneValue(item); ok {
				items = append(items, pruned)
			}
		}
		v = List(items...)
	}
	if IsConsideredEmpty(v) {
		return Value{}, false
	}
	return v, true
}
