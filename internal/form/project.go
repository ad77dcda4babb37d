package form

import (
	"strings"
)

const indentUnit = "  "

// Project renders a form as newline separated "key: value" lines.
//
// Nested maps emit a "key:" header followed by their own lines, indented one
// level deeper. Lists emit "key: a, b, c". Strings holding markup are reduced
// to their plain text. Empty values are skipped, so Project(m) and
// Project(Prune(m)) always agree.
func Project(m *Map) string {
	return strings.Join(projectMap(Prune(m), 0), "\n")
}

func projectMap(m *Map, depth int) []string {
	prefix := strings.Repeat(indentUnit, depth)
	lines := make([]string, 0, m.Len())
	for _, key := range m.Keys() {
		v, _ := m.Get(key)
		switch v.Kind() {
		case KindMap:
			sub := projectMap(v.Map(), depth+1)
			if len(sub) == 0 {
				continue
			}
			lines = append(lines, prefix+key+":")
			lines = append(lines, sub...)
		case KindList:
			items := listItems(v.List())
			if len(items) == 0 {
				continue
			}
			lines = append(lines, prefix+key+": "+strings.Join(items, ", "))
		default:
			text := scalarText(v)
			if strings.TrimSpace(text) == "" {
				continue
			}
			lines = append(lines, prefix+key+": "+text)
		}
	}
	return lines
}

func listItems(values []Value) []string {
	items := make([]string, 0, len(values))
	for _, v := range values {
		if text := inlineText(v, true); text != "" {
			items = append(items, text)
		}
	}
	return items
}

// inlineText renders a list element on a single line. Maps nested below the
// first level are wrapped in braces so their fields stay grouped.
func inlineText(v Value, top bool) string {
	switch v.Kind() {
	case KindList:
		items := listItems(v.List())
		if len(items) == 0 {
			return ""
		}
		return "[" + strings.Join(items, ", ") + "]"
	case KindMap:
		fields := make([]string, 0, v.Map().Len())
		for _, key := range v.Map().Keys() {
			item, _ := v.Map().Get(key)
			if text := inlineText(item, false); text != "" {
				fields = append(fields, key+": "+text)
			}
		}
		if len(fields) == 0 {
			return ""
		}
		joined := strings.Join(fields, "; ")
		if top {
			return joined
		}
		return "{" + joined + "}"
	default:
		return strings.TrimSpace(scalarText(v))
	}
}

func scalarText(v Value) string {
	switch v.Kind() {
	case KindString:
		if ContainsMarkup(v.Str()) {
			return PlainText(v.Str())
		}
		return v.Str()
	default:
		return v.Text()
	}
}
