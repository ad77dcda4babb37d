package form

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleForm = `{
	"title": "Quarterly report",
	"owner": {"name": "Ana", "email": ""},
	"tags": ["finance", "q3"],
	"count": 3,
	"archived": false,
	"notes": "<p>Hello <b>world</b></p><script>track()</script>"
}`

func TestParseKeepsKeyOrder(t *testing.T) {
	m := MustParse(`{"zeta": 1, "alpha": 2, "mid": {"b": 1, "a": 2}}`)
	require.Equal(t, []string{"zeta", "alpha", "mid"}, m.Keys())
	mid, ok := m.Get("mid")
	require.True(t, ok)
	require.Equal(t, []string{"b", "a"}, mid.Map().Keys())
}

func TestEncodeIsVerbatim(t *testing.T) {
	raw := `{"b":1,"a":"<p>x &amp; y</p>","c":[1.50,true,null],"d":{"e":"f"}}`
	m := MustParse(raw)
	out, err := Encode(m)
	require.NoError(t, err)
	require.Equal(t, raw, string(out))
}

func TestMapJSONInsideStruct(t *testing.T) {
	type envelope struct {
		Domain string `json:"domain"`
		Form   *Map   `json:"form"`
	}
	var in envelope
	require.NoError(t, json.Unmarshal([]byte(`{"domain":"hr","form":{"y":"1","x":"2"}}`), &in))
	require.Equal(t, "hr", in.Domain)
	require.Equal(t, []string{"y", "x"}, in.Form.Keys())

	out, err := json.Marshal(in)
	require.NoError(t, err)
	require.JSONEq(t, `{"domain":"hr","form":{"y":"1","x":"2"}}`, string(out))
}

func TestParseRejectsNonObject(t *testing.T) {
	_, err := Parse([]byte(`[1,2]`))
	require.Error(t, err)
}

func TestIsConsideredEmpty(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  bool
	}{
		{name: "null", value: Null(), want: true},
		{name: "empty string", value: String(""), want: true},
		{name: "blank string", value: String(" "), want: false},
		{name: "zero", value: Int(0), want: true},
		{name: "zero float", value: Number("0.0"), want: true},
		{name: "non zero", value: Number("0.5"), want: false},
		{name: "false", value: Bool(false), want: true},
		{name: "true", value: Bool(true), want: false},
		{name: "empty list", value: List(), want: true},
		{name: "list", value: List(String("a")), want: false},
		{name: "empty map", value: Object(NewMap()), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, IsConsideredEmpty(tt.value))
		})
	}
}

func TestPruneRemovesOnlyEmptyValues(t *testing.T) {
	m := MustParse(`{
		"a": "",
		"b": 0,
		"c": false,
		"d": null,
		"e": [],
		"f": {},
		"g": {"h": "", "i": {"j": 0}},
		"k": ["", "x", 0, {"l": ""}],
		"m": "keep",
		"n": 7,
		"o": true
	}`)
	pruned := Prune(m)
	out, err := Encode(pruned)
	require.NoError(t, err)
	require.Equal(t, `{"k":["x"],"m":"keep","n":7,"o":true}`, string(out))

	// source is untouched
	require.Equal(t, 11, m.Len())
}

func TestPruneRetainsOnlyNonEmptyLeaves(t *testing.T) {
	pruned := Prune(MustParse(sampleForm))
	var walk func(v Value)
	walk = func(v Value) {
		switch v.Kind() {
		case KindMap:
			for _, key := range v.Map().Keys() {
				child, _ := v.Map().Get(key)
				walk(child)
			}
		case KindList:
			for _, child := range v.List() {
				walk(child)
			}
		default:
			require.False(t, IsConsideredEmpty(v), "leaf %v", v)
		}
	}
	walk(Object(pruned))
}

func TestProject(t *testing.T) {
	want := "title: Quarterly report\n" +
		"owner:\n" +
		"  name: Ana\n" +
		"tags: finance, q3\n" +
		"count: 3\n" +
		"notes: Hello world"
	require.Equal(t, want, Project(MustParse(sampleForm)))
}

func TestProjectLists(t *testing.T) {
	m := MustParse(`{
		"items": [{"sku": "A1", "qty": 2}, {"sku": "B2", "qty": 0}],
		"grid": [[1, 2], [3]],
		"nested": [{"meta": {"k": "v"}}],
		"rich": ["<em>bold</em> move", "plain"]
	}`)
	want := "items: sku: A1; qty: 2, sku: B2\n" +
		"grid: [1, 2], [3]\n" +
		"nested: meta: {k: v}\n" +
		"rich: bold move, plain"
	require.Equal(t, want, Project(m))
}

func TestProjectDeepNesting(t *testing.T) {
	m := MustParse(`{"a": {"b": {"c": "d"}, "e": ""}}`)
	require.Equal(t, "a:\n  b:\n    c: d", Project(m))
}

func TestProjectAndPruneCommute(t *testing.T) {
	forms := []string{
		sampleForm,
		`{"a": 0, "b": {"c": false}, "d": ["", "x"]}`,
		`{"html": "<p></p>", "x": "y"}`,
	}
	for _, raw := range forms {
		m := MustParse(raw)
		require.Equal(t, Project(m), Project(Prune(m)))
		require.Equal(t, Project(Prune(m)), Project(Prune(Prune(m))))
	}
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "<p>Hello</p>", want: "Hello"},
		{in: "<div><style>p{}</style>Fish &amp; chips</div>", want: "Fish & chips"},
		{in: "<ul><li>one</li><li>two</li></ul>", want: "one two"},
		{in: "<p>un<b>believ</b>able</p>", want: "unbelievable"},
		{in: "<p>Hello <b>wor</b>ld, e<em>mail</em>: a@b.c</p>", want: "Hello world, email: a@b.c"},
		{in: "<p>a</p><p>b</p>", want: "a b"},
		{in: "line<br>next<br/>last", want: "line next last"},
		{in: `<span>x</span><a href="#">y</a>`, want: "xy"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, PlainText(tt.in))
	}
}

func TestProjectJoinsInlineMarkup(t *testing.T) {
	m := MustParse(`{"note":"<p>un<b>believ</b>able</p>"}`)
	require.Equal(t, "note: unbelievable", Project(m))
}

func TestContainsMarkup(t *testing.T) {
	require.True(t, ContainsMarkup("a <b>c</b>"))
	require.True(t, ContainsMarkup(`<img src="x">`))
	require.False(t, ContainsMarkup("1 < 2 and 3 > 2"))
	require.False(t, ContainsMarkup("plain"))
}

func TestLookup(t *testing.T) {
	m := MustParse(`{"a": {"b": {"c": "d"}}}`)
	v, ok := m.Lookup("a", "b", "c")
	require.True(t, ok)
	require.Equal(t, "d", v.Text())
	_, ok = m.Lookup("a", "x")
	require.False(t, ok)
}
