package tree

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"key order kept", `{"b": 1, "a": 2, "c": 3}`, `{"b":1,"a":2,"c":3}`},
		{"number text kept", `[1.50, 1e3, -0, 12345678901234567890]`, `[1.50,1e3,-0,12345678901234567890]`},
		{"html not escaped", `{"html": "<p>a & b</p>"}`, `{"html":"<p>a & b</p>"}`},
		{"unicode escapes decoded", `"café"`, `"café"`},
		{"scalars", `[true, false, null, ""]`, `[true,false,null,""]`},
		{"nested empty containers", `{"a": [], "b": {}}`, `{"a":[],"b":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Parse([]byte(tt.input))
			require.NoError(t, err)

			out, err := v.MarshalJSON()
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(out))
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty input", ``},
		{"truncated object", `{"a": 1`},
		{"trailing data", `{"a": 1} {"b": 2}`},
		{"trailing garbage", `[1] ]`},
		{"invalid literal", `{"a": nope}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestMarshalThroughEncodingJSON(t *testing.T) {
	v := Map(E("b", String("x")), E("a", Number("2")))

	out, err := json.Marshal(struct {
		Data Value `json:"data"`
	}{Data: v})
	require.NoError(t, err)
	assert.Equal(t, `{"data":{"b":"x","a":2}}`, string(out))
}

func TestValueUnmarshalInsideStruct(t *testing.T) {
	var doc struct {
		ID     string `json:"id"`
		Fields Value  `json:"fields"`
	}
	err := json.Unmarshal([]byte(`{"id": "x", "fields": {"z": "http://z", "a": [1]}}`), &doc)
	require.NoError(t, err)

	assert.Equal(t, "x", doc.ID)
	assert.Equal(t, KindMap, doc.Fields.Kind())
	require.Len(t, doc.Fields.Entries(), 2)
	assert.Equal(t, "z", doc.Fields.Entries()[0].Key)

	a, ok := doc.Fields.Get("a")
	require.True(t, ok)
	assert.Equal(t, KindSeq, a.Kind())
	assert.Equal(t, json.Number("1"), a.Items()[0].Num())
}

func TestEqualAndSameShape(t *testing.T) {
	a := Map(E("k", Seq(String("x"), Number("1"))))
	b := Map(E("k", Seq(String("y"), Number("1"))))
	c := Map(E("k", Seq(String("x"))))
	d := Map(E("other", Seq(String("x"), Number("1"))))

	assert.True(t, a.Equal(a))
	assert.False(t, a.Equal(b))
	assert.True(t, SameShape(a, b))
	assert.False(t, SameShape(a, c))
	assert.False(t, SameShape(a, d))
	assert.True(t, Null().Equal(Value{}))
	assert.Equal(t, "mapping", a.Kind().String())
}
