package cache

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/alecthomas/assert"
)

func TestParseLines(t *testing.T) {
	s := `<?php
// datastore=integrity;
// created_on=100;
// updated_on=200;
exit(0);
?>
k1:{"a":1}
k2:"two"
k1:{"a":2}
not an entry
bad key:1
k3:{broken
:nokey
// comment without terminator=x
k4: [1, 2]
`
	c := ParseLines(strings.Split(s, "\n"), false)
	assert.Equal(t, Header{"datastore": "integrity", "created_on": "100", "updated_on": "200"}, c.Header)
	assert.Equal(t, []string{"k1", "k2", "k3", "k4"}, c.Keys)
	assert.Equal(t, 4, c.Count())
	assert.Equal(t, `{"a":1}`, string(c.Entries["k1"]))
	assert.Equal(t, `"two"`, string(c.Entries["k2"]))
	assert.Equal(t, "null", string(c.Entries["k3"]))
	assert.Equal(t, "[1, 2]", string(c.Entries["k4"]))
	assert.Equal(t, int64(100), c.Header.CreatedOn().Unix())
	assert.Equal(t, int64(200), c.Header.UpdatedOn().Unix())

	var m map[string]any
	assert.NoError(t, c.Decode("k1", &m))
	assert.Equal(t, map[string]any{"a": float64(1)}, m)
	var st struct{ A int }
	assert.NoError(t, c.Decode("k1", &st))
	assert.Equal(t, 1, st.A)
	assert.Equal(t, ErrNotFound, c.Decode("missing", &m))

	c = ParseLines(strings.Split(s, "\n"), true)
	assert.Equal(t, 3, len(c.Header))
	assert.Equal(t, 0, c.Count())
}

func TestParseHeaderValueWithEquals(t *testing.T) {
	c := ParseLines([]string{"// note=a=b;", "//x=y;", "// =empty;"}, true)
	assert.Equal(t, Header{"note": "a=b", "": "empty"}, c.Header)
}

func TestFormatHeader(t *testing.T) {
	h := Header{
		AttrUpdatedOn: "2",
		AttrDatastore: "integrity",
		"zeta":        "z",
		AttrCreatedOn: "1",
		"alpha":       "a",
	}
	exp := "<?php\n" +
		"// datastore=integrity;\n" +
		"// created_on=1;\n" +
		"// updated_on=2;\n" +
		"// alpha=a;\n" +
		"// zeta=z;\n" +
		"exit(0);\n?>\n"
	got := formatHeader(h)
	assert.Equal(t, exp, got)

	// formatted header parses back to the same values and has no entries
	c := ParseLines(strings.Split(got, "\n"), false)
	assert.Equal(t, h, c.Header)
	assert.Equal(t, 0, c.Count())
}

func TestMarshalEntry(t *testing.T) {
	d, err := marshalEntry("k", map[string]string{"path": "/a<b>&c.php", "s": "line1\nline2"})
	assert.NoError(t, err)
	s := string(d)
	assert.True(t, strings.HasSuffix(s, "\n"))
	assert.Equal(t, 1, strings.Count(s, "\n"))
	assert.True(t, strings.Contains(s, "/a<b>&c.php"))

	c := ParseLines([]string{strings.TrimSuffix(s, "\n")}, false)
	var m map[string]string
	assert.NoError(t, json.Unmarshal(c.Entries["k"], &m))
	assert.Equal(t, "line1\nline2", m["s"])

	_, err = marshalEntry("k", func() {})
	assert.Error(t, err)
}
