package flatten

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRecords(t *testing.T, doc string) []Object {
	t.Helper()
	v, err := Parse([]byte(doc))
	require.NoError(t, err)
	recs, err := Records(v)
	require.NoError(t, err)
	return recs
}

func render(t *testing.T, table *Table, delim string) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, table.Render(&buf, delim))
	return buf.String()
}

func TestFlattenSchemaUnion(t *testing.T) {
	table := Flatten(mustRecords(t, `[{"a":1},{"b":{"c":2}}]`))
	assert.Equal(t, []string{"a", "b.c"}, table.Columns)
	assert.Equal(t, [][]string{{"1", ""}, {"", "2"}}, table.Rows)
	assert.Equal(t, "a, b.c\n1, \n, 2\n", render(t, table, DefaultDelimiter))
}

func TestFlattenRules(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		columns []string
		rows    [][]string
	}{
		{
			name:    "document order within record then input order",
			doc:     `[{"z":1,"a":{"y":2,"b":3}},{"c":4,"z":5}]`,
			columns: []string{"z", "a.y", "a.b", "c"},
			rows:    [][]string{{"1", "2", "3", ""}, {"5", "", "", "4"}},
		},
		{
			name:    "arrays are leaves rendered as compact json",
			doc:     `[{"tags":["a", "b"], "nested":[{"k": 1}]}]`,
			columns: []string{"tags", "nested"},
			rows:    [][]string{{`["a","b"]`, `[{"k":1}]`}},
		},
		{
			name:    "null renders empty",
			doc:     `[{"a":null,"b":true,"c":false}]`,
			columns: []string{"a", "b", "c"},
			rows:    [][]string{{"", "true", "false"}},
		},
		{
			name:    "empty nested object contributes no column",
			doc:     `[{"a":{},"b":1}]`,
			columns: []string{"b"},
			rows:    [][]string{{"1"}},
		},
		{
			name:    "duplicate path last one wins",
			doc:     `[{"a":{"b":1},"a.b":2}]`,
			columns: []string{"a.b"},
			rows:    [][]string{{"2"}},
		},
		{
			name:    "empty key still joins its children",
			doc:     `[{"":{"b":1},"b":2}]`,
			columns: []string{".b", "b"},
			rows:    [][]string{{"1", "2"}},
		},
		{
			name:    "number literal kept as written",
			doc:     `[{"n":1.50,"e":1e3,"big":12345678901234567890}]`,
			columns: []string{"n", "e", "big"},
			rows:    [][]string{{"1.50", "1e3", "12345678901234567890"}},
		},
		{
			name:    "strings are not escaped against the delimiter",
			doc:     `[{"s":"x, y"}]`,
			columns: []string{"s"},
			rows:    [][]string{{"x, y"}},
		},
		{
			name:    "deep nesting",
			doc:     `{"a":{"b":{"c":{"d":"leaf"}}}}`,
			columns: []string{"a.b.c.d"},
			rows:    [][]string{{"leaf"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := Flatten(mustRecords(t, tt.doc))
			assert.Equal(t, tt.columns, table.Columns)
			assert.Equal(t, tt.rows, table.Rows)
		})
	}
}

func TestFlattenEmpty(t *testing.T) {
	table := Flatten(nil)
	assert.Empty(t, table.Columns)
	assert.Empty(t, table.Rows)
	assert.Equal(t, "", render(t, table, DefaultDelimiter))

	// Records without leaves still produce rows, but nothing is rendered.
	table = Flatten(mustRecords(t, `[{},{}]`))
	assert.Empty(t, table.Columns)
	assert.Len(t, table.Rows, 2)
	assert.Equal(t, "", render(t, table, DefaultDelimiter))
}

func TestFlattenDeterministic(t *testing.T) {
	doc := `[{"b":1,"a":{"x":[1,2]}},{"c":"q","a":{"y":null}},{"b":2}]`
	first := render(t, Flatten(mustRecords(t, doc)), "|")
	for range 10 {
		assert.Equal(t, first, render(t, Flatten(mustRecords(t, doc)), "|"))
	}
	assert.Equal(t, "b|a.x|c|a.y\n1|[1,2]||\n||q|\n2|||\n", first)
}

func TestTableString(t *testing.T) {
	table := Flatten(mustRecords(t, `[{"a":1,"b":2}]`))
	assert.Equal(t, "a, b\n1, 2", table.String())
}

func TestParse(t *testing.T) {
	t.Run("keeps key order", func(t *testing.T) {
		v, err := Parse([]byte(`{"z":1,"a":2,"m":3}`))
		require.NoError(t, err)
		obj, ok := v.(Object)
		require.True(t, ok)
		var keys []string
		for _, f := range obj.Fields {
			keys = append(keys, f.Key)
		}
		assert.Equal(t, []string{"z", "a", "m"}, keys)
	})

	t.Run("scalars", func(t *testing.T) {
		v, err := Parse([]byte(`[1, "s", true, null]`))
		require.NoError(t, err)
		assert.Equal(t, Array{Number("1"), String("s"), Bool(true), Null}, v)
	})

	errorCases := map[string]string{
		"empty":          ``,
		"truncated":      `{"a":`,
		"trailing data":  `{} {}`,
		"trailing comma": `[1,]`,
		"bare word":      `nope`,
	}
	for name, doc := range errorCases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestRecords(t *testing.T) {
	_, err := Records(Number("1"))
	assert.ErrorIs(t, err, ErrNotRecords)

	_, err = Records(Array{Object{}, String("x")})
	assert.ErrorIs(t, err, ErrNotRecords)

	recs, err := Records(Array{})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestCompactEscaping(t *testing.T) {
	v := Array{String(`a"b`), String("<tag>"), Object{Fields: []Field{{Key: "k", Value: Null}}}}
	assert.Equal(t, `["a\"b","<tag>",{"k":null}]`, Compact(v))
}

type summaryRow struct {
	Org     string         `json:"org"`
	Count   int            `json:"count"`
	When    time.Time      `json:"when"`
	Nested  map[string]int `json:"nested"`
	Skipped *string        `json:"skipped,omitempty"`
}

func TestRecordsFromAny(t *testing.T) {
	rows := []summaryRow{
		{Org: "acme", Count: 3, When: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), Nested: map[string]int{"z": 1, "a": 2}},
	}
	recs, err := RecordsFromAny(rows)
	require.NoError(t, err)
	table := Flatten(recs)
	assert.Equal(t, []string{"org", "count", "when", "nested.a", "nested.z"}, table.Columns)
	assert.Equal(t, [][]string{{"acme", "3", "2024-01-02T03:04:05Z", "2", "1"}}, table.Rows)

	_, err = RecordsFromAny([]int{1})
	assert.ErrorIs(t, err, ErrNotRecords)
}

func TestObjectMarshalJSON(t *testing.T) {
	v, err := Parse([]byte(`{"z":1,"a":[true,null],"m":{"y":"x"}}`))
	require.NoError(t, err)

	data, err := json.Marshal([]any{v})
	require.NoError(t, err)
	assert.Equal(t, `[{"z":1,"a":[true,null],"m":{"y":"x"}}]`, string(data))

	// Objects mixed with structs keep their own field order.
	recs, err := RecordsFromAny([]any{v, summaryRow{Org: "acme"}})
	require.NoError(t, err)
	assert.Equal(t, "z", Flatten(recs).Columns[0])
}

func FuzzParseFlatten(f *testing.F) {
	f.Add(`[{"a":1},{"b":{"c":2}}]`)
	f.Add(`{"a":[1,{"b":null}],"c":"x"}`)
	f.Add(`[]`)
	f.Add(`{"":{"":""}}`)
	f.Fuzz(func(t *testing.T, doc string) {
		v, err := Parse([]byte(doc))
		if err != nil {
			return
		}
		recs, err := Records(v)
		if err != nil {
			return
		}
		table := Flatten(recs)
		assert.Len(t, table.Rows, len(recs))
		for _, row := range table.Rows {
			assert.Len(t, row, len(table.Columns))
		}
		var a, b strings.Builder
		require.NoError(t, table.Render(&a, ","))
		require.NoError(t, Flatten(recs).Render(&b, ","))
		assert.Equal(t, a.String(), b.String())

		// The compact encoding parses back to the same value.
		again, err := Parse([]byte(Compact(v)))
		require.NoError(t, err)
		assert.Equal(t, v, again)
	})
}
