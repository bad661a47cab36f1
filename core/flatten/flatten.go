package flatten

import (
	"bufio"
	"io"
	"strings"
)

// DefaultDelimiter separates cells in the rendered table.
const DefaultDelimiter = ", "

// Table is a flat view of a set of records. Every row has one cell per column.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Flatten expands every record into dot-joined leaf paths. The columns are the
// union of all paths in first-seen order: document order within a record, then
// input order across records. Each record yields exactly one row rendered
// against that fixed column set, with missing paths left empty.
func Flatten(records []Object) *Table {
	t := &Table{Columns: []string{}, Rows: make([][]string, 0, len(records))}

	// Pass 1: collect the column set.
	position := make(map[string]int)
	for _, rec := range records {
		walk("", false, rec, func(path string, _ Value) {
			if _, ok := position[path]; !ok {
				position[path] = len(t.Columns)
				t.Columns = append(t.Columns, path)
			}
		})
	}

	// Pass 2: render each record against it.
	for _, rec := range records {
		row := make([]string, len(t.Columns))
		walk("", false, rec, func(path string, v Value) {
			row[position[path]] = cell(v) // duplicate paths: last one wins
		})
		t.Rows = append(t.Rows, row)
	}
	return t
}

// walk visits the leaves of obj. Nested objects are expanded and contribute
// no path of their own, so an empty nested object contributes nothing. Keys
// below the top level are always joined to their parent, even an empty one.
func walk(prefix string, nested bool, obj Object, visit func(path string, v Value)) {
	for _, f := range obj.Fields {
		path := f.Key
		if nested {
			path = prefix + "." + f.Key
		}
		if child, ok := f.Value.(Object); ok {
			walk(path, true, child, visit)
			continue
		}
		visit(path, f.Value)
	}
}

// cell renders a leaf. Null is empty and arrays are compact JSON.
func cell(v Value) string {
	switch t := v.(type) {
	case Scalar:
		return t.Text
	default:
		return Compact(v)
	}
}

// Render writes the header line then one line per row, cells joined by delim.
// Cells are written as is, without quoting. An empty table writes nothing.
func (t *Table) Render(w io.Writer, delim string) error {
	if len(t.Columns) == 0 {
		return nil
	}
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(t.Columns, delim) + "\n"); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if _, err := bw.WriteString(strings.Join(row, delim) + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// String returns the rendered table with the default delimiter and no trailing newline.
func (t *Table) String() string {
	var sb strings.Builder
	_ = t.Render(&sb, DefaultDelimiter)
	return strings.TrimSuffix(sb.String(), "\n")
}
