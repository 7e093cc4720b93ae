package model

// Table is a header plus string rows, the shape of the raw and processed CSV
// exports.
type Table struct {
	Header []string
	Rows   [][]string
}

// Index returns the position of col in the header or -1.
func (t *Table) Index(col string) int {
	for i, h := range t.Header {
		if h == col {
			return i
		}
	}
	return -1
}

// Project keeps cols in the given order. Unknown columns are skipped.
func (t *Table) Project(cols []string) *Table {
	idx := make([]int, 0, len(cols))
	header := make([]string, 0, len(cols))
	for _, c := range cols {
		if i := t.Index(c); i >= 0 {
			idx = append(idx, i)
			header = append(header, c)
		}
	}
	out := &Table{Header: header, Rows: make([][]string, 0, len(t.Rows))}
	for _, row := range t.Rows {
		r := make([]string, len(idx))
		for j, i := range idx {
			if i < len(row) {
				r[j] = row[i]
			}
		}
		out.Rows = append(out.Rows, r)
	}
	return out
}

// Records returns the rows as header-keyed maps, the JSON shape the map view
// consumes.
func (t *Table) Records() []map[string]string {
	out := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		m := make(map[string]string, len(t.Header))
		for i, h := range t.Header {
			if i < len(row) {
				m[h] = row[i]
			}
		}
		out = append(out, m)
	}
	return out
}
