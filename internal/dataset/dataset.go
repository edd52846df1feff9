// Package dataset holds the in-memory rectangular table the rest of the
// tool operates on, together with a parallel per-cell status matrix.
package dataset

import (
	"fmt"
	"sort"
	"strings"
)

// Kind is the primitive type of a column as reported by the import layer.
type Kind string

const (
	KindString Kind = "string"
	KindNumber Kind = "number"
	// KindDate is a date kept in its original string form.
	KindDate Kind = "date"
)

// Column is a named, typed dataset column.
type Column struct {
	Name string
	Kind Kind
}

// Dataset is an ordered, rectangular table of string cells plus a sparse
// status matrix. Row order is the original import order and is preserved
// across corrections. A Dataset is not safe for concurrent use; callers
// serialize access (see the session package).
type Dataset struct {
	cols     []Column
	colIndex map[string]int
	rows     [][]string
	status   map[CellRef]CellState
}

// New creates an empty dataset with the given columns.
func New(cols []Column) *Dataset {
	idx := make(map[string]int, len(cols))
	for i, c := range cols {
		idx[c.Name] = i
	}
	return &Dataset{
		cols:     append([]Column(nil), cols...),
		colIndex: idx,
		status:   make(map[CellRef]CellState),
	}
}

// Columns returns the column definitions in order.
func (d *Dataset) Columns() []Column { return append([]Column(nil), d.cols...) }

// ColumnIndex resolves a column name to its index.
func (d *Dataset) ColumnIndex(name string) (int, bool) {
	i, ok := d.colIndex[name]
	return i, ok
}

// ColumnName returns the name of column c, or "" if out of range.
func (d *Dataset) ColumnName(c int) string {
	if c < 0 || c >= len(d.cols) {
		return ""
	}
	return d.cols[c].Name
}

// NumRows reports the current row count.
func (d *Dataset) NumRows() int { return len(d.rows) }

// NumCols reports the current column count.
func (d *Dataset) NumCols() int { return len(d.cols) }

// AppendRow adds a row at the end of the table. Short rows are padded with
// empty cells, long rows truncated, so the table stays rectangular.
func (d *Dataset) AppendRow(values []string) {
	row := make([]string, len(d.cols))
	copy(row, values)
	d.rows = append(d.rows, row)
}

// RemoveRow deletes row r and shifts the status matrix so no entry is left
// referencing a moved or removed row.
func (d *Dataset) RemoveRow(r int) error {
	if r < 0 || r >= len(d.rows) {
		return fmt.Errorf("remove row: index %d out of range [0,%d)", r, len(d.rows))
	}
	d.rows = append(d.rows[:r], d.rows[r+1:]...)
	shifted := make(map[CellRef]CellState, len(d.status))
	for ref, st := range d.status {
		switch {
		case ref.Row == r:
			// dropped with the row
		case ref.Row > r:
			shifted[CellRef{Row: ref.Row - 1, Col: ref.Col}] = st
		default:
			shifted[ref] = st
		}
	}
	d.status = shifted
	return nil
}

// InRange reports whether ref addresses an existing cell.
func (d *Dataset) InRange(ref CellRef) bool {
	return ref.Row >= 0 && ref.Row < len(d.rows) && ref.Col >= 0 && ref.Col < len(d.cols)
}

// Value returns the cell value at (r, c). Out-of-range reads return "".
func (d *Dataset) Value(r, c int) string {
	if !d.InRange(CellRef{Row: r, Col: c}) {
		return ""
	}
	return d.rows[r][c]
}

// SetValue overwrites the cell value at (r, c). The cell's status entry is
// cleared: a changed value must be re-validated, status is never sticky
// across an external edit.
func (d *Dataset) SetValue(r, c int, v string) error {
	ref := CellRef{Row: r, Col: c}
	if !d.InRange(ref) {
		return fmt.Errorf("set value: cell %s out of range", ref)
	}
	d.rows[r][c] = v
	delete(d.status, ref)
	return nil
}

// SetStatus records a status for the cell, preserving any retained original
// value on the entry.
func (d *Dataset) SetStatus(r, c int, s Status) error {
	ref := CellRef{Row: r, Col: c}
	if !d.InRange(ref) {
		return fmt.Errorf("set status: cell %s out of range", ref)
	}
	st := d.status[ref]
	st.Status = s
	d.status[ref] = st
	return nil
}

// ApplyCorrection rewrites the cell value to corrected, marks the cell
// CORRECTED and retains the pre-correction value. When the cell was already
// corrected earlier in the session the first original is kept, so the audit
// trail always points at the value that came in from the import.
func (d *Dataset) ApplyCorrection(r, c int, corrected string) error {
	ref := CellRef{Row: r, Col: c}
	if !d.InRange(ref) {
		return fmt.Errorf("apply correction: cell %s out of range", ref)
	}
	st := d.status[ref]
	if st.Original == "" {
		st.Original = d.rows[r][c]
	}
	st.Status = StatusCorrected
	d.status[ref] = st
	d.rows[r][c] = corrected
	return nil
}

// CellView is the presentation tuple for one cell.
type CellView struct {
	Value    string
	Status   Status
	Original string // non-empty only when the cell has been corrected
}

// Cell returns the presentation view of the cell at (r, c).
func (d *Dataset) Cell(r, c int) CellView {
	st := d.status[CellRef{Row: r, Col: c}]
	return CellView{Value: d.Value(r, c), Status: st.Status, Original: st.Original}
}

// State returns the raw status-matrix entry for ref.
func (d *Dataset) State(ref CellRef) CellState { return d.status[ref] }

// StatusRefs returns the refs of all cells carrying a status, in row-major
// order. Deterministic iteration keeps engine output reproducible.
func (d *Dataset) StatusRefs() []CellRef {
	refs := make([]CellRef, 0, len(d.status))
	for ref := range d.status {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Row != refs[j].Row {
			return refs[i].Row < refs[j].Row
		}
		return refs[i].Col < refs[j].Col
	})
	return refs
}

// Row returns a copy of row r.
func (d *Dataset) Row(r int) []string {
	if r < 0 || r >= len(d.rows) {
		return nil
	}
	return append([]string(nil), d.rows[r]...)
}

// Snapshot returns a deep copy of the dataset, status matrix included.
// The correction engine uses it to verify selection isolation in tests and
// callers may use it for undo-style comparisons.
func (d *Dataset) Snapshot() *Dataset {
	cp := New(d.cols)
	cp.rows = make([][]string, len(d.rows))
	for i, row := range d.rows {
		cp.rows[i] = append([]string(nil), row...)
	}
	for ref, st := range d.status {
		cp.status[ref] = st
	}
	return cp
}

func (d *Dataset) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "dataset %dx%d", len(d.rows), len(d.cols))
	return b.String()
}
