package network

import (
	"sort"
)

// Row is one component's attribute map (attribute name -> typed value).
// The component name is held by the owning table, not the row.
type Row map[string]Value

// Clone returns a deep copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Float returns the numeric value of an attribute and whether it was
// present and numeric. Missing and non-numeric both report false.
func (r Row) Float(attr string) (float64, bool) {
	v, ok := r[attr]
	if !ok {
		return 0, false
	}
	f, err := v.AsFloat()
	if err != nil {
		return 0, false
	}
	return f, true
}

// String returns the string value of an attribute, or "" if absent.
func (r Row) String(attr string) string {
	v, ok := r[attr]
	if !ok {
		return ""
	}
	return v.AsString()
}

// Attributes returns the row's attribute names in sorted order.
func (r Row) Attributes() []string {
	attrs := make([]string, 0, len(r))
	for k := range r {
		attrs = append(attrs, k)
	}
	sort.Strings(attrs)
	return attrs
}

// ComponentTable is an ordered set of named component rows. Iteration is
// always by sorted name so repeated runs over the same input produce
// byte-identical output.
type ComponentTable struct {
	rows map[string]Row
}

// NewComponentTable creates an empty component table.
func NewComponentTable() *ComponentTable {
	return &ComponentTable{rows: make(map[string]Row)}
}

// Len returns the number of components in the table.
func (t *ComponentTable) Len() int {
	return len(t.rows)
}

// Names returns all component names in sorted order.
func (t *ComponentTable) Names() []string {
	names := make([]string, 0, len(t.rows))
	for name := range t.rows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a component with the given name exists.
func (t *ComponentTable) Has(name string) bool {
	_, ok := t.rows[name]
	return ok
}

// Get returns the row for a component name.
func (t *ComponentTable) Get(name string) (Row, bool) {
	row, ok := t.rows[name]
	return row, ok
}

// Add inserts a new component. Inserting over an existing name fails with
// ErrNameCollision: synthesized aggregate names must never shadow
// surviving originals.
func (t *ComponentTable) Add(name string, row Row) error {
	if _, ok := t.rows[name]; ok {
		return NewAggregationError("Add", "component", name, ErrNameCollision)
	}
	t.rows[name] = row
	return nil
}

// Set inserts or replaces a component row.
func (t *ComponentTable) Set(name string, row Row) {
	t.rows[name] = row
}

// Remove deletes a component by name. Removing an absent name is a no-op,
// matching batch-removal semantics where groups were already dissolved.
func (t *ComponentTable) Remove(name string) {
	delete(t.rows, name)
}

// SetAttr sets one attribute on one component.
func (t *ComponentTable) SetAttr(name, attr string, v Value) error {
	row, ok := t.rows[name]
	if !ok {
		return NewAggregationError("SetAttr", "component", name, ErrComponentNotFound)
	}
	row[attr] = v
	return nil
}

// Columns returns the union of attribute names across all rows, sorted.
// Imported tables are ragged: optional columns like cc_group or province
// exist only on rows that carry them.
func (t *ComponentTable) Columns() []string {
	seen := make(map[string]struct{})
	for _, row := range t.rows {
		for attr := range row {
			seen[attr] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for attr := range seen {
		cols = append(cols, attr)
	}
	sort.Strings(cols)
	return cols
}

// Clone returns a deep copy of the table.
func (t *ComponentTable) Clone() *ComponentTable {
	out := NewComponentTable()
	for name, row := range t.rows {
		out.rows[name] = row.Clone()
	}
	return out
}

// Filter returns the sorted names of components for which keep returns true.
func (t *ComponentTable) Filter(keep func(name string, row Row) bool) []string {
	var names []string
	for _, name := range t.Names() {
		if keep(name, t.rows[name]) {
			names = append(names, name)
		}
	}
	return names
}
