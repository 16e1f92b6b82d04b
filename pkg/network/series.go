package network

import (
	"sort"
)

// Series is one time-varying attribute table: a column of values per
// component name, all columns sharing the network snapshot index.
type Series struct {
	cols map[string][]float64
}

// NewSeries creates an empty series table.
func NewSeries() *Series {
	return &Series{cols: make(map[string][]float64)}
}

// Names returns the component names carrying this series, sorted.
func (s *Series) Names() []string {
	names := make([]string, 0, len(s.cols))
	for name := range s.cols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of component columns.
func (s *Series) Len() int {
	return len(s.cols)
}

// Get returns the column for a component name.
func (s *Series) Get(name string) ([]float64, bool) {
	col, ok := s.cols[name]
	return col, ok
}

// Set stores a column for a component name. The column must already match
// the network snapshot index; Network.CheckConsistency enforces it.
func (s *Series) Set(name string, values []float64) {
	s.cols[name] = values
}

// Remove drops the column for a component name.
func (s *Series) Remove(name string) {
	delete(s.cols, name)
}

// Clone returns a deep copy of the series.
func (s *Series) Clone() *Series {
	out := NewSeries()
	for name, col := range s.cols {
		c := make([]float64, len(col))
		copy(c, col)
		out.cols[name] = c
	}
	return out
}

// SeriesGroup maps time-varying attribute names (p_set, p_max_pu, ...) to
// their series tables for one component collection.
type SeriesGroup map[string]*Series

// Attributes returns the attribute names in sorted order.
func (g SeriesGroup) Attributes() []string {
	attrs := make([]string, 0, len(g))
	for attr := range g {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)
	return attrs
}

// Ensure returns the series for an attribute, creating it if absent.
func (g SeriesGroup) Ensure(attr string) *Series {
	s, ok := g[attr]
	if !ok {
		s = NewSeries()
		g[attr] = s
	}
	return s
}

// RemoveComponent drops a component's columns from every attribute table.
// Called whenever a merge dissolves a component so no orphan series rows
// survive the swap.
func (g SeriesGroup) RemoveComponent(name string) {
	for _, s := range g {
		s.Remove(name)
	}
}

// Clone returns a deep copy of the group.
func (g SeriesGroup) Clone() SeriesGroup {
	out := make(SeriesGroup, len(g))
	for attr, s := range g {
		out[attr] = s.Clone()
	}
	return out
}
