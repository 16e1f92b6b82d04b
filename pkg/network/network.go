package network

import (
	"fmt"
	"time"
)

// Network is the central mutable aggregate: static component tables plus
// the time-series tables indexed by the shared snapshot sequence.
//
// Pipeline stages treat a Network as single-owner state. A stage that can
// fail midway works on a Copy and the caller swaps it in on success, so no
// partially transformed network is ever observable.
type Network struct {
	Buses        *ComponentTable
	Generators   *ComponentTable
	StorageUnits *ComponentTable
	Loads        *ComponentTable
	Lines        *ComponentTable
	Links        *ComponentTable
	Carriers     *ComponentTable

	// Snapshots is the ordered, duplicate-free temporal index shared by
	// every time-series table.
	Snapshots []time.Time

	// SnapshotWeightings holds the elapsed hours each snapshot represents.
	// Uniform hourly input is all-ones; resampling by factor W sets W per
	// block, with the trailing partial block keeping its true length.
	SnapshotWeightings []float64

	BusesT        SeriesGroup
	GeneratorsT   SeriesGroup
	StorageUnitsT SeriesGroup
	LoadsT        SeriesGroup
	LinesT        SeriesGroup
	LinksT        SeriesGroup
}

// New creates an empty network.
func New() *Network {
	return &Network{
		Buses:         NewComponentTable(),
		Generators:    NewComponentTable(),
		StorageUnits:  NewComponentTable(),
		Loads:         NewComponentTable(),
		Lines:         NewComponentTable(),
		Links:         NewComponentTable(),
		Carriers:      NewComponentTable(),
		BusesT:        make(SeriesGroup),
		GeneratorsT:   make(SeriesGroup),
		StorageUnitsT: make(SeriesGroup),
		LoadsT:        make(SeriesGroup),
		LinesT:        make(SeriesGroup),
		LinksT:        make(SeriesGroup),
	}
}

// Collection pairs one component table with its time-series tables.
type Collection struct {
	Name   string
	Static *ComponentTable
	Series SeriesGroup
}

// Collections returns the component collections in a fixed order.
func (n *Network) Collections() []Collection {
	return []Collection{
		{Name: "buses", Static: n.Buses, Series: n.BusesT},
		{Name: "generators", Static: n.Generators, Series: n.GeneratorsT},
		{Name: "storage_units", Static: n.StorageUnits, Series: n.StorageUnitsT},
		{Name: "loads", Static: n.Loads, Series: n.LoadsT},
		{Name: "lines", Static: n.Lines, Series: n.LinesT},
		{Name: "links", Static: n.Links, Series: n.LinksT},
	}
}

// Collection returns the named collection, if it exists.
func (n *Network) Collection(name string) (Collection, bool) {
	for _, c := range n.Collections() {
		if c.Name == name {
			return c, true
		}
	}
	return Collection{}, false
}

// SetSnapshots replaces the snapshot index with uniform hourly weightings.
func (n *Network) SetSnapshots(snapshots []time.Time) {
	n.Snapshots = snapshots
	n.SnapshotWeightings = make([]float64, len(snapshots))
	for i := range n.SnapshotWeightings {
		n.SnapshotWeightings[i] = 1
	}
}

// TotalHours returns the elapsed hours covered by the snapshot index,
// the sum of snapshot weightings.
func (n *Network) TotalHours() float64 {
	var total float64
	for _, w := range n.SnapshotWeightings {
		total += w
	}
	return total
}

// Copy returns a deep copy of the network.
func (n *Network) Copy() *Network {
	out := New()
	out.Buses = n.Buses.Clone()
	out.Generators = n.Generators.Clone()
	out.StorageUnits = n.StorageUnits.Clone()
	out.Loads = n.Loads.Clone()
	out.Lines = n.Lines.Clone()
	out.Links = n.Links.Clone()
	out.Carriers = n.Carriers.Clone()
	out.Snapshots = make([]time.Time, len(n.Snapshots))
	copy(out.Snapshots, n.Snapshots)
	out.SnapshotWeightings = make([]float64, len(n.SnapshotWeightings))
	copy(out.SnapshotWeightings, n.SnapshotWeightings)
	out.BusesT = n.BusesT.Clone()
	out.GeneratorsT = n.GeneratorsT.Clone()
	out.StorageUnitsT = n.StorageUnitsT.Clone()
	out.LoadsT = n.LoadsT.Clone()
	out.LinesT = n.LinesT.Clone()
	out.LinksT = n.LinksT.Clone()
	return out
}

// CheckConsistency verifies the cross-table invariants: every time-series
// column matches the snapshot index length, weightings match snapshots,
// and every single-bus component references an existing bus.
func (n *Network) CheckConsistency() error {
	if len(n.SnapshotWeightings) != len(n.Snapshots) {
		return NewAggregationError("CheckConsistency", "snapshots", "",
			fmt.Errorf("%w: %d weightings for %d snapshots",
				ErrSnapshotMismatch, len(n.SnapshotWeightings), len(n.Snapshots)))
	}
	for _, c := range n.Collections() {
		for _, attr := range c.Series.Attributes() {
			s := c.Series[attr]
			for _, name := range s.Names() {
				col, _ := s.Get(name)
				if len(col) != len(n.Snapshots) {
					return NewAggregationError("CheckConsistency", c.Name, name,
						fmt.Errorf("%w: %s has %d rows, want %d",
							ErrSnapshotMismatch, attr, len(col), len(n.Snapshots)))
				}
			}
		}
	}
	for _, c := range []struct {
		name  string
		table *ComponentTable
	}{
		{"generators", n.Generators},
		{"storage_units", n.StorageUnits},
		{"loads", n.Loads},
	} {
		for _, name := range c.table.Names() {
			row, _ := c.table.Get(name)
			bus := row.String(AttrBus)
			if bus == "" || !n.Buses.Has(bus) {
				return NewAggregationError("CheckConsistency", c.name, name,
					fmt.Errorf("%w: bus %q", ErrComponentNotFound, bus))
			}
		}
	}
	for _, c := range []struct {
		name  string
		table *ComponentTable
	}{
		{"lines", n.Lines},
		{"links", n.Links},
	} {
		for _, name := range c.table.Names() {
			row, _ := c.table.Get(name)
			for _, attr := range []string{AttrBus0, AttrBus1} {
				bus := row.String(attr)
				if bus == "" || !n.Buses.Has(bus) {
					return NewAggregationError("CheckConsistency", c.name, name,
						fmt.Errorf("%w: %s %q", ErrComponentNotFound, attr, bus))
				}
			}
		}
	}
	return nil
}

// RebuildCarriers rebuilds the carrier registry from the carriers present
// on generators, storage units, buses, and links. Registry rows that are
// no longer referenced are dropped; new carriers get an empty row.
func (n *Network) RebuildCarriers() {
	inUse := make(map[string]struct{})
	for _, table := range []*ComponentTable{n.Generators, n.StorageUnits, n.Buses, n.Links} {
		for _, name := range table.Names() {
			row, _ := table.Get(name)
			if carrier := row.String(AttrCarrier); carrier != "" {
				inUse[carrier] = struct{}{}
			}
		}
	}
	for _, name := range n.Carriers.Names() {
		if _, ok := inUse[name]; !ok {
			n.Carriers.Remove(name)
		}
	}
	for carrier := range inUse {
		if !n.Carriers.Has(carrier) {
			n.Carriers.Set(carrier, Row{})
		}
	}
}
