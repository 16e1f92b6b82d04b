package aggregate

import (
	"fmt"
	"sort"

	"github.com/dd0wney/cluso-gridprep/pkg/network"
)

// NameStandardization maps raw region-classification values (official or
// short spellings) to canonical short region names. Both spellings of a
// region map to the same short name.
type NameStandardization map[string]string

// NewNameStandardization builds the lookup from official->short pairs,
// registering the short names as identity entries so already-standard
// values pass through.
func NewNameStandardization(officialToShort map[string]string) NameStandardization {
	m := make(NameStandardization, 2*len(officialToShort))
	for official, short := range officialToShort {
		m[official] = short
		m[short] = short
	}
	return m
}

// RegionMapping is the pure bus->region function for one aggregation
// pass, computed once and never mutated afterwards.
type RegionMapping struct {
	byBus   map[string]string
	regions []string
}

// BuildRegionMapping resolves every bus's region-classification attribute
// through the standardization table. An unmapped bus is a fatal
// configuration error: silently defaulting to the raw value risks
// inconsistent grouping from minor spelling variants.
func BuildRegionMapping(n *network.Network, regionAttr string, std NameStandardization) (*RegionMapping, error) {
	const op = "BuildRegionMapping"

	if regionAttr == "" {
		return nil, network.NewAggregationError(op, "config", "region_column", network.ErrConfiguration)
	}

	byBus := make(map[string]string, n.Buses.Len())
	seen := make(map[string]struct{})
	var regions []string

	for _, name := range n.Buses.Names() {
		row, _ := n.Buses.Get(name)
		raw := row.String(regionAttr)
		if raw == "" {
			return nil, network.NewAggregationError(op, "bus", name,
				fmt.Errorf("%w: missing %q value", network.ErrConfiguration, regionAttr))
		}
		region, ok := std[raw]
		if !ok {
			return nil, network.NewAggregationError(op, "bus", name,
				fmt.Errorf("%w: region %q has no standardization entry", network.ErrConfiguration, raw))
		}
		byBus[name] = region
		if _, dup := seen[region]; !dup {
			seen[region] = struct{}{}
			regions = append(regions, region)
		}
	}
	sort.Strings(regions)

	return &RegionMapping{byBus: byBus, regions: regions}, nil
}

// Region returns the region for an original bus name.
func (m *RegionMapping) Region(bus string) (string, bool) {
	region, ok := m.byBus[bus]
	return region, ok
}

// Regions returns the distinct region names, sorted.
func (m *RegionMapping) Regions() []string {
	out := make([]string, len(m.regions))
	copy(out, m.regions)
	return out
}

// Buses returns the original bus names in the mapping, sorted.
func (m *RegionMapping) Buses() []string {
	buses := make([]string, 0, len(m.byBus))
	for bus := range m.byBus {
		buses = append(buses, bus)
	}
	sort.Strings(buses)
	return buses
}
