package aggregate

import (
	"fmt"
	"math"
	"sort"

	"github.com/dd0wney/cluso-gridprep/pkg/logging"
	"github.com/dd0wney/cluso-gridprep/pkg/network"
)

// RegionAggOptions configures one regional aggregation pass. Two-tier
// aggregation (province then group) is the same pass invoked twice with a
// different RegionAttr, never special-cased logic.
type RegionAggOptions struct {
	// RegionAttr is the bus column holding this tier's region
	// classification, e.g. "province" or "group".
	RegionAttr string
	// Standardization maps raw classification values to canonical short
	// region names.
	Standardization NameStandardization
	// DemandShares holds each region's share of the national load. When
	// non-empty, loads are rebuilt as one per region carrying
	// national_total[t] * share. Shares are not renormalized; a sum off
	// one beyond ShareTolerance is logged, not rejected.
	DemandShares map[string]float64
	// ShareTolerance is the |sum-1| threshold for the warning. Zero means
	// the default of 0.01.
	ShareTolerance float64
	// LoadCarrier optionally stamps a carrier on rebuilt regional loads.
	LoadCarrier string

	// AggregateGenerators enables carrier+region generator collapsing
	// after remapping. When false generators keep their regional bus
	// reference, unaggregated.
	AggregateGenerators bool
	GeneratorOpts       GeneratorAggOptions

	LineOpts BranchAggOptions
	LinkOpts BranchAggOptions
}

// AggregateByRegion runs one full aggregation pass: build the bus->region
// mapping, remap component references, materialize one bus per region,
// aggregate branches (and optionally generators), and redistribute loads
// by demand share.
//
// The input network is never mutated. On any failure the error carries
// the offending key and no partially transformed network escapes.
func AggregateByRegion(n *network.Network, opts RegionAggOptions, log logging.Logger) (*network.Network, error) {
	const op = "AggregateByRegion"

	mapping, err := BuildRegionMapping(n, opts.RegionAttr, opts.Standardization)
	if err != nil {
		return nil, err
	}

	out := n.Copy()

	// Representative original bus per region, decided before the original
	// buses are replaced: the member bus with the largest attached
	// generator capacity, lexicographic fallback when no generator
	// references the region.
	reps := representativeBuses(out, mapping)

	if err := remapReferences(out, mapping); err != nil {
		return nil, err
	}

	materializeRegionalBuses(out, mapping, reps, opts.RegionAttr)

	if out.Lines.Len() > 0 {
		out, err = AggregateBranches(out, "lines", opts.LineOpts, log)
		if err != nil {
			return nil, err
		}
	}
	if out.Links.Len() > 0 {
		out, err = AggregateBranches(out, "links", opts.LinkOpts, log)
		if err != nil {
			return nil, err
		}
	}

	if opts.AggregateGenerators {
		genOpts := opts.GeneratorOpts
		genOpts.ByRegion = true
		if genOpts.RegionAttr == "" {
			genOpts.RegionAttr = opts.RegionAttr
		}
		out, err = AggregateGeneratorsByCarrierRegion(out, genOpts, log)
		if err != nil {
			return nil, err
		}
	}

	if len(opts.DemandShares) > 0 {
		if err := redistributeLoads(out, mapping, opts, log); err != nil {
			return nil, err
		}
	}

	log.Info("regional aggregation complete",
		logging.Component("region_agg"),
		logging.String("region_column", opts.RegionAttr),
		logging.Int("regions", len(mapping.Regions())),
		logging.Int("buses", out.Buses.Len()))

	if err := out.CheckConsistency(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// representativeBuses ranks each region's member buses by total attached
// generator capacity.
func representativeBuses(n *network.Network, mapping *RegionMapping) map[string]string {
	capacityByBus := make(map[string]float64)
	for _, name := range n.Generators.Names() {
		row, _ := n.Generators.Get(name)
		if pNom, ok := row.Float(network.AttrPNom); ok && !math.IsNaN(pNom) {
			capacityByBus[row.String(network.AttrBus)] += pNom
		}
	}

	reps := make(map[string]string)
	best := make(map[string]float64)
	for _, bus := range mapping.Buses() {
		region, _ := mapping.Region(bus)
		capacity := capacityByBus[bus]
		cur, seen := reps[region]
		switch {
		case !seen:
			reps[region] = bus
			best[region] = capacity
		case capacity > best[region]:
			reps[region] = bus
			best[region] = capacity
		case capacity == best[region] && bus < cur:
			// Sorted iteration makes this unreachable, kept for clarity
			// of the tie-break contract.
			reps[region] = bus
		}
	}
	return reps
}

// remapReferences rewrites bus references on all components through the
// region mapping. A reference outside the mapping means the component
// points at a bus the network does not know.
func remapReferences(n *network.Network, mapping *RegionMapping) error {
	const op = "RemapReferences"

	for _, c := range []struct {
		name  string
		table *network.ComponentTable
	}{
		{"generators", n.Generators},
		{"storage_units", n.StorageUnits},
		{"loads", n.Loads},
	} {
		for _, name := range c.table.Names() {
			row, _ := c.table.Get(name)
			region, ok := mapping.Region(row.String(network.AttrBus))
			if !ok {
				return network.NewAggregationError(op, c.name, name,
					fmt.Errorf("%w: bus %q not in region mapping", network.ErrConfiguration, row.String(network.AttrBus)))
			}
			row[network.AttrBus] = network.StringValue(region)
		}
	}

	for _, c := range []struct {
		name  string
		table *network.ComponentTable
	}{
		{"lines", n.Lines},
		{"links", n.Links},
	} {
		for _, name := range c.table.Names() {
			row, _ := c.table.Get(name)
			for _, attr := range []string{network.AttrBus0, network.AttrBus1} {
				region, ok := mapping.Region(row.String(attr))
				if !ok {
					return network.NewAggregationError(op, c.name, name,
						fmt.Errorf("%w: %s %q not in region mapping", network.ErrConfiguration, attr, row.String(attr)))
				}
				row[attr] = network.StringValue(region)
			}
		}
	}
	return nil
}

// materializeRegionalBuses replaces all original buses with one bus per
// region, copying coordinates and metadata from the region's
// representative original bus.
func materializeRegionalBuses(n *network.Network, mapping *RegionMapping, reps map[string]string, regionAttr string) {
	regionRows := make(map[string]network.Row)
	for _, region := range mapping.Regions() {
		repRow, ok := n.Buses.Get(reps[region])
		var row network.Row
		if ok {
			row = repRow.Clone()
		} else {
			row = network.Row{}
		}
		// The tier's own classification collapses to the region name;
		// coarser-tier columns survive from the representative for the
		// next pass.
		row[regionAttr] = network.StringValue(region)
		regionRows[region] = row
	}

	for _, name := range n.Buses.Names() {
		n.Buses.Remove(name)
		n.BusesT.RemoveComponent(name)
	}
	for _, region := range mapping.Regions() {
		n.Buses.Set(region, regionRows[region])
	}
}

// redistributeLoads rebuilds loads as one per region: the national total
// load series scaled by each region's demand share.
func redistributeLoads(n *network.Network, mapping *RegionMapping, opts RegionAggOptions, log logging.Logger) error {
	const op = "RedistributeLoads"

	tolerance := opts.ShareTolerance
	if tolerance == 0 {
		tolerance = 0.01
	}
	var shareSum float64
	for _, share := range opts.DemandShares {
		shareSum += share
	}
	if math.Abs(shareSum-1) > tolerance {
		log.Warn("regional demand shares do not sum to one",
			logging.Component("region_agg"),
			logging.Float64("share_sum", shareSum))
	}

	// National temporal pattern: sum across all existing load columns.
	var pattern []float64
	if series, ok := n.LoadsT[network.AttrPSet]; ok && series.Len() > 0 {
		pattern = make([]float64, len(n.Snapshots))
		for _, name := range series.Names() {
			col, _ := series.Get(name)
			for i, v := range col {
				if !math.IsNaN(v) {
					pattern[i] += v
				}
			}
		}
	}
	var staticTotal float64
	for _, name := range n.Loads.Names() {
		row, _ := n.Loads.Get(name)
		if v, ok := row.Float(network.AttrPSet); ok && !math.IsNaN(v) {
			staticTotal += v
		}
	}

	for _, name := range n.Loads.Names() {
		n.Loads.Remove(name)
		n.LoadsT.RemoveComponent(name)
	}

	regions := make([]string, 0, len(opts.DemandShares))
	for region := range opts.DemandShares {
		regions = append(regions, region)
	}
	sort.Strings(regions)

	known := make(map[string]struct{})
	for _, region := range mapping.Regions() {
		known[region] = struct{}{}
	}

	for _, region := range regions {
		share := opts.DemandShares[region]
		if share <= 0 {
			continue
		}
		if _, ok := known[region]; !ok {
			log.Warn("demand share for region absent from network, skipping",
				logging.Component("region_agg"),
				logging.String("region", region))
			continue
		}

		loadName := fmt.Sprintf("load_%s", region)
		row := network.NewLoad(region)
		if opts.LoadCarrier != "" {
			row[network.AttrCarrier] = network.StringValue(opts.LoadCarrier)
		}
		row[network.AttrPSet] = network.FloatValue(staticTotal * share)
		if err := n.Loads.Add(loadName, row); err != nil {
			return err
		}

		if pattern != nil {
			col := make([]float64, len(pattern))
			for i, v := range pattern {
				col[i] = v * share
			}
			n.LoadsT.Ensure(network.AttrPSet).Set(loadName, col)
		}
	}
	return nil
}
