// Package constraints derives absolute operational bounds for the
// optimizer from configured capacity-factor limits.
package constraints

import (
	"fmt"
	"math"
	"sort"

	"github.com/dd0wney/cluso-gridprep/pkg/logging"
	"github.com/dd0wney/cluso-gridprep/pkg/network"
)

// CapacityFactorBounds limits a generator's energy production as a
// fraction of what running at p_nom the whole horizon would yield.
type CapacityFactorBounds struct {
	MaxCF *float64
	MinCF *float64
}

// EnergyBoundsOptions configures the derivation.
type EnergyBoundsOptions struct {
	// ByCarrier maps carrier names to their default bounds.
	ByCarrier map[string]CapacityFactorBounds
	// ByGenerator maps generator names to overriding bounds. A
	// generator-specific entry wins over its carrier's.
	ByGenerator map[string]CapacityFactorBounds
}

// ApplyEnergyBounds converts capacity-factor bounds into absolute energy
// bounds over the current snapshot set and writes them onto the generator
// table:
//
//	e_sum_max = p_nom * max_cf * total_hours
//	e_sum_min = p_nom * min_cf * total_hours
//
// total_hours is the sum of snapshot weightings, so the formula stays
// correct after resampling and with a shorter trailing block.
//
// The input network is not mutated; the transformed copy is returned.
func ApplyEnergyBounds(n *network.Network, opts EnergyBoundsOptions, log logging.Logger) (*network.Network, error) {
	const op = "ApplyEnergyBounds"

	out := n.Copy()
	totalHours := out.TotalHours()
	if totalHours <= 0 {
		return nil, network.NewAggregationError(op, "snapshots", "",
			fmt.Errorf("%w: total hours is %g", network.ErrInsufficientData, totalHours))
	}

	applied := 0
	for _, name := range out.Generators.Names() {
		row, _ := out.Generators.Get(name)

		bounds, ok := opts.ByGenerator[name]
		if !ok {
			bounds, ok = opts.ByCarrier[row.String(network.AttrCarrier)]
		}
		if !ok {
			continue
		}

		pNom, has := row.Float(network.AttrPNom)
		if !has || math.IsNaN(pNom) {
			return nil, network.NewAggregationError(op, "generator", name,
				fmt.Errorf("%w: p_nom missing", network.ErrConfiguration))
		}

		if bounds.MaxCF != nil {
			row[network.AttrESumMax] = network.FloatValue(pNom * *bounds.MaxCF * totalHours)
		}
		if bounds.MinCF != nil {
			row[network.AttrESumMin] = network.FloatValue(pNom * *bounds.MinCF * totalHours)
		}
		applied++
	}

	log.Info("applied capacity factor energy bounds",
		logging.Component("energy_bounds"),
		logging.Int("generators", applied),
		logging.Float64("total_hours", totalHours),
		logging.Any("carriers", carrierList(opts.ByCarrier)))

	return out, nil
}

func carrierList(byCarrier map[string]CapacityFactorBounds) []string {
	carriers := make([]string, 0, len(byCarrier))
	for carrier := range byCarrier {
		carriers = append(carriers, carrier)
	}
	sort.Strings(carriers)
	return carriers
}
