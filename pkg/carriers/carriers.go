// Package carriers standardizes energy-carrier naming across all network
// components and applies carrier-keyed attribute tables.
package carriers

import (
	"sort"

	"github.com/dd0wney/cluso-gridprep/pkg/logging"
	"github.com/dd0wney/cluso-gridprep/pkg/network"
)

// Standardize rewrites every component's carrier through the mapping
// (old name -> standardized name) and rebuilds the carrier registry from
// the carriers left in use. Carriers without a mapping entry pass through
// unchanged: the mapping renames, it does not filter.
//
// The input network is not mutated; the transformed copy is returned.
func Standardize(n *network.Network, mapping map[string]string, log logging.Logger) (*network.Network, error) {
	out := n.Copy()
	if len(mapping) == 0 {
		log.Warn("no carrier mapping provided, skipping standardization",
			logging.Component("carriers"))
		return out, nil
	}

	renamed := 0
	for _, c := range out.Collections() {
		for _, name := range c.Static.Names() {
			row, _ := c.Static.Get(name)
			old := row.String(network.AttrCarrier)
			if old == "" {
				continue
			}
			if repl, ok := mapping[old]; ok && repl != old {
				row[network.AttrCarrier] = network.StringValue(repl)
				renamed++
			}
		}
	}

	out.RebuildCarriers()
	log.Info("standardized carrier names",
		logging.Component("carriers"),
		logging.Int("renamed", renamed),
		logging.Int("carriers", out.Carriers.Len()))
	return out, nil
}

// AttributeTable maps carrier names to attribute values applied to every
// component of that carrier. The special carrier "default" applies first
// to all components; carrier-specific entries override it.
type AttributeTable map[string]map[string]float64

// ApplyGeneratorAttributes stamps carrier-keyed operational attributes
// onto the generator table. Attributes with an existing time-series
// column are skipped so static defaults never shadow temporal data.
func ApplyGeneratorAttributes(n *network.Network, table AttributeTable, log logging.Logger) (*network.Network, error) {
	out := n.Copy()
	applyAttributeTable(out.Generators, out.GeneratorsT, table)
	log.Info("applied generator attributes",
		logging.Component("carriers"),
		logging.Int("carriers", len(table)))
	return out, nil
}

// ApplyStorageAttributes stamps carrier-keyed operational attributes onto
// the storage unit table.
func ApplyStorageAttributes(n *network.Network, table AttributeTable, log logging.Logger) (*network.Network, error) {
	out := n.Copy()
	applyAttributeTable(out.StorageUnits, out.StorageUnitsT, table)
	log.Info("applied storage unit attributes",
		logging.Component("carriers"),
		logging.Int("carriers", len(table)))
	return out, nil
}

func applyAttributeTable(static *network.ComponentTable, series network.SeriesGroup, table AttributeTable) {
	apply := func(names []string, attrs map[string]float64) {
		for attr, value := range attrs {
			if s, ok := series[attr]; ok && s.Len() > 0 {
				continue
			}
			for _, name := range names {
				row, _ := static.Get(name)
				row[attr] = network.FloatValue(value)
			}
		}
	}

	if defaults, ok := table["default"]; ok {
		apply(static.Names(), defaults)
	}
	carriers := make([]string, 0, len(table))
	for carrier := range table {
		if carrier != "default" {
			carriers = append(carriers, carrier)
		}
	}
	sort.Strings(carriers)
	for _, carrier := range carriers {
		names := static.Filter(func(_ string, row network.Row) bool {
			return row.String(network.AttrCarrier) == carrier
		})
		if len(names) > 0 {
			apply(names, table[carrier])
		}
	}
}

// ScaleLoadsToTarget scales every load time series proportionally so the
// energy over the whole horizon matches the target total. A non-positive
// target is a no-op.
func ScaleLoadsToTarget(n *network.Network, target float64, log logging.Logger) (*network.Network, error) {
	out := n.Copy()
	if target <= 0 {
		return out, nil
	}

	series, ok := out.LoadsT[network.AttrPSet]
	if !ok || series.Len() == 0 {
		log.Warn("no load time series to scale", logging.Component("carriers"))
		return out, nil
	}

	var current float64
	for _, name := range series.Names() {
		col, _ := series.Get(name)
		for _, v := range col {
			current += v
		}
	}
	if current == 0 {
		log.Warn("current total load is zero, cannot scale", logging.Component("carriers"))
		return out, nil
	}

	factor := target / current
	for _, name := range series.Names() {
		col, _ := series.Get(name)
		scaled := make([]float64, len(col))
		for i, v := range col {
			scaled[i] = v * factor
		}
		series.Set(name, scaled)
	}

	log.Info("scaled loads to target",
		logging.Component("carriers"),
		logging.Float64("current_total", current),
		logging.Float64("target_total", target),
		logging.Float64("factor", factor))
	return out, nil
}
