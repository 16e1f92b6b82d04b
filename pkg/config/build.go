package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/dd0wney/cluso-gridprep/pkg/aggregate"
	"github.com/dd0wney/cluso-gridprep/pkg/constraints"
	"github.com/dd0wney/cluso-gridprep/pkg/network"
	"github.com/dd0wney/cluso-gridprep/pkg/rules"
	"github.com/dd0wney/cluso-gridprep/pkg/temporal"
)

// parseRule converts one configured rule name into a Rule. The fixed rule
// carries its literal as "fixed:VALUE"; a numeric literal becomes a float
// value, anything else a string.
func parseRule(name string) (rules.Rule, error) {
	if lit, ok := strings.CutPrefix(name, "fixed:"); ok {
		if f, err := strconv.ParseFloat(lit, 64); err == nil {
			return rules.Rule{Kind: rules.KindFixed, Fixed: network.FloatValue(f)}, nil
		}
		return rules.Rule{Kind: rules.KindFixed, Fixed: network.StringValue(lit)}, nil
	}
	kind, err := rules.ParseKind(name)
	if err != nil {
		return rules.Rule{}, err
	}
	return rules.Rule{Kind: kind}, nil
}

// buildRuleSet converts an attribute->rule-name table into a RuleSet.
// The "others" key configures the default rule; absent, def applies.
func buildRuleSet(table map[string]string, def rules.Rule) (*rules.RuleSet, error) {
	rs := rules.NewRuleSet(def)
	for attr, name := range table {
		rule, err := parseRule(name)
		if err != nil {
			return nil, err
		}
		if attr == "others" {
			rs.Default = rule
			continue
		}
		rs.Rules[attr] = rule
	}
	return rs, nil
}

func buildSeriesKinds(table map[string]string) (map[string]rules.Kind, error) {
	out := make(map[string]rules.Kind, len(table))
	for attr, name := range table {
		kind, err := rules.ParseSeriesKind(name)
		if err != nil {
			return nil, err
		}
		out[attr] = kind
	}
	return out, nil
}

func checkRuleNames(table map[string]string) error {
	for _, name := range table {
		if _, err := parseRule(name); err != nil {
			return err
		}
	}
	return nil
}

func checkSeriesRuleNames(table map[string]string) error {
	for _, name := range table {
		if _, err := rules.ParseSeriesKind(name); err != nil {
			return err
		}
	}
	return nil
}

// CCMergeOptions builds the combined-cycle merge configuration. The
// default rule for unlisted attributes is dominant_unit, and cc_group
// always preserves the group key.
func (c *Config) CCMergeOptions() (aggregate.CCMergeOptions, error) {
	rs, err := buildRuleSet(c.CCMergeRules, rules.Rule{Kind: rules.KindDominant})
	if err != nil {
		return aggregate.CCMergeOptions{}, err
	}
	if _, ok := rs.Rules[network.AttrCCGroup]; !ok {
		rs.Rules[network.AttrCCGroup] = rules.Rule{Kind: rules.KindPreserveKey}
	}
	return aggregate.CCMergeOptions{Rules: rs}, nil
}

// GeneratorAggOptions builds the carrier+region generator aggregation
// configuration shared by all tiers.
func (c *Config) GeneratorAggOptions() (aggregate.GeneratorAggOptions, error) {
	rs, err := buildRuleSet(c.RegionalAggregation.GeneratorRules, rules.Rule{Kind: rules.KindSum})
	if err != nil {
		return aggregate.GeneratorAggOptions{}, err
	}
	if _, ok := rs.Rules[network.AttrCarrier]; !ok {
		rs.Rules[network.AttrCarrier] = rules.Rule{Kind: rules.KindPreserveKey}
	}
	seriesKinds, err := buildSeriesKinds(c.RegionalAggregation.GeneratorSeriesRules)
	if err != nil {
		return aggregate.GeneratorAggOptions{}, err
	}
	return aggregate.GeneratorAggOptions{
		Rules:       rs,
		SeriesRules: seriesKinds,
	}, nil
}

func (c *Config) branchOptions(br BranchRules, capacityAttr string, defaults *rules.RuleSet) (aggregate.BranchAggOptions, error) {
	rs := defaults
	if len(br.Rules) > 0 {
		var err error
		rs, err = buildRuleSet(br.Rules, rules.Rule{Kind: rules.KindDominant})
		if err != nil {
			return aggregate.BranchAggOptions{}, err
		}
	}
	removeSelfLoops := true
	if br.RemoveSelfLoops != nil {
		removeSelfLoops = *br.RemoveSelfLoops
	}
	return aggregate.BranchAggOptions{
		Rules:             rs,
		ByVoltage:         br.Grouping == "by_voltage",
		RemoveSelfLoops:   removeSelfLoops,
		CapacityAttr:      capacityAttr,
		UnlimitedCapacity: br.UnlimitedCapacity,
	}, nil
}

// TierOptions builds the full regional aggregation pass configuration
// for one tier.
func (c *Config) TierOptions(tier Tier) (aggregate.RegionAggOptions, error) {
	lineOpts, err := c.branchOptions(c.RegionalAggregation.Lines, network.AttrSNom, aggregate.DefaultLineRules())
	if err != nil {
		return aggregate.RegionAggOptions{}, err
	}
	linkOpts, err := c.branchOptions(c.RegionalAggregation.Links, network.AttrPNom, aggregate.DefaultLinkRules())
	if err != nil {
		return aggregate.RegionAggOptions{}, err
	}
	genOpts, err := c.GeneratorAggOptions()
	if err != nil {
		return aggregate.RegionAggOptions{}, err
	}
	return aggregate.RegionAggOptions{
		RegionAttr:          tier.RegionColumn,
		Standardization:     aggregate.NewNameStandardization(tier.NameMapping),
		DemandShares:        tier.DemandShares,
		ShareTolerance:      tier.ShareTolerance,
		LoadCarrier:         tier.LoadCarrier,
		AggregateGenerators: tier.AggregateGeneratorsByCarrier,
		GeneratorOpts:       genOpts,
		LineOpts:            lineOpts,
		LinkOpts:            linkOpts,
	}, nil
}

// ResampleOptions builds the temporal resampling configuration, merging
// the configured rule rows over the physically required defaults (ramp
// limit and standing-loss scaling).
func (c *Config) ResampleOptions() (temporal.Options, error) {
	opts := temporal.Options{
		Weights:     c.Resample.Weights,
		SeriesRules: make(map[temporal.ComponentAttr]temporal.SeriesRule),
		StaticRules: temporal.DefaultStaticRules(),
	}
	if c.Resample.SeriesDefault != "" {
		kind, err := rules.ParseSeriesKind(c.Resample.SeriesDefault)
		if err != nil {
			return temporal.Options{}, err
		}
		opts.SeriesDefault = kind
	}

	for _, row := range c.Resample.Rules {
		if collection, ok := strings.CutSuffix(row.Component, "_t"); ok {
			key := temporal.ComponentAttr{Collection: collection, Attr: row.Attribute}
			switch row.Rule {
			case "skip":
				opts.SeriesRules[key] = temporal.SeriesRule{Skip: true}
			case "fixed":
				v := row.Value
				opts.SeriesRules[key] = temporal.SeriesRule{Fixed: &v}
			default:
				kind, err := rules.ParseSeriesKind(row.Rule)
				if err != nil {
					return temporal.Options{}, err
				}
				opts.SeriesRules[key] = temporal.SeriesRule{Kind: kind}
			}
			continue
		}

		key := temporal.ComponentAttr{Collection: row.Component, Attr: row.Attribute}
		switch row.Rule {
		case "scale":
			opts.StaticRules[key] = temporal.StaticRule{Kind: temporal.StaticScale}
		case "fixed":
			opts.StaticRules[key] = temporal.StaticRule{Kind: temporal.StaticFixed, Value: row.Value}
		case "default":
			opts.StaticRules[key] = temporal.StaticRule{Kind: temporal.StaticDefault, Value: row.Value}
		case "skip":
			opts.StaticRules[key] = temporal.StaticRule{Kind: temporal.StaticSkip}
		default:
			return temporal.Options{}, network.NewAggregationError("ResampleOptions", "rule",
				row.Component+"."+row.Attribute, network.ErrConfiguration)
		}
	}
	return opts, nil
}

// EnergyBoundsOptions extracts capacity-factor bounds from the carrier
// attribute tables and per-generator overrides.
func (c *Config) EnergyBoundsOptions() constraints.EnergyBoundsOptions {
	opts := constraints.EnergyBoundsOptions{
		ByCarrier:   make(map[string]constraints.CapacityFactorBounds),
		ByGenerator: make(map[string]constraints.CapacityFactorBounds),
	}
	for carrier, attrs := range c.GeneratorAttributes {
		if carrier == "default" {
			continue
		}
		if b, ok := extractBounds(attrs); ok {
			opts.ByCarrier[carrier] = b
		}
	}
	for gen, attrs := range c.GeneratorCFOverrides {
		if b, ok := extractBounds(attrs); ok {
			opts.ByGenerator[gen] = b
		}
	}
	return opts
}

func extractBounds(attrs map[string]float64) (constraints.CapacityFactorBounds, bool) {
	var b constraints.CapacityFactorBounds
	if v, ok := attrs["max_cf"]; ok {
		value := v
		b.MaxCF = &value
	}
	if v, ok := attrs["min_cf"]; ok {
		value := v
		b.MinCF = &value
	}
	return b, b.MaxCF != nil || b.MinCF != nil
}

// StaticAttributeTables returns the carrier attribute tables with the
// capacity-factor bound keys stripped; those feed the energy-constraint
// deriver, not the component tables.
func (c *Config) StaticAttributeTables() (generators, storage map[string]map[string]float64) {
	strip := func(in map[string]map[string]float64) map[string]map[string]float64 {
		out := make(map[string]map[string]float64, len(in))
		for carrier, attrs := range in {
			kept := make(map[string]float64, len(attrs))
			for attr, v := range attrs {
				if attr == "max_cf" || attr == "min_cf" {
					continue
				}
				kept[attr] = v
			}
			if len(kept) > 0 {
				out[carrier] = kept
			}
		}
		return out
	}
	return strip(c.GeneratorAttributes), strip(c.StorageUnitAttributes)
}

// SnapshotWindow parses the optional snapshot window start time.
func (c *Config) SnapshotWindow() (time.Time, int, error) {
	if c.SnapshotStart == "" {
		return time.Time{}, c.SnapshotCount, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, c.SnapshotStart); err == nil {
			return t, c.SnapshotCount, nil
		}
	}
	return time.Time{}, 0, network.NewAggregationError("SnapshotWindow", "config",
		c.SnapshotStart, network.ErrConfiguration)
}
