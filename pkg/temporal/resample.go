// Package temporal reduces the network's snapshot resolution while
// keeping it physically self-consistent: time series collapse by
// configurable reductions, per-snapshot rates rescale by the aggregation
// factor, and snapshot weightings track true elapsed hours.
package temporal

import (
	"math"
	"time"

	"github.com/dd0wney/cluso-gridprep/pkg/logging"
	"github.com/dd0wney/cluso-gridprep/pkg/network"
	"github.com/dd0wney/cluso-gridprep/pkg/parallel"
	"github.com/dd0wney/cluso-gridprep/pkg/rules"
)

// ComponentAttr identifies one (component collection, attribute) pair in
// a resample rule table.
type ComponentAttr struct {
	Collection string // "generators", "storage_units", ...
	Attr       string
}

// SeriesRule decides how one time-series attribute collapses per block.
type SeriesRule struct {
	Kind rules.Kind // sum/mean/max/min
	// Fixed replaces the series with a constant when set.
	Fixed *float64
	// Skip leaves the series unresampled. The caller must strip or
	// replace it before the snapshot-length invariant is next enforced.
	Skip bool
}

// StaticRuleKind is the vocabulary for static attribute rescaling.
type StaticRuleKind uint8

const (
	// StaticScale multiplies by the aggregation factor; for attributes
	// defined per snapshot or per hour (ramp limits, standing loss).
	StaticScale StaticRuleKind = iota
	// StaticFixed sets the attribute to a literal value.
	StaticFixed
	// StaticDefault resets the attribute to a configured baseline.
	StaticDefault
	// StaticSkip leaves the attribute alone.
	StaticSkip
)

// StaticRule decides how one static attribute is adjusted.
type StaticRule struct {
	Kind  StaticRuleKind
	Value float64 // literal for StaticFixed, baseline for StaticDefault
}

// Options configures one resampling pass.
type Options struct {
	// Weights is the aggregation factor: consecutive blocks of this many
	// snapshots collapse into one. Values <= 1 are a no-op.
	Weights int
	// SeriesRules overrides the reduction per series attribute.
	SeriesRules map[ComponentAttr]SeriesRule
	// SeriesDefault is the fallback series reduction. Unspecified means
	// mean.
	SeriesDefault rules.Kind
	// StaticRules lists static attributes needing adjustment. Statics
	// not listed are untouched.
	StaticRules map[ComponentAttr]StaticRule
}

func (o *Options) seriesRule(collection, attr string) SeriesRule {
	if r, ok := o.SeriesRules[ComponentAttr{collection, attr}]; ok {
		return r
	}
	kind := o.SeriesDefault
	if kind == rules.KindUnspecified {
		kind = rules.KindMean
	}
	return SeriesRule{Kind: kind}
}

// DefaultStaticRules returns the rate-type attributes that must rescale
// with the aggregation factor to stay physically meaningful: ramp limits
// are fractions of p_nom per snapshot, and storage standing loss is a
// fraction per hour.
func DefaultStaticRules() map[ComponentAttr]StaticRule {
	rulesTable := make(map[ComponentAttr]StaticRule)
	for _, attr := range []string{
		network.AttrRampLimitUp,
		network.AttrRampLimitDown,
		network.AttrRampLimitStartUp,
		network.AttrRampLimitShutDown,
	} {
		rulesTable[ComponentAttr{"generators", attr}] = StaticRule{Kind: StaticScale}
		rulesTable[ComponentAttr{"links", attr}] = StaticRule{Kind: StaticScale}
	}
	rulesTable[ComponentAttr{"storage_units", network.AttrStandingLoss}] = StaticRule{Kind: StaticScale}
	return rulesTable
}

// Resample reduces the snapshot count by the configured factor. The new
// index keeps each block's first timestamp; block weightings sum the old
// ones, so a trailing partial block keeps its true shorter duration.
//
// The input network is not mutated; the transformed copy is returned.
func Resample(n *network.Network, opts Options, log logging.Logger) (*network.Network, error) {
	const op = "Resample"

	if opts.Weights <= 1 {
		return n.Copy(), nil
	}
	w := opts.Weights

	out := n.Copy()
	old := len(out.Snapshots)
	if old == 0 {
		return out, nil
	}
	blocks := (old + w - 1) / w

	newSnapshots := make([]time.Time, blocks)
	newWeightings := make([]float64, blocks)
	for b := 0; b < blocks; b++ {
		start := b * w
		end := start + w
		if end > old {
			end = old
		}
		newSnapshots[b] = out.Snapshots[start]
		for i := start; i < end; i++ {
			newWeightings[b] += out.SnapshotWeightings[i]
		}
	}

	for _, c := range out.Collections() {
		for _, attr := range c.Series.Attributes() {
			rule := opts.seriesRule(c.Name, attr)
			if rule.Skip {
				log.Warn("series left unresampled by skip rule",
					logging.Component("resample"),
					logging.String("collection", c.Name),
					logging.String("attribute", attr))
				continue
			}
			s := c.Series[attr]
			names := s.Names()
			resampled := make([][]float64, len(names))
			err := parallel.ForEach(len(names), 0, func(i int) error {
				col, _ := s.Get(names[i])
				r, err := resampleColumn(col, w, blocks, rule)
				if err != nil {
					return network.NewAggregationError(op, c.Name, names[i], err)
				}
				resampled[i] = r
				return nil
			})
			if err != nil {
				return nil, err
			}
			for i, name := range names {
				s.Set(name, resampled[i])
			}
		}
	}

	out.Snapshots = newSnapshots
	out.SnapshotWeightings = newWeightings

	if err := applyStaticRules(out, opts.StaticRules, w, log); err != nil {
		return nil, err
	}

	log.Info("resampled network",
		logging.Component("resample"),
		logging.Int("weights", w),
		logging.Int("snapshots_before", old),
		logging.Int("snapshots_after", blocks))

	return out, nil
}

func resampleColumn(col []float64, w, blocks int, rule SeriesRule) ([]float64, error) {
	out := make([]float64, blocks)
	if rule.Fixed != nil {
		for i := range out {
			out[i] = *rule.Fixed
		}
		return out, nil
	}
	for b := 0; b < blocks; b++ {
		start := b * w
		end := start + w
		if end > len(col) {
			end = len(col)
		}
		v, err := rules.ReduceFloats(rule.Kind, col[start:end])
		if err != nil {
			return nil, err
		}
		out[b] = v
	}
	return out, nil
}

func applyStaticRules(n *network.Network, table map[ComponentAttr]StaticRule, w int, log logging.Logger) error {
	for _, c := range n.Collections() {
		for _, attr := range c.Static.Columns() {
			rule, ok := table[ComponentAttr{c.Name, attr}]
			if !ok || rule.Kind == StaticSkip {
				continue
			}
			for _, name := range c.Static.Names() {
				row, _ := c.Static.Get(name)
				v, has := row.Float(attr)
				switch rule.Kind {
				case StaticScale:
					if !has || math.IsNaN(v) {
						continue
					}
					scaled := v * float64(w)
					row[attr] = network.FloatValue(scaled)
					if scaled > 1 && isFractionalRate(attr) {
						// Proceed with the scaled value; picking a sane
						// factor is the configuration author's call.
						log.Warn("scaled rate exceeds 1.0",
							logging.Component("resample"),
							logging.String("collection", c.Name),
							logging.String("component", name),
							logging.String("attribute", attr),
							logging.Float64("value", scaled))
					}
				case StaticFixed, StaticDefault:
					row[attr] = network.FloatValue(rule.Value)
				}
			}
		}
	}
	return nil
}

// isFractionalRate reports whether an attribute is a physically bounded
// fraction where exceeding 1.0 after scaling deserves a warning.
func isFractionalRate(attr string) bool {
	switch attr {
	case network.AttrRampLimitUp, network.AttrRampLimitDown,
		network.AttrRampLimitStartUp, network.AttrRampLimitShutDown,
		network.AttrStandingLoss:
		return true
	}
	return false
}
