// Package rules implements the attribute-aggregation rule engine used by
// every merging component: given source rows being collapsed into one
// destination row, a per-attribute rule table decides how each destination
// value is produced.
package rules

import (
	"fmt"
	"math"
	"sort"

	"golang.org/x/exp/constraints"

	"github.com/dd0wney/cluso-gridprep/pkg/network"
)

// Kind is the closed set of aggregation rule variants. Rule tables are
// runtime configuration, so dispatch is a switch on tag and an unknown
// name is a fatal configuration error, never a silent default.
type Kind uint8

const (
	// KindUnspecified is the zero value, distinct from every real rule so
	// option structs can tell an unset default apart from a configured
	// sum. Evaluating it is a configuration error.
	KindUnspecified Kind = iota
	KindSum
	KindMean
	KindMin
	KindMax
	// KindDominant takes the value from the source row with the greatest
	// value in a ranking attribute (p_nom unless overridden). Ties go to
	// the first row in stable input order.
	KindDominant
	// KindPreserveKey emits the grouping key itself and requires all
	// source rows to already agree on it.
	KindPreserveKey
	KindFixed
	KindIgnore
	// KindWeightedByCircuits is the physically correct combination for
	// impedance of parallel circuits: sum(v_i*n_i)/sum(n_i).
	KindWeightedByCircuits
	// KindScaleByCircuits scales the dominant row's value by the ratio of
	// total to dominant circuit count. Used for thermal capacity when the
	// representative circuit rating should be extrapolated.
	KindScaleByCircuits
)

func (k Kind) String() string {
	switch k {
	case KindUnspecified:
		return "unspecified"
	case KindSum:
		return "sum"
	case KindMean:
		return "mean"
	case KindMin:
		return "min"
	case KindMax:
		return "max"
	case KindDominant:
		return "dominant_unit"
	case KindPreserveKey:
		return "preserve_key"
	case KindFixed:
		return "fixed"
	case KindIgnore:
		return "ignore"
	case KindWeightedByCircuits:
		return "weighted_by_circuits"
	case KindScaleByCircuits:
		return "scale_by_circuits"
	default:
		return "unknown"
	}
}

// ParseKind converts a configured rule name to its Kind. Alias names from
// the rule vocabulary (oldest/smallest, newest/largest, p_nom, cc_group,
// carrier, remove) map onto their canonical variants.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "sum":
		return KindSum, nil
	case "mean":
		return KindMean, nil
	case "min", "oldest", "smallest":
		return KindMin, nil
	case "max", "newest", "largest":
		return KindMax, nil
	case "dominant_unit", "p_nom":
		return KindDominant, nil
	case "preserve_key", "cc_group", "carrier", "region":
		return KindPreserveKey, nil
	case "fixed":
		return KindFixed, nil
	case "ignore", "remove":
		return KindIgnore, nil
	case "weighted_by_circuits":
		return KindWeightedByCircuits, nil
	case "scale_by_circuits":
		return KindScaleByCircuits, nil
	default:
		return 0, network.NewAggregationError("ParseKind", "rule", name, network.ErrConfiguration)
	}
}

// Rule is one tagged aggregation variant with its parameters.
type Rule struct {
	Kind Kind
	// Fixed is the literal destination value for KindFixed.
	Fixed network.Value
	// WeightBy overrides the weighting attribute for the circuit-weighted
	// kinds. Defaults to num_parallel.
	WeightBy string
}

// RuleSet maps attribute names to rules, with a default applied to any
// attribute not explicitly listed and a ranking attribute for
// dominant-unit resolution.
type RuleSet struct {
	Rules   map[string]Rule
	Default Rule
	// RankBy designates the attribute used to pick the dominant row.
	// Defaults to p_nom.
	RankBy string
}

// NewRuleSet creates a rule set with the given default rule.
func NewRuleSet(def Rule) *RuleSet {
	return &RuleSet{
		Rules:   make(map[string]Rule),
		Default: def,
		RankBy:  network.AttrPNom,
	}
}

// RuleFor returns the rule applied to an attribute.
func (rs *RuleSet) RuleFor(attr string) Rule {
	if r, ok := rs.Rules[attr]; ok {
		return r
	}
	return rs.Default
}

// Apply collapses the source rows into one destination row under the rule
// set. The group key feeds preserve_key rules and error reporting. Source
// order is significant only for dominant-unit tie-breaks.
func (rs *RuleSet) Apply(op, key string, group []network.Row) (network.Row, error) {
	if len(group) == 0 {
		return nil, network.NewAggregationError(op, "group", key, network.ErrInsufficientData)
	}

	dominant, err := rs.dominantIndex(op, key, group)
	if err != nil {
		return nil, err
	}

	dest := make(network.Row)
	for _, attr := range unionAttributes(group) {
		rule := rs.RuleFor(attr)
		v, keep, err := evalRule(rule, op, key, attr, group, dominant)
		if err != nil {
			return nil, err
		}
		if keep {
			dest[attr] = v
		}
	}
	return dest, nil
}

// dominantIndex picks the row with the greatest ranking attribute value.
// Rows missing the ranking attribute rank lowest.
func (rs *RuleSet) dominantIndex(op, key string, group []network.Row) (int, error) {
	rank := rs.RankBy
	if rank == "" {
		rank = network.AttrPNom
	}
	best := 0
	bestVal := math.Inf(-1)
	for i, row := range group {
		v, ok := row.Float(rank)
		if !ok || math.IsNaN(v) {
			continue
		}
		if v > bestVal {
			bestVal = v
			best = i
		}
	}
	return best, nil
}

func evalRule(rule Rule, op, key, attr string, group []network.Row, dominant int) (network.Value, bool, error) {
	switch rule.Kind {
	case KindIgnore:
		return network.Value{}, false, nil

	case KindFixed:
		return rule.Fixed, true, nil

	case KindPreserveKey:
		for _, row := range group {
			v, ok := row[attr]
			if !ok || v.IsNaN() {
				continue
			}
			if v.AsString() != key {
				return network.Value{}, false, network.NewAggregationError(op, "attribute", attr,
					fmt.Errorf("%w: %q != group key %q", network.ErrInconsistent, v.AsString(), key))
			}
		}
		return network.StringValue(key), true, nil

	case KindDominant:
		v, ok := group[dominant][attr]
		if !ok {
			return network.Value{}, false, nil
		}
		return v, true, nil

	case KindSum:
		var total float64
		for _, row := range group {
			v, ok := row[attr]
			if !ok || v.IsNaN() {
				continue
			}
			f, err := v.AsFloat()
			if err != nil {
				return network.Value{}, false, network.NewAggregationError(op, "attribute", attr,
					fmt.Errorf("%w: sum rule: %v", network.ErrConfiguration, err))
			}
			total += f
		}
		return network.FloatValue(total), true, nil

	case KindMean:
		var total float64
		var count int
		for _, row := range group {
			v, ok := row[attr]
			if !ok || v.IsNaN() {
				continue
			}
			f, err := v.AsFloat()
			if err != nil {
				return network.Value{}, false, network.NewAggregationError(op, "attribute", attr,
					fmt.Errorf("%w: mean rule: %v", network.ErrConfiguration, err))
			}
			total += f
			count++
		}
		if count == 0 {
			return network.Value{}, false, network.NewAggregationError(op, "attribute", attr, network.ErrInsufficientData)
		}
		return network.FloatValue(total / float64(count)), true, nil

	case KindMin, KindMax:
		return evalExtreme(rule.Kind, op, attr, group)

	case KindWeightedByCircuits:
		weightAttr := rule.WeightBy
		if weightAttr == "" {
			weightAttr = network.AttrNumParallel
		}
		var weighted, totalWeight float64
		for _, row := range group {
			v, ok := row.Float(attr)
			if !ok || math.IsNaN(v) {
				continue
			}
			w, ok := row.Float(weightAttr)
			if !ok || math.IsNaN(w) || w <= 0 {
				continue
			}
			weighted += v * w
			totalWeight += w
		}
		if totalWeight == 0 {
			return network.Value{}, false, network.NewAggregationError(op, "attribute", attr, network.ErrInsufficientData)
		}
		return network.FloatValue(weighted / totalWeight), true, nil

	case KindScaleByCircuits:
		weightAttr := rule.WeightBy
		if weightAttr == "" {
			weightAttr = network.AttrNumParallel
		}
		var totalWeight float64
		repIdx := -1
		repWeight := math.Inf(-1)
		for i, row := range group {
			w, ok := row.Float(weightAttr)
			if !ok || math.IsNaN(w) || w <= 0 {
				continue
			}
			totalWeight += w
			if w > repWeight {
				repWeight = w
				repIdx = i
			}
		}
		if repIdx < 0 {
			return network.Value{}, false, network.NewAggregationError(op, "attribute", attr, network.ErrInsufficientData)
		}
		v, ok := group[repIdx].Float(attr)
		if !ok {
			return network.Value{}, false, network.NewAggregationError(op, "attribute", attr, network.ErrInsufficientData)
		}
		return network.FloatValue(v * totalWeight / repWeight), true, nil

	default:
		return network.Value{}, false, network.NewAggregationError(op, "rule", rule.Kind.String(), network.ErrConfiguration)
	}
}

// evalExtreme handles min/max. Numeric sources compare numerically; an
// all-string attribute (plant type, control mode) compares
// lexicographically, matching how imported mixed tables behave.
func evalExtreme(kind Kind, op, attr string, group []network.Row) (network.Value, bool, error) {
	var floats []float64
	var strs []string
	numeric := true
	for _, row := range group {
		v, ok := row[attr]
		if !ok || v.IsNaN() {
			continue
		}
		if f, err := v.AsFloat(); err == nil {
			floats = append(floats, f)
		} else {
			numeric = false
		}
		strs = append(strs, v.AsString())
	}
	if len(strs) == 0 {
		return network.Value{}, false, network.NewAggregationError(op, "attribute", attr, network.ErrInsufficientData)
	}
	if numeric {
		if kind == KindMin {
			return network.FloatValue(least(floats)), true, nil
		}
		return network.FloatValue(greatest(floats)), true, nil
	}
	if kind == KindMin {
		return network.StringValue(least(strs)), true, nil
	}
	return network.StringValue(greatest(strs)), true, nil
}

func unionAttributes(group []network.Row) []string {
	seen := make(map[string]struct{})
	var attrs []string
	for _, row := range group {
		for attr := range row {
			if _, ok := seen[attr]; !ok {
				seen[attr] = struct{}{}
				attrs = append(attrs, attr)
			}
		}
	}
	sort.Strings(attrs)
	return attrs
}

func least[T constraints.Ordered](vals []T) T {
	best := vals[0]
	for _, v := range vals[1:] {
		if v < best {
			best = v
		}
	}
	return best
}

func greatest[T constraints.Ordered](vals []T) T {
	best := vals[0]
	for _, v := range vals[1:] {
		if v > best {
			best = v
		}
	}
	return best
}
