package rules

import (
	"math"

	"github.com/dd0wney/cluso-gridprep/pkg/network"
)

// ParseSeriesKind converts a configured rule name for time-series
// aggregation. Series act on numeric columns, not categorical metadata,
// so only the numeric reduction kinds are legal.
func ParseSeriesKind(name string) (Kind, error) {
	k, err := ParseKind(name)
	if err != nil {
		return 0, err
	}
	switch k {
	case KindSum, KindMean, KindMax, KindMin:
		return k, nil
	default:
		return 0, network.NewAggregationError("ParseSeriesKind", "rule", name, network.ErrConfiguration)
	}
}

// ReduceFloats collapses a slice of values under a numeric reduction
// kind. NaN entries are missing observations: sum treats them as zero,
// the other kinds skip them and fail when nothing usable remains.
func ReduceFloats(kind Kind, vals []float64) (float64, error) {
	var usable []float64
	for _, v := range vals {
		if !math.IsNaN(v) {
			usable = append(usable, v)
		}
	}
	switch kind {
	case KindSum:
		var total float64
		for _, v := range usable {
			total += v
		}
		return total, nil
	case KindMean:
		if len(usable) == 0 {
			return 0, network.NewAggregationError("ReduceFloats", "rule", kind.String(), network.ErrInsufficientData)
		}
		var total float64
		for _, v := range usable {
			total += v
		}
		return total / float64(len(usable)), nil
	case KindMin:
		if len(usable) == 0 {
			return 0, network.NewAggregationError("ReduceFloats", "rule", kind.String(), network.ErrInsufficientData)
		}
		return least(usable), nil
	case KindMax:
		if len(usable) == 0 {
			return 0, network.NewAggregationError("ReduceFloats", "rule", kind.String(), network.ErrInsufficientData)
		}
		return greatest(usable), nil
	default:
		return 0, network.NewAggregationError("ReduceFloats", "rule", kind.String(), network.ErrConfiguration)
	}
}

// CombineColumns reduces member columns snapshot by snapshot into one
// destination column of length n. Columns shorter or longer than n mean
// the snapshot invariant was already broken upstream.
func CombineColumns(kind Kind, cols [][]float64, n int) ([]float64, error) {
	for _, col := range cols {
		if len(col) != n {
			return nil, network.NewAggregationError("CombineColumns", "series", kind.String(), network.ErrSnapshotMismatch)
		}
	}
	out := make([]float64, n)
	vals := make([]float64, len(cols))
	for i := 0; i < n; i++ {
		for j, col := range cols {
			vals[j] = col[i]
		}
		v, err := ReduceFloats(kind, vals)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
