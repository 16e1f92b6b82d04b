package rules

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-gridprep/pkg/network"
)

func TestParseSeriesKind(t *testing.T) {
	for _, name := range []string{"sum", "mean", "max", "min"} {
		_, err := ParseSeriesKind(name)
		assert.NoError(t, err, name)
	}
	for _, name := range []string{"dominant_unit", "cc_group", "ignore", "nope"} {
		_, err := ParseSeriesKind(name)
		assert.Error(t, err, name)
	}
}

func TestReduceFloats(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name    string
		kind    Kind
		vals    []float64
		want    float64
		wantErr error
	}{
		{"sum", KindSum, []float64{1, 2, 3}, 6, nil},
		{"sum treats NaN as zero", KindSum, []float64{1, nan, 3}, 4, nil},
		{"sum over nothing", KindSum, nil, 0, nil},
		{"mean skips NaN", KindMean, []float64{2, nan, 4}, 3, nil},
		{"mean of nothing", KindMean, []float64{nan}, 0, network.ErrInsufficientData},
		{"min", KindMin, []float64{3, 1, 2}, 1, nil},
		{"max", KindMax, []float64{3, 1, 2}, 3, nil},
		{"max of nothing", KindMax, nil, 0, network.ErrInsufficientData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReduceFloats(tt.kind, tt.vals)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCombineColumns(t *testing.T) {
	cols := [][]float64{
		{1, 2, 3},
		{10, 20, 30},
	}
	out, err := CombineColumns(KindSum, cols, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{11, 22, 33}, out)

	out, err = CombineColumns(KindMean, cols, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{5.5, 11, 16.5}, out)
}

func TestCombineColumnsLengthMismatch(t *testing.T) {
	_, err := CombineColumns(KindSum, [][]float64{{1, 2}}, 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, network.ErrSnapshotMismatch))
}
