package rules

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-gridprep/pkg/network"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		name string
		want Kind
	}{
		{"sum", KindSum},
		{"mean", KindMean},
		{"min", KindMin},
		{"oldest", KindMin},
		{"smallest", KindMin},
		{"max", KindMax},
		{"newest", KindMax},
		{"largest", KindMax},
		{"p_nom", KindDominant},
		{"dominant_unit", KindDominant},
		{"cc_group", KindPreserveKey},
		{"carrier", KindPreserveKey},
		{"remove", KindIgnore},
		{"ignore", KindIgnore},
		{"weighted_by_circuits", KindWeightedByCircuits},
		{"scale_by_circuits", KindScaleByCircuits},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKind(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseKind("banana")
	require.Error(t, err)
	assert.True(t, errors.Is(err, network.ErrConfiguration))
}

func applyOne(t *testing.T, rule Rule, key string, group []network.Row) network.Value {
	t.Helper()
	rs := NewRuleSet(Rule{Kind: KindIgnore})
	rs.Rules["attr"] = rule
	dest, err := rs.Apply("test", key, group)
	require.NoError(t, err)
	v, ok := dest["attr"]
	require.True(t, ok, "attribute missing from merged row")
	return v
}

func TestApplySum(t *testing.T) {
	group := []network.Row{
		{"attr": network.FloatValue(300)},
		{"attr": network.FloatValue(250)},
		{"attr": network.FloatValue(math.NaN())},
	}
	v := applyOne(t, Rule{Kind: KindSum}, "k", group)
	f, err := v.AsFloat()
	require.NoError(t, err)
	assert.Equal(t, 550.0, f)
}

func TestApplySumNonNumericFails(t *testing.T) {
	rs := NewRuleSet(Rule{Kind: KindIgnore})
	rs.Rules["attr"] = Rule{Kind: KindSum}
	_, err := rs.Apply("test", "k", []network.Row{
		{"attr": network.StringValue("coal")},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, network.ErrConfiguration))
}

func TestApplyMeanSkipsNaN(t *testing.T) {
	group := []network.Row{
		{"attr": network.FloatValue(10)},
		{"attr": network.FloatValue(math.NaN())},
		{"attr": network.FloatValue(20)},
	}
	v := applyOne(t, Rule{Kind: KindMean}, "k", group)
	f, _ := v.AsFloat()
	assert.Equal(t, 15.0, f)
}

func TestApplyMeanAllNaNFails(t *testing.T) {
	rs := NewRuleSet(Rule{Kind: KindIgnore})
	rs.Rules["attr"] = Rule{Kind: KindMean}
	_, err := rs.Apply("test", "k", []network.Row{
		{"attr": network.FloatValue(math.NaN())},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, network.ErrInsufficientData))
}

func TestApplyMinMaxNumeric(t *testing.T) {
	group := []network.Row{
		{"attr": network.FloatValue(1998)},
		{"attr": network.FloatValue(2004)},
		{"attr": network.FloatValue(2001)},
	}
	vMin := applyOne(t, Rule{Kind: KindMin}, "k", group)
	f, _ := vMin.AsFloat()
	assert.Equal(t, 1998.0, f)

	vMax := applyOne(t, Rule{Kind: KindMax}, "k", group)
	f, _ = vMax.AsFloat()
	assert.Equal(t, 2004.0, f)
}

func TestApplyMinMaxLexicographic(t *testing.T) {
	group := []network.Row{
		{"attr": network.StringValue("PQ")},
		{"attr": network.StringValue("PV")},
	}
	v := applyOne(t, Rule{Kind: KindMax}, "k", group)
	assert.Equal(t, "PV", v.AsString())
}

func TestApplyDominant(t *testing.T) {
	group := []network.Row{
		{"p_nom": network.FloatValue(100), "attr": network.StringValue("small")},
		{"p_nom": network.FloatValue(300), "attr": network.StringValue("big")},
		{"p_nom": network.FloatValue(200), "attr": network.StringValue("mid")},
	}
	v := applyOne(t, Rule{Kind: KindDominant}, "k", group)
	assert.Equal(t, "big", v.AsString())
}

func TestApplyDominantTieBreaksFirst(t *testing.T) {
	group := []network.Row{
		{"p_nom": network.FloatValue(100), "attr": network.StringValue("first")},
		{"p_nom": network.FloatValue(100), "attr": network.StringValue("second")},
	}
	v := applyOne(t, Rule{Kind: KindDominant}, "k", group)
	assert.Equal(t, "first", v.AsString())
}

func TestApplyPreserveKey(t *testing.T) {
	group := []network.Row{
		{"attr": network.StringValue("GT1")},
		{"attr": network.StringValue("GT1")},
	}
	v := applyOne(t, Rule{Kind: KindPreserveKey}, "GT1", group)
	assert.Equal(t, "GT1", v.AsString())
}

func TestApplyPreserveKeyMismatchFails(t *testing.T) {
	rs := NewRuleSet(Rule{Kind: KindIgnore})
	rs.Rules["attr"] = Rule{Kind: KindPreserveKey}
	_, err := rs.Apply("test", "GT1", []network.Row{
		{"attr": network.StringValue("GT2")},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, network.ErrInconsistent))
}

func TestApplyFixed(t *testing.T) {
	v := applyOne(t, Rule{Kind: KindFixed, Fixed: network.FloatValue(0.98)}, "k", []network.Row{
		{"attr": network.FloatValue(5)},
	})
	f, _ := v.AsFloat()
	assert.Equal(t, 0.98, f)
}

func TestApplyIgnoreDropsAttribute(t *testing.T) {
	rs := NewRuleSet(Rule{Kind: KindSum})
	rs.Rules["attr"] = Rule{Kind: KindIgnore}
	dest, err := rs.Apply("test", "k", []network.Row{
		{"attr": network.FloatValue(5), "other": network.FloatValue(1)},
	})
	require.NoError(t, err)
	_, ok := dest["attr"]
	assert.False(t, ok)
	_, ok = dest["other"]
	assert.True(t, ok)
}

func TestApplyWeightedByCircuits(t *testing.T) {
	// Two circuits at 0.05 plus one at 0.06: (0.05*2 + 0.06*1) / 3.
	group := []network.Row{
		{"attr": network.FloatValue(0.05), "num_parallel": network.FloatValue(2)},
		{"attr": network.FloatValue(0.06), "num_parallel": network.FloatValue(1)},
	}
	v := applyOne(t, Rule{Kind: KindWeightedByCircuits}, "k", group)
	f, _ := v.AsFloat()
	assert.InDelta(t, 0.053333333, f, 1e-9)
}

func TestApplyWeightedByCircuitsZeroWeightFails(t *testing.T) {
	rs := NewRuleSet(Rule{Kind: KindIgnore})
	rs.Rules["attr"] = Rule{Kind: KindWeightedByCircuits}
	_, err := rs.Apply("test", "k", []network.Row{
		{"attr": network.FloatValue(0.05), "num_parallel": network.FloatValue(0)},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, network.ErrInsufficientData))
}

func TestApplyScaleByCircuits(t *testing.T) {
	// Representative circuit (3 parallel) rated 120; the group carries 5
	// circuits total, so capacity extrapolates to 120 * 5/3.
	group := []network.Row{
		{"attr": network.FloatValue(120), "num_parallel": network.FloatValue(3)},
		{"attr": network.FloatValue(70), "num_parallel": network.FloatValue(2)},
	}
	v := applyOne(t, Rule{Kind: KindScaleByCircuits}, "k", group)
	f, _ := v.AsFloat()
	assert.InDelta(t, 200, f, 1e-9)
}

func TestApplyEmptyGroupFails(t *testing.T) {
	rs := NewRuleSet(Rule{Kind: KindSum})
	_, err := rs.Apply("test", "k", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, network.ErrInsufficientData))
}

func TestApplyDefaultRuleCoversUnlisted(t *testing.T) {
	rs := NewRuleSet(Rule{Kind: KindSum})
	dest, err := rs.Apply("test", "k", []network.Row{
		{"unlisted": network.FloatValue(1)},
		{"unlisted": network.FloatValue(2)},
	})
	require.NoError(t, err)
	f, _ := dest.Float("unlisted")
	assert.Equal(t, 3.0, f)
}
