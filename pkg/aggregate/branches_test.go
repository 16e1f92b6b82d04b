package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-gridprep/pkg/logging"
	"github.com/dd0wney/cluso-gridprep/pkg/network"
)

func lineNetwork(t *testing.T) *network.Network {
	t.Helper()
	n := network.New()
	for _, bus := range []string{"north", "south", "east"} {
		require.NoError(t, n.Buses.Add(bus, network.NewBus(0, 0, "AC")))
	}
	return n
}

func addLine(t *testing.T, n *network.Network, name, bus0, bus1 string, sNom, circuits, r float64) {
	t.Helper()
	row := network.NewLine(bus0, bus1, sNom, circuits)
	row[network.AttrResistance] = network.FloatValue(r)
	require.NoError(t, n.Lines.Add(name, row))
}

func lineOpts() BranchAggOptions {
	return BranchAggOptions{
		Rules:           DefaultLineRules(),
		RemoveSelfLoops: true,
		CapacityAttr:    network.AttrSNom,
	}
}

func TestAggregateBranchesMergesParallel(t *testing.T) {
	n := lineNetwork(t)
	addLine(t, n, "l1", "north", "south", 100, 2, 0.05)
	addLine(t, n, "l2", "south", "north", 50, 1, 0.06)

	out, err := AggregateBranches(n, "lines", lineOpts(), logging.NewNopLogger())
	require.NoError(t, err)

	require.Equal(t, 1, out.Lines.Len())
	row, ok := out.Lines.Get("line_north-south")
	require.True(t, ok)

	// Reversed orientation still groups; bus0 is the smaller region.
	assert.Equal(t, "north", row.String(network.AttrBus0))
	assert.Equal(t, "south", row.String(network.AttrBus1))

	sNom, _ := row.Float(network.AttrSNom)
	assert.Equal(t, 150.0, sNom)
	circuits, _ := row.Float(network.AttrNumParallel)
	assert.Equal(t, 3.0, circuits)
	r, _ := row.Float(network.AttrResistance)
	assert.InDelta(t, (0.05*2+0.06*1)/3, r, 1e-9)
}

func TestAggregateBranchesRemovesSelfLoops(t *testing.T) {
	n := lineNetwork(t)
	addLine(t, n, "loop", "north", "north", 80, 1, 0.01)
	addLine(t, n, "l1", "north", "south", 100, 1, 0.05)

	out, err := AggregateBranches(n, "lines", lineOpts(), logging.NewNopLogger())
	require.NoError(t, err)

	assert.Equal(t, []string{"line_north-south"}, out.Lines.Names())
}

func TestAggregateBranchesKeepsSelfLoopsWhenConfigured(t *testing.T) {
	n := lineNetwork(t)
	addLine(t, n, "loop1", "north", "north", 80, 1, 0.01)
	addLine(t, n, "loop2", "north", "north", 40, 1, 0.02)

	opts := lineOpts()
	opts.RemoveSelfLoops = false
	out, err := AggregateBranches(n, "lines", opts, logging.NewNopLogger())
	require.NoError(t, err)

	require.Equal(t, 1, out.Lines.Len())
	row, ok := out.Lines.Get("line_north-north")
	require.True(t, ok)
	sNom, _ := row.Float(network.AttrSNom)
	assert.Equal(t, 120.0, sNom)
}

func TestAggregateBranchesByVoltage(t *testing.T) {
	n := lineNetwork(t)
	addLine(t, n, "hv", "north", "south", 100, 1, 0.05)
	row, _ := n.Lines.Get("hv")
	row[network.AttrVNom] = network.FloatValue(345)
	addLine(t, n, "lv", "north", "south", 60, 1, 0.08)
	row, _ = n.Lines.Get("lv")
	row[network.AttrVNom] = network.FloatValue(138)

	opts := lineOpts()
	opts.ByVoltage = true
	out, err := AggregateBranches(n, "lines", opts, logging.NewNopLogger())
	require.NoError(t, err)

	assert.Equal(t, []string{"line_north-south-138kV", "line_north-south-345kV"}, out.Lines.Names())
}

func TestAggregateBranchesUnlimitedCapacityFallback(t *testing.T) {
	n := lineNetwork(t)
	addLine(t, n, "l1", "north", "south", 0, 1, 0.05)

	opts := lineOpts()
	opts.UnlimitedCapacity = 1e6
	out, err := AggregateBranches(n, "lines", opts, logging.NewNopLogger())
	require.NoError(t, err)

	row, _ := out.Lines.Get("line_north-south")
	sNom, _ := row.Float(network.AttrSNom)
	assert.Equal(t, 1e6, sNom)
}

func TestAggregateBranchesIdempotent(t *testing.T) {
	n := lineNetwork(t)
	addLine(t, n, "l1", "north", "south", 100, 2, 0.05)
	addLine(t, n, "l2", "north", "south", 50, 1, 0.06)

	once, err := AggregateBranches(n, "lines", lineOpts(), logging.NewNopLogger())
	require.NoError(t, err)
	twice, err := AggregateBranches(once, "lines", lineOpts(), logging.NewNopLogger())
	require.NoError(t, err)

	require.Equal(t, once.Lines.Names(), twice.Lines.Names())
	for _, name := range once.Lines.Names() {
		a, _ := once.Lines.Get(name)
		b, _ := twice.Lines.Get(name)
		for _, attr := range a.Attributes() {
			assert.True(t, a[attr].Equal(b[attr]), "attr %s changed on re-run", attr)
		}
	}
}

func TestAggregateBranchesLinks(t *testing.T) {
	n := lineNetwork(t)
	require.NoError(t, n.Links.Add("dc1", network.NewLink("north", "east", 400)))
	require.NoError(t, n.Links.Add("dc2", network.NewLink("east", "north", 200)))

	opts := BranchAggOptions{
		Rules:           DefaultLinkRules(),
		RemoveSelfLoops: true,
		CapacityAttr:    network.AttrPNom,
	}
	out, err := AggregateBranches(n, "links", opts, logging.NewNopLogger())
	require.NoError(t, err)

	row, ok := out.Links.Get("link_east-north")
	require.True(t, ok)
	pNom, _ := row.Float(network.AttrPNom)
	assert.Equal(t, 600.0, pNom)
}

func TestAggregateBranchesBadCollection(t *testing.T) {
	n := lineNetwork(t)
	_, err := AggregateBranches(n, "buses", lineOpts(), logging.NewNopLogger())
	require.Error(t, err)
}
