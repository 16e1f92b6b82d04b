package aggregate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-gridprep/pkg/logging"
	"github.com/dd0wney/cluso-gridprep/pkg/network"
)

const provinceAttr = "province"

func regionTestNetwork(t *testing.T) *network.Network {
	t.Helper()
	n := network.New()
	n.SetSnapshots(hourlyIndex(2))

	addBus := func(name, province string, x float64) {
		row := network.NewBus(x, 0, "AC")
		row[provinceAttr] = network.StringValue(province)
		require.NoError(t, n.Buses.Add(name, row))
	}
	addBus("b1", "North Province", 1)
	addBus("b2", "North Province", 2)
	addBus("b3", "South Province", 3)

	require.NoError(t, n.Generators.Add("coal_b1", network.NewGenerator("b1", "coal", 400)))
	require.NoError(t, n.Generators.Add("coal_b2", network.NewGenerator("b2", "coal", 100)))
	require.NoError(t, n.Generators.Add("wind_b3", network.NewGenerator("b3", "wind", 250)))

	require.NoError(t, n.Loads.Add("load_b1", network.NewLoad("b1")))
	require.NoError(t, n.Loads.Add("load_b3", network.NewLoad("b3")))
	n.LoadsT.Ensure(network.AttrPSet).Set("load_b1", []float64{60, 40})
	n.LoadsT.Ensure(network.AttrPSet).Set("load_b3", []float64{40, 60})

	addLine(t, n, "intra", "b1", "b2", 100, 1, 0.01)
	addLine(t, n, "inter", "b2", "b3", 200, 2, 0.05)
	return n
}

func regionOpts() RegionAggOptions {
	return RegionAggOptions{
		RegionAttr: provinceAttr,
		Standardization: NewNameStandardization(map[string]string{
			"North Province": "north",
			"South Province": "south",
		}),
		LineOpts: BranchAggOptions{
			Rules:           DefaultLineRules(),
			RemoveSelfLoops: true,
			CapacityAttr:    network.AttrSNom,
		},
		LinkOpts: BranchAggOptions{
			Rules:           DefaultLinkRules(),
			RemoveSelfLoops: true,
			CapacityAttr:    network.AttrPNom,
		},
	}
}

func TestAggregateByRegion(t *testing.T) {
	n := regionTestNetwork(t)
	out, err := AggregateByRegion(n, regionOpts(), logging.NewNopLogger())
	require.NoError(t, err)

	// One bus per region; input network untouched.
	assert.Equal(t, []string{"north", "south"}, out.Buses.Names())
	assert.Equal(t, 3, n.Buses.Len())

	// The north bus inherits metadata from b1, the member with the
	// largest attached generation.
	row, _ := out.Buses.Get("north")
	x, _ := row.Float(network.AttrX)
	assert.Equal(t, 1.0, x)
	assert.Equal(t, "north", row.String(provinceAttr))

	// Intra-region line dropped, inter-region line survives remapped.
	assert.Equal(t, []string{"line_north-south"}, out.Lines.Names())
	line, _ := out.Lines.Get("line_north-south")
	assert.Equal(t, "north", line.String(network.AttrBus0))
	assert.Equal(t, "south", line.String(network.AttrBus1))

	// Generators follow their buses.
	gen, _ := out.Generators.Get("coal_b1")
	assert.Equal(t, "north", gen.String(network.AttrBus))

	require.NoError(t, out.CheckConsistency())
}

func TestAggregateByRegionWithGeneratorAgg(t *testing.T) {
	n := regionTestNetwork(t)
	opts := regionOpts()
	opts.AggregateGenerators = true
	opts.GeneratorOpts = GeneratorAggOptions{Rules: generatorAggRules()}

	out, err := AggregateByRegion(n, opts, logging.NewNopLogger())
	require.NoError(t, err)

	assert.Equal(t, []string{"coal_north", "wind_south"}, out.Generators.Names())
	row, _ := out.Generators.Get("coal_north")
	pNom, _ := row.Float(network.AttrPNom)
	assert.Equal(t, 500.0, pNom)
	assert.Equal(t, "north", row.String(provinceAttr))
}

func TestAggregateByRegionDemandShares(t *testing.T) {
	n := regionTestNetwork(t)
	opts := regionOpts()
	opts.DemandShares = map[string]float64{"north": 0.75, "south": 0.25}
	opts.LoadCarrier = "electricity"

	out, err := AggregateByRegion(n, opts, logging.NewNopLogger())
	require.NoError(t, err)

	assert.Equal(t, []string{"load_north", "load_south"}, out.Loads.Names())

	// National pattern is the sum of the original load columns; each
	// regional load carries its share of it.
	col, ok := out.LoadsT[network.AttrPSet].Get("load_north")
	require.True(t, ok)
	assert.Equal(t, []float64{75, 75}, col)
	col, _ = out.LoadsT[network.AttrPSet].Get("load_south")
	assert.Equal(t, []float64{25, 25}, col)

	row, _ := out.Loads.Get("load_north")
	assert.Equal(t, "electricity", row.String(network.AttrCarrier))
}

func TestAggregateByRegionUnknownShareRegionSkipped(t *testing.T) {
	n := regionTestNetwork(t)
	opts := regionOpts()
	opts.DemandShares = map[string]float64{"north": 0.75, "atlantis": 0.25}

	out, err := AggregateByRegion(n, opts, logging.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"load_north"}, out.Loads.Names())
}

func TestBuildRegionMappingUnmappedBusFails(t *testing.T) {
	n := network.New()
	row := network.NewBus(0, 0, "AC")
	row[provinceAttr] = network.StringValue("Unknown Province")
	require.NoError(t, n.Buses.Add("b1", row))

	std := NewNameStandardization(map[string]string{"North Province": "north"})
	_, err := BuildRegionMapping(n, provinceAttr, std)
	require.Error(t, err)
	assert.True(t, errors.Is(err, network.ErrConfiguration))
}

func TestBuildRegionMappingMissingColumnFails(t *testing.T) {
	n := network.New()
	require.NoError(t, n.Buses.Add("b1", network.NewBus(0, 0, "AC")))

	std := NewNameStandardization(map[string]string{"North Province": "north"})
	_, err := BuildRegionMapping(n, provinceAttr, std)
	require.Error(t, err)
	assert.True(t, errors.Is(err, network.ErrConfiguration))
}

func TestNameStandardizationIdentity(t *testing.T) {
	std := NewNameStandardization(map[string]string{"North Province": "north"})
	assert.Equal(t, "north", std["North Province"])
	assert.Equal(t, "north", std["north"])
}

func TestCollapseToNationalBus(t *testing.T) {
	n := regionTestNetwork(t)
	out, err := CollapseToNationalBus(n, "national", logging.NewNopLogger())
	require.NoError(t, err)

	assert.Equal(t, []string{"national"}, out.Buses.Names())
	for _, name := range out.Generators.Names() {
		row, _ := out.Generators.Get(name)
		assert.Equal(t, "national", row.String(network.AttrBus))
	}
	// Transmission collapses into self-loops; dropping them is branch
	// aggregation's call later.
	for _, name := range out.Lines.Names() {
		row, _ := out.Lines.Get(name)
		assert.Equal(t, "national", row.String(network.AttrBus0))
		assert.Equal(t, "national", row.String(network.AttrBus1))
	}
	assert.Equal(t, 3, n.Buses.Len())
}
