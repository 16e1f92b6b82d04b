package aggregate

import (
	"github.com/dd0wney/cluso-gridprep/pkg/logging"
	"github.com/dd0wney/cluso-gridprep/pkg/network"
)

// CollapseToNationalBus maps every component onto one national bus,
// producing the single-node rendition of the network. Transmission
// elements survive as self-loops; whether to drop them is the line/link
// aggregation pass's decision, not this one's.
//
// The national bus inherits metadata from the original bus with the
// largest attached generator capacity. The input network is not mutated.
func CollapseToNationalBus(n *network.Network, busName string, log logging.Logger) (*network.Network, error) {
	const op = "CollapseToNationalBus"

	if busName == "" {
		return nil, network.NewAggregationError(op, "config", "national_region", network.ErrConfiguration)
	}

	out := n.Copy()

	// Reuse the region mapping machinery with the identity classification:
	// every bus belongs to the single national region.
	std := NameStandardization{}
	for _, name := range out.Buses.Names() {
		row, _ := out.Buses.Get(name)
		row["national"] = network.StringValue(busName)
		std[busName] = busName
	}
	mapping, err := BuildRegionMapping(out, "national", std)
	if err != nil {
		return nil, err
	}

	reps := representativeBuses(out, mapping)
	if err := remapReferences(out, mapping); err != nil {
		return nil, err
	}
	materializeRegionalBuses(out, mapping, reps, "national")

	log.Info("collapsed network to national bus",
		logging.Component("national_agg"),
		logging.String("bus", busName),
		logging.Int("generators", out.Generators.Len()))

	if err := out.CheckConsistency(); err != nil {
		return nil, err
	}
	return out, nil
}
