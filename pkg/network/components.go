package network

// Well-known attribute names shared across component tables. Tables are
// open-schema: importers may carry extra columns (province, cc_group,
// market, ...) that only matter to particular aggregation passes.
const (
	AttrBus     = "bus"
	AttrBus0    = "bus0"
	AttrBus1    = "bus1"
	AttrCarrier = "carrier"

	AttrX    = "x"
	AttrY    = "y"
	AttrVNom = "v_nom"

	AttrPNom         = "p_nom"
	AttrPMinPU       = "p_min_pu"
	AttrPMaxPU       = "p_max_pu"
	AttrPSet         = "p_set"
	AttrEfficiency   = "efficiency"
	AttrMarginalCost = "marginal_cost"
	AttrBuildYear    = "build_year"
	AttrCCGroup      = "cc_group"
	AttrESumMax      = "e_sum_max"
	AttrESumMin      = "e_sum_min"

	AttrRampLimitUp       = "ramp_limit_up"
	AttrRampLimitDown     = "ramp_limit_down"
	AttrRampLimitStartUp  = "ramp_limit_start_up"
	AttrRampLimitShutDown = "ramp_limit_shut_down"

	AttrEfficiencyStore    = "efficiency_store"
	AttrEfficiencyDispatch = "efficiency_dispatch"
	AttrMaxHours           = "max_hours"
	AttrStandingLoss       = "standing_loss"

	AttrSNom        = "s_nom"
	AttrNumParallel = "num_parallel"
	AttrResistance  = "r"
	AttrReactance   = "x" // same column letter as the bus x coordinate; tables never mix
	AttrSusceptance = "b"
	AttrLength      = "length"
)

// NewBus builds a bus row with coordinates and carrier tag.
func NewBus(x, y float64, carrier string) Row {
	return Row{
		AttrX:       FloatValue(x),
		AttrY:       FloatValue(y),
		AttrCarrier: StringValue(carrier),
	}
}

// NewGenerator builds a generator row with its siting and capacity.
func NewGenerator(bus, carrier string, pNom float64) Row {
	return Row{
		AttrBus:     StringValue(bus),
		AttrCarrier: StringValue(carrier),
		AttrPNom:    FloatValue(pNom),
	}
}

// NewStorageUnit builds a storage unit row.
func NewStorageUnit(bus, carrier string, pNom, maxHours float64) Row {
	return Row{
		AttrBus:      StringValue(bus),
		AttrCarrier:  StringValue(carrier),
		AttrPNom:     FloatValue(pNom),
		AttrMaxHours: FloatValue(maxHours),
	}
}

// NewLoad builds a load row attached to a bus.
func NewLoad(bus string) Row {
	return Row{AttrBus: StringValue(bus)}
}

// NewLine builds a transmission line row. Impedance values describe the
// equivalent of all parallel circuits combined, not a single circuit.
func NewLine(bus0, bus1 string, sNom, numParallel float64) Row {
	return Row{
		AttrBus0:        StringValue(bus0),
		AttrBus1:        StringValue(bus1),
		AttrSNom:        FloatValue(sNom),
		AttrNumParallel: FloatValue(numParallel),
	}
}

// NewLink builds a controllable link row.
func NewLink(bus0, bus1 string, pNom float64) Row {
	return Row{
		AttrBus0: StringValue(bus0),
		AttrBus1: StringValue(bus1),
		AttrPNom: FloatValue(pNom),
	}
}
