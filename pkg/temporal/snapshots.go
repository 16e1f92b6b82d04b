package temporal

import (
	"time"

	"github.com/dd0wney/cluso-gridprep/pkg/logging"
	"github.com/dd0wney/cluso-gridprep/pkg/network"
)

// LimitSnapshots restricts the network to a window of its snapshot index:
// the first snapshot at or after start, and at most count snapshots from
// there. A zero start keeps the beginning; count <= 0 keeps everything
// after it. All time-series tables are sliced to match.
//
// The input network is not mutated; the windowed copy is returned.
func LimitSnapshots(n *network.Network, start time.Time, count int, log logging.Logger) (*network.Network, error) {
	const op = "LimitSnapshots"

	out := n.Copy()
	total := len(out.Snapshots)

	startIdx := 0
	if !start.IsZero() {
		for startIdx < total && out.Snapshots[startIdx].Before(start) {
			startIdx++
		}
	}
	endIdx := total
	if count > 0 && startIdx+count < total {
		endIdx = startIdx + count
	}
	if startIdx >= endIdx {
		return nil, network.NewAggregationError(op, "snapshots", start.Format(time.RFC3339),
			network.ErrInsufficientData)
	}
	if startIdx == 0 && endIdx == total {
		return out, nil
	}

	out.Snapshots = out.Snapshots[startIdx:endIdx]
	out.SnapshotWeightings = out.SnapshotWeightings[startIdx:endIdx]

	for _, c := range out.Collections() {
		for _, attr := range c.Series.Attributes() {
			s := c.Series[attr]
			for _, name := range s.Names() {
				col, _ := s.Get(name)
				s.Set(name, col[startIdx:endIdx])
			}
		}
	}

	log.Info("limited snapshots",
		logging.Component("snapshots"),
		logging.Int("before", total),
		logging.Int("after", endIdx-startIdx))

	return out, nil
}
