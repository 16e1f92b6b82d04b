// Package pipeline chains the transformation stages that prepare a
// power-grid network model for linear optimization.
package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-gridprep/pkg/aggregate"
	"github.com/dd0wney/cluso-gridprep/pkg/carriers"
	"github.com/dd0wney/cluso-gridprep/pkg/config"
	"github.com/dd0wney/cluso-gridprep/pkg/constraints"
	"github.com/dd0wney/cluso-gridprep/pkg/logging"
	"github.com/dd0wney/cluso-gridprep/pkg/metrics"
	"github.com/dd0wney/cluso-gridprep/pkg/network"
	"github.com/dd0wney/cluso-gridprep/pkg/temporal"
)

// Pipeline runs the configured transformation stages in order. Every
// stage is a pure transform-then-replace step over a working copy; a
// failing stage leaves the caller's network untouched.
type Pipeline struct {
	cfg     *config.Config
	log     logging.Logger
	metrics *metrics.Registry
}

// New creates a pipeline. A nil metrics registry disables instrumentation.
func New(cfg *config.Config, log logging.Logger, m *metrics.Registry) *Pipeline {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Pipeline{cfg: cfg, log: log, metrics: m}
}

// Run executes all configured stages and returns the transformed
// network. The input network is never mutated; callers swap in the
// result only when Run succeeds.
func (p *Pipeline) Run(n *network.Network) (*network.Network, error) {
	runID := uuid.NewString()
	log := p.log.With(logging.String("run_id", runID))
	log.Info("pipeline run starting",
		logging.Int("buses", n.Buses.Len()),
		logging.Int("generators", n.Generators.Len()),
		logging.Int("snapshots", len(n.Snapshots)))

	cur := n
	var err error
	for _, st := range p.stages() {
		cur, err = p.runStage(st, cur, log)
		if err != nil {
			if p.metrics != nil {
				p.metrics.RecordRun("error")
			}
			return nil, fmt.Errorf("pipeline stage %s: %w", st.name, err)
		}
	}

	if err := cur.CheckConsistency(); err != nil {
		if p.metrics != nil {
			p.metrics.RecordRun("error")
		}
		return nil, err
	}
	if p.metrics != nil {
		p.metrics.RecordRun("ok")
	}
	log.Info("pipeline run complete",
		logging.Int("buses", cur.Buses.Len()),
		logging.Int("generators", cur.Generators.Len()),
		logging.Int("snapshots", len(cur.Snapshots)))
	return cur, nil
}

type stage struct {
	name string
	run  func(*network.Network, logging.Logger) (*network.Network, error)
}

func (p *Pipeline) stages() []stage {
	cfg := p.cfg
	var stages []stage

	if len(cfg.CCMergeRules) > 0 {
		stages = append(stages, stage{"cc_merge", func(n *network.Network, log logging.Logger) (*network.Network, error) {
			opts, err := cfg.CCMergeOptions()
			if err != nil {
				return nil, err
			}
			return aggregate.MergeCCGenerators(n, opts, log)
		}})
	}

	if cfg.SnapshotStart != "" || cfg.SnapshotCount > 0 {
		stages = append(stages, stage{"snapshot_window", func(n *network.Network, log logging.Logger) (*network.Network, error) {
			windowStart, windowCount, err := cfg.SnapshotWindow()
			if err != nil {
				return nil, err
			}
			return temporal.LimitSnapshots(n, windowStart, windowCount, log)
		}})
	}

	for i := range cfg.RegionalAggregation.Tiers {
		tier := cfg.RegionalAggregation.Tiers[i]
		stages = append(stages, stage{fmt.Sprintf("region_agg_%s", tier.RegionColumn),
			func(n *network.Network, log logging.Logger) (*network.Network, error) {
				opts, err := cfg.TierOptions(tier)
				if err != nil {
					return nil, err
				}
				return aggregate.AggregateByRegion(n, opts, log)
			}})
	}

	if cfg.National.Enabled {
		stages = append(stages, stage{"national_collapse", func(n *network.Network, log logging.Logger) (*network.Network, error) {
			return aggregate.CollapseToNationalBus(n, cfg.National.Bus, log)
		}})
	}

	if len(cfg.CarrierMapping) > 0 {
		stages = append(stages, stage{"carrier_standardization", func(n *network.Network, log logging.Logger) (*network.Network, error) {
			return carriers.Standardize(n, cfg.CarrierMapping, log)
		}})
	}

	genAttrs, storageAttrs := cfg.StaticAttributeTables()
	if len(genAttrs) > 0 {
		stages = append(stages, stage{"generator_attributes", func(n *network.Network, log logging.Logger) (*network.Network, error) {
			return carriers.ApplyGeneratorAttributes(n, genAttrs, log)
		}})
	}
	if len(storageAttrs) > 0 {
		stages = append(stages, stage{"storage_attributes", func(n *network.Network, log logging.Logger) (*network.Network, error) {
			return carriers.ApplyStorageAttributes(n, storageAttrs, log)
		}})
	}

	if cfg.TargetLoad > 0 {
		stages = append(stages, stage{"load_scaling", func(n *network.Network, log logging.Logger) (*network.Network, error) {
			return carriers.ScaleLoadsToTarget(n, cfg.TargetLoad, log)
		}})
	}

	if cfg.Resample.Weights > 1 {
		stages = append(stages, stage{"resample", func(n *network.Network, log logging.Logger) (*network.Network, error) {
			opts, err := cfg.ResampleOptions()
			if err != nil {
				return nil, err
			}
			out, err := temporal.Resample(n, opts, log)
			if err == nil && p.metrics != nil {
				p.metrics.ResampleFactor.Set(float64(opts.Weights))
			}
			return out, err
		}})
	}

	bounds := cfg.EnergyBoundsOptions()
	if len(bounds.ByCarrier) > 0 || len(bounds.ByGenerator) > 0 {
		stages = append(stages, stage{"energy_bounds", func(n *network.Network, log logging.Logger) (*network.Network, error) {
			return constraints.ApplyEnergyBounds(n, bounds, log)
		}})
	}

	return stages
}

// warnCounting increments the invariant-warning counter for every Warn
// emitted by a stage, so non-fatal physical anomalies show up in metrics
// without each stage knowing about instrumentation.
type warnCounting struct {
	logging.Logger
	metrics *metrics.Registry
}

func (w warnCounting) Warn(msg string, fields ...logging.Field) {
	w.metrics.InvariantWarnings.Inc()
	w.Logger.Warn(msg, fields...)
}

func (w warnCounting) With(fields ...logging.Field) logging.Logger {
	return warnCounting{Logger: w.Logger.With(fields...), metrics: w.metrics}
}

func (p *Pipeline) runStage(st stage, n *network.Network, log logging.Logger) (*network.Network, error) {
	stageLog := log.With(logging.Stage(st.name))
	if p.metrics != nil {
		stageLog = warnCounting{Logger: stageLog, metrics: p.metrics}
	}
	started := time.Now()
	out, err := st.run(n, stageLog)
	elapsed := time.Since(started)

	status := "ok"
	if err != nil {
		status = "error"
		stageLog.Error("stage failed", logging.Error(err))
	}
	if p.metrics != nil {
		p.metrics.RecordStage(st.name, status, elapsed)
		if err == nil {
			for _, c := range out.Collections() {
				p.metrics.ComponentsTotal.WithLabelValues(c.Name).Set(float64(c.Static.Len()))
			}
			p.metrics.SnapshotsTotal.Set(float64(len(out.Snapshots)))
		}
	}
	if err != nil {
		return nil, err
	}
	stageLog.Debug("stage complete", logging.Any("elapsed", elapsed.String()))
	return out, nil
}
