// Package config loads and validates the pipeline configuration: rule
// tables, regional aggregation tiers, resampling settings, and
// capacity-factor bounds.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-gridprep/pkg/network"
	"github.com/dd0wney/cluso-gridprep/pkg/validation"
)

var validate = validator.New()

// Config is the root configuration document.
type Config struct {
	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`

	// CarrierMapping renames imported carrier values to standardized ones.
	CarrierMapping map[string]string `yaml:"carrier_mapping"`

	// GeneratorAttributes and StorageUnitAttributes are carrier-keyed
	// attribute tables; the "default" carrier applies to everything
	// first. max_cf/min_cf entries are capacity-factor bounds for the
	// energy-constraint deriver, not static attributes.
	GeneratorAttributes   map[string]map[string]float64 `yaml:"generator_attributes"`
	StorageUnitAttributes map[string]map[string]float64 `yaml:"storage_unit_attributes"`

	// GeneratorCFOverrides sets per-generator capacity-factor bounds that
	// win over the carrier-level values.
	GeneratorCFOverrides map[string]map[string]float64 `yaml:"generator_cf_overrides"`

	// CCMergeRules aggregates combined-cycle groups; the "others" key is
	// the default rule for unlisted attributes.
	CCMergeRules map[string]string `yaml:"cc_merge_rules"`

	RegionalAggregation RegionalAggregation `yaml:"regional_aggregation"`

	Resample Resample `yaml:"resample"`

	// SnapshotStart/SnapshotCount window the horizon before resampling.
	SnapshotStart string `yaml:"snapshot_start"`
	SnapshotCount int    `yaml:"snapshot_count" validate:"gte=0"`

	// TargetLoad rescales total load energy when positive.
	TargetLoad float64 `yaml:"target_load" validate:"gte=0"`

	National National `yaml:"national"`
}

// RegionalAggregation configures the per-tier aggregation passes and the
// shared rule tables.
type RegionalAggregation struct {
	Tiers []Tier `yaml:"tiers" validate:"dive"`

	// GeneratorRules is the static-attribute rule table for
	// carrier+region generator aggregation.
	GeneratorRules map[string]string `yaml:"generator_region_agg_rules"`
	// GeneratorSeriesRules aggregates generator time series; restricted
	// to sum/mean/max/min.
	GeneratorSeriesRules map[string]string `yaml:"generator_t_rules"`

	Lines BranchRules `yaml:"lines"`
	Links BranchRules `yaml:"links"`
}

// Tier is one regional aggregation pass. Two tiers model province-then-
// group aggregation as the same pass run twice.
type Tier struct {
	RegionColumn string `yaml:"region_column" validate:"required"`
	// NameMapping standardizes official region spellings to short names.
	NameMapping map[string]string `yaml:"name_mapping"`
	// DemandShares redistributes national load; empty keeps remapped
	// loads as they are.
	DemandShares   map[string]float64 `yaml:"demand_shares"`
	ShareTolerance float64            `yaml:"share_tolerance" validate:"gte=0"`
	LoadCarrier    string             `yaml:"load_carrier"`

	AggregateGeneratorsByCarrier bool `yaml:"aggregate_generators_by_carrier"`
}

// BranchRules configures line or link aggregation.
type BranchRules struct {
	// Grouping is ignore_voltage (default) or by_voltage.
	Grouping        string            `yaml:"grouping" validate:"omitempty,oneof=ignore_voltage by_voltage"`
	RemoveSelfLoops *bool             `yaml:"remove_self_loops"`
	// UnlimitedCapacity replaces a zero aggregate capacity; 0 disables.
	UnlimitedCapacity float64           `yaml:"unlimited_capacity" validate:"gte=0"`
	Rules             map[string]string `yaml:"rules"`
}

// Resample configures temporal resolution reduction.
type Resample struct {
	Weights int `yaml:"weights" validate:"gte=0"`
	// SeriesDefault is the fallback series reduction, default mean.
	SeriesDefault string         `yaml:"series_default" validate:"omitempty,oneof=sum mean max min"`
	Rules         []ResampleRule `yaml:"rules" validate:"dive"`
}

// ResampleRule is one per-(component, attribute) resampling override.
// Components named with a _t suffix address time series; bare names
// address static attributes.
type ResampleRule struct {
	Component string  `yaml:"component" validate:"required"`
	Attribute string  `yaml:"attribute" validate:"required"`
	Rule      string  `yaml:"rule" validate:"required"`
	Value     float64 `yaml:"value"`
}

// National configures single-node collapse.
type National struct {
	Enabled bool   `yaml:"enabled"`
	Bus     string `yaml:"bus"`
}

// Load reads, parses, and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates YAML configuration bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", network.ErrConfiguration, err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", network.ErrConfiguration, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate applies the semantic checks struct tags cannot express:
// every configured rule name must parse, and tier definitions must be
// complete.
func (c *Config) Validate() error {
	cv := validation.NewConfigValidator("Config")

	cv.Custom("cc_merge_rules", func() error {
		return checkRuleNames(c.CCMergeRules)
	})
	cv.Custom("regional_aggregation.generator_region_agg_rules", func() error {
		return checkRuleNames(c.RegionalAggregation.GeneratorRules)
	})
	cv.Custom("regional_aggregation.generator_t_rules", func() error {
		return checkSeriesRuleNames(c.RegionalAggregation.GeneratorSeriesRules)
	})
	cv.Custom("regional_aggregation.lines.rules", func() error {
		return checkRuleNames(c.RegionalAggregation.Lines.Rules)
	})
	cv.Custom("regional_aggregation.links.rules", func() error {
		return checkRuleNames(c.RegionalAggregation.Links.Rules)
	})

	for i, tier := range c.RegionalAggregation.Tiers {
		field := fmt.Sprintf("regional_aggregation.tiers[%d]", i)
		cv.Required(field+".region_column", tier.RegionColumn)
		cv.RequiredMap(field+".name_mapping", len(tier.NameMapping))
		for region, share := range tier.DemandShares {
			cv.NonNegativeFloat(fmt.Sprintf("%s.demand_shares[%s]", field, region), share)
		}
	}

	for i, rule := range c.Resample.Rules {
		field := fmt.Sprintf("resample.rules[%d]", i)
		cv.OneOf(field+".rule", rule.Rule,
			[]string{"sum", "mean", "max", "min", "fixed", "scale", "default", "skip"})
	}

	cv.When(c.National.Enabled, func(cv *validation.ConfigValidator) {
		cv.Required("national.bus", c.National.Bus)
	})

	for carrier, attrs := range c.GeneratorAttributes {
		for _, key := range []string{"max_cf", "min_cf"} {
			if v, ok := attrs[key]; ok {
				cv.RangeFloat(fmt.Sprintf("generator_attributes.%s.%s", carrier, key), v, 0, 1)
			}
		}
	}

	if err := cv.Validate(); err != nil {
		return fmt.Errorf("%w: %v", network.ErrConfiguration, err)
	}
	return nil
}
