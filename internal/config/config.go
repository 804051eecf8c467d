// YAML config loader with CUE schema validation
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"swarmnet-sim/internal/comms"
	"swarmnet-sim/internal/world"
)

// Vec is a 3D point in field coordinates (meters).
type Vec struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

// Obstacle is a named axis-aligned box in the field.
type Obstacle struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"` // tree or building
	Min  Vec    `yaml:"min"`
	Max  Vec    `yaml:"max"`
}

// Field describes the bounded area the swarm operates in.
type Field struct {
	Min       Vec        `yaml:"min"`
	Max       Vec        `yaml:"max"`
	Obstacles []Obstacle `yaml:"obstacles"`
}

// Fleet defines a group of robots of the same model.
type Fleet struct {
	Name        string  `yaml:"name"`
	Model       string  `yaml:"model"` // ground, rotor, fixed-wing
	Count       int     `yaml:"count"`
	SpeedMinMPS float64 `yaml:"speed_min_mps"`
	SpeedMaxMPS float64 `yaml:"speed_max_mps"`
	AltitudeM   float64 `yaml:"altitude_m"`
}

// Base describes the fixed base station.
type Base struct {
	Address  string `yaml:"address"`
	Position Vec    `yaml:"position"`
}

// CommsModel carries the link model thresholds. Optional fields keep
// the documented defaults when absent: unlimited distances, zero
// penalties, zero drop and outage probabilities.
type CommsModel struct {
	NeighborDistanceMin         *float64 `yaml:"neighbor_distance_min"`
	NeighborDistanceMax         *float64 `yaml:"neighbor_distance_max"`
	NeighborDistancePenaltyTree *float64 `yaml:"neighbor_distance_penalty_tree"`
	CommsDistanceMin            *float64 `yaml:"comms_distance_min"`
	CommsDistanceMax            *float64 `yaml:"comms_distance_max"`
	CommsDistancePenaltyTree    *float64 `yaml:"comms_distance_penalty_tree"`
	CommsDropProbabilityMin     *float64 `yaml:"comms_drop_probability_min"`
	CommsDropProbabilityMax     *float64 `yaml:"comms_drop_probability_max"`
	CommsOutageProbability      *float64 `yaml:"comms_outage_probability"`
	CommsOutageDurationMin      *float64 `yaml:"comms_outage_duration_min"`
	CommsOutageDurationMax      *float64 `yaml:"comms_outage_duration_max"`
	MTU                         *int     `yaml:"mtu"`

	// OutageProbabilityUnit resolves the ambiguity in how
	// comms_outage_probability is applied: "per_second" (default)
	// scales it by tick duration, "per_tick" uses it as-is.
	OutageProbabilityUnit string `yaml:"outage_probability_unit"`
}

// SimulationConfig is the root configuration.
type SimulationConfig struct {
	Seed       int        `yaml:"seed"`
	Field      Field      `yaml:"field"`
	Fleets     []Fleet    `yaml:"fleets"`
	Base       *Base      `yaml:"base"`
	CommsModel CommsModel `yaml:"comms_model"`

	// SQLitePath enables the SQLite delivery archive when set.
	SQLitePath string `yaml:"sqlite_path"`
}

// Load reads and validates a YAML configuration. schemaPath overrides
// the embedded CUE schema when non-empty.
func Load(configPath, schemaPath string) (*SimulationConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	schema := schemaCue
	if schemaPath != "" {
		s, err := os.ReadFile(schemaPath)
		if err != nil {
			return nil, fmt.Errorf("cannot read CUE schema: %w", err)
		}
		schema = s
	}
	if err := ValidateWithCue(data, schema); err != nil {
		return nil, err
	}

	var cfg SimulationConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Fleets) == 0 {
		return nil, fmt.Errorf("no fleets defined in %s", configPath)
	}
	return &cfg, nil
}

// Params resolves the optional comms_model fields onto the documented
// defaults.
func (c CommsModel) Params() comms.Params {
	p := comms.DefaultParams()
	setF := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	setF(&p.NeighborDistanceMin, c.NeighborDistanceMin)
	setF(&p.NeighborDistanceMax, c.NeighborDistanceMax)
	setF(&p.NeighborDistancePenaltyTree, c.NeighborDistancePenaltyTree)
	setF(&p.CommsDistanceMin, c.CommsDistanceMin)
	setF(&p.CommsDistanceMax, c.CommsDistanceMax)
	setF(&p.CommsDistancePenaltyTree, c.CommsDistancePenaltyTree)
	setF(&p.CommsDropProbabilityMin, c.CommsDropProbabilityMin)
	setF(&p.CommsDropProbabilityMax, c.CommsDropProbabilityMax)
	setF(&p.CommsOutageProbability, c.CommsOutageProbability)
	setF(&p.CommsOutageDurationMin, c.CommsOutageDurationMin)
	setF(&p.CommsOutageDurationMax, c.CommsOutageDurationMax)
	if c.MTU != nil {
		p.MTU = *c.MTU
	}
	p.OutagePerTick = c.OutageProbabilityUnit == "per_tick"
	return p
}

// BaseOrDefault returns the configured base station, or the well-known
// "boo" at the field origin when the block is omitted.
func (s *SimulationConfig) BaseOrDefault() Base {
	if s.Base != nil {
		b := *s.Base
		if b.Address == "" {
			b.Address = comms.BaseStation
		}
		return b
	}
	return Base{Address: comms.BaseStation}
}

// WorldField builds the world provider described by the field block.
func (s *SimulationConfig) WorldField() *world.Field {
	boxes := make([]world.Box, 0, len(s.Field.Obstacles))
	for _, o := range s.Field.Obstacles {
		boxes = append(boxes, world.Box{
			Name: o.Name,
			Kind: o.Kind,
			Min:  world.Vec3{X: o.Min.X, Y: o.Min.Y, Z: o.Min.Z},
			Max:  world.Vec3{X: o.Max.X, Y: o.Max.Y, Z: o.Max.Z},
		})
	}
	return world.NewField(
		world.Vec3{X: s.Field.Min.X, Y: s.Field.Min.Y, Z: s.Field.Min.Z},
		world.Vec3{X: s.Field.Max.X, Y: s.Field.Max.Y, Z: s.Field.Max.Z},
		boxes,
	)
}
