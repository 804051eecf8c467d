// Simulator orchestrating the swarm network per tick
package sim

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"swarmnet-sim/internal/comms"
	"swarmnet-sim/internal/config"
	"swarmnet-sim/internal/observability"
	"swarmnet-sim/internal/telemetry"
	"swarmnet-sim/internal/world"
)

// LinkWriter is an interface to support different output writers for
// per-node link state rows.
type LinkWriter interface {
	WriteLinkState(telemetry.LinkStateRow) error
}

// DeliveryWriter handles per-datagram delivery rows.
type DeliveryWriter interface {
	WriteDelivery(telemetry.DeliveryRow) error
}

// Optional: writers can also support batch mode
type batchLinkWriter interface {
	WriteLinkStates([]telemetry.LinkStateRow) error
}

type batchDeliveryWriter interface {
	WriteDeliveries([]telemetry.DeliveryRow) error
}

// Robot is one mobile swarm member: its comms client plus the motion
// state the simulator uses to move it between ticks.
type Robot struct {
	Client *comms.Client
	Model  string

	speedMin float64
	speedMax float64
	altitude float64
	heading  float64
}

// Beacon is the status datagram every robot broadcasts each tick and
// unicasts to the base station.
type Beacon struct {
	Address   string  `json:"address"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	Neighbors int     `json:"neighbors"`
}

// Stats aggregates counters since simulation start.
type Stats struct {
	Ticks        int `json:"ticks"`
	Sent         int `json:"sent"`
	Delivered    int `json:"delivered"`
	UnknownDest  int `json:"unknown_destination"`
	BaseReceived int `json:"base_received"`
}

// Simulator owns the world, the connectivity engine, the broker, and
// the swarm roster, and drives them once per tick.
type Simulator struct {
	clusterID string
	cfg       *config.SimulationConfig
	field     *world.Field
	engine    *comms.Engine
	broker    *comms.Broker
	robots    []*Robot
	base      *comms.Client

	linkWriter     LinkWriter
	deliveryWriter DeliveryWriter
	metrics        *observability.Collector

	tickInterval time.Duration
	// motionRng is separate from the engine's seeded source so moving
	// robots never perturbs the outage/drop draw sequence.
	motionRng *rand.Rand

	mu           sync.Mutex
	simTime      time.Duration
	stats        Stats
	now          func() time.Time
}

// NewSimulator builds the full stack from config: world field, link
// model, engine, broker, and one client per robot plus the base
// station. seed drives every randomized decision; pass the same seed
// to reproduce a run.
func NewSimulator(clusterID string, cfg *config.SimulationConfig, lw LinkWriter, dw DeliveryWriter, metrics *observability.Collector, tickInterval time.Duration, seed int64, log *slog.Logger) (*Simulator, error) {
	params := cfg.CommsModel.Params()
	for _, w := range params.SanityWarnings() {
		log.Warn("comms model sanity check", "warning", w)
	}

	field := cfg.WorldField()
	rng := comms.NewRand(seed)
	engine := comms.NewEngine(params, field, rng)
	broker := comms.NewBroker(engine, rng)

	s := &Simulator{
		clusterID:      clusterID,
		cfg:            cfg,
		field:          field,
		engine:         engine,
		broker:         broker,
		linkWriter:     lw,
		deliveryWriter: dw,
		metrics:        metrics,
		tickInterval:   tickInterval,
		motionRng:      rand.New(rand.NewSource(seed + 1)),
		now:            time.Now,
	}

	base := cfg.BaseOrDefault()
	baseClient := comms.NewClient(base.Address, broker)
	if err := engine.Register(base.Address, baseClient); err != nil {
		return nil, err
	}
	if err := baseClient.Bind(base.Address, comms.BasePort, s.onBaseMessage); err != nil {
		return nil, err
	}
	s.base = baseClient
	field.SetPosition(base.Address, world.Vec3{X: base.Position.X, Y: base.Position.Y, Z: base.Position.Z})

	for _, fleet := range cfg.Fleets {
		for i := 0; i < fleet.Count; i++ {
			address := fmt.Sprintf("%s-%02d", fleet.Name, i+1)
			client := comms.NewClient(address, broker)
			if err := engine.Register(address, client); err != nil {
				return nil, err
			}
			// Bind the own address: receives unicast and broadcast
			// traffic on the default port.
			if err := client.Bind(address, comms.DefaultPort, func(string, string, uint32, []byte) {}); err != nil {
				return nil, err
			}
			r := &Robot{
				Client:   client,
				Model:    fleet.Model,
				speedMin: fleet.SpeedMinMPS,
				speedMax: fleet.SpeedMaxMPS,
				altitude: fleet.AltitudeM,
				heading:  s.motionRng.Float64() * 2 * math.Pi,
			}
			s.robots = append(s.robots, r)
			field.SetPosition(address, s.randomStart(fleet.AltitudeM))
		}
	}

	if metrics != nil {
		metrics.SetNodes(len(s.robots) + 1)
	}
	return s, nil
}

// randomStart places a robot uniformly inside the field at the fleet
// altitude.
func (s *Simulator) randomStart(alt float64) world.Vec3 {
	return world.Vec3{
		X: s.field.Min.X + s.motionRng.Float64()*(s.field.Max.X-s.field.Min.X),
		Y: s.field.Min.Y + s.motionRng.Float64()*(s.field.Max.Y-s.field.Min.Y),
		Z: alt,
	}
}

func (s *Simulator) onBaseMessage(src, dst string, port uint32, data []byte) {
	s.mu.Lock()
	s.stats.BaseReceived++
	s.mu.Unlock()
}

// Engine exposes the connectivity engine for the admin surface.
func (s *Simulator) Engine() *comms.Engine {
	return s.engine
}

// Obstacles returns the static field obstacles for the topology view.
func (s *Simulator) Obstacles() []world.Box {
	return s.field.Obstacles()
}

// Neighbors returns the engine's authoritative neighbor set for an
// address.
func (s *Simulator) Neighbors(address string) []string {
	return s.engine.CurrentNeighbors(address)
}

// Inject sends a datagram on behalf of src; used by the admin surface
// to push traffic into the network.
func (s *Simulator) Inject(src string, data []byte, dst string, port uint32) error {
	return s.broker.Send(src, data, dst, port)
}

// Stats returns aggregated counters since start.
func (s *Simulator) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// GetConfig returns the simulation configuration.
func (s *Simulator) GetConfig() *config.SimulationConfig {
	return s.cfg
}

func (s *Simulator) beacon(r *Robot) []byte {
	pos, _ := s.field.Position(r.Client.Address())
	b := Beacon{
		Address:   r.Client.Address(),
		X:         pos.X,
		Y:         pos.Y,
		Z:         pos.Z,
		Neighbors: len(r.Client.Neighbors()),
	}
	data, _ := json.Marshal(b)
	return data
}
