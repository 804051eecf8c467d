// Connectivity engine: per-tick orchestration of outages, pairwise
// visibility, and neighbor derivation.
package comms

import (
	"sort"
	"sync"
	"time"

	"swarmnet-sim/internal/world"
)

// Subscriber receives the authoritative neighbor list for its address
// after every tick. Nodes never compute their own neighbor sets.
type Subscriber interface {
	OnNeighbors(neighbors []string)
}

// node is one roster slot. Outage state is the only field that
// survives across ticks.
type node struct {
	address string
	sub     Subscriber

	onOutage bool
	// outageUntil is the simulation time the outage ends. nil while
	// onOutage means the outage is permanent (negative duration
	// bounds in Params).
	outageUntil *time.Duration
}

// pairKey identifies an unordered node pair, canonicalized so that
// A < B lexicographically.
type pairKey struct {
	A, B string
}

func makePairKey(a, b string) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{A: a, B: b}
}

// link is the tick-scoped state of one pair. Discarded and recomputed
// every tick; positions move continuously so stale results are never
// reused.
type link struct {
	distance    float64
	obstruction world.Obstruction
	neighbor    bool
	comms       bool
}

// NodeState is a read-only snapshot of a roster slot for the admin
// surface and telemetry.
type NodeState struct {
	Address   string     `json:"address"`
	Position  world.Vec3 `json:"position"`
	OnOutage  bool       `json:"on_outage"`
	Neighbors []string   `json:"neighbors"`
}

// LinkState is a read-only snapshot of one evaluated pair.
type LinkState struct {
	A        string  `json:"a"`
	B        string  `json:"b"`
	Distance float64 `json:"distance"`
	Blocked  bool    `json:"blocked"`
	Neighbor bool    `json:"neighbor"`
	Comms    bool    `json:"comms"`
}

// Engine recomputes connectivity once per simulation tick: outage
// states first, then visibility for every unordered pair of non-outaged
// nodes, then each node's neighbor set, which is pushed to the node's
// subscriber. All randomness flows through the injected Rand so runs
// are reproducible under a fixed seed.
type Engine struct {
	params Params
	world  world.Provider
	rng    *Rand

	mu        sync.Mutex
	nodes     map[string]*node
	order     []string // sorted addresses, fixes iteration order
	links     map[pairKey]link
	neighbors map[string][]string
	now       time.Duration
}

// NewEngine creates an engine over the given world provider. rng must
// not be shared with anything except the broker built on this engine.
func NewEngine(params Params, provider world.Provider, rng *Rand) *Engine {
	return &Engine{
		params:    params,
		world:     provider,
		rng:       rng,
		nodes:     make(map[string]*node),
		links:     make(map[pairKey]link),
		neighbors: make(map[string][]string),
	}
}

// Register adds a node to the roster. Registration happens at
// simulation start; there is no dynamic join or leave.
func (e *Engine) Register(address string, sub Subscriber) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.nodes[address]; exists {
		return ErrDuplicateAddress
	}
	e.nodes[address] = &node{address: address, sub: sub}
	e.order = append(e.order, address)
	sort.Strings(e.order)
	return nil
}

// Params returns the link model thresholds in use.
func (e *Engine) Params() Params {
	return e.params
}

// Update advances the engine one tick. now is the simulation clock,
// dt the time elapsed since the previous update.
func (e *Engine) Update(now, dt time.Duration) {
	e.mu.Lock()
	e.now = now

	e.updateOutages(now, dt)
	e.updateVisibility()
	pushes := e.updateNeighbors()
	e.mu.Unlock()

	// Push outside the lock: subscribers may immediately query the
	// engine or send messages from the callback.
	for _, p := range pushes {
		p.sub.OnNeighbors(p.list)
	}
}

type push struct {
	sub  Subscriber
	list []string
}

// updateOutages runs the per-node outage state machine. A probability
// of exactly 1.0 forces the transition regardless of dt, matching the
// configured expectation that every node blacks out immediately.
func (e *Engine) updateOutages(now, dt time.Duration) {
	p := e.params
	for _, addr := range e.order {
		n := e.nodes[addr]
		if n.onOutage {
			if n.outageUntil != nil && now >= *n.outageUntil {
				n.onOutage = false
				n.outageUntil = nil
			}
			continue
		}

		threshold := p.CommsOutageProbability
		if !p.OutagePerTick {
			threshold *= dt.Seconds()
		}
		if p.CommsOutageProbability != 1.0 && e.rng.Float64() >= threshold {
			continue
		}

		n.onOutage = true
		if p.CommsOutageDurationMin < 0 || p.CommsOutageDurationMax < 0 {
			n.outageUntil = nil // permanent
			continue
		}
		d := e.rng.Uniform(p.CommsOutageDurationMin, p.CommsOutageDurationMax)
		until := now + time.Duration(d*float64(time.Second))
		n.outageUntil = &until
	}
}

// updateVisibility rebuilds the pair cache: one occlusion query per
// unordered pair of non-outaged nodes.
func (e *Engine) updateVisibility() {
	e.links = make(map[pairKey]link, len(e.links))
	for i := 0; i < len(e.order); i++ {
		a := e.nodes[e.order[i]]
		if a.onOutage {
			continue
		}
		posA, okA := e.world.Position(a.address)
		if !okA {
			continue
		}
		for j := i + 1; j < len(e.order); j++ {
			b := e.nodes[e.order[j]]
			if b.onOutage {
				continue
			}
			posB, okB := e.world.Position(b.address)
			if !okB {
				continue
			}

			dist := posA.DistanceTo(posB)
			obs := e.world.Occludes(posA, posB)
			l := link{
				distance:    dist,
				obstruction: obs,
				neighbor:    e.params.NeighborEligible(dist, obs.Blocked),
			}
			l.comms = l.neighbor && e.params.CommsRangeEligible(dist, obs.Blocked)
			e.links[makePairKey(a.address, b.address)] = l
		}
	}
}

// updateNeighbors derives each node's neighbor set from the pair cache
// and prepares the per-node pushes. Outaged nodes get an empty set.
func (e *Engine) updateNeighbors() []push {
	pushes := make([]push, 0, len(e.order))
	for _, addr := range e.order {
		n := e.nodes[addr]
		var list []string
		if !n.onOutage {
			for _, other := range e.order {
				if other == addr {
					continue
				}
				if l, ok := e.links[makePairKey(addr, other)]; ok && l.neighbor {
					list = append(list, other)
				}
			}
		}
		e.neighbors[addr] = list
		if n.sub != nil {
			pushes = append(pushes, push{sub: n.sub, list: append([]string(nil), list...)})
		}
	}
	return pushes
}

// CurrentNeighbors returns a copy of the engine's authoritative
// neighbor set for the address.
func (e *Engine) CurrentNeighbors(address string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.neighbors[address]...)
}

// OnOutage reports whether the node is currently blacked out.
func (e *Engine) OnOutage(address string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	n, ok := e.nodes[address]
	return ok && n.onOutage
}

// Registered reports whether the address belongs to the roster.
func (e *Engine) Registered(address string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.nodes[address]
	return ok
}

// Addresses returns the roster in sorted order.
func (e *Engine) Addresses() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.order...)
}

// CommsEligible reports whether a datagram sent between the two nodes
// right now can be delivered: both on the roster, neither in outage,
// mutually neighbors, and within the comms policy. The result comes
// from the current tick's pair cache.
func (e *Engine) CommsEligible(a, b string) bool {
	if a == b {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	na, ok := e.nodes[a]
	if !ok || na.onOutage {
		return false
	}
	nb, ok := e.nodes[b]
	if !ok || nb.onOutage {
		return false
	}
	l, ok := e.links[makePairKey(a, b)]
	return ok && l.comms
}

// Snapshot returns the current roster and link state for the admin
// surface. Neighbor lists are copies.
func (e *Engine) Snapshot() ([]NodeState, []LinkState) {
	e.mu.Lock()
	defer e.mu.Unlock()

	nodes := make([]NodeState, 0, len(e.order))
	for _, addr := range e.order {
		n := e.nodes[addr]
		pos, _ := e.world.Position(addr)
		nodes = append(nodes, NodeState{
			Address:   addr,
			Position:  pos,
			OnOutage:  n.onOutage,
			Neighbors: append([]string(nil), e.neighbors[addr]...),
		})
	}

	links := make([]LinkState, 0, len(e.links))
	for _, addr := range e.order {
		for _, other := range e.order {
			if addr >= other {
				continue
			}
			if l, ok := e.links[pairKey{A: addr, B: other}]; ok {
				links = append(links, LinkState{
					A:        addr,
					B:        other,
					Distance: l.distance,
					Blocked:  l.obstruction.Blocked,
					Neighbor: l.neighbor,
					Comms:    l.comms,
				})
			}
		}
	}
	return nodes, links
}
