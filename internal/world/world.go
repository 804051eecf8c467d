// World state provider: ground-truth positions and occlusion queries.
package world

import (
	"math"
	"sort"
	"sync"
)

// Vec3 is a point or vector in field coordinates (meters).
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Add returns v + other.
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// Dot returns the dot product of two vectors.
func (v Vec3) Dot(other Vec3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// DistanceTo returns the straight-line distance between two points.
func (v Vec3) DistanceTo(other Vec3) float64 {
	d := v.Sub(other)
	return math.Sqrt(d.Dot(d))
}

// Obstruction is the outcome of an occlusion query between two points.
// The zero value means clear line of sight. When Blocked is true, First
// and Last name the first and last obstacle entered along the segment
// (the same obstacle when only one is in the way).
type Obstruction struct {
	Blocked bool   `json:"blocked"`
	First   string `json:"first,omitempty"`
	Last    string `json:"last,omitempty"`
}

// Provider supplies the connectivity engine with everything it needs
// from the physical world: where each node is, and whether a straight
// segment between two points crosses an obstacle.
type Provider interface {
	// Position reports the current position of a node. The second
	// return is false for unknown addresses.
	Position(address string) (Vec3, bool)

	// Occludes casts a ray from p1 to p2 and reports the first and
	// last obstacle hit, if any.
	Occludes(p1, p2 Vec3) Obstruction
}

// Obstacle kinds recognized in the field description. Both block or
// penalize links the same way through the Obstruction contract; the
// kind only feeds obstacle naming and the admin topology view.
const (
	KindTree     = "tree"
	KindBuilding = "building"
)

// Box is a named axis-aligned obstacle.
type Box struct {
	Name string
	Kind string
	Min  Vec3
	Max  Vec3
}

// Field is an in-memory Provider: a bounded area with static box
// obstacles and per-node positions updated by the simulator each tick.
// Position reads and writes may happen concurrently (engine workers
// read while the admin surface snapshots), hence the RWMutex.
type Field struct {
	Min, Max  Vec3
	obstacles []Box

	mu        sync.RWMutex
	positions map[string]Vec3
}

// NewField creates a field with the given bounds and obstacles.
func NewField(min, max Vec3, obstacles []Box) *Field {
	return &Field{
		Min:       min,
		Max:       max,
		obstacles: obstacles,
		positions: make(map[string]Vec3),
	}
}

// SetPosition records the current position of a node, clamped to the
// field bounds.
func (f *Field) SetPosition(address string, p Vec3) {
	p.X = clamp(p.X, f.Min.X, f.Max.X)
	p.Y = clamp(p.Y, f.Min.Y, f.Max.Y)
	p.Z = clamp(p.Z, f.Min.Z, f.Max.Z)
	f.mu.Lock()
	f.positions[address] = p
	f.mu.Unlock()
}

// Position implements Provider.
func (f *Field) Position(address string) (Vec3, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.positions[address]
	return p, ok
}

// Positions returns a copy of all known node positions.
func (f *Field) Positions() map[string]Vec3 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string]Vec3, len(f.positions))
	for addr, p := range f.positions {
		out[addr] = p
	}
	return out
}

// Obstacles returns the static obstacle list.
func (f *Field) Obstacles() []Box {
	return f.obstacles
}

// Occludes implements Provider. It intersects the segment p1→p2 with
// every obstacle box and reports the first and last one entered in
// segment order.
func (f *Field) Occludes(p1, p2 Vec3) Obstruction {
	type hit struct {
		t    float64
		name string
	}
	var hits []hit
	for _, b := range f.obstacles {
		if t, ok := segmentIntersectsBox(p1, p2, b.Min, b.Max); ok {
			hits = append(hits, hit{t: t, name: b.Name})
		}
	}
	if len(hits) == 0 {
		return Obstruction{}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].t < hits[j].t })
	return Obstruction{
		Blocked: true,
		First:   hits[0].name,
		Last:    hits[len(hits)-1].name,
	}
}

// segmentIntersectsBox runs the slab test for the segment p1→p2 against
// an axis-aligned box. It returns the entry parameter t in [0,1] when
// the segment crosses the box.
func segmentIntersectsBox(p1, p2, min, max Vec3) (float64, bool) {
	dir := p2.Sub(p1)
	tEnter := 0.0
	tExit := 1.0

	for axis := 0; axis < 3; axis++ {
		var origin, delta, lo, hi float64
		switch axis {
		case 0:
			origin, delta, lo, hi = p1.X, dir.X, min.X, max.X
		case 1:
			origin, delta, lo, hi = p1.Y, dir.Y, min.Y, max.Y
		default:
			origin, delta, lo, hi = p1.Z, dir.Z, min.Z, max.Z
		}
		if delta == 0 {
			if origin < lo || origin > hi {
				return 0, false
			}
			continue
		}
		t1 := (lo - origin) / delta
		t2 := (hi - origin) / delta
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tEnter = math.Max(tEnter, t1)
		tExit = math.Min(tExit, t2)
		if tEnter > tExit {
			return 0, false
		}
	}
	return tEnter, true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
