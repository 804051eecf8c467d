// Link model: distance and penalty scoring for the neighbor and comms
// policies.
package comms

import "fmt"

// Params hold the numeric thresholds of the link model. For every
// Min/Max field a negative value means "no limit on that side"; a
// negative penalty means one obstruction fully blocks the relation.
type Params struct {
	// Neighbor policy: how far apart two nodes may be and still
	// perceive each other.
	NeighborDistanceMin         float64
	NeighborDistanceMax         float64
	NeighborDistancePenaltyTree float64

	// Comms policy: how far apart two neighbors may be and still
	// exchange data.
	CommsDistanceMin         float64
	CommsDistanceMax         float64
	CommsDistancePenaltyTree float64

	// Per-message drop probability bounds. Each candidate recipient
	// gets an independent draw uniform in [Min,Max].
	CommsDropProbabilityMin float64
	CommsDropProbabilityMax float64

	// Probability of a node entering an outage. Interpreted as a
	// per-second rate scaled by tick duration unless OutagePerTick
	// is set.
	CommsOutageProbability float64
	OutagePerTick          bool

	// Outage duration bounds in seconds. Negative bounds make every
	// outage permanent.
	CommsOutageDurationMin float64
	CommsOutageDurationMax float64

	// MTU is the maximum payload size in octets accepted by Send.
	MTU int
}

// DefaultParams mirrors the documented defaults: unlimited distances,
// no penalties, no drops, no outages.
func DefaultParams() Params {
	return Params{
		NeighborDistanceMin:    -1,
		NeighborDistanceMax:    -1,
		CommsDistanceMin:       -1,
		CommsDistanceMax:       -1,
		CommsOutageDurationMin: -1,
		CommsOutageDurationMax: -1,
		MTU:                    DefaultMTU,
	}
}

// SanityWarnings flags threshold combinations that allow more than one
// line of obstacles between communicating vehicles.
func (p Params) SanityWarnings() []string {
	var warns []string
	if p.NeighborDistancePenaltyTree > 0 && p.NeighborDistanceMax >= 0 &&
		p.NeighborDistancePenaltyTree*2 <= p.NeighborDistanceMax {
		warns = append(warns, fmt.Sprintf(
			"neighbor_distance_penalty_tree %.1f allows two obstructions within neighbor_distance_max %.1f",
			p.NeighborDistancePenaltyTree, p.NeighborDistanceMax))
	}
	if p.CommsDistancePenaltyTree > 0 && p.CommsDistanceMax >= 0 &&
		p.CommsDistancePenaltyTree*2 <= p.CommsDistanceMax {
		warns = append(warns, fmt.Sprintf(
			"comms_distance_penalty_tree %.1f allows two obstructions within comms_distance_max %.1f",
			p.CommsDistancePenaltyTree, p.CommsDistanceMax))
	}
	return warns
}

// effectiveDistance applies the obstruction penalty to a raw distance.
// ok is false when the penalty is infinite (negative penalty with an
// obstruction in the way), which excludes the pair outright.
func effectiveDistance(dist float64, blocked bool, penalty float64) (eff float64, ok bool) {
	if !blocked {
		return dist, true
	}
	if penalty < 0 {
		return 0, false
	}
	return dist + penalty, true
}

// withinRange checks min <= eff <= max, treating negative bounds as
// unconstrained.
func withinRange(eff, min, max float64) bool {
	if min > 0 && eff < min {
		return false
	}
	if max >= 0 && eff > max {
		return false
	}
	return true
}

// NeighborEligible evaluates the neighbor policy for a pair at the
// given raw distance and obstruction state.
func (p Params) NeighborEligible(dist float64, blocked bool) bool {
	eff, ok := effectiveDistance(dist, blocked, p.NeighborDistancePenaltyTree)
	return ok && withinRange(eff, p.NeighborDistanceMin, p.NeighborDistanceMax)
}

// CommsRangeEligible evaluates the comms distance policy in isolation.
// Full comms eligibility additionally requires neighbor eligibility;
// the engine layers that on top.
func (p Params) CommsRangeEligible(dist float64, blocked bool) bool {
	eff, ok := effectiveDistance(dist, blocked, p.CommsDistancePenaltyTree)
	return ok && withinRange(eff, p.CommsDistanceMin, p.CommsDistanceMax)
}
