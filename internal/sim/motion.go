package sim

import (
	"math"

	"swarmnet-sim/internal/world"
)

// maxHeadingDriftRad bounds how much a robot may turn per tick.
const maxHeadingDriftRad = math.Pi / 4

// moveRobots advances every robot one tick along its heading with a
// small random drift. This is not a kinematics model; it only exists
// so positions change between ticks. The connectivity engine is
// agnostic to how nodes move.
func (s *Simulator) moveRobots() {
	dt := s.tickInterval.Seconds()
	for _, r := range s.robots {
		addr := r.Client.Address()
		pos, ok := s.field.Position(addr)
		if !ok {
			continue
		}

		r.heading += (s.motionRng.Float64()*2 - 1) * maxHeadingDriftRad
		speed := r.speedMin + s.motionRng.Float64()*(r.speedMax-r.speedMin)

		next := world.Vec3{
			X: pos.X + speed*dt*math.Cos(r.heading),
			Y: pos.Y + speed*dt*math.Sin(r.heading),
			Z: r.altitude,
		}

		// Bounce off the field edge instead of hugging it.
		if next.X <= s.field.Min.X || next.X >= s.field.Max.X ||
			next.Y <= s.field.Min.Y || next.Y >= s.field.Max.Y {
			r.heading += math.Pi
		}
		s.field.SetPosition(addr, next)
	}
}
