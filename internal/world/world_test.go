package world

import (
	"math"
	"testing"
)

func TestDistanceTo(t *testing.T) {
	a := Vec3{X: 1, Y: 2, Z: 3}
	b := Vec3{X: 4, Y: 6, Z: 3}
	if d := a.DistanceTo(b); math.Abs(d-5) > 1e-9 {
		t.Errorf("DistanceTo = %v, want 5", d)
	}
	if d := a.DistanceTo(a); d != 0 {
		t.Errorf("distance to self = %v, want 0", d)
	}
}

func TestSegmentIntersectsBox(t *testing.T) {
	min := Vec3{X: 10, Y: -5, Z: 0}
	max := Vec3{X: 20, Y: 5, Z: 10}

	tests := []struct {
		name   string
		p1, p2 Vec3
		hit    bool
	}{
		{"straight through", Vec3{X: 0, Z: 5}, Vec3{X: 30, Z: 5}, true},
		{"misses to the side", Vec3{X: 0, Y: 10, Z: 5}, Vec3{X: 30, Y: 10, Z: 5}, false},
		{"over the top", Vec3{X: 0, Z: 20}, Vec3{X: 30, Z: 20}, false},
		{"stops short", Vec3{X: 0, Z: 5}, Vec3{X: 5, Z: 5}, false},
		{"starts inside", Vec3{X: 15, Z: 5}, Vec3{X: 30, Z: 5}, true},
		{"vertical through roof", Vec3{X: 15, Z: 20}, Vec3{X: 15, Z: 5}, true},
		{"diagonal clip", Vec3{X: 0, Y: -10, Z: 5}, Vec3{X: 30, Y: 10, Z: 5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got := segmentIntersectsBox(tt.p1, tt.p2, min, max)
			if got != tt.hit {
				t.Errorf("segmentIntersectsBox = %v, want %v", got, tt.hit)
			}
		})
	}
}

func TestOccludesReportsFirstAndLast(t *testing.T) {
	f := NewField(Vec3{X: -100, Y: -100, Z: -10}, Vec3{X: 100, Y: 100, Z: 100}, []Box{
		{Name: "near", Kind: KindTree, Min: Vec3{X: 10, Y: -5, Z: -10}, Max: Vec3{X: 15, Y: 5, Z: 50}},
		{Name: "far", Kind: KindBuilding, Min: Vec3{X: 40, Y: -5, Z: -10}, Max: Vec3{X: 45, Y: 5, Z: 50}},
	})

	obs := f.Occludes(Vec3{X: 0}, Vec3{X: 60})
	if !obs.Blocked || obs.First != "near" || obs.Last != "far" {
		t.Errorf("Occludes = %+v, want blocked near..far", obs)
	}

	// Reverse direction flips the segment order.
	obs = f.Occludes(Vec3{X: 60}, Vec3{X: 0})
	if !obs.Blocked || obs.First != "far" || obs.Last != "near" {
		t.Errorf("reverse Occludes = %+v, want blocked far..near", obs)
	}

	obs = f.Occludes(Vec3{X: 0, Y: 50}, Vec3{X: 60, Y: 50})
	if obs.Blocked {
		t.Errorf("clear segment reported blocked: %+v", obs)
	}

	single := f.Occludes(Vec3{X: 0}, Vec3{X: 30})
	if !single.Blocked || single.First != "near" || single.Last != "near" {
		t.Errorf("single obstruction = %+v, want near..near", single)
	}
}

func TestSetPositionClampsToBounds(t *testing.T) {
	f := NewField(Vec3{X: 0, Y: 0, Z: 0}, Vec3{X: 100, Y: 100, Z: 50}, nil)
	f.SetPosition("a", Vec3{X: -10, Y: 200, Z: 25})
	p, ok := f.Position("a")
	if !ok {
		t.Fatal("position not recorded")
	}
	if p.X != 0 || p.Y != 100 || p.Z != 25 {
		t.Errorf("clamped position = %+v, want (0,100,25)", p)
	}

	if _, ok := f.Position("ghost"); ok {
		t.Error("unknown address must report not found")
	}
}
