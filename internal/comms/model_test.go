package comms

import "testing"

func TestNeighborEligible(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		dist    float64
		blocked bool
		want    bool
	}{
		{"unlimited defaults", DefaultParams(), 1e6, false, true},
		{"within max", Params{NeighborDistanceMin: -1, NeighborDistanceMax: 100}, 50, false, true},
		{"beyond max", Params{NeighborDistanceMin: -1, NeighborDistanceMax: 100}, 150, false, false},
		{"exactly max", Params{NeighborDistanceMin: -1, NeighborDistanceMax: 100}, 100, false, true},
		{"below min", Params{NeighborDistanceMin: 10, NeighborDistanceMax: 100}, 5, false, false},
		{"penalty pushes over max", Params{NeighborDistanceMin: -1, NeighborDistanceMax: 100, NeighborDistancePenaltyTree: 30}, 80, true, false},
		{"penalty still within max", Params{NeighborDistanceMin: -1, NeighborDistanceMax: 100, NeighborDistancePenaltyTree: 30}, 60, true, true},
		{"negative penalty blocks outright", Params{NeighborDistanceMin: -1, NeighborDistanceMax: -1, NeighborDistancePenaltyTree: -1}, 1, true, false},
		{"negative penalty irrelevant when clear", Params{NeighborDistanceMin: -1, NeighborDistanceMax: -1, NeighborDistancePenaltyTree: -1}, 1, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.params.NeighborEligible(tt.dist, tt.blocked); got != tt.want {
				t.Errorf("NeighborEligible(%v, %v) = %v, want %v", tt.dist, tt.blocked, got, tt.want)
			}
		})
	}
}

func TestCommsRangeEligible(t *testing.T) {
	p := Params{
		CommsDistanceMin:         -1,
		CommsDistanceMax:         90,
		CommsDistancePenaltyTree: 45,
	}
	tests := []struct {
		name    string
		dist    float64
		blocked bool
		want    bool
	}{
		{"clear within range", 80, false, true},
		{"clear beyond range", 100, false, false},
		{"blocked within range after penalty", 40, true, true},
		{"blocked beyond range after penalty", 50, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.CommsRangeEligible(tt.dist, tt.blocked); got != tt.want {
				t.Errorf("CommsRangeEligible(%v, %v) = %v, want %v", tt.dist, tt.blocked, got, tt.want)
			}
		})
	}
}

func TestEffectiveDistance(t *testing.T) {
	if eff, ok := effectiveDistance(10, false, 99); !ok || eff != 10 {
		t.Errorf("clear path altered: eff=%v ok=%v", eff, ok)
	}
	if eff, ok := effectiveDistance(10, true, 5); !ok || eff != 15 {
		t.Errorf("penalty not applied: eff=%v ok=%v", eff, ok)
	}
	if _, ok := effectiveDistance(10, true, -1); ok {
		t.Error("negative penalty with obstruction should exclude the pair")
	}
}

func TestDefaultParamsUnconstrained(t *testing.T) {
	p := DefaultParams()
	if !p.NeighborEligible(12345, false) {
		t.Error("defaults should accept any clear distance")
	}
	if !p.CommsRangeEligible(12345, false) {
		t.Error("defaults should accept any clear distance for comms")
	}
	if p.MTU != DefaultMTU {
		t.Errorf("MTU = %d, want %d", p.MTU, DefaultMTU)
	}
}

func TestSanityWarnings(t *testing.T) {
	p := DefaultParams()
	if warns := p.SanityWarnings(); len(warns) != 0 {
		t.Errorf("defaults produced warnings: %v", warns)
	}

	p.NeighborDistanceMax = 100
	p.NeighborDistancePenaltyTree = 30 // 2*30 <= 100
	p.CommsDistanceMax = 90
	p.CommsDistancePenaltyTree = 45 // 2*45 <= 90
	warns := p.SanityWarnings()
	if len(warns) != 2 {
		t.Fatalf("expected 2 warnings, got %d: %v", len(warns), warns)
	}

	p.NeighborDistancePenaltyTree = 60 // 2*60 > 100
	p.CommsDistancePenaltyTree = 50    // 2*50 > 90
	if warns := p.SanityWarnings(); len(warns) != 0 {
		t.Errorf("tight penalties should not warn: %v", warns)
	}
}
